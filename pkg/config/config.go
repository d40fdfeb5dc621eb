package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xaenox/voice-bot/internal/proxy"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Reply     ReplyConfig     `mapstructure:"reply"`
	Bot       BotConfig       `mapstructure:"bot"`
	Janitor   JanitorConfig   `mapstructure:"janitor"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	PollTimeout int    `mapstructure:"poll_timeout"`
	Debug       bool   `mapstructure:"debug"`
}

type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	AssistantID string `mapstructure:"assistant_id"`
	// Proxy is a SOCKS5 address applied to every outbound client.
	Proxy string `mapstructure:"proxy"`
}

// AssistantConfig is the fixed persona plus the run wait bounds.
type AssistantConfig struct {
	Name            string        `mapstructure:"name"`
	Instructions    string        `mapstructure:"instructions"`
	Model           string        `mapstructure:"model"`
	Tools           []string      `mapstructure:"tools"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval"`
	DeleteThreads   bool          `mapstructure:"delete_threads"`
}

type SpeechConfig struct {
	TranscriptionModel string `mapstructure:"transcription_model"`
	Language           string `mapstructure:"language"`
	TTSModel           string `mapstructure:"tts_model"`
	Voice              string `mapstructure:"voice"`
	Format             string `mapstructure:"format"`
}

type StorageConfig struct {
	AudioDir   string        `mapstructure:"audio_dir"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type ReplyConfig struct {
	Text  bool `mapstructure:"text"`
	Voice bool `mapstructure:"voice"`
}

type BotConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	HandleTimeout time.Duration `mapstructure:"handle_timeout"`
}

type JanitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("assistant.name", "Question -> GPT -> Answer")
	v.SetDefault("assistant.instructions", "Question -> GPT -> Answer")
	v.SetDefault("assistant.model", "gpt-3.5-turbo-1106")
	v.SetDefault("assistant.tools", []string{"code_interpreter"})
	v.SetDefault("assistant.run_timeout", 30*time.Second)
	v.SetDefault("assistant.poll_interval", 500*time.Millisecond)
	v.SetDefault("assistant.max_poll_interval", 2*time.Second)
	v.SetDefault("assistant.delete_threads", true)
	v.SetDefault("speech.transcription_model", "whisper-1")
	v.SetDefault("speech.tts_model", "tts-1")
	v.SetDefault("speech.voice", "onyx")
	v.SetDefault("speech.format", "mp3")
	v.SetDefault("storage.audio_dir", "audio")
	v.SetDefault("storage.stale_after", time.Hour)
	v.SetDefault("reply.text", true)
	v.SetDefault("reply.voice", true)
	v.SetDefault("bot.max_concurrent", 4)
	v.SetDefault("bot.handle_timeout", 2*time.Minute)
	v.SetDefault("janitor.interval", 10*time.Minute)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)
}

// LoadConfig reads the YAML file at path when it exists and applies
// environment overrides on top. Secrets are usually supplied through
// TELEGRAM_TOKEN and OPENAI_API_KEY.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the bot cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram token is required"))
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		errs = append(errs, errors.New("openai api key is required"))
	}
	if c.Assistant.Model == "" && c.OpenAI.AssistantID == "" {
		errs = append(errs, errors.New("assistant model is required"))
	}
	if c.Assistant.RunTimeout <= 0 {
		errs = append(errs, errors.New("assistant run_timeout must be positive"))
	}
	if c.Assistant.PollInterval <= 0 {
		errs = append(errs, errors.New("assistant poll_interval must be positive"))
	}
	if c.Assistant.PollInterval > c.Assistant.RunTimeout {
		errs = append(errs, errors.New("assistant poll_interval must not exceed run_timeout"))
	}
	if c.Assistant.MaxPollInterval < c.Assistant.PollInterval {
		errs = append(errs, errors.New("assistant max_poll_interval must not be below poll_interval"))
	}
	if c.Storage.AudioDir == "" {
		errs = append(errs, errors.New("storage audio_dir is required"))
	}
	if !c.Reply.Text && !c.Reply.Voice {
		errs = append(errs, errors.New("at least one of reply.text and reply.voice must be enabled"))
	}
	if c.Bot.MaxConcurrent < 0 {
		errs = append(errs, errors.New("bot max_concurrent must not be negative"))
	}
	if c.Bot.HandleTimeout <= 0 {
		errs = append(errs, errors.New("bot handle_timeout must be positive"))
	}
	if c.Storage.StaleAfter <= c.Bot.HandleTimeout {
		errs = append(errs, errors.New("storage stale_after must exceed bot handle_timeout"))
	}
	if c.Telegram.PollTimeout < 0 {
		errs = append(errs, errors.New("telegram poll_timeout must not be negative"))
	}
	if time.Duration(c.Telegram.PollTimeout)*time.Second >= proxy.ClientTimeout {
		errs = append(errs, fmt.Errorf("telegram poll_timeout must be below the %s http client timeout", proxy.ClientTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
