package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xaenox/voice-bot/internal/models"
	"github.com/xaenox/voice-bot/internal/pipeline"
)

const defaultHandleTimeout = 2 * time.Minute

// API is the part of *tgbotapi.BotAPI the receive loop uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Processor relays one voice message.
type Processor interface {
	Process(ctx context.Context, msg models.VoiceMessage) (models.Result, error)
}

type Options struct {
	PollTimeout int
	// MaxConcurrent caps in-flight voice messages. Zero means no cap.
	MaxConcurrent int
	HandleTimeout time.Duration
}

type Bot struct {
	api       API
	processor Processor
	sem       *semaphore.Weighted
	opts      Options
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func New(api API, processor Processor, opts Options, logger *zap.Logger) (*Bot, error) {
	if api == nil {
		return nil, errors.New("bot: api must not be nil")
	}
	if processor == nil {
		return nil, errors.New("bot: processor must not be nil")
	}
	if opts.HandleTimeout <= 0 {
		opts.HandleTimeout = defaultHandleTimeout
	}

	b := &Bot{
		api:       api,
		processor: processor,
		opts:      opts,
		logger:    logger,
	}
	if opts.MaxConcurrent > 0 {
		b.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return b, nil
}

// Start receives updates until ctx is done, then waits for in-flight
// handlers to return.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.dispatch(ctx, update.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, message *tgbotapi.Message) {
	kind := classify(message)

	if kind.Relayed() {
		if b.sem != nil {
			if err := b.sem.Acquire(ctx, 1); err != nil {
				return
			}
		}
		b.spawn(func() {
			if b.sem != nil {
				defer b.sem.Release(1)
			}
			b.handleVoice(ctx, voiceMessage(message, kind))
		})
		return
	}

	if kind == models.CommandKind {
		b.spawn(func() { b.handleCommand(message) })
		return
	}
	b.spawn(func() { b.sendMessage(message.Chat.ID, hintText) })
}

func (b *Bot) spawn(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

func (b *Bot) handleVoice(ctx context.Context, msg models.VoiceMessage) {
	logger := b.logger.With(
		zap.Int64("chat_id", msg.ChatID),
		zap.Int64("user_id", msg.UserID),
		zap.String("file_id", msg.FileID),
		zap.String("kind", string(msg.Kind)),
		zap.String("mime_type", msg.MimeType),
		zap.Int("duration", msg.Duration),
		zap.Duration("queued", time.Since(msg.CreatedAt)))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Voice handler panicked", zap.Any("panic", r), zap.Stack("stack"))
			b.sendErrorMessage(msg.ChatID, msg.MessageID, apologyFor(nil))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, b.opts.HandleTimeout)
	defer cancel()

	start := time.Now()
	result, err := b.processor.Process(ctx, msg)
	if err != nil {
		logger.Error("Failed to relay voice message",
			zap.Error(err),
			zap.String("stage", string(result.Stage)),
			zap.Duration("elapsed", time.Since(start)))
		b.sendErrorMessage(msg.ChatID, msg.MessageID, apologyFor(err))
		return
	}

	logger.Debug("Voice message handled",
		zap.String("stage", string(result.Stage)),
		zap.Duration("elapsed", time.Since(start)))
}

const welcomeText = `Hi! Send me a voice message with your question.
I'll transcribe it, ask the assistant and answer you with a voice message.`

const helpText = `Available commands:
/start - Start the bot
/help - Show this help message

Send a voice message or an audio file and I'll reply with the answer as text and voice.`

const hintText = "Please send me a voice message. Use /help to see what I can do."

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.sendMessage(message.Chat.ID, welcomeText)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

// apologyFor turns a pipeline failure into a message for the user.
func apologyFor(err error) string {
	var pipeErr *pipeline.Error
	if !errors.As(err, &pipeErr) {
		return "Sorry, something went wrong. Please try again."
	}

	switch pipeErr.Code {
	case pipeline.ErrorAcquisition:
		return "Sorry, I couldn't download your voice message. Please try again."
	case pipeline.ErrorTranscription:
		return "Sorry, I couldn't make out your voice message. Please try again."
	case pipeline.ErrorGeneration:
		return "Sorry, I couldn't come up with an answer right now. Please try again later."
	case pipeline.ErrorSynthesis:
		return "Sorry, I couldn't voice my answer. Please try again later."
	default:
		return fmt.Sprintf("Sorry, I couldn't send the answer (%s).", pipeErr.Code)
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	msg.ReplyToMessageID = replyToID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
