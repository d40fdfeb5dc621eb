package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/voice-bot/internal/models"
)

// Telegram downloads attachments from and delivers replies to Telegram chats.
type Telegram struct {
	api    *tgbotapi.BotAPI
	client *http.Client
}

func NewTelegram(api *tgbotapi.BotAPI, client *http.Client) *Telegram {
	if client == nil {
		client = http.DefaultClient
	}
	return &Telegram{api: api, client: client}
}

// Fetch resolves fileID to a download link and streams the file.
func (t *Telegram) Fetch(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	file, err := t.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("telegram: get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(t.api.Token), nil)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: create download request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("telegram: download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("telegram: download file: unexpected status %d", resp.StatusCode)
	}

	return resp.Body, path.Ext(file.FilePath), nil
}

func (t *Telegram) ReplyText(ctx context.Context, msg models.VoiceMessage, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reply := tgbotapi.NewMessage(msg.ChatID, text)
	reply.ReplyToMessageID = msg.MessageID
	if _, err := t.api.Send(reply); err != nil {
		return fmt.Errorf("telegram: send text: %w", err)
	}
	return nil
}

func (t *Telegram) ReplyVoice(ctx context.Context, msg models.VoiceMessage, name string, audio io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	voice := tgbotapi.NewVoice(msg.ChatID, tgbotapi.FileReader{Name: name, Reader: audio})
	voice.ReplyToMessageID = msg.MessageID
	if _, err := t.api.Send(voice); err != nil {
		return fmt.Errorf("telegram: send voice: %w", err)
	}
	return nil
}
