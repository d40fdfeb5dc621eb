package bot

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/voice-bot/internal/models"
)

func classify(message *tgbotapi.Message) models.Kind {
	switch {
	case message.IsCommand():
		return models.CommandKind
	case message.Voice != nil:
		return models.VoiceKind
	case message.Audio != nil:
		return models.AudioKind
	case message.Text != "":
		return models.TextKind
	default:
		return models.UnsupportedKind
	}
}

func voiceMessage(message *tgbotapi.Message, kind models.Kind) models.VoiceMessage {
	msg := models.VoiceMessage{
		MessageID: message.MessageID,
		Kind:      kind,
		CreatedAt: time.Unix(int64(message.Date), 0),
	}
	if message.Chat != nil {
		msg.ChatID = message.Chat.ID
	}
	if message.From != nil {
		msg.UserID = message.From.ID
	}

	switch kind {
	case models.VoiceKind:
		msg.FileID = message.Voice.FileID
		msg.MimeType = message.Voice.MimeType
		msg.Duration = message.Voice.Duration
	case models.AudioKind:
		msg.FileID = message.Audio.FileID
		msg.MimeType = message.Audio.MimeType
		msg.Duration = message.Audio.Duration
	}
	return msg
}
