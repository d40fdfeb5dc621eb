package speech

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Transcriber turns recorded speech into text with the OpenAI transcription API.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

func NewTranscriber(client *openai.Client, model, language string, logger *zap.Logger) *Transcriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{
		client:   client,
		model:    model,
		language: language,
		logger:   logger,
	}
}

// Transcribe uploads audio as a single request and returns the text exactly as
// the backend produced it. name only carries the file extension the backend
// uses to detect the container format.
func (t *Transcriber) Transcribe(ctx context.Context, name string, audio io.Reader) (string, error) {
	start := time.Now()

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: name,
		Reader:   audio,
		Language: t.language,
	})
	if err != nil {
		return "", &BackendError{Op: "transcribe", Model: t.model, Err: err}
	}

	if strings.TrimSpace(resp.Text) == "" {
		return "", &BackendError{Op: "transcribe", Model: t.model, Err: ErrEmptyTranscript}
	}

	t.logger.Debug("Transcribed audio",
		zap.String("file", name),
		zap.Int("chars", len(resp.Text)),
		zap.Duration("latency", time.Since(start)))

	return resp.Text, nil
}
