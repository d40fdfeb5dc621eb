package speech

import (
	"context"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Synthesizer renders text with one fixed model and voice.
type Synthesizer struct {
	client *openai.Client
	model  string
	voice  string
	format string
	logger *zap.Logger
}

func NewSynthesizer(client *openai.Client, model, voice, format string, logger *zap.Logger) *Synthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceOnyx)
	}
	if format == "" {
		format = string(openai.SpeechResponseFormatMp3)
	}
	return &Synthesizer{
		client: client,
		model:  model,
		voice:  voice,
		format: format,
		logger: logger,
	}
}

// Extension is the file extension of the audio Synthesize returns.
func (s *Synthesizer) Extension() string {
	return "." + s.format
}

// Synthesize returns the encoded speech for text. The caller closes the reader.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormat(s.format),
	})
	if err != nil {
		return nil, &BackendError{Op: "synthesize", Model: s.model, Err: err}
	}

	s.logger.Debug("Synthesized answer",
		zap.Int("chars", len(text)),
		zap.String("voice", s.voice))

	return resp, nil
}
