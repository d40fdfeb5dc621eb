// Package pipeline relays one voice message through transcription, answer
// generation and speech synthesis, and sends the result back.
//
// Each call to Process is independent. The only shared state is the set of
// stage clients, which must be safe for concurrent use.
package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xaenox/voice-bot/internal/models"
)

// Source downloads an attachment from the messaging platform. ext is the
// file extension reported by the platform, possibly empty.
type Source interface {
	Fetch(ctx context.Context, fileID string) (body io.ReadCloser, ext string, err error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, name string, audio io.Reader) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, userID int64, question string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
	Extension() string
}

// Replier delivers results to the conversation the message came from.
type Replier interface {
	ReplyText(ctx context.Context, msg models.VoiceMessage, text string) error
	ReplyVoice(ctx context.Context, msg models.VoiceMessage, name string, audio io.Reader) error
}

// Stages groups the external collaborators of the pipeline.
type Stages struct {
	Source      Source
	Transcriber Transcriber
	Answerer    Answerer
	Synthesizer Synthesizer
	Replier     Replier
}

// ReplyOptions selects what is sent back. At least one must be set.
type ReplyOptions struct {
	Text  bool
	Voice bool
}

type Pipeline struct {
	stages Stages
	store  *Store
	reply  ReplyOptions
	logger *zap.Logger
}

func New(stages Stages, store *Store, reply ReplyOptions, logger *zap.Logger) (*Pipeline, error) {
	switch {
	case stages.Source == nil:
		return nil, errors.New("pipeline: source must not be nil")
	case stages.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber must not be nil")
	case stages.Answerer == nil:
		return nil, errors.New("pipeline: answerer must not be nil")
	case stages.Replier == nil:
		return nil, errors.New("pipeline: replier must not be nil")
	case reply.Voice && stages.Synthesizer == nil:
		return nil, errors.New("pipeline: synthesizer must not be nil when voice replies are enabled")
	case store == nil:
		return nil, errors.New("pipeline: store must not be nil")
	case !reply.Text && !reply.Voice:
		return nil, errors.New("pipeline: no reply mode enabled")
	}
	return &Pipeline{
		stages: stages,
		store:  store,
		reply:  reply,
		logger: logger,
	}, nil
}

// Process runs msg through every stage. On failure the returned error is a
// *Error naming the stage, and the result holds the last stage reached.
// Local files created by this call are removed before it returns.
func (p *Pipeline) Process(ctx context.Context, msg models.VoiceMessage) (models.Result, error) {
	result := models.Result{Stage: models.StageReceived}
	logger := p.logger.With(
		zap.Int64("chat_id", msg.ChatID),
		zap.Int64("user_id", msg.UserID),
		zap.String("file_id", msg.FileID))

	questionPath, err := p.acquire(ctx, msg)
	if err != nil {
		return result, err
	}
	defer p.discard(questionPath, logger)

	transcript, err := p.transcribe(ctx, questionPath)
	p.discard(questionPath, logger)
	if err != nil {
		return result, err
	}
	result.Transcript = transcript
	result.Stage = models.StageTranscribed
	logger.Debug("Voice message transcribed", zap.Int("chars", len(transcript)))

	answer, err := p.stages.Answerer.Answer(ctx, msg.UserID, transcript)
	if err != nil {
		return result, newError(ErrorGeneration, "answer_failed", err)
	}
	result.Answer = answer
	result.Stage = models.StageAnswered
	logger.Debug("Answer generated", zap.Int("chars", len(answer)))

	var answerPath string
	if p.reply.Voice {
		answerPath, err = p.synthesize(ctx, answer)
		if err != nil {
			return result, err
		}
		defer p.discard(answerPath, logger)
		result.Stage = models.StageSynthesized
	}

	if err := p.deliver(ctx, msg, answer, answerPath); err != nil {
		return result, err
	}
	p.discard(answerPath, logger)
	result.Stage = models.StageDelivered

	logger.Info("Voice message relayed")
	return result, nil
}

func (p *Pipeline) acquire(ctx context.Context, msg models.VoiceMessage) (string, error) {
	if msg.FileID == "" {
		return "", newError(ErrorAcquisition, "missing_attachment", nil)
	}

	body, ext, err := p.stages.Source.Fetch(ctx, msg.FileID)
	if err != nil {
		return "", newError(ErrorAcquisition, "download_failed", err)
	}
	defer body.Close()

	path := p.store.QuestionPath(msg.FileID, ext)
	if _, err := p.store.Write(path, body); err != nil {
		return "", newError(ErrorAcquisition, "write_failed", err)
	}
	return path, nil
}

func (p *Pipeline) transcribe(ctx context.Context, path string) (string, error) {
	f, err := p.store.Open(path)
	if err != nil {
		return "", newError(ErrorTranscription, "open_failed", err)
	}
	defer f.Close()

	text, err := p.stages.Transcriber.Transcribe(ctx, filepath.Base(path), f)
	if err != nil {
		return "", newError(ErrorTranscription, "transcribe_failed", err)
	}
	return text, nil
}

func (p *Pipeline) synthesize(ctx context.Context, answer string) (string, error) {
	audio, err := p.stages.Synthesizer.Synthesize(ctx, answer)
	if err != nil {
		return "", newError(ErrorSynthesis, "synthesize_failed", err)
	}
	defer audio.Close()

	path := p.store.AnswerPath(p.stages.Synthesizer.Extension())
	if _, err := p.store.Write(path, audio); err != nil {
		return "", newError(ErrorSynthesis, "write_failed", err)
	}
	return path, nil
}

func (p *Pipeline) deliver(ctx context.Context, msg models.VoiceMessage, answer, answerPath string) error {
	if p.reply.Text {
		if err := p.stages.Replier.ReplyText(ctx, msg, answer); err != nil {
			return newError(ErrorDelivery, "send_text_failed", err)
		}
	}

	if answerPath == "" {
		return nil
	}

	f, err := p.store.Open(answerPath)
	if err != nil {
		return newError(ErrorDelivery, "open_failed", err)
	}
	defer f.Close()

	if err := p.stages.Replier.ReplyVoice(ctx, msg, filepath.Base(answerPath), f); err != nil {
		return newError(ErrorDelivery, "send_voice_failed", err)
	}
	return nil
}

func (p *Pipeline) discard(path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	if err := p.store.Remove(path); err != nil {
		logger.Warn("Failed to remove audio file", zap.String("path", path), zap.Error(err))
	}
}
