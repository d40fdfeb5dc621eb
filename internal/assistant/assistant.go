// Package assistant answers transcribed questions with a hosted assistant.
// Every question gets its own thread: create, post, run, wait, read, delete.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/voice-bot/internal/models"
	"github.com/xaenox/voice-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultRunTimeout      = 30 * time.Second
	defaultPollInterval    = 500 * time.Millisecond
	defaultMaxPollInterval = 2 * time.Second
	cleanupTimeout         = 10 * time.Second
	answerScanLimit        = 20
)

// Options bound the run wait and control thread cleanup.
type Options struct {
	RunTimeout      time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	DeleteThreads   bool
}

type Client struct {
	backend     Backend
	assistantID string
	threads     storage.ThreadStorage
	opts        Options
	logger      *zap.Logger
}

func New(backend Backend, assistantID string, threads storage.ThreadStorage, opts Options, logger *zap.Logger) (*Client, error) {
	if backend == nil {
		return nil, errors.New("assistant: backend must not be nil")
	}
	if assistantID == "" {
		return nil, errors.New("assistant: assistant id must not be empty")
	}
	if threads == nil {
		return nil, errors.New("assistant: thread storage must not be nil")
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPollInterval < opts.PollInterval {
		opts.MaxPollInterval = max(defaultMaxPollInterval, opts.PollInterval)
	}
	return &Client{
		backend:     backend,
		assistantID: assistantID,
		threads:     threads,
		opts:        opts,
		logger:      logger,
	}, nil
}

// Answer runs the assistant on question in a fresh thread and returns the
// newest assistant text the run produced.
func (c *Client) Answer(ctx context.Context, userID int64, question string) (string, error) {
	threadID, err := c.backend.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("assistant: create thread: %w", err)
	}

	logger := c.logger.With(zap.String("thread_id", threadID), zap.Int64("user_id", userID))

	// The ledger only holds threads that are due for deletion.
	if c.opts.DeleteThreads {
		if err := c.threads.SaveThread(ctx, &models.Thread{ID: threadID, UserID: userID, CreatedAt: time.Now()}); err != nil {
			logger.Error("Failed to record thread", zap.Error(err))
		}
		defer c.releaseThread(ctx, threadID, logger)
	}

	if err := c.backend.AddUserMessage(ctx, threadID, question); err != nil {
		return "", fmt.Errorf("assistant: add message: %w", err)
	}

	runID, err := c.backend.StartRun(ctx, threadID, c.assistantID)
	if err != nil {
		return "", fmt.Errorf("assistant: start run: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))

	if err := c.waitForRun(ctx, threadID, runID); err != nil {
		if errors.Is(err, ErrRunTimeout) {
			c.cancelRun(ctx, threadID, runID, logger)
		}
		return "", err
	}

	messages, err := c.backend.LatestMessages(ctx, threadID, runID, answerScanLimit)
	if err != nil {
		return "", fmt.Errorf("assistant: list messages: %w", err)
	}

	answer, ok := latestAnswer(messages)
	if !ok {
		return "", ErrEmptyAnswer
	}

	logger.Debug("Assistant answered", zap.Int("chars", len(answer)))
	return answer, nil
}

// waitForRun polls the run with a doubling interval until it leaves the
// pending states or the run timeout elapses.
func (c *Client) waitForRun(ctx context.Context, threadID, runID string) error {
	runCtx, cancel := context.WithTimeout(ctx, c.opts.RunTimeout)
	defer cancel()

	interval := c.opts.PollInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		status, err := c.backend.RunStatus(runCtx, threadID, runID)
		if err != nil {
			if runCtx.Err() != nil && ctx.Err() == nil {
				return fmt.Errorf("%w after %s", ErrRunTimeout, c.opts.RunTimeout)
			}
			return fmt.Errorf("assistant: retrieve run: %w", err)
		}

		switch status {
		case openai.RunStatusCompleted:
			return nil
		case openai.RunStatusQueued, openai.RunStatusInProgress:
		default:
			return fmt.Errorf("%w: status %s", ErrRunFailed, status)
		}

		select {
		case <-runCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w after %s", ErrRunTimeout, c.opts.RunTimeout)
		case <-timer.C:
		}

		interval = min(interval*2, c.opts.MaxPollInterval)
		timer.Reset(interval)
	}
}

func (c *Client) cancelRun(ctx context.Context, threadID, runID string, logger *zap.Logger) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := c.backend.CancelRun(cancelCtx, threadID, runID); err != nil {
		logger.Warn("Failed to cancel timed out run", zap.Error(err))
	}
}

// releaseThread deletes the provider thread. Threads that could not be
// deleted stay in the ledger for the janitor.
func (c *Client) releaseThread(ctx context.Context, threadID string, logger *zap.Logger) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := c.DeleteThread(cleanupCtx, threadID); err != nil {
		logger.Warn("Failed to delete thread", zap.Error(err))
	}
}

// DeleteThread removes a thread from the provider and then from the ledger.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if err := c.backend.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("assistant: delete thread %s: %w", threadID, err)
	}
	if err := c.threads.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("assistant: forget thread %s: %w", threadID, err)
	}
	return nil
}

// latestAnswer picks the first non-empty text of the newest assistant message.
func latestAnswer(messages []Message) (string, bool) {
	for _, m := range messages {
		if m.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range m.Parts {
			if strings.TrimSpace(part) != "" {
				return part, true
			}
		}
	}
	return "", false
}
