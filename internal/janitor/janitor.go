// Package janitor removes what interrupted invocations leave behind: audio
// files in the scratch dir and provider threads that were never deleted.
package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/voice-bot/internal/storage"
)

// FileSweeper removes files modified before cutoff.
type FileSweeper interface {
	Sweep(cutoff time.Time) (int, error)
}

// ThreadDeleter deletes a provider thread and forgets it.
type ThreadDeleter interface {
	DeleteThread(ctx context.Context, threadID string) error
}

type Janitor struct {
	files      FileSweeper
	threads    storage.ThreadStorage
	deleter    ThreadDeleter
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func New(files FileSweeper, threads storage.ThreadStorage, deleter ThreadDeleter, staleAfter time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		files:      files,
		threads:    threads,
		deleter:    deleter,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	j.Sweep(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs one cleanup pass. Failures are logged and retried on the
// next pass.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := j.now().Add(-j.staleAfter)

	if j.files != nil {
		removed, err := j.files.Sweep(cutoff)
		if err != nil {
			j.logger.Warn("Failed to sweep audio files", zap.Error(err))
		}
		if removed > 0 {
			j.logger.Info("Removed stale audio files", zap.Int("count", removed))
		}
	}

	if j.threads == nil || j.deleter == nil {
		return
	}

	threads, err := j.threads.ListThreads(ctx, cutoff)
	if err != nil {
		j.logger.Warn("Failed to list leftover threads", zap.Error(err))
		return
	}

	var deleted int
	for _, thread := range threads {
		if ctx.Err() != nil {
			return
		}
		if err := j.deleter.DeleteThread(ctx, thread.ID); err != nil {
			j.logger.Warn("Failed to delete leftover thread",
				zap.Error(err),
				zap.String("thread_id", thread.ID),
				zap.Int64("user_id", thread.UserID))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		j.logger.Info("Deleted leftover threads", zap.Int("count", deleted))
	}
}
