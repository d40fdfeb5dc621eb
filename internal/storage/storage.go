package storage

import (
	"context"
	"time"

	"github.com/xaenox/voice-bot/internal/models"
)

type Storage interface {
	Close() error

	// Embed ThreadStorage interface
	ThreadStorage
}

// ThreadStorage keeps track of provider threads that still need deletion.
type ThreadStorage interface {
	SaveThread(ctx context.Context, thread *models.Thread) error
	DeleteThread(ctx context.Context, threadID string) error
	// ListThreads returns threads created before the given time, oldest first.
	ListThreads(ctx context.Context, createdBefore time.Time) ([]*models.Thread, error)
}
