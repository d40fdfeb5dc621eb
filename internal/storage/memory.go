package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/voice-bot/internal/models"
)

type MemoryStorage struct {
	mu      sync.RWMutex
	threads map[string]models.Thread
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		threads: make(map[string]models.Thread),
	}
}

func (s *MemoryStorage) SaveThread(ctx context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *thread
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.threads[t.ID] = t
	return nil
}

func (s *MemoryStorage) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, threadID)
	return nil
}

func (s *MemoryStorage) ListThreads(ctx context.Context, createdBefore time.Time) ([]*models.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]*models.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		if !t.CreatedAt.Before(createdBefore) {
			continue
		}
		t := t
		threads = append(threads, &t)
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].CreatedAt.Before(threads[j].CreatedAt)
	})
	return threads, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
