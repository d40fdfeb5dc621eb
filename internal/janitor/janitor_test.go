package janitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/voice-bot/internal/models"
	"github.com/xaenox/voice-bot/internal/pipeline"
	"github.com/xaenox/voice-bot/internal/storage"
)

type fakeDeleter struct {
	store   *storage.MemoryStorage
	failFor map[string]bool
	calls   []string
}

func (f *fakeDeleter) DeleteThread(ctx context.Context, threadID string) error {
	f.calls = append(f.calls, threadID)
	if f.failFor[threadID] {
		return errors.New("provider error")
	}
	return f.store.DeleteThread(ctx, threadID)
}

func TestSweep_RemovesStaleFilesAndThreads(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	fs := afero.NewMemMapFs()
	files, err := pipeline.NewStore(fs, "audio")
	require.NoError(t, err)

	stale := files.QuestionPath("left-behind", ".ogg")
	fresh := files.QuestionPath("in-flight", ".ogg")
	_, err = files.Write(stale, strings.NewReader("x"))
	require.NoError(t, err)
	_, err = files.Write(fresh, strings.NewReader("y"))
	require.NoError(t, err)
	require.NoError(t, fs.Chtimes(stale, now.Add(-3*time.Hour), now.Add(-3*time.Hour)))
	require.NoError(t, fs.Chtimes(fresh, now, now))

	threads := storage.NewMemoryStorage()
	require.NoError(t, threads.SaveThread(ctx, &models.Thread{ID: "thread_old", CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, threads.SaveThread(ctx, &models.Thread{ID: "thread_stuck", CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, threads.SaveThread(ctx, &models.Thread{ID: "thread_new", CreatedAt: now}))

	deleter := &fakeDeleter{store: threads, failFor: map[string]bool{"thread_stuck": true}}

	j := New(files, threads, deleter, time.Hour, zaptest.NewLogger(t))
	j.now = func() time.Time { return now }
	j.Sweep(ctx)

	exists, _ := afero.Exists(fs, stale)
	require.False(t, exists)
	exists, _ = afero.Exists(fs, fresh)
	require.True(t, exists)

	require.ElementsMatch(t, []string{"thread_old", "thread_stuck"}, deleter.calls)

	left, err := threads.ListThreads(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	ids := make([]string, 0, len(left))
	for _, th := range left {
		ids = append(ids, th.ID)
	}
	require.ElementsMatch(t, []string{"thread_stuck", "thread_new"}, ids)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := New(nil, nil, nil, time.Hour, zaptest.NewLogger(t))

	done := make(chan struct{})
	go func() {
		j.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
