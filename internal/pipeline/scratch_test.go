package pipeline

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewStore(fs, "audio")
	require.NoError(t, err)
	return s, fs
}

func TestQuestionPath(t *testing.T) {
	s, _ := newTestStore(t)

	cases := []struct {
		id, ext, want string
	}{
		{"abc123", ".ogg", "audio/question_abc123.ogg"},
		{"abc123", ".oga", "audio/question_abc123.ogg"},
		{"abc123", "", "audio/question_abc123.ogg"},
		{"AwACAgIAAxkB-Ab_c", ".MP3", "audio/question_AwACAgIAAxkB-Ab_c.mp3"},
		{"../../etc/passwd", ".ogg", "audio/question.Li4vLi4vZXRjL3Bhc3N3ZA.ogg"},
	}
	for _, tc := range cases {
		require.Equal(t, filepath.FromSlash(tc.want), s.QuestionPath(tc.id, tc.ext), "id=%q ext=%q", tc.id, tc.ext)
	}
}

func TestQuestionPath_DistinctIDsDistinctNames(t *testing.T) {
	s, _ := newTestStore(t)
	ids := []string{
		"a", "b", "abc123", "abc124", "A", "a-1", "a_1",
		"a.1", "a/1", "a 1", "abc.123", "abc_123", "..", "ä1",
	}

	seen := make(map[string]string)
	for _, id := range ids {
		path := s.QuestionPath(id, ".ogg")
		prev, dup := seen[path]
		require.False(t, dup, "%q and %q collide", id, prev)
		seen[path] = id
		require.Equal(t, "audio", filepath.Dir(path))
	}
}

func TestQuestionPath_UnsafeIDsDoNotCollideWithSafeOnes(t *testing.T) {
	s, _ := newTestStore(t)

	pairs := [][2]string{
		{"abc.123", "abc_123"},
		{"a.1", "a_1"},
		{"a/1", "a_1"},
		{"a\\1", "a_1"},
	}
	for _, p := range pairs {
		require.NotEqual(t, s.QuestionPath(p[0], ".oga"), s.QuestionPath(p[1], ".oga"), "%q vs %q", p[0], p[1])
	}
}

func TestAnswerPath_Random(t *testing.T) {
	s, _ := newTestStore(t)

	a := s.AnswerPath(".mp3")
	b := s.AnswerPath(".mp3")
	require.NotEqual(t, a, b)
	require.True(t, strings.HasSuffix(a, ".mp3"))
	require.Equal(t, "audio", filepath.Dir(a))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWrite_RemovesPartialFile(t *testing.T) {
	s, fs := newTestStore(t)
	path := s.QuestionPath("abc", ".ogg")

	_, err := s.Write(path, failingReader{})
	require.Error(t, err)

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRemove_MissingIsNotAnError(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Remove(s.QuestionPath("never-written", ".ogg")))
}

func TestSweep_RemovesOnlyStaleFiles(t *testing.T) {
	s, fs := newTestStore(t)
	now := time.Now()

	stale := s.QuestionPath("old", ".ogg")
	fresh := s.AnswerPath(".mp3")
	_, err := s.Write(stale, strings.NewReader("old"))
	require.NoError(t, err)
	_, err = s.Write(fresh, strings.NewReader("new"))
	require.NoError(t, err)
	require.NoError(t, fs.Chtimes(stale, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	removed, err := s.Sweep(now.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	exists, _ := afero.Exists(fs, stale)
	require.False(t, exists)
	exists, _ = afero.Exists(fs, fresh)
	require.True(t, exists)
}
