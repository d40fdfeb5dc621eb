package pipeline

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const defaultAudioExt = ".ogg"

// Store is the transient directory holding question and answer audio.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if fs == nil {
		return nil, errors.New("pipeline: filesystem must not be nil")
	}
	if dir == "" {
		return nil, errors.New("pipeline: audio dir must not be empty")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create audio dir: %w", err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// QuestionPath derives the question file name from the attachment id so
// concurrent messages never share a file. Distinct ids give distinct names.
func (s *Store) QuestionPath(fileID, ext string) string {
	return filepath.Join(s.dir, questionName(fileID)+normalizeExt(ext))
}

// AnswerPath returns a fresh random file name for synthesized audio.
func (s *Store) AnswerPath(ext string) string {
	if ext == "" {
		ext = ".mp3"
	}
	return filepath.Join(s.dir, uuid.NewString()+ext)
}

// Write copies r into a new file at path. A partially written file is removed.
func (s *Store) Write(path string, r io.Reader) (int64, error) {
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.Remove(path)
		return n, err
	}
	return n, nil
}

func (s *Store) Open(path string) (afero.File, error) {
	return s.fs.Open(path)
}

// Remove deletes path. A file that is already gone is not an error.
func (s *Store) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Sweep removes regular files last modified before cutoff and reports how
// many were removed.
func (s *Store) Sweep(cutoff time.Time) (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, fmt.Errorf("pipeline: read audio dir: %w", err)
	}

	var removed int
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !entry.ModTime().Before(cutoff) {
			continue
		}
		if err := s.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// questionName keeps file-safe ids as they are. Any other id is base64url
// encoded behind a '.' separator, which a kept id never produces.
func questionName(id string) string {
	if id == "" {
		return "question_" + uuid.NewString()
	}
	if isFileSafe(id) {
		return "question_" + id
	}
	return "question." + base64.RawURLEncoding.EncodeToString([]byte(id))
}

func isFileSafe(id string) bool {
	return strings.IndexFunc(id, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return false
		default:
			return true
		}
	}) < 0
}

// normalizeExt maps Telegram's .oga voice notes to .ogg, which the
// transcription backend accepts.
func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case "", ".oga", ".opus":
		return defaultAudioExt
	}
	return ext
}
