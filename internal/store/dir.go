package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

// DirStore keeps artifacts in <base>/outputs.
type DirStore struct {
	baseDir string
	outDir  string
	now     func() time.Time
}

// Option customizes a DirStore.
type Option func(*DirStore)

// WithClock overrides the clock used for run log timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *DirStore) {
		s.now = clock
	}
}

// Open ensures the outputs directory exists under baseDir and returns a store for it.
func Open(baseDir string, opts ...Option) (*DirStore, error) {
	out, err := Ensure(baseDir)
	if err != nil {
		return nil, err
	}
	s := &DirStore{baseDir: baseDir, outDir: out, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the outputs directory.
func (s *DirStore) Dir() string {
	return s.outDir
}

// Path returns the artifact path relative to the base directory, e.g. outputs/hero.png.
func (s *DirStore) Path(name string) string {
	return filepath.ToSlash(filepath.Join(OutputsDirName, name))
}

// Write atomically replaces the named artifact: the bytes go to a temporary file in
// the same directory which is then renamed over the target.
func (s *DirStore) Write(name string, data []byte) error {
	target := filepath.Join(s.outDir, name)
	tmp, err := os.CreateTemp(s.outDir, "."+name+".tmp-*")
	if err != nil {
		return apperr.WriteFailed(name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.WriteFailed(name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.WriteFailed(name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperr.WriteFailed(name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return apperr.WriteFailed(name, err)
	}
	return nil
}

// WriteJSON encodes v and writes it as the named artifact.
func (s *DirStore) WriteJSON(name string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return apperr.WriteFailed(name, fmt.Errorf("encoding json: %w", err))
	}
	return s.Write(name, data)
}

// Read returns the named artifact.
func (s *DirStore) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.outDir, name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path(name), err)
	}
	return data, nil
}

// ReadJSON decodes the named artifact into v.
func (s *DirStore) ReadJSON(name string, v any) error {
	data, err := s.Read(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", s.Path(name), err)
	}
	return nil
}

// Exists reports whether the named artifact is present.
func (s *DirStore) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.outDir, name))
	return err == nil
}

// Copy replaces dst with the bytes of src.
func (s *DirStore) Copy(src, dst string) error {
	data, err := s.Read(src)
	if err != nil {
		return apperr.WriteFailed(dst, err)
	}
	return s.Write(dst, data)
}

// AppendLog appends one timestamped line to the run log.
func (s *DirStore) AppendLog(line string) error {
	f, err := os.OpenFile(filepath.Join(s.outDir, RunLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.WriteFailed(RunLogName, err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLogLine(s.now(), line)); err != nil {
		return apperr.WriteFailed(RunLogName, err)
	}
	return nil
}
