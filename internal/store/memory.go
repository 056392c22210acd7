package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"sync"
	"time"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu    sync.Mutex
	files map[string][]byte
	now   func() time.Time
	// FailWrites makes every write return ArtifactWriteFailed.
	FailWrites bool
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{files: map[string][]byte{}, now: time.Now}
}

func (m *MemStore) Path(name string) string {
	return OutputsDirName + "/" + name
}

func (m *MemStore) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return apperr.WriteFailed(name, fs.ErrPermission)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

func (m *MemStore) WriteJSON(name string, v any) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return apperr.WriteFailed(name, err)
	}
	return m.Write(name, data)
}

func (m *MemStore) Read(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", m.Path(name), fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemStore) ReadJSON(name string, v any) error {
	data, err := m.Read(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", m.Path(name), err)
	}
	return nil
}

func (m *MemStore) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}

func (m *MemStore) Copy(src, dst string) error {
	data, err := m.Read(src)
	if err != nil {
		return apperr.WriteFailed(dst, err)
	}
	return m.Write(dst, data)
}

func (m *MemStore) AppendLog(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return apperr.WriteFailed(RunLogName, fs.ErrPermission)
	}
	m.files[RunLogName] = append(m.files[RunLogName], FormatLogLine(m.now(), line)...)
	return nil
}

// Names lists stored artifacts in lexical order.
func (m *MemStore) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
