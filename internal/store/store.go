// Package store implements the Output Store: the directory through which pipeline
// stages exchange artifacts. Stages never share in-process state; each one reads the
// files an earlier stage wrote.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aktagon/content-pipeline/internal/apperr"
)

// OutputsDirName is the directory created under the base directory.
const OutputsDirName = "outputs"

// RunLogName is the append-only run log artifact.
const RunLogName = "run_log.txt"

// Store reads and writes named artifacts. Writes replace the whole artifact.
type Store interface {
	Write(name string, data []byte) error
	WriteJSON(name string, v any) error
	Read(name string) ([]byte, error)
	ReadJSON(name string, v any) error
	Exists(name string) bool
	Copy(src, dst string) error
	AppendLog(line string) error
	// Path returns the artifact location as reported to consumers.
	Path(name string) string
}

// Ensure creates baseDir/outputs when absent and returns its path.
func Ensure(baseDir string) (string, error) {
	out := filepath.Join(baseDir, OutputsDirName)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", apperr.WriteFailed(out, err)
	}
	return out, nil
}

// MarshalJSON encodes v the way every JSON artifact is written: two-space indent,
// UTF-8 kept as is, no HTML escaping.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// FormatLogLine renders a run log entry.
func FormatLogLine(ts time.Time, line string) string {
	return fmt.Sprintf("[%sZ] %s\n", ts.UTC().Format("2006-01-02T15:04:05.000000"), line)
}
