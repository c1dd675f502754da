package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileName is the name of the file ledger inside a campaign directory.
const FileName = "done.jsonl"

// FilePath returns the file ledger location for a campaign directory.
func FilePath(dir string) string {
	return filepath.Join(dir, FileName)
}

// File is a ledger stored as one JSON object per line. Each append is
// written with a single write call and synced before returning.
type File struct {
	logger zerolog.Logger
	path   string
	f      *os.File
}

// OpenFile opens or creates the ledger at path.
func OpenFile(logger zerolog.Logger, path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	return &File{logger: logger, path: path, f: f}, nil
}

// Load reads all entries. A trailing line without a newline is the remains
// of an append interrupted by a crash: it was never acknowledged, so it is
// dropped and truncated away. A malformed complete line is an error.
func (l *File) Load(ctx context.Context) ([]Entry, error) {
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek ledger %s: %w", l.path, err)
	}
	data, err := io.ReadAll(l.f)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", l.path, err)
	}

	entries, complete, err := parseLines(l.path, data)
	if err != nil {
		return nil, err
	}
	if complete < len(data) {
		l.logger.Warn().
			Str("path", l.path).
			Int("bytes", len(data)-complete).
			Msg("Dropping incomplete trailing ledger entry")
		if err := l.f.Truncate(int64(complete)); err != nil {
			return nil, fmt.Errorf("failed to truncate ledger %s: %w", l.path, err)
		}
		if err := l.f.Sync(); err != nil {
			return nil, fmt.Errorf("failed to sync ledger %s: %w", l.path, err)
		}
	}
	return entries, nil
}

// ReadFile returns the entries of the ledger at path without opening it for
// writing. A missing file holds no entries and an incomplete trailing line
// is skipped but left in place.
func ReadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	entries, _, err := parseLines(path, data)
	return entries, err
}

// parseLines decodes every newline-terminated entry of data and returns the
// length of that complete prefix.
func parseLines(path string, data []byte) ([]Entry, int, error) {
	complete := bytes.LastIndexByte(data, '\n') + 1

	var entries []Entry
	for i, line := range bytes.Split(data[:complete], []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil || e.ID == "" {
			return nil, 0, fmt.Errorf("corrupt ledger %s at line %d: %q", path, i+1, line)
		}
		entries = append(entries, e)
	}
	return entries, complete, nil
}

// Append writes e and syncs the file.
func (l *File) Append(ctx context.Context, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}
	line = append(line, '\n')
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("failed to append to ledger %s: %w", l.path, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger %s: %w", l.path, err)
	}
	return nil
}

// Reset truncates the ledger.
func (l *File) Reset(ctx context.Context) error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to reset ledger %s: %w", l.path, err)
	}
	return l.f.Sync()
}

func (l *File) Close() error {
	if err := l.f.Sync(); err != nil {
		l.f.Close()
		return fmt.Errorf("failed to sync ledger %s: %w", l.path, err)
	}
	return l.f.Close()
}
