// Package ledger persists which test records of a campaign are done.
//
// A ledger is append-only while a campaign runs. Every Append is durable
// before it returns, so a crash never loses a completed record and never
// leaves a half-written entry behind.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one completed record.
type Entry struct {
	ID     string    `json:"id"`
	DoneAt time.Time `json:"done_at"`
}

// Ledger is a durable set of completed record identities.
type Ledger interface {
	// Load returns every entry in append order.
	Load(ctx context.Context) ([]Entry, error)
	// Append durably records id. Appending an id twice is allowed; readers
	// treat the ledger as a set.
	Append(ctx context.Context, e Entry) error
	// Reset drops every entry.
	Reset(ctx context.Context) error
	Close() error
}

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open opens the ledger of the given backend inside the campaign directory.
// An empty backend selects the file ledger.
func Open(ctx context.Context, logger zerolog.Logger, backend, dir string) (Ledger, error) {
	switch backend {
	case "", BackendFile:
		return OpenFile(logger, FilePath(dir))
	case BackendSQLite:
		return OpenSQLite(ctx, SQLitePath(dir))
	default:
		return nil, fmt.Errorf("unknown ledger backend %q (want %q or %q)", backend, BackendFile, BackendSQLite)
	}
}

// Read returns the entries of the campaign's ledger without creating,
// repairing or locking it, so it is safe next to a running campaign.
func Read(ctx context.Context, backend, dir string) ([]Entry, error) {
	switch backend {
	case "", BackendFile:
		return ReadFile(FilePath(dir))
	case BackendSQLite:
		return ReadSQLite(ctx, SQLitePath(dir))
	default:
		return nil, fmt.Errorf("unknown ledger backend %q (want %q or %q)", backend, BackendFile, BackendSQLite)
	}
}

// Set collapses entries into the set of identities.
func Set(entries []Entry) map[string]bool {
	done := make(map[string]bool, len(entries))
	for _, e := range entries {
		done[e.ID] = true
	}
	return done
}
