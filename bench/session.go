// Package bench is the execution context of a campaign: it owns the output
// directory and the done ledger, and tells the caller which records are
// still pending.
package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/perfgo/benchcamp/artifact"
	"github.com/perfgo/benchcamp/ledger"
	"github.com/perfgo/benchcamp/model"
)

// ErrLedger marks failures of the done ledger. They are fatal to a session:
// continuing would silently lose resumability.
var ErrLedger = errors.New("ledger failure")

// Options configure a session.
type Options struct {
	// Dir is the campaign output directory. It is created if missing.
	Dir string
	// Resume keeps the existing ledger. When false the ledger is reset and
	// every record is pending.
	Resume bool
	// Backend selects the ledger implementation, see ledger.Open.
	Backend string
	Logger  zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is an open campaign.
type Session struct {
	logger zerolog.Logger
	dir    string
	key    []string
	now    func() time.Time

	ledger ledger.Ledger
	tests  map[string]bool
	done   map[string]bool
	closed bool
}

// Open starts or resumes a campaign over tests. It returns the session and
// the records not yet marked done, in their original order. Every key
// dimension must be present in every record, and identities must be unique.
func Open(ctx context.Context, tests []model.Record, key []string, opts Options) (*Session, []model.Record, error) {
	idents := make(map[string]bool, len(tests))
	for _, r := range tests {
		if _, err := r.Key(key); err != nil {
			return nil, nil, err
		}
		id := r.Identity()
		if idents[id] {
			return nil, nil, model.Configf("matrix", "duplicate record identity %q", id)
		}
		idents[id] = true
	}
	if opts.Dir == "" {
		return nil, nil, model.Configf("out-dir", "output directory must be set")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory %s: %w", opts.Dir, err)
	}

	l, err := ledger.Open(ctx, opts.Logger, opts.Backend, opts.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLedger, err)
	}

	s := &Session{
		logger: opts.Logger,
		dir:    opts.Dir,
		key:    append([]string(nil), key...),
		now:    opts.Now,
		ledger: l,
		tests:  idents,
		done:   map[string]bool{},
	}

	if opts.Resume {
		entries, err := l.Load(ctx)
		if err != nil {
			l.Close()
			return nil, nil, fmt.Errorf("%w: %w", ErrLedger, err)
		}
		for id := range ledger.Set(entries) {
			if idents[id] {
				s.done[id] = true
			} else {
				s.logger.Debug().Str("id", id).Msg("Ignoring ledger entry for record outside this campaign")
			}
		}
	} else if err := l.Reset(ctx); err != nil {
		l.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrLedger, err)
	}

	pending := make([]model.Record, 0, len(tests)-len(s.done))
	for _, r := range tests {
		if !s.done[r.Identity()] {
			pending = append(pending, r)
		}
	}

	s.logger.Info().
		Str("dir", opts.Dir).
		Bool("resume", opts.Resume).
		Int("records", len(tests)).
		Int("done", len(s.done)).
		Int("pending", len(pending)).
		Msg("Opened campaign")
	return s, pending, nil
}

// Done durably marks r as completed. Marking a record twice is a no-op.
func (s *Session) Done(ctx context.Context, r model.Record) error {
	if s.closed {
		return fmt.Errorf("session for %s is closed", s.dir)
	}
	id := r.Identity()
	if !s.tests[id] {
		return fmt.Errorf("record %s is not part of this campaign", id)
	}
	if s.done[id] {
		return nil
	}
	if err := s.ledger.Append(ctx, ledger.Entry{ID: id, DoneAt: s.now()}); err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}
	s.done[id] = true
	s.logger.Debug().Str("id", id).Msg("Marked record done")
	return nil
}

// IsDone reports whether r has been marked done in this or a previous run.
func (s *Session) IsDone(r model.Record) bool {
	return s.done[r.Identity()]
}

// Completed is the number of records marked done.
func (s *Session) Completed() int {
	return len(s.done)
}

// Dir is the campaign output directory.
func (s *Session) Dir() string {
	return s.dir
}

// Key is the reconfiguration key the session was opened with.
func (s *Session) Key() []string {
	return append([]string(nil), s.key...)
}

// OutputPath is the artifact path of one repetition of r.
func (s *Session) OutputPath(r model.Record, rep int, ext string) string {
	return artifact.Path(s.dir, r, rep, ext)
}

// Close finalizes the ledger. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.ledger.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrLedger, err)
	}
	s.logger.Info().Str("dir", s.dir).Int("done", len(s.done)).Msg("Closed campaign")
	return nil
}
