package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"commissions/internal/apperr"
	"commissions/internal/config"
	"commissions/internal/logging"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	rw       *sql.DB
	ro       *sql.DB
	path     string
	writable bool
	logger   *slog.Logger
}

var errReadOnly = apperr.Validation("Writable database operations are disabled.")

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// busyPolicy retries whole operations while another process holds the
// SQLite write lock longer than the connection's busy timeout.
type busyPolicy struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
}

var defaultBusyPolicy = busyPolicy{attempts: 5, base: 10 * time.Millisecond, ceiling: 200 * time.Millisecond}

// lockContention reports whether err carries SQLITE_BUSY or SQLITE_LOCKED,
// including their extended codes.
func lockContention(err error) bool {
	var coded interface{ Code() int }
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func (p busyPolicy) backoff(attempt int) time.Duration {
	wait := p.base << attempt
	if wait <= 0 || wait > p.ceiling {
		return p.ceiling
	}
	return wait
}

func (p busyPolicy) do(ctx context.Context, op func() error) error {
	err := op()
	for attempt := 0; err != nil && lockContention(err) && attempt+1 < p.attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = op()
	}
	return err
}

func dsn(path string, busyTimeoutMS int, readOnly bool) string {
	params := []string{fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMS)}
	if readOnly {
		params = append(params, "mode=ro")
	} else {
		params = append(params,
			"_pragma=foreign_keys(1)",
			"_pragma=journal_mode(WAL)",
			"_txlock=immediate",
		)
	}
	return "file:" + filepath.ToSlash(path) + "?" + strings.Join(params, "&")
}

// Open initializes or connects to the catalog database. The schema is created
// on first use.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.DatabasePath
	rw, err := sql.Open("sqlite", dsn(dbPath, cfg.Database.BusyTimeoutMS, false))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := migrate(context.Background(), rw); err != nil {
		_ = rw.Close()
		return nil, err
	}

	ro, err := sql.Open("sqlite", dsn(dbPath, cfg.Database.BusyTimeoutMS, true))
	if err != nil {
		_ = rw.Close()
		return nil, fmt.Errorf("open sqlite db read-only: %w", err)
	}

	return &Store{
		rw:       rw,
		ro:       ro,
		path:     dbPath,
		writable: cfg.Database.Writable,
		logger:   logging.NewComponentLogger(logger, "catalog"),
	}, nil
}

// Close closes both connection pools.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.ro != nil {
		errs = append(errs, s.ro.Close())
	}
	if s.rw != nil {
		errs = append(errs, s.rw.Close())
	}
	return errors.Join(errs...)
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Writable reports whether mutations are allowed.
func (s *Store) Writable() bool {
	return s.writable
}

func (s *Store) ensureWritable() error {
	if !s.writable {
		return errReadOnly
	}
	return nil
}

// withConn acquires one connection for the duration of fn and always
// releases it.
func (s *Store) withConn(ctx context.Context, writable bool, fn func(*sql.Conn) error) error {
	db := s.ro
	if writable {
		db = s.rw
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// withTx runs fn in a write transaction on a scoped connection, retrying the
// whole transaction while SQLite reports the database as busy. Any error
// from fn rolls everything back.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return defaultBusyPolicy.do(ctx, func() error {
		return s.withConn(ctx, true, func(conn *sql.Conn) error {
			tx, err := conn.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin tx: %w", err)
			}
			defer func() { _ = tx.Rollback() }()
			if err := fn(tx); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			return nil
		})
	})
}

// read runs fn on a scoped read-only connection.
func (s *Store) read(ctx context.Context, fn func(*sql.Conn) error) error {
	ctx = ensureContext(ctx)
	return defaultBusyPolicy.do(ctx, func() error {
		return s.withConn(ctx, false, fn)
	})
}

// dbError tags untagged errors as database errors, leaving validation and
// not-found errors raised inside a transaction untouched.
func dbError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.Kind(err) != "internal" {
		return err
	}
	return apperr.Wrap(apperr.ErrDatabase, operation, "", err)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
