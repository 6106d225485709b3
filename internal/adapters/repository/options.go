package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerOption configures a BadgerStore.
type BadgerOption func(*badger.Options)

// WithInMemory keeps all data in memory; nothing is written to disk.
func WithInMemory() BadgerOption {
	return func(o *badger.Options) {
		*o = o.WithInMemory(true).WithDir("").WithValueDir("")
	}
}

// WithSyncWrites fsyncs every commit.
func WithSyncWrites() BadgerOption {
	return func(o *badger.Options) {
		*o = o.WithSyncWrites(true)
	}
}

// Backend names a Store implementation selectable from configuration.
type Backend string

// Supported backends.
const (
	BackendMemory   Backend = "memory"
	BackendBadger   Backend = "badger"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// sqliteShared lets another process write the same file: writers wait on
// the lock instead of failing with SQLITE_BUSY, and WAL keeps readers off
// the writer's path.
const sqliteShared = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"

// Open builds the Store for backend. dataDir holds the badger directory and
// the sqlite file; databaseURL is the postgres DSN.
func Open(ctx context.Context, backend Backend, dataDir, databaseURL string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger:
		s, err := NewBadgerStore(filepath.Join(dataDir, "badger"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite, BackendPostgres:
		dialect, dsn := DialectPostgres, databaseURL
		if backend == BackendSQLite {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			dialect, dsn = DialectSQLite, filepath.Join(dataDir, "realmrep.db")+sqliteShared
		}
		s, err := OpenSQL(ctx, dialect, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackend, backend)
	}
}
