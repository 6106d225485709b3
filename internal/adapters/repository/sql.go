package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/okian/realmrep/internal/domain/model"
)

// Dialect names a supported SQL backend. Its value is the database/sql
// driver name.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

// migrations returns the schema statements, executed one at a time.
// Records are stored as JSON documents; uint64 scores do not fit a signed
// BIGINT column.
func (d Dialect) migrations() []string {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == DialectPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			identity TEXT PRIMARY KEY,
			data     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS realms (
			identity TEXT PRIMARY KEY,
			data     TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interaction_events (
			` + seq + `,
			id        TEXT NOT NULL UNIQUE,
			from_id   TEXT NOT NULL,
			to_id     TEXT NOT NULL,
			data      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_from ON interaction_events(from_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_events_to ON interaction_events(to_id, seq)`,
		`CREATE TABLE IF NOT EXISTS badge_receipts (
			` + seq + `,
			id    TEXT NOT NULL UNIQUE,
			owner TEXT NOT NULL,
			data  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_receipts_owner ON badge_receipts(owner, seq)`,
		`CREATE TABLE IF NOT EXISTS delegation_edges (
			` + seq + `,
			id        TEXT NOT NULL UNIQUE,
			delegator TEXT NOT NULL,
			data      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_delegator ON delegation_edges(delegator, seq)`,
	}
}

// rebind rewrites ? placeholders into $N for postgres.
func (d Dialect) rebind(q string) string {
	if d != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lockSuffix locks selected rows for the rest of a write transaction.
func (d Dialect) lockSuffix(write bool) string {
	if write && d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// SQLStore is a Store on database/sql, backed by SQLite or PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens dsn with the dialect's driver and applies the schema.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackend, dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one writer at a time; concurrent sqlite writers fail with SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Update implements Store.
func (s *SQLStore) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, true, func(tx *sqlTx) error { return fn(tx) })
}

// View implements Store.
func (s *SQLStore) View(ctx context.Context, fn func(Reader) error) error {
	return s.run(ctx, false, func(tx *sqlTx) error { return fn(tx) })
}

func (s *SQLStore) run(ctx context.Context, write bool, fn func(*sqlTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&sqlTx{ctx: ctx, tx: tx, d: s.dialect, write: write}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if !write {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ProfileIDs implements Store.
func (s *SQLStore) ProfileIDs(ctx context.Context) ([]model.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var ids []model.Identity
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, model.Identity(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// byte order regardless of the database collation
	slices.Sort(ids)
	return ids, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	ctx   context.Context
	tx    *sql.Tx
	d     Dialect
	write bool
}

func (t *sqlTx) exec(q string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, t.d.rebind(q), args...)
}

func (t *sqlTx) getDoc(q string, out any, args ...any) error {
	var data string
	err := t.tx.QueryRowContext(t.ctx, t.d.rebind(q+t.d.lockSuffix(t.write)), args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), out)
}

// docs decodes the data column of every row, in query order.
func docs[T any](t *sqlTx, q string, args ...any) ([]T, error) {
	rows, err := t.tx.QueryContext(t.ctx, t.d.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *sqlTx) Profile(id model.Identity) (*model.Profile, error) {
	var p model.Profile
	if err := t.getDoc(`SELECT data FROM profiles WHERE identity = ?`, &p, string(id)); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *sqlTx) Realm(id model.Identity) (*model.Realm, error) {
	var r model.Realm
	if err := t.getDoc(`SELECT data FROM realms WHERE identity = ?`, &r, string(id)); err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *sqlTx) Events(id model.Identity, limit int) ([]model.InteractionEvent, error) {
	evs, err := docs[model.InteractionEvent](t,
		`SELECT data FROM interaction_events WHERE from_id = ? OR to_id = ? ORDER BY seq`,
		string(id), string(id))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return tail(evs, limit), nil
}

func (t *sqlTx) Receipts(owner model.Identity) ([]model.BadgeReceipt, error) {
	return docs[model.BadgeReceipt](t,
		`SELECT data FROM badge_receipts WHERE owner = ? ORDER BY seq`, string(owner))
}

func (t *sqlTx) Edges(delegator model.Identity) ([]model.DelegationEdge, error) {
	return docs[model.DelegationEdge](t,
		`SELECT data FROM delegation_edges WHERE delegator = ? ORDER BY seq`, string(delegator))
}

func (t *sqlTx) insertDoc(q, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res, err := t.exec(q, key, string(data))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (t *sqlTx) updateDoc(q, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res, err := t.exec(q, string(data), key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *sqlTx) CreateProfile(p *model.Profile) error {
	return t.insertDoc(`INSERT INTO profiles (identity, data) VALUES (?, ?) ON CONFLICT (identity) DO NOTHING`,
		string(p.Identity), p)
}

func (t *sqlTx) PutProfile(p *model.Profile) error {
	return t.updateDoc(`UPDATE profiles SET data = ? WHERE identity = ?`, string(p.Identity), p)
}

func (t *sqlTx) CreateRealm(r *model.Realm) error {
	return t.insertDoc(`INSERT INTO realms (identity, data) VALUES (?, ?) ON CONFLICT (identity) DO NOTHING`,
		string(r.Identity), r)
}

func (t *sqlTx) PutRealm(r *model.Realm) error {
	return t.updateDoc(`UPDATE realms SET data = ? WHERE identity = ?`, string(r.Identity), r)
}

func (t *sqlTx) AppendEvent(ev model.InteractionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = t.exec(`INSERT INTO interaction_events (id, from_id, to_id, data) VALUES (?, ?, ?, ?)`,
		ev.ID.String(), string(ev.From), string(ev.To), string(data))
	return err
}

func (t *sqlTx) AddReceipt(rc model.BadgeReceipt) error {
	data, err := json.Marshal(rc)
	if err != nil {
		return err
	}
	_, err = t.exec(`INSERT INTO badge_receipts (id, owner, data) VALUES (?, ?, ?)`,
		rc.ID.String(), string(rc.Owner), string(data))
	return err
}

func (t *sqlTx) AppendEdge(e model.DelegationEdge) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = t.exec(`INSERT INTO delegation_edges (id, delegator, data) VALUES (?, ?, ?)`,
		e.ID.String(), string(e.Delegator), string(data))
	return err
}
