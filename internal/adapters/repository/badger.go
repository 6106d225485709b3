package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/okian/realmrep/internal/domain/model"
)

// Key prefixes. Log keys end in a big-endian sequence number so prefix scans
// return entries in append order.
const (
	prefixProfile    = "p/"
	prefixRealm      = "r/"
	prefixEvent      = "e/"
	prefixEventIndex = "ei/"
	prefixReceipt    = "rc/"
	prefixEdge       = "ed/"

	seqKey       = "seq/log"
	seqBandwidth = 256
)

// BadgerStore is a Store on an embedded BadgerDB. Records are JSON values;
// badger's serializable transactions provide the all-or-nothing commit.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore opens (or creates) a BadgerDB in dir.
func NewBadgerStore(dir string, opts ...BadgerOption) (*BadgerStore, error) {
	bo := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2)
	for _, opt := range opts {
		opt(&bo)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badger sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

// Update implements Store. A transaction that loses a write race fails with
// ErrConflict (wrapping badger.ErrConflict) and may be retried.
func (s *BadgerStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, seq: s.seq})
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

// View implements Store.
func (s *BadgerStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// ProfileIDs implements Store.
func (s *BadgerStore) ProfileIDs(ctx context.Context) ([]model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []model.Identity
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixProfile)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, model.Identity(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("release sequence: %w", err)
	}
	return s.db.Close()
}

type badgerTx struct {
	txn *badger.Txn
	seq *badger.Sequence
}

func (tx *badgerTx) get(key string, out any) error {
	item, err := tx.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func (tx *badgerTx) exists(key string) (bool, error) {
	_, err := tx.txn.Get([]byte(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (tx *badgerTx) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.txn.Set([]byte(key), data)
}

// next returns a log key suffix: 8-byte big-endian sequence.
func (tx *badgerTx) next() (string, error) {
	n, err := tx.seq.Next()
	if err != nil {
		return "", err
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return string(b[:]), nil
}

// scan decodes every value under prefix into a fresh T, in key order.
func scan[T any](txn *badger.Txn, prefix string) ([]T, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var out []T
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (tx *badgerTx) Profile(id model.Identity) (*model.Profile, error) {
	var p model.Profile
	if err := tx.get(prefixProfile+string(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (tx *badgerTx) Realm(id model.Identity) (*model.Realm, error) {
	var r model.Realm
	if err := tx.get(prefixRealm+string(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Events reads the per-identity index, whose values are event keys.
func (tx *badgerTx) Events(id model.Identity, limit int) ([]model.InteractionEvent, error) {
	keys, err := scan[string](tx.txn, prefixEventIndex+string(id)+"/")
	if err != nil {
		return nil, err
	}
	keys = tail(keys, limit)
	out := make([]model.InteractionEvent, 0, len(keys))
	for _, k := range keys {
		var ev model.InteractionEvent
		if err := tx.get(k, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (tx *badgerTx) Receipts(owner model.Identity) ([]model.BadgeReceipt, error) {
	return scan[model.BadgeReceipt](tx.txn, prefixReceipt+string(owner)+"/")
}

func (tx *badgerTx) Edges(delegator model.Identity) ([]model.DelegationEdge, error) {
	return scan[model.DelegationEdge](tx.txn, prefixEdge+string(delegator)+"/")
}

func (tx *badgerTx) CreateProfile(p *model.Profile) error {
	key := prefixProfile + string(p.Identity)
	ok, err := tx.exists(key)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyExists
	}
	return tx.set(key, p)
}

func (tx *badgerTx) PutProfile(p *model.Profile) error {
	key := prefixProfile + string(p.Identity)
	ok, err := tx.exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return tx.set(key, p)
}

func (tx *badgerTx) CreateRealm(r *model.Realm) error {
	key := prefixRealm + string(r.Identity)
	ok, err := tx.exists(key)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyExists
	}
	return tx.set(key, r)
}

func (tx *badgerTx) PutRealm(r *model.Realm) error {
	key := prefixRealm + string(r.Identity)
	ok, err := tx.exists(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return tx.set(key, r)
}

func (tx *badgerTx) AppendEvent(ev model.InteractionEvent) error {
	n, err := tx.next()
	if err != nil {
		return err
	}
	key := prefixEvent + n
	if err := tx.set(key, ev); err != nil {
		return err
	}
	if err := tx.set(prefixEventIndex+string(ev.From)+"/"+n, key); err != nil {
		return err
	}
	if ev.To == ev.From {
		return nil
	}
	return tx.set(prefixEventIndex+string(ev.To)+"/"+n, key)
}

func (tx *badgerTx) AddReceipt(rc model.BadgeReceipt) error {
	n, err := tx.next()
	if err != nil {
		return err
	}
	return tx.set(prefixReceipt+string(rc.Owner)+"/"+n, rc)
}

func (tx *badgerTx) AppendEdge(e model.DelegationEdge) error {
	n, err := tx.next()
	if err != nil {
		return err
	}
	return tx.set(prefixEdge+string(e.Delegator)+"/"+n, e)
}
