package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/realmrep/internal/domain/model"
)

// MemoryStore is an in-process Store. Update holds a single writer lock and
// stages writes in the transaction until fn succeeds.
type MemoryStore struct {
	mu       sync.RWMutex
	closed   bool
	profiles map[model.Identity]*model.Profile
	realms   map[model.Identity]*model.Realm
	events   []model.InteractionEvent
	receipts []model.BadgeReceipt
	edges    []model.DelegationEdge
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[model.Identity]*model.Profile),
		realms:   make(map[model.Identity]*model.Realm),
	}
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx := &memTx{
		s:        s,
		profiles: make(map[model.Identity]*model.Profile),
		realms:   make(map[model.Identity]*model.Realm),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View implements Store.
func (s *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&memTx{s: s})
}

// ProfileIDs implements Store.
func (s *MemoryStore) ProfileIDs(ctx context.Context) ([]model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	ids := make([]model.Identity, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// memTx overlays staged writes on the committed state. A View transaction
// has nil staging maps and never writes.
type memTx struct {
	s        *MemoryStore
	profiles map[model.Identity]*model.Profile
	realms   map[model.Identity]*model.Realm
	events   []model.InteractionEvent
	receipts []model.BadgeReceipt
	edges    []model.DelegationEdge
}

func (tx *memTx) profile(id model.Identity) (*model.Profile, bool) {
	if p, ok := tx.profiles[id]; ok {
		return p, true
	}
	p, ok := tx.s.profiles[id]
	return p, ok
}

func (tx *memTx) realm(id model.Identity) (*model.Realm, bool) {
	if r, ok := tx.realms[id]; ok {
		return r, true
	}
	r, ok := tx.s.realms[id]
	return r, ok
}

func (tx *memTx) Profile(id model.Identity) (*model.Profile, error) {
	p, ok := tx.profile(id)
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (tx *memTx) Realm(id model.Identity) (*model.Realm, error) {
	r, ok := tx.realm(id)
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (tx *memTx) Events(id model.Identity, limit int) ([]model.InteractionEvent, error) {
	var out []model.InteractionEvent
	for _, log := range [][]model.InteractionEvent{tx.s.events, tx.events} {
		for _, ev := range log {
			if ev.From == id || ev.To == id {
				out = append(out, ev)
			}
		}
	}
	return tail(out, limit), nil
}

func (tx *memTx) Receipts(owner model.Identity) ([]model.BadgeReceipt, error) {
	var out []model.BadgeReceipt
	for _, log := range [][]model.BadgeReceipt{tx.s.receipts, tx.receipts} {
		for _, rc := range log {
			if rc.Owner == owner {
				out = append(out, rc)
			}
		}
	}
	return out, nil
}

func (tx *memTx) Edges(delegator model.Identity) ([]model.DelegationEdge, error) {
	var out []model.DelegationEdge
	for _, log := range [][]model.DelegationEdge{tx.s.edges, tx.edges} {
		for _, e := range log {
			if e.Delegator == delegator {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (tx *memTx) CreateProfile(p *model.Profile) error {
	if _, ok := tx.profile(p.Identity); ok {
		return ErrAlreadyExists
	}
	tx.profiles[p.Identity] = p.Clone()
	return nil
}

func (tx *memTx) PutProfile(p *model.Profile) error {
	if _, ok := tx.profile(p.Identity); !ok {
		return ErrNotFound
	}
	tx.profiles[p.Identity] = p.Clone()
	return nil
}

func (tx *memTx) CreateRealm(r *model.Realm) error {
	if _, ok := tx.realm(r.Identity); ok {
		return ErrAlreadyExists
	}
	tx.realms[r.Identity] = r.Clone()
	return nil
}

func (tx *memTx) PutRealm(r *model.Realm) error {
	if _, ok := tx.realm(r.Identity); !ok {
		return ErrNotFound
	}
	tx.realms[r.Identity] = r.Clone()
	return nil
}

func (tx *memTx) AppendEvent(ev model.InteractionEvent) error {
	tx.events = append(tx.events, ev)
	return nil
}

func (tx *memTx) AddReceipt(rc model.BadgeReceipt) error {
	tx.receipts = append(tx.receipts, rc)
	return nil
}

func (tx *memTx) AppendEdge(e model.DelegationEdge) error {
	tx.edges = append(tx.edges, e)
	return nil
}

func (tx *memTx) commit() {
	for id, p := range tx.profiles {
		tx.s.profiles[id] = p
	}
	for id, r := range tx.realms {
		tx.s.realms[id] = r
	}
	tx.s.events = append(tx.s.events, tx.events...)
	tx.s.receipts = append(tx.s.receipts, tx.receipts...)
	tx.s.edges = append(tx.s.edges, tx.edges...)
}
