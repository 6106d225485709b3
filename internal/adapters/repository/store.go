// Package repository persists profiles, realms and their append-only logs.
//
// Every backend runs a transition inside Update: the callback sees a Tx, and
// either all of its writes are committed or none are.
package repository

import (
	"context"

	"github.com/okian/realmrep/internal/domain/model"
)

// Reader exposes the read side of a transaction. Returned records are copies;
// mutating them has no effect until written back through a Tx.
type Reader interface {
	// Profile returns the profile for id or ErrNotFound.
	Profile(id model.Identity) (*model.Profile, error)
	// Realm returns the realm for id or ErrNotFound.
	Realm(id model.Identity) (*model.Realm, error)
	// Events returns the last limit interaction events sent or received by
	// id, oldest first. A non-positive limit returns all of them.
	Events(id model.Identity, limit int) ([]model.InteractionEvent, error)
	// Receipts returns the badge receipts issued to owner, oldest first.
	Receipts(owner model.Identity) ([]model.BadgeReceipt, error)
	// Edges returns the delegation edges recorded for delegator, oldest first.
	Edges(delegator model.Identity) ([]model.DelegationEdge, error)
}

// Tx is a read-write transaction.
type Tx interface {
	Reader

	// CreateProfile stores a new profile or fails with ErrAlreadyExists.
	CreateProfile(p *model.Profile) error
	// PutProfile overwrites an existing profile or fails with ErrNotFound.
	PutProfile(p *model.Profile) error
	// CreateRealm stores a new realm or fails with ErrAlreadyExists.
	CreateRealm(r *model.Realm) error
	// PutRealm overwrites an existing realm or fails with ErrNotFound.
	PutRealm(r *model.Realm) error

	// AppendEvent appends to the interaction log.
	AppendEvent(ev model.InteractionEvent) error
	// AddReceipt stores a badge receipt; receipts are never updated.
	AddReceipt(rc model.BadgeReceipt) error
	// AppendEdge appends to the delegation audit log.
	AppendEdge(e model.DelegationEdge) error
}

// Store is a transactional record store.
type Store interface {
	// Update runs fn in a read-write transaction and commits when fn returns
	// nil. Any error discards every write made through the Tx.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn against a consistent snapshot.
	View(ctx context.Context, fn func(Reader) error) error
	// ProfileIDs lists every stored profile identity in ascending order.
	ProfileIDs(ctx context.Context) ([]model.Identity, error)
	// Close releases the backend.
	Close() error
}

// tail returns the last limit elements of xs.
func tail[T any](xs []T, limit int) []T {
	if limit > 0 && len(xs) > limit {
		return xs[len(xs)-limit:]
	}
	return xs
}
