// Package model contains the reputation records passed between the engine,
// the service layer, and the record store.
package model

import (
	"encoding/hex"
	"fmt"
)

// Identity is an opaque, already-authenticated account key.
// The zero value marks an empty slot.
type Identity string

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool { return id == "" }

// Hash is a 32-byte digest (metadata hashes, badge proofs).
type Hash [32]byte

// MarshalText encodes the hash as lowercase hex.
func (h Hash) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(h)))
	hex.Encode(out, h[:])
	return out, nil
}

// UnmarshalText decodes a hex-encoded hash.
func (h *Hash) UnmarshalText(text []byte) error {
	if hex.DecodedLen(len(text)) != len(h) {
		return fmt.Errorf("hash: want %d hex chars, got %d", 2*len(h), len(text))
	}
	_, err := hex.Decode(h[:], text)
	return err
}

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Category indexes the per-profile category score counters.
type Category uint8

// Score categories, in storage order.
const (
	Development Category = iota
	Governance
	Community
	Innovation
	Security

	CategoryCount = 5
)

var categoryNames = [CategoryCount]string{"development", "governance", "community", "innovation", "security"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}
