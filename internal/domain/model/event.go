package model

import "github.com/google/uuid"

// InteractionEvent is the append-only log record of one recorded interaction.
type InteractionEvent struct {
	ID              uuid.UUID `json:"id"`
	From            Identity  `json:"from"`
	To              Identity  `json:"to"`
	Type            uint8     `json:"type"`
	Weight          uint16    `json:"weight"`
	MetadataHash    Hash      `json:"metadata_hash"`
	ReputationDelta uint64    `json:"reputation_delta"`
	Timestamp       int64     `json:"timestamp"`
}

// DelegationEdge records one delegation as an explicit directed relation.
// Score bookkeeping still uses the profile scalars; edges are an audit trail.
type DelegationEdge struct {
	ID        uuid.UUID `json:"id"`
	Delegator Identity  `json:"delegator"`
	Delegatee Identity  `json:"delegatee"`
	Percent   uint8     `json:"percent"`
	Power     uint64    `json:"power"`
	Previous  uint64    `json:"previous"`
	Credited  uint64    `json:"credited"`
	At        int64     `json:"at"`
}
