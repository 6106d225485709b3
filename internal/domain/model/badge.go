package model

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxBadges is the fixed number of badge slots on a profile.
const MaxBadges = 10

// BadgeKind enumerates the badges a profile can hold. BadgeNone marks an
// empty slot.
type BadgeKind uint8

// Badge kinds, in wire order.
const (
	BadgeNone BadgeKind = iota
	BadgeDeveloper
	BadgeGovernanceParticipant
	BadgeCommunityBuilder
	BadgeSecurityAuditor
	BadgeInnovation
	BadgeMentor
	BadgeEarlyAdopter
	BadgeCrossChainBridge
	BadgeAIValidator
	BadgeCustom

	badgeKindCount
)

var badgeNames = [badgeKindCount]string{
	"none", "developer", "governance_participant", "community_builder",
	"security_auditor", "innovation", "mentor", "early_adopter",
	"cross_chain_bridge", "ai_validator", "custom",
}

// ParseBadgeKind maps a raw badge code to a kind.
func ParseBadgeKind(v uint8) (BadgeKind, bool) {
	if v >= uint8(badgeKindCount) {
		return BadgeNone, false
	}
	return BadgeKind(v), true
}

func (k BadgeKind) String() string {
	if k < badgeKindCount {
		return badgeNames[k]
	}
	return fmt.Sprintf("badge(%d)", uint8(k))
}

// Badge is a badge held in one of a profile's slots.
type Badge struct {
	Kind         BadgeKind `json:"kind"`
	EarnedAt     int64     `json:"earned_at"`
	IssuerRealm  Identity  `json:"issuer_realm,omitempty"`
	MetadataHash Hash      `json:"metadata_hash"`
}

// BadgeSlots is the fixed-capacity ordered badge collection of a profile.
type BadgeSlots [MaxBadges]Badge

// Has reports whether any slot holds a badge of kind k.
func (s *BadgeSlots) Has(k BadgeKind) bool {
	for i := range s {
		if s[i].Kind == k {
			return true
		}
	}
	return false
}

// Place stores b in the first empty slot. When every slot is taken the last
// slot is overwritten; this is a fixed policy, not LRU eviction.
// It returns the slot index used.
func (s *BadgeSlots) Place(b Badge) int {
	for i := range s {
		if s[i].Kind == BadgeNone {
			s[i] = b
			return i
		}
	}
	s[MaxBadges-1] = b
	return MaxBadges - 1
}

// Count returns the number of occupied slots.
func (s *BadgeSlots) Count() int {
	n := 0
	for i := range s {
		if s[i].Kind != BadgeNone {
			n++
		}
	}
	return n
}

// BadgeReceipt is the immutable proof record written once per claim.
type BadgeReceipt struct {
	ID        uuid.UUID `json:"id"`
	Owner     Identity  `json:"owner"`
	Kind      BadgeKind `json:"kind"`
	ProofHash Hash      `json:"proof_hash"`
	EarnedAt  int64     `json:"earned_at"`
}
