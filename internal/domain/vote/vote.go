// Package vote rewards governance participation.
package vote

import (
	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

// MaxJustificationLen bounds the free-text justification of a vote.
const MaxJustificationLen = 280

// thresholdCap caps the realm threshold a voter has to meet.
const thresholdCap uint64 = 100

// Increment returns the governance reward for a vote type.
func Increment(voteType uint8) (uint64, bool) {
	switch voteType {
	case 0:
		return 5, true
	case 1, 2:
		return 15, true
	default:
		return 0, false
	}
}

// Cast credits a reputation vote to the voter's total and governance score.
func Cast(p *model.Profile, realm *model.Realm, voteType uint8, justification string) (uint64, error) {
	if len(justification) > MaxJustificationLen {
		return 0, rules.ErrMetadataTooLong
	}
	if p.TotalScore < min(realm.MinReputationThreshold, thresholdCap) {
		return 0, rules.ErrInsufficientReputation
	}
	inc, ok := Increment(voteType)
	if !ok {
		return 0, rules.ErrInvalidActionType
	}

	p.TotalScore = fixedpoint.SatAdd(p.TotalScore, inc)
	p.CategoryScores[model.Governance] = fixedpoint.SatAdd(p.CategoryScores[model.Governance], inc)
	return inc, nil
}
