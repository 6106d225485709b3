// Package badge issues badges into a profile's fixed slot collection.
package badge

import (
	"github.com/google/uuid"

	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

// ScoreBonus is added to the total and to the badge's category on claim.
const ScoreBonus uint64 = 25

// Claim places a badge of the given raw kind on the profile and returns the
// immutable receipt. A kind the profile already holds is rejected.
func Claim(p *model.Profile, rawKind uint8, proof model.Hash, now int64) (model.BadgeReceipt, error) {
	kind, ok := model.ParseBadgeKind(rawKind)
	if !ok {
		return model.BadgeReceipt{}, rules.ErrInvalidBadgeProof
	}
	if p.Badges.Has(kind) {
		return model.BadgeReceipt{}, rules.ErrBadgeAlreadyClaimed
	}

	p.Badges.Place(model.Badge{
		Kind:         kind,
		EarnedAt:     now,
		MetadataHash: proof,
	})

	cat := CategoryForBadge(kind)
	p.TotalScore = fixedpoint.SatAdd(p.TotalScore, ScoreBonus)
	p.CategoryScores[cat] = fixedpoint.SatAdd(p.CategoryScores[cat], ScoreBonus)

	return model.BadgeReceipt{
		ID:        uuid.New(),
		Owner:     p.Identity,
		Kind:      kind,
		ProofHash: proof,
		EarnedAt:  now,
	}, nil
}

// CategoryForBadge maps a badge kind to the category it credits.
func CategoryForBadge(kind model.BadgeKind) model.Category {
	switch kind {
	case model.BadgeDeveloper:
		return model.Development
	case model.BadgeGovernanceParticipant:
		return model.Governance
	case model.BadgeInnovation, model.BadgeAIValidator:
		return model.Innovation
	case model.BadgeSecurityAuditor:
		return model.Security
	default:
		return model.Community
	}
}
