// Package guard gates interaction recording with cooldown, self-interaction,
// daily-limit and type-permission checks.
package guard

import (
	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

// Permission thresholds by interaction type group.
const (
	cooldownBypassScore uint64 = 1000
	reviewerScore       uint64 = 100
	auditorScore        uint64 = 500
	crossRealmScore     uint64 = 1000
	countWindow         uint32 = 100
)

// Validate runs the checks in order: cooldown, self-interaction, daily limit,
// type permission. The first failing check is returned.
func Validate(from, to *model.Profile, interactionType uint8, now, cooldown int64) error {
	since := fixedpoint.SatSubInt64(now, from.LastActivity)
	if since < cooldown && from.TotalScore <= cooldownBypassScore {
		return rules.ErrCooldownActive
	}

	if from.Identity == to.Identity {
		return rules.ErrSelfInteraction
	}

	if DailyInteractions(from, now) >= fixedpoint.DailyLimit(from.TotalScore) {
		return rules.ErrDailyLimitExceeded
	}

	return checkPermission(from, interactionType)
}

// DailyInteractions approximates the interactions of the current day: zero
// after a full idle day, otherwise interaction_count mod 100. It is not a
// rolling 24h window.
func DailyInteractions(p *model.Profile, now int64) uint32 {
	if fixedpoint.SatSubInt64(now, p.LastActivity) > fixedpoint.Day {
		return 0
	}
	return p.InteractionCount % countWindow
}

func checkPermission(p *model.Profile, interactionType uint8) error {
	switch {
	case interactionType <= 2:
		return nil
	case interactionType <= 5:
		if p.TotalScore < reviewerScore {
			return rules.ErrInsufficientReputation
		}
		return nil
	case interactionType <= 8:
		if p.TotalScore < auditorScore {
			return rules.ErrInsufficientReputation
		}
		return nil
	case interactionType == fixedpoint.MaxInteraction:
		if p.TotalScore < crossRealmScore || p.CrossDAOReputation == 0 {
			return rules.ErrInsufficientReputation
		}
		return nil
	default:
		return rules.ErrInvalidInteractionType
	}
}

// DynamicCooldown scales a base cooldown by recent frequency and relieves
// high-reputation actors:
//
//	base * frequency_penalty * reputation_factor / 10000
//
// It is never applied implicitly; callers invoke it explicitly.
func DynamicCooldown(base int64, recent uint32, reputation uint64) int64 {
	var repFactor int64
	switch {
	case reputation > 1000:
		repFactor = 50
	case reputation > 500:
		repFactor = 75
	default:
		repFactor = 100
	}

	var freqPenalty int64
	switch {
	case recent <= 5:
		freqPenalty = 100
	case recent <= 15:
		freqPenalty = 150
	case recent <= 30:
		freqPenalty = 200
	default:
		freqPenalty = 300
	}

	return base * freqPenalty * repFactor / 10_000
}
