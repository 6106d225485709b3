package fixedpoint

// Score tier boundaries (inclusive upper bounds).
const (
	TierNovice      uint64 = 100
	TierMember      uint64 = 500
	TierTrusted     uint64 = 1000
	TierExpert      uint64 = 5000
	InteractionCap  uint64 = 200
	MaxInteraction  uint8  = 9
	aiHighThreshold uint32 = 800
	aiMidThreshold  uint32 = 500
)

var baseDeltas = [...]uint64{10, 5, 15, 25, 50, 30, 40, 75, 60, 20}

// BaseDelta returns the base reputation delta for an interaction type.
func BaseDelta(interactionType uint8) (uint64, bool) {
	if int(interactionType) >= len(baseDeltas) {
		return 0, false
	}
	return baseDeltas[interactionType], true
}

// Cooldown returns the cooldown in seconds for an interaction type group.
func Cooldown(interactionType uint8) (int64, bool) {
	switch {
	case interactionType <= 2:
		return 300, true
	case interactionType <= 6:
		return 1800, true
	case interactionType <= MaxInteraction:
		return 7200, true
	default:
		return 0, false
	}
}

// InfluenceMultiplier scales a giver's impact by their own score.
func InfluenceMultiplier(score uint64) uint64 {
	switch {
	case score <= TierNovice:
		return 80
	case score <= TierMember:
		return 100
	case score <= TierTrusted:
		return 120
	case score <= TierExpert:
		return 140
	default:
		return 160
	}
}

// ResistanceFactor dampens gains for receivers that already rank high.
func ResistanceFactor(score uint64) uint64 {
	switch {
	case score <= TierNovice:
		return 80
	case score <= TierMember:
		return 100
	case score <= TierTrusted:
		return 120
	case score <= TierExpert:
		return 140
	default:
		return 180
	}
}

// ActivityBonus rewards givers that were recently active. A negative
// elapsed time falls through to the idle tier.
func ActivityBonus(elapsed int64) uint64 {
	switch {
	case elapsed < 0:
		return 85
	case elapsed <= Hour:
		return 110
	case elapsed <= Day:
		return 105
	case elapsed <= Week:
		return 100
	case elapsed <= Month:
		return 95
	default:
		return 85
	}
}

// AIMultiplier maps an ai_validation_score to a percentage bonus.
func AIMultiplier(aiScore uint32) uint64 {
	switch {
	case aiScore > aiHighThreshold:
		return 110
	case aiScore > aiMidThreshold:
		return 105
	default:
		return 100
	}
}

// DailyLimit is the number of interactions allowed per day for a score.
func DailyLimit(score uint64) uint32 {
	switch {
	case score <= TierNovice:
		return 5
	case score <= TierMember:
		return 15
	case score <= TierTrusted:
		return 30
	case score <= TierExpert:
		return 50
	default:
		return 100
	}
}
