// Package decay erodes the scores of idle profiles.
package decay

import (
	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
)

// GraceDays is the idle period, in whole days, before decay starts.
const GraceDays = 7

// rateWindow converts a percent-per-30-days rate into a per-day divisor.
const rateWindow = fixedpoint.Scale * 30

// Result reports what one decay pass removed.
type Result struct {
	// Days is the whole idle days since last_activity.
	Days int64
	// Charged is how many of those days this pass decayed for.
	Charged    int64
	TotalDelta uint64
}

// Applied reports whether the pass removed any points.
func (r Result) Applied() bool { return r.TotalDelta > 0 }

// Advanced reports whether the pass charged new idle days and so changed
// the profile's decay bookkeeping.
func (r Result) Advanced() bool { return r.Charged > 0 }

// Apply decays total_score and every category score by
// floor(x * rate * days / 3000), where days are the idle days since
// last_activity not yet charged by an earlier pass. It is a no-op within the
// grace period and when no new whole day has passed, so calling it again at
// the same time changes nothing. last_activity is left untouched.
func Apply(p *model.Profile, now int64) Result {
	days := max(fixedpoint.SatSubInt64(now, p.LastActivity)/fixedpoint.Day, 0)
	if days <= GraceDays {
		return Result{Days: days}
	}

	charged := p.DecayedDays
	if p.DecayAnchor != p.LastActivity {
		charged = 0
	}
	if days <= charged {
		return Result{Days: days}
	}
	step := days - charged

	rate := uint64(p.DecayRate)
	amount := func(x uint64) uint64 {
		return fixedpoint.SatMul(fixedpoint.SatMul(x, rate), uint64(step)) / rateWindow
	}

	before := p.TotalScore
	p.TotalScore = fixedpoint.SatSub(p.TotalScore, amount(p.TotalScore))
	for i := range p.CategoryScores {
		p.CategoryScores[i] = fixedpoint.SatSub(p.CategoryScores[i], amount(p.CategoryScores[i]))
	}
	p.DecayAnchor = p.LastActivity
	p.DecayedDays = days
	return Result{Days: days, Charged: step, TotalDelta: before - p.TotalScore}
}
