// Package delegation lends a share of a profile's score to another profile.
package delegation

import (
	"github.com/google/uuid"

	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

// MaxPercent is the largest share a delegator can lend.
const MaxPercent uint8 = 100

// Delegate lends percent of the delegator's total score to target.
//
// The delegator keeps only its most recent delegation: delegated_power is
// overwritten and the delegatee is credited with the increase alone. A
// smaller delegation, or one to a different target, never reduces what a
// delegatee already received. The returned edge records the call.
func Delegate(delegator, delegatee *model.Profile, target model.Identity, percent uint8, now int64) (model.DelegationEdge, error) {
	if percent == 0 || percent > MaxPercent {
		return model.DelegationEdge{}, rules.ErrDelegationTooHigh
	}
	if delegator.Identity == target {
		return model.DelegationEdge{}, rules.ErrSelfDelegation
	}
	if delegatee.Identity != target {
		return model.DelegationEdge{}, rules.ErrProfileMismatch
	}

	power := fixedpoint.MulDiv(delegator.TotalScore, uint64(percent), fixedpoint.Scale)
	prev := delegator.DelegatedPower
	credited := fixedpoint.SatSub(power, prev)

	delegator.DelegatedPower = power
	delegatee.DelegationReceived = fixedpoint.SatAdd(delegatee.DelegationReceived, credited)

	return model.DelegationEdge{
		ID:        uuid.New(),
		Delegator: delegator.Identity,
		Delegatee: target,
		Percent:   percent,
		Power:     power,
		Previous:  prev,
		Credited:  credited,
		At:        now,
	}, nil
}
