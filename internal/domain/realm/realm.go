// Package realm creates realms, maintains their scoring algorithm and gates
// realm-scoped actions.
package realm

import (
	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

// Action is a realm-scoped action checked by Authorize.
type Action uint8

// Realm actions.
const (
	ActionVote Action = iota
	ActionPropose
	ActionAdmin
)

// Create builds a new realm with the creator as its sole admin. The weights
// must sum to a positive value.
func Create(creator model.Identity, name string, weights [model.CategoryCount]uint16, now int64) (*model.Realm, error) {
	if len(name) > model.MaxRealmNameBytes {
		return nil, rules.ErrRealmNameTooLong
	}
	var total uint64
	for _, w := range weights {
		total += uint64(w)
	}
	if total == 0 {
		return nil, rules.ErrInvalidAlgorithmWeight
	}

	return &model.Realm{
		Identity: model.RealmIdentity(name),
		Name:     name,
		Admins:   [model.MaxRealmAdmins]model.Identity{creator},
		Algorithm: model.Algorithm{
			Weights:          weights,
			DecayFactor:      model.DefaultDecayFactor,
			AIEnhancement:    true,
			CrossRealmFactor: model.DefaultCrossRealmFactor,
		},
		MinReputationThreshold: model.DefaultMinReputation,
		VotingPeriodSeconds:    model.DefaultVotingPeriod,
		CrossRealmEnabled:      true,
		CreatedAt:              now,
	}, nil
}

// UpdateAlgorithm overwrites the realm's algorithm block. Only admins may
// call it. Weights are not re-validated.
func UpdateAlgorithm(r *model.Realm, caller model.Identity, alg model.Algorithm) error {
	if !r.IsAdmin(caller) {
		return rules.ErrAdminRequired
	}
	r.Algorithm = alg
	return nil
}

// Authorize checks that p may perform action in r.
func Authorize(p *model.Profile, r *model.Realm, action Action) error {
	if p.TotalScore < r.MinReputationThreshold {
		return rules.ErrInsufficientReputation
	}
	if !p.IsMember(r.Identity) {
		return rules.ErrNotRealmMember
	}

	switch action {
	case ActionVote:
		return nil
	case ActionPropose:
		if p.TotalScore < fixedpoint.SatMul(r.MinReputationThreshold, 2) {
			return rules.ErrInsufficientReputation
		}
		return nil
	case ActionAdmin:
		if !r.IsAdmin(p.Identity) {
			return rules.ErrAdminRequired
		}
		return nil
	default:
		return rules.ErrInvalidActionType
	}
}

// Join records r in the first free membership slot of p. Joining twice is a
// no-op; joined reports whether a slot was taken.
func Join(p *model.Profile, r *model.Realm) (joined bool, err error) {
	if p.IsMember(r.Identity) {
		return false, nil
	}
	for i := range p.RealmMemberships {
		if p.RealmMemberships[i].IsZero() {
			p.RealmMemberships[i] = r.Identity
			if r.TotalMembers < ^uint32(0) {
				r.TotalMembers++
			}
			return true, nil
		}
	}
	return false, rules.ErrMembershipFull
}
