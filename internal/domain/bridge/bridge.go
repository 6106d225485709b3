// Package bridge imports reputation weight from another realm.
package bridge

import (
	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

// Bridge credits weight * cross_realm_factor to the profile's cross-realm
// counter and half of it to the total score. The source realm is not
// verified.
func Bridge(p *model.Profile, realm *model.Realm, weight uint8) (uint64, error) {
	if !realm.CrossRealmEnabled {
		return 0, rules.ErrCrossRealmDisabled
	}
	if weight == 0 {
		return 0, rules.ErrBridgeOperationFailed
	}

	add := fixedpoint.SatMul(uint64(weight), uint64(realm.Algorithm.CrossRealmFactor))
	p.CrossDAOReputation = fixedpoint.SatAdd(p.CrossDAOReputation, add)
	p.TotalScore = fixedpoint.SatAdd(p.TotalScore, add/2)
	return add, nil
}
