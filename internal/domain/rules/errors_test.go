package rules_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/realmrep/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRejectionTaxonomy(t *testing.T) {
	Convey("Given a wrapped rejection", t, func() {
		err := rules.Wrap("service.record_interaction", rules.ErrCooldownActive)

		Convey("Then identity, kind and code survive wrapping", func() {
			So(errors.Is(err, rules.ErrCooldownActive), ShouldBeTrue)
			So(errors.Is(err, rules.ErrDailyLimitExceeded), ShouldBeFalse)
			So(rules.KindOf(err), ShouldEqual, rules.KindRateLimited)
			So(rules.CodeOf(err), ShouldEqual, "CooldownActive")
			So(err.Error(), ShouldEqual, "service.record_interaction: cooldown period still active")
		})

		Convey("And foreign errors map to unknown", func() {
			foreign := fmt.Errorf("disk: %w", errors.New("boom"))
			So(rules.KindOf(foreign), ShouldEqual, rules.KindUnknown)
			So(rules.CodeOf(foreign), ShouldEqual, "Unknown")
			So(rules.Wrap("op", nil), ShouldBeNil)
		})

		Convey("And kinds have stable names", func() {
			So(rules.KindStateConflict.String(), ShouldEqual, "state_conflict")
			So(rules.ErrSelfInteraction.Kind, ShouldEqual, rules.KindStateConflict)
			So(rules.ErrNotRealmMember.Kind, ShouldEqual, rules.KindAuthorization)
		})
	})
}
