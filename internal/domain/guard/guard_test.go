package guard_test

import (
	"errors"
	"testing"

	"github.com/okian/realmrep/internal/domain/guard"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
	. "github.com/smartystreets/goconvey/convey"
)

const now int64 = 10_000_000

func TestValidate(t *testing.T) {
	Convey("Given two fresh profiles", t, func() {
		from := model.NewProfile("alice")
		to := model.NewProfile("bob")

		Convey("When the giver has been idle for a long time", func() {
			So(guard.Validate(from, to, 0, now, 300), ShouldBeNil)
		})

		Convey("When the giver acted inside the cooldown", func() {
			from.LastActivity = now - 100
			err := guard.Validate(from, to, 0, now, 300)
			So(errors.Is(err, rules.ErrCooldownActive), ShouldBeTrue)

			Convey("Then a high-reputation giver bypasses the cooldown", func() {
				from.TotalScore = 1001
				So(guard.Validate(from, to, 0, now, 300), ShouldBeNil)
			})

			Convey("Then a score of exactly 1000 does not bypass", func() {
				from.TotalScore = 1000
				So(errors.Is(guard.Validate(from, to, 0, now, 300), rules.ErrCooldownActive), ShouldBeTrue)
			})
		})

		Convey("When the giver targets itself", func() {
			Convey("Then it is rejected regardless of score and cooldown", func() {
				from.TotalScore = 1_000_000
				from.CrossDAOReputation = 10
				for _, typ := range []uint8{0, 4, 9} {
					err := guard.Validate(from, from, typ, now, 7200)
					So(errors.Is(err, rules.ErrSelfInteraction), ShouldBeTrue)
				}
			})

			Convey("Then the cooldown check still wins when it fails first", func() {
				from.LastActivity = now
				err := guard.Validate(from, from, 0, now, 300)
				So(errors.Is(err, rules.ErrCooldownActive), ShouldBeTrue)
			})
		})

		Convey("When the giver hit the daily limit for its tier", func() {
			from.LastActivity = now - 400
			from.InteractionCount = 5
			err := guard.Validate(from, to, 0, now, 300)
			So(errors.Is(err, rules.ErrDailyLimitExceeded), ShouldBeTrue)

			Convey("Then the count wraps at 100", func() {
				from.InteractionCount = 103
				So(guard.Validate(from, to, 0, now, 300), ShouldBeNil)
			})

			Convey("Then a full idle day resets the approximation", func() {
				from.LastActivity = now - 86_401
				So(guard.Validate(from, to, 0, now, 300), ShouldBeNil)
			})
		})

		Convey("When checking type permissions", func() {
			So(errors.Is(guard.Validate(from, to, 3, now, 1800), rules.ErrInsufficientReputation), ShouldBeTrue)
			from.TotalScore = 100
			So(guard.Validate(from, to, 5, now, 1800), ShouldBeNil)
			So(errors.Is(guard.Validate(from, to, 6, now, 1800), rules.ErrInsufficientReputation), ShouldBeTrue)
			from.TotalScore = 500
			So(guard.Validate(from, to, 8, now, 7200), ShouldBeNil)

			Convey("Then type 9 also needs cross-realm reputation", func() {
				from.TotalScore = 1000
				So(errors.Is(guard.Validate(from, to, 9, now, 7200), rules.ErrInsufficientReputation), ShouldBeTrue)
				from.CrossDAOReputation = 1
				So(guard.Validate(from, to, 9, now, 7200), ShouldBeNil)
			})

			Convey("Then unknown types are invalid input", func() {
				So(errors.Is(guard.Validate(from, to, 10, now, 0), rules.ErrInvalidInteractionType), ShouldBeTrue)
			})
		})
	})
}

func TestDailyInteractions(t *testing.T) {
	Convey("Given a profile with recorded activity", t, func() {
		p := model.NewProfile("carol")
		p.InteractionCount = 142
		p.LastActivity = now - 60

		So(guard.DailyInteractions(p, now), ShouldEqual, 42)
		So(guard.DailyInteractions(p, now+86_400), ShouldEqual, 0)
	})
}

func TestDynamicCooldown(t *testing.T) {
	Convey("Given a base cooldown of 300s", t, func() {
		So(guard.DynamicCooldown(300, 0, 0), ShouldEqual, 300)
		So(guard.DynamicCooldown(300, 6, 0), ShouldEqual, 450)
		So(guard.DynamicCooldown(300, 16, 600), ShouldEqual, 450)
		So(guard.DynamicCooldown(300, 31, 1001), ShouldEqual, 450)
		So(guard.DynamicCooldown(1800, 40, 2000), ShouldEqual, 2700)
	})
}
