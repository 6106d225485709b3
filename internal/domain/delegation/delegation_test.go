package delegation_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/realmrep/internal/domain/delegation"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

func TestDelegate(t *testing.T) {
	Convey("Given a delegator with 1000 points and two candidates", t, func() {
		alice := model.NewProfile("alice")
		alice.TotalScore = 1000
		bob := model.NewProfile("bob")
		carol := model.NewProfile("carol")

		Convey("When delegating 50% to the same delegatee twice", func() {
			first, err := delegation.Delegate(alice, bob, "bob", 50, 10)
			So(err, ShouldBeNil)
			second, err := delegation.Delegate(alice, bob, "bob", 50, 20)
			So(err, ShouldBeNil)

			Convey("Then the power is overwritten, not accumulated", func() {
				So(alice.DelegatedPower, ShouldEqual, 500)
				So(bob.DelegationReceived, ShouldEqual, 500)
			})

			Convey("And the edges record what was credited", func() {
				So(first.Credited, ShouldEqual, 500)
				So(second.Previous, ShouldEqual, 500)
				So(second.Credited, ShouldEqual, 0)
				So(second.At, ShouldEqual, 20)
				So(first.ID, ShouldNotResemble, second.ID)
			})
		})

		Convey("When the delegator grows and delegates again", func() {
			_, _ = delegation.Delegate(alice, bob, "bob", 50, 10)
			alice.TotalScore = 1600
			_, err := delegation.Delegate(alice, bob, "bob", 50, 20)

			Convey("Then only the increase is credited", func() {
				So(err, ShouldBeNil)
				So(alice.DelegatedPower, ShouldEqual, 800)
				So(bob.DelegationReceived, ShouldEqual, 800)
			})
		})

		Convey("When switching to a smaller delegation for another target", func() {
			_, _ = delegation.Delegate(alice, bob, "bob", 80, 10)
			edge, err := delegation.Delegate(alice, carol, "carol", 30, 20)

			Convey("Then the old delegatee keeps its credit and the new one gets nothing", func() {
				So(err, ShouldBeNil)
				So(edge.Power, ShouldEqual, 300)
				So(alice.DelegatedPower, ShouldEqual, 300)
				So(bob.DelegationReceived, ShouldEqual, 800)
				So(carol.DelegationReceived, ShouldEqual, 0)
			})
		})

		Convey("When the request is invalid", func() {
			_, err := delegation.Delegate(alice, bob, "bob", 0, 1)
			So(errors.Is(err, rules.ErrDelegationTooHigh), ShouldBeTrue)
			_, err = delegation.Delegate(alice, bob, "bob", 101, 1)
			So(errors.Is(err, rules.ErrDelegationTooHigh), ShouldBeTrue)
			_, err = delegation.Delegate(alice, alice, "alice", 10, 1)
			So(errors.Is(err, rules.ErrSelfDelegation), ShouldBeTrue)
			_, err = delegation.Delegate(alice, bob, "carol", 10, 1)
			So(errors.Is(err, rules.ErrProfileMismatch), ShouldBeTrue)

			Convey("Then nothing is mutated", func() {
				So(alice.DelegatedPower, ShouldEqual, 0)
				So(bob.DelegationReceived, ShouldEqual, 0)
			})
		})
	})
}
