package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/realmrep/internal/adapters/repository"
	service "github.com/okian/realmrep/internal/app"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
	"github.com/okian/realmrep/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

const (
	alice model.Identity = "alice"
	bob   model.Identity = "bob"
	carol model.Identity = "carol"
	admin model.Identity = "admin"
)

var guild = model.RealmIdentity("guild")

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.InteractionEvent
	full   bool
}

func (s *recordingSink) Enqueue(_ context.Context, e model.InteractionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, e)
	return true
}

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fixture struct {
	ctx   context.Context
	clock *clock
	sink  *recordingSink
	svc   *service.Service
}

func newFixture() *fixture {
	f := &fixture{
		ctx:   context.Background(),
		clock: &clock{t: time.Unix(1_900_000_000, 0)},
		sink:  &recordingSink{},
	}
	f.svc = service.New(
		service.WithClock(f.clock.Now),
		service.WithSink(f.sink),
		service.WithLogger(logger.Discard()),
	)
	for _, id := range []model.Identity{alice, bob, carol} {
		_, err := f.svc.InitializeProfile(f.ctx, id)
		So(err, ShouldBeNil)
	}
	return f
}

func (f *fixture) profile(id model.Identity) *model.Profile {
	p, err := f.svc.Profile(f.ctx, id)
	So(err, ShouldBeNil)
	return p
}

// upvote has alice credit bob with a type 0 interaction worth 200.
func (f *fixture) upvote() model.InteractionEvent {
	ev, err := f.svc.RecordInteraction(f.ctx, alice, bob, 0, 100, "thanks")
	So(err, ShouldBeNil)
	return ev
}

func (f *fixture) createGuild() *model.Realm {
	r, err := f.svc.CreateRealm(f.ctx, admin, "guild", [model.CategoryCount]uint16{20, 20, 20, 20, 20})
	So(err, ShouldBeNil)
	return r
}

func TestService_InitializeProfile(t *testing.T) {
	Convey("Given a service with three profiles", t, func() {
		f := newFixture()

		Convey("Then profiles start with the engine defaults", func() {
			p := f.profile(alice)
			So(p.TotalScore, ShouldEqual, 0)
			So(p.TrustMultiplier, ShouldEqual, 100)
			So(p.DecayRate, ShouldEqual, 2)
			So(p.AIValidationScore, ShouldEqual, 500)
			So(p.LastActivity, ShouldEqual, 0)
		})

		Convey("When a profile is initialized twice", func() {
			_, err := f.svc.InitializeProfile(f.ctx, alice)

			Convey("Then it is a state conflict", func() {
				So(errors.Is(err, rules.ErrProfileAlreadyExists), ShouldBeTrue)
				So(rules.KindOf(err), ShouldEqual, rules.KindStateConflict)
			})
		})

		Convey("When reading an unknown profile", func() {
			_, err := f.svc.Profile(f.ctx, "nobody")
			So(errors.Is(err, rules.ErrProfileNotFound), ShouldBeTrue)
		})
	})
}

func TestService_RecordInteraction(t *testing.T) {
	Convey("Given two fresh profiles", t, func() {
		f := newFixture()

		Convey("When alice upvotes bob long after any activity", func() {
			ev := f.upvote()

			Convey("Then the capped delta is posted to bob", func() {
				So(ev.ReputationDelta, ShouldEqual, 200)
				b := f.profile(bob)
				So(b.TotalScore, ShouldEqual, 200)
				So(b.CategoryScores[model.Community], ShouldEqual, 200)
				So(b.InteractionCount, ShouldEqual, 1)
				So(b.LastActivity, ShouldEqual, f.clock.Now().Unix())
			})

			Convey("And alice is stamped active without gaining score", func() {
				a := f.profile(alice)
				So(a.TotalScore, ShouldEqual, 0)
				So(a.LastActivity, ShouldEqual, f.clock.Now().Unix())
			})

			Convey("And the event is logged and pushed to the sink", func() {
				events, err := f.svc.Events(f.ctx, bob, 0)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
				So(events[0].ID, ShouldResemble, ev.ID)
				So(f.sink.Len(), ShouldEqual, 1)
			})

			Convey("And an immediate second interaction hits the cooldown", func() {
				_, err := f.svc.RecordInteraction(f.ctx, alice, bob, 0, 100, "")
				So(errors.Is(err, rules.ErrCooldownActive), ShouldBeTrue)
				So(rules.KindOf(err), ShouldEqual, rules.KindRateLimited)
				So(f.profile(bob).TotalScore, ShouldEqual, 200)
				So(f.sink.Len(), ShouldEqual, 1)
			})

			Convey("And after the cooldown the next interaction is accepted", func() {
				f.clock.Advance(5 * time.Minute)
				_, err := f.svc.RecordInteraction(f.ctx, alice, bob, 1, 100, "")
				So(err, ShouldBeNil)
				So(f.profile(bob).InteractionCount, ShouldEqual, 2)
			})
		})

		Convey("When the input is malformed", func() {
			bad := []struct {
				typ    uint8
				weight uint16
				meta   string
				want   error
			}{
				{10, 100, "", rules.ErrInvalidInteractionType},
				{0, 0, "", rules.ErrWeightTooHigh},
				{0, 1001, "", rules.ErrWeightTooHigh},
				{0, 10, strings.Repeat("m", 257), rules.ErrMetadataTooLong},
			}

			Convey("Then nothing is mutated", func() {
				for _, b := range bad {
					_, err := f.svc.RecordInteraction(f.ctx, alice, bob, b.typ, b.weight, b.meta)
					So(errors.Is(err, b.want), ShouldBeTrue)
				}
				So(f.profile(bob).TotalScore, ShouldEqual, 0)
				So(f.profile(alice).LastActivity, ShouldEqual, 0)
				events, err := f.svc.Events(f.ctx, bob, 0)
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
				So(f.sink.Len(), ShouldEqual, 0)
			})
		})

		Convey("When alice targets herself", func() {
			_, err := f.svc.RecordInteraction(f.ctx, alice, alice, 0, 100, "")
			So(errors.Is(err, rules.ErrSelfInteraction), ShouldBeTrue)
		})

		Convey("When the giver lacks reputation for the type", func() {
			_, err := f.svc.RecordInteraction(f.ctx, alice, bob, 4, 100, "")
			So(errors.Is(err, rules.ErrInsufficientReputation), ShouldBeTrue)
		})

		Convey("When the receiver does not exist", func() {
			_, err := f.svc.RecordInteraction(f.ctx, alice, "nobody", 0, 100, "")
			So(errors.Is(err, rules.ErrProfileNotFound), ShouldBeTrue)
		})

		Convey("When the sink drops the event", func() {
			f.sink.full = true
			_, err := f.svc.RecordInteraction(f.ctx, alice, bob, 0, 100, "")

			Convey("Then the interaction is still committed", func() {
				So(err, ShouldBeNil)
				So(f.profile(bob).TotalScore, ShouldEqual, 200)
			})
		})
	})
}

func TestService_Realms(t *testing.T) {
	Convey("Given a realm created by admin", t, func() {
		f := newFixture()
		r := f.createGuild()

		Convey("Then it carries the creation defaults", func() {
			So(r.Identity, ShouldEqual, guild)
			So(r.Admins[0], ShouldEqual, admin)
			So(r.MinReputationThreshold, ShouldEqual, 50)
			So(r.Algorithm.CrossRealmFactor, ShouldEqual, 10)
			So(r.CrossRealmEnabled, ShouldBeTrue)
			So(r.AIModerationEnabled, ShouldBeFalse)
		})

		Convey("When creating invalid or duplicate realms", func() {
			_, err := f.svc.CreateRealm(f.ctx, admin, "guild", [model.CategoryCount]uint16{1})
			So(errors.Is(err, rules.ErrRealmAlreadyExists), ShouldBeTrue)

			_, err = f.svc.CreateRealm(f.ctx, admin, strings.Repeat("n", 33), [model.CategoryCount]uint16{1})
			So(errors.Is(err, rules.ErrRealmNameTooLong), ShouldBeTrue)

			_, err = f.svc.CreateRealm(f.ctx, admin, "empty", [model.CategoryCount]uint16{})
			So(errors.Is(err, rules.ErrInvalidAlgorithmWeight), ShouldBeTrue)
		})

		Convey("When the algorithm is updated", func() {
			alg := model.Algorithm{DecayFactor: 9, CrossRealmFactor: 3}

			Convey("Then only an admin may do it", func() {
				err := f.svc.UpdateAlgorithm(f.ctx, bob, guild, alg)
				So(errors.Is(err, rules.ErrAdminRequired), ShouldBeTrue)
			})

			Convey("Then zero weights are accepted on update", func() {
				So(f.svc.UpdateAlgorithm(f.ctx, admin, guild, alg), ShouldBeNil)
				stored, err := f.svc.Realm(f.ctx, guild)
				So(err, ShouldBeNil)
				So(stored.Algorithm, ShouldResemble, alg)
			})

			Convey("Then an unknown realm is not found", func() {
				err := f.svc.UpdateAlgorithm(f.ctx, admin, model.RealmIdentity("nope"), alg)
				So(errors.Is(err, rules.ErrRealmNotFound), ShouldBeTrue)
			})
		})

		Convey("When bob has reputation", func() {
			f.upvote()

			Convey("Then actions need membership", func() {
				err := f.svc.AuthorizeRealmAction(f.ctx, bob, guild, 0)
				So(errors.Is(err, rules.ErrNotRealmMember), ShouldBeTrue)
			})

			Convey("And after joining", func() {
				joined, err := f.svc.JoinRealm(f.ctx, bob, guild)
				So(err, ShouldBeNil)
				So(joined, ShouldBeTrue)

				again, err := f.svc.JoinRealm(f.ctx, bob, guild)
				So(err, ShouldBeNil)
				So(again, ShouldBeFalse)

				stored, err := f.svc.Realm(f.ctx, guild)
				So(err, ShouldBeNil)
				So(stored.TotalMembers, ShouldEqual, 1)

				So(f.svc.AuthorizeRealmAction(f.ctx, bob, guild, 0), ShouldBeNil)
				So(f.svc.AuthorizeRealmAction(f.ctx, bob, guild, 1), ShouldBeNil)
				So(errors.Is(f.svc.AuthorizeRealmAction(f.ctx, bob, guild, 2), rules.ErrAdminRequired), ShouldBeTrue)
				So(errors.Is(f.svc.AuthorizeRealmAction(f.ctx, bob, guild, 3), rules.ErrInvalidActionType), ShouldBeTrue)
			})

			Convey("And a profile below the threshold is refused", func() {
				_, err := f.svc.JoinRealm(f.ctx, carol, guild)
				So(err, ShouldBeNil)
				err = f.svc.AuthorizeRealmAction(f.ctx, carol, guild, 0)
				So(errors.Is(err, rules.ErrInsufficientReputation), ShouldBeTrue)
			})
		})
	})
}

func TestService_Vote(t *testing.T) {
	Convey("Given a realm and a reputable voter", t, func() {
		f := newFixture()
		f.createGuild()
		f.upvote()

		Convey("When bob casts a weighted vote", func() {
			inc, err := f.svc.CastReputationVote(f.ctx, bob, guild, 1, "support")

			Convey("Then total and governance scores rise", func() {
				So(err, ShouldBeNil)
				So(inc, ShouldEqual, 15)
				b := f.profile(bob)
				So(b.TotalScore, ShouldEqual, 215)
				So(b.CategoryScores[model.Governance], ShouldEqual, 15)
			})
		})

		Convey("When the vote is invalid", func() {
			_, err := f.svc.CastReputationVote(f.ctx, bob, guild, 3, "")
			So(errors.Is(err, rules.ErrInvalidActionType), ShouldBeTrue)

			_, err = f.svc.CastReputationVote(f.ctx, bob, guild, 0, strings.Repeat("j", 281))
			So(errors.Is(err, rules.ErrMetadataTooLong), ShouldBeTrue)

			_, err = f.svc.CastReputationVote(f.ctx, carol, guild, 0, "")
			So(errors.Is(err, rules.ErrInsufficientReputation), ShouldBeTrue)

			So(f.profile(bob).TotalScore, ShouldEqual, 200)
		})
	})
}

func TestService_Delegation(t *testing.T) {
	Convey("Given bob with 200 points", t, func() {
		f := newFixture()
		f.upvote()

		Convey("When bob delegates 50% to alice twice", func() {
			first, err := f.svc.DelegateReputation(f.ctx, bob, alice, alice, 50)
			So(err, ShouldBeNil)
			second, err := f.svc.DelegateReputation(f.ctx, bob, alice, alice, 50)
			So(err, ShouldBeNil)

			Convey("Then the power is overwritten and not double counted", func() {
				So(first.Power, ShouldEqual, 100)
				So(second.Credited, ShouldEqual, 0)
				So(f.profile(bob).DelegatedPower, ShouldEqual, 100)
				So(f.profile(alice).DelegationReceived, ShouldEqual, 100)
			})

			Convey("And both calls are in the edge log", func() {
				edges, err := f.svc.Delegations(f.ctx, bob)
				So(err, ShouldBeNil)
				So(len(edges), ShouldEqual, 2)
				So(edges[1].Previous, ShouldEqual, 100)
			})
		})

		Convey("When the delegation is invalid", func() {
			_, err := f.svc.DelegateReputation(f.ctx, bob, bob, bob, 10)
			So(errors.Is(err, rules.ErrSelfDelegation), ShouldBeTrue)

			_, err = f.svc.DelegateReputation(f.ctx, bob, alice, carol, 10)
			So(errors.Is(err, rules.ErrProfileMismatch), ShouldBeTrue)

			_, err = f.svc.DelegateReputation(f.ctx, bob, alice, alice, 101)
			So(errors.Is(err, rules.ErrDelegationTooHigh), ShouldBeTrue)

			edges, err := f.svc.Delegations(f.ctx, bob)
			So(err, ShouldBeNil)
			So(edges, ShouldBeEmpty)
		})
	})
}

func TestService_ClaimBadge(t *testing.T) {
	Convey("Given a fresh profile", t, func() {
		f := newFixture()
		var proof model.Hash
		proof[0] = 0xab

		Convey("When a developer badge is claimed", func() {
			receipt, err := f.svc.ClaimBadge(f.ctx, alice, uint8(model.BadgeDeveloper), proof)
			So(err, ShouldBeNil)

			Convey("Then the bonus and receipt are recorded", func() {
				So(receipt.Owner, ShouldEqual, alice)
				So(receipt.Kind, ShouldEqual, model.BadgeDeveloper)
				a := f.profile(alice)
				So(a.TotalScore, ShouldEqual, 25)
				So(a.CategoryScores[model.Development], ShouldEqual, 25)
				So(a.Badges.Count(), ShouldEqual, 1)
			})

			Convey("And a second claim of the same kind is rejected", func() {
				_, err := f.svc.ClaimBadge(f.ctx, alice, uint8(model.BadgeDeveloper), proof)
				So(errors.Is(err, rules.ErrBadgeAlreadyClaimed), ShouldBeTrue)
				So(rules.KindOf(err), ShouldEqual, rules.KindStateConflict)

				receipts, err := f.svc.Receipts(f.ctx, alice)
				So(err, ShouldBeNil)
				So(len(receipts), ShouldEqual, 1)
				So(f.profile(alice).TotalScore, ShouldEqual, 25)
			})
		})

		Convey("When the kind is out of range", func() {
			_, err := f.svc.ClaimBadge(f.ctx, alice, 11, proof)
			So(errors.Is(err, rules.ErrInvalidBadgeProof), ShouldBeTrue)
		})
	})
}

func TestService_Bridge(t *testing.T) {
	Convey("Given a cross-realm enabled realm", t, func() {
		f := newFixture()
		f.createGuild()

		Convey("When bob bridges weight 3", func() {
			added, err := f.svc.BridgeReputation(f.ctx, bob, guild, 3)

			Convey("Then half of it reaches the total score", func() {
				So(err, ShouldBeNil)
				So(added, ShouldEqual, 30)
				b := f.profile(bob)
				So(b.CrossDAOReputation, ShouldEqual, 30)
				So(b.TotalScore, ShouldEqual, 15)
			})
		})

		Convey("When the weight is zero", func() {
			_, err := f.svc.BridgeReputation(f.ctx, bob, guild, 0)
			So(errors.Is(err, rules.ErrBridgeOperationFailed), ShouldBeTrue)
		})

		Convey("When the realm does not exist", func() {
			_, err := f.svc.BridgeReputation(f.ctx, bob, model.RealmIdentity("elsewhere"), 1)
			So(errors.Is(err, rules.ErrRealmNotFound), ShouldBeTrue)
		})
	})
}

func TestService_Decay(t *testing.T) {
	Convey("Given bob credited with 200 points", t, func() {
		f := newFixture()
		f.upvote()

		Convey("When less than the grace period has passed", func() {
			f.clock.Advance(5 * 24 * time.Hour)
			res, err := f.svc.ApplyDecay(f.ctx, bob)

			Convey("Then nothing changes", func() {
				So(err, ShouldBeNil)
				So(res.Applied(), ShouldBeFalse)
				So(f.profile(bob).TotalScore, ShouldEqual, 200)
			})
		})

		Convey("When ten idle days have passed", func() {
			f.clock.Advance(10 * 24 * time.Hour)
			res, err := f.svc.ApplyDecay(f.ctx, bob)

			Convey("Then total and category scores decay", func() {
				So(err, ShouldBeNil)
				So(res.Days, ShouldEqual, 10)
				So(res.TotalDelta, ShouldEqual, 1)
				b := f.profile(bob)
				So(b.TotalScore, ShouldEqual, 199)
				So(b.CategoryScores[model.Community], ShouldEqual, 199)
			})
		})

		Convey("When a sweep runs after ten days", func() {
			f.clock.Advance(10 * 24 * time.Hour)
			report, err := f.svc.DecaySweep(f.ctx)

			Convey("Then every profile is visited once", func() {
				So(err, ShouldBeNil)
				So(report, ShouldResemble, service.SweepReport{Profiles: 3, Decayed: 1, Points: 1})
			})
		})

		Convey("When bob holds 5200 points and the sweep runs hourly", func() {
			So(f.svc.Store().Update(f.ctx, func(tx repository.Tx) error {
				p, err := tx.Profile(bob)
				if err != nil {
					return err
				}
				p.TotalScore = 5200
				return tx.PutProfile(p)
			}), ShouldBeNil)

			f.clock.Advance(8 * 24 * time.Hour)
			first, err := f.svc.DecaySweep(f.ctx)
			So(err, ShouldBeNil)

			Convey("Then the first sweep charges the eight idle days once", func() {
				// 5200 * 2 * 8 / 3000 = 27
				So(first.Points, ShouldEqual, 27)
				So(f.profile(bob).TotalScore, ShouldEqual, 5173)
			})

			Convey("And later sweeps on the same day change nothing", func() {
				for i := 0; i < 23; i++ {
					f.clock.Advance(time.Hour)
					report, err := f.svc.DecaySweep(f.ctx)
					So(err, ShouldBeNil)
					So(report.Decayed, ShouldEqual, 0)
				}
				So(f.profile(bob).TotalScore, ShouldEqual, 5173)
			})

			Convey("And the sweep on the next day charges only that day", func() {
				f.clock.Advance(24 * time.Hour)
				_, err := f.svc.DecaySweep(f.ctx)
				So(err, ShouldBeNil)
				// 5173 * 2 * 1 / 3000 = 3
				So(f.profile(bob).TotalScore, ShouldEqual, 5170)
			})
		})

		Convey("When the sweep context is already cancelled", func() {
			ctx, cancel := context.WithCancel(f.ctx)
			cancel()
			report, err := f.svc.DecaySweep(ctx)

			Convey("Then it stops early", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(report.Profiles, ShouldEqual, 0)
			})
		})

		Convey("When decaying an unknown profile", func() {
			_, err := f.svc.ApplyDecay(f.ctx, "nobody")
			So(errors.Is(err, rules.ErrProfileNotFound), ShouldBeTrue)
		})
	})
}

func TestService_DynamicCooldown(t *testing.T) {
	Convey("Given bob after one received interaction", t, func() {
		f := newFixture()
		f.upvote()

		Convey("Then the base cooldown applies at low frequency", func() {
			c, err := f.svc.DynamicCooldown(f.ctx, bob, 0)
			So(err, ShouldBeNil)
			So(c, ShouldEqual, 300)

			c, err = f.svc.DynamicCooldown(f.ctx, bob, 7)
			So(err, ShouldBeNil)
			So(c, ShouldEqual, 7200)
		})

		Convey("Then an invalid type is rejected", func() {
			_, err := f.svc.DynamicCooldown(f.ctx, bob, 10)
			So(errors.Is(err, rules.ErrInvalidInteractionType), ShouldBeTrue)
		})
	})
}

func TestService_EstimateSybil(t *testing.T) {
	Convey("Given bob with one received interaction", t, func() {
		f := newFixture()
		f.upvote()

		Convey("When estimating an empty pattern against his history", func() {
			est, err := f.svc.EstimateSybil(f.ctx, bob, nil)

			Convey("Then the components reflect the history", func() {
				So(err, ShouldBeNil)
				So(est.Legitimacy, ShouldEqual, 300)
				So(est.Consistency, ShouldEqual, 700)
				So(est.Anomaly, ShouldEqual, 450)
				So(est.Score, ShouldEqual, 477)
			})
		})

		Convey("When the profile has received nothing", func() {
			est, err := f.svc.EstimateSybil(f.ctx, alice, nil)
			So(err, ShouldBeNil)
			So(est.Score, ShouldEqual, 445)
		})

		Convey("When the profile does not exist", func() {
			_, err := f.svc.EstimateSybil(f.ctx, "nobody", []byte{1})
			So(errors.Is(err, rules.ErrProfileNotFound), ShouldBeTrue)
		})
	})
}
