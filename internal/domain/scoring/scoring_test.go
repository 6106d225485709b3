package scoring_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
	scoring "github.com/okian/realmrep/internal/domain/scoring"
)

const farFuture int64 = 1_900_000_000

var fixedID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

func newEngine() *scoring.Engine {
	return scoring.NewEngine(scoring.WithIDGenerator(func() uuid.UUID { return fixedID }))
}

func TestEngine_Score(t *testing.T) {
	Convey("Given a scoring engine and two fresh profiles", t, func() {
		engine := newEngine()
		from := model.NewProfile("alice")
		to := model.NewProfile("bob")

		Convey("When a code review is recorded long after the last activity", func() {
			res, err := engine.Score(from, to, scoring.Input{Type: 4, Weight: 100, Metadata: "pr#12", Now: farFuture})

			Convey("Then the raw impact is capped at 200", func() {
				So(err, ShouldBeNil)
				So(res.Delta, ShouldEqual, 200)
				So(res.Category, ShouldEqual, model.Development)
			})

			Convey("And the event describes the interaction", func() {
				So(res.Event.ID, ShouldResemble, fixedID)
				So(res.Event.From, ShouldEqual, model.Identity("alice"))
				So(res.Event.To, ShouldEqual, model.Identity("bob"))
				So(res.Event.Weight, ShouldEqual, 100)
				So(res.Event.ReputationDelta, ShouldEqual, 200)
				So(res.Event.Timestamp, ShouldEqual, farFuture)
				So(res.Event.MetadataHash, ShouldResemble, scoring.HashMetadata("pr#12"))
			})

			Convey("And neither profile is mutated by scoring alone", func() {
				So(to.TotalScore, ShouldEqual, 0)
				So(from.LastActivity, ShouldEqual, 0)
			})
		})

		Convey("When the giver is trusted and recently active", func() {
			from.TotalScore = 600
			from.LastActivity = farFuture - 1800
			to.TotalScore = 200
			res, err := engine.Score(from, to, scoring.Input{Type: 0, Weight: 10, Now: farFuture})

			Convey("Then every tier multiplier applies below the cap", func() {
				So(err, ShouldBeNil)
				// 1 * 120 * 110 / 100
				So(res.Delta, ShouldEqual, 132)
			})
		})

		Convey("When AI and trust multipliers follow the cap", func() {
			from.AIValidationScore = 900
			from.TrustMultiplier = 150
			res, err := engine.Score(from, to, scoring.Input{Type: 7, Weight: 1000, Now: farFuture})

			Convey("Then the posted delta exceeds 200", func() {
				So(err, ShouldBeNil)
				So(res.Delta, ShouldEqual, 330)
				So(res.Category, ShouldEqual, model.Innovation)
			})
		})

		Convey("When the trust multiplier is zero", func() {
			from.TrustMultiplier = 0
			res, err := engine.Score(from, to, scoring.Input{Type: 4, Weight: 100, Now: farFuture})

			Convey("Then it is treated as 1", func() {
				So(err, ShouldBeNil)
				So(res.Delta, ShouldEqual, 2)
			})
		})

		Convey("When the trust multiplier is huge", func() {
			from.TrustMultiplier = 1 << 62
			res, err := engine.Score(from, to, scoring.Input{Type: 4, Weight: 100, Now: farFuture})

			Convey("Then the trust product saturates before dividing", func() {
				So(err, ShouldBeNil)
				So(res.Delta, ShouldEqual, ^uint64(0)/100)
			})
		})

		Convey("When the input is malformed", func() {
			cases := []struct {
				in   scoring.Input
				want error
			}{
				{scoring.Input{Type: 10, Weight: 100}, rules.ErrInvalidInteractionType},
				{scoring.Input{Type: 0, Weight: 0}, rules.ErrWeightTooHigh},
				{scoring.Input{Type: 0, Weight: 1001}, rules.ErrWeightTooHigh},
				{scoring.Input{Type: 0, Weight: 1, Metadata: strings.Repeat("x", 257)}, rules.ErrMetadataTooLong},
			}

			Convey("Then it is rejected", func() {
				for _, c := range cases {
					_, err := engine.Score(from, to, c.in)
					So(errors.Is(err, c.want), ShouldBeTrue)
				}
				So(scoring.CheckInput(scoring.Input{Type: 9, Weight: 1000, Metadata: strings.Repeat("x", 256)}), ShouldBeNil)
			})
		})
	})
}

func TestEngine_Apply(t *testing.T) {
	Convey("Given a scored interaction", t, func() {
		engine := newEngine()
		from := model.NewProfile("alice")
		to := model.NewProfile("bob")
		to.TotalScore = 40
		res, err := engine.Score(from, to, scoring.Input{Type: 6, Weight: 100, Now: farFuture})
		So(err, ShouldBeNil)

		Convey("When it is applied", func() {
			engine.Apply(from, to, res)

			Convey("Then the receiver is credited in total and category", func() {
				So(to.TotalScore, ShouldEqual, 40+res.Delta)
				So(to.CategoryScores[model.Security], ShouldEqual, res.Delta)
				So(to.CategoryScores[model.Community], ShouldEqual, 0)
				So(to.InteractionCount, ShouldEqual, 1)
			})

			Convey("And both sides are stamped active", func() {
				So(to.LastActivity, ShouldEqual, farFuture)
				So(from.LastActivity, ShouldEqual, farFuture)
				So(from.TotalScore, ShouldEqual, 0)
			})
		})

		Convey("When the receiver is at the ceiling", func() {
			to.TotalScore = ^uint64(0)
			to.InteractionCount = ^uint32(0)
			engine.Apply(from, to, res)

			Convey("Then the counters saturate", func() {
				So(to.TotalScore, ShouldEqual, ^uint64(0))
				So(to.InteractionCount, ShouldEqual, ^uint32(0))
			})
		})
	})
}

func TestCategoryForInteraction(t *testing.T) {
	Convey("Given every interaction type", t, func() {
		want := map[uint8]model.Category{
			0: model.Community, 1: model.Community, 2: model.Community,
			3: model.Development, 4: model.Development, 5: model.Community,
			6: model.Security, 7: model.Innovation, 8: model.Community,
			9: model.Governance,
		}
		for typ, cat := range want {
			So(scoring.CategoryForInteraction(typ), ShouldEqual, cat)
		}
	})
}

func TestHashMetadata(t *testing.T) {
	Convey("Given the empty metadata string", t, func() {
		So(scoring.HashMetadata("").String(), ShouldEqual,
			"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
		So(scoring.HashMetadata("a"), ShouldNotResemble, scoring.HashMetadata("b"))
	})
}
