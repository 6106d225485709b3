package service

import (
	"context"
	"time"

	"github.com/okian/realmrep/internal/adapters/repository"
	"github.com/okian/realmrep/internal/domain/decay"
	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/guard"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
	"github.com/okian/realmrep/internal/domain/sybil"
	"github.com/okian/realmrep/pkg/logger"
	"github.com/okian/realmrep/pkg/metrics"
)

// sybilHistory is how many recent interaction deltas feed EstimateSybil.
const sybilHistory = 32

// SweepReport summarizes one DecaySweep.
type SweepReport struct {
	Profiles int    `json:"profiles"`
	Decayed  int    `json:"decayed"`
	Points   uint64 `json:"points"`
}

// ApplyDecay erodes the scores of an idle profile. Each idle day is charged
// once, so repeated calls within the same day leave the profile unchanged.
func (s *Service) ApplyDecay(ctx context.Context, target model.Identity) (decay.Result, error) {
	const op = "apply_decay"
	start := time.Now()

	res, err := s.applyDecay(ctx, target, s.unix())
	if err = s.finish(ctx, op, start, err,
		idField("identity", target), logger.Int64("days", res.Days), logger.Uint64("points", res.TotalDelta),
	); err != nil {
		return decay.Result{}, err
	}
	return res, nil
}

func (s *Service) applyDecay(ctx context.Context, target model.Identity, now int64) (decay.Result, error) {
	var res decay.Result
	err := s.update(ctx, func(tx repository.Tx) error {
		p, err := loadProfile(tx, target)
		if err != nil {
			return err
		}
		res = decay.Apply(p, now)
		if !res.Advanced() {
			return nil
		}
		return tx.PutProfile(p)
	})
	return res, err
}

// DecaySweep applies decay to every stored profile, one transaction per
// profile, all at the same timestamp. It stops at the first store error or
// when ctx is done and returns what it completed so far.
func (s *Service) DecaySweep(ctx context.Context) (SweepReport, error) {
	const op = "decay_sweep"
	start := time.Now()
	now := s.unix()

	var report SweepReport
	ids, err := s.store.ProfileIDs(ctx)
	for _, target := range ids {
		if err = ctx.Err(); err != nil {
			break
		}
		var res decay.Result
		if res, err = s.applyDecay(ctx, target, now); err != nil {
			break
		}
		report.Profiles++
		if res.Applied() {
			report.Decayed++
			report.Points = fixedpoint.SatAdd(report.Points, res.TotalDelta)
		}
	}

	metrics.RecordDecaySweep(report.Profiles, report.Decayed, report.Points, millis(start))
	err = s.finish(ctx, op, start, err,
		logger.Int("profiles", report.Profiles), logger.Int("decayed", report.Decayed), logger.Uint64("points", report.Points),
	)
	return report, err
}

// DynamicCooldown returns the frequency- and reputation-adjusted cooldown
// in seconds for target's next interaction of interactionType. Recording an
// interaction never applies it implicitly.
func (s *Service) DynamicCooldown(ctx context.Context, target model.Identity, interactionType uint8) (int64, error) {
	const op = "dynamic_cooldown"
	start := time.Now()

	var cooldown int64
	var err error
	if base, ok := fixedpoint.Cooldown(interactionType); !ok {
		err = rules.ErrInvalidInteractionType
	} else {
		err = s.view(ctx, func(r repository.Reader) error {
			p, err := loadProfile(r, target)
			if err != nil {
				return err
			}
			recent := guard.DailyInteractions(p, s.unix())
			cooldown = guard.DynamicCooldown(base, recent, p.TotalScore)
			return nil
		})
	}
	if err = s.finish(ctx, op, start, err, idField("identity", target), logger.Int64("cooldown", cooldown)); err != nil {
		return 0, err
	}
	return cooldown, nil
}

// EstimateSybil scores pattern against the deltas of target's most recent
// interactions. It is advisory; no transition consults it.
func (s *Service) EstimateSybil(ctx context.Context, target model.Identity, pattern []byte) (sybil.Estimate, error) {
	const op = "estimate_sybil"
	start := time.Now()

	var est sybil.Estimate
	err := s.view(ctx, func(r repository.Reader) error {
		if _, err := loadProfile(r, target); err != nil {
			return err
		}
		events, err := r.Events(target, sybilHistory)
		if err != nil {
			return err
		}
		history := make([]uint64, 0, len(events))
		for _, ev := range events {
			if ev.To == target {
				history = append(history, ev.ReputationDelta)
			}
		}
		est = sybil.Score(pattern, history)
		return nil
	})
	if err = s.finish(ctx, op, start, err, idField("identity", target), logger.Uint64("score", est.Score)); err != nil {
		return sybil.Estimate{}, err
	}
	metrics.RecordSybilScore(est.Score)
	return est, nil
}

// Profile returns the stored profile of target.
func (s *Service) Profile(ctx context.Context, target model.Identity) (*model.Profile, error) {
	var p *model.Profile
	err := s.view(ctx, func(r repository.Reader) error {
		var err error
		p, err = loadProfile(r, target)
		return err
	})
	return p, rules.Wrap("service.profile", err)
}

// Realm returns the stored realm.
func (s *Service) Realm(ctx context.Context, realmID model.Identity) (*model.Realm, error) {
	var rl *model.Realm
	err := s.view(ctx, func(r repository.Reader) error {
		var err error
		rl, err = loadRealm(r, realmID)
		return err
	})
	return rl, rules.Wrap("service.realm", err)
}

// Events returns the last limit interaction events involving target, oldest
// first. A non-positive limit returns the whole log.
func (s *Service) Events(ctx context.Context, target model.Identity, limit int) ([]model.InteractionEvent, error) {
	var events []model.InteractionEvent
	err := s.view(ctx, func(r repository.Reader) error {
		var err error
		events, err = r.Events(target, limit)
		return err
	})
	return events, rules.Wrap("service.events", err)
}

// Receipts returns the badge receipts issued to owner.
func (s *Service) Receipts(ctx context.Context, owner model.Identity) ([]model.BadgeReceipt, error) {
	var receipts []model.BadgeReceipt
	err := s.view(ctx, func(r repository.Reader) error {
		var err error
		receipts, err = r.Receipts(owner)
		return err
	})
	return receipts, rules.Wrap("service.receipts", err)
}

// Delegations returns the delegation edges recorded for delegator.
func (s *Service) Delegations(ctx context.Context, delegator model.Identity) ([]model.DelegationEdge, error) {
	var edges []model.DelegationEdge
	err := s.view(ctx, func(r repository.Reader) error {
		var err error
		edges, err = r.Edges(delegator)
		return err
	})
	return edges, rules.Wrap("service.delegations", err)
}
