package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/realmrep/internal/adapters/repository"
	"github.com/okian/realmrep/internal/domain/badge"
	"github.com/okian/realmrep/internal/domain/bridge"
	"github.com/okian/realmrep/internal/domain/delegation"
	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/guard"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/realm"
	"github.com/okian/realmrep/internal/domain/rules"
	"github.com/okian/realmrep/internal/domain/scoring"
	"github.com/okian/realmrep/internal/domain/vote"
	"github.com/okian/realmrep/pkg/logger"
	"github.com/okian/realmrep/pkg/metrics"
)

// InitializeProfile creates the profile of caller with engine defaults.
func (s *Service) InitializeProfile(ctx context.Context, caller model.Identity) (*model.Profile, error) {
	const op = "initialize_profile"
	start := time.Now()

	p := model.NewProfile(caller)
	err := s.update(ctx, func(tx repository.Tx) error {
		if err := tx.CreateProfile(p); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return rules.ErrProfileAlreadyExists
			}
			return err
		}
		return nil
	})
	if err = s.finish(ctx, op, start, err, idField("identity", caller)); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordInteraction scores an interaction from caller to target, credits the
// target and appends the event to the log. The committed event is then
// pushed to the sink.
func (s *Service) RecordInteraction(ctx context.Context, caller, target model.Identity, interactionType uint8, weight uint16, metadata string) (model.InteractionEvent, error) {
	const op = "record_interaction"
	start := time.Now()
	fields := []logger.Field{idField("from", caller), idField("to", target), logger.Int("type", int(interactionType))}

	in := scoring.Input{Type: interactionType, Weight: weight, Metadata: metadata, Now: s.unix()}
	var event model.InteractionEvent
	err := scoring.CheckInput(in)
	if err == nil {
		cooldown, _ := fixedpoint.Cooldown(interactionType)
		err = s.update(ctx, func(tx repository.Tx) error {
			from, err := loadProfile(tx, caller)
			if err != nil {
				return err
			}
			to, err := loadProfile(tx, target)
			if err != nil {
				return err
			}
			if err := guard.Validate(from, to, interactionType, in.Now, cooldown); err != nil {
				return err
			}

			res, err := s.engine.Score(from, to, in)
			if err != nil {
				return err
			}
			s.engine.Apply(from, to, res)

			if err := tx.PutProfile(to); err != nil {
				return err
			}
			if err := tx.PutProfile(from); err != nil {
				return err
			}
			if err := tx.AppendEvent(res.Event); err != nil {
				return err
			}
			event = res.Event
			return nil
		})
	}
	if err = s.finish(ctx, op, start, err, append(fields, logger.Uint64("delta", event.ReputationDelta))...); err != nil {
		return model.InteractionEvent{}, err
	}

	metrics.RecordInteractionDelta(event.ReputationDelta)
	s.emit(ctx, event)
	return event, nil
}

func (s *Service) emit(ctx context.Context, event model.InteractionEvent) {
	if s.sink == nil {
		return
	}
	if !s.sink.Enqueue(ctx, event) {
		s.logger.Warn(ctx, "interaction event dropped by sink",
			logger.String("event_id", event.ID.String()),
		)
	}
}

// CastReputationVote credits the governance participation increment of
// voteType to caller.
func (s *Service) CastReputationVote(ctx context.Context, caller, realmID model.Identity, voteType uint8, justification string) (uint64, error) {
	const op = "cast_reputation_vote"
	start := time.Now()

	var increment uint64
	err := s.update(ctx, func(tx repository.Tx) error {
		p, err := loadProfile(tx, caller)
		if err != nil {
			return err
		}
		r, err := loadRealm(tx, realmID)
		if err != nil {
			return err
		}
		if increment, err = vote.Cast(p, r, voteType, justification); err != nil {
			return err
		}
		return tx.PutProfile(p)
	})
	if err = s.finish(ctx, op, start, err, idField("identity", caller), idField("realm", realmID)); err != nil {
		return 0, err
	}
	return increment, nil
}

// CreateRealm creates a realm named name with caller as its sole admin.
func (s *Service) CreateRealm(ctx context.Context, caller model.Identity, name string, weights [model.CategoryCount]uint16) (*model.Realm, error) {
	const op = "create_realm"
	start := time.Now()

	r, err := realm.Create(caller, name, weights, s.unix())
	if err == nil {
		err = s.update(ctx, func(tx repository.Tx) error {
			if err := tx.CreateRealm(r); err != nil {
				if errors.Is(err, repository.ErrAlreadyExists) {
					return rules.ErrRealmAlreadyExists
				}
				return err
			}
			return nil
		})
	}
	if err = s.finish(ctx, op, start, err, idField("creator", caller), logger.String("name", name)); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateAlgorithm overwrites the algorithm block of a realm. Only a realm
// admin may call it.
func (s *Service) UpdateAlgorithm(ctx context.Context, caller, realmID model.Identity, alg model.Algorithm) error {
	const op = "update_algorithm"
	start := time.Now()

	err := s.update(ctx, func(tx repository.Tx) error {
		r, err := loadRealm(tx, realmID)
		if err != nil {
			return err
		}
		if err := realm.UpdateAlgorithm(r, caller, alg); err != nil {
			return err
		}
		return tx.PutRealm(r)
	})
	return s.finish(ctx, op, start, err, idField("caller", caller), idField("realm", realmID))
}

// DelegateReputation delegates percent of caller's score to delegatee. The
// delegatee account must be the one named by target. The delegation is also
// appended to the edge log.
func (s *Service) DelegateReputation(ctx context.Context, caller, delegatee, target model.Identity, percent uint8) (model.DelegationEdge, error) {
	const op = "delegate_reputation"
	start := time.Now()

	var edge model.DelegationEdge
	err := s.update(ctx, func(tx repository.Tx) error {
		from, err := loadProfile(tx, caller)
		if err != nil {
			return err
		}
		to, err := loadProfile(tx, delegatee)
		if err != nil {
			return err
		}
		if edge, err = delegation.Delegate(from, to, target, percent, s.unix()); err != nil {
			return err
		}
		if err := tx.PutProfile(from); err != nil {
			return err
		}
		if err := tx.PutProfile(to); err != nil {
			return err
		}
		return tx.AppendEdge(edge)
	})
	if err = s.finish(ctx, op, start, err,
		idField("delegator", caller), idField("delegatee", delegatee), logger.Int("percent", int(percent)),
	); err != nil {
		return model.DelegationEdge{}, err
	}
	return edge, nil
}

// ClaimBadge places a badge of kind on caller's profile and stores the
// receipt.
func (s *Service) ClaimBadge(ctx context.Context, caller model.Identity, kind uint8, proof model.Hash) (model.BadgeReceipt, error) {
	const op = "claim_badge"
	start := time.Now()

	var receipt model.BadgeReceipt
	err := s.update(ctx, func(tx repository.Tx) error {
		p, err := loadProfile(tx, caller)
		if err != nil {
			return err
		}
		if receipt, err = badge.Claim(p, kind, proof, s.unix()); err != nil {
			return err
		}
		if err := tx.PutProfile(p); err != nil {
			return err
		}
		return tx.AddReceipt(receipt)
	})
	if err = s.finish(ctx, op, start, err, idField("identity", caller), logger.Int("kind", int(kind))); err != nil {
		return model.BadgeReceipt{}, err
	}
	return receipt, nil
}

// BridgeReputation imports weight from sourceRealm into caller's cross-realm
// reputation. Membership in the source realm is not verified.
func (s *Service) BridgeReputation(ctx context.Context, caller, sourceRealm model.Identity, weight uint8) (uint64, error) {
	const op = "bridge_reputation"
	start := time.Now()

	var added uint64
	err := s.update(ctx, func(tx repository.Tx) error {
		p, err := loadProfile(tx, caller)
		if err != nil {
			return err
		}
		r, err := loadRealm(tx, sourceRealm)
		if err != nil {
			return err
		}
		if added, err = bridge.Bridge(p, r, weight); err != nil {
			return err
		}
		return tx.PutProfile(p)
	})
	if err = s.finish(ctx, op, start, err, idField("identity", caller), idField("realm", sourceRealm)); err != nil {
		return 0, err
	}
	return added, nil
}

// JoinRealm adds realmID to caller's memberships. Joining twice is a no-op
// and reports false.
func (s *Service) JoinRealm(ctx context.Context, caller, realmID model.Identity) (bool, error) {
	const op = "join_realm"
	start := time.Now()

	var joined bool
	err := s.update(ctx, func(tx repository.Tx) error {
		p, err := loadProfile(tx, caller)
		if err != nil {
			return err
		}
		r, err := loadRealm(tx, realmID)
		if err != nil {
			return err
		}
		if joined, err = realm.Join(p, r); err != nil || !joined {
			return err
		}
		if err := tx.PutProfile(p); err != nil {
			return err
		}
		return tx.PutRealm(r)
	})
	if err = s.finish(ctx, op, start, err, idField("identity", caller), idField("realm", realmID)); err != nil {
		return false, err
	}
	return joined, nil
}

// AuthorizeRealmAction checks whether caller may perform action (0 vote,
// 1 propose, 2 admin) in realmID. It never mutates state.
func (s *Service) AuthorizeRealmAction(ctx context.Context, caller, realmID model.Identity, action uint8) error {
	const op = "authorize_realm_action"
	start := time.Now()

	err := s.view(ctx, func(r repository.Reader) error {
		p, err := loadProfile(r, caller)
		if err != nil {
			return err
		}
		rl, err := loadRealm(r, realmID)
		if err != nil {
			return err
		}
		return realm.Authorize(p, rl, realm.Action(action))
	})
	return s.finish(ctx, op, start, err, idField("identity", caller), idField("realm", realmID), logger.Int("action", int(action)))
}
