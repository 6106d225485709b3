// Package scoring computes the reputation delta of a single interaction and
// applies it to the giver and receiver profiles.
package scoring

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/okian/realmrep/internal/domain/fixedpoint"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/rules"
)

// Input bounds for an interaction.
const (
	MinWeight      uint16 = 1
	MaxWeight      uint16 = 1000
	MaxMetadataLen        = 256
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithIDGenerator overrides how event IDs are minted.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// Input is one interaction request as seen by the engine.
type Input struct {
	Type     uint8
	Weight   uint16
	Metadata string
	Now      int64
}

// Result is the outcome of scoring an interaction.
type Result struct {
	Delta    uint64
	Category model.Category
	Event    model.InteractionEvent
}

// Engine is the deterministic interaction scoring pipeline.
type Engine struct {
	newID func() uuid.UUID
}

// NewEngine creates a scoring engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{newID: uuid.New}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckInput validates the raw interaction parameters. It runs before any
// other check so malformed requests never touch state.
func CheckInput(in Input) error {
	if _, ok := fixedpoint.BaseDelta(in.Type); !ok {
		return rules.ErrInvalidInteractionType
	}
	if in.Weight < MinWeight || in.Weight > MaxWeight {
		return rules.ErrWeightTooHigh
	}
	if len(in.Metadata) > MaxMetadataLen {
		return rules.ErrMetadataTooLong
	}
	return nil
}

// Score runs the pipeline without mutating either profile.
func (e *Engine) Score(from, to *model.Profile, in Input) (Result, error) {
	if err := CheckInput(in); err != nil {
		return Result{}, err
	}

	delta := Delta(from, to, in.Type, in.Weight, in.Now)
	return Result{
		Delta:    delta,
		Category: CategoryForInteraction(in.Type),
		Event: model.InteractionEvent{
			ID:              e.newID(),
			From:            from.Identity,
			To:              to.Identity,
			Type:            in.Type,
			Weight:          in.Weight,
			MetadataHash:    HashMetadata(in.Metadata),
			ReputationDelta: delta,
			Timestamp:       in.Now,
		},
	}, nil
}

// Delta computes the posted reputation delta. The type must already be valid.
//
// The interaction cap applies before the AI and trust multipliers, so the
// result can exceed the cap.
func Delta(from, to *model.Profile, interactionType uint8, weight uint16, now int64) uint64 {
	base, _ := fixedpoint.BaseDelta(interactionType)
	weighted := fixedpoint.SatMul(base, uint64(weight)) / fixedpoint.Scale

	giver := fixedpoint.InfluenceMultiplier(from.TotalScore)
	resistance := fixedpoint.ResistanceFactor(to.TotalScore)
	bonus := fixedpoint.ActivityBonus(fixedpoint.SatSubInt64(now, from.LastActivity))

	raw := fixedpoint.SatMul(fixedpoint.SatMul(weighted, giver), bonus) / resistance
	capped := min(raw, fixedpoint.InteractionCap)

	delta := fixedpoint.Pct(capped, fixedpoint.AIMultiplier(from.AIValidationScore))
	trust := max(from.TrustMultiplier, 1)
	return fixedpoint.Pct(delta, trust)
}

// Apply posts a scored result: the receiver gains the delta in total and in
// its category, both sides are stamped active at the event time.
func (e *Engine) Apply(from, to *model.Profile, res Result) {
	to.TotalScore = fixedpoint.SatAdd(to.TotalScore, res.Delta)
	to.CategoryScores[res.Category] = fixedpoint.SatAdd(to.CategoryScores[res.Category], res.Delta)
	if to.InteractionCount < ^uint32(0) {
		to.InteractionCount++
	}
	to.LastActivity = res.Event.Timestamp
	from.LastActivity = res.Event.Timestamp
}

// CategoryForInteraction maps an interaction type to the category it credits.
func CategoryForInteraction(interactionType uint8) model.Category {
	switch interactionType {
	case 3, 4:
		return model.Development
	case 6:
		return model.Security
	case 7:
		return model.Innovation
	case 9:
		return model.Governance
	default:
		return model.Community
	}
}

// HashMetadata returns the keccak-256 digest of the interaction metadata.
func HashMetadata(metadata string) model.Hash {
	var out model.Hash
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(metadata))
	h.Sum(out[:0])
	return out
}
