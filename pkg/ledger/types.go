package ledger

import (
	"github.com/okian/realmrep/internal/adapters/mq/worker"
	service "github.com/okian/realmrep/internal/app"
	"github.com/okian/realmrep/internal/config"
	"github.com/okian/realmrep/internal/domain/decay"
	"github.com/okian/realmrep/internal/domain/model"
	"github.com/okian/realmrep/internal/domain/realm"
	"github.com/okian/realmrep/internal/domain/rules"
	"github.com/okian/realmrep/internal/domain/sybil"
)

// Records and results returned by Ledger operations.
type (
	Identity         = model.Identity
	Hash             = model.Hash
	Category         = model.Category
	Profile          = model.Profile
	Realm            = model.Realm
	Algorithm        = model.Algorithm
	BadgeKind        = model.BadgeKind
	BadgeReceipt     = model.BadgeReceipt
	InteractionEvent = model.InteractionEvent
	DelegationEdge   = model.DelegationEdge
	Action           = realm.Action
	DecayResult      = decay.Result
	SweepReport      = service.SweepReport
	SybilEstimate    = sybil.Estimate
	Config           = config.Config
	Kind             = rules.Kind
)

// Publisher receives every committed InteractionEvent from the sink.
type Publisher = worker.Publisher

// Score categories.
const (
	Development   = model.Development
	Governance    = model.Governance
	Community     = model.Community
	Innovation    = model.Innovation
	Security      = model.Security
	CategoryCount = model.CategoryCount
)

// Realm actions checked by AuthorizeRealmAction.
const (
	ActionVote    = realm.ActionVote
	ActionPropose = realm.ActionPropose
	ActionAdmin   = realm.ActionAdmin
)

// Rejection kinds reported by KindOf.
const (
	KindUnknown         = rules.KindUnknown
	KindInputValidation = rules.KindInputValidation
	KindAuthorization   = rules.KindAuthorization
	KindRateLimited     = rules.KindRateLimited
	KindStateConflict   = rules.KindStateConflict
	KindNotFound        = rules.KindNotFound
)

// RealmIdentity derives the identity a realm is stored under from its name.
func RealmIdentity(name string) Identity { return model.RealmIdentity(name) }

// KindOf classifies an error returned by a Ledger operation.
func KindOf(err error) Kind { return rules.KindOf(err) }

// CodeOf returns the stable reason code of a rejection, e.g. "CooldownActive".
func CodeOf(err error) string { return rules.CodeOf(err) }
