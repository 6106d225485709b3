// Package rules defines the rejection taxonomy shared by every reputation
// rule. A rejection is terminal for the current transition and carries a
// stable reason code for the caller.
package rules

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection.
type Kind uint8

// Rejection kinds.
const (
	KindUnknown Kind = iota
	KindInputValidation
	KindAuthorization
	KindRateLimited
	KindStateConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInputValidation:
		return "input_validation"
	case KindAuthorization:
		return "authorization"
	case KindRateLimited:
		return "rate_limited"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a rule rejection. Sentinels are compared by identity with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Input validation.
var (
	ErrInvalidInteractionType = newError(KindInputValidation, "InvalidInteractionType", "invalid interaction type")
	ErrWeightTooHigh          = newError(KindInputValidation, "WeightTooHigh", "weight out of range")
	ErrMetadataTooLong        = newError(KindInputValidation, "MetadataTooLong", "metadata string too long")
	ErrInvalidActionType      = newError(KindInputValidation, "InvalidActionType", "invalid action type")
	ErrRealmNameTooLong       = newError(KindInputValidation, "RealmNameTooLong", "realm name too long")
	ErrInvalidAlgorithmWeight = newError(KindInputValidation, "InvalidAlgorithmWeights", "invalid algorithm weights")
	ErrInvalidBadgeProof      = newError(KindInputValidation, "InvalidBadgeProof", "invalid badge type")
	ErrDelegationTooHigh      = newError(KindInputValidation, "DelegationTooHigh", "delegation percentage out of range")
	ErrBridgeOperationFailed  = newError(KindInputValidation, "BridgeOperationFailed", "bridge weight must be positive")
)

// Authorization failures.
var (
	ErrInsufficientReputation = newError(KindAuthorization, "InsufficientReputation", "insufficient reputation for this action")
	ErrNotRealmMember         = newError(KindAuthorization, "NotRealmMember", "not a member of this realm")
	ErrAdminRequired          = newError(KindAuthorization, "AdminRequired", "admin privileges required")
	ErrCrossRealmDisabled     = newError(KindAuthorization, "CrossRealmDisabled", "cross-realm operations disabled")
)

// Rate limiting.
var (
	ErrCooldownActive     = newError(KindRateLimited, "CooldownActive", "cooldown period still active")
	ErrDailyLimitExceeded = newError(KindRateLimited, "DailyLimitExceeded", "daily interaction limit exceeded")
)

// State conflicts.
var (
	ErrSelfInteraction      = newError(KindStateConflict, "SelfInteractionForbidden", "cannot interact with yourself")
	ErrSelfDelegation       = newError(KindStateConflict, "SelfDelegationForbidden", "cannot delegate to yourself")
	ErrBadgeAlreadyClaimed  = newError(KindStateConflict, "BadgeAlreadyClaimed", "badge already claimed")
	ErrProfileMismatch      = newError(KindStateConflict, "ProfileNotInitialized", "delegatee profile does not match target")
	ErrProfileAlreadyExists = newError(KindStateConflict, "ProfileAlreadyExists", "profile already initialized")
	ErrRealmAlreadyExists   = newError(KindStateConflict, "RealmAlreadyExists", "realm already exists")
	ErrMembershipFull       = newError(KindStateConflict, "MembershipFull", "realm membership slots exhausted")
)

// Missing records.
var (
	ErrProfileNotFound = newError(KindNotFound, "ProfileNotInitialized", "profile not initialized")
	ErrRealmNotFound   = newError(KindNotFound, "RealmNotFound", "realm not found")
)

// KindOf returns the rejection kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// CodeOf returns the reason code of err, or "Unknown".
func CodeOf(err error) string {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return "Unknown"
}

// Wrap prefixes err with the operation name, keeping errors.Is intact.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
