package model

// Profile defaults applied at initialisation.
const (
	DefaultTrustMultiplier   uint64 = 100 // 1.00x
	DefaultDecayRate         uint8  = 2   // percent per 30 days
	DefaultAIValidationScore uint32 = 500
)

// MaxRealmMemberships caps the realms a profile can belong to.
const MaxRealmMemberships = 5

// Profile is a participant's reputation record.
//
// CategoryScores are mutated independently of TotalScore and are not
// guaranteed to sum to it.
type Profile struct {
	Identity           Identity                      `json:"identity"`
	TotalScore         uint64                        `json:"total_score"`
	CategoryScores     [CategoryCount]uint64         `json:"category_scores"`
	InteractionCount   uint32                        `json:"interaction_count"`
	Badges             BadgeSlots                    `json:"badges"`
	TrustMultiplier    uint64                        `json:"trust_multiplier"`
	LastActivity       int64                         `json:"last_activity"`
	DecayRate          uint8                         `json:"reputation_decay_rate"`
	DelegatedPower     uint64                        `json:"delegated_power"`
	DelegationReceived uint64                        `json:"delegation_received"`
	RealmMemberships   [MaxRealmMemberships]Identity `json:"realm_memberships"`
	AIValidationScore  uint32                        `json:"ai_validation_score"`
	CrossDAOReputation uint64                        `json:"cross_dao_reputation"`

	// DecayAnchor is the LastActivity value DecayedDays was counted from.
	// When LastActivity moves on, the days already charged reset to zero.
	DecayAnchor int64 `json:"decay_anchor"`
	DecayedDays int64 `json:"decayed_days"`
}

// NewProfile returns a zeroed profile with the engine defaults.
func NewProfile(id Identity) *Profile {
	return &Profile{
		Identity:          id,
		TrustMultiplier:   DefaultTrustMultiplier,
		DecayRate:         DefaultDecayRate,
		AIValidationScore: DefaultAIValidationScore,
	}
}

// IsMember reports whether the profile lists realm among its memberships.
func (p *Profile) IsMember(realm Identity) bool {
	if realm.IsZero() {
		return false
	}
	for _, m := range p.RealmMemberships {
		if m == realm {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. All fields are values, so a shallow copy suffices.
func (p *Profile) Clone() *Profile {
	c := *p
	return &c
}
