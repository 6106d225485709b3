package model

// Realm creation defaults.
const (
	MaxRealmAdmins          = 3
	MaxRealmNameBytes       = 32
	DefaultDecayFactor      = 2
	DefaultCrossRealmFactor = 10
	DefaultMinReputation    = 50
	DefaultVotingPeriod     = 3 * 24 * 3600
)

// Algorithm is a realm's scoring parameter block.
type Algorithm struct {
	Weights          [CategoryCount]uint16 `json:"weights"`
	DecayFactor      uint8                 `json:"decay_factor"`
	AIEnhancement    bool                  `json:"ai_enhancement"`
	CrossRealmFactor uint8                 `json:"cross_realm_factor"`
}

// Realm is a governance community.
type Realm struct {
	Identity               Identity                 `json:"identity"`
	Name                   string                   `json:"name"`
	Admins                 [MaxRealmAdmins]Identity `json:"admin_wallets"`
	Algorithm              Algorithm                `json:"algorithm"`
	TotalMembers           uint32                   `json:"total_members"`
	ActiveProposals        uint16                   `json:"active_proposals"`
	TreasuryBalance        uint64                   `json:"treasury_balance"`
	GovernanceToken        *Identity                `json:"governance_token,omitempty"`
	MinReputationThreshold uint64                   `json:"min_reputation_threshold"`
	VotingPeriodSeconds    uint32                   `json:"voting_period"`
	CrossRealmEnabled      bool                     `json:"cross_realm_enabled"`
	AIModerationEnabled    bool                     `json:"ai_moderation_enabled"`
	CreatedAt              int64                    `json:"created_at"`
}

// IsAdmin reports whether id is one of the realm's admins.
func (r *Realm) IsAdmin(id Identity) bool {
	if id.IsZero() {
		return false
	}
	for _, a := range r.Admins {
		if a == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (r *Realm) Clone() *Realm {
	c := *r
	if r.GovernanceToken != nil {
		t := *r.GovernanceToken
		c.GovernanceToken = &t
	}
	return &c
}

// RealmIdentity derives a realm's identity from its name, mirroring
// name-keyed realm addressing.
func RealmIdentity(name string) Identity {
	return Identity("realm:" + name)
}
