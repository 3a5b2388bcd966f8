package events

const (
	// TypeRewardCreated is emitted when a reward definition is added to a
	// community's catalog.
	TypeRewardCreated = "reward.created"
	// TypeRewardIssued is emitted when a reward is issued to a user. TokenID
	// is zero for fungible issuance.
	TypeRewardIssued = "reward.issued"
)

// RewardCreated captures a new reward definition.
type RewardCreated struct {
	ID        [32]byte
	Community [32]byte
	Name      string
	Variant   uint8
}

// EventType implements the Event interface.
func (RewardCreated) EventType() string { return TypeRewardCreated }

// RewardIssued captures an issuance of a reward to a user.
type RewardIssued struct {
	ID        [32]byte
	Community [32]byte
	User      [20]byte
	Amount    uint64
	TokenID   uint64
}

// EventType implements the Event interface.
func (RewardIssued) EventType() string { return TypeRewardIssued }
