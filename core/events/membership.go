package events

const (
	// TypeMembershipCatalogCreated is emitted when a membership catalog is
	// initialised for a community.
	TypeMembershipCatalogCreated = "membership.catalog.created"
	// TypeMembershipTierCreated is emitted when a tier is added to a catalog.
	TypeMembershipTierCreated = "membership.tier.created"
	// TypeMembershipMinted is emitted when a membership token is minted to a
	// recipient.
	TypeMembershipMinted = "membership.minted"
)

// MembershipCatalogCreated captures a new membership catalog.
type MembershipCatalogCreated struct {
	ID        [32]byte
	Community [32]byte
	Name      string
	MaxSupply uint64
}

// EventType implements the Event interface.
func (MembershipCatalogCreated) EventType() string { return TypeMembershipCatalogCreated }

// MembershipTierCreated captures a tier addition.
type MembershipTierCreated struct {
	Catalog [32]byte
	TierID  string
}

// EventType implements the Event interface.
func (MembershipTierCreated) EventType() string { return TypeMembershipTierCreated }

// MembershipMinted captures a membership token mint.
type MembershipMinted struct {
	Catalog   [32]byte
	TierID    string
	Recipient [20]byte
	Minted    uint64
}

// EventType implements the Event interface.
func (MembershipMinted) EventType() string { return TypeMembershipMinted }
