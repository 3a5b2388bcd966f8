package events

const (
	// TypeCommunityCreated is emitted when a community is first registered.
	TypeCommunityCreated = "community.created"
	// TypeCommunityUpdated is emitted when a community's name or description
	// changes.
	TypeCommunityUpdated = "community.updated"
	// TypeCommunityAdminAdded is emitted when an identity joins a community's
	// admin set.
	TypeCommunityAdminAdded = "community.admin.added"
	// TypeCommunityAdminRemoved is emitted when an identity leaves a
	// community's admin set.
	TypeCommunityAdminRemoved = "community.admin.removed"
	// TypeGlobalAdminRotated is emitted when the protocol-wide administrator
	// changes.
	TypeGlobalAdminRotated = "community.globaladmin.rotated"
)

// CommunityCreated captures the key metadata of a newly created community.
type CommunityCreated struct {
	ID      [32]byte
	Creator [20]byte
	Name    string
}

// EventType implements the Event interface.
func (CommunityCreated) EventType() string { return TypeCommunityCreated }

// CommunityUpdated captures the mutable fields of a community after an update.
type CommunityUpdated struct {
	ID   [32]byte
	Name string
}

// EventType implements the Event interface.
func (CommunityUpdated) EventType() string { return TypeCommunityUpdated }

// CommunityAdminAdded captures an admin-set addition.
type CommunityAdminAdded struct {
	ID     [32]byte
	Caller [20]byte
	Admin  [20]byte
}

// EventType implements the Event interface.
func (CommunityAdminAdded) EventType() string { return TypeCommunityAdminAdded }

// CommunityAdminRemoved captures an admin-set removal.
type CommunityAdminRemoved struct {
	ID     [32]byte
	Caller [20]byte
	Admin  [20]byte
}

// EventType implements the Event interface.
func (CommunityAdminRemoved) EventType() string { return TypeCommunityAdminRemoved }

// GlobalAdminRotated captures a rotation of the protocol administrator.
type GlobalAdminRotated struct {
	OldAdmin [20]byte
	NewAdmin [20]byte
	Version  uint64
}

// EventType implements the Event interface.
func (GlobalAdminRotated) EventType() string { return TypeGlobalAdminRotated }
