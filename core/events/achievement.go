package events

const (
	// TypeAchievementCreated is emitted when an achievement definition is
	// added to a community's catalog.
	TypeAchievementCreated = "achievement.created"
	// TypeAchievementAwarded is emitted when an achievement is granted to a
	// user.
	TypeAchievementAwarded = "achievement.awarded"
)

// AchievementCreated captures a new achievement definition.
type AchievementCreated struct {
	ID        [32]byte
	Community [32]byte
	Name      string
	Points    uint32
	Variant   uint8
}

// EventType implements the Event interface.
func (AchievementCreated) EventType() string { return TypeAchievementCreated }

// AchievementAwarded captures a grant of an achievement to a user. Edition is
// zero for plain and fungible achievements.
type AchievementAwarded struct {
	ID        [32]byte
	Community [32]byte
	User      [20]byte
	Edition   uint64
}

// EventType implements the Event interface.
func (AchievementAwarded) EventType() string { return TypeAchievementAwarded }
