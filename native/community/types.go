package community

// ID uniquely identifies a community. Identifiers are derived from a
// monotonic counter at creation time.
type ID [32]byte

// Metadata carries the optional descriptive fields of a community. Empty
// strings denote unset fields.
type Metadata struct {
	Website     string
	SocialMedia string
	Category    string
	Tags        []string
}

// Community is the organizational entity owning achievements, memberships and
// rewards. The admin set is mutated only through AddAdmin/RemoveAdmin and is
// never empty.
type Community struct {
	ID           ID
	Name         string
	Description  string
	Admins       [][20]byte
	Achievements [][32]byte
	Memberships  [][32]byte
	Rewards      [][32]byte
	Metadata     Metadata
	CreatedAt    uint64
	UpdatedAt    uint64
}

// GlobalState is the process-wide singleton naming the protocol administrator.
type GlobalState struct {
	Admin   [20]byte
	Version uint64
}

// HasAdmin reports whether the identity is in the community's admin set.
func (c *Community) HasAdmin(addr [20]byte) bool {
	if c == nil {
		return false
	}
	for _, admin := range c.Admins {
		if admin == addr {
			return true
		}
	}
	return false
}
