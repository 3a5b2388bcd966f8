package community

import (
	"fmt"
	"strings"
)

// Policy selects which authority may drive gated catalog operations. The
// protocol's deployments historically shipped one operation set gated on the
// protocol admin and another gated on community admins; the policy folds both
// behind a single configuration knob.
type Policy uint8

const (
	// PolicyCommunityAdmin requires the caller to be in the target
	// community's admin set.
	PolicyCommunityAdmin Policy = iota
	// PolicyGlobalAdmin requires the caller to be the protocol admin.
	PolicyGlobalAdmin
	// PolicyEither accepts either authority.
	PolicyEither
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "community":
		return PolicyCommunityAdmin, nil
	case "global":
		return PolicyGlobalAdmin, nil
	case "either":
		return PolicyEither, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

func (p Policy) String() string {
	switch p {
	case PolicyCommunityAdmin:
		return "community"
	case PolicyGlobalAdmin:
		return "global"
	case PolicyEither:
		return "either"
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// authorize evaluates the policy against freshly loaded state. It is a pure
// function of its inputs so callers can never act on a stale admin set.
func authorize(policy Policy, caller [20]byte, c *Community, global *GlobalState) error {
	isCommunityAdmin := c.HasAdmin(caller)
	isGlobalAdmin := global != nil && global.Admin == caller
	switch policy {
	case PolicyCommunityAdmin:
		if isCommunityAdmin {
			return nil
		}
	case PolicyGlobalAdmin:
		if isGlobalAdmin {
			return nil
		}
	case PolicyEither:
		if isCommunityAdmin || isGlobalAdmin {
			return nil
		}
	default:
		return fmt.Errorf("%w: %d", ErrInvalidPolicy, uint8(policy))
	}
	return ErrUnauthorized
}
