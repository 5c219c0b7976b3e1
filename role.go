package cloudbalance

import (
	"encoding/json"
	"strings"
)

// Role is a coarse-grained authorization tag carried by every user.
type Role string

const (
	RoleAdmin    Role = "ROLE_ADMIN"
	RoleReadOnly Role = "ROLE_READ_ONLY"
	RoleCustomer Role = "ROLE_CUSTOMER"
)

const rolePrefix = "ROLE_"

// Roles lists every role the API server knows about.
var Roles = []Role{RoleAdmin, RoleReadOnly, RoleCustomer}

// ParseRole accepts both the prefixed ("ROLE_ADMIN") and the bare ("ADMIN")
// spelling of a role, case-insensitively. The second return value is false if
// the string does not name a known role.
func ParseRole(str string) (Role, bool) {
	str = strings.ToUpper(strings.TrimSpace(str))
	if !strings.HasPrefix(str, rolePrefix) {
		str = rolePrefix + str
	}
	role := Role(str)
	return role, role.Valid()
}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Short returns the role without its "ROLE_" prefix, e.g. "READ_ONLY".
func (r Role) Short() string {
	return strings.TrimPrefix(string(r), rolePrefix)
}

// UnmarshalJSON normalizes bare role names to their prefixed form. Strings that
// name no known role are kept verbatim so that they can be reported.
func (r *Role) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if role, ok := ParseRole(str); ok {
		*r = role
		return nil
	}
	*r = Role(str)
	return nil
}
