package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles carried in the access token.
type Role string

const (
	RoleUser       Role = "User"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "SuperAdmin"
)

var roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole matches s against the known roles, ignoring case.
func ParseRole(s string) (Role, error) {
	for _, known := range roles {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}
