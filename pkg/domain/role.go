package domain

import (
	"strings"

	dErrors "claimdesk/pkg/domain-errors"
)

// Role is the coarse permission level of a principal.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at trust boundaries; direct casting bypasses validation.
type Role string

const (
	RolePolicyholder Role = "policyholder"
	RoleAdjuster     Role = "adjuster"
	RoleAdmin        Role = "admin"
)

var validRoles = map[Role]bool{
	RolePolicyholder: true,
	RoleAdjuster:     true,
	RoleAdmin:        true,
}

// ParseRole constructs a Role from external input. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsStaff reports whether the role adjudicates claims.
func (r Role) IsStaff() bool {
	return r == RoleAdjuster || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
