package models

import (
	"strings"

	dErrors "taskhub/pkg/domain-errors"
)

// Role is a member's permission tier inside one project. Ordering between
// roles lives in the policy package, not here.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleViewer   Role = "viewer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts the four role names case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "role must be one of owner, manager, employee, viewer")
	}
	return r, nil
}
