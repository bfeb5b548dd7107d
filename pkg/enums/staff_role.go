package enums

import "fmt"

// StaffRole represents a warehouse-level permissions role.
type StaffRole string

const (
	StaffRoleManager    StaffRole = "manager"
	StaffRoleCollector  StaffRole = "collector"
	StaffRoleCourier    StaffRole = "courier"
	StaffRoleSuperAdmin StaffRole = "super_admin"
)

var validStaffRoles = []StaffRole{
	StaffRoleManager,
	StaffRoleCollector,
	StaffRoleCourier,
	StaffRoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanOverrideTransitions reports whether the role may jump between
// non-adjacent statuses.
func (r StaffRole) CanOverrideTransitions() bool {
	return r == StaffRoleManager || r == StaffRoleSuperAdmin
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
