package enums

import "fmt"

// AssignmentRole names the slot a staff member fills on an order.
type AssignmentRole string

const (
	AssignmentRoleCollector AssignmentRole = "collector"
	AssignmentRoleCourier   AssignmentRole = "courier"
)

var validAssignmentRoles = []AssignmentRole{
	AssignmentRoleCollector,
	AssignmentRoleCourier,
}

// String implements fmt.Stringer.
func (r AssignmentRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AssignmentRole.
func (r AssignmentRole) IsValid() bool {
	for _, candidate := range validAssignmentRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAssignmentRole converts raw input into an AssignmentRole.
func ParseAssignmentRole(value string) (AssignmentRole, error) {
	for _, candidate := range validAssignmentRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment role %q", value)
}
