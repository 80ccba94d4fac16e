package dispensa

import "strings"

type Role string

const (
	RoleEmployee    Role = "employee"
	RoleManager     Role = "manager"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

// ParseRole normalizes a role claim. Unknown values are returned as-is and
// carry no permissions.
func ParseRole(v string) Role {
	return Role(strings.ToLower(strings.TrimSpace(v)))
}

// approvers pairs each pending stage with the only role allowed to decide it.
var approvers = map[Stage]Role{
	StagePendingManager:     RoleManager,
	StagePendingCoordinator: RoleCoordinator,
	StagePendingAdmin:       RoleAdmin,
}

// CanAct reports whether role may approve or reject a request sitting at stage.
// There is no escalation: admin cannot act on PENDING_MANAGER.
func CanAct(role Role, stage Stage) bool {
	want, ok := approvers[stage]
	return ok && role == want
}

// ApproverFor returns the role that decides stage, if any.
func ApproverFor(stage Stage) (Role, bool) {
	r, ok := approvers[stage]
	return r, ok
}
