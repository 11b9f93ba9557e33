package workflow

// ApproverKind identifies how a step row names its approvers
type ApproverKind string

const (
	ApproverUser    ApproverKind = "user"
	ApproverRole    ApproverKind = "role"
	ApproverManager ApproverKind = "manager"
)

// ApproverSpec is the approver source of a single workflow step row.
// Multiple rows may share a step number; the step's pool is the
// de-duplicated union of their resolved users.
type ApproverSpec interface {
	Kind() ApproverKind

	sealed()
}

// UserApprover names one specific user
type UserApprover struct {
	UserID int64
}

// RoleApprover names every active user in the company holding a role
type RoleApprover struct {
	RoleID int64
}

// ManagerApprover names the expense requester's configured manager(s),
// falling back to all active managers in the company when none exist
type ManagerApprover struct{}

func (UserApprover) Kind() ApproverKind    { return ApproverUser }
func (RoleApprover) Kind() ApproverKind    { return ApproverRole }
func (ManagerApprover) Kind() ApproverKind { return ApproverManager }

func (UserApprover) sealed()    {}
func (RoleApprover) sealed()    {}
func (ManagerApprover) sealed() {}
