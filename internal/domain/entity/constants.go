package entity

// Expense lifecycle statuses. The workflow engine owns exactly two
// transitions: draft -> waiting_approval at workflow start and
// waiting_approval -> approved/rejected at workflow completion.
const (
	ExpenseStatusDraft           = "draft"
	ExpenseStatusWaitingApproval = "waiting_approval"
	ExpenseStatusApproved        = "approved"
	ExpenseStatusRejected        = "rejected"
)

// Approval vote actions recorded in the audit log
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Built-in role ids
const (
	RoleAdmin    int64 = 1
	RoleManager  int64 = 2
	RoleEmployee int64 = 3
)
