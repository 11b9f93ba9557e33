package port

import (
	"context"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// WorkflowRepository defines persistence operations for workflow
// templates: the workflow itself plus its steps, conditions and
// selection rules. Templates are read-only during evaluation.
type WorkflowRepository interface {
	Create(ctx context.Context, wf *entity.Workflow) error
	GetByID(ctx context.Context, id int64) (*entity.Workflow, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*entity.WorkflowSummary, error)
	SetActive(ctx context.Context, id int64, active bool) error

	CreateStep(ctx context.Context, step *entity.WorkflowStep) error
	GetSteps(ctx context.Context, workflowID int64) ([]entity.WorkflowStep, error)

	CreateCondition(ctx context.Context, workflowID int64, cond workflow.Condition) error
	GetConditions(ctx context.Context, workflowID int64) ([]workflow.Condition, error)

	CreateRule(ctx context.Context, rule *entity.WorkflowRule) error

	// ListSelectableRules returns the active rules of active workflows
	// for one company and currency; amount and category filtering is
	// done by the selector
	ListSelectableRules(ctx context.Context, companyID int64, currency string) ([]entity.WorkflowRule, error)
}

// InstanceRepository defines persistence operations for
// ExpenseWorkflowInstance rows
type InstanceRepository interface {
	Create(ctx context.Context, inst *entity.ExpenseWorkflowInstance) error

	// GetActiveByExpense returns the pending instance for an expense,
	// nil when none exists
	GetActiveByExpense(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error)

	// GetLatestByExpense returns the most recently created instance
	// regardless of status, nil when the expense never entered a workflow
	GetLatestByExpense(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error)

	UpdateCurrentStep(ctx context.Context, id int64, step int) error

	// Finish moves the instance to a terminal status and stamps completed_at
	Finish(ctx context.Context, id int64, status workflow.InstanceStatus) error
}

// ApprovalRepository defines persistence operations for per-approver
// vote rows
type ApprovalRepository interface {
	Create(ctx context.Context, approval *entity.WorkflowApproval) error

	GetByInstanceAndStep(ctx context.Context, instanceID int64, stepNumber int) ([]entity.WorkflowApproval, error)

	// Decide flips the matching pending row to the given status and
	// reports whether such a row existed. A false return means the voter
	// is not an eligible pending approver at this step.
	Decide(ctx context.Context, instanceID int64, stepNumber int, approverID int64, status workflow.VoteStatus, comment string) (bool, error)

	// ListPendingForUser returns the expenses waiting on the given
	// user's vote at their instance's current step
	ListPendingForUser(ctx context.Context, companyID, userID int64) ([]entity.PendingApproval, error)

	// ListWaitingForCompany returns every expense in the company waiting
	// for approval, for admin queues
	ListWaitingForCompany(ctx context.Context, companyID int64) ([]entity.PendingApproval, error)
}

// ExpenseRepository is the expense store as seen by the engine: read
// the expense, write its status and workflow pointers
type ExpenseRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	UpdateStatus(ctx context.Context, id int64, status string) error

	// MarkSubmitted moves the expense to waiting_approval and stamps
	// submitted_at
	MarkSubmitted(ctx context.Context, id int64) error
	SetWorkflowPointer(ctx context.Context, id int64, workflowID *int64, step *int) error
	ListByCompany(ctx context.Context, companyID int64) ([]*entity.Expense, error)
}

// UserDirectory is the user/company directory consumed by the approver
// resolver
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByRole(ctx context.Context, companyID, roleID int64, activeOnly bool) ([]*entity.User, error)
	GetManagersOf(ctx context.Context, userID int64) ([]*entity.User, error)
}

// AuditLogRepository is the append-only vote audit sink
type AuditLogRepository interface {
	Create(ctx context.Context, action *entity.ApprovalAction) error
	GetByExpense(ctx context.Context, expenseID int64) ([]entity.ApprovalAction, error)
}

// TransactionManager handles database transactions. Every
// instance-mutating operation of the engine runs from read-votes
// through write-advance inside one transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
