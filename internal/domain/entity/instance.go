package entity

import (
	"time"

	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// ExpenseWorkflowInstance is the live execution state of a workflow for
// one expense. WorkflowID is nil for the fallback single-step manager
// approval used when no workflow rule matches the expense.
// At most one pending instance exists per expense.
type ExpenseWorkflowInstance struct {
	ID          int64                   `json:"id"`
	ExpenseID   int64                   `json:"expense_id"`
	WorkflowID  *int64                  `json:"workflow_id,omitempty"`
	CurrentStep int                     `json:"current_step"`
	Status      workflow.InstanceStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

// WorkflowApproval is one approver's vote slot at one step of an
// instance. It is created pending when the step opens and its status is
// terminal once decided.
type WorkflowApproval struct {
	ID         int64               `json:"id"`
	InstanceID int64               `json:"instance_id"`
	StepNumber int                 `json:"step_number"`
	ApproverID int64               `json:"approver_id"`
	Status     workflow.VoteStatus `json:"status"`
	Comment    string              `json:"comment,omitempty"`
	DecidedAt  *time.Time          `json:"decided_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Vote projects the approval row into the pure tally input
func (a WorkflowApproval) Vote() workflow.Vote {
	return workflow.Vote{ApproverID: a.ApproverID, Status: a.Status}
}

// ApprovalAction is one append-only audit record of a vote
type ApprovalAction struct {
	ID         int64     `json:"id"`
	ExpenseID  int64     `json:"expense_id"`
	ApproverID int64     `json:"approver_id"`
	Action     string    `json:"action"`
	Comment    string    `json:"comment,omitempty"`
	StepNumber int       `json:"step_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// PendingApproval is one row of an approver's queue: an expense waiting
// on the caller's vote at the instance's current step
type PendingApproval struct {
	ExpenseID      int64      `json:"expense_id"`
	Title          string     `json:"title"`
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	RequesterName  string     `json:"requester_name"`
	RequesterEmail string     `json:"requester_email"`
	CategoryName   string     `json:"category_name,omitempty"`
	WorkflowName   string     `json:"workflow_name,omitempty"`
	StepNumber     int        `json:"step_number"`
	StepName       string     `json:"step_name,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}

// Votes projects a step's approval rows into tally input
func Votes(approvals []WorkflowApproval) []workflow.Vote {
	votes := make([]workflow.Vote, len(approvals))
	for i, a := range approvals {
		votes[i] = a.Vote()
	}
	return votes
}
