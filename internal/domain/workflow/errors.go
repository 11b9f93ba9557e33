package workflow

import "errors"

var (
	// ErrNoActiveWorkflow is returned when a vote arrives for an expense
	// with no pending workflow instance
	ErrNoActiveWorkflow = errors.New("no active workflow for expense")

	// ErrNotEligibleApprover is returned when the voter holds no pending
	// approval at the instance's current step
	ErrNotEligibleApprover = errors.New("not an eligible pending approver")

	// ErrNoSteps is returned when a workflow is started with no steps defined
	ErrNoSteps = errors.New("workflow has no steps")

	// ErrNoApprovers is returned when the first step of a workflow
	// resolves to an empty approver pool at start time
	ErrNoApprovers = errors.New("step resolves to no approvers")

	// ErrInstanceAlreadyActive is returned when a workflow start is
	// attempted for an expense that already has a pending instance
	ErrInstanceAlreadyActive = errors.New("expense already has an active workflow instance")

	// ErrExpenseNotFound is returned when the referenced expense does not exist
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrWorkflowNotFound is returned when the referenced workflow does not exist
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExpenseNotSubmittable is returned when an expense is not in a
	// state that allows submission for approval
	ErrExpenseNotSubmittable = errors.New("expense cannot be submitted in its current status")
)
