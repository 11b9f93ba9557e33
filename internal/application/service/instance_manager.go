package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// Vote outcome statuses returned to callers
const (
	VoteOutcomePending  = "pending"
	VoteOutcomeAdvanced = "moved_to_next_step"
	VoteOutcomeApproved = "approved"
	VoteOutcomeRejected = "rejected"
)

// VoteResult describes what a recorded vote did to the instance
type VoteResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CurrentStep int    `json:"current_step,omitempty"`
}

// SubmitResult describes how an expense entered approval
type SubmitResult struct {
	Instance *entity.ExpenseWorkflowInstance `json:"instance"`

	// Workflow is nil when the fallback single-step manager approval
	// was used
	Workflow *entity.Workflow `json:"workflow,omitempty"`

	Approvers []int64 `json:"approvers"`
}

// InstanceManager owns per-expense workflow instances: it starts
// workflows, records votes, consults the rule evaluator and advances or
// finalizes instances. Every mutating operation runs inside one
// transaction so concurrent votes on the same step serialize.
type InstanceManager interface {
	// Submit selects the applicable workflow for the expense and starts
	// it, falling back to a single manager-approval step when no rule
	// matches
	Submit(ctx context.Context, expenseID int64) (*SubmitResult, error)

	// StartWorkflow starts a specific workflow for an expense
	StartWorkflow(ctx context.Context, expenseID, workflowID int64) (*SubmitResult, error)

	// RecordVote applies one approver's decision to the active instance
	RecordVote(ctx context.Context, expenseID, approverID int64, decision workflow.VoteStatus, comment string) (*VoteResult, error)
}

type instanceManager struct {
	workflowRepo port.WorkflowRepository
	instanceRepo port.InstanceRepository
	approvalRepo port.ApprovalRepository
	expenseRepo  port.ExpenseRepository
	auditRepo    port.AuditLogRepository
	selector     *WorkflowSelector
	resolver     *ApproverResolver
	txManager    port.TransactionManager
	logger       *zap.Logger
}

// NewInstanceManager creates a new instance manager
func NewInstanceManager(
	workflowRepo port.WorkflowRepository,
	instanceRepo port.InstanceRepository,
	approvalRepo port.ApprovalRepository,
	expenseRepo port.ExpenseRepository,
	auditRepo port.AuditLogRepository,
	selector *WorkflowSelector,
	resolver *ApproverResolver,
	txManager port.TransactionManager,
	logger *zap.Logger,
) InstanceManager {
	return &instanceManager{
		workflowRepo: workflowRepo,
		instanceRepo: instanceRepo,
		approvalRepo: approvalRepo,
		expenseRepo:  expenseRepo,
		auditRepo:    auditRepo,
		selector:     selector,
		resolver:     resolver,
		txManager:    txManager,
		logger:       logger,
	}
}

// Submit selects a workflow for the expense and starts it
func (m *instanceManager) Submit(ctx context.Context, expenseID int64) (*SubmitResult, error) {
	expense, err := m.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %d: %w", expenseID, workflow.ErrExpenseNotFound)
	}
	if expense.Status != entity.ExpenseStatusDraft {
		return nil, fmt.Errorf("expense %d is %s: %w", expenseID, expense.Status, workflow.ErrExpenseNotSubmittable)
	}

	wf, err := m.selector.Select(ctx, expense.CompanyID, expense.Amount, expense.Currency, expense.CategoryID)
	if err != nil {
		return nil, err
	}

	var result *SubmitResult
	err = m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if wf == nil {
			result, err = m.startFallback(txCtx, expense)
		} else {
			result, err = m.start(txCtx, expense, wf)
		}
		return err
	})
	if err != nil {
		m.logger.Error("Failed to submit expense", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, err
	}

	m.logger.Info("Expense submitted for approval",
		zap.Int64("expense_id", expenseID),
		zap.Bool("fallback", wf == nil),
		zap.Int("approvers", len(result.Approvers)))

	return result, nil
}

// StartWorkflow starts a specific workflow for an expense
func (m *instanceManager) StartWorkflow(ctx context.Context, expenseID, workflowID int64) (*SubmitResult, error) {
	expense, err := m.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %d: %w", expenseID, workflow.ErrExpenseNotFound)
	}

	wf, err := m.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow %d: %w", workflowID, workflow.ErrWorkflowNotFound)
	}

	var result *SubmitResult
	err = m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		result, err = m.start(txCtx, expense, wf)
		return err
	})
	if err != nil {
		m.logger.Error("Failed to start workflow",
			zap.Int64("expense_id", expenseID),
			zap.Int64("workflow_id", workflowID),
			zap.Error(err))
		return nil, err
	}

	return result, nil
}

// ensureNoActiveInstance enforces the one-pending-instance-per-expense
// rule. It runs inside the start transaction so two concurrent starts
// cannot both pass; the partial unique index on expense_workflows backs
// it at the schema level.
func (m *instanceManager) ensureNoActiveInstance(ctx context.Context, expenseID int64) error {
	active, err := m.instanceRepo.GetActiveByExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if active != nil {
		return fmt.Errorf("expense %d: %w", expenseID, workflow.ErrInstanceAlreadyActive)
	}
	return nil
}

// start creates the instance at the workflow's first step and opens the
// step's approval rows. Runs inside the caller's transaction.
func (m *instanceManager) start(ctx context.Context, expense *entity.Expense, wf *entity.Workflow) (*SubmitResult, error) {
	if err := m.ensureNoActiveInstance(ctx, expense.ID); err != nil {
		return nil, err
	}

	steps, err := m.workflowRepo.GetSteps(ctx, wf.ID)
	if err != nil {
		return nil, err
	}

	idx := entity.NewStepIndex(steps)
	first, ok := idx.First()
	if !ok {
		return nil, fmt.Errorf("workflow %d: %w", wf.ID, workflow.ErrNoSteps)
	}

	approvers, err := m.resolver.Resolve(ctx, idx.At(first), expense)
	if err != nil {
		return nil, err
	}
	if len(approvers) == 0 {
		return nil, fmt.Errorf("workflow %d step %d: %w", wf.ID, first, workflow.ErrNoApprovers)
	}

	inst := &entity.ExpenseWorkflowInstance{
		ExpenseID:   expense.ID,
		WorkflowID:  &wf.ID,
		CurrentStep: first,
		Status:      workflow.InstancePending,
	}
	if err := m.instanceRepo.Create(ctx, inst); err != nil {
		return nil, err
	}

	if err := m.openStep(ctx, inst.ID, first, approvers); err != nil {
		return nil, err
	}

	if err := m.expenseRepo.MarkSubmitted(ctx, expense.ID); err != nil {
		return nil, err
	}
	if err := m.expenseRepo.SetWorkflowPointer(ctx, expense.ID, &wf.ID, &first); err != nil {
		return nil, err
	}

	return &SubmitResult{Instance: inst, Workflow: wf, Approvers: approvers}, nil
}

// startFallback creates a workflow-less single-step instance approved
// by the requester's manager(s) under the implicit unanimous rule
func (m *instanceManager) startFallback(ctx context.Context, expense *entity.Expense) (*SubmitResult, error) {
	if err := m.ensureNoActiveInstance(ctx, expense.ID); err != nil {
		return nil, err
	}

	fallbackStep := []entity.WorkflowStep{{
		StepNumber: 1,
		StepName:   "Manager Approval",
		Approver:   workflow.ManagerApprover{},
	}}

	approvers, err := m.resolver.Resolve(ctx, fallbackStep, expense)
	if err != nil {
		return nil, err
	}
	if len(approvers) == 0 {
		return nil, fmt.Errorf("expense %d fallback approval: %w", expense.ID, workflow.ErrNoApprovers)
	}

	inst := &entity.ExpenseWorkflowInstance{
		ExpenseID:   expense.ID,
		CurrentStep: 1,
		Status:      workflow.InstancePending,
	}
	if err := m.instanceRepo.Create(ctx, inst); err != nil {
		return nil, err
	}

	if err := m.openStep(ctx, inst.ID, 1, approvers); err != nil {
		return nil, err
	}

	if err := m.expenseRepo.MarkSubmitted(ctx, expense.ID); err != nil {
		return nil, err
	}
	step := 1
	if err := m.expenseRepo.SetWorkflowPointer(ctx, expense.ID, nil, &step); err != nil {
		return nil, err
	}

	return &SubmitResult{Instance: inst, Approvers: approvers}, nil
}

// openStep creates one pending approval row per resolved approver
func (m *instanceManager) openStep(ctx context.Context, instanceID int64, stepNumber int, approvers []int64) error {
	for _, approverID := range approvers {
		approval := &entity.WorkflowApproval{
			InstanceID: instanceID,
			StepNumber: stepNumber,
			ApproverID: approverID,
			Status:     workflow.VotePending,
		}
		if err := m.approvalRepo.Create(ctx, approval); err != nil {
			return err
		}
	}
	return nil
}

// RecordVote applies one approver's decision. The vote update, the
// completion check and the advance-or-finalize step form one atomic
// unit so two concurrent votes cannot both complete the same step.
func (m *instanceManager) RecordVote(ctx context.Context, expenseID, approverID int64, decision workflow.VoteStatus, comment string) (*VoteResult, error) {
	if decision != workflow.VoteApproved && decision != workflow.VoteRejected {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}

	var result *VoteResult
	err := m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		result, err = m.recordVote(txCtx, expenseID, approverID, decision, comment)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Vote recorded",
		zap.Int64("expense_id", expenseID),
		zap.Int64("approver_id", approverID),
		zap.String("decision", string(decision)),
		zap.String("outcome", result.Status))

	return result, nil
}

func (m *instanceManager) recordVote(ctx context.Context, expenseID, approverID int64, decision workflow.VoteStatus, comment string) (*VoteResult, error) {
	inst, err := m.instanceRepo.GetActiveByExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("expense %d: %w", expenseID, workflow.ErrNoActiveWorkflow)
	}

	eligible, err := m.approvalRepo.Decide(ctx, inst.ID, inst.CurrentStep, approverID, decision, comment)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, fmt.Errorf("approver %d at step %d: %w", approverID, inst.CurrentStep, workflow.ErrNotEligibleApprover)
	}

	action := entity.ActionApprove
	if decision == workflow.VoteRejected {
		action = entity.ActionReject
	}
	audit := &entity.ApprovalAction{
		ExpenseID:  expenseID,
		ApproverID: approverID,
		Action:     action,
		Comment:    comment,
		StepNumber: inst.CurrentStep,
	}
	if err := m.auditRepo.Create(ctx, audit); err != nil {
		return nil, err
	}

	conditions, err := m.conditions(ctx, inst)
	if err != nil {
		return nil, err
	}

	// A rejection kills the instance outright only under rigid rules;
	// with a percentage or hybrid condition it is just one more vote
	// counted against the achievable percentage.
	if decision == workflow.VoteRejected && workflow.RejectionTerminates(conditions) {
		if err := m.finalize(ctx, inst, workflow.InstanceRejected); err != nil {
			return nil, err
		}
		return &VoteResult{Status: VoteOutcomeRejected, Message: "Expense rejected"}, nil
	}

	approvals, err := m.approvalRepo.GetByInstanceAndStep(ctx, inst.ID, inst.CurrentStep)
	if err != nil {
		return nil, err
	}

	outcome := workflow.EvaluateStep(conditions, workflow.TallyVotes(entity.Votes(approvals)))
	if !outcome.Complete {
		return &VoteResult{
			Status:      VoteOutcomePending,
			Message:     "Vote recorded, awaiting remaining approvers",
			CurrentStep: inst.CurrentStep,
		}, nil
	}

	return m.advance(ctx, inst)
}

// advance moves a completed step forward: open the next step when one
// exists, otherwise finalize the instance as approved
func (m *instanceManager) advance(ctx context.Context, inst *entity.ExpenseWorkflowInstance) (*VoteResult, error) {
	idx := entity.StepIndex{}
	if inst.WorkflowID != nil {
		steps, err := m.workflowRepo.GetSteps(ctx, *inst.WorkflowID)
		if err != nil {
			return nil, err
		}
		idx = entity.NewStepIndex(steps)
	}

	next, ok := idx.Next(inst.CurrentStep)
	if !ok {
		if err := m.finalize(ctx, inst, workflow.InstanceCompleted); err != nil {
			return nil, err
		}
		return &VoteResult{Status: VoteOutcomeApproved, Message: "Expense approved"}, nil
	}

	expense, err := m.expenseRepo.GetByID(ctx, inst.ExpenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %d: %w", inst.ExpenseID, workflow.ErrExpenseNotFound)
	}

	approvers, err := m.resolver.Resolve(ctx, idx.At(next), expense)
	if err != nil {
		return nil, err
	}
	// An empty pool mid-run is tolerated: the instance stays pending at
	// the new step until the configuration is repaired
	if err := m.openStep(ctx, inst.ID, next, approvers); err != nil {
		return nil, err
	}

	if err := m.instanceRepo.UpdateCurrentStep(ctx, inst.ID, next); err != nil {
		return nil, err
	}
	if err := m.expenseRepo.SetWorkflowPointer(ctx, inst.ExpenseID, inst.WorkflowID, &next); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Moved to step %d", next)
	if name := idx.Name(next); name != "" {
		message = "Moved to " + name
	}

	return &VoteResult{Status: VoteOutcomeAdvanced, Message: message, CurrentStep: next}, nil
}

// finalize moves the instance and its expense to a terminal state
func (m *instanceManager) finalize(ctx context.Context, inst *entity.ExpenseWorkflowInstance, status workflow.InstanceStatus) error {
	if err := m.instanceRepo.Finish(ctx, inst.ID, status); err != nil {
		return err
	}

	expenseStatus := entity.ExpenseStatusApproved
	if status == workflow.InstanceRejected {
		expenseStatus = entity.ExpenseStatusRejected
	}
	return m.expenseRepo.UpdateStatus(ctx, inst.ExpenseID, expenseStatus)
}

// conditions loads the workflow's condition set; a fallback instance
// has none and evaluates under the implicit unanimous rule
func (m *instanceManager) conditions(ctx context.Context, inst *entity.ExpenseWorkflowInstance) ([]workflow.Condition, error) {
	if inst.WorkflowID == nil {
		return nil, nil
	}
	return m.workflowRepo.GetConditions(ctx, *inst.WorkflowID)
}
