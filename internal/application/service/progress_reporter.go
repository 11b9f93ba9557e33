package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// ApproverProgress is one approver's state at the current step
type ApproverProgress struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Status    string     `json:"status"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	Comment   string     `json:"comment,omitempty"`
}

// PercentageRuleProgress is the live state of a percentage condition
type PercentageRuleProgress struct {
	Required  float64 `json:"required"`
	Current   float64 `json:"current"`
	Satisfied bool    `json:"satisfied"`
	Remaining float64 `json:"remaining"`
}

// SpecificApproverRuleProgress is the live state of a specific-approver
// condition
type SpecificApproverRuleProgress struct {
	ApproverID   int64  `json:"approver_id"`
	ApproverName string `json:"approver_name"`
	AutoApprove  bool   `json:"auto_approve"`
	HasApproved  bool   `json:"has_approved"`
	Status       string `json:"status"`
}

// HybridRuleProgress is the live state of a hybrid condition
type HybridRuleProgress struct {
	PercentageRequired  float64 `json:"percentage_required"`
	CurrentPercentage   float64 `json:"current_percentage"`
	PercentageSatisfied bool    `json:"percentage_satisfied"`
	ApproverID          int64   `json:"approver_id"`
	ApproverName        string  `json:"approver_name"`
	SpecificSatisfied   bool    `json:"specific_satisfied"`
	AutoApprove         bool    `json:"auto_approve"`
	OverallSatisfied    bool    `json:"overall_satisfied"`
	SatisfiedBy         string  `json:"satisfied_by"`
}

// ProgressView is the read-only projection of an expense's approval
// state for display
type ProgressView struct {
	ExpenseID      int64   `json:"expense_id"`
	HasWorkflow    bool    `json:"has_workflow"`
	WorkflowName   string  `json:"workflow_name,omitempty"`
	CurrentStep    int     `json:"current_step,omitempty"`
	WorkflowStatus string  `json:"workflow_status,omitempty"`
	ExpenseStatus  string  `json:"expense_status,omitempty"`
	ExpenseTitle   string  `json:"expense_title,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
	Currency       string  `json:"currency,omitempty"`

	TotalApprovers    int     `json:"total_approvers"`
	ApprovedCount     int     `json:"approved_count"`
	RejectedCount     int     `json:"rejected_count"`
	PendingCount      int     `json:"pending_count"`
	CurrentPercentage float64 `json:"current_percentage"`

	RuleTypes []string           `json:"rule_types"`
	Approvers []ApproverProgress `json:"approvers"`

	PercentageRule       *PercentageRuleProgress       `json:"percentage_rule,omitempty"`
	SpecificApproverRule *SpecificApproverRuleProgress `json:"specific_approver_rule,omitempty"`
	HybridRule           *HybridRuleProgress           `json:"hybrid_rule,omitempty"`

	StatusMessage string `json:"status_message"`
}

// ProgressReporter projects workflow instances into human-readable
// approval progress. It never mutates state and tolerates expenses that
// never entered a workflow as well as finished instances.
type ProgressReporter interface {
	GetProgress(ctx context.Context, expenseID int64) (*ProgressView, error)
}

type progressReporter struct {
	workflowRepo port.WorkflowRepository
	instanceRepo port.InstanceRepository
	approvalRepo port.ApprovalRepository
	expenseRepo  port.ExpenseRepository
	users        port.UserDirectory
	logger       *zap.Logger
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(
	workflowRepo port.WorkflowRepository,
	instanceRepo port.InstanceRepository,
	approvalRepo port.ApprovalRepository,
	expenseRepo port.ExpenseRepository,
	users port.UserDirectory,
	logger *zap.Logger,
) ProgressReporter {
	return &progressReporter{
		workflowRepo: workflowRepo,
		instanceRepo: instanceRepo,
		approvalRepo: approvalRepo,
		expenseRepo:  expenseRepo,
		users:        users,
		logger:       logger,
	}
}

// GetProgress computes the approval progress of an expense
func (p *progressReporter) GetProgress(ctx context.Context, expenseID int64) (*ProgressView, error) {
	expense, err := p.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %d: %w", expenseID, workflow.ErrExpenseNotFound)
	}

	inst, err := p.instanceRepo.GetLatestByExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return &ProgressView{
			ExpenseID:     expenseID,
			ExpenseStatus: expense.Status,
			ExpenseTitle:  expense.Title,
			StatusMessage: "No workflow found for this expense",
		}, nil
	}

	view := &ProgressView{
		ExpenseID:      expenseID,
		HasWorkflow:    true,
		CurrentStep:    inst.CurrentStep,
		WorkflowStatus: inst.Status.String(),
		ExpenseStatus:  expense.Status,
		ExpenseTitle:   expense.Title,
		Amount:         expense.Amount,
		Currency:       expense.Currency,
		RuleTypes:      []string{},
	}

	var conditions []workflow.Condition
	if inst.WorkflowID != nil {
		wf, err := p.workflowRepo.GetByID(ctx, *inst.WorkflowID)
		if err != nil {
			return nil, err
		}
		if wf != nil {
			view.WorkflowName = wf.Name
		}

		conditions, err = p.workflowRepo.GetConditions(ctx, *inst.WorkflowID)
		if err != nil {
			return nil, err
		}
	}

	approvals, err := p.approvalRepo.GetByInstanceAndStep(ctx, inst.ID, inst.CurrentStep)
	if err != nil {
		return nil, err
	}

	tally := workflow.TallyVotes(entity.Votes(approvals))
	view.TotalApprovers = tally.Total
	view.ApprovedCount = tally.Approved
	view.RejectedCount = tally.Rejected
	view.PendingCount = tally.Pending
	view.CurrentPercentage = round1(tally.Percent())

	for _, a := range approvals {
		progress := ApproverProgress{
			ID:        a.ApproverID,
			Status:    string(a.Status),
			DecidedAt: a.DecidedAt,
			Comment:   a.Comment,
		}
		if u, err := p.users.GetByID(ctx, a.ApproverID); err == nil && u != nil {
			progress.Name = u.Name
			progress.Email = u.Email
		}
		view.Approvers = append(view.Approvers, progress)
	}

	for _, cond := range conditions {
		view.RuleTypes = append(view.RuleTypes, string(cond.Kind()))

		switch c := cond.(type) {
		case workflow.PercentageCondition:
			view.PercentageRule = &PercentageRuleProgress{
				Required:  c.RequiredPercent,
				Current:   view.CurrentPercentage,
				Satisfied: tally.Percent() >= c.RequiredPercent,
				Remaining: math.Max(0, round1(c.RequiredPercent-tally.Percent())),
			}

		case workflow.SpecificApproverCondition:
			rule := &SpecificApproverRuleProgress{
				ApproverID:   c.ApproverID,
				ApproverName: p.userName(ctx, c.ApproverID),
				AutoApprove:  c.AutoApprove,
				HasApproved:  tally.HasApproved(c.ApproverID),
				Status:       string(workflow.VotePending),
			}
			for _, a := range approvals {
				if a.ApproverID == c.ApproverID {
					rule.Status = string(a.Status)
				}
			}
			view.SpecificApproverRule = rule

		case workflow.HybridCondition:
			pctMet := tally.Percent() >= c.RequiredPercent
			specificMet := tally.HasApproved(c.ApproverID)
			rule := &HybridRuleProgress{
				PercentageRequired:  c.RequiredPercent,
				CurrentPercentage:   view.CurrentPercentage,
				PercentageSatisfied: pctMet,
				ApproverID:          c.ApproverID,
				ApproverName:        p.userName(ctx, c.ApproverID),
				SpecificSatisfied:   specificMet,
				AutoApprove:         c.AutoApprove,
				OverallSatisfied:    pctMet || (specificMet && c.AutoApprove),
			}
			switch {
			case pctMet && specificMet:
				rule.SatisfiedBy = string(workflow.SatisfiedByBoth)
			case pctMet:
				rule.SatisfiedBy = string(workflow.SatisfiedByPercentage)
			case specificMet:
				rule.SatisfiedBy = string(workflow.SatisfiedBySpecific)
			default:
				rule.SatisfiedBy = string(workflow.SatisfiedByNone)
			}
			view.HybridRule = rule
		}
	}

	view.StatusMessage = p.statusMessage(inst, view)
	return view, nil
}

// statusMessage picks one human-readable summary line for the view
func (p *progressReporter) statusMessage(inst *entity.ExpenseWorkflowInstance, view *ProgressView) string {
	switch inst.Status {
	case workflow.InstanceCompleted:
		return "Approval process completed"
	case workflow.InstanceRejected:
		return "Expense has been rejected"
	}

	switch {
	case view.HybridRule != nil && view.HybridRule.OverallSatisfied:
		return fmt.Sprintf("Ready for approval via %s rule", view.HybridRule.SatisfiedBy)
	case view.PercentageRule != nil && view.PercentageRule.Satisfied:
		return fmt.Sprintf("%.1f%% approved (%.1f%% required)", view.PercentageRule.Current, view.PercentageRule.Required)
	case view.SpecificApproverRule != nil && view.SpecificApproverRule.HasApproved:
		return fmt.Sprintf("Approved by %s", view.SpecificApproverRule.ApproverName)
	default:
		return fmt.Sprintf("%d/%d approvers have approved (%.1f%%)",
			view.ApprovedCount, view.TotalApprovers, view.CurrentPercentage)
	}
}

func (p *progressReporter) userName(ctx context.Context, userID int64) string {
	u, err := p.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return ""
	}
	return u.Name
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
