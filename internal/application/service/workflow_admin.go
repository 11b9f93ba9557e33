package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
	"github.com/expenseflow/expenseflow/pkg/utils"
)

// StepInput is one approver-source row of a workflow being created
type StepInput struct {
	StepNumber     int    `json:"step_number"`
	StepName       string `json:"step_name"`
	ApproverType   string `json:"approver_type" binding:"required"`
	ApproverID     *int64 `json:"approver_id,omitempty"`
	ApproverRoleID *int64 `json:"approver_role_id,omitempty"`
}

// ConditionInput is one step-completion rule of a workflow being created
type ConditionInput struct {
	ConditionType      string   `json:"condition_type" binding:"required"`
	PercentageRequired *float64 `json:"percentage_required,omitempty"`
	SpecificApproverID *int64   `json:"specific_approver_id,omitempty"`
	AutoApprove        bool     `json:"auto_approve"`
}

// RuleInput is one applicability window of a workflow being created
type RuleInput struct {
	Currency   string   `json:"currency" binding:"required"`
	MinAmount  float64  `json:"min_amount"`
	MaxAmount  *float64 `json:"max_amount,omitempty"`
	CategoryID *int64   `json:"category_id,omitempty"`
}

// CreateWorkflowInput is the full definition of a new workflow:
// template, steps, conditions and selection rules created atomically
type CreateWorkflowInput struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Steps       []StepInput      `json:"steps" binding:"required"`
	Conditions  []ConditionInput `json:"conditions"`
	Rules       []RuleInput      `json:"rules"`
}

// WorkflowDetail is a workflow template with its full configuration,
// returned by the admin read endpoints
type WorkflowDetail struct {
	entity.Workflow
	Steps      []entity.WorkflowStep `json:"steps"`
	Conditions []ConditionInput      `json:"conditions"`
}

// WorkflowAdminService manages workflow templates: creation, listing
// and activation. Templates are immutable once created; changing
// behavior means creating a new workflow and deactivating the old one.
type WorkflowAdminService interface {
	CreateWorkflow(ctx context.Context, companyID int64, input CreateWorkflowInput) (*entity.Workflow, error)
	GetWorkflow(ctx context.Context, id int64) (*WorkflowDetail, error)
	ListWorkflows(ctx context.Context, companyID int64) ([]*entity.WorkflowSummary, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type workflowAdminService struct {
	workflowRepo port.WorkflowRepository
	txManager    port.TransactionManager
	logger       *zap.Logger
}

// NewWorkflowAdminService creates a new workflow admin service
func NewWorkflowAdminService(
	workflowRepo port.WorkflowRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
) WorkflowAdminService {
	return &workflowAdminService{
		workflowRepo: workflowRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// CreateWorkflow persists a workflow with its steps, conditions and
// rules in one transaction
func (s *workflowAdminService) CreateWorkflow(ctx context.Context, companyID int64, input CreateWorkflowInput) (*entity.Workflow, error) {
	if len(input.Steps) == 0 {
		return nil, workflow.ErrNoSteps
	}

	steps := make([]entity.WorkflowStep, 0, len(input.Steps))
	for i, in := range input.Steps {
		spec, err := in.toSpec()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		number := in.StepNumber
		if number == 0 {
			number = i + 1
		}
		steps = append(steps, entity.WorkflowStep{
			StepNumber: number,
			StepName:   in.StepName,
			Approver:   spec,
		})
	}

	for i, in := range input.Rules {
		if err := utils.ValidateCurrency(in.Currency); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if err := utils.ValidateAmount(in.MinAmount); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if in.MaxAmount != nil && *in.MaxAmount <= in.MinAmount {
			return nil, fmt.Errorf("rule %d: max_amount must exceed min_amount", i+1)
		}
	}

	conditions := make([]workflow.Condition, 0, len(input.Conditions))
	for i, in := range input.Conditions {
		cond, err := in.toCondition()
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, err)
		}
		conditions = append(conditions, cond)
	}

	wf := &entity.Workflow{
		CompanyID:   companyID,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.workflowRepo.Create(ctx, wf); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}

		for i := range steps {
			steps[i].WorkflowID = wf.ID
			if err := s.workflowRepo.CreateStep(ctx, &steps[i]); err != nil {
				return fmt.Errorf("create step %d: %w", steps[i].StepNumber, err)
			}
		}

		for _, cond := range conditions {
			if err := s.workflowRepo.CreateCondition(ctx, wf.ID, cond); err != nil {
				return fmt.Errorf("create condition: %w", err)
			}
		}

		for _, in := range input.Rules {
			rule := &entity.WorkflowRule{
				CompanyID:  companyID,
				WorkflowID: wf.ID,
				Currency:   in.Currency,
				MinAmount:  in.MinAmount,
				MaxAmount:  in.MaxAmount,
				CategoryID: in.CategoryID,
				IsActive:   true,
			}
			if err := s.workflowRepo.CreateRule(ctx, rule); err != nil {
				return fmt.Errorf("create rule: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created workflow",
		zap.Int64("workflow_id", wf.ID),
		zap.Int64("company_id", companyID),
		zap.String("name", wf.Name),
		zap.Int("steps", len(steps)),
		zap.Int("conditions", len(conditions)),
		zap.Int("rules", len(input.Rules)))

	return wf, nil
}

// GetWorkflow returns one workflow with its steps and conditions
func (s *workflowAdminService) GetWorkflow(ctx context.Context, id int64) (*WorkflowDetail, error) {
	wf, err := s.workflowRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow %d: %w", id, workflow.ErrWorkflowNotFound)
	}

	steps, err := s.workflowRepo.GetSteps(ctx, id)
	if err != nil {
		return nil, err
	}

	conditions, err := s.workflowRepo.GetConditions(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &WorkflowDetail{
		Workflow: *wf,
		Steps:    steps,
	}
	for _, cond := range conditions {
		detail.Conditions = append(detail.Conditions, conditionInput(cond))
	}
	return detail, nil
}

// ListWorkflows returns all of a company's workflows with step and
// rule counts
func (s *workflowAdminService) ListWorkflows(ctx context.Context, companyID int64) ([]*entity.WorkflowSummary, error) {
	return s.workflowRepo.ListByCompany(ctx, companyID)
}

// SetActive toggles whether a workflow can be selected for new
// submissions. Running instances of a deactivated workflow continue
// unaffected.
func (s *workflowAdminService) SetActive(ctx context.Context, id int64, active bool) error {
	wf, err := s.workflowRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if wf == nil {
		return fmt.Errorf("workflow %d: %w", id, workflow.ErrWorkflowNotFound)
	}
	return s.workflowRepo.SetActive(ctx, id, active)
}

// toSpec validates the step input and converts it to an approver spec
func (in StepInput) toSpec() (workflow.ApproverSpec, error) {
	switch workflow.ApproverKind(in.ApproverType) {
	case workflow.ApproverUser:
		if in.ApproverID == nil {
			return nil, fmt.Errorf("approver_type user requires approver_id")
		}
		return workflow.UserApprover{UserID: *in.ApproverID}, nil

	case workflow.ApproverRole:
		if in.ApproverRoleID == nil {
			return nil, fmt.Errorf("approver_type role requires approver_role_id")
		}
		return workflow.RoleApprover{RoleID: *in.ApproverRoleID}, nil

	case workflow.ApproverManager:
		return workflow.ManagerApprover{}, nil

	default:
		return nil, fmt.Errorf("unknown approver_type %q", in.ApproverType)
	}
}

// toCondition validates the condition input and converts it to a
// domain condition
func (in ConditionInput) toCondition() (workflow.Condition, error) {
	switch workflow.ConditionKind(in.ConditionType) {
	case workflow.ConditionPercentage:
		if in.PercentageRequired == nil {
			return nil, fmt.Errorf("percentage condition requires percentage_required")
		}
		if *in.PercentageRequired < 0 || *in.PercentageRequired > 100 {
			return nil, fmt.Errorf("percentage_required must be in [0, 100], got %v", *in.PercentageRequired)
		}
		return workflow.PercentageCondition{RequiredPercent: *in.PercentageRequired}, nil

	case workflow.ConditionSpecificApprover:
		if in.SpecificApproverID == nil {
			return nil, fmt.Errorf("specific_approver condition requires specific_approver_id")
		}
		return workflow.SpecificApproverCondition{
			ApproverID:  *in.SpecificApproverID,
			AutoApprove: in.AutoApprove,
		}, nil

	case workflow.ConditionHybrid:
		if in.PercentageRequired == nil || in.SpecificApproverID == nil {
			return nil, fmt.Errorf("hybrid condition requires percentage_required and specific_approver_id")
		}
		if *in.PercentageRequired < 0 || *in.PercentageRequired > 100 {
			return nil, fmt.Errorf("percentage_required must be in [0, 100], got %v", *in.PercentageRequired)
		}
		return workflow.HybridCondition{
			RequiredPercent: *in.PercentageRequired,
			ApproverID:      *in.SpecificApproverID,
			AutoApprove:     in.AutoApprove,
		}, nil

	default:
		return nil, fmt.Errorf("unknown condition_type %q", in.ConditionType)
	}
}

// conditionInput projects a domain condition back to its transport shape
func conditionInput(cond workflow.Condition) ConditionInput {
	switch c := cond.(type) {
	case workflow.PercentageCondition:
		pct := c.RequiredPercent
		return ConditionInput{
			ConditionType:      string(workflow.ConditionPercentage),
			PercentageRequired: &pct,
		}
	case workflow.SpecificApproverCondition:
		id := c.ApproverID
		return ConditionInput{
			ConditionType:      string(workflow.ConditionSpecificApprover),
			SpecificApproverID: &id,
			AutoApprove:        c.AutoApprove,
		}
	case workflow.HybridCondition:
		pct := c.RequiredPercent
		id := c.ApproverID
		return ConditionInput{
			ConditionType:      string(workflow.ConditionHybrid),
			PercentageRequired: &pct,
			SpecificApproverID: &id,
			AutoApprove:        c.AutoApprove,
		}
	default:
		return ConditionInput{ConditionType: string(cond.Kind())}
	}
}
