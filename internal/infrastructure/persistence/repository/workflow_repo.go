package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
)

// WorkflowRepository implements port.WorkflowRepository. Approver specs
// and conditions are stored as a type tag plus nullable columns and
// mapped back into their tagged unions on read.
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) port.WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create creates a new workflow template
func (r *WorkflowRepository) Create(ctx context.Context, wf *entity.Workflow) error {
	query := `
		INSERT INTO approval_workflows (company_id, name, description, is_active)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query, wf.CompanyID, wf.Name, wf.Description, wf.IsActive)
	if err != nil {
		r.logger.Error("Failed to create workflow", zap.Error(err))
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	wf.ID = id
	return nil
}

// GetByID retrieves a workflow by ID
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*entity.Workflow, error) {
	query := `
		SELECT id, company_id, name, description, is_active, created_at, updated_at
		FROM approval_workflows
		WHERE id = ?
	`

	var wf entity.Workflow
	err := r.exec(ctx).QueryRowContext(ctx, query, id).Scan(
		&wf.ID,
		&wf.CompanyID,
		&wf.Name,
		&wf.Description,
		&wf.IsActive,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return &wf, nil
}

// ListByCompany retrieves a company's workflows with step and rule counts
func (r *WorkflowRepository) ListByCompany(ctx context.Context, companyID int64) ([]*entity.WorkflowSummary, error) {
	query := `
		SELECT w.id, w.company_id, w.name, w.description, w.is_active, w.created_at, w.updated_at,
			(SELECT COUNT(*) FROM workflow_steps WHERE workflow_id = w.id) AS step_count,
			(SELECT COUNT(*) FROM workflow_rules WHERE workflow_id = w.id) AS rule_count
		FROM approval_workflows w
		WHERE w.company_id = ?
		ORDER BY w.created_at DESC
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list workflows", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var summaries []*entity.WorkflowSummary
	for rows.Next() {
		var s entity.WorkflowSummary
		err := rows.Scan(
			&s.ID,
			&s.CompanyID,
			&s.Name,
			&s.Description,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.StepCount,
			&s.RuleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

// SetActive updates a workflow's active flag
func (r *WorkflowRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE approval_workflows SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := r.exec(ctx).ExecContext(ctx, query, active, id)
	if err != nil {
		r.logger.Error("Failed to set workflow active flag", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set workflow active flag: %w", err)
	}

	return nil
}

// CreateStep creates a workflow step row
func (r *WorkflowRepository) CreateStep(ctx context.Context, step *entity.WorkflowStep) error {
	var (
		approverType string
		userID       sql.NullInt64
		roleID       sql.NullInt64
	)

	switch spec := step.Approver.(type) {
	case workflow.UserApprover:
		approverType = string(workflow.ApproverUser)
		userID = sql.NullInt64{Int64: spec.UserID, Valid: true}
	case workflow.RoleApprover:
		approverType = string(workflow.ApproverRole)
		roleID = sql.NullInt64{Int64: spec.RoleID, Valid: true}
	case workflow.ManagerApprover:
		approverType = string(workflow.ApproverManager)
	default:
		return fmt.Errorf("unknown approver spec %T", step.Approver)
	}

	query := `
		INSERT INTO workflow_steps (workflow_id, step_number, step_name, approver_type, approver_id, approver_role_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		step.WorkflowID,
		step.StepNumber,
		step.StepName,
		approverType,
		userID,
		roleID,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow step", zap.Error(err))
		return fmt.Errorf("failed to create workflow step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// GetSteps retrieves all step rows of a workflow ordered by step number
func (r *WorkflowRepository) GetSteps(ctx context.Context, workflowID int64) ([]entity.WorkflowStep, error) {
	query := `
		SELECT id, workflow_id, step_number, step_name, approver_type, approver_id, approver_role_id
		FROM workflow_steps
		WHERE workflow_id = ?
		ORDER BY step_number, id
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to get workflow steps", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow steps: %w", err)
	}
	defer rows.Close()

	var steps []entity.WorkflowStep
	for rows.Next() {
		var (
			step         entity.WorkflowStep
			approverType string
			userID       sql.NullInt64
			roleID       sql.NullInt64
		)

		err := rows.Scan(
			&step.ID,
			&step.WorkflowID,
			&step.StepNumber,
			&step.StepName,
			&approverType,
			&userID,
			&roleID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}

		switch workflow.ApproverKind(approverType) {
		case workflow.ApproverUser:
			step.Approver = workflow.UserApprover{UserID: userID.Int64}
		case workflow.ApproverRole:
			step.Approver = workflow.RoleApprover{RoleID: roleID.Int64}
		case workflow.ApproverManager:
			step.Approver = workflow.ManagerApprover{}
		default:
			return nil, fmt.Errorf("unknown approver type %q in step %d", approverType, step.ID)
		}

		steps = append(steps, step)
	}

	return steps, rows.Err()
}

// CreateCondition creates a workflow completion condition
func (r *WorkflowRepository) CreateCondition(ctx context.Context, workflowID int64, cond workflow.Condition) error {
	var (
		pct         sql.NullFloat64
		approverID  sql.NullInt64
		autoApprove bool
	)

	switch c := cond.(type) {
	case workflow.PercentageCondition:
		pct = sql.NullFloat64{Float64: c.RequiredPercent, Valid: true}
	case workflow.SpecificApproverCondition:
		approverID = sql.NullInt64{Int64: c.ApproverID, Valid: true}
		autoApprove = c.AutoApprove
	case workflow.HybridCondition:
		pct = sql.NullFloat64{Float64: c.RequiredPercent, Valid: true}
		approverID = sql.NullInt64{Int64: c.ApproverID, Valid: true}
		autoApprove = c.AutoApprove
	default:
		return fmt.Errorf("unknown condition %T", cond)
	}

	query := `
		INSERT INTO workflow_conditions (workflow_id, condition_type, percentage_required, specific_approver_id, auto_approve_on_specific)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.exec(ctx).ExecContext(ctx, query,
		workflowID,
		string(cond.Kind()),
		pct,
		approverID,
		autoApprove,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow condition", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return fmt.Errorf("failed to create workflow condition: %w", err)
	}

	return nil
}

// GetConditions retrieves a workflow's completion conditions
func (r *WorkflowRepository) GetConditions(ctx context.Context, workflowID int64) ([]workflow.Condition, error) {
	query := `
		SELECT condition_type, percentage_required, specific_approver_id, auto_approve_on_specific
		FROM workflow_conditions
		WHERE workflow_id = ?
		ORDER BY id
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to get workflow conditions", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow conditions: %w", err)
	}
	defer rows.Close()

	var conditions []workflow.Condition
	for rows.Next() {
		var (
			condType    string
			pct         sql.NullFloat64
			approverID  sql.NullInt64
			autoApprove bool
		)

		if err := rows.Scan(&condType, &pct, &approverID, &autoApprove); err != nil {
			return nil, fmt.Errorf("failed to scan workflow condition: %w", err)
		}

		switch workflow.ConditionKind(condType) {
		case workflow.ConditionPercentage:
			conditions = append(conditions, workflow.PercentageCondition{RequiredPercent: pct.Float64})
		case workflow.ConditionSpecificApprover:
			conditions = append(conditions, workflow.SpecificApproverCondition{
				ApproverID:  approverID.Int64,
				AutoApprove: autoApprove,
			})
		case workflow.ConditionHybrid:
			conditions = append(conditions, workflow.HybridCondition{
				RequiredPercent: pct.Float64,
				ApproverID:      approverID.Int64,
				AutoApprove:     autoApprove,
			})
		default:
			return nil, fmt.Errorf("unknown condition type %q for workflow %d", condType, workflowID)
		}
	}

	return conditions, rows.Err()
}

// CreateRule creates a workflow selection rule
func (r *WorkflowRepository) CreateRule(ctx context.Context, rule *entity.WorkflowRule) error {
	query := `
		INSERT INTO workflow_rules (company_id, workflow_id, currency, min_amount, max_amount, category_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		rule.CompanyID,
		rule.WorkflowID,
		rule.Currency,
		rule.MinAmount,
		rule.MaxAmount,
		rule.CategoryID,
		rule.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow rule", zap.Error(err))
		return fmt.Errorf("failed to create workflow rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rule.ID = id
	return nil
}

// ListSelectableRules retrieves the active rules of active workflows
// for one company and currency
func (r *WorkflowRepository) ListSelectableRules(ctx context.Context, companyID int64, currency string) ([]entity.WorkflowRule, error) {
	query := `
		SELECT wr.id, wr.company_id, wr.workflow_id, wr.currency, wr.min_amount, wr.max_amount, wr.category_id, wr.is_active
		FROM workflow_rules wr
		JOIN approval_workflows w ON wr.workflow_id = w.id
		WHERE wr.company_id = ? AND wr.currency = ? AND wr.is_active = 1 AND w.is_active = 1
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, companyID, currency)
	if err != nil {
		r.logger.Error("Failed to list workflow rules", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow rules: %w", err)
	}
	defer rows.Close()

	var rules []entity.WorkflowRule
	for rows.Next() {
		var (
			rule      entity.WorkflowRule
			maxAmount sql.NullFloat64
			category  sql.NullInt64
		)

		err := rows.Scan(
			&rule.ID,
			&rule.CompanyID,
			&rule.WorkflowID,
			&rule.Currency,
			&rule.MinAmount,
			&maxAmount,
			&category,
			&rule.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow rule: %w", err)
		}

		if maxAmount.Valid {
			rule.MaxAmount = &maxAmount.Float64
		}
		if category.Valid {
			rule.CategoryID = &category.Int64
		}

		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func (r *WorkflowRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
