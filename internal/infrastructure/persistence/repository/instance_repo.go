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

// InstanceRepository implements port.InstanceRepository
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) port.InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

// Create creates a new workflow instance
func (r *InstanceRepository) Create(ctx context.Context, inst *entity.ExpenseWorkflowInstance) error {
	query := `
		INSERT INTO expense_workflows (expense_id, workflow_id, current_step, status)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		inst.ExpenseID,
		inst.WorkflowID,
		inst.CurrentStep,
		string(inst.Status),
	)
	if err != nil {
		r.logger.Error("Failed to create workflow instance", zap.Int64("expense_id", inst.ExpenseID), zap.Error(err))
		return fmt.Errorf("failed to create workflow instance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	inst.ID = id
	return nil
}

// GetActiveByExpense retrieves the pending instance for an expense
func (r *InstanceRepository) GetActiveByExpense(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
	query := `
		SELECT id, expense_id, workflow_id, current_step, status, created_at, completed_at
		FROM expense_workflows
		WHERE expense_id = ? AND status = 'pending'
	`

	return r.getOne(ctx, query, expenseID)
}

// GetLatestByExpense retrieves the most recent instance for an expense
// regardless of status
func (r *InstanceRepository) GetLatestByExpense(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
	query := `
		SELECT id, expense_id, workflow_id, current_step, status, created_at, completed_at
		FROM expense_workflows
		WHERE expense_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	return r.getOne(ctx, query, expenseID)
}

func (r *InstanceRepository) getOne(ctx context.Context, query string, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
	var (
		inst        entity.ExpenseWorkflowInstance
		workflowID  sql.NullInt64
		status      string
		completedAt sql.NullTime
	)

	err := r.exec(ctx).QueryRowContext(ctx, query, expenseID).Scan(
		&inst.ID,
		&inst.ExpenseID,
		&workflowID,
		&inst.CurrentStep,
		&status,
		&inst.CreatedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow instance", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow instance: %w", err)
	}

	if workflowID.Valid {
		inst.WorkflowID = &workflowID.Int64
	}
	if completedAt.Valid {
		inst.CompletedAt = &completedAt.Time
	}
	inst.Status = workflow.InstanceStatus(status)

	return &inst, nil
}

// UpdateCurrentStep advances the instance to the given step
func (r *InstanceRepository) UpdateCurrentStep(ctx context.Context, id int64, step int) error {
	query := `UPDATE expense_workflows SET current_step = ? WHERE id = ?`

	_, err := r.exec(ctx).ExecContext(ctx, query, step, id)
	if err != nil {
		r.logger.Error("Failed to update current step", zap.Int64("id", id), zap.Int("step", step), zap.Error(err))
		return fmt.Errorf("failed to update current step: %w", err)
	}

	return nil
}

// Finish moves the instance to a terminal status
func (r *InstanceRepository) Finish(ctx context.Context, id int64, status workflow.InstanceStatus) error {
	query := `UPDATE expense_workflows SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := r.exec(ctx).ExecContext(ctx, query, string(status), id)
	if err != nil {
		r.logger.Error("Failed to finish workflow instance", zap.Int64("id", id), zap.String("status", status.String()), zap.Error(err))
		return fmt.Errorf("failed to finish workflow instance: %w", err)
	}

	return nil
}

func (r *InstanceRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.InstanceRepository = (*InstanceRepository)(nil)
