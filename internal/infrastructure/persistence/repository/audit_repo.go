package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
)

// AuditLogRepository implements port.AuditLogRepository over the
// append-only approval_actions table
type AuditLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sql.DB, logger *zap.Logger) port.AuditLogRepository {
	return &AuditLogRepository{db: db, logger: logger}
}

// Create appends one vote record
func (r *AuditLogRepository) Create(ctx context.Context, action *entity.ApprovalAction) error {
	query := `
		INSERT INTO approval_actions (expense_id, approver_id, action, comment, step_number)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		action.ExpenseID,
		action.ApproverID,
		action.Action,
		action.Comment,
		action.StepNumber,
	)
	if err != nil {
		r.logger.Error("Failed to create approval action",
			zap.Int64("expense_id", action.ExpenseID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	action.ID = id
	return nil
}

// GetByExpense retrieves all vote records of an expense, oldest first
func (r *AuditLogRepository) GetByExpense(ctx context.Context, expenseID int64) ([]entity.ApprovalAction, error) {
	query := `
		SELECT id, expense_id, approver_id, action, comment, step_number, created_at
		FROM approval_actions
		WHERE expense_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to get approval actions", zap.Int64("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval actions: %w", err)
	}
	defer rows.Close()

	var actions []entity.ApprovalAction
	for rows.Next() {
		var (
			a       entity.ApprovalAction
			comment sql.NullString
		)

		err := rows.Scan(
			&a.ID,
			&a.ExpenseID,
			&a.ApproverID,
			&a.Action,
			&comment,
			&a.StepNumber,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval action: %w", err)
		}

		a.Comment = comment.String
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

func (r *AuditLogRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.AuditLogRepository = (*AuditLogRepository)(nil)
