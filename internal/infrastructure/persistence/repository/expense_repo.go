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

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{db: db, logger: logger}
}

const expenseColumns = `
	id, company_id, requester_id, category_id, title, description,
	amount, currency, original_amount, original_currency,
	status, workflow_id, current_workflow_step,
	date_of_expense, submitted_at, created_at, updated_at
`

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

	e, err := r.scanExpense(r.exec(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return e, nil
}

// UpdateStatus updates the expense status
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE expenses SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := r.exec(ctx).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update expense status", zap.Int64("id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to update expense status: %w", err)
	}

	return nil
}

// MarkSubmitted moves the expense to waiting_approval and stamps submitted_at
func (r *ExpenseRepository) MarkSubmitted(ctx context.Context, id int64) error {
	query := `
		UPDATE expenses
		SET status = ?, submitted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.exec(ctx).ExecContext(ctx, query, entity.ExpenseStatusWaitingApproval, id)
	if err != nil {
		r.logger.Error("Failed to mark expense submitted", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark expense submitted: %w", err)
	}

	return nil
}

// SetWorkflowPointer writes the denormalized workflow id and step onto
// the expense row for quick display
func (r *ExpenseRepository) SetWorkflowPointer(ctx context.Context, id int64, workflowID *int64, step *int) error {
	query := `UPDATE expenses SET workflow_id = ?, current_workflow_step = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := r.exec(ctx).ExecContext(ctx, query, workflowID, step, id)
	if err != nil {
		r.logger.Error("Failed to set workflow pointer", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set workflow pointer: %w", err)
	}

	return nil
}

// ListByCompany retrieves all expenses of a company, newest first
func (r *ExpenseRepository) ListByCompany(ctx context.Context, companyID int64) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE company_id = ? ORDER BY created_at DESC`

	rows, err := r.exec(ctx).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Int64("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		e, err := r.scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ExpenseRepository) scanExpense(row rowScanner) (*entity.Expense, error) {
	var (
		e           entity.Expense
		categoryID  sql.NullInt64
		workflowID  sql.NullInt64
		currentStep sql.NullInt64
		submittedAt sql.NullTime
	)

	err := row.Scan(
		&e.ID,
		&e.CompanyID,
		&e.RequesterID,
		&categoryID,
		&e.Title,
		&e.Description,
		&e.Amount,
		&e.Currency,
		&e.OriginalAmount,
		&e.OriginalCurrency,
		&e.Status,
		&workflowID,
		&currentStep,
		&e.DateOfExpense,
		&submittedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		e.CategoryID = &categoryID.Int64
	}
	if workflowID.Valid {
		e.WorkflowID = &workflowID.Int64
	}
	if currentStep.Valid {
		step := int(currentStep.Int64)
		e.CurrentWorkflowStep = &step
	}
	if submittedAt.Valid {
		e.SubmittedAt = &submittedAt.Time
	}

	return &e, nil
}

func (r *ExpenseRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
