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

// ApprovalRepository implements port.ApprovalRepository
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

// Create creates a pending approval row for one approver at one step
func (r *ApprovalRepository) Create(ctx context.Context, approval *entity.WorkflowApproval) error {
	query := `
		INSERT INTO workflow_approvals (instance_id, step_number, approver_id, status)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.exec(ctx).ExecContext(ctx, query,
		approval.InstanceID,
		approval.StepNumber,
		approval.ApproverID,
		string(approval.Status),
	)
	if err != nil {
		r.logger.Error("Failed to create approval",
			zap.Int64("instance_id", approval.InstanceID),
			zap.Int64("approver_id", approval.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to create approval: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	approval.ID = id
	return nil
}

// GetByInstanceAndStep retrieves all approval rows of one step
func (r *ApprovalRepository) GetByInstanceAndStep(ctx context.Context, instanceID int64, stepNumber int) ([]entity.WorkflowApproval, error) {
	query := `
		SELECT id, instance_id, step_number, approver_id, status, comment, decided_at, created_at
		FROM workflow_approvals
		WHERE instance_id = ? AND step_number = ?
		ORDER BY created_at, id
	`

	rows, err := r.exec(ctx).QueryContext(ctx, query, instanceID, stepNumber)
	if err != nil {
		r.logger.Error("Failed to get approvals",
			zap.Int64("instance_id", instanceID),
			zap.Int("step_number", stepNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approvals: %w", err)
	}
	defer rows.Close()

	var approvals []entity.WorkflowApproval
	for rows.Next() {
		var (
			a         entity.WorkflowApproval
			status    string
			comment   sql.NullString
			decidedAt sql.NullTime
		)

		err := rows.Scan(
			&a.ID,
			&a.InstanceID,
			&a.StepNumber,
			&a.ApproverID,
			&status,
			&comment,
			&decidedAt,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		a.Status = workflow.VoteStatus(status)
		a.Comment = comment.String
		if decidedAt.Valid {
			a.DecidedAt = &decidedAt.Time
		}

		approvals = append(approvals, a)
	}

	return approvals, rows.Err()
}

// Decide flips the matching pending row to the given status. The
// status = 'pending' guard makes a second vote by the same approver, or
// a vote by a non-member of the step, affect zero rows.
func (r *ApprovalRepository) Decide(ctx context.Context, instanceID int64, stepNumber int, approverID int64, status workflow.VoteStatus, comment string) (bool, error) {
	query := `
		UPDATE workflow_approvals
		SET status = ?, comment = ?, decided_at = CURRENT_TIMESTAMP
		WHERE instance_id = ? AND step_number = ? AND approver_id = ? AND status = 'pending'
	`

	result, err := r.exec(ctx).ExecContext(ctx, query, string(status), comment, instanceID, stepNumber, approverID)
	if err != nil {
		r.logger.Error("Failed to record decision",
			zap.Int64("instance_id", instanceID),
			zap.Int64("approver_id", approverID),
			zap.Error(err))
		return false, fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

// ListPendingForUser retrieves the expenses waiting on the given user's
// vote at their instance's current step
func (r *ApprovalRepository) ListPendingForUser(ctx context.Context, companyID, userID int64) ([]entity.PendingApproval, error) {
	query := `
		SELECT e.id, e.title, e.amount, e.currency, u.name, u.email,
			COALESCE(ec.name, ''), COALESCE(w.name, ''),
			ew.current_step,
			COALESCE((
				SELECT ws.step_name FROM workflow_steps ws
				WHERE ws.workflow_id = ew.workflow_id AND ws.step_number = ew.current_step AND ws.step_name != ''
				ORDER BY ws.id LIMIT 1
			), ''),
			e.submitted_at
		FROM workflow_approvals wa
		JOIN expense_workflows ew ON wa.instance_id = ew.id AND wa.step_number = ew.current_step
		JOIN expenses e ON ew.expense_id = e.id
		JOIN users u ON e.requester_id = u.id
		LEFT JOIN expense_categories ec ON e.category_id = ec.id
		LEFT JOIN approval_workflows w ON ew.workflow_id = w.id
		WHERE e.company_id = ? AND e.status = 'waiting_approval'
			AND ew.status = 'pending'
			AND wa.approver_id = ? AND wa.status = 'pending'
		ORDER BY e.submitted_at ASC
	`

	return r.listQueue(ctx, query, companyID, userID)
}

// ListWaitingForCompany retrieves every expense in the company waiting
// for approval, for admin queues
func (r *ApprovalRepository) ListWaitingForCompany(ctx context.Context, companyID int64) ([]entity.PendingApproval, error) {
	query := `
		SELECT DISTINCT e.id, e.title, e.amount, e.currency, u.name, u.email,
			COALESCE(ec.name, ''), COALESCE(w.name, ''),
			COALESCE(ew.current_step, 1),
			COALESCE((
				SELECT ws.step_name FROM workflow_steps ws
				WHERE ws.workflow_id = ew.workflow_id AND ws.step_number = ew.current_step AND ws.step_name != ''
				ORDER BY ws.id LIMIT 1
			), ''),
			e.submitted_at
		FROM expenses e
		JOIN users u ON e.requester_id = u.id
		LEFT JOIN expense_categories ec ON e.category_id = ec.id
		LEFT JOIN expense_workflows ew ON e.id = ew.expense_id AND ew.status = 'pending'
		LEFT JOIN approval_workflows w ON ew.workflow_id = w.id
		WHERE e.company_id = ? AND e.status = 'waiting_approval'
		ORDER BY e.submitted_at ASC
	`

	return r.listQueue(ctx, query, companyID)
}

func (r *ApprovalRepository) listQueue(ctx context.Context, query string, args ...interface{}) ([]entity.PendingApproval, error) {
	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list pending approvals", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()

	var queue []entity.PendingApproval
	for rows.Next() {
		var (
			p           entity.PendingApproval
			submittedAt sql.NullTime
		)

		err := rows.Scan(
			&p.ExpenseID,
			&p.Title,
			&p.Amount,
			&p.Currency,
			&p.RequesterName,
			&p.RequesterEmail,
			&p.CategoryName,
			&p.WorkflowName,
			&p.StepNumber,
			&p.StepName,
			&submittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}

		if submittedAt.Valid {
			p.SubmittedAt = &submittedAt.Time
		}

		queue = append(queue, p)
	}

	return queue, rows.Err()
}

func (r *ApprovalRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
