package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// ApproverResolver computes the concrete approver pool of a step from
// its approver-spec rows and the expense context
type ApproverResolver struct {
	users  port.UserDirectory
	logger *zap.Logger
}

// NewApproverResolver creates a new approver resolver
func NewApproverResolver(users port.UserDirectory, logger *zap.Logger) *ApproverResolver {
	return &ApproverResolver{users: users, logger: logger}
}

// Resolve returns the de-duplicated union of the users named by all
// step rows sharing one step number. The result may be empty when a
// manager-based step has no configured manager and the company has no
// active managers; the caller decides whether that is fatal.
func (r *ApproverResolver) Resolve(ctx context.Context, steps []entity.WorkflowStep, expense *entity.Expense) ([]int64, error) {
	seen := make(map[int64]bool)
	var approvers []int64

	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			approvers = append(approvers, id)
		}
	}

	for _, step := range steps {
		switch spec := step.Approver.(type) {
		case workflow.UserApprover:
			add(spec.UserID)

		case workflow.RoleApprover:
			users, err := r.users.GetByRole(ctx, expense.CompanyID, spec.RoleID, true)
			if err != nil {
				return nil, fmt.Errorf("resolve role approvers: %w", err)
			}
			for _, u := range users {
				add(u.ID)
			}

		case workflow.ManagerApprover:
			managers, err := r.users.GetManagersOf(ctx, expense.RequesterID)
			if err != nil {
				return nil, fmt.Errorf("resolve manager approvers: %w", err)
			}
			if len(managers) == 0 {
				// No configured manager: fall back to every active
				// manager in the company rather than leaving the step
				// with an empty pool
				managers, err = r.users.GetByRole(ctx, expense.CompanyID, entity.RoleManager, true)
				if err != nil {
					return nil, fmt.Errorf("resolve fallback managers: %w", err)
				}
			}
			for _, m := range managers {
				add(m.ID)
			}

		default:
			return nil, fmt.Errorf("unknown approver spec %T at step %d", step.Approver, step.StepNumber)
		}
	}

	if len(approvers) == 0 {
		r.logger.Warn("Step resolved to an empty approver pool",
			zap.Int64("expense_id", expense.ID),
			zap.Int("steps", len(steps)))
	}

	return approvers, nil
}
