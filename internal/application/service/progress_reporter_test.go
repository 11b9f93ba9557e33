package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

func newReporterFakes() (*fakeWorkflowRepo, *fakeInstanceRepo, *fakeApprovalRepo, *fakeExpenseRepo, *fakeUserDirectory) {
	users := &fakeUserDirectory{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.User, error) {
			return &entity.User{ID: id, Name: "User", Email: "user@example.com"}, nil
		},
	}
	return &fakeWorkflowRepo{}, &fakeInstanceRepo{}, &fakeApprovalRepo{}, &fakeExpenseRepo{}, users
}

func TestGetProgress_NoInstance(t *testing.T) {
	wfRepo, instRepo, appRepo, expRepo, users := newReporterFakes()

	expRepo.GetByIDFn = func(ctx context.Context, id int64) (*entity.Expense, error) {
		return &entity.Expense{ID: 1, Title: "Taxi", Status: entity.ExpenseStatusDraft}, nil
	}
	instRepo.GetLatestByExpenseFn = func(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
		return nil, nil
	}

	reporter := NewProgressReporter(wfRepo, instRepo, appRepo, expRepo, users, zap.NewNop())

	view, err := reporter.GetProgress(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, view.HasWorkflow)
	assert.Equal(t, "No workflow found for this expense", view.StatusMessage)
	assert.Equal(t, entity.ExpenseStatusDraft, view.ExpenseStatus)
}

func TestGetProgress_UnknownExpense(t *testing.T) {
	wfRepo, instRepo, appRepo, expRepo, users := newReporterFakes()

	expRepo.GetByIDFn = func(ctx context.Context, id int64) (*entity.Expense, error) {
		return nil, nil
	}

	reporter := NewProgressReporter(wfRepo, instRepo, appRepo, expRepo, users, zap.NewNop())

	_, err := reporter.GetProgress(context.Background(), 404)
	assert.ErrorIs(t, err, workflow.ErrExpenseNotFound)
}

func TestGetProgress_HybridRule(t *testing.T) {
	wfRepo, instRepo, appRepo, expRepo, users := newReporterFakes()

	expRepo.GetByIDFn = func(ctx context.Context, id int64) (*entity.Expense, error) {
		return &entity.Expense{
			ID:       1,
			Title:    "Conference",
			Amount:   1200,
			Currency: "USD",
			Status:   entity.ExpenseStatusWaitingApproval,
		}, nil
	}
	instRepo.GetLatestByExpenseFn = func(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
		return &entity.ExpenseWorkflowInstance{
			ID:          500,
			ExpenseID:   1,
			WorkflowID:  i64(10),
			CurrentStep: 1,
			Status:      workflow.InstancePending,
		}, nil
	}
	wfRepo.GetByIDFn = func(ctx context.Context, id int64) (*entity.Workflow, error) {
		return &entity.Workflow{ID: 10, Name: "Hybrid Flow"}, nil
	}
	wfRepo.GetConditionsFn = func(ctx context.Context, workflowID int64) ([]workflow.Condition, error) {
		return []workflow.Condition{
			workflow.HybridCondition{RequiredPercent: 60, ApproverID: 9, AutoApprove: true},
		}, nil
	}
	appRepo.GetByInstanceAndStepFn = func(ctx context.Context, instanceID int64, stepNumber int) ([]entity.WorkflowApproval, error) {
		return []entity.WorkflowApproval{
			{ApproverID: 9, Status: workflow.VoteApproved},
			{ApproverID: 11, Status: workflow.VotePending},
			{ApproverID: 12, Status: workflow.VotePending},
		}, nil
	}

	reporter := NewProgressReporter(wfRepo, instRepo, appRepo, expRepo, users, zap.NewNop())

	view, err := reporter.GetProgress(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, view.HasWorkflow)
	assert.Equal(t, "Hybrid Flow", view.WorkflowName)
	assert.Equal(t, 3, view.TotalApprovers)
	assert.Equal(t, 1, view.ApprovedCount)
	assert.InDelta(t, 33.3, view.CurrentPercentage, 0.01)
	assert.Equal(t, []string{"hybrid"}, view.RuleTypes)
	assert.Len(t, view.Approvers, 3)

	require.NotNil(t, view.HybridRule)
	assert.False(t, view.HybridRule.PercentageSatisfied)
	assert.True(t, view.HybridRule.SpecificSatisfied)
	assert.True(t, view.HybridRule.OverallSatisfied)
	assert.Equal(t, "specific", view.HybridRule.SatisfiedBy)

	assert.Equal(t, "Ready for approval via specific rule", view.StatusMessage)
}

func TestGetProgress_PercentageRule(t *testing.T) {
	wfRepo, instRepo, appRepo, expRepo, users := newReporterFakes()

	expRepo.GetByIDFn = func(ctx context.Context, id int64) (*entity.Expense, error) {
		return &entity.Expense{ID: 1, Status: entity.ExpenseStatusWaitingApproval}, nil
	}
	instRepo.GetLatestByExpenseFn = func(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
		return &entity.ExpenseWorkflowInstance{
			ID: 500, ExpenseID: 1, WorkflowID: i64(10), CurrentStep: 1,
			Status: workflow.InstancePending,
		}, nil
	}
	wfRepo.GetByIDFn = func(ctx context.Context, id int64) (*entity.Workflow, error) {
		return &entity.Workflow{ID: 10, Name: "Percent Flow"}, nil
	}
	wfRepo.GetConditionsFn = func(ctx context.Context, workflowID int64) ([]workflow.Condition, error) {
		return []workflow.Condition{workflow.PercentageCondition{RequiredPercent: 60}}, nil
	}
	appRepo.GetByInstanceAndStepFn = func(ctx context.Context, instanceID int64, stepNumber int) ([]entity.WorkflowApproval, error) {
		return []entity.WorkflowApproval{
			{ApproverID: 1, Status: workflow.VoteApproved},
			{ApproverID: 2, Status: workflow.VotePending},
		}, nil
	}

	reporter := NewProgressReporter(wfRepo, instRepo, appRepo, expRepo, users, zap.NewNop())

	view, err := reporter.GetProgress(context.Background(), 1)
	require.NoError(t, err)

	require.NotNil(t, view.PercentageRule)
	assert.Equal(t, 60.0, view.PercentageRule.Required)
	assert.Equal(t, 50.0, view.PercentageRule.Current)
	assert.False(t, view.PercentageRule.Satisfied)
	assert.Equal(t, 10.0, view.PercentageRule.Remaining)
	assert.Equal(t, "1/2 approvers have approved (50.0%)", view.StatusMessage)
}

func TestGetProgress_TerminalStates(t *testing.T) {
	tests := []struct {
		name    string
		status  workflow.InstanceStatus
		message string
	}{
		{name: "completed", status: workflow.InstanceCompleted, message: "Approval process completed"},
		{name: "rejected", status: workflow.InstanceRejected, message: "Expense has been rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wfRepo, instRepo, appRepo, expRepo, users := newReporterFakes()

			expRepo.GetByIDFn = func(ctx context.Context, id int64) (*entity.Expense, error) {
				return &entity.Expense{ID: 1}, nil
			}
			instRepo.GetLatestByExpenseFn = func(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
				return &entity.ExpenseWorkflowInstance{
					ID: 500, ExpenseID: 1, CurrentStep: 1, Status: tt.status,
				}, nil
			}
			appRepo.GetByInstanceAndStepFn = func(ctx context.Context, instanceID int64, stepNumber int) ([]entity.WorkflowApproval, error) {
				return []entity.WorkflowApproval{{ApproverID: 42, Status: workflow.VoteApproved}}, nil
			}

			reporter := NewProgressReporter(wfRepo, instRepo, appRepo, expRepo, users, zap.NewNop())

			view, err := reporter.GetProgress(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.message, view.StatusMessage)
		})
	}
}
