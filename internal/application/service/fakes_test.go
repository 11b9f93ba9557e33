package service

import (
	"context"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// Function-backed fakes for the port interfaces. Only the methods a
// test exercises need to be set; the rest panic loudly.

type fakeWorkflowRepo struct {
	CreateFn              func(ctx context.Context, wf *entity.Workflow) error
	GetByIDFn             func(ctx context.Context, id int64) (*entity.Workflow, error)
	ListByCompanyFn       func(ctx context.Context, companyID int64) ([]*entity.WorkflowSummary, error)
	SetActiveFn           func(ctx context.Context, id int64, active bool) error
	CreateStepFn          func(ctx context.Context, step *entity.WorkflowStep) error
	GetStepsFn            func(ctx context.Context, workflowID int64) ([]entity.WorkflowStep, error)
	CreateConditionFn     func(ctx context.Context, workflowID int64, cond workflow.Condition) error
	GetConditionsFn       func(ctx context.Context, workflowID int64) ([]workflow.Condition, error)
	CreateRuleFn          func(ctx context.Context, rule *entity.WorkflowRule) error
	ListSelectableRulesFn func(ctx context.Context, companyID int64, currency string) ([]entity.WorkflowRule, error)
}

func (f *fakeWorkflowRepo) Create(ctx context.Context, wf *entity.Workflow) error {
	return f.CreateFn(ctx, wf)
}
func (f *fakeWorkflowRepo) GetByID(ctx context.Context, id int64) (*entity.Workflow, error) {
	return f.GetByIDFn(ctx, id)
}
func (f *fakeWorkflowRepo) ListByCompany(ctx context.Context, companyID int64) ([]*entity.WorkflowSummary, error) {
	return f.ListByCompanyFn(ctx, companyID)
}
func (f *fakeWorkflowRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return f.SetActiveFn(ctx, id, active)
}
func (f *fakeWorkflowRepo) CreateStep(ctx context.Context, step *entity.WorkflowStep) error {
	return f.CreateStepFn(ctx, step)
}
func (f *fakeWorkflowRepo) GetSteps(ctx context.Context, workflowID int64) ([]entity.WorkflowStep, error) {
	return f.GetStepsFn(ctx, workflowID)
}
func (f *fakeWorkflowRepo) CreateCondition(ctx context.Context, workflowID int64, cond workflow.Condition) error {
	return f.CreateConditionFn(ctx, workflowID, cond)
}
func (f *fakeWorkflowRepo) GetConditions(ctx context.Context, workflowID int64) ([]workflow.Condition, error) {
	return f.GetConditionsFn(ctx, workflowID)
}
func (f *fakeWorkflowRepo) CreateRule(ctx context.Context, rule *entity.WorkflowRule) error {
	return f.CreateRuleFn(ctx, rule)
}
func (f *fakeWorkflowRepo) ListSelectableRules(ctx context.Context, companyID int64, currency string) ([]entity.WorkflowRule, error) {
	return f.ListSelectableRulesFn(ctx, companyID, currency)
}

type fakeInstanceRepo struct {
	CreateFn             func(ctx context.Context, inst *entity.ExpenseWorkflowInstance) error
	GetActiveByExpenseFn func(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error)
	GetLatestByExpenseFn func(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error)
	UpdateCurrentStepFn  func(ctx context.Context, id int64, step int) error
	FinishFn             func(ctx context.Context, id int64, status workflow.InstanceStatus) error
}

func (f *fakeInstanceRepo) Create(ctx context.Context, inst *entity.ExpenseWorkflowInstance) error {
	return f.CreateFn(ctx, inst)
}
func (f *fakeInstanceRepo) GetActiveByExpense(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
	return f.GetActiveByExpenseFn(ctx, expenseID)
}
func (f *fakeInstanceRepo) GetLatestByExpense(ctx context.Context, expenseID int64) (*entity.ExpenseWorkflowInstance, error) {
	return f.GetLatestByExpenseFn(ctx, expenseID)
}
func (f *fakeInstanceRepo) UpdateCurrentStep(ctx context.Context, id int64, step int) error {
	return f.UpdateCurrentStepFn(ctx, id, step)
}
func (f *fakeInstanceRepo) Finish(ctx context.Context, id int64, status workflow.InstanceStatus) error {
	return f.FinishFn(ctx, id, status)
}

type fakeApprovalRepo struct {
	CreateFn                func(ctx context.Context, approval *entity.WorkflowApproval) error
	GetByInstanceAndStepFn  func(ctx context.Context, instanceID int64, stepNumber int) ([]entity.WorkflowApproval, error)
	DecideFn                func(ctx context.Context, instanceID int64, stepNumber int, approverID int64, status workflow.VoteStatus, comment string) (bool, error)
	ListPendingForUserFn    func(ctx context.Context, companyID, userID int64) ([]entity.PendingApproval, error)
	ListWaitingForCompanyFn func(ctx context.Context, companyID int64) ([]entity.PendingApproval, error)
}

func (f *fakeApprovalRepo) Create(ctx context.Context, approval *entity.WorkflowApproval) error {
	return f.CreateFn(ctx, approval)
}
func (f *fakeApprovalRepo) GetByInstanceAndStep(ctx context.Context, instanceID int64, stepNumber int) ([]entity.WorkflowApproval, error) {
	return f.GetByInstanceAndStepFn(ctx, instanceID, stepNumber)
}
func (f *fakeApprovalRepo) Decide(ctx context.Context, instanceID int64, stepNumber int, approverID int64, status workflow.VoteStatus, comment string) (bool, error) {
	return f.DecideFn(ctx, instanceID, stepNumber, approverID, status, comment)
}
func (f *fakeApprovalRepo) ListPendingForUser(ctx context.Context, companyID, userID int64) ([]entity.PendingApproval, error) {
	return f.ListPendingForUserFn(ctx, companyID, userID)
}
func (f *fakeApprovalRepo) ListWaitingForCompany(ctx context.Context, companyID int64) ([]entity.PendingApproval, error) {
	return f.ListWaitingForCompanyFn(ctx, companyID)
}

type fakeExpenseRepo struct {
	GetByIDFn            func(ctx context.Context, id int64) (*entity.Expense, error)
	UpdateStatusFn       func(ctx context.Context, id int64, status string) error
	MarkSubmittedFn      func(ctx context.Context, id int64) error
	SetWorkflowPointerFn func(ctx context.Context, id int64, workflowID *int64, step *int) error
	ListByCompanyFn      func(ctx context.Context, companyID int64) ([]*entity.Expense, error)
}

func (f *fakeExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	return f.GetByIDFn(ctx, id)
}
func (f *fakeExpenseRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return f.UpdateStatusFn(ctx, id, status)
}
func (f *fakeExpenseRepo) MarkSubmitted(ctx context.Context, id int64) error {
	return f.MarkSubmittedFn(ctx, id)
}
func (f *fakeExpenseRepo) SetWorkflowPointer(ctx context.Context, id int64, workflowID *int64, step *int) error {
	return f.SetWorkflowPointerFn(ctx, id, workflowID, step)
}
func (f *fakeExpenseRepo) ListByCompany(ctx context.Context, companyID int64) ([]*entity.Expense, error) {
	return f.ListByCompanyFn(ctx, companyID)
}

type fakeUserDirectory struct {
	GetByIDFn       func(ctx context.Context, id int64) (*entity.User, error)
	GetByRoleFn     func(ctx context.Context, companyID, roleID int64, activeOnly bool) ([]*entity.User, error)
	GetManagersOfFn func(ctx context.Context, userID int64) ([]*entity.User, error)
}

func (f *fakeUserDirectory) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return f.GetByIDFn(ctx, id)
}
func (f *fakeUserDirectory) GetByRole(ctx context.Context, companyID, roleID int64, activeOnly bool) ([]*entity.User, error) {
	return f.GetByRoleFn(ctx, companyID, roleID, activeOnly)
}
func (f *fakeUserDirectory) GetManagersOf(ctx context.Context, userID int64) ([]*entity.User, error) {
	return f.GetManagersOfFn(ctx, userID)
}

type fakeAuditRepo struct {
	CreateFn       func(ctx context.Context, action *entity.ApprovalAction) error
	GetByExpenseFn func(ctx context.Context, expenseID int64) ([]entity.ApprovalAction, error)
}

func (f *fakeAuditRepo) Create(ctx context.Context, action *entity.ApprovalAction) error {
	return f.CreateFn(ctx, action)
}
func (f *fakeAuditRepo) GetByExpense(ctx context.Context, expenseID int64) ([]entity.ApprovalAction, error) {
	return f.GetByExpenseFn(ctx, expenseID)
}

// fakeTxManager runs the function directly; transactional behavior is
// covered by the sqlite package
type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
