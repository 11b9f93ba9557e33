package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// HistoryEntry is one audit record of an expense's approval history,
// enriched with the approver's display name
type HistoryEntry struct {
	entity.ApprovalAction
	ApproverName  string `json:"approver_name"`
	ApproverEmail string `json:"approver_email,omitempty"`
}

// ApprovalInbox serves the approver-facing read side: the caller's
// pending queue and an expense's decision history
type ApprovalInbox interface {
	// ListPending returns the expenses waiting on the caller's vote.
	// Admins see every expense waiting for approval in the company.
	ListPending(ctx context.Context, user *entity.User) ([]entity.PendingApproval, error)

	History(ctx context.Context, expenseID int64) ([]HistoryEntry, error)
}

type approvalInbox struct {
	approvalRepo port.ApprovalRepository
	expenseRepo  port.ExpenseRepository
	auditRepo    port.AuditLogRepository
	users        port.UserDirectory
	logger       *zap.Logger
}

// NewApprovalInbox creates a new approval inbox
func NewApprovalInbox(
	approvalRepo port.ApprovalRepository,
	expenseRepo port.ExpenseRepository,
	auditRepo port.AuditLogRepository,
	users port.UserDirectory,
	logger *zap.Logger,
) ApprovalInbox {
	return &approvalInbox{
		approvalRepo: approvalRepo,
		expenseRepo:  expenseRepo,
		auditRepo:    auditRepo,
		users:        users,
		logger:       logger,
	}
}

func (s *approvalInbox) ListPending(ctx context.Context, user *entity.User) ([]entity.PendingApproval, error) {
	if user.RoleID == entity.RoleAdmin {
		return s.approvalRepo.ListWaitingForCompany(ctx, user.CompanyID)
	}
	return s.approvalRepo.ListPendingForUser(ctx, user.CompanyID, user.ID)
}

func (s *approvalInbox) History(ctx context.Context, expenseID int64) ([]HistoryEntry, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %d: %w", expenseID, workflow.ErrExpenseNotFound)
	}

	actions, err := s.auditRepo.GetByExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(actions))
	for _, action := range actions {
		entry := HistoryEntry{ApprovalAction: action}
		if u, err := s.users.GetByID(ctx, action.ApproverID); err == nil && u != nil {
			entry.ApproverName = u.Name
			entry.ApproverEmail = u.Email
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
