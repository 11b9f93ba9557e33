package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// WorkflowSelector picks the single applicable workflow for an expense
// at submission time, or none when no rule matches (the caller then
// falls back to a simple single-step manager approval)
type WorkflowSelector struct {
	workflowRepo port.WorkflowRepository
	logger       *zap.Logger
}

// NewWorkflowSelector creates a new workflow selector
func NewWorkflowSelector(workflowRepo port.WorkflowRepository, logger *zap.Logger) *WorkflowSelector {
	return &WorkflowSelector{workflowRepo: workflowRepo, logger: logger}
}

// Select returns the matching workflow for the given expense
// parameters, nil when no rule matches
func (s *WorkflowSelector) Select(ctx context.Context, companyID int64, amount float64, currency string, categoryID *int64) (*entity.Workflow, error) {
	rules, err := s.workflowRepo.ListSelectableRules(ctx, companyID, currency)
	if err != nil {
		return nil, err
	}

	best := pickRule(rules, amount, categoryID)
	if best == nil {
		s.logger.Debug("No workflow rule matches, using default approval",
			zap.Int64("company_id", companyID),
			zap.Float64("amount", amount),
			zap.String("currency", currency))
		return nil, nil
	}

	wf, err := s.workflowRepo.GetByID(ctx, best.WorkflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("rule %d references workflow %d: %w", best.ID, best.WorkflowID, workflow.ErrWorkflowNotFound)
	}

	s.logger.Debug("Selected workflow",
		zap.Int64("workflow_id", wf.ID),
		zap.String("workflow_name", wf.Name),
		zap.Float64("amount", amount))

	return wf, nil
}

// pickRule filters the candidate rules by amount window and category
// and picks the most specific match: highest min_amount first, a rule
// bound to a category before a catch-all, lowest id as the final
// deterministic tie-break
func pickRule(rules []entity.WorkflowRule, amount float64, categoryID *int64) *entity.WorkflowRule {
	var best *entity.WorkflowRule

	for i := range rules {
		rule := &rules[i]

		if amount < rule.MinAmount {
			continue
		}
		if rule.MaxAmount != nil && amount >= *rule.MaxAmount {
			continue
		}
		if rule.CategoryID != nil && (categoryID == nil || *rule.CategoryID != *categoryID) {
			continue
		}

		if best == nil || ruleLess(best, rule) {
			best = rule
		}
	}

	return best
}

// ruleLess reports whether candidate should replace best
func ruleLess(best, candidate *entity.WorkflowRule) bool {
	if candidate.MinAmount != best.MinAmount {
		return candidate.MinAmount > best.MinAmount
	}
	if (candidate.CategoryID != nil) != (best.CategoryID != nil) {
		return candidate.CategoryID != nil
	}
	return candidate.ID < best.ID
}
