package entity

import (
	"sort"
	"time"

	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// Workflow is an admin-authored approval template, company-scoped and
// read-only during evaluation
type Workflow struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkflowStep is one approver-source row of a workflow. Several rows
// may share a StepNumber; their resolved users merge into one pool.
type WorkflowStep struct {
	ID         int64                 `json:"id"`
	WorkflowID int64                 `json:"workflow_id"`
	StepNumber int                   `json:"step_number"`
	StepName   string                `json:"step_name"`
	Approver   workflow.ApproverSpec `json:"-"`
}

// WorkflowRule is an applicability window mapping expenses to a
// workflow at submission time: same currency, amount in
// [MinAmount, MaxAmount), category null-or-equal
type WorkflowRule struct {
	ID         int64    `json:"id"`
	CompanyID  int64    `json:"company_id"`
	WorkflowID int64    `json:"workflow_id"`
	Currency   string   `json:"currency"`
	MinAmount  float64  `json:"min_amount"`
	MaxAmount  *float64 `json:"max_amount,omitempty"`
	CategoryID *int64   `json:"category_id,omitempty"`
	IsActive   bool     `json:"is_active"`
}

// WorkflowSummary is a workflow with its step and rule counts, used by
// the admin listing
type WorkflowSummary struct {
	Workflow
	StepCount int `json:"step_count"`
	RuleCount int `json:"rule_count"`
}

// StepIndex orders a workflow's step rows by step number so that "all
// rows at step N" and "the step after N" are direct lookups
type StepIndex struct {
	byNumber map[int][]WorkflowStep
	numbers  []int
}

// NewStepIndex builds a StepIndex from a workflow's step rows
func NewStepIndex(steps []WorkflowStep) StepIndex {
	idx := StepIndex{byNumber: make(map[int][]WorkflowStep)}
	for _, s := range steps {
		if _, seen := idx.byNumber[s.StepNumber]; !seen {
			idx.numbers = append(idx.numbers, s.StepNumber)
		}
		idx.byNumber[s.StepNumber] = append(idx.byNumber[s.StepNumber], s)
	}
	sort.Ints(idx.numbers)
	return idx
}

// Empty reports whether the workflow has no steps at all
func (i StepIndex) Empty() bool {
	return len(i.numbers) == 0
}

// First returns the lowest step number
func (i StepIndex) First() (int, bool) {
	if i.Empty() {
		return 0, false
	}
	return i.numbers[0], true
}

// Next returns the lowest step number strictly greater than current
func (i StepIndex) Next(current int) (int, bool) {
	pos := sort.SearchInts(i.numbers, current+1)
	if pos == len(i.numbers) {
		return 0, false
	}
	return i.numbers[pos], true
}

// At returns all step rows sharing the given step number
func (i StepIndex) At(number int) []WorkflowStep {
	return i.byNumber[number]
}

// Name returns the display name of a step group, taking the first
// named row at that number
func (i StepIndex) Name(number int) string {
	for _, s := range i.byNumber[number] {
		if s.StepName != "" {
			return s.StepName
		}
	}
	return ""
}
