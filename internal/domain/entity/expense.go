package entity

import "time"

// Expense is the expense row as seen by the approval engine. The engine
// reads it to select workflows and resolve approvers, and writes only
// the status and the denormalized workflow pointers.
type Expense struct {
	ID          int64   `json:"id"`
	CompanyID   int64   `json:"company_id"`
	RequesterID int64   `json:"requester_id"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`

	// OriginalAmount/OriginalCurrency keep what the employee entered
	// before conversion into the company currency
	OriginalAmount   float64 `json:"original_amount"`
	OriginalCurrency string  `json:"original_currency"`

	Status              string     `json:"status"`
	WorkflowID          *int64     `json:"workflow_id,omitempty"`
	CurrentWorkflowStep *int       `json:"current_workflow_step,omitempty"`
	DateOfExpense       time.Time  `json:"date_of_expense"`
	SubmittedAt         *time.Time `json:"submitted_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
