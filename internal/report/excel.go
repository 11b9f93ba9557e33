// Package report produces downloadable exports of expense and approval
// data.
package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/port"
)

var exportHeader = []string{
	"ID", "Title", "Requester", "Category", "Amount", "Currency",
	"Original Amount", "Original Currency", "Status", "Workflow Step",
	"Date of Expense", "Submitted At",
}

// ExpenseExporter writes a company's expenses with their approval state
// into an xlsx workbook
type ExpenseExporter struct {
	expenseRepo port.ExpenseRepository
	users       port.UserDirectory
	logger      *zap.Logger
}

// NewExpenseExporter creates a new expense exporter
func NewExpenseExporter(expenseRepo port.ExpenseRepository, users port.UserDirectory, logger *zap.Logger) *ExpenseExporter {
	return &ExpenseExporter{
		expenseRepo: expenseRepo,
		users:       users,
		logger:      logger,
	}
}

// Export writes the workbook for one company to w and returns the
// number of exported rows
func (e *ExpenseExporter) Export(ctx context.Context, companyID int64, w io.Writer) (int, error) {
	expenses, err := e.expenseRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		e.setCell(f, sheet, cell, title)
	}

	// Requester names resolve once per user, not once per expense
	names := make(map[int64]string)

	for i, exp := range expenses {
		row := i + 2

		name, ok := names[exp.RequesterID]
		if !ok {
			if u, err := e.users.GetByID(ctx, exp.RequesterID); err == nil && u != nil {
				name = u.Name
			}
			names[exp.RequesterID] = name
		}

		step := ""
		if exp.CurrentWorkflowStep != nil {
			step = fmt.Sprintf("%d", *exp.CurrentWorkflowStep)
		}
		submitted := ""
		if exp.SubmittedAt != nil {
			submitted = exp.SubmittedAt.Format("2006-01-02 15:04")
		}

		category := ""
		if exp.CategoryID != nil {
			category = fmt.Sprintf("%d", *exp.CategoryID)
		}

		values := []interface{}{
			exp.ID, exp.Title, name, category, exp.Amount, exp.Currency,
			exp.OriginalAmount, exp.OriginalCurrency, exp.Status, step,
			exp.DateOfExpense.Format("2006-01-02"), submitted,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			e.setCell(f, sheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Info("Exported expenses",
		zap.Int64("company_id", companyID),
		zap.Int("rows", len(expenses)))

	return len(expenses), nil
}

func (e *ExpenseExporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
