package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

// UserLookup resolves the acting user for role-dependent endpoints
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// Exporter writes a company's expenses as a workbook
type Exporter interface {
	Export(ctx context.Context, companyID int64, w io.Writer) (int, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	instances service.InstanceManager
	progress  service.ProgressReporter
	inbox     service.ApprovalInbox
	admin     service.WorkflowAdminService
	exporter  Exporter
	users     UserLookup
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	instances service.InstanceManager,
	progress service.ProgressReporter,
	inbox service.ApprovalInbox,
	admin service.WorkflowAdminService,
	exporter Exporter,
	users UserLookup,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		instances: instances,
		progress:  progress,
		inbox:     inbox,
		admin:     admin,
		exporter:  exporter,
		users:     users,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// VoteRequest is the body of approve/reject requests
type VoteRequest struct {
	ApproverID int64  `json:"approver_id" binding:"required"`
	Comment    string `json:"comment"`
}

// SetActiveRequest is the body of workflow activation requests
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitExpense handles POST /api/v1/expenses/:id/submit
func (h *Handlers) SubmitExpense(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.instances.Submit(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to submit expense")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ApproveExpense handles POST /api/v1/approvals/expenses/:id/approve
func (h *Handlers) ApproveExpense(c *gin.Context) {
	h.vote(c, workflow.VoteApproved)
}

// RejectExpense handles POST /api/v1/approvals/expenses/:id/reject
func (h *Handlers) RejectExpense(c *gin.Context) {
	h.vote(c, workflow.VoteRejected)
}

func (h *Handlers) vote(c *gin.Context, decision workflow.VoteStatus) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "approver_id is required"})
		return
	}

	result, err := h.instances.RecordVote(c.Request.Context(), id, req.ApproverID, decision, req.Comment)
	if err != nil {
		h.fail(c, err, "failed to record vote")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListPendingApprovals handles GET /api/v1/approvals/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	userID, ok := h.queryID(c, "user_id")
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "failed to load user")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "user not found"})
		return
	}

	pending, err := h.inbox.ListPending(c.Request.Context(), user)
	if err != nil {
		h.fail(c, err, "failed to list pending approvals")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: pending})
}

// GetProgress handles GET /api/v1/expenses/:id/progress
func (h *Handlers) GetProgress(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.progress.GetProgress(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get approval progress")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: view})
}

// GetHistory handles GET /api/v1/expenses/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.inbox.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get approval history")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// ExportExpenses handles GET /api/v1/expenses/export
func (h *Handlers) ExportExpenses(c *gin.Context) {
	companyID, ok := h.queryID(c, "company_id")
	if !ok {
		return
	}

	// Build the workbook in full before touching the response, so an
	// export failure still produces a clean error status instead of a
	// truncated attachment
	var buf bytes.Buffer
	if _, err := h.exporter.Export(c.Request.Context(), companyID, &buf); err != nil {
		h.fail(c, err, "failed to export expenses")
		return
	}

	filename := fmt.Sprintf("expenses-%d-%s.xlsx", companyID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// CreateWorkflow handles POST /api/v1/workflows
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	companyID, ok := h.queryID(c, "company_id")
	if !ok {
		return
	}

	var input service.CreateWorkflowInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid workflow definition: " + err.Error()})
		return
	}

	wf, err := h.admin.CreateWorkflow(c.Request.Context(), companyID, input)
	if err != nil {
		h.fail(c, err, "failed to create workflow")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: wf})
}

// ListWorkflows handles GET /api/v1/workflows
func (h *Handlers) ListWorkflows(c *gin.Context) {
	companyID, ok := h.queryID(c, "company_id")
	if !ok {
		return
	}

	workflows, err := h.admin.ListWorkflows(c.Request.Context(), companyID)
	if err != nil {
		h.fail(c, err, "failed to list workflows")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: workflows})
}

// GetWorkflow handles GET /api/v1/workflows/:id
func (h *Handlers) GetWorkflow(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.admin.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get workflow")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// SetWorkflowActive handles PATCH /api/v1/workflows/:id/active
func (h *Handlers) SetWorkflowActive(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "active is required"})
		return
	}

	if err := h.admin.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		h.fail(c, err, "failed to update workflow")
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// pathID parses an int64 path parameter, writing a 400 on failure
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryID parses a required int64 query parameter, writing a 400 on
// failure
func (h *Handlers) queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: name + " is required"})
		return 0, false
	}
	return id, true
}

// fail maps domain errors to HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error, logMsg string) {
	status := http.StatusInternalServerError
	message := logMsg

	switch {
	case errors.Is(err, workflow.ErrExpenseNotFound),
		errors.Is(err, workflow.ErrWorkflowNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, workflow.ErrNotEligibleApprover):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, workflow.ErrNoActiveWorkflow),
		errors.Is(err, workflow.ErrExpenseNotSubmittable),
		errors.Is(err, workflow.ErrInstanceAlreadyActive),
		errors.Is(err, workflow.ErrNoSteps),
		errors.Is(err, workflow.ErrNoApprovers):
		status = http.StatusConflict
		message = err.Error()
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, zap.Error(err))
	}

	c.JSON(status, Response{Success: false, Error: message})
}
