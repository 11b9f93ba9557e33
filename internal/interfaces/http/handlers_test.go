package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

type fakeInstanceManager struct {
	SubmitFn     func(ctx context.Context, expenseID int64) (*service.SubmitResult, error)
	RecordVoteFn func(ctx context.Context, expenseID, approverID int64, decision workflow.VoteStatus, comment string) (*service.VoteResult, error)
}

func (f *fakeInstanceManager) Submit(ctx context.Context, expenseID int64) (*service.SubmitResult, error) {
	return f.SubmitFn(ctx, expenseID)
}
func (f *fakeInstanceManager) StartWorkflow(ctx context.Context, expenseID, workflowID int64) (*service.SubmitResult, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeInstanceManager) RecordVote(ctx context.Context, expenseID, approverID int64, decision workflow.VoteStatus, comment string) (*service.VoteResult, error) {
	return f.RecordVoteFn(ctx, expenseID, approverID, decision, comment)
}

type fakeProgressReporter struct {
	GetProgressFn func(ctx context.Context, expenseID int64) (*service.ProgressView, error)
}

func (f *fakeProgressReporter) GetProgress(ctx context.Context, expenseID int64) (*service.ProgressView, error) {
	return f.GetProgressFn(ctx, expenseID)
}

type fakeInbox struct {
	ListPendingFn func(ctx context.Context, user *entity.User) ([]entity.PendingApproval, error)
	HistoryFn     func(ctx context.Context, expenseID int64) ([]service.HistoryEntry, error)
}

func (f *fakeInbox) ListPending(ctx context.Context, user *entity.User) ([]entity.PendingApproval, error) {
	return f.ListPendingFn(ctx, user)
}
func (f *fakeInbox) History(ctx context.Context, expenseID int64) ([]service.HistoryEntry, error) {
	return f.HistoryFn(ctx, expenseID)
}

type fakeAdmin struct {
	CreateWorkflowFn func(ctx context.Context, companyID int64, input service.CreateWorkflowInput) (*entity.Workflow, error)
}

func (f *fakeAdmin) CreateWorkflow(ctx context.Context, companyID int64, input service.CreateWorkflowInput) (*entity.Workflow, error) {
	return f.CreateWorkflowFn(ctx, companyID, input)
}
func (f *fakeAdmin) GetWorkflow(ctx context.Context, id int64) (*service.WorkflowDetail, error) {
	return nil, fmt.Errorf("not implemented")
}
func (f *fakeAdmin) ListWorkflows(ctx context.Context, companyID int64) ([]*entity.WorkflowSummary, error) {
	return nil, nil
}
func (f *fakeAdmin) SetActive(ctx context.Context, id int64, active bool) error {
	return nil
}

type fakeExporter struct {
	ExportFn func(ctx context.Context, companyID int64, w io.Writer) (int, error)
}

func (f *fakeExporter) Export(ctx context.Context, companyID int64, w io.Writer) (int, error) {
	return f.ExportFn(ctx, companyID, w)
}

type fakeUserLookup struct {
	GetByIDFn func(ctx context.Context, id int64) (*entity.User, error)
}

func (f *fakeUserLookup) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return f.GetByIDFn(ctx, id)
}

func newTestServer(t *testing.T, instances service.InstanceManager, inbox service.ApprovalInbox, users UserLookup) *Server {
	t.Helper()

	exporter := &fakeExporter{
		ExportFn: func(ctx context.Context, companyID int64, w io.Writer) (int, error) {
			return 0, nil
		},
	}
	return newTestServerWithExporter(t, instances, inbox, users, exporter)
}

func newTestServerWithExporter(t *testing.T, instances service.InstanceManager, inbox service.ApprovalInbox, users UserLookup, exporter Exporter) *Server {
	t.Helper()

	progress := &fakeProgressReporter{
		GetProgressFn: func(ctx context.Context, expenseID int64) (*service.ProgressView, error) {
			return &service.ProgressView{ExpenseID: expenseID}, nil
		},
	}
	admin := &fakeAdmin{}

	return NewServer(DefaultServerConfig(), instances, progress, inbox, admin, exporter, users, zap.NewNop())
}

func doRequest(server *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func TestVoteEndpoint_Success(t *testing.T) {
	instances := &fakeInstanceManager{
		RecordVoteFn: func(ctx context.Context, expenseID, approverID int64, decision workflow.VoteStatus, comment string) (*service.VoteResult, error) {
			assert.Equal(t, int64(1), expenseID)
			assert.Equal(t, int64(10), approverID)
			assert.Equal(t, workflow.VoteApproved, decision)
			assert.Equal(t, "ok", comment)
			return &service.VoteResult{Status: service.VoteOutcomeApproved, Message: "Expense approved"}, nil
		},
	}

	server := newTestServer(t, instances, &fakeInbox{}, &fakeUserLookup{})

	w := doRequest(server, "POST", "/api/v1/approvals/expenses/1/approve", `{"approver_id":10,"comment":"ok"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestVoteEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "unknown expense", err: workflow.ErrExpenseNotFound, wantStatus: http.StatusNotFound},
		{name: "no active workflow", err: workflow.ErrNoActiveWorkflow, wantStatus: http.StatusConflict},
		{name: "not eligible", err: workflow.ErrNotEligibleApprover, wantStatus: http.StatusForbidden},
		{name: "internal error", err: fmt.Errorf("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instances := &fakeInstanceManager{
				RecordVoteFn: func(ctx context.Context, expenseID, approverID int64, decision workflow.VoteStatus, comment string) (*service.VoteResult, error) {
					return nil, fmt.Errorf("record vote: %w", tt.err)
				},
			}

			server := newTestServer(t, instances, &fakeInbox{}, &fakeUserLookup{})

			w := doRequest(server, "POST", "/api/v1/approvals/expenses/1/reject", `{"approver_id":10}`)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestVoteEndpoint_MissingApprover(t *testing.T) {
	server := newTestServer(t, &fakeInstanceManager{}, &fakeInbox{}, &fakeUserLookup{})

	w := doRequest(server, "POST", "/api/v1/approvals/expenses/1/approve", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitEndpoint_ActiveInstanceConflict(t *testing.T) {
	instances := &fakeInstanceManager{
		SubmitFn: func(ctx context.Context, expenseID int64) (*service.SubmitResult, error) {
			return nil, fmt.Errorf("expense %d: %w", expenseID, workflow.ErrInstanceAlreadyActive)
		},
	}

	server := newTestServer(t, instances, &fakeInbox{}, &fakeUserLookup{})

	w := doRequest(server, "POST", "/api/v1/expenses/1/submit", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitEndpoint_InvalidID(t *testing.T) {
	server := newTestServer(t, &fakeInstanceManager{}, &fakeInbox{}, &fakeUserLookup{})

	w := doRequest(server, "POST", "/api/v1/expenses/abc/submit", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPendingEndpoint(t *testing.T) {
	inbox := &fakeInbox{
		ListPendingFn: func(ctx context.Context, user *entity.User) ([]entity.PendingApproval, error) {
			assert.Equal(t, int64(10), user.ID)
			return []entity.PendingApproval{{ExpenseID: 1, Title: "Taxi"}}, nil
		},
	}
	users := &fakeUserLookup{
		GetByIDFn: func(ctx context.Context, id int64) (*entity.User, error) {
			return &entity.User{ID: id, CompanyID: 1, RoleID: entity.RoleManager}, nil
		},
	}

	server := newTestServer(t, &fakeInstanceManager{}, inbox, users)

	w := doRequest(server, "GET", "/api/v1/approvals/pending?user_id=10", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestExportEndpoint_WritesWorkbook(t *testing.T) {
	exporter := &fakeExporter{
		ExportFn: func(ctx context.Context, companyID int64, w io.Writer) (int, error) {
			assert.Equal(t, int64(1), companyID)
			_, err := w.Write([]byte("workbook-bytes"))
			return 1, err
		},
	}

	server := newTestServerWithExporter(t, &fakeInstanceManager{}, &fakeInbox{}, &fakeUserLookup{}, exporter)

	w := doRequest(server, "GET", "/api/v1/expenses/export?company_id=1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Equal(t, "workbook-bytes", w.Body.String())
}

func TestExportEndpoint_FailureLeavesNoPartialBody(t *testing.T) {
	exporter := &fakeExporter{
		ExportFn: func(ctx context.Context, companyID int64, w io.Writer) (int, error) {
			// Whatever got written before the failure must not leak into
			// the response
			_, _ = w.Write([]byte("partial"))
			return 0, fmt.Errorf("sheet write failed")
		},
	}

	server := newTestServerWithExporter(t, &fakeInstanceManager{}, &fakeInbox{}, &fakeUserLookup{}, exporter)

	w := doRequest(server, "GET", "/api/v1/expenses/export?company_id=1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.NotContains(t, w.Body.String(), "partial")

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestPendingEndpoint_MissingUser(t *testing.T) {
	server := newTestServer(t, &fakeInstanceManager{}, &fakeInbox{}, &fakeUserLookup{})

	w := doRequest(server, "GET", "/api/v1/approvals/pending", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
