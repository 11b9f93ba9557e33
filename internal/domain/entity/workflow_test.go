package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/expenseflow/expenseflow/internal/domain/workflow"
)

func TestStepIndex(t *testing.T) {
	idx := NewStepIndex([]WorkflowStep{
		{ID: 1, StepNumber: 2, StepName: "Finance", Approver: workflow.RoleApprover{RoleID: 1}},
		{ID: 2, StepNumber: 1, StepName: "Manager Review", Approver: workflow.ManagerApprover{}},
		{ID: 3, StepNumber: 1, StepName: "", Approver: workflow.UserApprover{UserID: 5}},
		{ID: 4, StepNumber: 5, StepName: "Executive", Approver: workflow.UserApprover{UserID: 9}},
	})

	assert.False(t, idx.Empty())

	first, ok := idx.First()
	assert.True(t, ok)
	assert.Equal(t, 1, first)

	// Step numbers need not be contiguous
	next, ok := idx.Next(2)
	assert.True(t, ok)
	assert.Equal(t, 5, next)

	_, ok = idx.Next(5)
	assert.False(t, ok)

	assert.Len(t, idx.At(1), 2)
	assert.Len(t, idx.At(2), 1)
	assert.Empty(t, idx.At(3))

	assert.Equal(t, "Manager Review", idx.Name(1))
	assert.Equal(t, "Finance", idx.Name(2))
	assert.Equal(t, "", idx.Name(3))
}

func TestStepIndex_Empty(t *testing.T) {
	idx := NewStepIndex(nil)

	assert.True(t, idx.Empty())

	_, ok := idx.First()
	assert.False(t, ok)

	_, ok = idx.Next(0)
	assert.False(t, ok)
}

func TestVotes(t *testing.T) {
	approvals := []WorkflowApproval{
		{ApproverID: 1, Status: workflow.VoteApproved},
		{ApproverID: 2, Status: workflow.VotePending},
	}

	votes := Votes(approvals)

	assert.Equal(t, []workflow.Vote{
		{ApproverID: 1, Status: workflow.VoteApproved},
		{ApproverID: 2, Status: workflow.VotePending},
	}, votes)
}
