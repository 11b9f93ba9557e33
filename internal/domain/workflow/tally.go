package workflow

// VoteStatus is the state of a single approver's vote at a step
type VoteStatus string

const (
	VotePending  VoteStatus = "pending"
	VoteApproved VoteStatus = "approved"
	VoteRejected VoteStatus = "rejected"
)

// Vote is one approver's current state at a step
type Vote struct {
	ApproverID int64
	Status     VoteStatus
}

// Tally is the aggregated vote state of one step, computed purely from
// the step's approval rows so rule evaluation needs no storage access.
// Rejected voters remain in Total, lowering the achievable percentage.
type Tally struct {
	Total    int
	Approved int
	Rejected int
	Pending  int

	approvedBy map[int64]bool
}

// TallyVotes aggregates the approval rows of a single step
func TallyVotes(votes []Vote) Tally {
	t := Tally{
		Total:      len(votes),
		approvedBy: make(map[int64]bool, len(votes)),
	}
	for _, v := range votes {
		switch v.Status {
		case VoteApproved:
			t.Approved++
			t.approvedBy[v.ApproverID] = true
		case VoteRejected:
			t.Rejected++
		default:
			t.Pending++
		}
	}
	return t
}

// Percent returns the approved share of the pool as 0-100, 0 for an
// empty pool
func (t Tally) Percent() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Approved) / float64(t.Total) * 100
}

// HasApproved reports whether the given user has an approved vote in
// this tally
func (t Tally) HasApproved(userID int64) bool {
	return t.approvedBy[userID]
}
