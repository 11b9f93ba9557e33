package workflow

// InstanceStatus is the lifecycle state of a per-expense workflow instance
type InstanceStatus string

const (
	InstancePending   InstanceStatus = "pending"
	InstanceCompleted InstanceStatus = "completed"
	InstanceRejected  InstanceStatus = "rejected"
)

var terminalStatuses = map[InstanceStatus]bool{
	InstanceCompleted: true,
	InstanceRejected:  true,
}

// IsTerminal returns true once an instance can no longer accept votes
func (s InstanceStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status
func (s InstanceStatus) String() string {
	return string(s)
}
