package workflow

// ConditionKind identifies the rule type of a step-completion condition
type ConditionKind string

const (
	ConditionPercentage       ConditionKind = "percentage"
	ConditionSpecificApprover ConditionKind = "specific_approver"
	ConditionHybrid           ConditionKind = "hybrid"
)

// Condition is a step-completion rule configured on a workflow.
// It is a closed set: PercentageCondition, SpecificApproverCondition
// and HybridCondition are the only implementations. A workflow with no
// conditions falls back to strict unanimity.
type Condition interface {
	Kind() ConditionKind

	// sealed prevents implementations outside this package so that
	// evaluation switches stay exhaustive
	sealed()
}

// PercentageCondition completes a step once the approved share of the
// step's approver pool reaches RequiredPercent
type PercentageCondition struct {
	RequiredPercent float64
}

// SpecificApproverCondition completes a step once a designated approver
// approves, but only when AutoApprove is set. With AutoApprove false it
// never completes a step on its own.
type SpecificApproverCondition struct {
	ApproverID  int64
	AutoApprove bool
}

// HybridCondition completes a step when either the percentage threshold
// is reached or the designated approver approves (with AutoApprove set)
type HybridCondition struct {
	RequiredPercent float64
	ApproverID      int64
	AutoApprove     bool
}

func (PercentageCondition) Kind() ConditionKind       { return ConditionPercentage }
func (SpecificApproverCondition) Kind() ConditionKind { return ConditionSpecificApprover }
func (HybridCondition) Kind() ConditionKind           { return ConditionHybrid }

func (PercentageCondition) sealed()       {}
func (SpecificApproverCondition) sealed() {}
func (HybridCondition) sealed()           {}

// HasFlexibleCondition reports whether any configured condition can
// tolerate partial dissent. A rejection only terminates the whole
// instance when no flexible condition exists.
func HasFlexibleCondition(conditions []Condition) bool {
	for _, c := range conditions {
		switch c.Kind() {
		case ConditionPercentage, ConditionHybrid:
			return true
		}
	}
	return false
}

// RejectionTerminates reports whether a single rejection must
// immediately reject the whole instance given the configured conditions
func RejectionTerminates(conditions []Condition) bool {
	return !HasFlexibleCondition(conditions)
}
