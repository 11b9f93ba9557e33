package workflow

// SatisfiedBy records which part of a condition completed a step,
// kept for progress reporting
type SatisfiedBy string

const (
	SatisfiedByNone       SatisfiedBy = "none"
	SatisfiedByPercentage SatisfiedBy = "percentage"
	SatisfiedBySpecific   SatisfiedBy = "specific"
	SatisfiedByBoth       SatisfiedBy = "both"
	SatisfiedByUnanimous  SatisfiedBy = "unanimous"
)

// Outcome is the result of evaluating a step's conditions against its
// current vote tally
type Outcome struct {
	Complete    bool
	SatisfiedBy SatisfiedBy

	// Condition is the condition that completed the step, nil for the
	// implicit unanimous default or an incomplete step
	Condition Condition
}

// EvaluateStep decides whether a step is complete. Conditions are OR'd:
// the step completes the moment any one of them is satisfied. With no
// conditions configured the step requires strict unanimity.
//
// A rejected vote does not by itself block a percentage or hybrid
// condition; the rejecting voter simply never counts toward the
// approved share. Immediate termination on rejection is decided
// separately via RejectionTerminates before evaluation.
func EvaluateStep(conditions []Condition, tally Tally) Outcome {
	if len(conditions) == 0 {
		if tally.Approved == tally.Total && tally.Rejected == 0 {
			return Outcome{Complete: true, SatisfiedBy: SatisfiedByUnanimous}
		}
		return Outcome{SatisfiedBy: SatisfiedByNone}
	}

	for _, c := range conditions {
		switch cond := c.(type) {
		case PercentageCondition:
			if tally.Percent() >= cond.RequiredPercent {
				return Outcome{Complete: true, SatisfiedBy: SatisfiedByPercentage, Condition: cond}
			}

		case SpecificApproverCondition:
			if cond.AutoApprove && tally.HasApproved(cond.ApproverID) {
				return Outcome{Complete: true, SatisfiedBy: SatisfiedBySpecific, Condition: cond}
			}

		case HybridCondition:
			pctMet := tally.Percent() >= cond.RequiredPercent
			specificMet := cond.AutoApprove && tally.HasApproved(cond.ApproverID)
			if pctMet || specificMet {
				by := SatisfiedByPercentage
				switch {
				case pctMet && specificMet:
					by = SatisfiedByBoth
				case specificMet:
					by = SatisfiedBySpecific
				}
				return Outcome{Complete: true, SatisfiedBy: by, Condition: cond}
			}
		}
	}

	return Outcome{SatisfiedBy: SatisfiedByNone}
}
