package fixer

import "fmt"

// StepStatus is the display status of one projected step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// ProgressStep is a display-ready row derived from run state. Derived, never
// persisted.
type ProgressStep struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
	Score  *int       `json:"score,omitempty"`
}

// Project derives the ordered step list from a state snapshot: one generate
// step and one verify step per started attempt. Pure view transform with no
// side effects, callable at any time including mid-flight.
func Project(state FixProgressState) []ProgressStep {
	steps := make([]ProgressStep, 0, len(state.Attempts)*2)

	for _, attempt := range state.Attempts {
		gen := ProgressStep{
			ID:    fmt.Sprintf("generate-%d", attempt.Index),
			Label: fmt.Sprintf("Generate attempt %d", attempt.Index),
		}
		ver := ProgressStep{
			ID:    fmt.Sprintf("verify-%d", attempt.Index),
			Label: fmt.Sprintf("Verify attempt %d", attempt.Index),
		}

		switch attempt.Status {
		case AttemptGenerating:
			gen.Status = StepInProgress
			ver.Status = StepPending
		case AttemptVerifying:
			gen.Status = StepCompleted
			ver.Status = StepInProgress
		case AttemptPassed:
			gen.Status = StepCompleted
			ver.Status = StepCompleted
		case AttemptFailed:
			gen.Status = StepCompleted
			ver.Status = StepFailed
		case AttemptError:
			// The failed stage is whichever had no output yet.
			if attempt.Image.Data == nil {
				gen.Status = StepFailed
				ver.Status = StepPending
			} else {
				gen.Status = StepCompleted
				ver.Status = StepFailed
			}
		}

		if v := attempt.Verification; v != nil {
			score := v.Score
			ver.Score = &score
			ver.Detail = v.Critique
		} else if attempt.Status == AttemptError && state.Err != nil {
			detail := state.Err.Message
			if gen.Status == StepFailed {
				gen.Detail = detail
			} else {
				ver.Detail = detail
			}
		}

		steps = append(steps, gen, ver)
	}

	return steps
}
