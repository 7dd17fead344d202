// Package fixer implements the per-asset fix loop: compose an instruction,
// regenerate the image, verify the result, and retry with the verifier's
// critique until the score passes or the attempt budget runs out.
package fixer

import (
	"github.com/shopaudit/imagefix/internal/compliance"
	"github.com/shopaudit/imagefix/internal/gemini"
	"github.com/shopaudit/imagefix/internal/imagedata"
)

// Phase is the coarse state of a fix run.
// generating → verifying → (passed | retrying | failed | error), with
// retrying looping back to generating on the next attempt.
type Phase string

const (
	PhaseGenerating Phase = "generating"
	PhaseVerifying  Phase = "verifying"
	PhaseRetrying   Phase = "retrying"
	PhasePassed     Phase = "passed"
	PhaseFailed     Phase = "failed"
	PhaseError      Phase = "error"
)

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool {
	return p == PhasePassed || p == PhaseFailed || p == PhaseError
}

// AttemptStatus is the lifecycle of a single generate-then-verify cycle.
type AttemptStatus string

const (
	AttemptGenerating AttemptStatus = "generating"
	AttemptVerifying  AttemptStatus = "verifying"
	AttemptPassed     AttemptStatus = "passed"
	AttemptFailed     AttemptStatus = "failed"
	AttemptError      AttemptStatus = "error"
)

// FixAttempt is one generate-then-verify cycle. A new entry is created per
// iteration and never mutated once its iteration completes; the ordered
// sequence is the complete audit trail of the run.
type FixAttempt struct {
	Index        int                            `json:"index"` // 1-based
	Image        imagedata.Image                `json:"image,omitempty"`
	Verification *compliance.VerificationResult `json:"verification,omitempty"`
	Status       AttemptStatus                  `json:"status"`
}

// FixError is the surfaced form of a terminal provider failure.
type FixError struct {
	Kind    gemini.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// FixProgressState is the externally observable state of a run. Every
// transition publishes a fresh value with copied slices, so concurrent
// readers never observe a torn snapshot.
type FixProgressState struct {
	AssetID     string       `json:"assetId"`
	Attempt     int          `json:"attempt"`
	MaxAttempts int          `json:"maxAttempts"`
	Phase       Phase        `json:"phase"`
	Attempts    []FixAttempt `json:"attempts"`

	// ThinkingSteps accumulates the verifier's reasoning traces across
	// attempts for progressive display.
	ThinkingSteps []string `json:"thinkingSteps,omitempty"`
	// LastCritique is the most recent verification critique.
	LastCritique string `json:"lastCritique,omitempty"`
	// CustomPrompt is the caller's override instruction, if any.
	CustomPrompt string    `json:"customPrompt,omitempty"`
	Err          *FixError `json:"error,omitempty"`
}

// snapshot returns a deep-enough copy for publication: slices are copied so
// later transitions cannot reach a published value.
func (s FixProgressState) snapshot() FixProgressState {
	out := s
	out.Attempts = make([]FixAttempt, len(s.Attempts))
	copy(out.Attempts, s.Attempts)
	if len(s.ThinkingSteps) > 0 {
		out.ThinkingSteps = make([]string, len(s.ThinkingSteps))
		copy(out.ThinkingSteps, s.ThinkingSteps)
	}
	return out
}
