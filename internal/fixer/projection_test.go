package fixer

import (
	"reflect"
	"testing"

	"github.com/shopaudit/imagefix/internal/compliance"
	"github.com/shopaudit/imagefix/internal/gemini"
	"github.com/shopaudit/imagefix/internal/imagedata"
)

func generatedImage() imagedata.Image {
	return imagedata.Image{MediaType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF}}
}

func TestProjectEmptyState(t *testing.T) {
	steps := Project(FixProgressState{AssetID: "a", Phase: PhaseGenerating})
	if len(steps) != 0 {
		t.Errorf("no attempts should project no steps, got %d", len(steps))
	}
}

func TestProjectMidGeneration(t *testing.T) {
	steps := Project(FixProgressState{
		Phase:    PhaseGenerating,
		Attempts: []FixAttempt{{Index: 1, Status: AttemptGenerating}},
	})
	if len(steps) != 2 {
		t.Fatalf("steps = %d, want one generate plus one verify", len(steps))
	}
	if steps[0].ID != "generate-1" || steps[0].Status != StepInProgress {
		t.Errorf("generate step = %+v", steps[0])
	}
	if steps[1].ID != "verify-1" || steps[1].Status != StepPending {
		t.Errorf("verify step = %+v", steps[1])
	}
}

func TestProjectMidVerification(t *testing.T) {
	steps := Project(FixProgressState{
		Phase:    PhaseVerifying,
		Attempts: []FixAttempt{{Index: 1, Status: AttemptVerifying, Image: generatedImage()}},
	})
	if steps[0].Status != StepCompleted {
		t.Errorf("generate step should be completed once the image exists, got %s", steps[0].Status)
	}
	if steps[1].Status != StepInProgress {
		t.Errorf("verify step = %s, want in_progress", steps[1].Status)
	}
}

func TestProjectRetryThenPass(t *testing.T) {
	failedVerdict := &compliance.VerificationResult{Score: 60, Critique: "shadow still harsh"}
	passedVerdict := &compliance.VerificationResult{Score: 91, IsSatisfactory: true}

	steps := Project(FixProgressState{
		Phase: PhasePassed,
		Attempts: []FixAttempt{
			{Index: 1, Status: AttemptFailed, Image: generatedImage(), Verification: failedVerdict},
			{Index: 2, Status: AttemptPassed, Image: generatedImage(), Verification: passedVerdict},
		},
	})

	if len(steps) != 4 {
		t.Fatalf("steps = %d, want 2 per attempt", len(steps))
	}
	wantIDs := []string{"generate-1", "verify-1", "generate-2", "verify-2"}
	for i, want := range wantIDs {
		if steps[i].ID != want {
			t.Errorf("step %d id = %s, want %s", i, steps[i].ID, want)
		}
	}

	if steps[1].Status != StepFailed {
		t.Errorf("failed attempt's verify step = %s, want failed", steps[1].Status)
	}
	if steps[1].Score == nil || *steps[1].Score != 60 {
		t.Errorf("failed verify step should carry the score, got %+v", steps[1].Score)
	}
	if steps[1].Detail != "shadow still harsh" {
		t.Errorf("failed verify step detail = %q", steps[1].Detail)
	}
	if steps[3].Status != StepCompleted {
		t.Errorf("passing verify step = %s, want completed", steps[3].Status)
	}
	if steps[3].Score == nil || *steps[3].Score != 91 {
		t.Errorf("passing verify step score = %+v", steps[3].Score)
	}
}

func TestProjectGenerationError(t *testing.T) {
	steps := Project(FixProgressState{
		Phase:    PhaseError,
		Err:      &FixError{Kind: gemini.KindSafetyBlock, Message: "blocked"},
		Attempts: []FixAttempt{{Index: 1, Status: AttemptError}},
	})
	if steps[0].Status != StepFailed {
		t.Errorf("generate step = %s, want failed when no image was produced", steps[0].Status)
	}
	if steps[0].Detail != "blocked" {
		t.Errorf("generate step detail = %q, want the surfaced error message", steps[0].Detail)
	}
	if steps[1].Status != StepPending {
		t.Errorf("verify step = %s, want pending (never ran)", steps[1].Status)
	}
}

func TestProjectVerificationError(t *testing.T) {
	steps := Project(FixProgressState{
		Phase:    PhaseError,
		Err:      &FixError{Kind: gemini.KindServerError, Message: "upstream 503"},
		Attempts: []FixAttempt{{Index: 1, Status: AttemptError, Image: generatedImage()}},
	})
	if steps[0].Status != StepCompleted {
		t.Errorf("generate step = %s, want completed (the image exists)", steps[0].Status)
	}
	if steps[1].Status != StepFailed {
		t.Errorf("verify step = %s, want failed", steps[1].Status)
	}
	if steps[1].Detail != "upstream 503" {
		t.Errorf("verify step detail = %q", steps[1].Detail)
	}
}

func TestProjectIsPure(t *testing.T) {
	state := FixProgressState{
		Phase: PhaseRetrying,
		Attempts: []FixAttempt{
			{Index: 1, Status: AttemptFailed, Image: generatedImage(), Verification: &compliance.VerificationResult{Score: 40}},
		},
	}

	first := Project(state)
	second := Project(state)
	if !reflect.DeepEqual(first, second) {
		t.Error("same state must always project the same steps")
	}
	if state.Attempts[0].Status != AttemptFailed {
		t.Error("projection must not mutate its input")
	}
}
