package fixer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/shopaudit/imagefix/internal/assets"
	"github.com/shopaudit/imagefix/internal/compliance"
	"github.com/shopaudit/imagefix/internal/gemini"
)

// Defaults for fix runs.
const (
	DefaultMaxAttempts           = 3
	DefaultSatisfactionThreshold = 80
)

// Generator is the external image-generation capability.
type Generator interface {
	GenerateImage(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResult, error)
}

// Verifier is the external verification capability.
type Verifier interface {
	VerifyFix(ctx context.Context, req gemini.VerifyRequest) (*compliance.VerificationResult, error)
}

// Options configure one fix run.
type Options struct {
	// MaxAttempts bounds the generate-then-verify cycles. Minimum 1,
	// default 3.
	MaxAttempts int
	// SatisfactionThreshold is the minimum verification score treated as a
	// pass. Default 80.
	SatisfactionThreshold int
	// CustomPrompt replaces the composed instruction verbatim.
	CustomPrompt string

	// Composer inputs.
	Category           string
	EnhancementType    string
	TargetImprovements []string
	PreserveElements   []string
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.SatisfactionThreshold <= 0 {
		o.SatisfactionThreshold = DefaultSatisfactionThreshold
	}
	return o
}

// Orchestrator drives the fix state machine for single assets. The invoker
// bounds transport-level retries inside each provider call; the attempt
// budget bounds regeneration cycles. The two budgets are deliberately
// separate counters.
type Orchestrator struct {
	gen     Generator
	ver     Verifier
	invoker *gemini.Invoker

	// publish receives an immutable snapshot after every transition.
	// Optional.
	publish func(FixProgressState)
}

// NewOrchestrator creates an orchestrator. A nil invoker gets the default
// retry budget.
func NewOrchestrator(gen Generator, ver Verifier, invoker *gemini.Invoker, publish func(FixProgressState)) *Orchestrator {
	if invoker == nil {
		invoker = gemini.NewInvoker()
	}
	return &Orchestrator{gen: gen, ver: ver, invoker: invoker, publish: publish}
}

// Run executes the fix loop for one asset. On a passing verification the
// generated image is written back to asset.FixedImage; on exhaustion the
// asset is untouched and the final phase is failed; provider failures and
// cancellation end the run in the error phase. The returned state is the
// final snapshot regardless of outcome.
func (o *Orchestrator) Run(ctx context.Context, asset *compliance.Asset, report *compliance.ComplianceResult, reference *compliance.Asset, opts Options) (FixProgressState, error) {
	opts = opts.withDefaults()

	state := FixProgressState{
		AssetID:      asset.ID,
		Attempt:      1,
		MaxAttempts:  opts.MaxAttempts,
		Phase:        PhaseGenerating,
		CustomPrompt: opts.CustomPrompt,
	}

	improvements := opts.TargetImprovements
	if len(improvements) == 0 && report != nil {
		improvements = report.FixRecommendations
	}

	verifyContext := ComplianceContext(report)

	log.Info().
		Str("asset", asset.ID).
		Int("max_attempts", opts.MaxAttempts).
		Int("threshold", opts.SatisfactionThreshold).
		Bool("custom_prompt", opts.CustomPrompt != "").
		Msg("Starting fix run")

	for {
		if err := ctx.Err(); err != nil {
			return o.fail(state, &gemini.ProviderError{Kind: gemini.KindUnknown, Message: "fix run cancelled"}), err
		}

		var prior *compliance.VerificationResult
		if n := len(state.Attempts); n > 0 {
			prior = state.Attempts[n-1].Verification
		}

		// Generating.
		state.Attempts = append(state.Attempts, FixAttempt{Index: state.Attempt, Status: AttemptGenerating})
		state.Phase = PhaseGenerating
		o.emit(state)

		instruction := Compose(ComposeRequest{
			Category:           opts.Category,
			EnhancementType:    opts.EnhancementType,
			TargetImprovements: improvements,
			PreserveElements:   opts.PreserveElements,
			PriorVerification:  prior,
			Override:           opts.CustomPrompt,
		})

		genReq := gemini.GenerateRequest{
			Instruction:       instruction,
			SystemInstruction: assets.FixSystemPrompt,
			Image:             asset.Image,
		}
		if reference != nil && reference.ID != asset.ID {
			genReq.Reference = &reference.Image
		}

		genRes, err := gemini.Invoke(ctx, o.invoker, "generate", func(ctx context.Context) (*gemini.GenerateResult, error) {
			return o.gen.GenerateImage(ctx, genReq)
		})
		if err != nil {
			log.Warn().Err(err).Str("asset", asset.ID).Int("attempt", state.Attempt).
				Msg("Fix generation failed, ending run")
			return o.fail(state, err), err
		}

		// Verifying.
		cur := len(state.Attempts) - 1
		state.Attempts[cur].Image = genRes.Image
		state.Attempts[cur].Status = AttemptVerifying
		state.Phase = PhaseVerifying
		o.emit(state)

		verdict, err := gemini.Invoke(ctx, o.invoker, "verify", func(ctx context.Context) (*compliance.VerificationResult, error) {
			return o.ver.VerifyFix(ctx, gemini.VerifyRequest{
				Generated: genRes.Image,
				Original:  asset.Image,
				Context:   verifyContext,
			})
		})
		if err != nil {
			log.Warn().Err(err).Str("asset", asset.ID).Int("attempt", state.Attempt).
				Msg("Fix verification failed, ending run")
			return o.fail(state, err), err
		}

		verdict.IsSatisfactory = verdict.Score >= opts.SatisfactionThreshold && verdict.ProductMatch
		state.Attempts[cur].Verification = verdict
		state.ThinkingSteps = append(state.ThinkingSteps, verdict.Reasoning...)
		state.LastCritique = verdict.Critique

		if verdict.IsSatisfactory {
			state.Attempts[cur].Status = AttemptPassed
			state.Phase = PhasePassed
			if ctx.Err() == nil {
				fixed := genRes.Image
				asset.FixedImage = &fixed
			}
			o.emit(state)
			log.Info().
				Str("asset", asset.ID).
				Int("attempt", state.Attempt).
				Int("score", verdict.Score).
				Msg("Fix passed verification")
			return state.snapshot(), nil
		}

		state.Attempts[cur].Status = AttemptFailed
		if state.Attempt >= opts.MaxAttempts {
			state.Phase = PhaseFailed
			o.emit(state)
			log.Info().
				Str("asset", asset.ID).
				Int("attempts", state.Attempt).
				Int("last_score", verdict.Score).
				Msg("Fix attempts exhausted without a passing verification")
			return state.snapshot(), nil
		}

		state.Phase = PhaseRetrying
		o.emit(state)
		log.Info().
			Str("asset", asset.ID).
			Int("attempt", state.Attempt).
			Int("score", verdict.Score).
			Int("threshold", opts.SatisfactionThreshold).
			Bool("product_match", verdict.ProductMatch).
			Msg("Verification unsatisfied, retrying with critique")
		state.Attempt++
	}
}

// fail marks the in-flight attempt errored and ends the run in the error
// phase with the classified failure attached.
func (o *Orchestrator) fail(state FixProgressState, err error) FixProgressState {
	if n := len(state.Attempts); n > 0 && !terminalAttempt(state.Attempts[n-1].Status) {
		state.Attempts[n-1].Status = AttemptError
	}
	fixErr := &FixError{Kind: gemini.KindUnknown, Message: fmt.Sprintf("%v", err)}
	var pe *gemini.ProviderError
	if errors.As(err, &pe) {
		fixErr = &FixError{Kind: pe.Kind, Message: pe.Message}
	}
	state.Phase = PhaseError
	state.Err = fixErr
	o.emit(state)
	return state.snapshot()
}

func (o *Orchestrator) emit(state FixProgressState) {
	if o.publish != nil {
		o.publish(state.snapshot())
	}
}

func terminalAttempt(s AttemptStatus) bool {
	return s == AttemptPassed || s == AttemptFailed || s == AttemptError
}
