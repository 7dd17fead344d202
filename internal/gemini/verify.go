package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shopaudit/imagefix/internal/assets"
	"github.com/shopaudit/imagefix/internal/compliance"
	"github.com/shopaudit/imagefix/internal/imagedata"
	"github.com/shopaudit/imagefix/internal/jsonutil"
)

// VerifyRequest is one fix-verification call: the regenerated image is judged
// against the original and the compliance context that triggered the fix.
type VerifyRequest struct {
	// Generated is the candidate fix image.
	Generated imagedata.Image
	// Original is the asset image before regeneration.
	Original imagedata.Image
	// Context describes the violations and listing context being fixed.
	Context string
}

// verificationPayload is the JSON shape the verifier is instructed to emit.
// The satisfaction decision is made by the caller against its configured
// threshold, not trusted from the model.
type verificationPayload struct {
	Score        int                         `json:"score"`
	ProductMatch bool                        `json:"productMatch"`
	Components   *compliance.ComponentScores `json:"components"`
	Critique     string                      `json:"critique"`
	Improvements []string                    `json:"improvements"`
	PassedChecks []string                    `json:"passedChecks"`
	FailedChecks []string                    `json:"failedChecks"`
}

// VerifyFix sends the generated and original images to the verification
// model and parses its judgement. The model's step-by-step thoughts, when
// present, are returned as the reasoning trace. An unparseable judgement is
// an unknown-kind provider failure rather than a guessed verdict.
func (c *Client) VerifyFix(ctx context.Context, req VerifyRequest) (*compliance.VerificationResult, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.verifyModel).
		Int("generated_bytes", len(req.Generated.Data)).
		Int("original_bytes", len(req.Original.Data)).
		Msg("Sending fix to Gemini for verification")

	userPrompt := "The first image is a regenerated product image; the second is the original it replaces.\n\n" +
		req.Context +
		"\n\nJudge the regenerated image. Follow the response format in the system instruction exactly."

	apiReq := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT"},
			ThinkingConfig:     &geminiThinkingConfig{IncludeThoughts: true},
		},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: assets.VerificationSystemPrompt}}},
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{InlineData: inlineBlob(req.Generated)},
					{InlineData: inlineBlob(req.Original)},
					{Text: userPrompt},
				},
			},
		},
	}

	geminiResp, err := c.post(ctx, c.verifyModel, apiReq)
	if err != nil {
		return nil, err
	}

	var text string
	var reasoning []string
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text == "" {
				continue
			}
			if part.Thought {
				reasoning = append(reasoning, part.Text)
			} else {
				text += part.Text
			}
		}
	}

	payload, err := jsonutil.ParseJSON[verificationPayload](text)
	if err != nil {
		return nil, &ProviderError{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("unparseable verification response: %v", err),
		}
	}

	result := &compliance.VerificationResult{
		Score:        payload.Score,
		ProductMatch: payload.ProductMatch,
		Components:   payload.Components,
		Critique:     payload.Critique,
		Improvements: payload.Improvements,
		PassedChecks: payload.PassedChecks,
		FailedChecks: payload.FailedChecks,
		Reasoning:    reasoning,
	}

	log.Info().
		Int("score", result.Score).
		Bool("product_match", result.ProductMatch).
		Int("failed_checks", len(result.FailedChecks)).
		Int("reasoning_steps", len(result.Reasoning)).
		Dur("duration", time.Since(startTime)).
		Msg("Fix verification complete")

	return result, nil
}
