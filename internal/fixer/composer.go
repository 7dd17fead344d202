package fixer

import (
	"fmt"
	"strings"

	"github.com/shopaudit/imagefix/internal/assets"
	"github.com/shopaudit/imagefix/internal/compliance"
)

// ComposeRequest carries everything the composer folds into one fix
// instruction.
type ComposeRequest struct {
	// Category selects the fix template (lifestyle, infographic, in-use,
	// comparison, size-reference). Unmatched categories use the generic
	// template parameterized by EnhancementType.
	Category        string
	EnhancementType string

	TargetImprovements []string
	PreserveElements   []string

	// PriorVerification is the previous attempt's verdict; its failed
	// checks and critique steer the retry. Nil on the first attempt.
	PriorVerification *compliance.VerificationResult

	// Override, when set, is used verbatim and everything else is ignored.
	Override string
}

// Compose builds the instruction for one generation call. Retries lead with
// the prior verdict's failed checks and critique so consecutive attempts are
// never redundant; the preserve and improvement sections are omitted when
// empty.
func Compose(req ComposeRequest) string {
	if req.Override != "" {
		return req.Override
	}

	var b strings.Builder

	if prior := req.PriorVerification; prior != nil {
		b.WriteString("A previous attempt at this fix was rejected by review.\n")
		if len(prior.FailedChecks) > 0 {
			b.WriteString("Checks that failed:\n")
			for _, check := range prior.FailedChecks {
				fmt.Fprintf(&b, "- %s\n", check)
			}
		}
		if prior.Critique != "" {
			fmt.Fprintf(&b, "Reviewer critique: %s\n", prior.Critique)
		}
		b.WriteString("Address every point above in this attempt.\n\n")
	}

	b.WriteString(assets.FixPrompt(req.Category, req.EnhancementType))

	if len(req.PreserveElements) > 0 {
		b.WriteString("\n\nPreserve exactly, without any alteration:\n")
		for _, elem := range req.PreserveElements {
			fmt.Fprintf(&b, "- %s\n", elem)
		}
	}

	if len(req.TargetImprovements) > 0 {
		b.WriteString("\n\nTarget improvements:\n")
		for i, imp := range req.TargetImprovements {
			fmt.Fprintf(&b, "%d. %s\n", i+1, imp)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// ComplianceContext renders the audit findings as the verification context
// block: the violations being fixed and the listing context, if known.
func ComplianceContext(result *compliance.ComplianceResult) string {
	if result == nil {
		return "No compliance findings were provided."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Original compliance score: %d/100.\n", result.Score)
	if result.ListingContext != "" {
		fmt.Fprintf(&b, "Listing context: %s\n", result.ListingContext)
	}
	if len(result.Violations) > 0 {
		b.WriteString("Violations the regeneration must fix:\n")
		for _, v := range result.Violations {
			fmt.Fprintf(&b, "- [%s] %s: %s", v.Severity, v.Category, v.Message)
			if v.Recommendation != "" {
				fmt.Fprintf(&b, " (recommendation: %s)", v.Recommendation)
			}
			if v.Region != "" {
				fmt.Fprintf(&b, " (region: %s)", v.Region)
			}
			b.WriteString("\n")
		}
	}
	for _, rec := range result.FixRecommendations {
		fmt.Fprintf(&b, "Recommendation: %s\n", rec)
	}
	return strings.TrimRight(b.String(), "\n")
}
