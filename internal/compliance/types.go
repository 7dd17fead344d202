// Package compliance defines the domain model shared by the audit and fix
// surfaces: assets under management, audit reports, and verification verdicts.
package compliance

import "github.com/shopaudit/imagefix/internal/imagedata"

// AssetRole distinguishes the primary listing image from supporting images.
type AssetRole string

const (
	RoleMain      AssetRole = "MAIN"
	RoleSecondary AssetRole = "SECONDARY"
)

// Asset is one product image under compliance management. The fix loop reads
// the identity and image payload and writes FixedImage back on a passing run;
// everything else belongs to the caller.
type Asset struct {
	ID     string          `json:"id"`
	Role   AssetRole       `json:"role"`
	Image  imagedata.Image `json:"image"`
	Width  int             `json:"width,omitempty"`
	Height int             `json:"height,omitempty"`

	// FixedImage holds the latest accepted regeneration, nil until a fix
	// run passes.
	FixedImage *imagedata.Image `json:"fixedImage,omitempty"`
}

// Severity levels for violations, ordered from most to least urgent.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Violation is a single compliance finding from the audit. Immutable once
// produced.
type Violation struct {
	Severity       string `json:"severity"`
	Category       string `json:"category"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation,omitempty"`
	Region         string `json:"region,omitempty"`
}

// ComplianceResult is the outcome of the external compliance analysis for one
// asset. It is the starting context for a fix run, never produced here.
type ComplianceResult struct {
	Score              int         `json:"score"` // 0-100
	Passed             bool        `json:"passed"`
	Violations         []Violation `json:"violations"`
	FixRecommendations []string    `json:"fixRecommendations,omitempty"`
	ListingContext     string      `json:"listingContext,omitempty"`
}

// ComponentScores breaks a verification score into its judged dimensions.
// Optional dimensions are -1 when the verifier did not report them.
type ComponentScores struct {
	Identity    int `json:"identity"`
	Compliance  int `json:"compliance"`
	Quality     int `json:"quality"`
	NoNewIssues int `json:"noNewIssues"`
	TextLayout  int `json:"textLayout,omitempty"`
	NoAdditions int `json:"noAdditions,omitempty"`
}

// VerificationResult is the verdict on one generated fix. Produced once per
// attempt by the verification call; immutable.
type VerificationResult struct {
	Score          int              `json:"score"` // 0-100
	IsSatisfactory bool             `json:"isSatisfactory"`
	ProductMatch   bool             `json:"productMatch"`
	Components     *ComponentScores `json:"components,omitempty"`
	Critique       string           `json:"critique,omitempty"`
	Improvements   []string         `json:"improvements,omitempty"`
	PassedChecks   []string         `json:"passedChecks,omitempty"`
	FailedChecks   []string         `json:"failedChecks,omitempty"`

	// Reasoning is the verifier's step-by-step trace, surfaced for live
	// display when the model exposes its thoughts.
	Reasoning []string `json:"reasoning,omitempty"`
}
