// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time so deployments carry no loose prompt files.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// --- Static prompts (no dynamic data) ---

// FixSystemPrompt frames every fix-generation call: marketplace compliance
// context and the hard rule that the product itself must not change.
//
//go:embed prompts/fix-system.txt
var FixSystemPrompt string

// VerificationSystemPrompt instructs the verification model to judge a
// regenerated image and respond with the structured JSON verdict.
//
//go:embed prompts/verification-system.txt
var VerificationSystemPrompt string

// --- Category fix templates ---

//go:embed prompts/fix-lifestyle.txt
var fixLifestylePrompt string

//go:embed prompts/fix-infographic.txt
var fixInfographicPrompt string

//go:embed prompts/fix-in-use.txt
var fixInUsePrompt string

//go:embed prompts/fix-comparison.txt
var fixComparisonPrompt string

//go:embed prompts/fix-size-reference.txt
var fixSizeReferencePrompt string

//go:embed prompts/fix-generic.txt
var fixGenericPromptText string

var fixGenericTemplate = template.Must(template.New("fix-generic").Parse(fixGenericPromptText))

// categoryPrompts maps image categories to their fix instruction templates.
var categoryPrompts = map[string]string{
	"lifestyle":      fixLifestylePrompt,
	"infographic":    fixInfographicPrompt,
	"in-use":         fixInUsePrompt,
	"comparison":     fixComparisonPrompt,
	"size-reference": fixSizeReferencePrompt,
}

// FixPrompt returns the base fix instruction for a category. An unmatched
// category falls back to the generic template parameterized by the
// enhancement type.
func FixPrompt(category, enhancementType string) string {
	if prompt, ok := categoryPrompts[category]; ok {
		return prompt
	}
	if enhancementType == "" {
		enhancementType = "compliance fix"
	}
	var buf bytes.Buffer
	if err := fixGenericTemplate.Execute(&buf, struct{ EnhancementType string }{enhancementType}); err != nil {
		// Embedded template over a fixed struct; execution cannot fail at runtime.
		return fixGenericPromptText
	}
	return buf.String()
}
