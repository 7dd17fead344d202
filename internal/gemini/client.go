// Package gemini is a REST client for the Gemini generateContent API, used
// for both fix-image generation and fix verification. It calls the API over
// HTTP directly rather than through the SDK so that raw status codes and
// error bodies reach the transient-error classifier unmodified.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shopaudit/imagefix/internal/imagedata"
)

// defaultBaseURL is the Gemini REST API base URL.
const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Default models for the two capabilities.
const (
	DefaultImageModel  = "gemini-3-pro-image-preview"
	DefaultVerifyModel = "gemini-3-pro-preview"
)

// Client calls the Gemini API for image generation and verification.
type Client struct {
	apiKey      string
	baseURL     string
	imageModel  string
	verifyModel string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithModels overrides the generation and verification models.
func WithModels(imageModel, verifyModel string) Option {
	return func(c *Client) {
		if imageModel != "" {
			c.imageModel = imageModel
		}
		if verifyModel != "" {
			c.verifyModel = verifyModel
		}
	}
}

// NewClient creates a Gemini client. Image generation can take tens of
// seconds, so the HTTP timeout is generous; it is also the per-call deadline
// that bounds a stalled provider call.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		imageModel:  DefaultImageModel,
		verifyModel: DefaultVerifyModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- REST API request/response types ---

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	Thought    bool            `json:"thought,omitempty"`
	InlineData *geminiBlobData `json:"inlineData,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string              `json:"responseModalities,omitempty"`
	ThinkingConfig     *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts"`
}

type geminiBlobData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// --- Generation capability ---

// GenerateRequest is one fix-image generation call.
type GenerateRequest struct {
	// Instruction is the composed fix instruction.
	Instruction string
	// SystemInstruction is optional system-level context.
	SystemInstruction string
	// Image is the asset image to regenerate.
	Image imagedata.Image
	// Reference is an optional MAIN image included for product-identity
	// consistency.
	Reference *imagedata.Image
}

// GenerateResult is a successful generation response.
type GenerateResult struct {
	Image imagedata.Image
	// Text is any description returned alongside the image.
	Text string
}

// GenerateImage sends the asset image with the fix instruction and returns
// the regenerated image. Failures are classified ProviderErrors: transport
// and status failures per the classifier, plus image_recitation when the
// model declines over near-duplicate concerns and no_image_returned when the
// response carries no image data.
func (c *Client) GenerateImage(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.imageModel).
		Int("image_bytes", len(req.Image.Data)).
		Str("image_mime", req.Image.MediaType).
		Bool("has_reference", req.Reference != nil).
		Msg("Sending image to Gemini for fix generation")

	parts := []geminiPart{
		{InlineData: inlineBlob(req.Image)},
	}
	if req.Reference != nil {
		parts = append(parts, geminiPart{InlineData: inlineBlob(*req.Reference)})
	}
	parts = append(parts, geminiPart{Text: req.Instruction})

	apiReq := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.SystemInstruction != "" {
		apiReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}

	geminiResp, err := c.post(ctx, c.imageModel, apiReq)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{}
	for _, candidate := range geminiResp.Candidates {
		if perr := classifyFinishReason(candidate.FinishReason); perr != nil {
			return nil, perr
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil {
				decoded, derr := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if derr != nil {
					return nil, fmt.Errorf("decode generated image data: %w", derr)
				}
				result.Image = imagedata.Image{
					MediaType: imagedata.NormalizeMediaType(part.InlineData.MIMEType),
					Data:      decoded,
				}
			}
			if part.Text != "" {
				result.Text += part.Text
			}
		}
	}

	if result.Image.Data == nil {
		return nil, &ProviderError{
			Kind:      KindNoImageReturned,
			Message:   fmt.Sprintf("no image returned in response (text: %s)", truncateString(result.Text, 200)),
			Retryable: false,
		}
	}

	log.Info().
		Int("output_bytes", len(result.Image.Data)).
		Str("output_mime", result.Image.MediaType).
		Dur("duration", time.Since(startTime)).
		Msg("Fix generation complete")

	return result, nil
}

// post executes one generateContent call and returns the parsed response.
// Non-200 statuses and in-band API errors come back as ProviderErrors.
func (c *Client) post(ctx context.Context, model string, apiReq geminiRequest) (*geminiResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		perr := ClassifyHTTP(resp.StatusCode, respBody)
		log.Error().
			Int("status", resp.StatusCode).
			Str("kind", string(perr.Kind)).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Gemini API returned error")
		return nil, perr
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, &ProviderError{
			Kind:    KindUnknown,
			Message: fmt.Sprintf("unparseable response: %v", err),
		}
	}
	if geminiResp.Error != nil {
		return nil, ClassifyHTTP(geminiResp.Error.Code, respBody)
	}
	return &geminiResp, nil
}

// classifyFinishReason maps terminal candidate finish reasons to provider
// errors. A normal STOP returns nil.
func classifyFinishReason(reason string) *ProviderError {
	switch reason {
	case "", "STOP", "MAX_TOKENS":
		return nil
	case "RECITATION", "IMAGE_RECITATION":
		return &ProviderError{
			Kind:      KindImageRecitation,
			Message:   "generation declined: output too close to existing imagery",
			Retryable: false,
		}
	case "SAFETY", "IMAGE_SAFETY", "PROHIBITED_CONTENT":
		return &ProviderError{
			Kind:      KindSafetyBlock,
			Message:   fmt.Sprintf("generation blocked by safety policy (%s)", reason),
			Retryable: false,
		}
	default:
		return nil
	}
}

func inlineBlob(img imagedata.Image) *geminiBlobData {
	return &geminiBlobData{
		MIMEType: img.MediaType,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
