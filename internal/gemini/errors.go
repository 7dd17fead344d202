package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind is the stable classification of a provider failure. Kinds drive
// both retry decisions and the explanation shown to the caller.
type ErrorKind string

const (
	KindRateLimit       ErrorKind = "rate_limit"
	KindAuthError       ErrorKind = "auth_error"
	KindSafetyBlock     ErrorKind = "safety_block"
	KindBadRequest      ErrorKind = "bad_request"
	KindServerError     ErrorKind = "server_error"
	KindImageRecitation ErrorKind = "image_recitation"
	KindNoImageReturned ErrorKind = "no_image_returned"
	KindUnknown         ErrorKind = "unknown"
)

// ProviderError is a classified provider failure. Retryable kinds are
// absorbed by the invoker's backoff; non-retryable kinds surface immediately
// with their original message intact.
type ProviderError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// apiError is the structured error body the API returns alongside non-200
// statuses: {"error": {"code": 429, "message": "...", "status": "RESOURCE_EXHAUSTED"}}.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ClassifyHTTP maps a provider HTTP failure to a ProviderError. The body is
// parsed as the structured API error when possible; otherwise a generic
// message is built from the status code and classified the same way.
func ClassifyHTTP(statusCode int, body []byte) *ProviderError {
	message := fmt.Sprintf("provider returned status %d", statusCode)
	apiStatus := ""

	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
		apiStatus = parsed.Error.Status
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &ProviderError{Kind: KindRateLimit, Message: message, StatusCode: statusCode, Retryable: true}
	case statusCode == http.StatusForbidden:
		return &ProviderError{Kind: KindAuthError, Message: message, StatusCode: statusCode, Retryable: false}
	case statusCode == http.StatusBadRequest && isSafetyMessage(message, apiStatus):
		return &ProviderError{Kind: KindSafetyBlock, Message: message, StatusCode: statusCode, Retryable: false}
	case statusCode == http.StatusBadRequest:
		return &ProviderError{Kind: KindBadRequest, Message: message, StatusCode: statusCode, Retryable: false}
	case statusCode >= 500:
		return &ProviderError{Kind: KindServerError, Message: message, StatusCode: statusCode, Retryable: true}
	default:
		return &ProviderError{Kind: KindUnknown, Message: message, StatusCode: statusCode, Retryable: statusCode >= 500}
	}
}

// isSafetyMessage reports whether a 400 response carries a safety-policy
// rejection rather than a malformed request.
func isSafetyMessage(message, apiStatus string) bool {
	lower := strings.ToLower(message + " " + apiStatus)
	return strings.Contains(lower, "safety") || strings.Contains(lower, "prohibited_content") || strings.Contains(lower, "blocked")
}
