package gemini

import "testing"

func TestClassifyHTTPByStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  ErrorKind
		retryable bool
	}{
		{"rate limit", 429, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, KindRateLimit, true},
		{"auth", 403, `{"error":{"code":403,"message":"API key invalid","status":"PERMISSION_DENIED"}}`, KindAuthError, false},
		{"safety block", 400, `{"error":{"code":400,"message":"Request blocked by safety settings","status":"INVALID_ARGUMENT"}}`, KindSafetyBlock, false},
		{"bad request", 400, `{"error":{"code":400,"message":"invalid image encoding","status":"INVALID_ARGUMENT"}}`, KindBadRequest, false},
		{"server error", 500, `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`, KindServerError, true},
		{"bad gateway", 503, ``, KindServerError, true},
		{"unexpected status", 418, ``, KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := ClassifyHTTP(tt.status, []byte(tt.body))
			if perr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", perr.Kind, tt.wantKind)
			}
			if perr.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", perr.Retryable, tt.retryable)
			}
			if perr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", perr.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyHTTPKeepsProviderMessage(t *testing.T) {
	perr := ClassifyHTTP(400, []byte(`{"error":{"code":400,"message":"image exceeds maximum size","status":"INVALID_ARGUMENT"}}`))
	if perr.Message != "image exceeds maximum size" {
		t.Errorf("message = %q, want provider's own message", perr.Message)
	}
}

func TestClassifyHTTPUnparseableBody(t *testing.T) {
	perr := ClassifyHTTP(502, []byte("<html>bad gateway</html>"))
	if perr.Kind != KindServerError {
		t.Errorf("kind = %s, want %s", perr.Kind, KindServerError)
	}
	if perr.Message != "provider returned status 502" {
		t.Errorf("message = %q, want generic status message", perr.Message)
	}
}
