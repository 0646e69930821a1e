package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Response is a provider reply normalized to the canonical (Gemini-shaped)
// schema: candidates[].content.parts[].text plus a finishReason, and
// usageMetadata.totalTokenCount.
type Response struct {
	StatusCode int
	Body       map[string]any
	TokensUsed int
}

// Provider is implemented by each upstream AI provider adapter.
type Provider interface {
	// Name is the human-readable provider name used in error messages.
	Name() string
	// Generate forwards one generation request. payload is the caller's
	// request body with the model field already stripped. endpoint is the
	// logical endpoint name; adapters may ignore it when all logical
	// endpoints map to the same upstream method.
	Generate(ctx context.Context, endpoint, model string, payload map[string]any) (*Response, error)
}

// Canonical finish reasons.
const (
	FinishStop      = "STOP"
	FinishMaxTokens = "MAX_TOKENS"
	FinishError     = "ERROR"
)

// ErrTimeout indicates the upstream call exceeded the configured timeout.
var ErrTimeout = errors.New("upstream request timeout")

// ConnError indicates the upstream provider could not be reached.
type ConnError struct {
	Provider string
	Err      error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("failed to connect to %s API: %v", e.Provider, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// classifyErr maps a transport error to the adapter failure taxonomy.
func classifyErr(provider string, err error) error {
	if isTimeout(err) {
		return ErrTimeout
	}
	return &ConnError{Provider: provider, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// FinishReason returns the finish reason of the first candidate in a
// canonical response body, or "" when none is present.
func FinishReason(body map[string]any) string {
	candidates, ok := body["candidates"].([]any)
	if !ok || len(candidates) == 0 {
		return ""
	}
	first, ok := candidates[0].(map[string]any)
	if !ok {
		return ""
	}
	reason, _ := first["finishReason"].(string)
	return reason
}

// newHTTPClient builds the shared outbound client. The timeout must stay
// below the inbound gateway timeout; see config.AIConfig.RequestTimeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
