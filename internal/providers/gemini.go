package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"learning_assist/internal/utils"
)

// GeminiProvider proxies generation requests to the Gemini REST API. Its
// native response schema is already the canonical one, so no translation
// happens on this path.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *utils.Logger
}

// NewGeminiProvider creates a Gemini adapter. baseURL is the API root up to
// and excluding the /models segment.
func NewGeminiProvider(apiKey, baseURL string, timeout time.Duration) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
		logger:  utils.NewLogger("gemini"),
	}
}

func (p *GeminiProvider) Name() string { return "Gemini" }

// Generate forwards the payload to <base>/models/<model>:generateContent.
// Every logical endpoint maps to the same upstream generation method, so
// endpoint only matters for logging.
func (p *GeminiProvider) Generate(ctx context.Context, endpoint, model string, payload map[string]any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.baseURL, url.PathEscape(model), url.QueryEscape(p.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Error("gemini request failed", "endpoint", endpoint, "error", err)
		return nil, classifyErr(p.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyErr(p.Name(), err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}

	p.logger.Info("gemini response", "endpoint", endpoint, "status", resp.StatusCode)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       parsed,
		TokensUsed: geminiTokens(parsed),
	}, nil
}

// geminiTokens reads usageMetadata.totalTokenCount, 0 when unavailable.
func geminiTokens(body map[string]any) int {
	meta, ok := body["usageMetadata"].(map[string]any)
	if !ok {
		return 0
	}
	total, _ := meta["totalTokenCount"].(float64)
	return int(total)
}
