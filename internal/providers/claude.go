package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"learning_assist/internal/utils"
)

const (
	anthropicVersion   = "2023-06-01"
	claudeMessagesPath = "/v1/messages"

	// Claude requires max_tokens on every request.
	claudeDefaultMaxTokens   = 4096
	claudeDefaultTemperature = 0.7
)

// ClaudeProvider proxies generation requests to the Claude messages API,
// translating between the canonical (Gemini-shaped) schema and Claude's
// message schema in both directions.
type ClaudeProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *utils.Logger
}

// NewClaudeProvider creates a Claude adapter. baseURL is the API root up to
// and excluding /v1/messages.
func NewClaudeProvider(apiKey, baseURL string, timeout time.Duration) *ClaudeProvider {
	return &ClaudeProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
		logger:  utils.NewLogger("claude"),
	}
}

func (p *ClaudeProvider) Name() string { return "Claude" }

func (p *ClaudeProvider) Generate(ctx context.Context, endpoint, model string, payload map[string]any) (*Response, error) {
	claudeReq := BuildClaudeRequest(payload, model)

	body, err := json.Marshal(claudeReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claude request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+claudeMessagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create claude request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Error("claude request failed", "endpoint", endpoint, "error", err)
		return nil, classifyErr(p.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyErr(p.Name(), err)
	}

	var raw map[string]any
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode claude response: %w", err)
	}

	p.logger.Info("claude response", "endpoint", endpoint, "status", resp.StatusCode)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       ClaudeToCanonical(raw),
		TokensUsed: claudeTokens(raw),
	}, nil
}

// BuildClaudeRequest translates a canonical request body into Claude's
// message schema. Each text part of contents becomes one message; a role of
// "user" (or no role at all) maps to "user", everything else maps to
// "assistant".
func BuildClaudeRequest(payload map[string]any, model string) map[string]any {
	messages := []map[string]any{}
	if contents, ok := payload["contents"].([]any); ok {
		for _, c := range contents {
			content, ok := c.(map[string]any)
			if !ok {
				continue
			}
			role := "user"
			if r, ok := content["role"].(string); ok && r != "user" {
				role = "assistant"
			}
			parts, ok := content["parts"].([]any)
			if !ok {
				continue
			}
			for _, pt := range parts {
				part, ok := pt.(map[string]any)
				if !ok {
					continue
				}
				if text, ok := part["text"].(string); ok {
					messages = append(messages, map[string]any{
						"role":    role,
						"content": text,
					})
				}
			}
		}
	}

	maxTokens := claudeDefaultMaxTokens
	temperature := claudeDefaultTemperature
	if gc, ok := payload["generationConfig"].(map[string]any); ok {
		if v, ok := gc["maxOutputTokens"].(float64); ok {
			maxTokens = int(v)
		}
		if v, ok := gc["temperature"].(float64); ok {
			temperature = v
		}
	}

	return map[string]any{
		"model":       model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
}

// ClaudeToCanonical translates a Claude response into the canonical schema.
// Exactly one candidate is produced. A response without any content blocks
// yields finishReason ERROR with placeholder text; otherwise stop_reason
// "max_tokens" maps to MAX_TOKENS and everything else (including an absent
// stop_reason) maps to STOP.
func ClaudeToCanonical(raw map[string]any) map[string]any {
	text := ""
	hasContent := false
	if blocks, ok := raw["content"].([]any); ok && len(blocks) > 0 {
		hasContent = true
		if first, ok := blocks[0].(map[string]any); ok {
			text, _ = first["text"].(string)
		}
	}

	finishReason := FinishStop
	if stopReason, ok := raw["stop_reason"].(string); ok && stopReason == "max_tokens" {
		finishReason = FinishMaxTokens
	}
	if !hasContent {
		finishReason = FinishError
		text = "No content generated"
	}

	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": finishReason,
			},
		},
		"usageMetadata": map[string]any{
			"totalTokenCount": claudeTokens(raw),
		},
	}
}

// claudeTokens sums input and output tokens, 0 when usage is absent.
func claudeTokens(raw map[string]any) int {
	usage, ok := raw["usage"].(map[string]any)
	if !ok {
		return 0
	}
	in, _ := usage["input_tokens"].(float64)
	out, _ := usage["output_tokens"].(float64)
	return int(in) + int(out)
}
