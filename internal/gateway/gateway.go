package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"learning_assist/internal/models"
	"learning_assist/internal/providers"
	"learning_assist/internal/utils"
)

// Caller identity sentinels. Token verification happens at the HTTP layer;
// when it yields a real user id that id is used, otherwise bearer presence
// alone maps to the authenticated placeholder.
const (
	AnonymousUser     = "anonymous"
	AuthenticatedUser = "authenticated_user"
)

// Logical endpoints served by the proxy.
var validEndpoints = map[string]bool{
	"generate-content":   true,
	"discover-documents": true,
	"enhance-section":    true,
	"analyze-chapter":    true,
}

// Identity describes the caller as seen by the gateway.
type Identity struct {
	HasBearer bool
	UserID    string
}

// Resolve returns the user id used for quota bucketing and usage records.
func (id Identity) Resolve() string {
	if id.UserID != "" {
		return id.UserID
	}
	if id.HasBearer {
		return AuthenticatedUser
	}
	return AnonymousUser
}

// UsageStore persists usage records and answers per-day counts.
type UsageStore interface {
	Record(ctx context.Context, rec *models.UsageRecord) error
	CountForDay(ctx context.Context, userID, date string) (int, error)
}

// Config holds the gateway's routing table and quota ceiling.
type Config struct {
	// DefaultModel is used when the request body carries no model field.
	DefaultModel string
	// SupportedModels maps model id to provider id ("gemini" | "claude").
	SupportedModels map[string]string
	// DailyRequestLimit is the per-user daily request ceiling.
	DailyRequestLimit int
}

// DefaultSupportedModels is the routing table used when none is configured.
func DefaultSupportedModels() map[string]string {
	return map[string]string{
		"gemini-2.5-pro":             "gemini",
		"claude-3-5-sonnet-20241022": "claude",
	}
}

// Result is the outcome of one proxied request, ready to serialize.
type Result struct {
	Status     int
	Body       any
	Provider   string
	Model      string
	TokensUsed int
}

// Gateway validates generation requests, enforces the daily quota, routes to
// the matching provider adapter and records usage.
type Gateway struct {
	cfg      Config
	adapters map[string]providers.Provider
	usage    UsageStore
	logger   *utils.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a gateway over the given provider adapters, keyed by provider
// id. Only providers whose API key is configured should be present.
func New(cfg Config, adapters map[string]providers.Provider, usage UsageStore) *Gateway {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.5-pro"
	}
	if cfg.SupportedModels == nil {
		cfg.SupportedModels = DefaultSupportedModels()
	}
	if cfg.DailyRequestLimit <= 0 {
		cfg.DailyRequestLimit = 1000
	}
	return &Gateway{
		cfg:      cfg,
		adapters: adapters,
		usage:    usage,
		logger:   utils.NewLogger("gateway"),
		now:      time.Now,
	}
}

// Handle runs one generation request through the pipeline: validate, check
// quota, dispatch to the provider, remap truncation, record usage.
func (g *Gateway) Handle(ctx context.Context, endpoint string, rawBody []byte, ident Identity) Result {
	if !validEndpoints[endpoint] {
		return errorResult(404, "Endpoint not found")
	}

	payload := map[string]any{}
	if len(rawBody) > 0 {
		if err := json.Unmarshal(rawBody, &payload); err != nil {
			return errorResult(400, "Invalid JSON in request body")
		}
	}

	if len(g.adapters) == 0 {
		g.logger.Error("no provider API keys configured")
		return errorResult(500, "No API keys configured on server")
	}

	model := g.cfg.DefaultModel
	if m, ok := payload["model"].(string); ok && m != "" {
		model = m
	}
	providerID, ok := g.cfg.SupportedModels[model]
	if !ok {
		return errorResult(400, fmt.Sprintf("Unsupported model: %s. Supported models: [%s]",
			model, strings.Join(g.supportedModelList(), ", ")))
	}

	userID := ident.Resolve()
	if count, exceeded := g.quotaExceeded(ctx, userID); exceeded {
		return Result{Status: 429, Body: map[string]any{
			"error":         "Daily rate limit exceeded",
			"current_usage": count,
		}}
	}

	if endpoint == "analyze-chapter" {
		if _, ok := payload["contents"]; !ok {
			return errorResult(400, "Missing required field: contents")
		}
	}

	adapter, ok := g.adapters[providerID]
	if !ok {
		if name := providerDisplayName(providerID); name != "" {
			return errorResult(500, name+" API key not configured")
		}
		return errorResult(400, "Unknown model provider: "+providerID)
	}

	upstream := map[string]any{}
	for k, v := range payload {
		if k != "model" {
			upstream[k] = v
		}
	}

	resp, err := adapter.Generate(ctx, endpoint, model, upstream)
	if err != nil {
		return g.failureResult(adapter.Name(), err)
	}

	if resp.StatusCode == 200 && providers.FinishReason(resp.Body) == providers.FinishMaxTokens {
		g.logger.Warn("upstream response truncated", "provider", adapter.Name(), "model", model)
		return errorResult(422, "Output token limit exceeded. Try a shorter prompt or reduce the complexity of your request.")
	}

	g.recordUsage(ctx, userID, endpoint, model, resp.TokensUsed)

	return Result{
		Status:     resp.StatusCode,
		Body:       resp.Body,
		Provider:   adapter.Name(),
		Model:      model,
		TokensUsed: resp.TokensUsed,
	}
}

// quotaExceeded checks the caller's request count for the current UTC day.
// Store read failures fail open: the request is allowed with count 0.
func (g *Gateway) quotaExceeded(ctx context.Context, userID string) (int, bool) {
	date := g.now().UTC().Format("2006-01-02")
	count, err := g.usage.CountForDay(ctx, userID, date)
	if err != nil {
		g.logger.Warn("quota check failed, allowing request", "user_id", userID, "error", err)
		return 0, false
	}
	return count, count >= g.cfg.DailyRequestLimit
}

// recordUsage writes the usage record. Failures are logged and swallowed so a
// quota-write problem never fails a completed generation call.
func (g *Gateway) recordUsage(ctx context.Context, userID, endpoint, model string, tokens int) {
	now := g.now().UTC()
	rec := &models.UsageRecord{
		UsageID:    uuid.New().String(),
		UserID:     userID,
		Endpoint:   fmt.Sprintf("%s-%s", endpoint, model),
		TokensUsed: tokens,
		Timestamp:  now.Format(time.RFC3339),
		Date:       now.Format("2006-01-02"),
	}
	if err := g.usage.Record(ctx, rec); err != nil {
		g.logger.Warn("failed to record usage", "user_id", userID, "error", err)
	}
}

func (g *Gateway) failureResult(providerName string, err error) Result {
	if errors.Is(err, providers.ErrTimeout) {
		g.logger.Error("upstream request timed out", "provider", providerName)
		return errorResult(504, "Request timeout")
	}
	var connErr *providers.ConnError
	if errors.As(err, &connErr) {
		g.logger.Error("upstream connection failed", "provider", connErr.Provider, "error", connErr.Err)
		return errorResult(502, fmt.Sprintf("Failed to connect to %s API", connErr.Provider))
	}
	g.logger.Error("generation failed", "provider", providerName, "error", err)
	return errorResult(500, "Failed to generate content")
}

func (g *Gateway) supportedModelList() []string {
	names := make([]string, 0, len(g.cfg.SupportedModels))
	for m := range g.cfg.SupportedModels {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

func providerDisplayName(providerID string) string {
	switch providerID {
	case "gemini":
		return "Gemini"
	case "claude":
		return "Claude"
	}
	return ""
}

func errorResult(status int, message string) Result {
	return Result{Status: status, Body: map[string]any{"error": message}}
}
