package httpapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"learning_assist/internal/auth"
	"learning_assist/internal/gateway"
	"learning_assist/internal/logging"
	"learning_assist/internal/utils"
)

// handleProxy serves POST /ai/{endpoint}: it resolves the caller identity,
// runs the request through the gateway and logs the outcome to the sink.
func (deps *Dependencies) handleProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	endpoint := strings.TrimPrefix(r.URL.Path, "/ai/")
	endpoint = strings.Trim(endpoint, "/")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	ident := deps.identityFromRequest(r)
	start := time.Now()

	result := deps.Gateway.Handle(r.Context(), endpoint, body, ident)

	if err := utils.RespondWithJSON(w, result.Status, result.Body); err != nil {
		deps.logger.Error("failed to write proxy response", "endpoint", endpoint, "error", err)
	}

	rec := &logging.ProxyLogRecord{
		Timestamp:  start.UTC(),
		RequestID:  uuid.New().String(),
		UserID:     ident.Resolve(),
		Endpoint:   endpoint,
		Provider:   result.Provider,
		Model:      result.Model,
		StatusCode: result.Status,
		TokensUsed: result.TokensUsed,
		GatewayMs:  time.Since(start).Milliseconds(),
	}
	if result.Status >= 400 {
		if body, ok := result.Body.(map[string]any); ok {
			rec.Error, _ = body["error"].(string)
		}
	}
	deps.Logs.Enqueue(rec)
}

// identityFromRequest derives the caller identity from the Authorization
// header. A verifiable token contributes its user id; a bearer token that
// fails verification still counts as an authenticated caller for quota
// bucketing.
func (deps *Dependencies) identityFromRequest(r *http.Request) gateway.Identity {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return gateway.Identity{}
	}

	ident := gateway.Identity{HasBearer: true}
	if claims, err := auth.VerifyToken(strings.TrimPrefix(header, "Bearer "), deps.TokenSecret); err == nil {
		ident.UserID = claims.UserID
	}
	return ident
}
