package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProvider_Generate(t *testing.T) {
	t.Run("targets the model generation method with the key as query param", func(t *testing.T) {
		var gotPath, gotKey string
		var gotReq map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.URL.Query().Get("key")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			json.NewEncoder(w).Encode(map[string]any{
				"candidates": []any{
					map[string]any{
						"content":      map[string]any{"parts": []any{map[string]any{"text": "ok"}}},
						"finishReason": "STOP",
					},
				},
				"usageMetadata": map[string]any{"totalTokenCount": float64(17)},
			})
		}))
		defer server.Close()

		p := NewGeminiProvider("gem-key", server.URL, 5*time.Second)
		payload := map[string]any{"contents": []any{map[string]any{"parts": []any{map[string]any{"text": "hi"}}}}}
		resp, err := p.Generate(context.Background(), "generate-content", "gemini-2.5-pro", payload)

		require.NoError(t, err)
		assert.Equal(t, "/models/gemini-2.5-pro:generateContent", gotPath)
		assert.Equal(t, "gem-key", gotKey)
		assert.Contains(t, gotReq, "contents")

		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 17, resp.TokensUsed)
		assert.Equal(t, "STOP", FinishReason(resp.Body))
	})

	t.Run("passes the upstream body and status through unchanged", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad request"}})
		}))
		defer server.Close()

		p := NewGeminiProvider("k", server.URL, 5*time.Second)
		resp, err := p.Generate(context.Background(), "generate-content", "gemini-2.5-pro", map[string]any{})

		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Contains(t, resp.Body, "error")
		assert.Equal(t, 0, resp.TokensUsed)
	})

	t.Run("missing usage metadata yields zero tokens", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
		}))
		defer server.Close()

		p := NewGeminiProvider("k", server.URL, 5*time.Second)
		resp, err := p.Generate(context.Background(), "generate-content", "gemini-2.5-pro", map[string]any{})

		require.NoError(t, err)
		assert.Equal(t, 0, resp.TokensUsed)
	})

	t.Run("timeout maps to ErrTimeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		p := NewGeminiProvider("k", server.URL, 20*time.Millisecond)
		_, err := p.Generate(context.Background(), "generate-content", "gemini-2.5-pro", map[string]any{})

		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("unreachable host maps to ConnError", func(t *testing.T) {
		p := NewGeminiProvider("k", "http://127.0.0.1:1", 2*time.Second)
		_, err := p.Generate(context.Background(), "generate-content", "gemini-2.5-pro", map[string]any{})

		var connErr *ConnError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "Gemini", connErr.Provider)
	})
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, "", FinishReason(map[string]any{}))
	assert.Equal(t, "", FinishReason(map[string]any{"candidates": []any{}}))
	assert.Equal(t, "MAX_TOKENS", FinishReason(map[string]any{
		"candidates": []any{map[string]any{"finishReason": "MAX_TOKENS"}},
	}))
}
