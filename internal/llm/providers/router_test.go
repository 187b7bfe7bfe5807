package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvote/go-tallyeval/internal/llm/transport"
)

func TestRouterHandle(t *testing.T) {
	t.Run("google round trip with multimodal parts", func(t *testing.T) {
		var captured map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{{
					"content":      map[string]any{"parts": []map[string]any{{"text": `{"ok":true}`}}},
					"finishReason": "STOP",
				}},
				"usageMetadata": map[string]any{
					"promptTokenCount":     100,
					"candidatesTokenCount": 20,
					"totalTokenCount":      120,
				},
			})
		}))
		defer server.Close()

		router, err := NewRouter(map[string]Config{
			ProviderGoogle: {Endpoint: server.URL, APIKey: "test-key"},
		}, server.Client())
		require.NoError(t, err)

		resp, err := router.Handle(context.Background(), &transport.Request{
			Model:       "gemini-2.0-flash",
			Temperature: 0,
			MaxTokens:   8192,
			Parts: []transport.ContentPart{
				transport.ImagePart([]byte{0xFF, 0xD8}, "image/jpeg"),
				transport.TextPart("extract the form"),
			},
		})

		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, resp.Content)
		assert.Equal(t, "STOP", resp.FinishReason)
		assert.Equal(t, 120, resp.Usage.TotalTokens)

		contents := captured["contents"].([]any)
		parts := contents[0].(map[string]any)["parts"].([]any)
		require.Len(t, parts, 2, "image and text parts must travel in one request")
		_, hasInline := parts[0].(map[string]any)["inline_data"]
		assert.True(t, hasInline, "first part should be the inline image")
	})

	t.Run("rate limited response classifies as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
		}))
		defer server.Close()

		router, err := NewRouter(map[string]Config{
			ProviderOpenAI: {Endpoint: server.URL, APIKey: "k"},
		}, server.Client())
		require.NoError(t, err)

		_, err = router.Handle(context.Background(), &transport.Request{Model: "gpt-4o"})
		var pe *transport.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, transport.ErrorTypeRateLimit, pe.Type)
		assert.Equal(t, 7, pe.RetryAfterSeconds)
		assert.Equal(t, "quota exceeded", pe.Message)
		assert.True(t, transport.IsTransient(err))
	})

	t.Run("unknown provider in request", func(t *testing.T) {
		router, err := NewRouter(map[string]Config{ProviderGoogle: {APIKey: "k"}}, nil)
		require.NoError(t, err)

		_, err = router.Handle(context.Background(), &transport.Request{Provider: "mistral", Model: "m"})
		assert.ErrorIs(t, err, transport.ErrUnknownProvider)
	})

	t.Run("unknown provider in config fails construction", func(t *testing.T) {
		_, err := NewRouter(map[string]Config{"mistral": {}}, nil)
		assert.ErrorIs(t, err, transport.ErrUnknownProvider)
	})

	t.Run("auth failure is not transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer server.Close()

		router, err := NewRouter(map[string]Config{
			ProviderGoogle: {Endpoint: server.URL, APIKey: "bad"},
		}, server.Client())
		require.NoError(t, err)

		_, err = router.Handle(context.Background(), &transport.Request{Model: "gemini-2.0-flash"})
		var pe *transport.ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, transport.ErrorTypeAuth, pe.Type)
		assert.False(t, transport.IsTransient(err))
	})
}
