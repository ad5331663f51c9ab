package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sociallink/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webOrigin = "http://localhost:5173"

// edgeApp runs only the global middleware chain in front of a trivial route.
func edgeApp(origins string) *fiber.App {
	srv := &Server{config: &config.Config{AllowedOrigins: origins}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.All("/api/posts", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func edgeRequest(t *testing.T, app *fiber.App, method, origin string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/api/posts", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestEdge_CORSOrigins(t *testing.T) {
	app := edgeApp(webOrigin)

	resp := edgeRequest(t, app, http.MethodGet, webOrigin)
	assert.Equal(t, webOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	resp = edgeRequest(t, app, http.MethodGet, "https://evil.example")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	// unset falls back to the local web client
	resp = edgeRequest(t, edgeApp(""), http.MethodGet, "http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEdge_SecurityHeaders(t *testing.T) {
	resp := edgeRequest(t, edgeApp(webOrigin), http.MethodGet, "")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestEdge_RateLimitKeepsCORSAndSparesPreflight(t *testing.T) {
	app := edgeApp(webOrigin)
	for i := 0; i < 100; i++ {
		resp := edgeRequest(t, app, http.MethodPost, webOrigin)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}

	limited := edgeRequest(t, app, http.MethodPost, webOrigin)
	assert.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, webOrigin, limited.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(limited.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, true, body["retryable"])

	preflight := edgeRequest(t, app, http.MethodOptions, webOrigin)
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
