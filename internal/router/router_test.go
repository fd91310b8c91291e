package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deppfellow/predict-lambda/internal/config"
	"github.com/deppfellow/predict-lambda/internal/features"
	"github.com/deppfellow/predict-lambda/internal/handler"
	"github.com/deppfellow/predict-lambda/internal/middleware"
	"github.com/deppfellow/predict-lambda/internal/router"
	"github.com/deppfellow/predict-lambda/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "local-secret"

// robotsModel predicts "bot" whenever robots_txt_requested is set.
func robotsModel(t *testing.T) string {
	t.Helper()

	schema, err := features.Default()
	require.NoError(t, err)

	human := make([]float64, len(schema.Fields()))
	bot := make([]float64, len(schema.Fields()))
	for i, name := range schema.Fields() {
		if name == "robots_txt_requested" {
			bot[i] = 10
		}
	}

	data, err := json.Marshal(map[string]any{
		"classes":    []string{"human", "bot"},
		"activation": "identity",
		"layers": []map[string]any{
			{"weights": [][]float64{human, bot}, "biases": []float64{1, 0}},
		},
	})
	require.NoError(t, err)
	return string(data)
}

func testConfig(t *testing.T, modelJSON string) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "neural.json")
	if modelJSON != "" {
		require.NoError(t, os.WriteFile(path, []byte(modelJSON), 0o600))
	}

	cfg := config.Default()
	cfg.ChallengeSecret = secret
	cfg.Workspace = "test"
	cfg.Model.URI = "file://" + path
	cfg.Server.RateLimit = 0
	return cfg
}

func newRouter(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()

	logger := zerolog.Nop()
	srv, err := server.New(context.Background(), cfg, &logger, nil)
	require.NoError(t, err)

	return router.NewRouter(srv, handler.NewHandlers(srv))
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func features14(robots float64) map[string]any {
	schema, _ := features.Default()
	set := make(map[string]any)
	for _, name := range schema.Fields() {
		set[name] = 0
	}
	set["robots_txt_requested"] = robots
	return set
}

func body(t *testing.T, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestInvoke_Ping(t *testing.T) {
	e := newRouter(t, testConfig(t, robotsModel(t)))

	for _, path := range []string{"/", "/invoke"} {
		t.Run(path, func(t *testing.T) {
			rec := do(e, http.MethodPost, path, `{"action":"ping","secret":"`+secret+`"}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get(echo.HeaderContentType))
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
			assert.Equal(t, `{"response":"pong"}`, rec.Body.String())
		})
	}
}

func TestInvoke_KeepsCallerRequestID(t *testing.T) {
	e := newRouter(t, testConfig(t, robotsModel(t)))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"ping","secret":"`+secret+`"}`))
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(middleware.RequestIDHeader))
}

func TestInvoke_Predict(t *testing.T) {
	e := newRouter(t, testConfig(t, robotsModel(t)))

	tests := []struct {
		robots float64
		label  string
	}{
		{robots: 1, label: "bot"},
		{robots: 0, label: "human"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/", body(t, map[string]any{
				"action":   "predict",
				"secret":   secret,
				"features": features14(tt.robots),
			}))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"response":"`+tt.label+`"}`, rec.Body.String())
		})
	}
}

func TestInvoke_Errors(t *testing.T) {
	e := newRouter(t, testConfig(t, robotsModel(t)))

	tests := []struct {
		name   string
		body   string
		status int
		error  string
	}{
		{
			name:   "wrong secret",
			body:   `{"action":"ping","secret":"nope"}`,
			status: http.StatusUnauthorized,
			error:  "Challenge secret missing or mismatch",
		},
		{
			name:   "unknown action",
			body:   `{"action":"train","secret":"` + secret + `"}`,
			status: http.StatusBadRequest,
			error:  "Action not recognized: `train`",
		},
		{
			name:   "empty body",
			body:   ``,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing features",
			body:   `{"action":"predict","secret":"` + secret + `"}`,
			status: http.StatusBadRequest,
			error:  "'features' is a required property",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/", tt.body)

			assert.Equal(t, tt.status, rec.Code)

			var got map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Contains(t, got, "error_details")
			assert.Nil(t, got["error_details"])
			if tt.error != "" {
				assert.Equal(t, tt.error, got["error"])
			} else {
				assert.True(t, strings.HasPrefix(got["error"].(string), "Invalid input payload: "))
			}
		})
	}
}

func TestInvoke_UnfittedModel(t *testing.T) {
	e := newRouter(t, testConfig(t, `{"classes": [], "layers": []}`))

	rec := do(e, http.MethodPost, "/", body(t, map[string]any{
		"action":   "predict",
		"secret":   secret,
		"features": features14(0),
	}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Model not fitted: This MLPClassifier instance is not fitted yet.")
}

func TestInvoke_MissingConfiguration(t *testing.T) {
	cfg := testConfig(t, robotsModel(t))
	cfg.ChallengeSecret = ""
	e := newRouter(t, cfg)

	rec := do(e, http.MethodPost, "/", `{"action":"ping","secret":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required environment variables: CHALLENGE_SECRET","error_details":null}`, rec.Body.String())
}

func TestInvoke_RateLimit(t *testing.T) {
	cfg := testConfig(t, robotsModel(t))
	cfg.Server.RateLimit = 1
	e := newRouter(t, cfg)

	ping := `{"action":"ping","secret":"` + secret + `"}`

	first := do(e, http.MethodPost, "/", ping)
	second := do(e, http.MethodPost, "/", ping)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"error":"Too many requests","error_details":null}`, second.Body.String())
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		e := newRouter(t, testConfig(t, robotsModel(t)))

		rec := do(e, http.MethodGet, "/status", "")

		assert.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "healthy", got["status"])
		assert.Equal(t, "test", got["environment"])
	})

	t.Run("model missing", func(t *testing.T) {
		e := newRouter(t, testConfig(t, ""))

		rec := do(e, http.MethodGet, "/status", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"unhealthy"`)
	})
}

func TestNotFound(t *testing.T) {
	e := newRouter(t, testConfig(t, robotsModel(t)))

	rec := do(e, http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Route not found","error_details":null}`, rec.Body.String())
}

func TestOpenAPI(t *testing.T) {
	e := newRouter(t, testConfig(t, robotsModel(t)))

	rec := do(e, http.MethodGet, "/openapi.json", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Contains(t, doc["paths"], "/status")
}
