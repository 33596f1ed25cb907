package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/iamvkosarev/rag-chat-gateway/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newFakeGemini(t *testing.T, quotaOnFirst bool) *httptest.Server {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				if !strings.HasSuffix(r.URL.Path, ":generateContent") {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found","status":"NOT_FOUND"}}`))
					return
				}
				if quotaOnFirst && calls.Add(1) == 1 {
					w.WriteHeader(http.StatusTooManyRequests)
					_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
					return
				}
				_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"پاسخ آلوم‌گلس"}]},"finishReason":"STOP"}]}`))
			},
		),
	)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(llmURL string) *config.Config {
	return &config.Config{
		Server: config.Server{
			Address:         "127.0.0.1:0",
			AllowedOrigins:  []string{"http://localhost"},
			ShutdownTimeout: time.Second,
		},
		Session: config.Session{
			CookieName:   "alumglass_anon_session",
			MaxAge:       720 * time.Hour,
			HistoryLimit: 8,
		},
		Storage: config.Storage{Driver: "memory", MessageTTL: time.Hour},
		LLM: config.LLM{
			Backend:         "gemini",
			BaseURL:         llmURL + "/",
			GenerationModel: "gemini-2.5-pro",
			EmbeddingModel:  "text-embedding-004",
			Timeout:         5 * time.Second,
			GenerationKeys:  []string{"free:k-1", "paid:k-2"},
			MaxAttempts:     5,
		},
		Vector: config.Vector{Driver: "none", Limit: 10},
		Search: config.Search{MaxResults: 5, Timeout: time.Second},
		Prompt: config.Prompt{
			Locale:        "fa",
			AssistantName: "AlumGlass",
			MaxTokens:     24000,
			SnippetRunes:  200,
			Encoding:      "no-such-encoding",
		},
	}
}

func serve(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestChatRoundTripOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	gemini := newFakeGemini(t, true)
	cfg := testConfig(gemini.URL)
	cfg.Storage.Driver = "redis"
	cfg.Storage.Redis.Endpoint = mr.Addr()

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	rec := serve(a.Echo, http.MethodPost, "/api/webchat", `{"text":"پنجره دوجداره چیست؟"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp usecase.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "پاسخ آلوم‌گلس", resp.Response)
	require.NotEmpty(t, resp.SessionID)
	assert.Empty(t, resp.AstraResults)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, resp.SessionID, cookies[0].Value)

	rec = serve(a.Echo, http.MethodGet, "/api/get-history/"+resp.SessionID, "", cookies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	var history usecase.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.History, 2)

	attempts, err := testutil.GatherAndCount(a.Metrics.Registry, "gateway_credential_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestNewStorageDrivers(t *testing.T) {
	gemini := newFakeGemini(t, false)

	t.Run(
		"sqlite", func(t *testing.T) {
			cfg := testConfig(gemini.URL)
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "chat.db")

			a, err := New(context.Background(), cfg, nil)
			require.NoError(t, err)
			defer a.Close()

			rec := serve(a.Echo, http.MethodPost, "/api/webchat", `{"text":"سلام"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
		},
	)

	t.Run(
		"redis unreachable", func(t *testing.T) {
			mr := miniredis.RunT(t)
			addr := mr.Addr()
			mr.Close()

			cfg := testConfig(gemini.URL)
			cfg.Storage.Driver = "redis"
			cfg.Storage.Redis.Endpoint = addr

			_, err := New(context.Background(), cfg, nil)
			assert.ErrorContains(t, err, "failed to connect to redis")
		},
	)

	t.Run(
		"unknown", func(t *testing.T) {
			cfg := testConfig(gemini.URL)
			cfg.Storage.Driver = "cassandra"

			_, err := New(context.Background(), cfg, nil)
			assert.ErrorIs(t, err, config.ErrUnknownStorageDriver)
		},
	)
}

func TestRunStopsOnCancel(t *testing.T) {
	gemini := newFakeGemini(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, testConfig(gemini.URL), nil)
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
