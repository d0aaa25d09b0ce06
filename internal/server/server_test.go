package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServerHost:      "127.0.0.1",
		ServerPort:      "0",
		JWTSecret:       testhelpers.TestJWTSecret,
		JWTTTL:          time.Hour,
		MediaDir:        t.TempDir(),
		MediaURL:        "http://localhost/media",
		RateLimitCreate: 20,
		RateLimitUpdate: 60,
		RateLimitWindow: time.Hour,
	}
}

func TestNew(t *testing.T) {
	t.Setenv("ENV", "test")
	db := testhelpers.SetupSQLite(t)

	server, err := New(testConfig(t), db, Options{})
	require.NoError(t, err)
	require.NotNil(t, server)

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/tags", http.StatusOK},
		{"/api/tags/", http.StatusOK},
		{"/api/ingredients/?name=sa", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			server.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	t.Setenv("ENV", "test")
	server, err := New(testConfig(t), testhelpers.SetupSQLite(t), Options{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nowhere/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"404 page not found"}`, w.Body.String())
}

func TestShutdownBeforeStart(t *testing.T) {
	t.Setenv("ENV", "test")
	server, err := New(testConfig(t), testhelpers.SetupSQLite(t), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
	// a stopped server returns straight away
	assert.NoError(t, server.Start())
}
