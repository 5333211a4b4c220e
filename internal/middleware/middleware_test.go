// internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andre-sav/panopticon/internal/pkg/jwt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// ========== Auth ==========

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

func newAuthRouter(t *testing.T, blacklist Blacklist) (*gin.Engine, *jwt.Manager) {
	t.Helper()

	manager := jwt.NewManager("test-secret", "panopticon", time.Hour)
	auth := NewAuthMiddleware(manager, blacklist, zap.NewNop())

	router := gin.New()
	router.GET("/protected", auth.Auth(), func(c *gin.Context) {
		operator, _ := GetOperator(c)
		c.String(http.StatusOK, operator)
	})
	return router, manager
}

func TestAuthRejectsMissingToken(t *testing.T) {
	router, _ := newAuthRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization token")
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	router, _ := newAuthRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired token")
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	expired := jwt.NewManager("test-secret", "panopticon", -time.Minute)
	token, _, err := expired.Generate("operator")
	require.NoError(t, err)

	router, _ := newAuthRouter(t, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	router, manager := newAuthRouter(t, nil)

	token, _, err := manager.Generate("operator")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operator", w.Body.String())
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	// Websocket upgrades cannot set an Authorization header from the
	// browser, so the token rides in the query string.
	router, manager := newAuthRouter(t, nil)

	token, _, err := manager.Generate("operator")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthIgnoresMalformedAuthorizationHeader(t *testing.T) {
	router, _ := newAuthRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization token")
}

func TestAuthRejectsRevokedToken(t *testing.T) {
	blacklist := &fakeBlacklist{revoked: map[string]bool{}}
	router, manager := newAuthRouter(t, blacklist)

	token, jti, err := manager.Generate("operator")
	require.NoError(t, err)
	blacklist.revoked[jti] = true

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session has been logged out")
}

func TestAuthSurvivesBlacklistOutage(t *testing.T) {
	// A valid signature wins over an unreachable blacklist.
	router, manager := newAuthRouter(t, &fakeBlacklist{err: errors.New("redis down")})

	token, _, err := manager.Generate("operator")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========== Logging ==========

func TestLoggingAssignsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(LoggingMiddleware(zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, w.Header().Get("X-Request-Id"), w.Body.String())
}

func TestLoggingReusesInboundRequestID(t *testing.T) {
	router := gin.New()
	router.Use(LoggingMiddleware(zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "upstream-id-42")
	router.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id-42", w.Header().Get("X-Request-Id"))
}

func TestLoggingLevelTracksStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(LoggingMiddleware(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/missing", "/broken"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, zap.ErrorLevel, entries[2].Level)
	for _, entry := range entries {
		assert.Equal(t, "request", entry.Message)
	}
}

// ========== Recovery ==========

func TestRecoveryConvertsPanicToError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("handler exploded")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	require.NotPanics(t, func() { router.ServeHTTP(w, req) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "panic recovered", logs.All()[0].Message)
}

// ========== CORS ==========

func newCORSRouter(origins []string) *gin.Engine {
	router := gin.New()
	router.Use(CORSMiddleware(origins))
	router.GET("/api", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestCORSDefaultAllowsAnyOrigin(t *testing.T) {
	router := newCORSRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "http://example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSEchoesConfiguredOrigin(t *testing.T) {
	router := newCORSRouter([]string{"http://localhost:5173"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORSOmitsHeaderForUnknownOrigin(t *testing.T) {
	router := newCORSRouter([]string{"http://localhost:5173"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	router.ServeHTTP(w, req)

	// The browser enforces the block; the request itself still runs.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAnswersPreflight(t *testing.T) {
	router := newCORSRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

// ========== Metrics ==========

func gatherFamily(t *testing.T, name string) bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return true
		}
	}
	return false
}

func TestMetricsRecordsRequests(t *testing.T) {
	router := gin.New()
	router.Use(Metrics())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gatherFamily(t, "http_requests_total"))
	assert.True(t, gatherFamily(t, "http_request_duration_seconds"))
}

func TestDomainCountersRegister(t *testing.T) {
	RecordRefresh("ok")
	RecordFetchError("auth")
	SetStatusCounts(3, 1, 7)
	RegisterDashboardConnections(func() int { return 2 })

	assert.True(t, gatherFamily(t, "lead_refreshes_total"))
	assert.True(t, gatherFamily(t, "crm_fetch_errors_total"))
	assert.True(t, gatherFamily(t, "panopticon_leads_status_count"))
	assert.True(t, gatherFamily(t, "dashboard_websocket_connections"))
}
