package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/cppla/sbb/config"
	"github.com/cppla/sbb/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/private", AuthRequired(), func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"username": ctx.GetString(ContextUsernameKey)})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	config.Override(config.AppConfig{JWTSecret: "mw-secret", TokenTTL: time.Hour, SessionCookie: "sbb_session"})
	utils.SetRedisClient(nil)
	r := newAuthRouter()

	token, err := utils.GenerateToken(1, "alice", time.Hour)
	require.NoError(t, err)
	revoked, err := utils.GenerateToken(1, "alice", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(context.Background(), revoked, time.Now().Add(time.Hour))

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{name: "no credentials", wantStatus: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "cookie", cookie: token, wantStatus: http.StatusOK},
		{name: "malformed header", header: "Token " + token, wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", wantStatus: http.StatusUnauthorized},
		{name: "revoked", header: "Bearer " + revoked, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sbb_session", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/limited", RateLimitMiddleware(4), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		codes = append(codes, w.Code)
	}
	// burst is half the per-minute budget
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	open := gin.New()
	open.GET("/open", RateLimitMiddleware(0), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiterSweepsIdleEntriesPeriodically(t *testing.T) {
	l := &ipLimiters{limiters: map[string]*rateLimiter{}, limit: rate.Every(time.Second), burst: 1}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, l.allow("a", t0))
	require.True(t, l.allow("b", t0.Add(4*time.Minute+50*time.Second)))

	// "a" has gone idle but the last sweep was only 20s ago
	require.True(t, l.allow("c", t0.Add(5*time.Minute+10*time.Second)))
	assert.Len(t, l.limiters, 3)

	require.True(t, l.allow("d", t0.Add(5*time.Minute+50*time.Second)))
	assert.NotContains(t, l.limiters, "a")
	assert.Len(t, l.limiters, 3)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, ctx.GetString(utils.ContextRequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	r := gin.New()
	r.Use(m.Handler())
	r.GET("/items/:id", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/items/:id", http.MethodGet, "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("unmatched", http.MethodGet, "404")))
}
