package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vinefi-traceability/internal/adapter/http/middleware"
	redisStore "vinefi-traceability/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := redisStore.NewRateLimitStore(client)
	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}

	r := gin.New()
	r.GET("/trace", middleware.RateLimiter(store, "public_trace", rule, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return r, mr
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	router, _ := setupRateLimitRouter(t)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/trace", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	router, _ := setupRateLimitRouter(t)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trace", nil))
		assert.Equal(t, 200, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trace", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_002")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiterDegradedModeAllows(t *testing.T) {
	router, mr := setupRateLimitRouter(t)
	mr.Close() // simulate Redis outage

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trace", nil))

	assert.Equal(t, 200, w.Code)
}
