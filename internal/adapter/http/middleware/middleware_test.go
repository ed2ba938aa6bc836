package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vinefi-traceability/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTokenService struct {
	claims *ports.TokenClaims
	err    error
	seen   string
}

func (f *fakeTokenService) Generate(uuid.UUID, string) (string, time.Time, error) {
	panic("not used")
}

func (f *fakeTokenService) Validate(token string) (*ports.TokenClaims, error) {
	f.seen = token
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func jwtRouter(svc ports.TokenService) *gin.Engine {
	r := gin.New()
	r.GET("/test", JWTAuth(svc, zerolog.Nop()), func(c *gin.Context) {
		uid := c.MustGet(CtxUserID).(uuid.UUID)
		c.JSON(200, gin.H{"user_id": uid.String()})
	})
	return r
}

func TestJWTAuthMissingHeader(t *testing.T) {
	router := jwtRouter(&fakeTokenService{})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestJWTAuthMalformedHeader(t *testing.T) {
	router := jwtRouter(&fakeTokenService{})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthInvalidToken(t *testing.T) {
	router := jwtRouter(&fakeTokenService{err: errors.New("expired")})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_002")
}

func TestJWTAuthValidToken(t *testing.T) {
	userID := uuid.New()
	svc := &fakeTokenService{claims: &ports.TokenClaims{UserID: userID, Email: "a@b.c"}}
	router := jwtRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "good-token", svc.seen)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"request_id": c.GetString(CtxRequestID)})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-me", w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), "trace-me")
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_001")
}

func TestMaxBodySize(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodySize(16))
	r.POST("/test", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"a":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	big := `{"a":"` + strings.Repeat("x", 64) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(big))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
