package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/chat"
)

func setupIdentityRouter(v *Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Identity(v))
	router.GET("/whoami", func(c *gin.Context) {
		identity := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"subject": identity.Subject, "name": identity.Name})
	})
	return router
}

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("secret", "idp")
	token, err := v.Sign("user-1", "Ann", time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, chat.Identity{Subject: "user-1", Name: "Ann"}, identity)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("secret", "idp")

	expired, err := v.Sign("user-1", "Ann", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.Error(t, err)

	otherIssuer, err := NewVerifier("secret", "elsewhere").Sign("user-1", "Ann", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(otherIssuer)
	assert.Error(t, err)

	wrongKey, err := NewVerifier("other-secret", "idp").Sign("user-1", "Ann", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(wrongKey)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "idp",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(unsigned)
	assert.Error(t, err)

	_, err = NewVerifier("", "").Verify(expired)
	assert.ErrorIs(t, err, ErrVerifierDisabled)
}

func TestIdentityMiddleware(t *testing.T) {
	v := NewVerifier("secret", "")
	router := setupIdentityRouter(v)
	token, err := v.Sign("user-9", "Nia", time.Hour)
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"subject":"","name":""}`, rec.Body.String())
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"subject":"user-9","name":"Nia"}`, rec.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"subject":"user-9","name":"Nia"}`, rec.Body.String())
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "AUTHENTICATION_REQUIRED")
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDContextKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "given")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "given", rec.Body.String())
	assert.Equal(t, "given", rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Body.String())
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Request-Id"))
}

func TestRateLimitPerCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	done := make(chan struct{})
	defer close(done)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if sub := c.GetHeader("X-Test-Subject"); sub != "" {
			SetIdentity(c, chat.Identity{Subject: sub})
		}
	}, RateLimit(0.001, 2, done))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(subject string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Test-Subject", subject)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, hit("a"))
	assert.Equal(t, http.StatusNoContent, hit("a"))
	assert.Equal(t, http.StatusTooManyRequests, hit("a"))
	assert.Equal(t, http.StatusNoContent, hit("b"))
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(0, 0, nil))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestLimiterPoolSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pool := newLimiterPool(1, 1)
	pool.now = func() time.Time { return now }

	assert.True(t, pool.allow("k"))
	now = now.Add(11 * time.Minute)
	assert.Equal(t, 1, pool.sweep())
	assert.Empty(t, pool.m)
}
