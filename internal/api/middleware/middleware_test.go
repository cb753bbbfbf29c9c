package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"greendrake/estate/internal/api/middleware"
	"greendrake/estate/internal/auth"
	"greendrake/estate/internal/config"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/utils"
)

const testSecret = "testsecret"

func setupAuthEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(testSecret), func(c *gin.Context) {
		id, ok := services.ActorFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.GET("/admin", middleware.AuthMiddleware(testSecret), middleware.AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func request(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := setupAuthEngine()
	userID := utils.NewSixID()
	token, err := auth.GenerateJWT(userID, false, testSecret, time.Hour)
	assert.NoError(t, err)

	w := request(r, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", "Bearer garbage").Code)

	other, _ := auth.GenerateJWT(userID, false, "other-secret", time.Hour)
	assert.Equal(t, http.StatusUnauthorized, request(r, "/me", "Bearer "+other).Code)
}

func TestAdminMiddleware(t *testing.T) {
	r := setupAuthEngine()
	userToken, _ := auth.GenerateJWT(utils.NewSixID(), false, testSecret, time.Hour)
	adminToken, _ := auth.GenerateJWT(utils.NewSixID(), true, testSecret, time.Hour)

	assert.Equal(t, http.StatusForbidden, request(r, "/admin", "Bearer "+userToken).Code)
	assert.Equal(t, http.StatusNoContent, request(r, "/admin", "Bearer "+adminToken).Code)
}

func TestBearerToken(t *testing.T) {
	tok, ok := middleware.BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
	_, ok = middleware.BearerToken("Bearer")
	assert.False(t, ok)
	_, ok = middleware.BearerToken("Bearer ")
	assert.False(t, ok)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Defaults()
	cfg.RateLimitBucketSize = 3
	cfg.RateLimitRefillRate = 1

	r := gin.New()
	r.Use(middleware.NewRateLimiterMiddleware(cfg, nil).Limit())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	hit := func(ip string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code, "request %d", i)
	}
	w := hit("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// buckets are per client
	assert.Equal(t, http.StatusOK, hit("10.0.0.2").Code)
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	preflight := func(origins []string, origin string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(middleware.CORSMiddleware(origins))
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("OPTIONS", "/ping", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight([]string{"*"}, "https://anything.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight([]string{"https://app.example.com"}, "https://app.example.com")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight([]string{"https://app.example.com"}, "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
