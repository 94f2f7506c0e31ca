package middleware

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/agrisoil/backend/internal/logger"
)

func newLimitedRouter(rl *RateLimiter, userID *uuid.UUID) *gin.Engine {
	r := gin.New()
	r.GET("/limited", func(c *gin.Context) {
		if userID != nil {
			c.Set(ContextUserID, *userID)
		}
		c.Next()
	}, rl.RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r http.Handler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	return w
}

// redisClient connects to REDIS_HOST, skipping the test when it is unset.
func redisClient(t *testing.T) *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set, skipping Redis-backed rate limit test")
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	client := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(host, port)})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRateLimiterDisabledWithoutRedis(t *testing.T) {
	rl := NewPaidAPIRateLimiter(nil, logger.NewNop())
	assert.False(t, rl.Enabled())

	var nilLimiter *RateLimiter
	assert.False(t, nilLimiter.Enabled())

	r := newLimitedRouter(rl, nil)
	for i := 0; i < 25; i++ {
		assert.Equal(t, http.StatusOK, hit(r).Code)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	r := newLimitedRouter(NewPaidAPIRateLimiter(client, logger.NewNop()), nil)
	w := hit(r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rate limit check failed", w.Header().Get("X-RateLimit-Error"))
}

func TestRateLimiterWithRedis(t *testing.T) {
	client := redisClient(t)
	require.NoError(t, client.Ping(context.Background()).Err())

	rl := NewRateLimiter(client, RateLimitConfig{
		Window:    time.Minute,
		Limit:     3,
		KeyPrefix: "test:" + uuid.NewString(),
	}, logger.NewNop())
	userID := uuid.New()
	r := newLimitedRouter(rl, &userID)

	for i := 0; i < 3; i++ {
		w := hit(r)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := hit(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestIsAllowedWindowKey(t *testing.T) {
	client := redisClient(t)

	rl := NewRateLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 1, KeyPrefix: "test:" + uuid.NewString()}, logger.NewNop())
	fixed := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	allowed, remaining, reset, err := rl.IsAllowed(context.Background(), "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, remaining)
	assert.Equal(t, time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC), reset)

	allowed, _, _, err = rl.IsAllowed(context.Background(), "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)
}
