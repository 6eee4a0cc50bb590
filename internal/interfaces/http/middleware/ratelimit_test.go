package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// limitedRequest sends one request from the given remote address through the
// router and returns the recorder.
func limitedRequest(router *gin.Engine, method, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func okHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("client1"), "request %d should be allowed", i+1)
		}
	})

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("client2"))
		}
		assert.False(t, limiter.Allow("client2"))
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientA"))
		assert.False(t, limiter.Allow("clientA"))

		assert.True(t, limiter.Allow("clientB"))
		assert.True(t, limiter.Allow("clientB"))
	})

	t.Run("resets after window", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		assert.True(t, limiter.Allow("client3"))
		assert.True(t, limiter.Allow("client3"))
		assert.False(t, limiter.Allow("client3"))

		time.Sleep(60 * time.Millisecond)

		assert.True(t, limiter.Allow("client3"))
	})

	t.Run("remaining returns correct count", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, limiter.Remaining("newclient"))

		limiter.Allow("newclient")
		limiter.Allow("newclient")

		assert.Equal(t, 3, limiter.Remaining("newclient"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		var wg sync.WaitGroup
		allowed := 0
		var mu sync.Mutex

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("concurrent-client") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimit(NewRateLimiter(3, time.Minute)))
		router.GET("/accounts", okHandler)

		for i := 0; i < 3; i++ {
			w := limitedRequest(router, "GET", "/accounts", "")
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("returns 429 when limit exceeded", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimit(NewRateLimiter(2, time.Minute)))
		router.GET("/accounts", okHandler)

		for i := 0; i < 2; i++ {
			w := limitedRequest(router, "GET", "/accounts", "")
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := limitedRequest(router, "GET", "/accounts", "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("uses JWT client name in rate limit key", func(t *testing.T) {
		router := gin.New()
		// Simulate the JWT middleware having identified the client
		router.Use(func(c *gin.Context) {
			c.Set(JWTClientNameKey, c.GetHeader("X-Test-Client"))
			c.Next()
		})
		router.Use(RateLimit(NewRateLimiter(1, time.Minute)))
		router.GET("/accounts", okHandler)

		send := func(client string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("GET", "/accounts", nil)
			req.Header.Set("X-Test-Client", client)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		assert.Equal(t, http.StatusOK, send("client1").Code)
		assert.Equal(t, http.StatusTooManyRequests, send("client1").Code)
		// Different client, same IP: separate budget
		assert.Equal(t, http.StatusOK, send("client2").Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitByKey(NewRateLimiter(1, time.Minute), func(c *gin.Context) string {
		return c.GetHeader("X-Account-ID")
	}))
	router.GET("/todo-items", okHandler)

	send := func(account string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/todo-items", nil)
		req.Header.Set("X-Account-ID", account)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("acc-1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send("acc-1").Code)
	assert.Equal(t, http.StatusOK, send("acc-2").Code)
}

func TestAuthRateLimit(t *testing.T) {
	newAuthRouter := func(limit int) *gin.Engine {
		router := gin.New()
		router.Use(AuthRateLimit(NewRateLimiter(limit, time.Minute)))
		router.POST("/token", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		return router
	}

	t.Run("allows requests within auth limit", func(t *testing.T) {
		router := newAuthRouter(5)

		for i := 0; i < 5; i++ {
			w := limitedRequest(router, "POST", "/token", "192.168.1.100:12345")
			assert.Equal(t, http.StatusOK, w.Code, "request %d should be allowed", i+1)
		}
	})

	t.Run("returns 429 with AUTH_RATE_LIMIT_EXCEEDED when limit exceeded", func(t *testing.T) {
		router := newAuthRouter(3)

		for i := 0; i < 3; i++ {
			w := limitedRequest(router, "POST", "/token", "192.168.1.100:12345")
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := limitedRequest(router, "POST", "/token", "192.168.1.100:12345")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "AUTH_RATE_LIMIT_EXCEEDED")
		assert.Contains(t, w.Body.String(), "Too many authentication attempts")
	})

	t.Run("includes rate limit headers", func(t *testing.T) {
		router := newAuthRouter(5)

		w := limitedRequest(router, "POST", "/token", "192.168.1.100:12345")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("includes Retry-After header when blocked", func(t *testing.T) {
		router := newAuthRouter(1)

		limitedRequest(router, "POST", "/token", "192.168.1.100:12345")
		w := limitedRequest(router, "POST", "/token", "192.168.1.100:12345")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("separate limits per IP address", func(t *testing.T) {
		router := newAuthRouter(2)

		for i := 0; i < 2; i++ {
			w := limitedRequest(router, "POST", "/token", "192.168.1.1:12345")
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := limitedRequest(router, "POST", "/token", "192.168.1.1:12345")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		w = limitedRequest(router, "POST", "/token", "192.168.1.2:12345")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("auth budget is isolated from the general limiter", func(t *testing.T) {
		router := gin.New()

		authGroup := router.Group("/auth")
		authGroup.Use(AuthRateLimit(NewRateLimiter(2, time.Minute)))
		authGroup.POST("/token", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		router.Use(RateLimit(NewRateLimiter(100, time.Minute)))
		router.GET("/accounts", okHandler)

		for i := 0; i < 2; i++ {
			w := limitedRequest(router, "POST", "/auth/token", "192.168.1.100:12345")
			assert.Equal(t, http.StatusOK, w.Code)
		}

		w := limitedRequest(router, "POST", "/auth/token", "192.168.1.100:12345")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		// Same IP still has general API budget
		w = limitedRequest(router, "GET", "/accounts", "192.168.1.100:12345")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
