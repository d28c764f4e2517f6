package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"skywatch/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func testContext(t *testing.T, configure func(req *http.Request)) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	configure(req)
	c.Request = req
	return c
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name      string
		configure func(req *http.Request)
		want      string
	}{
		{
			name: "x-forwarded-for single",
			configure: func(req *http.Request) {
				req.Header.Set("X-Forwarded-For", "203.0.113.7")
			},
			want: "203.0.113.7",
		},
		{
			name: "x-forwarded-for takes first of chain",
			configure: func(req *http.Request) {
				req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 172.16.0.2")
			},
			want: "203.0.113.7",
		},
		{
			name: "x-real-ip",
			configure: func(req *http.Request) {
				req.Header.Set("X-Real-IP", " 198.51.100.4 ")
			},
			want: "198.51.100.4",
		},
		{
			name: "remote addr strips port",
			configure: func(req *http.Request) {
				req.RemoteAddr = "192.0.2.9:51234"
			},
			want: "192.0.2.9",
		},
		{
			name: "remote addr without port",
			configure: func(req *http.Request) {
				req.RemoteAddr = "192.0.2.9"
			},
			want: "192.0.2.9",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := testContext(t, tc.configure)
			assert.Equal(t, tc.want, getClientIP(c))
		})
	}
}

func TestRateLimitMiddlewareThrottlesPerIP(t *testing.T) {
	old := config.AppConfig.MaxRequestsPerMin
	config.AppConfig.MaxRequestsPerMin = 2
	t.Cleanup(func() { config.AppConfig.MaxRequestsPerMin = old })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", RateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	// Limiters are cached per IP, so each test run needs its own addresses.
	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("203.0.113.50"))
	assert.Equal(t, http.StatusOK, hit("203.0.113.50"))
	assert.Equal(t, http.StatusTooManyRequests, hit("203.0.113.50"))

	// A different caller has its own budget.
	assert.Equal(t, http.StatusOK, hit("203.0.113.51"))
}
