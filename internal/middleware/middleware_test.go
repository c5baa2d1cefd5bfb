package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", UserIdentity(), func(c *gin.Context) {
		c.String(http.StatusOK, strconv.FormatInt(UserID(c), 10))
	})
	return r
}

func get(router *gin.Engine, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUserIdentity(t *testing.T) {
	router := identityRouter()

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"non numeric", "abc", http.StatusUnauthorized},
		{"zero", "0", http.StatusUnauthorized},
		{"negative", "-3", http.StatusUnauthorized},
		{"valid", "42", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, "/whoami", tt.header)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	w := get(router, "/whoami", "42")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", UserIdentity(), NewRateLimiter(50*time.Millisecond).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, get(r, "/ping", "1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "1").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "2").Code, "limits are per user")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "1").Code)
}
