package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"firehose/internal/logger"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NopLogger()
	router := gin.New()
	router.Use(RecoveryMiddleware(log), RequestIDMiddleware(), LoggerMiddleware(log), CORSMiddleware())
	router.NoRoute(NotFound)
	router.GET("/firehose", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter()

	for _, path := range []string{"/firehose", "/anything/else"} {
		rec := serve(router, http.MethodOptions, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Body.String(), path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestNotFound(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown path", http.MethodGet, "/events"},
		{"wrong method", http.MethodPost, "/firehose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.path)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "Not Found", rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		})
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	router := newRouter()

	rec := serve(router, http.MethodGet, "/firehose")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(router, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
