package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/api/handlers"
	"github.com/Mieluoxxx/AITools-Switch/internal/stats"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestCounterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counter := stats.NewRequestCounter(time.Minute)

	router := gin.New()
	router.Use(RequestCounterMiddleware(counter))
	router.GET("/ok", func(c *gin.Context) {
		c.Set(handlers.ResultKey, true)
		c.Status(http.StatusOK)
	})
	router.GET("/domain-failure", func(c *gin.Context) {
		c.Set(handlers.ResultKey, false)
		c.Status(http.StatusOK)
	})
	router.GET("/plain", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, path := range []string{"/ok", "/domain-failure", "/plain", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	snapshot := counter.Snapshot()
	assert.Equal(t, int64(4), snapshot.Total)
	// 业务失败 + 404
	assert.Equal(t, int64(2), snapshot.Failed)
}
