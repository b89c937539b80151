package middleware

import (
	"net/http"

	"github.com/Mieluoxxx/AITools-Switch/internal/api/handlers"
	"github.com/Mieluoxxx/AITools-Switch/internal/stats"
	"github.com/gin-gonic/gin"
)

// RequestCounterMiddleware 请求计数中间件
// 以响应信封的 success 字段判定成败，未写信封的请求按状态码判定
func RequestCounterMiddleware(counter *stats.RequestCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if v, exists := c.Get(handlers.ResultKey); exists {
			success, _ := v.(bool)
			counter.Record(success)
			return
		}
		counter.Record(c.Writer.Status() < http.StatusBadRequest)
	}
}
