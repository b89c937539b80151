package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// setupAuthRouter 创建带鉴权的测试路由
func setupAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	protected := router.Group("/protected")
	protected.Use(SharedSecretAuth(secret))
	protected.GET("/resource", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func doAuthRequest(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected/resource", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestSharedSecretAuth(t *testing.T) {
	router := setupAuthRouter("s3cret")

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid token", "Bearer s3cret", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"empty token", "Bearer   ", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doAuthRequest(router, tt.header)
			assert.Equal(t, tt.wantCode, resp.Code, resp.Body.String())
			if tt.wantCode == http.StatusUnauthorized {
				assert.Contains(t, resp.Body.String(), `"success":false`)
			}
		})
	}
}

func TestSharedSecretAuth_DisabledWithoutSecret(t *testing.T) {
	router := setupAuthRouter("")

	resp := doAuthRequest(router, "")
	assert.Equal(t, http.StatusOK, resp.Code)
}
