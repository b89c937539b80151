package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mieluoxxx/AITools-Switch/internal/api"
	"github.com/Mieluoxxx/AITools-Switch/internal/app"
	"github.com/Mieluoxxx/AITools-Switch/internal/config"
	"github.com/Mieluoxxx/AITools-Switch/internal/db"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSetupRouter_DefaultConfig 默认配置（含 tauri:// 来源）可以正常构建路由
func TestSetupRouter_DefaultConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	require.Contains(t, cfg.Server.CORSOrigins, "tauri://localhost")
	cfg.Database.Path = ":memory:"
	cfg.Database.MaxIdleConns = 1
	cfg.Database.LogLevel = "silent"

	database, err := db.InitDatabase(&cfg.Database)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))

	a, err := app.New(cfg, database)
	require.NoError(t, err)

	var router *gin.Engine
	require.NotPanics(t, func() { router = api.SetupRouter(a) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSetupRouter_CORS(t *testing.T) {
	env := setupAPITestEnv(t)

	t.Run("tauri 来源预检通过", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/suppliers", nil)
		req.Header.Set("Origin", "tauri://localhost")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		resp := httptest.NewRecorder()
		env.router.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Equal(t, "tauri://localhost", resp.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("开发服务器来源", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:1420")
		resp := httptest.NewRecorder()
		env.router.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "http://localhost:1420", resp.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("未知来源被拒绝", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://evil.example")
		resp := httptest.NewRecorder()
		env.router.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
