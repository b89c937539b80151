package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/api/handlers"
	"github.com/Mieluoxxx/AITools-Switch/internal/api/middleware"
	"github.com/Mieluoxxx/AITools-Switch/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ServiceName 健康检查端点返回的服务名
const ServiceName = "AITools-Switch"

// SetupRouter 配置路由
func SetupRouter(a *app.App) *gin.Engine {
	// 创建 Gin 引擎
	router := gin.Default()

	if origins := a.Config.Server.CORSOrigins; len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			CustomSchemas:    customSchemas(origins),
			MaxAge:           12 * time.Hour,
		}))
	}

	// 健康检查端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": ServiceName,
		})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.Response{Success: false, Message: "接口不存在: " + c.Request.URL.Path})
	})

	// API 路由组
	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.SharedSecretAuth(a.Config.Server.AuthToken))
	apiGroup.Use(middleware.RequestCounterMiddleware(a.Requests))
	{
		setupSupplierRoutes(apiGroup, a)
		setupFailoverRoutes(apiGroup, a)
		setupTemplateRoutes(apiGroup, a)
		setupHistoryRoutes(apiGroup, a)
		setupWorkModeRoutes(apiGroup, a)
		setupSystemRoutes(apiGroup, a)
	}

	return router
}

// setupSupplierRoutes 配置供应商路由
func setupSupplierRoutes(group *gin.RouterGroup, a *app.App) {
	handler := handlers.NewSupplierHandler(a.Suppliers, a.SupplierRepo, a.Aggregator, a.Orchestrator)

	suppliers := group.Group("/suppliers")
	{
		suppliers.POST("", handler.CreateSupplier)
		suppliers.GET("", handler.ListSuppliers)
		suppliers.GET("/stats", handler.GetStats)
		suppliers.GET("/export", handler.ExportSuppliers)
		suppliers.POST("/import", handler.ImportSuppliers)
		suppliers.POST("/validate", handler.ValidateSupplier)
		suppliers.POST("/health", handler.CheckAllHealth)
		suppliers.POST("/switch", handler.SwitchSupplier)
		suppliers.GET("/:id", handler.GetSupplier)
		suppliers.PUT("/:id", handler.UpdateSupplier)
		suppliers.DELETE("/:id", handler.DeleteSupplier)
		suppliers.POST("/:id/test", handler.TestConnection)
		suppliers.POST("/:id/health", handler.CheckHealth)
		suppliers.POST("/:id/activate", handler.ActivateSupplier)
	}
}

// setupFailoverRoutes 配置故障转移路由
func setupFailoverRoutes(group *gin.RouterGroup, a *app.App) {
	handler := handlers.NewFailoverHandler(a.Orchestrator, a.FailoverConfigs)

	failover := group.Group("/failover/:category")
	{
		failover.POST("", handler.TriggerFailover)
		failover.GET("/config", handler.GetConfig)
		failover.PUT("/config", handler.UpdateConfig)
		failover.GET("/status", handler.GetStatus)
		failover.GET("/candidates", handler.ListCandidates)
	}
	group.GET("/switches/:id", handler.GetProgress)
}

// setupTemplateRoutes 配置 MCP 模板路由
func setupTemplateRoutes(group *gin.RouterGroup, a *app.App) {
	handler := handlers.NewTemplateHandler(a.Templates)

	templates := group.Group("/templates")
	{
		templates.POST("", handler.CreateTemplate)
		templates.GET("", handler.ListTemplates)
		templates.GET("/categories", handler.ListCategories)
		templates.GET("/stats", handler.GetStats)
		templates.POST("/validate", handler.ValidateTemplate)
		templates.GET("/:id", handler.GetTemplate)
		templates.PUT("/:id", handler.UpdateTemplate)
		templates.DELETE("/:id", handler.DeleteTemplate)
		templates.POST("/:id/clone", handler.CloneTemplate)
		templates.POST("/:id/usage", handler.IncrementUsage)
	}
}

// setupHistoryRoutes 配置配置历史路由
func setupHistoryRoutes(group *gin.RouterGroup, a *app.App) {
	handler := handlers.NewHistoryHandler(a.History)

	history := group.Group("/history")
	{
		history.GET("", handler.ListHistory)
		history.POST("", handler.RecordConfig)
		history.GET("/latest", handler.LatestHistory)
		history.POST("/cleanup", handler.CleanupHistory)
		history.POST("/backup/:category", handler.CreateBackup)
		history.POST("/:id/restore", handler.RestoreBackup)
		history.DELETE("/:id", handler.DeleteHistory)
	}
}

// setupWorkModeRoutes 配置工作模式路由
func setupWorkModeRoutes(group *gin.RouterGroup, a *app.App) {
	handler := handlers.NewWorkModeHandler(a.WorkModes)

	modes := group.Group("/workmodes")
	{
		modes.GET("", handler.ListModes)
		modes.GET("/status", handler.GetStatus)
		modes.GET("/states", handler.ListAppStates)
		modes.POST("/switch", handler.SwitchMode)
		modes.GET("/modes/:mode", handler.GetMode)
	}
}

// setupSystemRoutes 配置统计与事件路由
func setupSystemRoutes(group *gin.RouterGroup, a *app.App) {
	statsHandler := handlers.NewStatsHandler(a.DB, a.Suppliers, a.Requests, a.Events)
	eventHandler := handlers.NewEventHandler(a.Events)

	group.GET("/stats", statsHandler.GetStats)
	group.GET("/events", eventHandler.ListEvents)
	group.DELETE("/events", eventHandler.CleanupEvents)
}

// customSchemas 收集 http/https 之外的来源协议（如 tauri://），cors 默认只接受前两者
func customSchemas(origins []string) []string {
	var schemas []string
	seen := make(map[string]bool)
	for _, origin := range origins {
		idx := strings.Index(origin, "://")
		if idx <= 0 {
			continue
		}
		schema := origin[:idx+3]
		if schema == "http://" || schema == "https://" || seen[schema] {
			continue
		}
		seen[schema] = true
		schemas = append(schemas, schema)
	}
	return schemas
}
