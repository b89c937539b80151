package handlers

import (
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/db"
	"github.com/Mieluoxxx/AITools-Switch/internal/events"
	"github.com/Mieluoxxx/AITools-Switch/internal/stats"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// recentEventLimit 概览中展示的最近事件数
const recentEventLimit = 10

// StatsHandler 统计信息处理器
type StatsHandler struct {
	db             *gorm.DB
	suppliers      *supplier.Service
	requestCounter *stats.RequestCounter
	eventService   *events.Service
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(database *gorm.DB, suppliers *supplier.Service, requestCounter *stats.RequestCounter, eventService *events.Service) *StatsHandler {
	return &StatsHandler{
		db:             database,
		suppliers:      suppliers,
		requestCounter: requestCounter,
		eventService:   eventService,
	}
}

// SystemStats 系统统计信息响应
type SystemStats struct {
	Suppliers    *supplier.Stats    `json:"suppliers"`
	Database     *db.Stats          `json:"database"`
	Requests     stats.RequestStats `json:"requests"`
	RecentEvents []Event            `json:"recent_events"`
}

// Event 事件日志
type Event struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// GetStats 获取系统统计信息
// @Summary 获取系统统计信息
// @Description 获取系统概览统计数据，包括供应商、数据表、请求统计和最近事件
// @Tags Stats
// @Produce json
// @Router /api/stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	supplierStats, err := h.suppliers.GetStats(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	dbStats, err := db.GetStats(h.db.WithContext(ctx))
	if err != nil {
		fail(c, err)
		return
	}

	// 最近事件读取失败不影响概览
	recentEvents := make([]Event, 0, recentEventLimit)
	if data, err := h.eventService.GetRecentEvents(ctx, recentEventLimit); err == nil {
		for _, evt := range data {
			recentEvents = append(recentEvents, Event{
				Timestamp: evt.CreatedAt.Format(time.RFC3339),
				Type:      evt.Type,
				Level:     evt.Level,
				Message:   evt.Message,
			})
		}
	}

	ok(c, SystemStats{
		Suppliers:    supplierStats,
		Database:     dbStats,
		Requests:     h.requestCounter.Snapshot(),
		RecentEvents: recentEvents,
	})
}
