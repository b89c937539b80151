package handlers

import (
	"fmt"

	"github.com/Mieluoxxx/AITools-Switch/internal/events"
	"github.com/gin-gonic/gin"
)

// defaultRetentionDays 清理事件时默认保留天数
const defaultRetentionDays = 30

// EventHandler 系统事件 HTTP 处理器
type EventHandler struct {
	service *events.Service
}

// NewEventHandler 创建 EventHandler 实例
func NewEventHandler(service *events.Service) *EventHandler {
	return &EventHandler{service: service}
}

// ListEvents 查询事件，支持 ?type=&level=&category=&limit=
// @Router /api/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	list, err := h.service.Query(c.Request.Context(), events.Filter{
		Type:     c.Query("type"),
		Level:    c.Query("level"),
		Category: c.Query("category"),
		Limit:    queryInt(c, "limit", 0),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, list)
}

// CleanupEvents 删除早于 ?days= 天的事件
// @Router /api/events [delete]
func (h *EventHandler) CleanupEvents(c *gin.Context) {
	days := queryInt(c, "days", defaultRetentionDays)
	if days < 0 {
		failMessage(c, "days 不能为负数")
		return
	}

	removed, err := h.service.CleanupOldEvents(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, gin.H{"removed": removed}, fmt.Sprintf("已清理 %d 条事件", removed))
}
