package handlers

import (
	"fmt"

	"github.com/Mieluoxxx/AITools-Switch/internal/history"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/gin-gonic/gin"
)

// defaultHistoryLimit 列表默认条数
const defaultHistoryLimit = 50

// HistoryHandler 配置历史 HTTP 处理器
type HistoryHandler struct {
	service *history.Service
}

// NewHistoryHandler 创建 HistoryHandler 实例
func NewHistoryHandler(service *history.Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// CleanupRequest 清理历史请求
type CleanupRequest struct {
	Category   string `json:"category"`
	ConfigType string `json:"config_type"`
	Keep       int    `json:"keep"`
}

// ListHistory 列出历史，?category=claude 或 ?config_type=
// @Router /api/history [get]
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	configType, valid := resolveConfigType(c, c.Query("category"), c.Query("config_type"))
	if !valid {
		return
	}

	records, err := h.service.List(c.Request.Context(), configType, queryInt(c, "limit", defaultHistoryLimit))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, records)
}

// LatestHistory 最近一条历史
// @Router /api/history/latest [get]
func (h *HistoryHandler) LatestHistory(c *gin.Context) {
	configType, valid := resolveConfigType(c, c.Query("category"), c.Query("config_type"))
	if !valid {
		return
	}

	record, err := h.service.Latest(c.Request.Context(), configType)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, record)
}

// CreateBackup 备份类别当前的激活状态
// @Router /api/history/backup/{category} [post]
func (h *HistoryHandler) CreateBackup(c *gin.Context) {
	category, valid := parseCategory(c)
	if !valid {
		return
	}

	id, err := h.service.CreateBackup(c.Request.Context(), category)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, gin.H{"backup_id": id}, "备份创建成功")
}

// RecordConfig 写入通用配置备份
// @Router /api/history [post]
func (h *HistoryHandler) RecordConfig(c *gin.Context) {
	var req history.RecordRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, record, "备份创建成功")
}

// RestoreBackup 从备份恢复
// @Router /api/history/{id}/restore [post]
func (h *HistoryHandler) RestoreBackup(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	record, err := h.service.Restore(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, record, fmt.Sprintf("已从备份 %d 恢复", id))
}

// CleanupHistory 只保留最近 keep 条
// @Router /api/history/cleanup [post]
func (h *HistoryHandler) CleanupHistory(c *gin.Context) {
	var req CleanupRequest
	if !bindJSON(c, &req) {
		return
	}
	configType, valid := resolveConfigType(c, req.Category, req.ConfigType)
	if !valid {
		return
	}

	removed, err := h.service.Cleanup(c.Request.Context(), configType, req.Keep)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, gin.H{"removed": removed}, fmt.Sprintf("已清理 %d 条历史记录", removed))
}

// DeleteHistory 删除一条历史
// @Router /api/history/{id} [delete]
func (h *HistoryHandler) DeleteHistory(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, nil, "历史记录删除成功")
}

// resolveConfigType 类别优先，其次为原始 config_type，失败时已写入响应
func resolveConfigType(c *gin.Context, category, configType string) (string, bool) {
	if category != "" {
		parsed, err := models.ParseCategory(category)
		if err != nil {
			failMessage(c, err.Error())
			return "", false
		}
		return history.ConfigType(parsed), true
	}
	if configType == "" {
		failMessage(c, "必须指定 category 或 config_type")
		return "", false
	}
	return configType, true
}
