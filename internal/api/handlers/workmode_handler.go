package handlers

import (
	"github.com/Mieluoxxx/AITools-Switch/internal/workmode"
	"github.com/gin-gonic/gin"
)

// WorkModeHandler 工作模式 HTTP 处理器
type WorkModeHandler struct {
	service *workmode.Service
}

// NewWorkModeHandler 创建 WorkModeHandler 实例
func NewWorkModeHandler(service *workmode.Service) *WorkModeHandler {
	return &WorkModeHandler{service: service}
}

// ListModes 所有模式配置
// @Router /api/workmodes [get]
func (h *WorkModeHandler) ListModes(c *gin.Context) {
	modes, err := h.service.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, modes)
}

// GetMode 单个模式配置
// @Router /api/workmodes/modes/{mode} [get]
func (h *WorkModeHandler) GetMode(c *gin.Context) {
	mode, err := h.service.Get(c.Request.Context(), c.Param("mode"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mode)
}

// SwitchMode 切换工作模式
// @Router /api/workmodes/switch [post]
func (h *WorkModeHandler) SwitchMode(c *gin.Context) {
	var req workmode.SwitchRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Switch(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, result.Success, result, result.Message)
}

// GetStatus 当前工作模式状态
// @Router /api/workmodes/status [get]
func (h *WorkModeHandler) GetStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, status)
}

// ListAppStates 应用状态键值
// @Router /api/workmodes/states [get]
func (h *WorkModeHandler) ListAppStates(c *gin.Context) {
	states, err := h.service.AppStates(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, states)
}
