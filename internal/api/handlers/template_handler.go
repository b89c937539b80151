package handlers

import (
	"github.com/Mieluoxxx/AITools-Switch/internal/template"
	"github.com/gin-gonic/gin"
)

// TemplateHandler MCP 模板 HTTP 处理器
type TemplateHandler struct {
	service *template.Service
}

// NewTemplateHandler 创建 TemplateHandler 实例
func NewTemplateHandler(service *template.Service) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// CreateTemplate 创建模板
// @Router /api/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req template.CreateTemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, t, "模板创建成功")
}

// ListTemplates 列出模板，支持 ?ai_type=&platform_type=&category=
// @Router /api/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var f template.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		failMessage(c, "查询参数无效: "+err.Error())
		return
	}

	templates, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, templates)
}

// GetTemplate 获取单个模板
// @Router /api/templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, t)
}

// UpdateTemplate 更新模板（内置模板不可修改）
// @Router /api/templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}
	var req template.UpdateTemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, t, "模板更新成功")
}

// DeleteTemplate 删除模板（内置模板不可删除）
// @Router /api/templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, nil, "模板删除成功")
}

// ValidateTemplate 校验模板内容
// @Router /api/templates/validate [post]
func (h *TemplateHandler) ValidateTemplate(c *gin.Context) {
	var req template.CreateTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	ok(c, h.service.Validate(req))
}

// CloneTemplate 克隆模板
// @Router /api/templates/{id}/clone [post]
func (h *TemplateHandler) CloneTemplate(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}
	var req template.CloneTemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.service.Clone(c.Request.Context(), id, req.NewName)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, t, "模板克隆成功")
}

// IncrementUsage 记录一次模板使用
// @Router /api/templates/{id}/usage [post]
func (h *TemplateHandler) IncrementUsage(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.service.IncrementUsage(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// ListCategories 模板分类及数量
// @Router /api/templates/categories [get]
func (h *TemplateHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, categories)
}

// GetStats 模板统计
// @Router /api/templates/stats [get]
func (h *TemplateHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}
