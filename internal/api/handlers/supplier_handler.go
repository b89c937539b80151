package handlers

import (
	"fmt"
	"io"

	"github.com/Mieluoxxx/AITools-Switch/internal/failover"
	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/gin-gonic/gin"
)

// maxImportSize 导入文件大小上限
const maxImportSize = 4 << 20

// SupplierHandler 供应商 HTTP 处理器
type SupplierHandler struct {
	service      *supplier.Service
	repo         *supplier.Repository
	aggregator   *health.Aggregator
	orchestrator *failover.Orchestrator
}

// NewSupplierHandler 创建 SupplierHandler 实例
func NewSupplierHandler(service *supplier.Service, repo *supplier.Repository, aggregator *health.Aggregator, orchestrator *failover.Orchestrator) *SupplierHandler {
	return &SupplierHandler{
		service:      service,
		repo:         repo,
		aggregator:   aggregator,
		orchestrator: orchestrator,
	}
}

// ActivateRequest 激活供应商请求
type ActivateRequest struct {
	CreateBackup bool   `json:"create_backup"`
	Reason       string `json:"reason"`
}

// CreateSupplier 创建供应商
// @Router /api/suppliers [post]
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req supplier.CreateSupplierRequest
	if !bindJSON(c, &req) {
		return
	}

	s, err := h.service.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, supplier.ToSupplierResponse(s, s.AuthToken), "供应商创建成功")
}

// ListSuppliers 列出供应商，支持 ?type=claude|codex
// @Router /api/suppliers [get]
func (h *SupplierHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.service.ListSuppliers(c.Request.Context(), c.Query("type"))
	if err != nil {
		fail(c, err)
		return
	}

	responses := make([]*supplier.SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		responses = append(responses, supplier.ToSupplierResponse(&suppliers[i], suppliers[i].AuthToken))
	}
	ok(c, responses)
}

// GetSupplier 获取单个供应商
// @Router /api/suppliers/{id} [get]
func (h *SupplierHandler) GetSupplier(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	s, err := h.service.GetSupplier(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, supplier.ToSupplierResponse(s, s.AuthToken))
}

// UpdateSupplier 更新供应商
// @Router /api/suppliers/{id} [put]
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}
	var req supplier.UpdateSupplierRequest
	if !bindJSON(c, &req) {
		return
	}

	s, err := h.service.UpdateSupplier(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, supplier.ToSupplierResponse(s, s.AuthToken), "供应商更新成功")
}

// DeleteSupplier 删除供应商
// @Router /api/suppliers/{id} [delete]
func (h *SupplierHandler) DeleteSupplier(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.service.DeleteSupplier(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, nil, "供应商删除成功")
}

// ValidateSupplier 只校验不保存
// @Router /api/suppliers/validate [post]
func (h *SupplierHandler) ValidateSupplier(c *gin.Context) {
	var req supplier.CreateSupplierRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.ValidateSupplier(req); err != nil {
		respond(c, false, gin.H{"valid": false}, err.Error())
		return
	}
	ok(c, gin.H{"valid": true})
}

// TestConnection 测试供应商连通性，不影响健康统计
// @Router /api/suppliers/{id}/test [post]
func (h *SupplierHandler) TestConnection(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	result, err := h.service.TestConnection(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !result.Success {
		message := "连接失败"
		if result.Error != nil {
			message = *result.Error
		}
		respond(c, false, result, message)
		return
	}
	okMessage(c, result, "连接成功")
}

// CheckHealth 对单个供应商执行健康检查并更新统计
// @Router /api/suppliers/{id}/health [post]
func (h *SupplierHandler) CheckHealth(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	s, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.aggregator.Assess(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// CheckAllHealth 对全部供应商执行健康检查，支持 ?type=
// @Router /api/suppliers/health [post]
func (h *SupplierHandler) CheckAllHealth(c *gin.Context) {
	var category models.Category
	if t := c.Query("type"); t != "" {
		parsed, err := models.ParseCategory(t)
		if err != nil {
			failMessage(c, err.Error())
			return
		}
		category = parsed
	}

	suppliers, err := h.repo.FindAll(c.Request.Context(), category)
	if err != nil {
		fail(c, err)
		return
	}
	results, err := h.aggregator.AssessAll(c.Request.Context(), suppliers)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, results)
}

// ActivateSupplier 激活供应商，同类别原激活供应商自动取消
// @Router /api/suppliers/{id}/activate [post]
func (h *SupplierHandler) ActivateSupplier(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var req ActivateRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	reason, err := failover.ParseSwitchReason(req.Reason)
	if err != nil {
		failMessage(c, err.Error())
		return
	}

	result := h.orchestrator.Activate(c.Request.Context(), id, reason, req.CreateBackup)
	respond(c, result.Success, result, result.Message)
}

// SwitchSupplier 在同类别供应商之间切换
// @Router /api/suppliers/switch [post]
func (h *SupplierHandler) SwitchSupplier(c *gin.Context) {
	var req failover.SupplierSwitchRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.SwitchReason == "" {
		req.SwitchReason = failover.ReasonManual
	}

	result := h.orchestrator.Switch(c.Request.Context(), req)
	respond(c, result.Success, result, result.Message)
}

// GetStats 供应商统计
// @Router /api/suppliers/stats [get]
func (h *SupplierHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}

// ExportSuppliers 导出供应商，?format=yaml|json
// @Router /api/suppliers/export [get]
func (h *SupplierHandler) ExportSuppliers(c *gin.Context) {
	format := c.DefaultQuery("format", supplier.FormatYAML)
	data, err := h.service.Export(c.Request.Context(), format)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"format": format, "content": string(data)})
}

// ImportSuppliers 导入供应商，请求体为导出文档原文
// @Router /api/suppliers/import [post]
func (h *SupplierHandler) ImportSuppliers(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize))
	if err != nil {
		failMessage(c, "读取请求体失败: "+err.Error())
		return
	}

	suppliers, err := h.service.Import(c.Request.Context(), data, c.DefaultQuery("format", supplier.FormatYAML))
	if err != nil {
		fail(c, err)
		return
	}

	responses := make([]*supplier.SupplierResponse, 0, len(suppliers))
	for _, s := range suppliers {
		responses = append(responses, supplier.ToSupplierResponse(s, s.AuthToken))
	}
	okMessage(c, responses, fmt.Sprintf("成功导入 %d 个供应商", len(suppliers)))
}
