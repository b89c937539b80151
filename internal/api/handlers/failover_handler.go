package handlers

import (
	"github.com/Mieluoxxx/AITools-Switch/internal/failover"
	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/gin-gonic/gin"
)

// FailoverHandler 故障转移 HTTP 处理器
type FailoverHandler struct {
	orchestrator *failover.Orchestrator
	configs      *failover.ConfigRepository
}

// NewFailoverHandler 创建 FailoverHandler 实例
func NewFailoverHandler(orchestrator *failover.Orchestrator, configs *failover.ConfigRepository) *FailoverHandler {
	return &FailoverHandler{orchestrator: orchestrator, configs: configs}
}

// CandidateView 备用供应商评分（不含令牌）
type CandidateView struct {
	SupplierID   uint                   `json:"supplier_id"`
	SupplierName string                 `json:"supplier_name"`
	Score        float64                `json:"score"`
	Health       *health.SupplierHealth `json:"health"`
}

// TriggerFailover 对类别执行一次自动故障转移判断
// @Router /api/failover/{category} [post]
func (h *FailoverHandler) TriggerFailover(c *gin.Context) {
	category, valid := parseCategory(c)
	if !valid {
		return
	}

	result := h.orchestrator.AutoFailover(c.Request.Context(), category)
	respond(c, result.Success, result, result.Message)
}

// GetConfig 读取类别的故障转移配置
// @Router /api/failover/{category}/config [get]
func (h *FailoverHandler) GetConfig(c *gin.Context) {
	category, valid := parseCategory(c)
	if !valid {
		return
	}

	cfg, err := h.configs.Get(c.Request.Context(), category)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, cfg)
}

// UpdateConfig 更新类别的故障转移配置
// @Router /api/failover/{category}/config [put]
func (h *FailoverHandler) UpdateConfig(c *gin.Context) {
	category, valid := parseCategory(c)
	if !valid {
		return
	}
	var req models.FailoverConfig
	if !bindJSON(c, &req) {
		return
	}

	cfg, err := h.configs.Put(c.Request.Context(), category, &req)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, cfg, "故障转移配置已更新")
}

// GetStatus 类别当前激活供应商与切换状态
// @Router /api/failover/{category}/status [get]
func (h *FailoverHandler) GetStatus(c *gin.Context) {
	category, valid := parseCategory(c)
	if !valid {
		return
	}

	status, err := h.orchestrator.Status(c.Request.Context(), category)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, status)
}

// ListCandidates 评估并列出备用供应商
// @Router /api/failover/{category}/candidates [get]
func (h *FailoverHandler) ListCandidates(c *gin.Context) {
	category, valid := parseCategory(c)
	if !valid {
		return
	}

	candidates, err := h.orchestrator.Candidates(c.Request.Context(), category)
	if err != nil {
		fail(c, err)
		return
	}

	views := make([]CandidateView, 0, len(candidates))
	for _, cand := range candidates {
		views = append(views, CandidateView{
			SupplierID:   cand.Supplier.ID,
			SupplierName: cand.Supplier.Name,
			Score:        cand.Score,
			Health:       cand.Health,
		})
	}
	ok(c, views)
}

// GetProgress 查询切换进度
// @Router /api/switches/{id} [get]
func (h *FailoverHandler) GetProgress(c *gin.Context) {
	progress, found := h.orchestrator.Progress(c.Param("id"))
	if !found {
		failMessage(c, "切换记录不存在或已过期")
		return
	}
	ok(c, progress)
}

// parseCategory 解析路径中的类别，失败时已写入响应
func parseCategory(c *gin.Context) (models.Category, bool) {
	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		failMessage(c, err.Error())
		return "", false
	}
	return category, true
}
