package workmode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/failover"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

var (
	// ErrInvalidMode 未知的工作模式
	ErrInvalidMode = errors.New("invalid work mode")
	// ErrSupplierMismatch 供应商类别与位置不符
	ErrSupplierMismatch = errors.New("supplier category mismatch")
)

// 切换步骤
const (
	stepValidateSuppliers = "验证供应商配置"
	stepValidateTemplates = "验证MCP模板配置"
	stepActivate          = "激活供应商"
	stepSave              = "保存工作模式配置"
)

// SupplierFinder 供应商查询
type SupplierFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Supplier, error)
	FindActive(ctx context.Context, category models.Category) (*models.Supplier, error)
}

// Activator 供应商激活（由切换编排器实现）
type Activator interface {
	Activate(ctx context.Context, id uint, reason failover.SwitchReason, createBackup bool) *failover.SupplierSwitchResult
	IsTransitioning() bool
}

// TemplateChecker 模板存在性检查
type TemplateChecker interface {
	EnsureExist(ctx context.Context, ids []uint) ([]models.McpTemplate, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.McpTemplate, error)
}

// EventLogger 事件记录
type EventLogger interface {
	LogInfo(ctx context.Context, eventType, message string, metadata map[string]interface{}) error
}

// SwitchRequest 工作模式切换请求
type SwitchRequest struct {
	TargetMode       string `json:"target_mode" binding:"required"`
	ClaudeSupplierID *uint  `json:"claude_supplier_id"`
	CodexSupplierID  *uint  `json:"codex_supplier_id"`
	McpTemplateIDs   []uint `json:"mcp_template_ids"`
	CreateBackup     bool   `json:"create_backup"`
}

// SwitchResult 工作模式切换结果
type SwitchResult struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	BackupIDs      []uint     `json:"backup_ids,omitempty"`
	AppliedAt      *time.Time `json:"applied_at,omitempty"`
	StepsCompleted []string   `json:"steps_completed"`
}

// Status 当前工作模式状态
type Status struct {
	CurrentMode          models.ModeName `json:"current_mode"`
	IsTransitioning      bool            `json:"is_transitioning"`
	LastSwitchTime       *time.Time      `json:"last_switch_time,omitempty"`
	ActiveClaudeSupplier *string         `json:"active_claude_supplier,omitempty"`
	ActiveCodexSupplier  *string         `json:"active_codex_supplier,omitempty"`
	ActiveMcpTemplates   []string        `json:"active_mcp_templates"`
}

// Service 工作模式业务逻辑
type Service struct {
	repo      *Repository
	suppliers SupplierFinder
	activator Activator
	templates TemplateChecker
	events    EventLogger
	now       func() time.Time
}

// NewService 创建 Service
func NewService(repo *Repository, suppliers SupplierFinder, activator Activator, templates TemplateChecker) *Service {
	return &Service{
		repo:      repo,
		suppliers: suppliers,
		activator: activator,
		templates: templates,
		now:       time.Now,
	}
}

// WithEvents 设置事件记录器
func (s *Service) WithEvents(events EventLogger) *Service {
	s.events = events
	return s
}

// List 所有模式配置
func (s *Service) List(ctx context.Context) ([]models.WorkModeConfig, error) {
	return s.repo.FindAll(ctx)
}

// Get 获取模式配置
func (s *Service) Get(ctx context.Context, mode string) (*models.WorkModeConfig, error) {
	name, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByName(ctx, name)
}

// Switch 切换工作模式
// 参数校验失败返回 error 且不做任何修改；激活失败体现在结果中
func (s *Service) Switch(ctx context.Context, req SwitchRequest) (*SwitchResult, error) {
	mode, err := parseMode(req.TargetMode)
	if err != nil {
		return nil, err
	}

	result := &SwitchResult{StepsCompleted: []string{}}

	targets := []struct {
		id       *uint
		category models.Category
	}{
		{req.ClaudeSupplierID, models.CategoryClaude},
		{req.CodexSupplierID, models.CategoryCodex},
	}
	for _, t := range targets {
		if t.id == nil {
			continue
		}
		if err := s.checkSupplier(ctx, *t.id, t.category); err != nil {
			return nil, err
		}
	}
	result.StepsCompleted = append(result.StepsCompleted, stepValidateSuppliers)

	templates, err := s.templates.EnsureExist(ctx, req.McpTemplateIDs)
	if err != nil {
		return nil, err
	}
	result.StepsCompleted = append(result.StepsCompleted, stepValidateTemplates)

	for _, t := range targets {
		if t.id == nil {
			continue
		}
		if active, err := s.suppliers.FindActive(ctx, t.category); err == nil && active.ID == *t.id {
			continue
		}

		r := s.activator.Activate(ctx, *t.id, failover.ReasonManual, req.CreateBackup)
		if r.BackupID != nil {
			result.BackupIDs = append(result.BackupIDs, *r.BackupID)
		}
		if !r.Success {
			result.Message = fmt.Sprintf("切换 %s 供应商失败: %s", t.category, r.Message)
			return result, nil
		}
	}
	result.StepsCompleted = append(result.StepsCompleted, stepActivate)

	ids := make(datatypes.JSONSlice[uint], 0, len(templates))
	for _, t := range templates {
		ids = append(ids, t.ID)
	}
	cfg := &models.WorkModeConfig{
		ModeName:               mode,
		ActiveClaudeSupplierID: req.ClaudeSupplierID,
		ActiveCodexSupplierID:  req.CodexSupplierID,
		McpTemplateIDs:         ids,
	}
	appliedAt := s.now()
	if err := s.repo.RecordSwitch(ctx, cfg, appliedAt); err != nil {
		return nil, fmt.Errorf("保存工作模式配置失败: %w", err)
	}
	result.StepsCompleted = append(result.StepsCompleted, stepSave)

	result.Success = true
	result.AppliedAt = &appliedAt
	result.Message = fmt.Sprintf("成功切换到 %s 工作模式", mode)

	logrus.WithField("mode", mode).Info("🔄 " + result.Message)
	if s.events != nil {
		if err := s.events.LogInfo(ctx, models.EventTypeWorkModeSwitch, result.Message, map[string]interface{}{
			"mode":      mode,
			"templates": []uint(ids),
		}); err != nil {
			logrus.WithError(err).Warn("记录事件失败")
		}
	}
	return result, nil
}

// Status 当前模式、激活供应商和模板
func (s *Service) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		CurrentMode:        models.ModeClaudeOnly,
		IsTransitioning:    s.activator.IsTransitioning(),
		ActiveMcpTemplates: []string{},
	}

	current, err := s.repo.GetState(ctx, models.AppStateCurrentWorkMode)
	if err != nil {
		return nil, err
	}
	if current != "" {
		status.CurrentMode = models.ModeName(current)
	}

	last, err := s.repo.GetState(ctx, appStateLastSwitch)
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, last); err == nil {
		status.LastSwitchTime = &t
	}

	for _, target := range []struct {
		category models.Category
		dst      **string
	}{
		{models.CategoryClaude, &status.ActiveClaudeSupplier},
		{models.CategoryCodex, &status.ActiveCodexSupplier},
	} {
		active, err := s.suppliers.FindActive(ctx, target.category)
		if err == nil {
			name := active.Name
			*target.dst = &name
			continue
		}
		if !errors.Is(err, supplier.ErrNoActiveSupplier) {
			return nil, err
		}
	}

	cfg, err := s.repo.FindByName(ctx, status.CurrentMode)
	if err != nil {
		if errors.Is(err, ErrModeNotFound) {
			return status, nil
		}
		return nil, err
	}
	// 模板可能已被删除，只列出仍存在的
	templates, err := s.templates.FindByIDs(ctx, cfg.McpTemplateIDs)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		status.ActiveMcpTemplates = append(status.ActiveMcpTemplates, t.Name)
	}
	return status, nil
}

// AppStates 所有应用状态
func (s *Service) AppStates(ctx context.Context) ([]models.AppState, error) {
	return s.repo.AllStates(ctx)
}

func (s *Service) checkSupplier(ctx context.Context, id uint, category models.Category) error {
	sp, err := s.suppliers.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s 供应商 %d: %w", category, id, err)
	}
	if sp.Category != category {
		return fmt.Errorf("%w: 供应商 %d 属于 %s，不能作为 %s 供应商", ErrSupplierMismatch, id, sp.Category, category)
	}
	return nil
}

func parseMode(s string) (models.ModeName, error) {
	mode := models.ModeName(s)
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return mode, nil
}
