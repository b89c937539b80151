package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrBuiltinTemplate 内置模板不可修改或删除
	ErrBuiltinTemplate = errors.New("内置模板不允许修改或删除")
	// ErrInvalidTemplate 模板校验失败
	ErrInvalidTemplate = errors.New("模板验证失败")
	// ErrTemplateExists 同名同版本模板已存在
	ErrTemplateExists = errors.New("模板已存在")
)

// Service 模板业务逻辑
type Service struct {
	repo *Repository
}

// NewService 创建 Service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create 校验并创建自定义模板
func (s *Service) Create(ctx context.Context, req CreateTemplateRequest) (*models.McpTemplate, error) {
	t := req.toModel()
	if err := s.check(ctx, t, 0); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("创建MCP模板失败: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"template_id": t.ID,
		"ai_type":     t.AIType,
	}).Infof("🧩 创建 MCP 模板: %s@%s", t.Name, t.Version)
	return t, nil
}

// Get 获取模板
func (s *Service) Get(ctx context.Context, id uint) (*models.McpTemplate, error) {
	return s.repo.FindByID(ctx, id)
}

// List 按条件列出模板
func (s *Service) List(ctx context.Context, f Filter) ([]models.McpTemplate, error) {
	if f.AIType != "" && !f.AIType.Valid() {
		return nil, fmt.Errorf("%w: AI类型必须是 'claude' 或 'codex'", ErrInvalidTemplate)
	}
	if f.PlatformType != "" && !f.PlatformType.Valid() {
		return nil, fmt.Errorf("%w: 平台类型必须是 'unix' 或 'windows'", ErrInvalidTemplate)
	}
	return s.repo.FindAll(ctx, f)
}

// Update 更新自定义模板，AI 类型和平台不可改
func (s *Service) Update(ctx context.Context, id uint, req UpdateTemplateRequest) (*models.McpTemplate, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsBuiltin {
		return nil, ErrBuiltinTemplate
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Version != nil {
		t.Version = *req.Version
	}
	if req.ConfigContent != nil {
		t.ConfigContent = *req.ConfigContent
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Tags != nil {
		t.Tags = req.Tags
	}

	if err := s.check(ctx, t, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("更新MCP模板失败: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

// Delete 删除自定义模板
func (s *Service) Delete(ctx context.Context, id uint) error {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if t.IsBuiltin {
		return ErrBuiltinTemplate
	}
	return s.repo.Delete(ctx, id)
}

// Validate 只校验不写入
func (s *Service) Validate(req CreateTemplateRequest) *ValidationResult {
	return Validate(req.toModel())
}

// Clone 以新名称复制模板，版本重置为 1.0.0
func (s *Service) Clone(ctx context.Context, id uint, newName string) (*models.McpTemplate, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("%w: 新模板名称不能为空", ErrInvalidTemplate)
	}

	original, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.NameExists(ctx, newName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrTemplateExists, newName)
	}

	tags := make([]string, len(original.Tags))
	copy(tags, original.Tags)

	return s.Create(ctx, CreateTemplateRequest{
		Name:          newName,
		Version:       defaultVersion,
		AIType:        string(original.AIType),
		PlatformType:  string(original.PlatformType),
		ConfigContent: original.ConfigContent,
		Description:   "克隆自: " + original.Name,
		Category:      original.Category,
		Tags:          tags,
	})
}

// IncrementUsage 使用次数加一
func (s *Service) IncrementUsage(ctx context.Context, id uint) error {
	return s.repo.IncrementUsage(ctx, id)
}

// Categories 分类统计
func (s *Service) Categories(ctx context.Context) ([]CategoryCount, error) {
	return s.repo.Categories(ctx)
}

// FindByIDs 批量获取，忽略不存在的 ID
func (s *Service) FindByIDs(ctx context.Context, ids []uint) ([]models.McpTemplate, error) {
	return s.repo.FindByIDs(ctx, ids)
}

// EnsureExist 确认所有 ID 都存在
func (s *Service) EnsureExist(ctx context.Context, ids []uint) ([]models.McpTemplate, error) {
	found, err := s.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(found))
	for _, t := range found {
		seen[t.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			return nil, fmt.Errorf("%w: id %d", ErrTemplateNotFound, id)
		}
	}
	return found, nil
}

// GetStats 模板统计
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	counts := []struct {
		column string
		value  interface{}
		dst    *int64
	}{
		{"", nil, &stats.Total},
		{"is_builtin", true, &stats.Builtin},
		{"is_builtin", false, &stats.Custom},
		{"ai_type", models.CategoryClaude, &stats.Claude},
		{"ai_type", models.CategoryCodex, &stats.Codex},
		{"platform_type", models.PlatformUnix, &stats.Unix},
		{"platform_type", models.PlatformWindows, &stats.Windows},
	}

	for _, c := range counts {
		n, err := s.repo.CountBy(ctx, c.column, c.value)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return stats, nil
}

// check 校验内容并检查唯一性
func (s *Service) check(ctx context.Context, t *models.McpTemplate, excludeID uint) error {
	if result := Validate(t); !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(result.Errors, "; "))
	}
	exists, err := s.repo.Exists(ctx, t, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s@%s", ErrTemplateExists, t.Name, t.Version)
	}
	return nil
}
