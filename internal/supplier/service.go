package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Mieluoxxx/AITools-Switch/internal/crypto"
	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
)

var (
	// ErrInvalidInput 无效输入
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidURL 无效 URL
	ErrInvalidURL = errors.New("invalid URL")
	// ErrInvalidCategory 未知类别
	ErrInvalidCategory = errors.New("invalid category")
)

// EventLogger 事件记录
type EventLogger interface {
	LogInfo(ctx context.Context, eventType, message string, metadata map[string]interface{}) error
}

// Service 供应商业务逻辑层
type Service struct {
	repo   *Repository
	sealer *crypto.Sealer
	prober health.Prober
	events EventLogger
}

// NewService 创建 Service 实例，sealer 为 nil 时令牌明文存储
func NewService(repo *Repository, sealer *crypto.Sealer, prober health.Prober) *Service {
	if sealer == nil {
		sealer = &crypto.Sealer{}
	}
	return &Service{repo: repo, sealer: sealer, prober: prober}
}

// WithEvents 设置事件记录器
func (s *Service) WithEvents(events EventLogger) *Service {
	s.events = events
	return s
}

// CreateSupplier 创建供应商
// 新供应商默认不激活，排序号追加到类别末尾
func (s *Service) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (*models.Supplier, error) {
	supplier, err := s.buildSupplier(req)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.CheckNameExists(ctx, supplier.Name, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrSupplierNameExists
	}

	count, err := s.repo.CountByCategory(ctx, supplier.Category)
	if err != nil {
		return nil, err
	}
	supplier.SortOrder = int(count)

	plainToken := supplier.AuthToken
	if supplier.AuthToken, err = s.sealer.Seal(plainToken); err != nil {
		return nil, fmt.Errorf("failed to encrypt auth token: %w", err)
	}

	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}
	supplier.AuthToken = plainToken

	s.logEvent(ctx, models.EventTypeSupplierAdded, fmt.Sprintf("新增供应商: %s", supplier.Name), supplier)
	return supplier, nil
}

// GetSupplier 获取单个供应商（令牌已解密）
func (s *Service) GetSupplier(ctx context.Context, id uint) (*models.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.openToken(supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

// ListSuppliers 列出供应商，category 为空时列出全部
func (s *Service) ListSuppliers(ctx context.Context, category string) ([]models.Supplier, error) {
	var c models.Category
	if category != "" {
		parsed, err := models.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCategory, err)
		}
		c = parsed
	}

	suppliers, err := s.repo.FindAll(ctx, c)
	if err != nil {
		return nil, err
	}
	for i := range suppliers {
		if err := s.openToken(&suppliers[i]); err != nil {
			return nil, err
		}
	}
	return suppliers, nil
}

// UpdateSupplier 更新供应商
// 修改类别会取消激活，避免新类别出现两个激活供应商
func (s *Service) UpdateSupplier(ctx context.Context, id uint, req UpdateSupplierRequest) (*models.Supplier, error) {
	if err := validateUpdateRequest(req); err != nil {
		return nil, err
	}

	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != supplier.Name {
		name := strings.TrimSpace(*req.Name)
		exists, err := s.repo.CheckNameExists(ctx, name, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrSupplierNameExists
		}
		supplier.Name = name
	}

	categoryChanged := false
	if req.Type != nil {
		c, _ := models.ParseCategory(*req.Type)
		categoryChanged = c != supplier.Category
		supplier.Category = c
	}
	if req.BaseURL != nil {
		supplier.BaseURL = normalizeURL(*req.BaseURL)
	}
	if req.TimeoutMs != nil {
		supplier.TimeoutMs = *req.TimeoutMs
	}
	if req.AutoUpdate != nil {
		supplier.AutoUpdate = *req.AutoUpdate
	}
	if req.OpusModel != nil {
		supplier.OpusModel = *req.OpusModel
	}
	if req.SonnetModel != nil {
		supplier.SonnetModel = *req.SonnetModel
	}
	if req.HaikuModel != nil {
		supplier.HaikuModel = *req.HaikuModel
	}
	if req.SortOrder != nil {
		supplier.SortOrder = *req.SortOrder
	}

	var plainToken string
	if req.AuthToken != nil {
		plainToken = *req.AuthToken
		if supplier.AuthToken, err = s.sealer.Seal(plainToken); err != nil {
			return nil, fmt.Errorf("failed to encrypt auth token: %w", err)
		}
	} else if plainToken, err = s.sealer.Open(supplier.AuthToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt auth token: %w", err)
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	if categoryChanged && supplier.IsActive {
		if err := s.repo.Deactivate(ctx, id); err != nil {
			return nil, err
		}
		supplier.IsActive = false
	}

	supplier.AuthToken = plainToken
	s.logEvent(ctx, models.EventTypeConfigChange, fmt.Sprintf("更新供应商: %s", supplier.Name), supplier)
	return supplier, nil
}

// DeleteSupplier 删除供应商（硬删除）
func (s *Service) DeleteSupplier(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

// ValidateSupplier 只校验不写入
func (s *Service) ValidateSupplier(req CreateSupplierRequest) error {
	_, err := s.buildSupplier(req)
	return err
}

// TestConnection 探测一次连通性，不更新健康统计
func (s *Service) TestConnection(ctx context.Context, id uint) (*health.ProbeResult, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := s.prober.Probe(ctx, supplier)
	return &result, nil
}

// GetStats 按类别统计供应商数量和激活供应商
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	for _, c := range models.AllCategories {
		count, err := s.repo.CountByCategory(ctx, c)
		if err != nil {
			return nil, err
		}

		var activeName *string
		active, err := s.repo.FindActive(ctx, c)
		switch {
		case err == nil:
			activeName = &active.Name
		case !errors.Is(err, ErrNoActiveSupplier):
			return nil, err
		}

		switch c {
		case models.CategoryClaude:
			stats.Claude, stats.ActiveClaude = count, activeName
		case models.CategoryCodex:
			stats.Codex, stats.ActiveCodex = count, activeName
		}
		stats.Total += count
	}
	return stats, nil
}

// buildSupplier 校验请求并构造模型（令牌为明文）
func (s *Service) buildSupplier(req CreateSupplierRequest) (*models.Supplier, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.AuthToken) == "" {
		return nil, fmt.Errorf("%w: auth_token is required", ErrInvalidInput)
	}
	if err := validateURL(req.BaseURL); err != nil {
		return nil, err
	}
	category, err := models.ParseCategory(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCategory, err)
	}
	if req.TimeoutMs != nil && *req.TimeoutMs <= 0 {
		return nil, fmt.Errorf("%w: timeout_ms must be positive", ErrInvalidInput)
	}

	supplier := &models.Supplier{
		Category:    category,
		Name:        strings.TrimSpace(req.Name),
		BaseURL:     normalizeURL(req.BaseURL),
		AuthToken:   req.AuthToken,
		OpusModel:   derefString(req.OpusModel),
		SonnetModel: derefString(req.SonnetModel),
		HaikuModel:  derefString(req.HaikuModel),
	}
	if req.TimeoutMs != nil {
		supplier.TimeoutMs = *req.TimeoutMs
	}
	if req.AutoUpdate != nil {
		supplier.AutoUpdate = *req.AutoUpdate
	}
	return supplier, nil
}

func (s *Service) openToken(supplier *models.Supplier) error {
	plain, err := s.sealer.Open(supplier.AuthToken)
	if err != nil {
		return fmt.Errorf("failed to decrypt auth token: %w", err)
	}
	supplier.AuthToken = plain
	return nil
}

func (s *Service) logEvent(ctx context.Context, eventType, message string, supplier *models.Supplier) {
	if s.events == nil {
		return
	}
	_ = s.events.LogInfo(ctx, eventType, message, map[string]interface{}{
		"supplier_id": supplier.ID,
		"category":    supplier.Category,
	})
}

// validateUpdateRequest 验证更新请求
func validateUpdateRequest(req UpdateSupplierRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if req.BaseURL != nil {
		if err := validateURL(*req.BaseURL); err != nil {
			return err
		}
	}
	if req.AuthToken != nil && strings.TrimSpace(*req.AuthToken) == "" {
		return fmt.Errorf("%w: auth_token cannot be empty", ErrInvalidInput)
	}
	if req.Type != nil {
		if _, err := models.ParseCategory(*req.Type); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCategory, err)
		}
	}
	if req.TimeoutMs != nil && *req.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeout_ms must be positive", ErrInvalidInput)
	}
	return nil
}

// validateURL 验证 URL 格式
func validateURL(urlStr string) error {
	parsedURL, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: URL must be http or https", ErrInvalidURL)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: URL must have a host", ErrInvalidURL)
	}
	return nil
}

func normalizeURL(urlStr string) string {
	return strings.TrimRight(strings.TrimSpace(urlStr), "/")
}
