package supplier

import (
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/crypto"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
)

// CreateSupplierRequest 创建供应商请求
type CreateSupplierRequest struct {
	Type        string  `json:"type" yaml:"type" binding:"required"`
	Name        string  `json:"name" yaml:"name" binding:"required"`
	BaseURL     string  `json:"base_url" yaml:"base_url" binding:"required"`
	AuthToken   string  `json:"auth_token" yaml:"auth_token" binding:"required"`
	TimeoutMs   *int64  `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	AutoUpdate  *bool   `json:"auto_update,omitempty" yaml:"auto_update,omitempty"`
	OpusModel   *string `json:"opus_model,omitempty" yaml:"opus_model,omitempty"`
	SonnetModel *string `json:"sonnet_model,omitempty" yaml:"sonnet_model,omitempty"`
	HaikuModel  *string `json:"haiku_model,omitempty" yaml:"haiku_model,omitempty"`
}

// UpdateSupplierRequest 更新供应商请求
type UpdateSupplierRequest struct {
	Type        *string `json:"type"`
	Name        *string `json:"name"`
	BaseURL     *string `json:"base_url"`
	AuthToken   *string `json:"auth_token"`
	TimeoutMs   *int64  `json:"timeout_ms"`
	AutoUpdate  *bool   `json:"auto_update"`
	OpusModel   *string `json:"opus_model"`
	SonnetModel *string `json:"sonnet_model"`
	HaikuModel  *string `json:"haiku_model"`
	SortOrder   *int    `json:"sort_order"`
}

// SupplierResponse 供应商响应（令牌脱敏）
type SupplierResponse struct {
	ID                  uint       `json:"id"`
	Type                string     `json:"type"`
	Name                string     `json:"name"`
	BaseURL             string     `json:"base_url"`
	AuthToken           string     `json:"auth_token"`
	TimeoutMs           int64      `json:"timeout_ms"`
	AutoUpdate          bool       `json:"auto_update"`
	OpusModel           string     `json:"opus_model,omitempty"`
	SonnetModel         string     `json:"sonnet_model,omitempty"`
	HaikuModel          string     `json:"haiku_model,omitempty"`
	IsActive            bool       `json:"is_active"`
	SortOrder           int        `json:"sort_order"`
	IsHealthy           bool       `json:"is_healthy"`
	LastCheckTime       *time.Time `json:"last_check_time,omitempty"`
	ResponseTime        int64      `json:"response_time"`
	ConsecutiveFailures int64      `json:"consecutive_failures"`
	UptimePercentage    float64    `json:"uptime_percentage"`
	TotalRequests       int64      `json:"total_requests"`
	FailedRequests      int64      `json:"failed_requests"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Stats 供应商统计
type Stats struct {
	Claude       int64   `json:"claude"`
	Codex        int64   `json:"codex"`
	Total        int64   `json:"total"`
	ActiveClaude *string `json:"active_claude"`
	ActiveCodex  *string `json:"active_codex"`
}

// ToSupplierResponse 转换为响应，plainToken 为解密后的令牌
func ToSupplierResponse(s *models.Supplier, plainToken string) *SupplierResponse {
	return &SupplierResponse{
		ID:                  s.ID,
		Type:                string(s.Category),
		Name:                s.Name,
		BaseURL:             s.BaseURL,
		AuthToken:           crypto.Mask(plainToken),
		TimeoutMs:           s.TimeoutMs,
		AutoUpdate:          s.AutoUpdate,
		OpusModel:           s.OpusModel,
		SonnetModel:         s.SonnetModel,
		HaikuModel:          s.HaikuModel,
		IsActive:            s.IsActive,
		SortOrder:           s.SortOrder,
		IsHealthy:           s.IsHealthy,
		LastCheckTime:       s.LastCheckTime,
		ResponseTime:        s.ResponseTimeMs,
		ConsecutiveFailures: s.ConsecutiveFailures,
		UptimePercentage:    s.UptimePercentage,
		TotalRequests:       s.TotalRequests,
		FailedRequests:      s.FailedRequests,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
