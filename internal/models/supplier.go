package models

import (
	"fmt"
	"time"
)

// Category 供应商类别
// 同一类别内最多只有一个激活的供应商
type Category string

const (
	CategoryClaude Category = "claude"
	CategoryCodex  Category = "codex"
)

// AllCategories 所有已知类别（按固定顺序）
var AllCategories = []Category{CategoryClaude, CategoryCodex}

// Valid 是否为已知类别
func (c Category) Valid() bool {
	return c == CategoryClaude || c == CategoryCodex
}

// ParseCategory 解析类别字符串
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q: must be 'claude' or 'codex'", s)
	}
	return c, nil
}

// Supplier 供应商模型
// 存储上游 AI 服务的接入信息，以及滚动的健康统计
type Supplier struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Category    Category `gorm:"column:type;type:varchar(20);not null;index" json:"type"`
	Name        string   `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	BaseURL     string   `gorm:"type:varchar(255);not null" json:"base_url"`
	AuthToken   string   `gorm:"type:text;not null" json:"auth_token"` // 加密存储
	TimeoutMs   int64    `gorm:"default:30000;not null" json:"timeout_ms"`
	AutoUpdate  bool     `gorm:"default:false;not null" json:"auto_update"`
	OpusModel   string   `gorm:"type:varchar(100)" json:"opus_model,omitempty"`
	SonnetModel string   `gorm:"type:varchar(100)" json:"sonnet_model,omitempty"`
	HaikuModel  string   `gorm:"type:varchar(100)" json:"haiku_model,omitempty"`
	IsActive    bool     `gorm:"default:false;not null;index" json:"is_active"`
	SortOrder   int      `gorm:"default:0;not null" json:"sort_order"`

	// 健康检查字段，仅由健康聚合器更新
	IsHealthy           bool       `gorm:"default:false;not null" json:"is_healthy"`
	LastCheckTime       *time.Time `json:"last_check_time,omitempty"`
	ResponseTimeMs      int64      `gorm:"column:response_time;default:0;not null" json:"response_time"`
	ConsecutiveFailures int64      `gorm:"default:0;not null" json:"consecutive_failures"`
	UptimePercentage    float64    `gorm:"default:0;not null" json:"uptime_percentage"`
	TotalRequests       int64      `gorm:"default:0;not null" json:"total_requests"`
	FailedRequests      int64      `gorm:"default:0;not null" json:"failed_requests"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Supplier) TableName() string {
	return "suppliers"
}
