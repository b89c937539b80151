package models

import (
	"time"

	"gorm.io/datatypes"
)

// PlatformType 模板适用平台
type PlatformType string

const (
	PlatformUnix    PlatformType = "unix"
	PlatformWindows PlatformType = "windows"
)

// Valid 是否为已知平台
func (p PlatformType) Valid() bool {
	return p == PlatformUnix || p == PlatformWindows
}

// McpTemplate MCP 模板
// claude 类型内容为 JSON，codex 类型内容为 TOML
type McpTemplate struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	Name          string                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_template_identity" json:"name"`
	Version       string                      `gorm:"type:varchar(50);not null;default:'1.0.0';uniqueIndex:idx_template_identity" json:"version"`
	AIType        Category                    `gorm:"type:varchar(20);not null;uniqueIndex:idx_template_identity" json:"ai_type"`
	PlatformType  PlatformType                `gorm:"type:varchar(20);not null;uniqueIndex:idx_template_identity" json:"platform_type"`
	ConfigContent string                      `gorm:"type:text;not null" json:"config_content"`
	Description   string                      `gorm:"type:text" json:"description,omitempty"`
	IsBuiltin     bool                        `gorm:"default:false;not null" json:"is_builtin"`
	Category      string                      `gorm:"type:varchar(50)" json:"category,omitempty"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	UsageCount    int64                       `gorm:"default:0;not null" json:"usage_count"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// TableName 指定表名
func (McpTemplate) TableName() string {
	return "mcp_templates"
}
