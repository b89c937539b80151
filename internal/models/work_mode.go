package models

import (
	"time"

	"gorm.io/datatypes"
)

// ModeName 工作模式名称
type ModeName string

const (
	ModeClaudeOnly  ModeName = "claude_only"
	ModeCodexOnly   ModeName = "codex_only"
	ModeClaudeCodex ModeName = "claude_codex"
)

// Valid 是否为已知模式
func (m ModeName) Valid() bool {
	switch m {
	case ModeClaudeOnly, ModeCodexOnly, ModeClaudeCodex:
		return true
	}
	return false
}

// WorkModeConfig 工作模式配置
// 绑定每个类别的激活供应商以及一组 MCP 模板
type WorkModeConfig struct {
	ID                     uint                      `gorm:"primaryKey" json:"id"`
	ModeName               ModeName                  `gorm:"type:varchar(50);not null;uniqueIndex" json:"mode_name"`
	ActiveClaudeSupplierID *uint                     `json:"active_claude_supplier_id,omitempty"`
	ActiveCodexSupplierID  *uint                     `json:"active_codex_supplier_id,omitempty"`
	McpTemplateIDs         datatypes.JSONSlice[uint] `json:"mcp_template_ids"`
	CreatedAt              time.Time                 `json:"created_at"`
	UpdatedAt              time.Time                 `json:"updated_at"`
}

// TableName 指定表名
func (WorkModeConfig) TableName() string {
	return "work_mode_configs"
}

// AppState 应用状态键值表
type AppState struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (AppState) TableName() string {
	return "app_state"
}

// AppStateCurrentWorkMode 当前工作模式的键
const AppStateCurrentWorkMode = "current_work_mode"
