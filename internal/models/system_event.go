package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemEvent 系统事件日志
// 用于记录系统重要事件，如故障转移、供应商切换、配置变更、健康检查等
type SystemEvent struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Type      string            `gorm:"type:varchar(50);not null;index" json:"type"` // failover, supplier_switch, health_check, etc.
	Message   string            `gorm:"type:text;not null" json:"message"`
	Level     string            `gorm:"type:varchar(20);not null;default:'info'" json:"level"` // info, warning, error
	Category  string            `gorm:"type:varchar(20);index" json:"category,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SystemEvent) TableName() string {
	return "system_events"
}

// EventType 事件类型常量
const (
	EventTypeFailover       = "failover"        // 自动故障转移
	EventTypeSwitch         = "supplier_switch" // 供应商切换
	EventTypeConfigChange   = "config_change"   // 配置变更
	EventTypeHealthCheck    = "health_check"    // 健康检查
	EventTypeSupplierAdded  = "supplier_added"  // 供应商添加
	EventTypeSupplierError  = "supplier_error"  // 供应商错误
	EventTypeWorkModeSwitch = "work_mode"       // 工作模式切换
)

// EventLevel 事件级别常量
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)
