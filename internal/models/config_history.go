package models

import "time"

// ConfigHistory 配置历史（只追加的备份/恢复台账）
type ConfigHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ConfigType    string    `gorm:"type:varchar(50);not null;index" json:"config_type"`
	ConfigPath    string    `gorm:"type:varchar(255);not null" json:"config_path"`
	BackupContent string    `gorm:"type:text;not null" json:"backup_content"`
	OperationType string    `gorm:"type:varchar(20);not null" json:"operation_type"` // backup, restore
	OperationTime time.Time `gorm:"index" json:"operation_time"`
	Description   string    `gorm:"type:text" json:"description,omitempty"`
}

// TableName 指定表名
func (ConfigHistory) TableName() string {
	return "config_history"
}

// OperationType 常量
const (
	OperationBackup  = "backup"
	OperationRestore = "restore"
)
