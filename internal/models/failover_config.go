package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConditionType 故障转移触发条件类型
type ConditionType string

const (
	ConditionConsecutiveFailures ConditionType = "consecutive_failures"
	ConditionResponseTime        ConditionType = "response_time"
	ConditionSuccessRate         ConditionType = "success_rate"
)

// Valid 是否为已知条件类型
func (t ConditionType) Valid() bool {
	switch t {
	case ConditionConsecutiveFailures, ConditionResponseTime, ConditionSuccessRate:
		return true
	}
	return false
}

// FailoverTrigger 故障转移触发条件
// 目前只做声明和持久化，评分与决策不读取
type FailoverTrigger struct {
	ConditionType           ConditionType `json:"condition_type"`
	Threshold               float64       `json:"threshold"`
	EvaluationWindowMinutes uint32        `json:"evaluation_window_minutes"`
}

// FailoverConfig 故障转移策略，每个类别一条
type FailoverConfig struct {
	ID                     uint                                 `gorm:"primaryKey" json:"-"`
	Category               Category                             `gorm:"type:varchar(20);not null;uniqueIndex" json:"-"`
	Enabled                bool                                 `gorm:"not null" json:"enabled"`
	TriggerConditions      datatypes.JSONSlice[FailoverTrigger] `json:"trigger_conditions"`
	AutoRollback           bool                                 `gorm:"not null" json:"auto_rollback"`
	RollbackDelaySeconds   uint32                               `gorm:"not null" json:"rollback_delay_seconds"`
	MaxConsecutiveFailures uint32                               `gorm:"not null" json:"max_consecutive_failures"`
	MaxResponseTimeMs      uint32                               `gorm:"not null" json:"max_response_time_ms"`
	MinSuccessRate         float64                              `gorm:"not null" json:"min_success_rate"`
	CreatedAt              time.Time                            `json:"-"`
	UpdatedAt              time.Time                            `json:"-"`
}

// TableName 指定表名
func (FailoverConfig) TableName() string {
	return "failover_configs"
}

// DefaultFailoverConfig 默认故障转移策略（首次迁移时写入）
func DefaultFailoverConfig(category Category) *FailoverConfig {
	return &FailoverConfig{
		Category:               category,
		Enabled:                true,
		TriggerConditions:      datatypes.JSONSlice[FailoverTrigger]{},
		AutoRollback:           true,
		RollbackDelaySeconds:   300,
		MaxConsecutiveFailures: 3,
		MaxResponseTimeMs:      5000,
		MinSuccessRate:         95.0,
	}
}
