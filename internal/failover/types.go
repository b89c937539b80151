package failover

import (
	"fmt"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
)

// SwitchReason 切换原因
type SwitchReason string

const (
	ReasonManual       SwitchReason = "manual"
	ReasonAutoFailover SwitchReason = "auto_failover"
	ReasonHealthCheck  SwitchReason = "health_check"
)

// ParseSwitchReason 解析切换原因，空字符串视为手动
func ParseSwitchReason(s string) (SwitchReason, error) {
	switch SwitchReason(s) {
	case "":
		return ReasonManual, nil
	case ReasonManual, ReasonAutoFailover, ReasonHealthCheck:
		return SwitchReason(s), nil
	}
	return "", fmt.Errorf("unknown switch reason %q", s)
}

// SupplierSwitchRequest 切换请求
type SupplierSwitchRequest struct {
	FromSupplierID    uint         `json:"from_supplier_id"`
	ToSupplierID      uint         `json:"to_supplier_id"`
	SwitchReason      SwitchReason `json:"switch_reason"`
	CreateBackup      bool         `json:"create_backup"`
	RollbackOnFailure bool         `json:"rollback_on_failure"`
}

// SupplierSwitchResult 切换结果，任何路径都会产出
type SupplierSwitchResult struct {
	SwitchID          string    `json:"switch_id,omitempty"`
	Success           bool      `json:"success"`
	Message           string    `json:"message"`
	FromSupplierID    uint      `json:"from_supplier_id"`
	ToSupplierID      uint      `json:"to_supplier_id"`
	SwitchTime        time.Time `json:"switch_time"`
	RollbackAvailable bool      `json:"rollback_available"`
	BackupID          *uint     `json:"backup_id,omitempty"`
	Error             *string   `json:"error,omitempty"`
}

// SwitchProgress 单次切换的进度
type SwitchProgress struct {
	SwitchID            string     `json:"switch_id"`
	TotalSteps          uint8      `json:"total_steps"`
	CompletedSteps      uint8      `json:"completed_steps"`
	OverallProgress     uint8      `json:"overall_progress"`
	CurrentStep         string     `json:"current_step"`
	FromSupplier        uint       `json:"from_supplier"`
	ToSupplier          uint       `json:"to_supplier"`
	StartTime           time.Time  `json:"start_time"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	RollbackAvailable   bool       `json:"rollback_available"`
	IsCompleted         bool       `json:"is_completed"`
	HasError            bool       `json:"has_error"`
	ErrorMessage        *string    `json:"error_message,omitempty"`
}

// CategoryStatus 类别当前状态
type CategoryStatus struct {
	Category           models.Category `json:"category"`
	ActiveSupplierID   *uint           `json:"active_supplier_id,omitempty"`
	ActiveSupplierName *string         `json:"active_supplier_name,omitempty"`
	IsTransitioning    bool            `json:"is_transitioning"`
	LastSwitchTime     *time.Time      `json:"last_switch_time,omitempty"`
}

// Candidate 备用供应商及其评分
type Candidate struct {
	Supplier *models.Supplier       `json:"supplier"`
	Health   *health.SupplierHealth `json:"health"`
	Score    float64                `json:"score"`
}
