package health

import (
	"fmt"
	"time"
)

// DegradedThreshold 连续失败次数达到该值即视为不健康
const DegradedThreshold = 3

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ParseStatus 解析健康状态字符串
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusHealthy, StatusDegraded, StatusUnhealthy:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown health status %q", s)
}

// StatusFor 根据探测结果与连续失败次数推导状态
func StatusFor(healthy bool, consecutiveFailures int64) Status {
	switch {
	case healthy:
		return StatusHealthy
	case consecutiveFailures < DegradedThreshold:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// SupplierHealth 某一时刻的供应商健康快照
type SupplierHealth struct {
	SupplierID          uint      `json:"supplier_id"`
	IsHealthy           bool      `json:"is_healthy"`
	LastCheckTime       time.Time `json:"last_check_time"`
	ResponseTimeMs      int64     `json:"response_time"`
	ConsecutiveFailures int64     `json:"consecutive_failures"`
	UptimePercentage    float64   `json:"uptime_percentage"`
	TotalRequests       int64     `json:"total_requests"`
	FailedRequests      int64     `json:"failed_requests"`
	Status              Status    `json:"status"`
	ErrorMessage        *string   `json:"error_message,omitempty"`
}

// ProbeResult 单次探测结果
type ProbeResult struct {
	Success        bool        `json:"success"`
	ResponseTimeMs *int64      `json:"response_time,omitempty"`
	Error          *string     `json:"error,omitempty"`
	StatusCode     int         `json:"status_code,omitempty"`
	FailureType    FailureType `json:"failure_type,omitempty"`
}

// Succeeded 构造成功结果
func Succeeded(responseTimeMs int64) ProbeResult {
	return ProbeResult{Success: true, ResponseTimeMs: &responseTimeMs}
}

// Failed 构造失败结果
func Failed(ft FailureType, format string, args ...interface{}) ProbeResult {
	msg := fmt.Sprintf(format, args...)
	return ProbeResult{Error: &msg, FailureType: ft}
}
