package failover

import (
	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
)

// 触发故障转移的条件
const (
	TriggerConsecutiveFailures = "consecutive_failures"
	TriggerSlowAndUnreliable   = "slow_and_unreliable"
	TriggerLowSuccessRate      = "low_success_rate"
	TriggerUnhealthy           = "unhealthy"
)

// lowSuccessRateMargin 成功率低于 min_success_rate 减去该值时直接触发
const lowSuccessRateMargin = 10.0

// ShouldFailover 判断是否需要故障转移，任一条件满足即为 true
// 调用方需在 config.Enabled 为 false 时跳过
func ShouldFailover(h *health.SupplierHealth, cfg *models.FailoverConfig) bool {
	return len(FailoverReasons(h, cfg)) > 0
}

// FailoverReasons 列出满足的触发条件
func FailoverReasons(h *health.SupplierHealth, cfg *models.FailoverConfig) []string {
	var reasons []string

	if h.ConsecutiveFailures >= int64(cfg.MaxConsecutiveFailures) {
		reasons = append(reasons, TriggerConsecutiveFailures)
	}
	if h.ResponseTimeMs > int64(cfg.MaxResponseTimeMs) && h.UptimePercentage < cfg.MinSuccessRate {
		reasons = append(reasons, TriggerSlowAndUnreliable)
	}
	if h.UptimePercentage < cfg.MinSuccessRate-lowSuccessRateMargin {
		reasons = append(reasons, TriggerLowSuccessRate)
	}
	if !h.IsHealthy {
		reasons = append(reasons, TriggerUnhealthy)
	}

	return reasons
}
