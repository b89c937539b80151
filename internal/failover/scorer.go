package failover

import (
	"math"

	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
)

// 评分权重
const (
	successRateWeight  = 40.0
	responseTimeWeight = 30.0
	failureWeight      = 20.0
	stabilityWeight    = 10.0

	// 没有数据时给一半分
	defaultResponseScore  = 15.0
	defaultStabilityScore = 5.0

	maxResponsePenaltyRatio = 2.0
)

// Score 计算供应商综合评分（0-100，四舍五入）
func Score(h *health.SupplierHealth, cfg *models.FailoverConfig) float64 {
	successScore := h.UptimePercentage / 100 * successRateWeight

	responseScore := defaultResponseScore
	if h.ResponseTimeMs > 0 {
		optimal := float64(cfg.MaxResponseTimeMs) * 0.5
		rt := float64(h.ResponseTimeMs)
		if rt <= optimal {
			responseScore = responseTimeWeight
		} else {
			penalty := math.Min((rt-optimal)/optimal, maxResponsePenaltyRatio) * 15
			responseScore = math.Max(responseTimeWeight-penalty, 0)
		}
	}

	var failurePenalty float64
	switch {
	case cfg.MaxConsecutiveFailures > 0:
		failurePenalty = float64(h.ConsecutiveFailures) / float64(cfg.MaxConsecutiveFailures) * failureWeight
	case h.ConsecutiveFailures > 0:
		failurePenalty = failureWeight
	}
	failureScore := failureWeight - math.Min(failurePenalty, failureWeight)

	stabilityScore := defaultStabilityScore
	if h.TotalRequests > 0 {
		stabilityScore = (1 - float64(h.FailedRequests)/float64(h.TotalRequests)) * stabilityWeight
	}

	return math.Round(successScore + responseScore + failureScore + stabilityScore)
}

// SelectBest 从候选中挑选评分最高的健康供应商
// 只有严格更高的分数才替换，同分保留先出现的
func SelectBest(candidates []Candidate, cfg *models.FailoverConfig) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Health == nil || !c.Health.IsHealthy {
			continue
		}
		c.Score = Score(c.Health, cfg)
		if best == nil || c.Score > best.Score {
			best = c
		}
	}
	return best
}
