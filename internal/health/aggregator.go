package health

import (
	"context"
	"fmt"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Store 健康字段持久化
// AccumulateHealth 需在存储侧原子地读取计数、按 Derive 叠加探测结果并写回
type Store interface {
	AccumulateHealth(ctx context.Context, id uint, result ProbeResult, checkedAt time.Time) (*SupplierHealth, error)
}

// Aggregator 将探测结果与历史计数合成健康快照并写回存储
type Aggregator struct {
	prober      Prober
	store       Store
	concurrency int
	now         func() time.Time
}

// NewAggregator 创建健康聚合器，concurrency 为批量检查的最大并发
func NewAggregator(prober Prober, store Store, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Aggregator{
		prober:      prober,
		store:       store,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Prober 返回底层探测器
func (a *Aggregator) Prober() Prober {
	return a.prober
}

// Assess 探测一次并更新供应商的健康统计
// 只有存储失败才返回 error，探测失败体现在快照里
func (a *Aggregator) Assess(ctx context.Context, supplier *models.Supplier) (*SupplierHealth, error) {
	result := a.prober.Probe(ctx, supplier)

	snapshot, err := a.store.AccumulateHealth(ctx, supplier.ID, result, a.now())
	if err != nil {
		return nil, fmt.Errorf("保存健康状态失败: %w", err)
	}
	snapshot.ApplyTo(supplier)

	logrus.WithFields(logrus.Fields{
		"supplier_id":          supplier.ID,
		"category":             supplier.Category,
		"status":               snapshot.Status,
		"response_time":        snapshot.ResponseTimeMs,
		"consecutive_failures": snapshot.ConsecutiveFailures,
	}).Debug("🩺 健康检查完成")

	return snapshot, nil
}

// AssessAll 并发检查一组供应商，结果顺序与输入一致
func (a *Aggregator) AssessAll(ctx context.Context, suppliers []models.Supplier) ([]*SupplierHealth, error) {
	results := make([]*SupplierHealth, len(suppliers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range suppliers {
		i := i
		g.Go(func() error {
			h, err := a.Assess(gctx, &suppliers[i])
			if err != nil {
				return err
			}
			results[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Derive 由已存储的计数与本次探测结果计算新快照（纯函数）
func Derive(supplier *models.Supplier, result ProbeResult, now time.Time) *SupplierHealth {
	consecutive := int64(0)
	if !result.Success {
		consecutive = supplier.ConsecutiveFailures + 1
	}

	total := supplier.TotalRequests + 1
	failed := supplier.FailedRequests
	if !result.Success {
		failed++
	}

	var responseTime int64
	if result.ResponseTimeMs != nil {
		responseTime = *result.ResponseTimeMs
	}

	return &SupplierHealth{
		SupplierID:          supplier.ID,
		IsHealthy:           result.Success,
		LastCheckTime:       now,
		ResponseTimeMs:      responseTime,
		ConsecutiveFailures: consecutive,
		UptimePercentage:    float64(total-failed) / float64(total) * 100,
		TotalRequests:       total,
		FailedRequests:      failed,
		Status:              StatusFor(result.Success, consecutive),
		ErrorMessage:        result.Error,
	}
}

// FromSupplier 由供应商已存储的健康字段构造快照（不探测）
func FromSupplier(supplier *models.Supplier) *SupplierHealth {
	h := &SupplierHealth{
		SupplierID:          supplier.ID,
		IsHealthy:           supplier.IsHealthy,
		ResponseTimeMs:      supplier.ResponseTimeMs,
		ConsecutiveFailures: supplier.ConsecutiveFailures,
		UptimePercentage:    supplier.UptimePercentage,
		TotalRequests:       supplier.TotalRequests,
		FailedRequests:      supplier.FailedRequests,
		Status:              StatusFor(supplier.IsHealthy, supplier.ConsecutiveFailures),
	}
	if supplier.LastCheckTime != nil {
		h.LastCheckTime = *supplier.LastCheckTime
	}
	return h
}

// ApplyTo 把快照写回内存中的供应商
func (h *SupplierHealth) ApplyTo(supplier *models.Supplier) {
	checked := h.LastCheckTime
	supplier.IsHealthy = h.IsHealthy
	supplier.LastCheckTime = &checked
	supplier.ResponseTimeMs = h.ResponseTimeMs
	supplier.ConsecutiveFailures = h.ConsecutiveFailures
	supplier.UptimePercentage = h.UptimePercentage
	supplier.TotalRequests = h.TotalRequests
	supplier.FailedRequests = h.FailedRequests
}
