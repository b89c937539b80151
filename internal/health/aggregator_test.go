package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore 在内存中保存供应商计数并记录写入的健康快照
type memoryStore struct {
	mu    sync.Mutex
	rows  map[uint]models.Supplier
	saved map[uint]*SupplierHealth
	err   error
}

func newMemoryStore(suppliers ...models.Supplier) *memoryStore {
	m := &memoryStore{rows: make(map[uint]models.Supplier), saved: make(map[uint]*SupplierHealth)}
	for _, s := range suppliers {
		m.rows[s.ID] = s
	}
	return m
}

func (m *memoryStore) AccumulateHealth(_ context.Context, id uint, result ProbeResult, checkedAt time.Time) (*SupplierHealth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	row, ok := m.rows[id]
	if !ok {
		row = models.Supplier{ID: id}
	}
	h := Derive(&row, result, checkedAt)
	h.ApplyTo(&row)
	m.rows[id] = row
	m.saved[id] = h
	return h, nil
}

func fixedProber(success bool, ms int64) Prober {
	return ProberFunc(func(context.Context, *models.Supplier) ProbeResult {
		if success {
			return Succeeded(ms)
		}
		r := Failed(FailureConnection, "connection refused")
		r.ResponseTimeMs = &ms
		return r
	})
}

func TestAssess_SuccessResetsStreak(t *testing.T) {
	s := &models.Supplier{ID: 7, ConsecutiveFailures: 5, TotalRequests: 9, FailedRequests: 5}
	store := newMemoryStore(*s)
	agg := NewAggregator(fixedProber(true, 120), store, 1)

	h, err := agg.Assess(context.Background(), s)
	require.NoError(t, err)

	assert.True(t, h.IsHealthy)
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, int64(0), h.ConsecutiveFailures)
	assert.Equal(t, int64(10), h.TotalRequests)
	assert.Equal(t, int64(5), h.FailedRequests)
	assert.InDelta(t, 50.0, h.UptimePercentage, 0.0001)
	assert.Equal(t, int64(120), h.ResponseTimeMs)
	assert.Nil(t, h.ErrorMessage)

	assert.Same(t, h, store.saved[7])
	assert.Equal(t, int64(10), s.TotalRequests, "内存中的供应商应同步更新")
}

func TestAssess_FailureIncrementsStoredCounter(t *testing.T) {
	agg := NewAggregator(fixedProber(false, 30), newMemoryStore(), 1)
	s := &models.Supplier{ID: 1}

	var statuses []Status
	for i := 0; i < 4; i++ {
		h, err := agg.Assess(context.Background(), s)
		require.NoError(t, err)
		statuses = append(statuses, h.Status)
	}

	assert.Equal(t, []Status{StatusDegraded, StatusDegraded, StatusUnhealthy, StatusUnhealthy}, statuses)
	assert.Equal(t, int64(4), s.ConsecutiveFailures)
	assert.Equal(t, int64(4), s.FailedRequests)
	assert.Equal(t, 0.0, s.UptimePercentage)
}

func TestAssess_StoreError(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("disk full")
	agg := NewAggregator(fixedProber(true, 1), store, 1)

	_, err := agg.Assess(context.Background(), &models.Supplier{ID: 1})
	assert.Error(t, err)
}

// 计数以存储中的值为准，过期的内存对象不会覆盖其他检查的结果
func TestAssess_CountsFromStoreNotStaleCopy(t *testing.T) {
	store := newMemoryStore(models.Supplier{ID: 1})
	agg := NewAggregator(fixedProber(false, 10), store, 4)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stale := models.Supplier{ID: 1}
			_, err := agg.Assess(context.Background(), &stale)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	row := store.rows[1]
	assert.Equal(t, int64(8), row.TotalRequests)
	assert.Equal(t, int64(8), row.FailedRequests)
	assert.Equal(t, int64(8), row.ConsecutiveFailures)
}

func TestAssessAll_PreservesOrder(t *testing.T) {
	prober := ProberFunc(func(_ context.Context, s *models.Supplier) ProbeResult {
		// 让靠前的供应商更慢返回
		time.Sleep(time.Duration(5-s.ID) * time.Millisecond)
		return Succeeded(int64(s.ID))
	})
	agg := NewAggregator(prober, newMemoryStore(), 3)

	suppliers := []models.Supplier{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	results, err := agg.AssessAll(context.Background(), suppliers)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, h := range results {
		assert.Equal(t, suppliers[i].ID, h.SupplierID)
	}
}

func TestFromSupplier(t *testing.T) {
	now := time.Now()
	s := &models.Supplier{ID: 3, IsHealthy: false, ConsecutiveFailures: 3, LastCheckTime: &now, UptimePercentage: 70}

	h := FromSupplier(s)
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.Equal(t, now, h.LastCheckTime)
	assert.Equal(t, 70.0, h.UptimePercentage)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("degraded")
	require.NoError(t, err)
	assert.Equal(t, StatusDegraded, st)

	_, err = ParseStatus("Degraded")
	assert.Error(t, err)
}

// 健康状态推导：is_healthy 与探测结果一致，状态只由健康与连续失败次数决定
func TestDerive_StatusProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("status follows probe result and streak", prop.ForAll(
		func(success bool, streak int64, total int64, failedRatio float64) bool {
			failed := int64(float64(total) * failedRatio)
			s := &models.Supplier{ID: 1, ConsecutiveFailures: streak, TotalRequests: total, FailedRequests: failed}

			var r ProbeResult
			if success {
				r = Succeeded(10)
			} else {
				r = Failed(FailureUnknown, "x")
			}
			h := Derive(s, r, time.Now())

			if h.IsHealthy != success {
				return false
			}
			switch h.Status {
			case StatusHealthy:
				if !h.IsHealthy {
					return false
				}
			case StatusDegraded:
				if h.IsHealthy || h.ConsecutiveFailures >= 3 {
					return false
				}
			case StatusUnhealthy:
				if h.IsHealthy || h.ConsecutiveFailures < 3 {
					return false
				}
			default:
				return false
			}
			if success && h.ConsecutiveFailures != 0 {
				return false
			}
			if !success && h.ConsecutiveFailures != streak+1 {
				return false
			}
			return h.UptimePercentage >= 0 && h.UptimePercentage <= 100 &&
				h.TotalRequests == total+1
		},
		gen.Bool(),
		gen.Int64Range(0, 20),
		gen.Int64Range(0, 1000),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
