package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCounter(window time.Duration) (*RequestCounter, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rc := NewRequestCounter(window)
	rc.now = func() time.Time { return now }
	rc.current.start = now
	rc.previous.start = now.Add(-window)
	return rc, &now
}

func TestRequestCounter_Record(t *testing.T) {
	rc, _ := newTestCounter(time.Second)

	for i := 0; i < 10; i++ {
		rc.Record(i%5 != 0)
	}

	s := rc.Snapshot()
	assert.Equal(t, int64(10), s.Total)
	assert.Equal(t, int64(2), s.Failed)
}

func TestRequestCounter_QPS(t *testing.T) {
	rc, now := newTestCounter(10 * time.Second)

	for i := 0; i < 100; i++ {
		rc.Record(true)
	}
	*now = now.Add(10 * time.Second)
	assert.InDelta(t, 10.0, rc.Snapshot().CurrentQPS, 0.001, "刚滚动时完全使用上一窗口")

	*now = now.Add(5 * time.Second)
	for i := 0; i < 50; i++ {
		rc.Record(true)
	}
	// 当前 50/5=10，上一窗口 100/10=10
	assert.InDelta(t, 10.0, rc.Snapshot().CurrentQPS, 0.001)
}

func TestRequestCounter_IdleResetsWindows(t *testing.T) {
	rc, now := newTestCounter(time.Second)

	for i := 0; i < 30; i++ {
		rc.Record(true)
	}
	*now = now.Add(time.Minute)

	s := rc.Snapshot()
	assert.Equal(t, int64(30), s.Total)
	assert.Zero(t, s.CurrentQPS)
}

func TestRequestCounter_Concurrent(t *testing.T) {
	rc := NewRequestCounter(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rc.Record(true)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), rc.Snapshot().Total)
}
