package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// RequestCounter 本地 API 请求计数器
// 总数用原子计数，QPS 用两个相邻时间窗口加权估算，窗口在读写时惰性滚动
type RequestCounter struct {
	total  int64
	failed int64

	mu       sync.Mutex
	window   time.Duration
	current  windowCount
	previous windowCount
	now      func() time.Time
}

type windowCount struct {
	start time.Time
	count int64
}

// RequestStats 请求统计
type RequestStats struct {
	Total      int64   `json:"total"`
	Failed     int64   `json:"failed"`
	CurrentQPS float64 `json:"current_qps"`
}

// NewRequestCounter 创建计数器，window 为 0 时使用 60 秒
func NewRequestCounter(window time.Duration) *RequestCounter {
	if window <= 0 {
		window = 60 * time.Second
	}
	rc := &RequestCounter{window: window, now: time.Now}
	rc.current.start = rc.now()
	rc.previous.start = rc.current.start.Add(-window)
	return rc
}

// Record 记录一次请求，ok 为 false 表示业务失败
func (rc *RequestCounter) Record(ok bool) {
	atomic.AddInt64(&rc.total, 1)
	if !ok {
		atomic.AddInt64(&rc.failed, 1)
	}

	rc.mu.Lock()
	rc.rotateLocked()
	rc.current.count++
	rc.mu.Unlock()
}

// Snapshot 当前统计
func (rc *RequestCounter) Snapshot() RequestStats {
	return RequestStats{
		Total:      atomic.LoadInt64(&rc.total),
		Failed:     atomic.LoadInt64(&rc.failed),
		CurrentQPS: rc.qps(),
	}
}

func (rc *RequestCounter) qps() float64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.rotateLocked()

	windowSecs := rc.window.Seconds()
	prevQPS := float64(rc.previous.count) / windowSecs
	elapsed := rc.now().Sub(rc.current.start).Seconds()
	if elapsed <= 0 {
		return prevQPS
	}
	currentQPS := float64(rc.current.count) / elapsed
	if elapsed >= windowSecs {
		return currentQPS
	}

	// 当前窗口太短时混合上一个窗口
	prevWeight := (windowSecs - elapsed) / windowSecs
	return currentQPS*(1-prevWeight) + prevQPS*prevWeight
}

// rotateLocked 按经过的窗口数滚动，空闲超过两个窗口时上一窗口清零
func (rc *RequestCounter) rotateLocked() {
	now := rc.now()
	elapsed := now.Sub(rc.current.start)
	if elapsed < rc.window {
		return
	}
	if elapsed < 2*rc.window {
		rc.previous = rc.current
	} else {
		rc.previous = windowCount{start: now.Add(-rc.window)}
	}
	rc.current = windowCount{start: rc.current.start.Add(elapsed / rc.window * rc.window)}
}
