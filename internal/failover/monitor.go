package failover

import (
	"context"
	"sync"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/sirupsen/logrus"
)

// Monitor 定时巡检各类别并触发自动故障转移
type Monitor struct {
	orchestrator *Orchestrator
	configs      ConfigStore
	interval     time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewMonitor 创建巡检器，interval <= 0 时 Start 不做任何事
func NewMonitor(o *Orchestrator, configs ConfigStore, interval time.Duration) *Monitor {
	return &Monitor{
		orchestrator: o,
		configs:      configs,
		interval:     interval,
	}
}

// Start 启动后台巡检，重复调用无效
func (m *Monitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		logrus.Info("⏸️ 自动故障转移巡检未启用")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.stopped = make(chan struct{})
	go m.run(ctx, m.stopped)

	logrus.WithField("interval", m.interval).Info("🔁 自动故障转移巡检已启动")
}

// Stop 停止巡检并等待当前轮次结束
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, stopped := m.cancel, m.stopped
	m.cancel, m.stopped = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (m *Monitor) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce 对所有启用了故障转移的类别执行一轮检查
func (m *Monitor) RunOnce(ctx context.Context) []*SupplierSwitchResult {
	var results []*SupplierSwitchResult
	for _, category := range models.AllCategories {
		if ctx.Err() != nil {
			return results
		}

		cfg, err := m.configs.Get(ctx, category)
		if err != nil {
			logrus.WithError(err).WithField("category", category).Warn("读取故障转移配置失败")
			continue
		}
		if !cfg.Enabled {
			continue
		}

		result := m.orchestrator.AutoFailover(ctx, category)
		results = append(results, result)

		entry := logrus.WithFields(logrus.Fields{
			"category": category,
			"success":  result.Success,
		})
		if result.Success {
			entry.Info(result.Message)
		} else {
			entry.Debug(result.Message)
		}
	}
	return results
}
