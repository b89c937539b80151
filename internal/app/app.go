package app

import (
	"context"
	"fmt"

	"github.com/Mieluoxxx/AITools-Switch/internal/config"
	"github.com/Mieluoxxx/AITools-Switch/internal/crypto"
	"github.com/Mieluoxxx/AITools-Switch/internal/events"
	"github.com/Mieluoxxx/AITools-Switch/internal/failover"
	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/history"
	"github.com/Mieluoxxx/AITools-Switch/internal/stats"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/Mieluoxxx/AITools-Switch/internal/template"
	"github.com/Mieluoxxx/AITools-Switch/internal/workmode"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App 持有所有服务实例，CLI 与 HTTP 共用
type App struct {
	Config *config.Config
	DB     *gorm.DB

	Suppliers       *supplier.Service
	SupplierRepo    *supplier.Repository
	Aggregator      *health.Aggregator
	FailoverConfigs *failover.ConfigRepository
	Orchestrator    *failover.Orchestrator
	Monitor         *failover.Monitor
	History         *history.Service
	Templates       *template.Service
	WorkModes       *workmode.Service
	Events          *events.Service
	Requests        *stats.RequestCounter
}

// Option 调整默认组装
type Option func(*options)

type options struct {
	prober health.Prober
}

// WithProber 替换默认的 HTTP 探测器（测试使用）
func WithProber(p health.Prober) Option {
	return func(o *options) { o.prober = p }
}

// New 按配置组装服务
func New(cfg *config.Config, database *gorm.DB, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sealer, err := crypto.NewSealer(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("初始化令牌加密失败: %w", err)
	}
	if !sealer.Enabled() {
		logrus.Warn("⚠️  未配置 security.encryption_key，供应商令牌将明文存储")
	}

	prober := o.prober
	if prober == nil {
		prober = health.NewHTTPProber(
			health.WithDefaultTimeout(cfg.Health.DefaultTimeout),
			health.WithProbePath(cfg.Health.ProbePath),
			health.WithRateLimit(cfg.Health.ProbeRPS),
			health.WithAllowedStatus(cfg.Health.AllowedStatusCodes...),
			health.WithTokenOpener(sealer),
		)
	}

	eventService := events.NewService(database)

	supplierRepo := supplier.NewRepository(database)
	supplierService := supplier.NewService(supplierRepo, sealer, prober).WithEvents(eventService)
	aggregator := health.NewAggregator(prober, supplierRepo, cfg.Health.CheckConcurrency)

	historyService := history.NewService(history.NewRepository(database), supplierRepo)

	configRepo := failover.NewConfigRepository(database)
	orchestrator := failover.NewOrchestrator(supplierRepo, configRepo, aggregator,
		failover.WithBackupHook(historyService),
		failover.WithEvents(eventService),
		failover.WithProgressRetention(cfg.Failover.ProgressRetention),
	)

	templateService := template.NewService(template.NewRepository(database))
	workModeService := workmode.NewService(workmode.NewRepository(database), supplierRepo, orchestrator, templateService).
		WithEvents(eventService)

	return &App{
		Config:          cfg,
		DB:              database,
		Suppliers:       supplierService,
		SupplierRepo:    supplierRepo,
		Aggregator:      aggregator,
		FailoverConfigs: configRepo,
		Orchestrator:    orchestrator,
		Monitor:         failover.NewMonitor(orchestrator, configRepo, cfg.Failover.MonitorInterval),
		History:         historyService,
		Templates:       templateService,
		WorkModes:       workModeService,
		Events:          eventService,
		Requests:        stats.NewRequestCounter(0),
	}, nil
}

// Start 启动后台任务
func (a *App) Start(ctx context.Context) {
	a.Monitor.Start(ctx)
}

// Stop 停止后台任务
func (a *App) Stop() {
	a.Monitor.Stop()
}
