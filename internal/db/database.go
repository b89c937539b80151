package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/config"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase 初始化数据库连接
// 整个进程共享同一个连接池，不额外加全局锁
func InitDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: newGormLogger(cfg.LogLevel, logrus.WithField("component", "gorm")),
	}

	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取 SQL DB 失败: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Path == ":memory:" {
		// 内存库每个连接都是独立的数据库
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logrus.WithFields(logrus.Fields{
		"path":     cfg.Path,
		"max_open": maxOpen,
		"max_idle": cfg.MaxIdleConns,
		"lifetime": cfg.ConnMaxLifetime,
	}).Info("✅ 数据库连接成功")

	return db, nil
}

// AutoMigrate 自动迁移所有数据模型并写入初始数据
func AutoMigrate(db *gorm.DB) error {
	logrus.Info("🔄 开始数据库迁移...")

	err := db.AutoMigrate(
		&models.Supplier{},
		&models.FailoverConfig{},
		&models.McpTemplate{},
		&models.WorkModeConfig{},
		&models.AppState{},
		&models.ConfigHistory{},
		&models.SystemEvent{},
	)
	if err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	if err := Seed(db); err != nil {
		return err
	}

	logrus.Info("✅ 数据库迁移完成")
	return nil
}

// CloseDatabase 关闭数据库连接
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取 SQL DB 失败: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("关闭数据库失败: %w", err)
	}

	logrus.Info("👋 数据库连接已关闭")
	return nil
}

// Stats 数据库统计信息
type Stats struct {
	SuppliersCount   int64 `json:"suppliers_count"`
	TemplatesCount   int64 `json:"templates_count"`
	BuiltinTemplates int64 `json:"builtin_templates"`
	CustomTemplates  int64 `json:"custom_templates"`
	HistoryCount     int64 `json:"history_count"`
}

// GetStats 统计各表记录数
func GetStats(db *gorm.DB) (*Stats, error) {
	var s Stats
	if err := db.Model(&models.Supplier{}).Count(&s.SuppliersCount).Error; err != nil {
		return nil, fmt.Errorf("统计供应商失败: %w", err)
	}
	if err := db.Model(&models.McpTemplate{}).Count(&s.TemplatesCount).Error; err != nil {
		return nil, fmt.Errorf("统计模板失败: %w", err)
	}
	if err := db.Model(&models.McpTemplate{}).Where("is_builtin = ?", true).Count(&s.BuiltinTemplates).Error; err != nil {
		return nil, fmt.Errorf("统计模板失败: %w", err)
	}
	s.CustomTemplates = s.TemplatesCount - s.BuiltinTemplates
	if err := db.Model(&models.ConfigHistory{}).Count(&s.HistoryCount).Error; err != nil {
		return nil, fmt.Errorf("统计配置历史失败: %w", err)
	}
	return &s, nil
}

// dsn 为文件库打开外键与 WAL，内存库保持原样
// 事务以 BEGIN IMMEDIATE 开始，并发写入在 busy_timeout 内排队而不是在提交时失败
func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

// newGormLogger 将 gorm 日志转发到 logrus
// 查询不到记录属于正常分支（无激活供应商、种子数据检查），不记录
func newGormLogger(level string, out logger.Writer) logger.Interface {
	return logger.New(out, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}
