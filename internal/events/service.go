package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service 事件日志服务
// 事件同时写入 system_events 表和进程日志
type Service struct {
	db *gorm.DB
}

// NewService 创建事件日志服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Filter 事件查询条件，空值表示不过滤
type Filter struct {
	Type     string
	Level    string
	Category string
	Limit    int
}

// LogEvent 记录事件
// metadata 中的 category 会单独落到索引列，便于按类别查询
func (s *Service) LogEvent(ctx context.Context, eventType, level, message string, metadata map[string]interface{}) error {
	event := &models.SystemEvent{
		Type:      eventType,
		Message:   message,
		Level:     level,
		Category:  categoryOf(metadata),
		CreatedAt: time.Now(),
	}
	if len(metadata) > 0 {
		event.Metadata = datatypes.JSONMap(metadata)
	}

	entry := logrus.WithFields(logrus.Fields(metadata)).WithField("event", eventType)
	switch level {
	case models.EventLevelError:
		entry.Error(message)
	case models.EventLevelWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("保存事件失败: %w", err)
	}
	return nil
}

// LogInfo 记录信息级别事件
func (s *Service) LogInfo(ctx context.Context, eventType, message string, metadata map[string]interface{}) error {
	return s.LogEvent(ctx, eventType, models.EventLevelInfo, message, metadata)
}

// LogWarning 记录警告级别事件
func (s *Service) LogWarning(ctx context.Context, eventType, message string, metadata map[string]interface{}) error {
	return s.LogEvent(ctx, eventType, models.EventLevelWarning, message, metadata)
}

// LogError 记录错误级别事件
func (s *Service) LogError(ctx context.Context, eventType, message string, metadata map[string]interface{}) error {
	return s.LogEvent(ctx, eventType, models.EventLevelError, message, metadata)
}

// Query 按条件查询事件，按时间倒序
func (s *Service) Query(ctx context.Context, f Filter) ([]models.SystemEvent, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}

	q := s.db.WithContext(ctx).Model(&models.SystemEvent{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}

	var events []models.SystemEvent
	if err := q.Order("created_at DESC").Order("id DESC").Limit(f.Limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}
	return events, nil
}

// GetRecentEvents 获取最近的事件
func (s *Service) GetRecentEvents(ctx context.Context, limit int) ([]models.SystemEvent, error) {
	return s.Query(ctx, Filter{Limit: limit})
}

// CleanupOldEvents 清理旧事件（保留最近N天）
func (s *Service) CleanupOldEvents(ctx context.Context, days int) (int64, error) {
	cutoffTime := time.Now().AddDate(0, 0, -days)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoffTime).Delete(&models.SystemEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("清理旧事件失败: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func categoryOf(metadata map[string]interface{}) string {
	switch v := metadata["category"].(type) {
	case string:
		return v
	case models.Category:
		return string(v)
	}
	return ""
}
