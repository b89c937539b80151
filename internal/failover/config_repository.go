package failover

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrFailoverConfigNotFound 类别没有故障转移配置
	ErrFailoverConfigNotFound = errors.New("failover config not found")
	// ErrInvalidConfig 故障转移配置不合法
	ErrInvalidConfig = errors.New("invalid failover config")
)

// ConfigRepository 故障转移配置存储，每个类别一行
type ConfigRepository struct {
	db *gorm.DB
}

// NewConfigRepository 创建配置存储
func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// Get 读取类别的故障转移配置
func (r *ConfigRepository) Get(ctx context.Context, category models.Category) (*models.FailoverConfig, error) {
	var cfg models.FailoverConfig
	err := r.db.WithContext(ctx).Where("category = ?", category).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFailoverConfigNotFound
		}
		return nil, err
	}
	if cfg.TriggerConditions == nil {
		cfg.TriggerConditions = datatypes.JSONSlice[models.FailoverTrigger]{}
	}
	return &cfg, nil
}

// Put 写入类别的故障转移配置（不存在则创建）
func (r *ConfigRepository) Put(ctx context.Context, category models.Category, cfg *models.FailoverConfig) (*models.FailoverConfig, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidConfig, category)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	row := *cfg
	row.ID = 0
	row.Category = category
	if row.TriggerConditions == nil {
		row.TriggerConditions = datatypes.JSONSlice[models.FailoverTrigger]{}
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled", "trigger_conditions", "auto_rollback", "rollback_delay_seconds",
			"max_consecutive_failures", "max_response_time_ms", "min_success_rate", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("保存故障转移配置失败: %w", err)
	}

	return r.Get(ctx, category)
}

// ValidateConfig 校验配置取值
func ValidateConfig(cfg *models.FailoverConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is required", ErrInvalidConfig)
	}
	if cfg.MaxConsecutiveFailures == 0 {
		return fmt.Errorf("%w: max_consecutive_failures must be at least 1", ErrInvalidConfig)
	}
	if cfg.MaxResponseTimeMs == 0 {
		return fmt.Errorf("%w: max_response_time_ms must be at least 1", ErrInvalidConfig)
	}
	if cfg.MinSuccessRate < 0 || cfg.MinSuccessRate > 100 {
		return fmt.Errorf("%w: min_success_rate must be within [0, 100]", ErrInvalidConfig)
	}
	for i, t := range cfg.TriggerConditions {
		if !t.ConditionType.Valid() {
			return fmt.Errorf("%w: trigger_conditions[%d] has unknown condition_type %q", ErrInvalidConfig, i, t.ConditionType)
		}
		if t.Threshold < 0 {
			return fmt.Errorf("%w: trigger_conditions[%d] threshold must not be negative", ErrInvalidConfig, i)
		}
	}
	return nil
}
