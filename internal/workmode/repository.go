package workmode

import (
	"context"
	"errors"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrModeNotFound 工作模式配置不存在
var ErrModeNotFound = errors.New("工作模式配置不存在")

// appStateLastSwitch 上次切换时间的键
const appStateLastSwitch = "last_work_mode_switch"

// Repository 工作模式与应用状态数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindAll 所有工作模式配置
func (r *Repository) FindAll(ctx context.Context) ([]models.WorkModeConfig, error) {
	var list []models.WorkModeConfig
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

// FindByName 根据模式名查找
func (r *Repository) FindByName(ctx context.Context, mode models.ModeName) (*models.WorkModeConfig, error) {
	var cfg models.WorkModeConfig
	if err := r.db.WithContext(ctx).Where("mode_name = ?", mode).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModeNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// Upsert 写入模式配置（按 mode_name 覆盖）
func (r *Repository) Upsert(ctx context.Context, cfg *models.WorkModeConfig) error {
	if cfg.McpTemplateIDs == nil {
		cfg.McpTemplateIDs = datatypes.JSONSlice[uint]{}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mode_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"active_claude_supplier_id", "active_codex_supplier_id", "mcp_template_ids", "updated_at"}),
	}).Create(cfg).Error
}

// GetState 读取应用状态，不存在时返回空字符串
func (r *Repository) GetState(ctx context.Context, key string) (string, error) {
	var state models.AppState
	err := r.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state.Value, nil
}

// SetState 写入应用状态
func (r *Repository) SetState(ctx context.Context, key, value string) error {
	state := models.AppState{Key: key, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&state).Error
}

// AllStates 所有应用状态
func (r *Repository) AllStates(ctx context.Context) ([]models.AppState, error) {
	var list []models.AppState
	err := r.db.WithContext(ctx).Order("key ASC").Find(&list).Error
	return list, err
}

// RecordSwitch 在一个事务中保存模式配置、当前模式和切换时间
func (r *Repository) RecordSwitch(ctx context.Context, cfg *models.WorkModeConfig, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &Repository{db: tx}
		if err := txRepo.Upsert(ctx, cfg); err != nil {
			return err
		}
		if err := txRepo.SetState(ctx, models.AppStateCurrentWorkMode, string(cfg.ModeName)); err != nil {
			return err
		}
		return txRepo.SetState(ctx, appStateLastSwitch, at.UTC().Format(time.RFC3339Nano))
	})
}
