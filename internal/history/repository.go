package history

import (
	"context"
	"errors"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"gorm.io/gorm"
)

// ErrBackupNotFound 备份记录不存在
var ErrBackupNotFound = errors.New("备份记录不存在")

// Repository 配置历史数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 追加一条历史记录
func (r *Repository) Create(ctx context.Context, h *models.ConfigHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// FindByID 根据 ID 查找
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.ConfigHistory, error) {
	var h models.ConfigHistory
	if err := r.db.WithContext(ctx).First(&h, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}
	return &h, nil
}

// FindByType 按类型列出历史，最新的在前；limit <= 0 表示不限
func (r *Repository) FindByType(ctx context.Context, configType string, limit int) ([]models.ConfigHistory, error) {
	var list []models.ConfigHistory
	query := r.db.WithContext(ctx).
		Where("config_type = ?", configType).
		Order("operation_time DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Latest 最近一条记录
func (r *Repository) Latest(ctx context.Context, configType string) (*models.ConfigHistory, error) {
	list, err := r.FindByType(ctx, configType, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrBackupNotFound
	}
	return &list[0], nil
}

// Cleanup 只保留某类型最近的 keep 条，返回删除条数
func (r *Repository) Cleanup(ctx context.Context, configType string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	keepIDs := r.db.Model(&models.ConfigHistory{}).
		Select("id").
		Where("config_type = ?", configType).
		Order("operation_time DESC, id DESC").
		Limit(keep)

	query := r.db.WithContext(ctx).Where("config_type = ?", configType)
	if keep > 0 {
		query = query.Where("id NOT IN (?)", keepIDs)
	}
	result := query.Delete(&models.ConfigHistory{})
	return result.RowsAffected, result.Error
}

// Delete 删除一条记录
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ConfigHistory{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBackupNotFound
	}
	return nil
}
