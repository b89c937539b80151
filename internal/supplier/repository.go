package supplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrSupplierNotFound 供应商不存在
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrSupplierNameExists 供应商名称已存在
	ErrSupplierNameExists = errors.New("supplier name already exists")
	// ErrNoActiveSupplier 类别下没有激活的供应商
	ErrNoActiveSupplier = errors.New("no active supplier")
)

// editableColumns Update 允许写入的列，激活状态与健康字段走各自的方法
var editableColumns = []string{
	"Category", "Name", "BaseURL", "AuthToken", "TimeoutMs", "AutoUpdate",
	"OpusModel", "SonnetModel", "HaikuModel", "SortOrder",
}

// Repository 供应商数据访问层
// 每次读取都直接查库，不做进程内缓存
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository 实例
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 创建供应商
func (r *Repository) Create(ctx context.Context, s *models.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// CreateBatch 在一个事务中创建多个供应商，任一失败全部回滚
func (r *Repository) CreateBatch(ctx context.Context, suppliers []*models.Supplier) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range suppliers {
			if err := tx.Create(s).Error; err != nil {
				return fmt.Errorf("创建供应商 %q 失败: %w", s.Name, err)
			}
		}
		return nil
	})
}

// FindByID 根据 ID 查找供应商
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Supplier, error) {
	var s models.Supplier
	err := r.db.WithContext(ctx).First(&s, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindByName 根据名称查找供应商
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Supplier, error) {
	var s models.Supplier
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindAll 按类别列出供应商，category 为空时列出全部
// 顺序: sort_order, name, id
func (r *Repository) FindAll(ctx context.Context, category models.Category) ([]models.Supplier, error) {
	q := r.db.WithContext(ctx).Model(&models.Supplier{})
	if category != "" {
		q = q.Where("type = ?", category)
	}

	var suppliers []models.Supplier
	if err := q.Order("sort_order ASC").Order("name ASC").Order("id ASC").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// FindActive 获取类别下激活的供应商
func (r *Repository) FindActive(ctx context.Context, category models.Category) (*models.Supplier, error) {
	var s models.Supplier
	err := r.db.WithContext(ctx).
		Where("type = ? AND is_active = ?", category, true).
		Order("updated_at DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSupplier
		}
		return nil, err
	}
	return &s, nil
}

// CountByCategory 统计类别下的供应商数量
func (r *Repository) CountByCategory(ctx context.Context, category models.Category) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("type = ?", category).Count(&count).Error
	return count, err
}

// SetActive 设置激活状态
// 激活时在同一事务内先停用同类别的全部供应商再激活目标，避免出现零个或两个激活
func (r *Repository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.Supplier
		if err := tx.First(&target, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSupplierNotFound
			}
			return err
		}

		if active {
			if err := tx.Model(&models.Supplier{}).
				Where("type = ? AND is_active = ?", target.Category, true).
				Update("is_active", false).Error; err != nil {
				return fmt.Errorf("停用同类别供应商失败: %w", err)
			}
		}

		return tx.Model(&models.Supplier{}).Where("id = ?", id).Update("is_active", active).Error
	})
}

// UpdateHealthFields 写回健康快照
func (r *Repository) UpdateHealthFields(ctx context.Context, id uint, h *health.SupplierHealth) error {
	return writeHealth(r.db.WithContext(ctx), id, h)
}

// AccumulateHealth 在同一事务内读取已存储的计数、叠加本次探测结果并写回
// 并发检查同一供应商时计数不会丢失
func (r *Repository) AccumulateHealth(ctx context.Context, id uint, result health.ProbeResult, checkedAt time.Time) (*health.SupplierHealth, error) {
	var snapshot *health.SupplierHealth
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Supplier
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSupplierNotFound
			}
			return err
		}

		snapshot = health.Derive(&current, result, checkedAt)
		return writeHealth(tx, id, snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func writeHealth(db *gorm.DB, id uint, h *health.SupplierHealth) error {
	checked := h.LastCheckTime
	result := db.Model(&models.Supplier{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_healthy":           h.IsHealthy,
		"last_check_time":      &checked,
		"response_time":        h.ResponseTimeMs,
		"consecutive_failures": h.ConsecutiveFailures,
		"uptime_percentage":    h.UptimePercentage,
		"total_requests":       h.TotalRequests,
		"failed_requests":      h.FailedRequests,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

// Update 更新可编辑字段
func (r *Repository) Update(ctx context.Context, s *models.Supplier) error {
	result := r.db.WithContext(ctx).Model(s).Select(editableColumns).Updates(s)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

// Deactivate 取消激活（类别变更时使用）
func (r *Repository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Update("is_active", false).Error
}

// Delete 删除供应商（硬删除）
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Supplier{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

// CheckNameExists 检查名称是否存在（排除指定 ID）
func (r *Repository) CheckNameExists(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
