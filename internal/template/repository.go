package template

import (
	"context"
	"errors"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"gorm.io/gorm"
)

// ErrTemplateNotFound 模板不存在
var ErrTemplateNotFound = errors.New("MCP模板不存在")

// Filter 列表过滤条件，零值表示不过滤
type Filter struct {
	AIType       models.Category     `form:"ai_type"`
	PlatformType models.PlatformType `form:"platform_type"`
	Category     string              `form:"category"`
}

// CategoryCount 分类统计
type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Repository 模板数据访问层
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建 Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create 创建模板
func (r *Repository) Create(ctx context.Context, t *models.McpTemplate) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// FindByID 根据 ID 查找
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.McpTemplate, error) {
	var t models.McpTemplate
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByIDs 批量查找，不存在的 ID 会被忽略
func (r *Repository) FindByIDs(ctx context.Context, ids []uint) ([]models.McpTemplate, error) {
	var list []models.McpTemplate
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&list).Error
	return list, err
}

// FindAll 按条件列出模板：内置在前，然后按使用次数和名称排序
func (r *Repository) FindAll(ctx context.Context, f Filter) ([]models.McpTemplate, error) {
	var list []models.McpTemplate
	query := r.db.WithContext(ctx).Model(&models.McpTemplate{})
	if f.AIType != "" {
		query = query.Where("ai_type = ?", f.AIType)
	}
	if f.PlatformType != "" {
		query = query.Where("platform_type = ?", f.PlatformType)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	err := query.Order("is_builtin DESC, usage_count DESC, name ASC, id ASC").Find(&list).Error
	return list, err
}

// Update 保存可编辑字段
func (r *Repository) Update(ctx context.Context, t *models.McpTemplate) error {
	return r.db.WithContext(ctx).Model(t).
		Select("name", "version", "config_content", "description", "category", "tags").
		Updates(t).Error
}

// Delete 删除模板
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.McpTemplate{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// IncrementUsage 使用次数加一
func (r *Repository) IncrementUsage(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.McpTemplate{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// Exists 同名同版本同类型同平台的模板是否存在（排除指定 ID）
func (r *Repository) Exists(ctx context.Context, t *models.McpTemplate, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.McpTemplate{}).
		Where("name = ? AND version = ? AND ai_type = ? AND platform_type = ?", t.Name, t.Version, t.AIType, t.PlatformType)
	if excludeID > 0 {
		query = query.Where("id != ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NameExists 名称是否已被使用
func (r *Repository) NameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.McpTemplate{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Categories 分类及其模板数
func (r *Repository) Categories(ctx context.Context) ([]CategoryCount, error) {
	var list []CategoryCount
	err := r.db.WithContext(ctx).Model(&models.McpTemplate{}).
		Select("category AS name, COUNT(*) AS count").
		Where("category IS NOT NULL AND category != ''").
		Group("category").
		Order("count DESC, name ASC").
		Scan(&list).Error
	return list, err
}

// CountBy 按列值统计数量
func (r *Repository) CountBy(ctx context.Context, column string, value interface{}) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.McpTemplate{})
	if column != "" {
		query = query.Where(column+" = ?", value)
	}
	err := query.Count(&count).Error
	return count, err
}
