package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidBackup 备份内容无法解析或不属于供应商快照
	ErrInvalidBackup = errors.New("invalid backup content")
	// ErrInvalidInput 输入参数错误
	ErrInvalidInput = errors.New("invalid input")
)

// supplierConfigPrefix 供应商快照的 config_type 前缀
const supplierConfigPrefix = "supplier:"

// SupplierStore 备份与回滚需要的供应商操作
type SupplierStore interface {
	FindByID(ctx context.Context, id uint) (*models.Supplier, error)
	FindActive(ctx context.Context, category models.Category) (*models.Supplier, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// Snapshot 某一时刻类别的激活状态
type Snapshot struct {
	Category           models.Category `json:"category"`
	ActiveSupplierID   *uint           `json:"active_supplier_id"`
	ActiveSupplierName string          `json:"active_supplier_name,omitempty"`
	TakenAt            time.Time       `json:"taken_at"`
}

// RecordRequest 通用配置备份请求
type RecordRequest struct {
	ConfigType  string `json:"config_type" binding:"required"`
	ConfigPath  string `json:"config_path" binding:"required"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Service 配置历史业务逻辑
type Service struct {
	repo      *Repository
	suppliers SupplierStore
	now       func() time.Time
}

// NewService 创建 Service
func NewService(repo *Repository, suppliers SupplierStore) *Service {
	return &Service{repo: repo, suppliers: suppliers, now: time.Now}
}

// ConfigType 类别对应的历史类型
func ConfigType(category models.Category) string {
	return supplierConfigPrefix + string(category)
}

// CreateBackup 记录类别当前激活的供应商，返回备份 ID
func (s *Service) CreateBackup(ctx context.Context, category models.Category) (uint, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}

	snapshot := Snapshot{Category: category, TakenAt: s.now()}
	active, err := s.suppliers.FindActive(ctx, category)
	switch {
	case err == nil:
		snapshot.ActiveSupplierID = &active.ID
		snapshot.ActiveSupplierName = active.Name
	case !errors.Is(err, supplier.ErrNoActiveSupplier):
		return 0, fmt.Errorf("读取激活供应商失败: %w", err)
	}

	content, err := json.Marshal(snapshot)
	if err != nil {
		return 0, err
	}

	record := &models.ConfigHistory{
		ConfigType:    ConfigType(category),
		ConfigPath:    "suppliers/" + string(category),
		BackupContent: string(content),
		OperationType: models.OperationBackup,
		OperationTime: snapshot.TakenAt,
		Description:   describe(snapshot),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return 0, fmt.Errorf("创建配置备份失败: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"backup_id": record.ID,
		"category":  category,
	}).Info("💾 已创建供应商备份")
	return record.ID, nil
}

// Rollback 恢复备份时的激活状态，并追加一条恢复记录
func (s *Service) Rollback(ctx context.Context, backupID uint) error {
	_, err := s.Restore(ctx, backupID)
	return err
}

// Restore 恢复备份并返回新写入的恢复记录
func (s *Service) Restore(ctx context.Context, backupID uint) (*models.ConfigHistory, error) {
	backup, err := s.repo.FindByID(ctx, backupID)
	if err != nil {
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(backup.BackupContent), &snapshot); err != nil || !snapshot.Category.Valid() {
		return nil, fmt.Errorf("%w: backup %d", ErrInvalidBackup, backupID)
	}

	if err := s.apply(ctx, snapshot); err != nil {
		return nil, err
	}

	record := &models.ConfigHistory{
		ConfigType:    backup.ConfigType,
		ConfigPath:    backup.ConfigPath,
		BackupContent: backup.BackupContent,
		OperationType: models.OperationRestore,
		OperationTime: s.now(),
		Description:   fmt.Sprintf("从备份ID %d 恢复", backupID),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("创建恢复历史记录失败: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"backup_id": backupID,
		"category":  snapshot.Category,
	}).Info("⏪ 已从备份恢复")
	return record, nil
}

// apply 把激活状态恢复为快照
func (s *Service) apply(ctx context.Context, snapshot Snapshot) error {
	if snapshot.ActiveSupplierID != nil {
		if _, err := s.suppliers.FindByID(ctx, *snapshot.ActiveSupplierID); err != nil {
			return fmt.Errorf("备份中的供应商无法恢复: %w", err)
		}
		return s.suppliers.SetActive(ctx, *snapshot.ActiveSupplierID, true)
	}

	// 备份时没有激活的供应商
	current, err := s.suppliers.FindActive(ctx, snapshot.Category)
	if err != nil {
		if errors.Is(err, supplier.ErrNoActiveSupplier) {
			return nil
		}
		return err
	}
	return s.suppliers.SetActive(ctx, current.ID, false)
}

// Record 写入一条通用配置备份
func (s *Service) Record(ctx context.Context, req RecordRequest) (*models.ConfigHistory, error) {
	if req.ConfigType == "" || req.ConfigPath == "" {
		return nil, fmt.Errorf("%w: config_type and config_path are required", ErrInvalidInput)
	}
	record := &models.ConfigHistory{
		ConfigType:    req.ConfigType,
		ConfigPath:    req.ConfigPath,
		BackupContent: req.Content,
		OperationType: models.OperationBackup,
		OperationTime: s.now(),
		Description:   req.Description,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("创建配置备份失败: %w", err)
	}
	return record, nil
}

// List 列出某类型的历史
func (s *Service) List(ctx context.Context, configType string, limit int) ([]models.ConfigHistory, error) {
	return s.repo.FindByType(ctx, configType, limit)
}

// Latest 某类型最近的一条历史
func (s *Service) Latest(ctx context.Context, configType string) (*models.ConfigHistory, error) {
	return s.repo.Latest(ctx, configType)
}

// Cleanup 只保留最近 keep 条
func (s *Service) Cleanup(ctx context.Context, configType string, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must not be negative", ErrInvalidInput)
	}
	return s.repo.Cleanup(ctx, configType, keep)
}

// Delete 删除一条历史
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func describe(s Snapshot) string {
	if s.ActiveSupplierID == nil {
		return fmt.Sprintf("%s 切换前备份（无激活供应商）", s.Category)
	}
	return fmt.Sprintf("%s 切换前备份（激活: %s）", s.Category, s.ActiveSupplierName)
}
