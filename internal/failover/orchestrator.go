package failover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/sirupsen/logrus"
)

// 结果消息
const (
	msgSupplierNotFound   = "供应商不存在"
	msgCategoryMismatch   = "源供应商与目标供应商类别不同"
	msgUnknownCategory    = "未知的供应商类别"
	msgConfigUnavailable  = "无法获取故障转移配置"
	msgFailoverDisabled   = "自动故障转移已禁用"
	msgNoActiveSupplier   = "没有激活的供应商"
	msgHealthUnavailable  = "无法获取供应商健康状态"
	msgNoActionNeeded     = "当前供应商健康，无需故障转移"
	msgNoHealthyCandidate = "没有健康的备用供应商可用"
	msgBackupFailed       = "创建备份失败"
	msgSwitchFailed       = "供应商切换失败"
)

// SupplierStore 编排器需要的供应商存储操作
type SupplierStore interface {
	FindByID(ctx context.Context, id uint) (*models.Supplier, error)
	FindAll(ctx context.Context, category models.Category) ([]models.Supplier, error)
	FindActive(ctx context.Context, category models.Category) (*models.Supplier, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// ConfigStore 故障转移配置读取
type ConfigStore interface {
	Get(ctx context.Context, category models.Category) (*models.FailoverConfig, error)
}

// Assessor 健康评估
type Assessor interface {
	Assess(ctx context.Context, s *models.Supplier) (*health.SupplierHealth, error)
	AssessAll(ctx context.Context, suppliers []models.Supplier) ([]*health.SupplierHealth, error)
}

// BackupHook 切换前备份与失败回滚
type BackupHook interface {
	CreateBackup(ctx context.Context, category models.Category) (uint, error)
	Rollback(ctx context.Context, backupID uint) error
}

// EventLogger 事件记录
type EventLogger interface {
	LogInfo(ctx context.Context, eventType, message string, metadata map[string]interface{}) error
	LogWarning(ctx context.Context, eventType, message string, metadata map[string]interface{}) error
	LogError(ctx context.Context, eventType, message string, metadata map[string]interface{}) error
}

// Orchestrator 供应商切换编排器
// 同一类别的自动故障转移与切换串行执行
type Orchestrator struct {
	suppliers SupplierStore
	configs   ConfigStore
	assessor  Assessor
	backups   BackupHook
	events    EventLogger
	progress  *progressTracker
	now       func() time.Time

	mu            sync.Mutex
	locks         map[models.Category]*sync.Mutex
	transitioning map[models.Category]bool
	lastSwitch    map[models.Category]time.Time
}

// Option 配置编排器
type Option func(*Orchestrator)

// WithBackupHook 设置备份钩子
func WithBackupHook(h BackupHook) Option {
	return func(o *Orchestrator) { o.backups = h }
}

// WithEvents 设置事件记录器
func WithEvents(e EventLogger) Option {
	return func(o *Orchestrator) { o.events = e }
}

// WithProgressRetention 设置已完成切换进度的保留时长
func WithProgressRetention(d time.Duration) Option {
	return func(o *Orchestrator) { o.progress.retention = d }
}

// NewOrchestrator 创建编排器
func NewOrchestrator(suppliers SupplierStore, configs ConfigStore, assessor Assessor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		suppliers:     suppliers,
		configs:       configs,
		assessor:      assessor,
		progress:      newProgressTracker(10 * time.Minute),
		now:           time.Now,
		locks:         make(map[models.Category]*sync.Mutex),
		transitioning: make(map[models.Category]bool),
		lastSwitch:    make(map[models.Category]time.Time),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Switch 手动切换供应商
func (o *Orchestrator) Switch(ctx context.Context, req SupplierSwitchRequest) *SupplierSwitchResult {
	from, to, result := o.resolvePair(ctx, req)
	if result != nil {
		return result
	}

	unlock := o.lock(to.Category)
	defer unlock()

	return o.switchLocked(ctx, from, to, req)
}

// Activate 激活指定供应商
// 类别已有激活供应商时走完整切换流程，否则直接激活
func (o *Orchestrator) Activate(ctx context.Context, id uint, reason SwitchReason, createBackup bool) *SupplierSwitchResult {
	target, err := o.suppliers.FindByID(ctx, id)
	if err != nil {
		return o.failure(0, id, msgSupplierNotFound, err)
	}

	unlock := o.lock(target.Category)
	defer unlock()

	req := SupplierSwitchRequest{
		ToSupplierID:      id,
		SwitchReason:      reason,
		CreateBackup:      createBackup,
		RollbackOnFailure: createBackup,
	}

	current, err := o.suppliers.FindActive(ctx, target.Category)
	switch {
	case err == nil:
		req.FromSupplierID = current.ID
		return o.switchLocked(ctx, current, target, req)
	case errors.Is(err, supplier.ErrNoActiveSupplier):
		return o.switchLocked(ctx, nil, target, req)
	default:
		return o.failure(0, id, msgSwitchFailed, err)
	}
}

// AutoFailover 检查类别当前供应商，必要时切换到评分最高的健康备用供应商
func (o *Orchestrator) AutoFailover(ctx context.Context, category models.Category) *SupplierSwitchResult {
	if !category.Valid() {
		return o.failure(0, 0, msgUnknownCategory, fmt.Errorf("category %q", category))
	}

	unlock := o.lock(category)
	defer unlock()

	o.setTransitioning(category, true)
	defer o.setTransitioning(category, false)

	cfg, err := o.configs.Get(ctx, category)
	if err != nil {
		return o.failure(0, 0, msgConfigUnavailable, err)
	}
	if !cfg.Enabled {
		return o.failure(0, 0, msgFailoverDisabled, nil)
	}

	current, err := o.suppliers.FindActive(ctx, category)
	if err != nil {
		if errors.Is(err, supplier.ErrNoActiveSupplier) {
			return o.failure(0, 0, msgNoActiveSupplier, nil)
		}
		return o.failure(0, 0, msgNoActiveSupplier, err)
	}

	currentHealth, err := o.assessor.Assess(ctx, current)
	if err != nil {
		return o.failure(current.ID, 0, msgHealthUnavailable, err)
	}

	reasons := FailoverReasons(currentHealth, cfg)
	if len(reasons) == 0 {
		result := o.failure(current.ID, current.ID, msgNoActionNeeded, nil)
		result.Error = nil
		return result
	}

	log := logrus.WithFields(logrus.Fields{
		"category":    category,
		"supplier_id": current.ID,
		"reasons":     reasons,
	})
	log.Warn("⚠️ 当前供应商满足故障转移条件")

	best, err := o.bestCandidate(ctx, category, current.ID, cfg)
	if err != nil {
		return o.failure(current.ID, 0, msgHealthUnavailable, err)
	}
	if best == nil {
		o.logEvent(ctx, models.EventLevelError, models.EventTypeFailover, msgNoHealthyCandidate, map[string]interface{}{
			"category":    category,
			"supplier_id": current.ID,
			"reasons":     reasons,
		})
		return o.failure(current.ID, 0, msgNoHealthyCandidate, nil)
	}

	log.WithFields(logrus.Fields{
		"candidate_id": best.Supplier.ID,
		"score":        best.Score,
	}).Infof("🔀 选择备用供应商: %s", best.Supplier.Name)

	o.logEvent(ctx, models.EventLevelWarning, models.EventTypeFailover,
		fmt.Sprintf("自动故障转移: %s -> %s", current.Name, best.Supplier.Name),
		map[string]interface{}{
			"category":     category,
			"from":         current.ID,
			"to":           best.Supplier.ID,
			"score":        best.Score,
			"reasons":      reasons,
			"health_state": currentHealth.Status,
		})

	req := SupplierSwitchRequest{
		FromSupplierID:    current.ID,
		ToSupplierID:      best.Supplier.ID,
		SwitchReason:      ReasonAutoFailover,
		CreateBackup:      cfg.AutoRollback,
		RollbackOnFailure: cfg.AutoRollback,
	}
	return o.doSwitch(ctx, current, best.Supplier, req)
}

// Candidates 评估类别内除当前激活外的所有供应商并打分（不切换）
func (o *Orchestrator) Candidates(ctx context.Context, category models.Category) ([]Candidate, error) {
	cfg, err := o.configs.Get(ctx, category)
	if err != nil {
		return nil, err
	}

	var excludeID uint
	if current, err := o.suppliers.FindActive(ctx, category); err == nil {
		excludeID = current.ID
	} else if !errors.Is(err, supplier.ErrNoActiveSupplier) {
		return nil, err
	}

	candidates, err := o.assessCandidates(ctx, category, excludeID)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].Score = Score(candidates[i].Health, cfg)
	}
	return candidates, nil
}

// Status 返回类别当前状态
func (o *Orchestrator) Status(ctx context.Context, category models.Category) (*CategoryStatus, error) {
	status := &CategoryStatus{Category: category}

	o.mu.Lock()
	status.IsTransitioning = o.transitioning[category]
	if t, ok := o.lastSwitch[category]; ok {
		status.LastSwitchTime = &t
	}
	o.mu.Unlock()

	active, err := o.suppliers.FindActive(ctx, category)
	switch {
	case err == nil:
		status.ActiveSupplierID = &active.ID
		status.ActiveSupplierName = &active.Name
	case !errors.Is(err, supplier.ErrNoActiveSupplier):
		return nil, err
	}
	return status, nil
}

// IsTransitioning 是否有类别正在切换
func (o *Orchestrator) IsTransitioning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, v := range o.transitioning {
		if v {
			return true
		}
	}
	return false
}

// Progress 查询切换进度
func (o *Orchestrator) Progress(switchID string) (*SwitchProgress, bool) {
	return o.progress.get(switchID)
}

func (o *Orchestrator) resolvePair(ctx context.Context, req SupplierSwitchRequest) (*models.Supplier, *models.Supplier, *SupplierSwitchResult) {
	from, err := o.suppliers.FindByID(ctx, req.FromSupplierID)
	if err != nil {
		return nil, nil, o.lookupFailure(req, err)
	}
	to, err := o.suppliers.FindByID(ctx, req.ToSupplierID)
	if err != nil {
		return nil, nil, o.lookupFailure(req, err)
	}
	if from.Category != to.Category {
		return nil, nil, o.failure(req.FromSupplierID, req.ToSupplierID, msgCategoryMismatch, nil)
	}
	return from, to, nil
}

func (o *Orchestrator) lookupFailure(req SupplierSwitchRequest, err error) *SupplierSwitchResult {
	if errors.Is(err, supplier.ErrSupplierNotFound) {
		return o.failure(req.FromSupplierID, req.ToSupplierID, msgSupplierNotFound, nil)
	}
	return o.failure(req.FromSupplierID, req.ToSupplierID, msgSwitchFailed, err)
}

// switchLocked 在已持有类别锁时执行切换
func (o *Orchestrator) switchLocked(ctx context.Context, from, to *models.Supplier, req SupplierSwitchRequest) *SupplierSwitchResult {
	o.setTransitioning(to.Category, true)
	defer o.setTransitioning(to.Category, false)
	return o.doSwitch(ctx, from, to, req)
}

// doSwitch 备份、激活、失败时回滚
// 调用方负责持锁和维护进行中标记
func (o *Orchestrator) doSwitch(ctx context.Context, from, to *models.Supplier, req SupplierSwitchRequest) *SupplierSwitchResult {
	category := to.Category
	switchID := o.progress.start(req.FromSupplierID, req.ToSupplierID)
	result := &SupplierSwitchResult{
		SwitchID:       switchID,
		FromSupplierID: req.FromSupplierID,
		ToSupplierID:   req.ToSupplierID,
		SwitchTime:     o.now(),
	}
	o.progress.advance(switchID, stepBackup)

	var backupID *uint
	if req.CreateBackup && o.backups != nil {
		id, err := o.backups.CreateBackup(ctx, category)
		if err != nil {
			errMsg := fmt.Sprintf("%s: %v", msgBackupFailed, err)
			result.Message = msgBackupFailed
			result.Error = &errMsg
			o.progress.finish(switchID, false, errMsg)
			o.logSwitch(ctx, req, category, result)
			return result
		}
		backupID = &id
		result.BackupID = backupID
	}
	o.progress.advance(switchID, stepActivate)

	if err := o.suppliers.SetActive(ctx, to.ID, true); err != nil {
		errMsg := fmt.Sprintf("设置激活状态失败: %v", err)
		if req.RollbackOnFailure && backupID != nil {
			if rbErr := o.backups.Rollback(ctx, *backupID); rbErr != nil {
				errMsg = fmt.Sprintf("%s; 回滚失败: %v", errMsg, rbErr)
			} else {
				errMsg += "; 已回滚到备份"
			}
		}
		result.Message = msgSwitchFailed
		result.Error = &errMsg
		o.progress.finish(switchID, false, errMsg)
		o.logSwitch(ctx, req, category, result)
		return result
	}
	o.progress.advance(switchID, stepDone)

	result.Success = true
	result.RollbackAvailable = true
	if from != nil {
		result.Message = fmt.Sprintf("成功从供应商 %d 切换到供应商 %d", from.ID, to.ID)
	} else {
		result.Message = fmt.Sprintf("已激活供应商 %s", to.Name)
	}

	o.mu.Lock()
	o.lastSwitch[category] = result.SwitchTime
	o.mu.Unlock()

	o.progress.finish(switchID, true, "")
	o.logSwitch(ctx, req, category, result)
	return result
}

// bestCandidate 评估备用供应商并选出最佳者
func (o *Orchestrator) bestCandidate(ctx context.Context, category models.Category, currentID uint, cfg *models.FailoverConfig) (*Candidate, error) {
	candidates, err := o.assessCandidates(ctx, category, currentID)
	if err != nil {
		return nil, err
	}
	return SelectBest(candidates, cfg), nil
}

func (o *Orchestrator) assessCandidates(ctx context.Context, category models.Category, excludeID uint) ([]Candidate, error) {
	all, err := o.suppliers.FindAll(ctx, category)
	if err != nil {
		return nil, err
	}

	backups := make([]models.Supplier, 0, len(all))
	for _, s := range all {
		if s.ID != excludeID {
			backups = append(backups, s)
		}
	}
	if len(backups) == 0 {
		return nil, nil
	}

	healths, err := o.assessor.AssessAll(ctx, backups)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(backups))
	for i := range backups {
		candidates[i] = Candidate{Supplier: &backups[i], Health: healths[i]}
	}
	return candidates, nil
}

func (o *Orchestrator) failure(from, to uint, message string, cause error) *SupplierSwitchResult {
	errMsg := message
	if cause != nil {
		errMsg = fmt.Sprintf("%s: %v", message, cause)
	}
	return &SupplierSwitchResult{
		Success:        false,
		Message:        message,
		FromSupplierID: from,
		ToSupplierID:   to,
		SwitchTime:     o.now(),
		Error:          &errMsg,
	}
}

func (o *Orchestrator) lock(category models.Category) func() {
	o.mu.Lock()
	m, ok := o.locks[category]
	if !ok {
		m = &sync.Mutex{}
		o.locks[category] = m
	}
	o.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (o *Orchestrator) setTransitioning(category models.Category, v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitioning[category] = v
}

func (o *Orchestrator) logSwitch(ctx context.Context, req SupplierSwitchRequest, category models.Category, r *SupplierSwitchResult) {
	metadata := map[string]interface{}{
		"category":  category,
		"from":      req.FromSupplierID,
		"to":        req.ToSupplierID,
		"reason":    req.SwitchReason,
		"switch_id": r.SwitchID,
	}
	if r.BackupID != nil {
		metadata["backup_id"] = *r.BackupID
	}
	if r.Success {
		o.logEvent(ctx, models.EventLevelInfo, models.EventTypeSwitch, r.Message, metadata)
		return
	}
	if r.Error != nil {
		metadata["error"] = *r.Error
	}
	o.logEvent(ctx, models.EventLevelError, models.EventTypeSwitch, r.Message, metadata)
}

func (o *Orchestrator) logEvent(ctx context.Context, level, eventType, message string, metadata map[string]interface{}) {
	if o.events == nil {
		logrus.WithFields(logrus.Fields(metadata)).Info(message)
		return
	}

	var err error
	switch level {
	case models.EventLevelError:
		err = o.events.LogError(ctx, eventType, message, metadata)
	case models.EventLevelWarning:
		err = o.events.LogWarning(ctx, eventType, message, metadata)
	default:
		err = o.events.LogInfo(ctx, eventType, message, metadata)
	}
	if err != nil {
		logrus.WithError(err).Warn("记录事件失败")
	}
}
