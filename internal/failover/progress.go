package failover

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// 切换步骤
const (
	stepValidate = "验证供应商"
	stepBackup   = "创建备份"
	stepActivate = "切换激活状态"
	stepDone     = "完成"

	switchTotalSteps = 4
)

// progressTracker 内存中的切换进度，完成的记录保留一段时间后清理
type progressTracker struct {
	mu        sync.Mutex
	entries   map[string]*progressEntry
	retention time.Duration
	now       func() time.Time
}

type progressEntry struct {
	progress   SwitchProgress
	finishedAt time.Time
}

func newProgressTracker(retention time.Duration) *progressTracker {
	return &progressTracker{
		entries:   make(map[string]*progressEntry),
		retention: retention,
		now:       time.Now,
	}
}

// start 登记一次新切换并返回其 ID
func (t *progressTracker) start(from, to uint) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()

	id := uuid.NewString()
	t.entries[id] = &progressEntry{progress: SwitchProgress{
		SwitchID:     id,
		TotalSteps:   switchTotalSteps,
		CurrentStep:  stepValidate,
		FromSupplier: from,
		ToSupplier:   to,
		StartTime:    t.now(),
	}}
	return id
}

// advance 完成当前步骤并进入下一步
func (t *progressTracker) advance(id, next string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return
	}
	if e.progress.CompletedSteps < e.progress.TotalSteps {
		e.progress.CompletedSteps++
	}
	e.progress.CurrentStep = next
	e.progress.OverallProgress = uint8(uint(e.progress.CompletedSteps) * 100 / uint(e.progress.TotalSteps))
}

// finish 结束切换，errMsg 为空表示成功
func (t *progressTracker) finish(id string, rollbackAvailable bool, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return
	}
	now := t.now()
	e.finishedAt = now
	e.progress.IsCompleted = true
	e.progress.RollbackAvailable = rollbackAvailable
	e.progress.EstimatedCompletion = &now
	if errMsg != "" {
		e.progress.HasError = true
		e.progress.ErrorMessage = &errMsg
		return
	}
	e.progress.CompletedSteps = e.progress.TotalSteps
	e.progress.OverallProgress = 100
	e.progress.CurrentStep = stepDone
}

// get 返回进度副本
func (t *progressTracker) get(id string) (*SwitchProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked()

	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	p := e.progress
	return &p, true
}

func (t *progressTracker) pruneLocked() {
	if t.retention <= 0 {
		return
	}
	cutoff := t.now().Add(-t.retention)
	for id, e := range t.entries {
		if !e.finishedAt.IsZero() && e.finishedAt.Before(cutoff) {
			delete(t.entries, id)
		}
	}
}
