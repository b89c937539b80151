package supplier

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/config"
	"github.com/Mieluoxxx/AITools-Switch/internal/db"
	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.InitDatabase(&config.DatabaseConfig{Path: ":memory:", MaxIdleConns: 1, ConnMaxLifetime: time.Hour, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	return database
}

// setupFileDB 创建基于文件的测试数据库（WAL，多连接）
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.InitDatabase(&config.DatabaseConfig{
		Path:            t.TempDir() + "/suppliers.db",
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	t.Cleanup(func() { _ = db.CloseDatabase(database) })
	return database
}

func createSupplier(t *testing.T, repo *Repository, category models.Category, name string, active bool) *models.Supplier {
	t.Helper()
	s := &models.Supplier{
		Category:  category,
		Name:      name,
		BaseURL:   "https://" + name + ".example.com",
		AuthToken: "sk-" + name,
	}
	require.NoError(t, repo.Create(context.Background(), s))
	if active {
		require.NoError(t, repo.SetActive(context.Background(), s.ID, true))
		s.IsActive = true
	}
	return s
}

func activeIDs(t *testing.T, repo *Repository, category models.Category) []uint {
	t.Helper()
	all, err := repo.FindAll(context.Background(), category)
	require.NoError(t, err)
	var ids []uint
	for _, s := range all {
		if s.IsActive {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s := createSupplier(t, repo, models.CategoryClaude, "alpha", false)
	assert.NotZero(t, s.ID)

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", found.Name)
	assert.Equal(t, int64(30000), found.TimeoutMs, "未指定超时应使用默认值")
	assert.False(t, found.IsActive)

	byName, err := repo.FindByName(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, s.ID, byName.ID)

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestRepository_FindAllFiltersAndOrders(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	b := createSupplier(t, repo, models.CategoryClaude, "bravo", false)
	a := createSupplier(t, repo, models.CategoryClaude, "alpha", false)
	createSupplier(t, repo, models.CategoryCodex, "codex-1", false)

	claude, err := repo.FindAll(ctx, models.CategoryClaude)
	require.NoError(t, err)
	require.Len(t, claude, 2)
	assert.Equal(t, a.ID, claude[0].ID)
	assert.Equal(t, b.ID, claude[1].ID)

	all, err := repo.FindAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepository_SetActiveIsExclusive(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s1 := createSupplier(t, repo, models.CategoryClaude, "s1", true)
	s2 := createSupplier(t, repo, models.CategoryClaude, "s2", false)
	s3 := createSupplier(t, repo, models.CategoryClaude, "s3", false)
	codex := createSupplier(t, repo, models.CategoryCodex, "c1", true)

	for _, id := range []uint{s2.ID, s3.ID, s1.ID, s3.ID} {
		require.NoError(t, repo.SetActive(ctx, id, true))
		assert.Equal(t, []uint{id}, activeIDs(t, repo, models.CategoryClaude))
	}

	// 其他类别不受影响
	assert.Equal(t, []uint{codex.ID}, activeIDs(t, repo, models.CategoryCodex))

	active, err := repo.FindActive(ctx, models.CategoryClaude)
	require.NoError(t, err)
	assert.Equal(t, s3.ID, active.ID)
}

func TestRepository_SetActiveConcurrent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 5; i++ {
		ids = append(ids, createSupplier(t, repo, models.CategoryCodex, fmt.Sprintf("c%d", i), i == 0).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			assert.NoError(t, repo.SetActive(ctx, id, true))
		}(id)
	}
	wg.Wait()

	assert.Len(t, activeIDs(t, repo, models.CategoryCodex), 1)
}

// 文件库多连接下并发激活全部成功，且最终只有一个激活
func TestRepository_SetActiveConcurrentFileDB(t *testing.T) {
	repo := NewRepository(setupFileDB(t))
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 6; i++ {
		ids = append(ids, createSupplier(t, repo, models.CategoryClaude, fmt.Sprintf("f%d", i), i == 0).ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			assert.NoError(t, repo.SetActive(ctx, id, true))
		}(id)
	}
	wg.Wait()

	assert.Len(t, activeIDs(t, repo, models.CategoryClaude), 1)
}

func TestRepository_SetActiveMissing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s1 := createSupplier(t, repo, models.CategoryClaude, "s1", true)

	err := repo.SetActive(ctx, 404, true)
	assert.ErrorIs(t, err, ErrSupplierNotFound)
	assert.Equal(t, []uint{s1.ID}, activeIDs(t, repo, models.CategoryClaude))
}

func TestRepository_Deactivate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s1 := createSupplier(t, repo, models.CategoryClaude, "s1", true)
	require.NoError(t, repo.SetActive(ctx, s1.ID, false))

	_, err := repo.FindActive(ctx, models.CategoryClaude)
	assert.ErrorIs(t, err, ErrNoActiveSupplier)
}

func TestRepository_UpdateHealthFields(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s := createSupplier(t, repo, models.CategoryClaude, "s1", false)
	now := time.Now().Truncate(time.Second)

	err := repo.UpdateHealthFields(ctx, s.ID, &health.SupplierHealth{
		SupplierID:          s.ID,
		IsHealthy:           false,
		LastCheckTime:       now,
		ResponseTimeMs:      6000,
		ConsecutiveFailures: 4,
		UptimePercentage:    80,
		TotalRequests:       20,
		FailedRequests:      4,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), found.ResponseTimeMs)
	assert.Equal(t, int64(4), found.ConsecutiveFailures)
	assert.Equal(t, 80.0, found.UptimePercentage)
	assert.Equal(t, int64(20), found.TotalRequests)
	assert.Equal(t, int64(4), found.FailedRequests)
	require.NotNil(t, found.LastCheckTime)
	assert.True(t, now.Equal(*found.LastCheckTime))

	err = repo.UpdateHealthFields(ctx, 9999, &health.SupplierHealth{})
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

func TestRepository_AccumulateHealth(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s := createSupplier(t, repo, models.CategoryClaude, "s1", false)
	now := time.Now().Truncate(time.Second)

	h, err := repo.AccumulateHealth(ctx, s.ID, health.Failed(health.FailureTimeout, "timeout"), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.ConsecutiveFailures)
	assert.Equal(t, health.StatusDegraded, h.Status)

	h, err = repo.AccumulateHealth(ctx, s.ID, health.Succeeded(80), now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), h.ConsecutiveFailures)
	assert.Equal(t, int64(2), h.TotalRequests)
	assert.Equal(t, int64(1), h.FailedRequests)
	assert.InDelta(t, 50.0, h.UptimePercentage, 0.0001)

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, found.IsHealthy)
	assert.Equal(t, int64(80), found.ResponseTimeMs)
	assert.Equal(t, int64(2), found.TotalRequests)
	assert.Equal(t, int64(1), found.FailedRequests)

	_, err = repo.AccumulateHealth(ctx, 9999, health.Succeeded(1), now)
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}

// 多个请求拿着同一份过期的供应商并发检查，累计次数不丢失
func TestRepository_AccumulateHealthConcurrentFileDB(t *testing.T) {
	repo := NewRepository(setupFileDB(t))
	ctx := context.Background()

	s := createSupplier(t, repo, models.CategoryCodex, "busy", true)
	prober := health.ProberFunc(func(context.Context, *models.Supplier) health.ProbeResult {
		return health.Failed(health.FailureConnection, "connection refused")
	})
	agg := health.NewAggregator(prober, repo, 4)

	const checks = 10
	var wg sync.WaitGroup
	for i := 0; i < checks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stale := *s
			_, err := agg.Assess(ctx, &stale)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(checks), found.TotalRequests)
	assert.Equal(t, int64(checks), found.FailedRequests)
	assert.Equal(t, int64(checks), found.ConsecutiveFailures)
	assert.False(t, found.IsHealthy)
}

func TestRepository_UpdateKeepsActivationAndHealth(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s := createSupplier(t, repo, models.CategoryClaude, "s1", true)
	require.NoError(t, repo.UpdateHealthFields(ctx, s.ID, &health.SupplierHealth{IsHealthy: true, TotalRequests: 3, UptimePercentage: 100}))

	// 使用过期的内存对象更新，不应覆盖激活状态和健康字段
	stale := *s
	stale.IsActive = false
	stale.TotalRequests = 0
	stale.SortOrder = 0
	stale.BaseURL = "https://new.example.com"
	require.NoError(t, repo.Update(ctx, &stale))

	found, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://new.example.com", found.BaseURL)
	assert.True(t, found.IsActive)
	assert.Equal(t, int64(3), found.TotalRequests)
}

func TestRepository_DeleteAndNameExists(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	s := createSupplier(t, repo, models.CategoryCodex, "dup", false)

	exists, err := repo.CheckNameExists(ctx, "dup", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CheckNameExists(ctx, "dup", s.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrSupplierNotFound)
}

func TestRepository_CreateBatchRollsBack(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	createSupplier(t, repo, models.CategoryClaude, "taken", false)

	err := repo.CreateBatch(ctx, []*models.Supplier{
		{Category: models.CategoryClaude, Name: "fresh", BaseURL: "https://a.example.com", AuthToken: "x"},
		{Category: models.CategoryClaude, Name: "taken", BaseURL: "https://b.example.com", AuthToken: "y"},
	})
	require.Error(t, err)

	_, err = repo.FindByName(ctx, "fresh")
	assert.ErrorIs(t, err, ErrSupplierNotFound)
}
