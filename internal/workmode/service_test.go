package workmode

import (
	"context"
	"testing"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/config"
	"github.com/Mieluoxxx/AITools-Switch/internal/db"
	"github.com/Mieluoxxx/AITools-Switch/internal/failover"
	"github.com/Mieluoxxx/AITools-Switch/internal/health"
	"github.com/Mieluoxxx/AITools-Switch/internal/history"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/Mieluoxxx/AITools-Switch/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc       *Service
	suppliers *supplier.Repository
	templates *template.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.InitDatabase(&config.DatabaseConfig{Path: ":memory:", MaxIdleConns: 1, ConnMaxLifetime: time.Hour, LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))

	suppliers := supplier.NewRepository(database)
	prober := health.ProberFunc(func(context.Context, *models.Supplier) health.ProbeResult {
		return health.Succeeded(50)
	})
	backups := history.NewService(history.NewRepository(database), suppliers)
	orch := failover.NewOrchestrator(suppliers, failover.NewConfigRepository(database),
		health.NewAggregator(prober, suppliers, 1), failover.WithBackupHook(backups))
	templates := template.NewService(template.NewRepository(database))

	return &testEnv{
		svc:       NewService(NewRepository(database), suppliers, orch, templates),
		suppliers: suppliers,
		templates: templates,
	}
}

func (e *testEnv) addSupplier(t *testing.T, category models.Category, name string) *models.Supplier {
	t.Helper()
	s := &models.Supplier{Category: category, Name: name, BaseURL: "https://" + name, AuthToken: "sk"}
	require.NoError(t, e.suppliers.Create(context.Background(), s))
	return s
}

func (e *testEnv) templateID(t *testing.T, name string) uint {
	t.Helper()
	list, err := e.templates.List(context.Background(), template.Filter{})
	require.NoError(t, err)
	for _, tmpl := range list {
		if tmpl.Name == name {
			return tmpl.ID
		}
	}
	t.Fatalf("template %s not found", name)
	return 0
}

func TestService_StatusDefaults(t *testing.T) {
	env := setup(t)

	status, err := env.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ModeClaudeOnly, status.CurrentMode)
	assert.False(t, status.IsTransitioning)
	assert.Nil(t, status.LastSwitchTime)
	assert.Nil(t, status.ActiveClaudeSupplier)
	assert.Nil(t, status.ActiveCodexSupplier)
	assert.Empty(t, status.ActiveMcpTemplates)

	modes, err := env.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, modes, 3)
}

func TestService_Switch(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	claude := env.addSupplier(t, models.CategoryClaude, "anthropic")
	codex := env.addSupplier(t, models.CategoryCodex, "openai")
	fetch := env.templateID(t, "fetch")

	result, err := env.svc.Switch(ctx, SwitchRequest{
		TargetMode:       string(models.ModeClaudeCodex),
		ClaudeSupplierID: &claude.ID,
		CodexSupplierID:  &codex.ID,
		McpTemplateIDs:   []uint{fetch},
		CreateBackup:     true,
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)
	assert.Equal(t, []string{stepValidateSuppliers, stepValidateTemplates, stepActivate, stepSave}, result.StepsCompleted)
	assert.Len(t, result.BackupIDs, 2)
	assert.NotNil(t, result.AppliedAt)

	status, err := env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ModeClaudeCodex, status.CurrentMode)
	require.NotNil(t, status.ActiveClaudeSupplier)
	assert.Equal(t, "anthropic", *status.ActiveClaudeSupplier)
	require.NotNil(t, status.ActiveCodexSupplier)
	assert.Equal(t, "openai", *status.ActiveCodexSupplier)
	assert.Equal(t, []string{"fetch"}, status.ActiveMcpTemplates)
	assert.NotNil(t, status.LastSwitchTime)

	cfg, err := env.svc.Get(ctx, string(models.ModeClaudeCodex))
	require.NoError(t, err)
	require.NotNil(t, cfg.ActiveClaudeSupplierID)
	assert.Equal(t, claude.ID, *cfg.ActiveClaudeSupplierID)
	assert.Equal(t, []uint{fetch}, []uint(cfg.McpTemplateIDs))

	// 再次切换到已激活的供应商不会重复激活
	again, err := env.svc.Switch(ctx, SwitchRequest{
		TargetMode:       string(models.ModeClaudeOnly),
		ClaudeSupplierID: &claude.ID,
		CreateBackup:     true,
	})
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.Empty(t, again.BackupIDs)

	status, err = env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ModeClaudeOnly, status.CurrentMode)
}

func TestService_SwitchValidation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	claude := env.addSupplier(t, models.CategoryClaude, "anthropic")
	missing := uint(9999)

	_, err := env.svc.Switch(ctx, SwitchRequest{TargetMode: "gemini_only"})
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = env.svc.Switch(ctx, SwitchRequest{TargetMode: "claude_only", ClaudeSupplierID: &missing})
	assert.ErrorIs(t, err, supplier.ErrSupplierNotFound)

	_, err = env.svc.Switch(ctx, SwitchRequest{TargetMode: "codex_only", CodexSupplierID: &claude.ID})
	assert.ErrorIs(t, err, ErrSupplierMismatch)

	_, err = env.svc.Switch(ctx, SwitchRequest{TargetMode: "claude_only", ClaudeSupplierID: &claude.ID, McpTemplateIDs: []uint{missing}})
	assert.ErrorIs(t, err, template.ErrTemplateNotFound)

	_, err = env.suppliers.FindActive(ctx, models.CategoryClaude)
	assert.ErrorIs(t, err, supplier.ErrNoActiveSupplier, "校验失败不应激活任何供应商")

	status, err := env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, status.LastSwitchTime)

	_, err = env.svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestService_StatusIgnoresDeletedTemplates(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	created, err := env.templates.Create(ctx, template.CreateTemplateRequest{
		Name:          "temp",
		AIType:        "claude",
		PlatformType:  "unix",
		ConfigContent: `{"mcpServers":{}}`,
	})
	require.NoError(t, err)

	_, err = env.svc.Switch(ctx, SwitchRequest{TargetMode: "claude_only", McpTemplateIDs: []uint{created.ID}})
	require.NoError(t, err)
	require.NoError(t, env.templates.Delete(ctx, created.ID))

	status, err := env.svc.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.ActiveMcpTemplates)

	states, err := env.svc.AppStates(ctx)
	require.NoError(t, err)
	keys := make([]string, 0, len(states))
	for _, s := range states {
		keys = append(keys, s.Key)
	}
	assert.Contains(t, keys, models.AppStateCurrentWorkMode)
	assert.Contains(t, keys, appStateLastSwitch)
}
