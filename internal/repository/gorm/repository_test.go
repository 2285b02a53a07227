package gormrepository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"growthops/internal/db/dbtest"
	"growthops/internal/models"
	"growthops/internal/repository"
)

func newStore(t *testing.T) *Store {
	return New(dbtest.Open(t).Gorm)
}

func intPtr(v int) *int { return &v }

func seedStrategy(t *testing.T, s *Store, tenantID uuid.UUID, completion *int) models.Strategy {
	t.Helper()
	item := models.Strategy{ID: uuid.New(), TenantID: tenantID, Title: "launch", Status: models.StrategyStatusApproved, CompletionPercentage: completion}
	require.NoError(t, s.db.Create(&item).Error)
	return item
}

func seedPlugin(t *testing.T, s *Store, tenantID uuid.UUID, name, status string, order *int) models.Plugin {
	t.Helper()
	md := map[string]any{}
	if order != nil {
		md["order"] = *order
	}
	raw, _ := json.Marshal(md)
	item := models.Plugin{ID: uuid.New(), TenantID: tenantID, Name: name, Status: status, Metadata: datatypes.JSON(raw)}
	require.NoError(t, s.db.Create(&item).Error)
	return item
}

func TestGetStrategy_TenantScoped(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tenant := uuid.New()
	st := seedStrategy(t, s, tenant, intPtr(10))

	got, err := s.GetStrategy(ctx, tenant, st.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "launch", got.Title)
	assert.Equal(t, 10, got.Completion())

	got, err = s.GetStrategy(ctx, uuid.New(), st.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIncrementStrategyCompletion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tenant := uuid.New()
	st := seedStrategy(t, s, tenant, intPtr(95))

	v, err := s.IncrementStrategyCompletion(ctx, tenant, st.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	v, err = s.IncrementStrategyCompletion(ctx, tenant, st.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, v)

	fresh := seedStrategy(t, s, tenant, intPtr(0))
	require.NoError(t, s.db.Model(&models.Strategy{}).Where("id = ?", fresh.ID).Update("completion_percentage", nil).Error)
	v, err = s.IncrementStrategyCompletion(ctx, tenant, fresh.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = s.IncrementStrategyCompletion(ctx, uuid.New(), st.ID, 25)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListActivePlugins_OrderAndCap(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tenant := uuid.New()

	noHint := seedPlugin(t, s, tenant, "no-hint", models.PluginStatusActive, nil)
	second := seedPlugin(t, s, tenant, "second", models.PluginStatusActive, intPtr(2))
	first := seedPlugin(t, s, tenant, "first", models.PluginStatusActive, intPtr(1))
	seedPlugin(t, s, tenant, "off", models.PluginStatusInactive, intPtr(0))
	seedPlugin(t, s, uuid.New(), "foreign", models.PluginStatusActive, intPtr(0))

	items, err := s.ListActivePlugins(ctx, tenant, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, noHint.ID}, []uuid.UUID{items[0].ID, items[1].ID, items[2].ID})

	items, err = s.ListActivePlugins(ctx, tenant, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func newExecution(tenant, strategy uuid.UUID) *models.Execution {
	return &models.Execution{
		ID:         uuid.New(),
		TenantID:   tenant,
		StrategyID: strategy,
		Type:       models.ExecutionTypeStrategy,
		Status:     models.ExecutionStatusPending,
		Input:      datatypes.JSON(`{"dry_run":true}`),
	}
}

func TestExecutionLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tenant, strategy := uuid.New(), uuid.New()
	item := newExecution(tenant, strategy)

	require.NoError(t, s.CreateExecution(ctx, item))
	// A retried insert is a no-op.
	dup := *item
	require.NoError(t, s.CreateExecution(ctx, &dup))

	total, err := s.CountExecutions(ctx, repository.ListExecutionsParams{TenantID: tenant})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	update := repository.ExecutionUpdate{
		Status:        models.ExecutionStatusPartial,
		Output:        []byte(`{"plugins":[]}`),
		ExecutionTime: 1234 * time.Millisecond,
		XPEarned:      10,
	}
	require.NoError(t, s.FinalizeExecution(ctx, item.ID, update))
	// Only one terminal write lands.
	assert.ErrorIs(t, s.FinalizeExecution(ctx, item.ID, update), repository.ErrNotFound)

	got, err := s.GetExecution(ctx, tenant, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ExecutionStatusPartial, got.Status)
	assert.Equal(t, 10, got.XPEarned)
	assert.Equal(t, "1.234", got.ExecutionTime.StringFixed(3))
	assert.JSONEq(t, `{"plugins":[]}`, string(got.Output))
	assert.Nil(t, got.Error)

	missing, err := s.GetExecution(ctx, uuid.New(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, s.CreateExecution(ctx, &models.Execution{}))
}

func TestListExecutions_Filters(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tenant, strategyA, strategyB := uuid.New(), uuid.New(), uuid.New()

	for _, sid := range []uuid.UUID{strategyA, strategyA, strategyB} {
		require.NoError(t, s.CreateExecution(ctx, newExecution(tenant, sid)))
	}
	require.NoError(t, s.CreateExecution(ctx, newExecution(uuid.New(), strategyA)))

	items, err := s.ListExecutions(ctx, repository.ListExecutionsParams{TenantID: tenant, StrategyID: &strategyA})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	status := models.ExecutionStatusSuccess
	total, err := s.CountExecutions(ctx, repository.ListExecutionsParams{TenantID: tenant, Status: &status})
	require.NoError(t, err)
	assert.Zero(t, total)

	items, err = s.ListExecutions(ctx, repository.ListExecutionsParams{TenantID: tenant, Limit: 1, OrderBy: "id; drop table executions"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListStalePendingExecutions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tenant := uuid.New()

	old := newExecution(tenant, uuid.New())
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateExecution(ctx, old))

	done := newExecution(tenant, uuid.New())
	done.Status = models.ExecutionStatusSuccess
	done.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateExecution(ctx, done))

	require.NoError(t, s.CreateExecution(ctx, newExecution(tenant, uuid.New())))

	items, err := s.ListStalePendingExecutions(ctx, time.Now().UTC().Add(-15*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, old.ID, items[0].ID)
}

func TestPluginAndSystemLogs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tenant, exec := uuid.New(), uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, s.InsertPluginLog(ctx, &models.PluginLog{
			PluginID:    uuid.New(),
			StrategyID:  uuid.New(),
			TenantID:    tenant,
			ExecutionID: exec,
			Status:      models.PluginLogStatusSuccess,
			XPEarned:    10,
		}))
	}
	logs, err := s.ListPluginLogsByExecution(ctx, tenant, exec)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = s.ListPluginLogsByExecution(ctx, uuid.New(), exec)
	require.NoError(t, err)
	assert.Empty(t, logs)

	require.NoError(t, s.InsertSystemLog(ctx, &models.SystemLog{TenantID: tenant, Module: models.SystemLogModuleStrategy, Event: models.EventStrategyExecuted, Context: datatypes.JSON(`{}`)}))
	require.NoError(t, s.InsertSystemLog(ctx, &models.SystemLog{TenantID: tenant, Module: models.SystemLogModuleStrategy, Event: models.EventStrategyExecutionFailed, Context: datatypes.JSON(`{}`)}))

	event := models.EventStrategyExecuted
	sys, err := s.ListSystemLogs(ctx, repository.ListSystemLogsParams{TenantID: tenant, Event: &event})
	require.NoError(t, err)
	require.Len(t, sys, 1)
	assert.Equal(t, models.EventStrategyExecuted, sys[0].Event)
}

func TestSystemSettingsUpsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.x", Value: datatypes.JSON(`true`)}))
	require.NoError(t, s.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.x", Value: datatypes.JSON(`false`)}))

	got, err := s.GetSystemSettingByKey(ctx, "feature.x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `false`, string(got.Value))

	prefix := "feature."
	total, err := s.CountSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: &prefix})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	missing, err := s.GetSystemSettingByKey(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	got, err := s.GetStrategy(context.Background(), uuid.New(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
}
