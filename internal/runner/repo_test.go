package runner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"growthops/internal/models"
	"growthops/internal/repository"
	gormrepository "growthops/internal/repository/gorm"
)

var errInjected = errors.New("injected failure")

// memRepo is an in-memory repository with injectable failures.
type memRepo struct {
	mu sync.Mutex

	strategies map[uuid.UUID]*models.Strategy
	plugins    []models.Plugin
	executions map[uuid.UUID]*models.Execution
	pluginLogs []models.PluginLog
	systemLogs []models.SystemLog

	createFailures   int
	finalizeFailures int
	failPluginFetch  bool
	failPluginLog    bool
	failSystemLog    bool
	failIncrement    bool
	panicIncrement   bool

	createCalls       int
	finalizeCalls     int
	finalizeWrites    int
	pluginFetchCalls  int
	incrementRequests []int
}

func newMemRepo() *memRepo {
	return &memRepo{
		strategies: map[uuid.UUID]*models.Strategy{},
		executions: map[uuid.UUID]*models.Execution{},
	}
}

func (m *memRepo) addStrategy(tenantID uuid.UUID, status string, completion int) *models.Strategy {
	s := &models.Strategy{ID: uuid.New(), TenantID: tenantID, Title: "grow", Status: status, CompletionPercentage: &completion}
	m.strategies[s.ID] = s
	return s
}

func (m *memRepo) addPlugin(tenantID uuid.UUID, name, status string, md map[string]any) models.Plugin {
	raw, _ := json.Marshal(md)
	p := models.Plugin{ID: uuid.New(), TenantID: tenantID, Name: name, Status: status, Metadata: datatypes.JSON(raw)}
	m.plugins = append(m.plugins, p)
	return p
}

func (m *memRepo) GetStrategy(ctx context.Context, tenantID, strategyID uuid.UUID) (*models.Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.strategies[strategyID]
	if !ok || s.TenantID != tenantID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) ListStrategies(ctx context.Context, params repository.ListStrategiesParams) ([]models.Strategy, error) {
	return nil, nil
}

func (m *memRepo) IncrementStrategyCompletion(ctx context.Context, tenantID, strategyID uuid.UUID, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrementRequests = append(m.incrementRequests, delta)
	if m.failIncrement {
		return 0, errInjected
	}
	if m.panicIncrement {
		panic("completion counter corrupted")
	}
	s, ok := m.strategies[strategyID]
	if !ok || s.TenantID != tenantID {
		return 0, repository.ErrNotFound
	}
	v := ClampPercentage(s.Completion() + delta)
	s.CompletionPercentage = &v
	return v, nil
}

func (m *memRepo) ListActivePlugins(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Plugin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pluginFetchCalls++
	if m.failPluginFetch {
		return nil, errInjected
	}
	var out []models.Plugin
	for _, p := range m.plugins {
		if p.TenantID == tenantID && p.Status == models.PluginStatusActive {
			out = append(out, p)
		}
	}
	gormrepository.SortByOrderHint(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) ListPlugins(ctx context.Context, params repository.ListPluginsParams) ([]models.Plugin, error) {
	return nil, nil
}

func (m *memRepo) CreateExecution(ctx context.Context, item *models.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createFailures > 0 {
		m.createFailures--
		return errInjected
	}
	if _, ok := m.executions[item.ID]; ok {
		return nil
	}
	cp := *item
	m.executions[item.ID] = &cp
	return nil
}

func (m *memRepo) FinalizeExecution(ctx context.Context, id uuid.UUID, update repository.ExecutionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalizeCalls++
	if m.finalizeFailures > 0 {
		m.finalizeFailures--
		return errInjected
	}
	e, ok := m.executions[id]
	if !ok || e.Status != models.ExecutionStatusPending {
		return repository.ErrNotFound
	}
	m.finalizeWrites++
	e.Status = update.Status
	if len(update.Output) > 0 {
		e.Output = datatypes.JSON(update.Output)
	}
	e.ExecutionTime = models.Seconds(update.ExecutionTime)
	e.XPEarned = update.XPEarned
	e.Error = update.Error
	return nil
}

func (m *memRepo) GetExecution(ctx context.Context, tenantID, id uuid.UUID) (*models.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) ListExecutions(ctx context.Context, params repository.ListExecutionsParams) ([]models.Execution, error) {
	return nil, nil
}

func (m *memRepo) CountExecutions(ctx context.Context, params repository.ListExecutionsParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.executions)), nil
}

func (m *memRepo) ListStalePendingExecutions(ctx context.Context, before time.Time, limit int) ([]models.Execution, error) {
	return nil, nil
}

func (m *memRepo) InsertPluginLog(ctx context.Context, item *models.PluginLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPluginLog {
		return errInjected
	}
	m.pluginLogs = append(m.pluginLogs, *item)
	return nil
}

func (m *memRepo) ListPluginLogsByExecution(ctx context.Context, tenantID, executionID uuid.UUID) ([]models.PluginLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PluginLog
	for _, l := range m.pluginLogs {
		if l.TenantID == tenantID && l.ExecutionID == executionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) InsertSystemLog(ctx context.Context, item *models.SystemLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSystemLog {
		return errInjected
	}
	m.systemLogs = append(m.systemLogs, *item)
	return nil
}

func (m *memRepo) ListSystemLogs(ctx context.Context, params repository.ListSystemLogsParams) ([]models.SystemLog, error) {
	return nil, nil
}

func (m *memRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	return nil
}

func (m *memRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	return nil, nil
}

func (m *memRepo) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	return nil, nil
}

func (m *memRepo) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	return 0, nil
}

func (m *memRepo) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.systemLogs))
	for _, l := range m.systemLogs {
		out = append(out, l.Event)
	}
	return out
}
