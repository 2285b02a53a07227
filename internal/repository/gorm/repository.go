package gormrepository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"growthops/internal/models"
	"growthops/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- strategies -------------------------------------------------------------

func (s *Store) GetStrategy(ctx context.Context, tenantID, strategyID uuid.UUID) (*models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Strategy
	err := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ? AND tenant_id = ?", strategyID, tenantID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStrategies(ctx context.Context, params repository.ListStrategiesParams) ([]models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Strategy{}).Where("tenant_id = ?", params.TenantID)
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	var items []models.Strategy
	if err := query.
		Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) IncrementStrategyCompletion(ctx context.Context, tenantID, strategyID uuid.UUID, delta int) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	// Single statement so concurrent runs cannot lose an increment.
	expr := gorm.Expr(
		"CASE WHEN COALESCE(completion_percentage, 0) + ? > 100 THEN 100 "+
			"WHEN COALESCE(completion_percentage, 0) + ? < 0 THEN 0 "+
			"ELSE COALESCE(completion_percentage, 0) + ? END",
		delta, delta, delta,
	)
	res := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ? AND tenant_id = ?", strategyID, tenantID).
		Updates(map[string]any{
			"completion_percentage": expr,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, repository.ErrNotFound
	}
	var row struct {
		CompletionPercentage *int
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Select("completion_percentage").
		Where("id = ? AND tenant_id = ?", strategyID, tenantID).
		Scan(&row).Error; err != nil {
		return 0, err
	}
	if row.CompletionPercentage == nil {
		return 0, nil
	}
	return *row.CompletionPercentage, nil
}

// --- plugins ----------------------------------------------------------------

func (s *Store) ListActivePlugins(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Plugin, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Plugin
	if err := s.db.WithContext(ctx).
		Model(&models.Plugin{}).
		Where("tenant_id = ? AND status = ?", tenantID, models.PluginStatusActive).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	// The order hint lives in jsonb; sorting here keeps the query portable.
	SortByOrderHint(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListPlugins(ctx context.Context, params repository.ListPluginsParams) ([]models.Plugin, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Plugin{}).Where("tenant_id = ?", params.TenantID)
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	var items []models.Plugin
	if err := query.
		Order("name asc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SortByOrderHint orders plugins by metadata.order ascending with missing
// hints last. The sort is stable so ties keep their query order.
func SortByOrderHint(items []models.Plugin) {
	hints := make(map[uuid.UUID]*int, len(items))
	for _, it := range items {
		hints[it.ID] = it.ParsedMetadata().Order
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := hints[items[i].ID], hints[items[j].ID]
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}

// --- executions -------------------------------------------------------------

func (s *Store) CreateExecution(ctx context.Context, item *models.Execution) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == uuid.Nil {
		return errors.New("execution id is required")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) FinalizeExecution(ctx context.Context, id uuid.UUID, update repository.ExecutionUpdate) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"status":         update.Status,
		"execution_time": models.Seconds(update.ExecutionTime),
		"xp_earned":      update.XPEarned,
		"error":          update.Error,
		"updated_at":     time.Now().UTC(),
	}
	if len(update.Output) > 0 {
		updates["output"] = datatypes.JSON(update.Output)
	}
	// Only a pending row can take the terminal write.
	res := s.db.WithContext(ctx).
		Model(&models.Execution{}).
		Where("id = ? AND status = ?", id, models.ExecutionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, tenantID, id uuid.UUID) (*models.Execution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Execution
	err := s.db.WithContext(ctx).
		Model(&models.Execution{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListExecutions(ctx context.Context, params repository.ListExecutionsParams) ([]models.Execution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyExecutionFilters(s.db.WithContext(ctx).Model(&models.Execution{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Execution
	if err := query.
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountExecutions(ctx context.Context, params repository.ListExecutionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := applyExecutionFilters(s.db.WithContext(ctx).Model(&models.Execution{}), params).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListStalePendingExecutions(ctx context.Context, before time.Time, limit int) ([]models.Execution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Execution
	if err := s.db.WithContext(ctx).
		Model(&models.Execution{}).
		Where("status = ?", models.ExecutionStatusPending).
		Where("created_at < ?", before).
		Order("created_at asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertPluginLog(ctx context.Context, item *models.PluginLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPluginLogsByExecution(ctx context.Context, tenantID, executionID uuid.UUID) ([]models.PluginLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PluginLog
	if err := s.db.WithContext(ctx).
		Model(&models.PluginLog{}).
		Where("tenant_id = ? AND execution_id = ?", tenantID, executionID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- system logs ------------------------------------------------------------

func (s *Store) InsertSystemLog(ctx context.Context, item *models.SystemLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSystemLogs(ctx context.Context, params repository.ListSystemLogsParams) ([]models.SystemLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemLog{}).Where("tenant_id = ?", params.TenantID)
	if params.Module != nil && strings.TrimSpace(*params.Module) != "" {
		query = query.Where("module = ?", strings.TrimSpace(*params.Module))
	}
	if params.Event != nil && strings.TrimSpace(*params.Event) != "" {
		query = query.Where("event = ?", strings.TrimSpace(*params.Event))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	var items []models.SystemLog
	if err := query.
		Order("created_at desc").
		Order("id desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySettingsFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	var items []models.SystemSetting
	if err := query.
		Limit(normalizeLimit(params.Limit, 500)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := applySettingsFilters(s.db.WithContext(ctx).Model(&models.SystemSetting{}), params).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- helpers ----------------------------------------------------------------

func applyExecutionFilters(query *gorm.DB, params repository.ListExecutionsParams) *gorm.DB {
	query = query.Where("tenant_id = ?", params.TenantID)
	if params.StrategyID != nil && *params.StrategyID != uuid.Nil {
		query = query.Where("strategy_id = ?", *params.StrategyID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func applySettingsFilters(query *gorm.DB, params repository.ListSystemSettingsParams) *gorm.DB {
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	return query
}

var orderableColumns = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"status":     {},
	"xp_earned":  {},
	"key":        {},
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if _, ok := orderableColumns[column]; !ok {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
