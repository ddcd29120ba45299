package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sparksai/insight-server/internal/config"
	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
)

// MockReportDefinitionRepository is a mock implementation of ReportDefinitionRepository
type MockReportDefinitionRepository struct {
	mock.Mock
}

func (m *MockReportDefinitionRepository) GetAll(ctx context.Context) ([]entity.ReportDefinitionView, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.ReportDefinitionView), args.Error(1)
}

func (m *MockReportDefinitionRepository) GetByID(ctx context.Context, reportID string) (*entity.ReportDefinitionView, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ReportDefinitionView), args.Error(1)
}

func testCacheTTLs() config.CacheConfig {
	return config.CacheConfig{
		HierarchyTTL:  15 * time.Minute,
		RealtimeTTL:   time.Minute,
		AggregateTTL:  5 * time.Minute,
		HistoricalTTL: 30 * time.Minute,
	}
}

func TestReportCacheKey_Deterministic(t *testing.T) {
	a := reportCacheKey("team_closed_sprints", map[string]interface{}{
		"team_name": "Platform",
		"months":    float64(3),
	})
	b := reportCacheKey("team_closed_sprints", map[string]interface{}{
		"months":    float64(3),
		"team_name": "Platform",
	})
	assert.Equal(t, a, b)
	assert.Contains(t, a, "report:team_closed_sprints:")

	c := reportCacheKey("team_closed_sprints", map[string]interface{}{
		"team_name": "Mobile",
		"months":    float64(3),
	})
	assert.NotEqual(t, a, c)
}

func TestReportService_ReportTTL(t *testing.T) {
	service := NewReportService(nil, nil, nil, nil, testCacheTTLs(), zap.NewNop())

	assert.Equal(t, time.Minute, service.reportTTL("team_current_sprint_progress"))
	assert.Equal(t, time.Minute, service.reportTTL("pi_wip_overview"))
	assert.Equal(t, 5*time.Minute, service.reportTTL("team_sprint_burndown"))
	assert.Equal(t, 5*time.Minute, service.reportTTL("team_issues_trend"))
	assert.Equal(t, 30*time.Minute, service.reportTTL("team_closed_sprints"))
	assert.Equal(t, 30*time.Minute, service.reportTTL("pi_metrics_summary"))
	assert.Equal(t, 5*time.Minute, service.reportTTL("issues_bugs_by_team"))
}

func TestNormalizeFilterValue(t *testing.T) {
	assert.Nil(t, normalizeFilterValue(nil))
	assert.Nil(t, normalizeFilterValue("   "))
	assert.Equal(t, "Platform", normalizeFilterValue("  Platform "))
	assert.Equal(t, []interface{}{"a", "b"}, normalizeFilterValue([]interface{}{" a ", nil, "", "b"}))
	assert.Equal(t, []interface{}{"a"}, normalizeFilterValue([]string{" a ", " "}))
	assert.Equal(t, float64(3), normalizeFilterValue(float64(3)))
}

func TestMergeFilters(t *testing.T) {
	defaults := map[string]interface{}{
		"team_name":  "Platform",
		"issue_type": "Bug",
		"months":     float64(3),
	}
	overrides := map[string]interface{}{
		"team_name": "  Mobile ",
		// A blank override still wins, blanking out the default.
		"issue_type": "   ",
		"isGroup":    true,
	}

	merged := mergeFilters(defaults, overrides)
	assert.Equal(t, "Mobile", merged["team_name"])
	assert.Nil(t, merged["issue_type"])
	assert.Equal(t, float64(3), merged["months"])
	assert.Equal(t, true, merged["isGroup"])
}

func TestValidateRequiredFilters(t *testing.T) {
	definition := &entity.ReportDefinitionView{
		MetaSchema: map[string]interface{}{
			"required_filters": []interface{}{"team_name", "sprint_name"},
		},
	}

	err := validateRequiredFilters(definition, map[string]interface{}{
		"team_name":   "Platform",
		"sprint_name": "Sprint 42",
	})
	assert.NoError(t, err)

	err = validateRequiredFilters(definition, map[string]interface{}{
		"team_name":   "  ",
		"sprint_name": nil,
	})
	assert.ErrorIs(t, err, domainerrors.ErrMissingFilter)
	assert.Contains(t, err.Error(), "team_name, sprint_name")

	// No required_filters declared means nothing to enforce.
	assert.NoError(t, validateRequiredFilters(&entity.ReportDefinitionView{
		MetaSchema: map[string]interface{}{},
	}, map[string]interface{}{}))
}

func TestReportService_GetReportInstance(t *testing.T) {
	ctx := context.Background()

	definition := &entity.ReportDefinitionView{
		ReportID:   "team_closed_sprints",
		ReportName: "Closed Sprints",
		ChartType:  "bar",
		DataSource: "team_closed_sprints",
		DefaultFilters: map[string]interface{}{
			"months": float64(3),
		},
		MetaSchema: map[string]interface{}{},
	}

	t.Run("resolves, caches, and serves the second call from cache", func(t *testing.T) {
		definitions := new(MockReportDefinitionRepository)
		definitions.On("GetByID", ctx, "team_closed_sprints").Return(definition, nil)

		resolved := 0
		registry := NewReportRegistry()
		registry.Register("team_closed_sprints", func(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
			resolved++
			return &entity.ReportResult{
				Data: []entity.Row{{"sprint_name": "Sprint 41"}},
				Meta: map[string]interface{}{"months": filters.Months(3)},
			}, nil
		})

		cache := newFakeCacheStore()
		service := NewReportService(definitions, registry, cache, cache, testCacheTTLs(), zap.NewNop())

		instance, err := service.GetReportInstance(ctx, "team_closed_sprints", map[string]interface{}{"team_name": "Platform"})
		assert.NoError(t, err)
		assert.Equal(t, "team_closed_sprints", instance.Definition.ReportID)
		assert.Equal(t, "Platform", instance.Filters["team_name"])
		assert.Equal(t, 1, resolved)
		assert.Equal(t, 1, cache.sets)

		again, err := service.GetReportInstance(ctx, "team_closed_sprints", map[string]interface{}{"team_name": "Platform"})
		assert.NoError(t, err)
		assert.Equal(t, instance.Definition, again.Definition)
		assert.Equal(t, 1, resolved)

		// Different filters miss the cache and resolve again.
		_, err = service.GetReportInstance(ctx, "team_closed_sprints", map[string]interface{}{"team_name": "Mobile"})
		assert.NoError(t, err)
		assert.Equal(t, 2, resolved)
	})

	t.Run("unknown report", func(t *testing.T) {
		definitions := new(MockReportDefinitionRepository)
		definitions.On("GetByID", ctx, "nope").Return(nil, nil)

		cache := newFakeCacheStore()
		service := NewReportService(definitions, NewReportRegistry(), cache, cache, testCacheTTLs(), zap.NewNop())

		_, err := service.GetReportInstance(ctx, "nope", nil)
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})

	t.Run("missing required filter", func(t *testing.T) {
		guarded := &entity.ReportDefinitionView{
			ReportID:       "team_current_sprint_progress",
			DataSource:     "team_current_sprint_progress",
			DefaultFilters: map[string]interface{}{},
			MetaSchema: map[string]interface{}{
				"required_filters": []interface{}{"team_name"},
			},
		}
		definitions := new(MockReportDefinitionRepository)
		definitions.On("GetByID", ctx, "team_current_sprint_progress").Return(guarded, nil)

		cache := newFakeCacheStore()
		service := NewReportService(definitions, NewReportRegistry(), cache, cache, testCacheTTLs(), zap.NewNop())

		_, err := service.GetReportInstance(ctx, "team_current_sprint_progress", nil)
		assert.ErrorIs(t, err, domainerrors.ErrMissingFilter)
		assert.Zero(t, cache.sets)
	})
}

func TestReportService_InvalidateReport(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCacheStore()
	cache.entries["report:team_closed_sprints:abc"] = []byte("{}")
	cache.entries["report:team_closed_sprints:def"] = []byte("{}")
	cache.entries["report:pi_burndown:abc"] = []byte("{}")
	cache.entries["groups:all"] = []byte("[]")

	service := NewReportService(nil, nil, cache, cache, testCacheTTLs(), zap.NewNop())

	assert.Equal(t, 2, service.InvalidateReport(ctx, "team_closed_sprints"))
	assert.True(t, cache.Exists(ctx, "report:pi_burndown:abc"))

	// Empty report id drops every report entry but nothing else.
	assert.Equal(t, 1, service.InvalidateReport(ctx, ""))
	assert.True(t, cache.Exists(ctx, "groups:all"))
}
