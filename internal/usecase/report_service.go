package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sparksai/insight-server/internal/adapter/repository"
	"github.com/sparksai/insight-server/internal/config"
	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
	domainrepo "github.com/sparksai/insight-server/internal/domain/repository"
	"go.uber.org/zap"
)

// ReportDefinitionSummary is the catalog view of one report definition.
type ReportDefinitionSummary struct {
	ReportID       string                 `json:"report_id"`
	ReportName     string                 `json:"report_name"`
	ChartType      string                 `json:"chart_type"`
	Description    string                 `json:"description"`
	DataSource     string                 `json:"data_source"`
	DefaultFilters map[string]interface{} `json:"default_filters"`
	MetaSchema     map[string]interface{} `json:"meta_schema"`
}

// ReportInstance is one resolved report: the definition, the effective
// filters, and the resolver's payload.
type ReportInstance struct {
	Definition ReportDefinitionSummary `json:"definition"`
	Filters    map[string]interface{}  `json:"filters"`
	Result     interface{}             `json:"result"`
	Meta       map[string]interface{}  `json:"meta"`
}

// ReportService resolves reports end to end: definition lookup, filter
// merging, registry dispatch, and response caching.
type ReportService struct {
	definitions repository.ReportDefinitionRepository
	registry    *ReportRegistry
	cache       domainrepo.CacheStore
	invalidator domainrepo.PatternInvalidator
	ttls        config.CacheConfig
	logger      *zap.Logger
}

// NewReportService creates a new report service
func NewReportService(
	definitions repository.ReportDefinitionRepository,
	registry *ReportRegistry,
	cache domainrepo.CacheStore,
	invalidator domainrepo.PatternInvalidator,
	ttls config.CacheConfig,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		definitions: definitions,
		registry:    registry,
		cache:       cache,
		invalidator: invalidator,
		ttls:        ttls,
		logger:      logger,
	}
}

// ListReports returns the report catalog
func (s *ReportService) ListReports(ctx context.Context) ([]ReportDefinitionSummary, error) {
	definitions, err := s.definitions.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]ReportDefinitionSummary, 0, len(definitions))
	for i := range definitions {
		summaries = append(summaries, toSummary(&definitions[i]))
	}
	return summaries, nil
}

// DataSources lists the data source names resolvers exist for
func (s *ReportService) DataSources() []string {
	return s.registry.DataSources()
}

// GetReportInstance resolves one report with the caller's filter
// overrides merged over the definition's defaults.
func (s *ReportService) GetReportInstance(ctx context.Context, reportID string, overrides map[string]interface{}) (*ReportInstance, error) {
	definition, err := s.definitions.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if definition == nil {
		return nil, domainerrors.NotFound(fmt.Sprintf("report '%s'", reportID))
	}

	merged := mergeFilters(definition.DefaultFilters, overrides)
	if err := validateRequiredFilters(definition, merged); err != nil {
		return nil, err
	}

	cacheKey := reportCacheKey(reportID, merged)
	if payload, ok := s.cache.Get(ctx, cacheKey); ok {
		var instance ReportInstance
		if err := json.Unmarshal(payload, &instance); err == nil {
			s.logger.Debug("Report cache hit",
				zap.String("report_id", reportID),
				zap.String("cache_key", cacheKey))
			return &instance, nil
		}
		s.logger.Warn("Discarding undecodable cached report", zap.String("cache_key", cacheKey))
	}

	result, err := s.registry.Resolve(ctx, definition.DataSource, Filters(merged))
	if err != nil {
		return nil, err
	}

	instance := &ReportInstance{
		Definition: toSummary(definition),
		Filters:    merged,
		Result:     result.Data,
		Meta:       result.Meta,
	}

	if payload, err := json.Marshal(instance); err == nil {
		ttl := s.reportTTL(reportID)
		s.cache.SetWithTTL(ctx, cacheKey, payload, ttl)
		s.logger.Debug("Report cached",
			zap.String("report_id", reportID),
			zap.String("cache_key", cacheKey),
			zap.Duration("ttl", ttl))
	} else {
		s.logger.Warn("Failed to encode report for caching",
			zap.String("report_id", reportID),
			zap.Error(err))
	}

	return instance, nil
}

// InvalidateReport drops cached payloads for one report, or every
// report when reportID is empty. Returns the number of entries removed.
func (s *ReportService) InvalidateReport(ctx context.Context, reportID string) int {
	pattern := "report:*"
	if reportID != "" {
		pattern = fmt.Sprintf("report:%s:*", reportID)
	}
	deleted := s.invalidator.DeleteByPattern(ctx, pattern)
	s.logger.Info("Invalidated report cache",
		zap.String("pattern", pattern),
		zap.Int("deleted", deleted))
	return deleted
}

// reportTTL tiers cache lifetime by how fast a report's data moves.
func (s *ReportService) reportTTL(reportID string) time.Duration {
	switch {
	case containsAny(reportID, "current", "progress", "wip"):
		return s.ttls.RealtimeTTL
	case containsAny(reportID, "burndown", "trend", "predictability"):
		return s.ttls.AggregateTTL
	case containsAny(reportID, "closed", "historical", "summary"):
		return s.ttls.HistoricalTTL
	default:
		return s.ttls.AggregateTTL
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// reportCacheKey derives a deterministic key from the report and its
// effective filters. encoding/json emits map keys sorted, so equal
// filter sets hash equally regardless of arrival order.
func reportCacheKey(reportID string, filters map[string]interface{}) string {
	encoded, err := json.Marshal(filters)
	if err != nil {
		encoded = []byte("{}")
	}
	sum := md5.Sum([]byte(reportID + ":" + string(encoded)))
	return fmt.Sprintf("report:%s:%x", reportID, sum)
}

// normalizeFilterValue trims strings and collapses blank values to nil
// so "absent" and "empty" behave identically downstream.
func normalizeFilterValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		return trimmed
	case []interface{}:
		normalized := []interface{}{}
		for _, item := range v {
			if item == nil {
				continue
			}
			if s, ok := item.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					normalized = append(normalized, trimmed)
				}
				continue
			}
			normalized = append(normalized, item)
		}
		return normalized
	case []string:
		normalized := []interface{}{}
		for _, item := range v {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				normalized = append(normalized, trimmed)
			}
		}
		return normalized
	default:
		return value
	}
}

// mergeFilters overlays normalized overrides on the definition's
// defaults. An override explicitly normalized to nil still wins, which
// lets a caller blank out a default.
func mergeFilters(defaults, overrides map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = normalizeFilterValue(value)
	}
	return merged
}

// validateRequiredFilters enforces the definition's meta_schema
// required_filters list against the merged document.
func validateRequiredFilters(definition *entity.ReportDefinitionView, filters map[string]interface{}) error {
	required, ok := definition.MetaSchema["required_filters"].([]interface{})
	if !ok {
		return nil
	}

	missing := []string{}
	for _, entry := range required {
		key, ok := entry.(string)
		if !ok {
			continue
		}
		value := filters[key]
		if value == nil {
			missing = append(missing, key)
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return domainerrors.MissingFilter(strings.Join(missing, ", "))
	}
	return nil
}

func toSummary(definition *entity.ReportDefinitionView) ReportDefinitionSummary {
	return ReportDefinitionSummary{
		ReportID:       definition.ReportID,
		ReportName:     definition.ReportName,
		ChartType:      definition.ChartType,
		Description:    definition.Description,
		DataSource:     definition.DataSource,
		DefaultFilters: definition.DefaultFilters,
		MetaSchema:     definition.MetaSchema,
	}
}
