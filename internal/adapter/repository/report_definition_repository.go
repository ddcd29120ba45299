package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sparksai/insight-server/internal/domain/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReportDefinitionRepository handles the report catalog
type ReportDefinitionRepository interface {
	GetAll(ctx context.Context) ([]entity.ReportDefinitionView, error)
	GetByID(ctx context.Context, reportID string) (*entity.ReportDefinitionView, error)
}

type reportDefinitionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewReportDefinitionRepository creates a new report definition repository
func NewReportDefinitionRepository(db *gorm.DB, logger *zap.Logger) ReportDefinitionRepository {
	return &reportDefinitionRepository{
		db:     db,
		logger: logger,
	}
}

// GetAll retrieves all report definitions ordered by name
func (r *reportDefinitionRepository) GetAll(ctx context.Context) ([]entity.ReportDefinitionView, error) {
	var definitions []entity.ReportDefinition

	err := r.db.WithContext(ctx).
		Order("report_name").
		Find(&definitions).Error
	if err != nil {
		r.logger.Error("Failed to get report definitions", zap.Error(err))
		return nil, fmt.Errorf("failed to get report definitions: %w", err)
	}

	views := make([]entity.ReportDefinitionView, 0, len(definitions))
	for i := range definitions {
		views = append(views, r.toView(&definitions[i]))
	}
	return views, nil
}

// GetByID retrieves a single report definition, nil when absent
func (r *reportDefinitionRepository) GetByID(ctx context.Context, reportID string) (*entity.ReportDefinitionView, error) {
	var definition entity.ReportDefinition

	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		First(&definition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get report definition",
			zap.String("report_id", reportID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get report definition: %w", err)
	}

	view := r.toView(&definition)
	return &view, nil
}

func (r *reportDefinitionRepository) toView(definition *entity.ReportDefinition) entity.ReportDefinitionView {
	return entity.ReportDefinitionView{
		ReportID:       definition.ReportID,
		ReportName:     definition.ReportName,
		ChartType:      definition.ChartType,
		DataSource:     definition.DataSource,
		Description:    definition.Description,
		DefaultFilters: r.decodeJSONField(definition.ReportID, "default_filters", definition.DefaultFilters),
		MetaSchema:     r.decodeJSONField(definition.ReportID, "meta_schema", definition.MetaSchema),
		CreatedAt:      definition.CreatedAt,
		UpdatedAt:      definition.UpdatedAt,
	}
}

// decodeJSONField decodes a JSON column defensively. Malformed content
// is logged and replaced with an empty object, never raised.
func (r *reportDefinitionRepository) decodeJSONField(reportID, field string, raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		r.logger.Warn("Failed to parse JSON field",
			zap.String("field", field),
			zap.String("report_id", reportID),
			zap.Error(err))
		return map[string]interface{}{}
	}
	if decoded == nil {
		return map[string]interface{}{}
	}
	return decoded
}
