package entity

import (
	"time"

	"gorm.io/datatypes"
)

// ReportDefinition is a row of the report catalog. DefaultFilters and
// MetaSchema are free-form JSON maintained by report authors and are
// decoded defensively at the repository boundary.
type ReportDefinition struct {
	ReportID       string         `gorm:"column:report_id;primaryKey" json:"report_id"`
	ReportName     string         `gorm:"column:report_name" json:"report_name"`
	ChartType      string         `gorm:"column:chart_type" json:"chart_type"`
	DataSource     string         `gorm:"column:data_source" json:"data_source"`
	Description    string         `gorm:"column:description" json:"description"`
	DefaultFilters datatypes.JSON `gorm:"column:default_filters" json:"-"`
	MetaSchema     datatypes.JSON `gorm:"column:meta_schema" json:"-"`
	CreatedAt      time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (ReportDefinition) TableName() string {
	return "report_definitions"
}

// ReportDefinitionView is a report definition with its JSON columns
// decoded. A column that fails to parse decodes to an empty object.
type ReportDefinitionView struct {
	ReportID       string                 `json:"report_id"`
	ReportName     string                 `json:"report_name"`
	ChartType      string                 `json:"chart_type"`
	DataSource     string                 `json:"data_source"`
	Description    string                 `json:"description"`
	DefaultFilters map[string]interface{} `json:"default_filters"`
	MetaSchema     map[string]interface{} `json:"meta_schema"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ReportResult is the resolved payload of one report. Data is a
// resolver-shaped document; Meta echoes every input that shaped the
// query plus "available options" lookups for picker UIs.
type ReportResult struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
