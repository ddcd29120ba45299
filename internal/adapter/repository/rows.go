package repository

import (
	"strings"
	"time"

	"github.com/sparksai/insight-server/internal/domain/entity"
)

// formatRowDates rewrites every time-typed value in the rows to a
// YYYY-MM-DD string so view-backed payloads serialize uniformly.
func formatRowDates(rows []entity.Row) []entity.Row {
	for _, row := range rows {
		for key, value := range row {
			if t, ok := value.(time.Time); ok {
				row[key] = t.Format("2006-01-02")
			}
		}
	}
	return rows
}

// splitKeyList normalizes an issue-key column that may arrive as a
// comma-separated string into a list of trimmed keys.
func splitKeyList(value interface{}) interface{} {
	switch v := value.(type) {
	case []string:
		return v
	case string:
		parts := []string{}
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		return parts
	default:
		return value
	}
}
