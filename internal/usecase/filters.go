package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
)

// Filters is the merged filter document of one report request: the
// definition's default_filters overlaid with the caller's overrides.
type Filters map[string]interface{}

// String returns the filter as a trimmed string, "" when absent.
func (f Filters) String(key string) string {
	value, ok := f[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		// JSON numbers decode as float64; render integers without a
		// fractional part.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Bool returns the filter as a boolean. Strings "true" and "1" count.
func (f Filters) Bool(key string) bool {
	value, ok := f[key]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		lowered := strings.ToLower(strings.TrimSpace(v))
		return lowered == "true" || lowered == "1"
	default:
		return false
	}
}

// List normalizes a filter that may arrive as a JSON array, a
// comma-separated string, or a bare scalar into a list of trimmed
// non-empty strings. Absent filters yield an empty list.
func (f Filters) List(key string) []string {
	value, ok := f[key]
	if !ok || value == nil {
		return []string{}
	}

	appendTrimmed := func(items []string, raw string) []string {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			items = append(items, trimmed)
		}
		return items
	}

	items := []string{}
	switch v := value.(type) {
	case []string:
		for _, item := range v {
			items = appendTrimmed(items, item)
		}
	case []interface{}:
		for _, item := range v {
			if item == nil {
				continue
			}
			items = appendTrimmed(items, fmt.Sprint(item))
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			items = appendTrimmed(items, part)
		}
	default:
		items = appendTrimmed(items, fmt.Sprint(v))
	}
	return items
}

// Int returns the filter as an int, falling back to def when the value
// is absent or does not parse.
func (f Filters) Int(key string, def int) int {
	value, ok := f[key]
	if !ok || value == nil {
		return def
	}
	switch v := value.(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// validMonths are the lookback windows the UI offers.
var validMonths = map[int]bool{1: true, 2: true, 3: true, 4: true, 6: true, 9: true}

// Months reads the months filter, silently falling back to def for
// values outside the supported set.
func (f Filters) Months(def int) int {
	months := f.Int("months", def)
	if !validMonths[months] {
		return def
	}
	return months
}

// Require returns the filter's string value or ErrMissingFilter.
func (f Filters) Require(key string) (string, error) {
	value := f.String(key)
	if value == "" {
		return "", domainerrors.MissingFilter(key)
	}
	return value, nil
}

// Clock abstracts wall time for window derivation.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// windowStart derives the lookback start for a months filter. Months
// are approximated as 30-day blocks.
func windowStart(clock Clock, months int) time.Time {
	return clock.Now().AddDate(0, 0, -months*30)
}

// monthLabels enumerates YYYY-MM labels from the month of start through
// the month of end inclusive, for zero-filling monthly datasets.
func monthLabels(start, end time.Time) []string {
	labels := []string{}
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(last) {
		labels = append(labels, cursor.Format("2006-01"))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return labels
}

// statusPriority orders workflow status names by how early they sit in
// the delivery flow. Unknown names sort last.
func statusPriority(statusName string) int {
	switch {
	case statusName == "In Progress":
		return 1
	case strings.Contains(statusName, "Review"):
		return 2
	case strings.Contains(statusName, "QA"):
		return 3
	case strings.Contains(statusName, "Approved"):
		return 4
	default:
		return 99
	}
}
