package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sparksai/insight-server/internal/usecase"
	"go.uber.org/zap"
)

type ReportHandler struct {
	logger  *zap.Logger
	reports *usecase.ReportService
}

func NewReportHandler(logger *zap.Logger, reports *usecase.ReportService) *ReportHandler {
	return &ReportHandler{
		logger:  logger,
		reports: reports,
	}
}

// ListReports returns the report catalog
func (h *ReportHandler) ListReports(c echo.Context) error {
	summaries, err := h.reports.ListReports(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    summaries,
		"count":   len(summaries),
		"message": fmt.Sprintf("Retrieved %d report definitions", len(summaries)),
	})
}

// GetReportInstance resolves one report with query-string filter
// overrides merged over the definition's defaults.
func (h *ReportHandler) GetReportInstance(c echo.Context) error {
	reportID := c.Param("report_id")

	overrides := buildFilterOverrides(c.QueryParams())
	instance, err := h.reports.GetReportInstance(c.Request().Context(), reportID, overrides)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    instance,
		"message": fmt.Sprintf("Retrieved report '%s'", reportID),
	})
}

// InvalidateReportCache drops cached report payloads, either for one
// report_id or for all reports.
func (h *ReportHandler) InvalidateReportCache(c echo.Context) error {
	reportID := strings.TrimSpace(c.QueryParam("report_id"))
	deleted := h.reports.InvalidateReport(c.Request().Context(), reportID)

	scope := "all reports"
	if reportID != "" {
		scope = fmt.Sprintf("report '%s'", reportID)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"deleted": deleted},
		"message": fmt.Sprintf("Invalidated %d cache entries for %s", deleted, scope),
	})
}

// buildFilterOverrides turns raw query parameters into the filter
// override document. isGroup binds as a boolean; quarter/pi_name fold
// into their plural aliases; repeated or comma-separated values become
// lists, single values stay scalars.
func buildFilterOverrides(params url.Values) map[string]interface{} {
	overrides := map[string]interface{}{}
	raw := map[string][]string{}

	for key, values := range params {
		if strings.EqualFold(key, "isgroup") {
			if len(values) > 0 {
				if parsed, err := strconv.ParseBool(strings.TrimSpace(values[0])); err == nil {
					overrides["isGroup"] = parsed
				}
			}
			continue
		}
		raw[key] = values
	}

	assignMulti := func(target string, sources ...string) {
		collected := []string{}
		for _, source := range sources {
			collected = append(collected, raw[source]...)
			delete(raw, source)
		}
		if normalized := splitMultiValues(collected); len(normalized) > 0 {
			overrides[target] = normalized
		}
	}
	assignMulti("quarters", "quarters", "quarter")
	assignMulti("pi_names", "pi_names", "pi_name")

	for key, values := range raw {
		normalized := splitMultiValues(values)
		switch len(normalized) {
		case 0:
			continue
		case 1:
			overrides[key] = normalized[0]
		default:
			overrides[key] = normalized
		}
	}
	return overrides
}

func splitMultiValues(values []string) []string {
	normalized := []string{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				normalized = append(normalized, trimmed)
			}
		}
	}
	return normalized
}
