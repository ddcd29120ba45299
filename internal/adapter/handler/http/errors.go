package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
	"go.uber.org/zap"
)

// respondError maps domain errors onto HTTP statuses. Validation
// problems surface with their message; anything else is logged and
// hidden behind a generic 500.
func respondError(c echo.Context, logger *zap.Logger, err error) error {
	switch {
	case errors.Is(err, domainerrors.ErrMissingFilter),
		errors.Is(err, domainerrors.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, domainerrors.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, domainerrors.ErrUnknownDataSource):
		// A stored definition referencing a resolver that does not exist
		// is a server-side misconfiguration, not a caller mistake.
		logger.Error("Report definition references unknown data source", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	default:
		logger.Error("Request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success": false,
			"message": "Internal server error",
		})
	}
}
