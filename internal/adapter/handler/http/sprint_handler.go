package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sparksai/insight-server/internal/adapter/repository"
	"go.uber.org/zap"
)

type SprintHandler struct {
	logger  *zap.Logger
	sprints repository.SprintMetricsRepository
}

func NewSprintHandler(logger *zap.Logger, sprints repository.SprintMetricsRepository) *SprintHandler {
	return &SprintHandler{
		logger:  logger,
		sprints: sprints,
	}
}

// GetAllSprints lists the sprint dimension, newest first
func (h *SprintHandler) GetAllSprints(c echo.Context) error {
	sprints, err := h.sprints.ListSprints(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    sprints,
		"count":   len(sprints),
		"message": fmt.Sprintf("Retrieved %d sprints", len(sprints)),
	})
}
