package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sparksai/insight-server/internal/usecase"
	"go.uber.org/zap"
)

type TeamHandler struct {
	logger    *zap.Logger
	hierarchy *usecase.HierarchyUsecase
}

func NewTeamHandler(logger *zap.Logger, hierarchy *usecase.HierarchyUsecase) *TeamHandler {
	return &TeamHandler{
		logger:    logger,
		hierarchy: hierarchy,
	}
}

// GetAllTeams lists every team with its group associations
func (h *TeamHandler) GetAllTeams(c echo.Context) error {
	teams, err := h.hierarchy.LoadAllTeams(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"teams": teams,
			"count": len(teams),
		},
		"message": fmt.Sprintf("Retrieved %d teams", len(teams)),
	})
}

// GetTeamNames lists team names only, for picker UIs
func (h *TeamHandler) GetTeamNames(c echo.Context) error {
	names, err := h.hierarchy.TeamNames(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    names,
		"count":   len(names),
		"message": fmt.Sprintf("Retrieved %d team names", len(names)),
	})
}
