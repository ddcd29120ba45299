package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sparksai/insight-server/internal/usecase"
	"go.uber.org/zap"
)

type GroupHandler struct {
	logger    *zap.Logger
	hierarchy *usecase.HierarchyUsecase
}

func NewGroupHandler(logger *zap.Logger, hierarchy *usecase.HierarchyUsecase) *GroupHandler {
	return &GroupHandler{
		logger:    logger,
		hierarchy: hierarchy,
	}
}

type GroupCreateRequest struct {
	GroupName      string `json:"group_name" validate:"required"`
	ParentGroupKey *int   `json:"parent_group_key" validate:"omitempty,gt=0"`
	AIInsight      *bool  `json:"ai_insight"`
}

type GroupUpdateRequest struct {
	GroupName      *string `json:"group_name" validate:"omitempty,min=1"`
	ParentGroupKey *int    `json:"parent_group_key" validate:"omitempty,gt=0"`
	AIInsight      *bool   `json:"ai_insight"`
}

// groupPayload is the mutation response shape, keyed by the storage
// column names rather than the listing aliases.
type groupPayload struct {
	GroupKey       int    `json:"group_key"`
	GroupName      string `json:"group_name"`
	ParentGroupKey *int   `json:"parent_group_key"`
	AIInsight      bool   `json:"ai_insight"`
}

func parsePositiveID(c echo.Context, param, fieldName string) (int, error) {
	id, err := strconv.Atoi(c.Param(param))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", fieldName)
	}
	return id, nil
}

// GetAllGroups lists every group
func (h *GroupHandler) GetAllGroups(c echo.Context) error {
	groups, err := h.hierarchy.LoadAllGroups(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    groups,
		"count":   len(groups),
		"message": fmt.Sprintf("Retrieved %d groups", len(groups)),
	})
}

// GetTeamsInGroup lists the teams of one group. include_children=true
// also collects teams from every descendant group.
func (h *GroupHandler) GetTeamsInGroup(c echo.Context) error {
	groupID, err := parsePositiveID(c, "groupId", "Group ID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	includeChildren, _ := strconv.ParseBool(c.QueryParam("include_children"))

	teams, err := h.hierarchy.TeamsInGroup(c.Request().Context(), groupID, includeChildren)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"teams":     teams,
			"count":     len(teams),
			"group_key": groupID,
		},
		"message": fmt.Sprintf("Retrieved %d teams for group %d", len(teams), groupID),
	})
}

// CreateGroup inserts a new group, optionally under a parent
func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req GroupCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	h.logger.Info("Creating group",
		zap.String("group_name", req.GroupName),
		zap.Intp("parent_group_key", req.ParentGroupKey))

	aiInsight := req.AIInsight != nil && *req.AIInsight
	group, err := h.hierarchy.CreateGroup(c.Request().Context(), req.GroupName, req.ParentGroupKey, aiInsight)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data": groupPayload{
			GroupKey:       group.ID,
			GroupName:      group.Name,
			ParentGroupKey: group.ParentID,
			AIInsight:      group.AIInsight,
		},
		"message": fmt.Sprintf("Created group with ID %d", group.ID),
	})
}

// UpdateGroup renames a group or moves it under another parent
func (h *GroupHandler) UpdateGroup(c echo.Context) error {
	groupID, err := parsePositiveID(c, "groupId", "Group ID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	var req GroupUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	group, err := h.hierarchy.UpdateGroup(c.Request().Context(), groupID, req.GroupName, req.ParentGroupKey, req.AIInsight)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": groupPayload{
			GroupKey:       group.ID,
			GroupName:      group.Name,
			ParentGroupKey: group.ParentID,
			AIInsight:      group.AIInsight,
		},
		"message": fmt.Sprintf("Group %d updated successfully", groupID),
	})
}

// DeleteGroup removes a group; its teams keep existing without the
// association.
func (h *GroupHandler) DeleteGroup(c echo.Context) error {
	groupID, err := parsePositiveID(c, "groupId", "Group ID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	if err := h.hierarchy.DeleteGroup(c.Request().Context(), groupID); err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.Info("Deleted group", zap.Int("group_id", groupID))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"id": groupID},
		"message": fmt.Sprintf("Group %d deleted successfully", groupID),
	})
}
