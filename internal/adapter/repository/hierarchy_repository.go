package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HierarchyRepository handles group and team hierarchy storage
type HierarchyRepository interface {
	LoadAllGroups(ctx context.Context) ([]entity.Group, error)
	LoadAllTeams(ctx context.Context) ([]entity.Team, error)
	LoadTeamsInGroup(ctx context.Context, groupID int, includeChildren bool) ([]entity.TeamRef, error)
	GroupExists(ctx context.Context, id int) (bool, error)
	TeamExists(ctx context.Context, id int) (bool, error)
	CreateGroup(ctx context.Context, name string, parentID *int, aiInsight bool) (*entity.Group, error)
	UpdateGroup(ctx context.Context, id int, name *string, parentID *int, aiInsight *bool) (*entity.Group, error)
	DeleteGroup(ctx context.Context, id int) error
}

type hierarchyRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHierarchyRepository creates a new hierarchy repository
func NewHierarchyRepository(db *gorm.DB, logger *zap.Logger) HierarchyRepository {
	return &hierarchyRepository{
		db:     db,
		logger: logger,
	}
}

type groupRow struct {
	GroupKey       int    `gorm:"column:group_key"`
	GroupName      string `gorm:"column:group_name"`
	ParentGroupKey *int   `gorm:"column:parent_group_key"`
	AIInsight      bool   `gorm:"column:ai_insight"`
}

// LoadAllGroups retrieves every group ordered by name
func (r *hierarchyRepository) LoadAllGroups(ctx context.Context) ([]entity.Group, error) {
	var rows []groupRow

	err := r.db.WithContext(ctx).Raw(`
		SELECT group_key, group_name, parent_group_key, ai_insight
		FROM public.groups
		ORDER BY group_name
	`).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to load groups", zap.Error(err))
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	groups := make([]entity.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, entity.Group{
			ID:        row.GroupKey,
			Name:      row.GroupName,
			ParentID:  row.ParentGroupKey,
			AIInsight: row.AIInsight,
		})
	}
	return groups, nil
}

type teamRow struct {
	TeamKey             int    `gorm:"column:team_key"`
	TeamName            string `gorm:"column:team_name"`
	NumberOfTeamMembers int    `gorm:"column:number_of_team_members"`
	AIInsight           bool   `gorm:"column:ai_insight"`
}

type associationRow struct {
	TeamID    int    `gorm:"column:team_id"`
	GroupID   int    `gorm:"column:group_id"`
	GroupName string `gorm:"column:group_name"`
}

// LoadAllTeams retrieves every team with its group associations
// aggregated into group_keys/group_names. Teams without associations
// get empty arrays, never null entries.
func (r *hierarchyRepository) LoadAllTeams(ctx context.Context) ([]entity.Team, error) {
	var teamRows []teamRow

	err := r.db.WithContext(ctx).Raw(`
		SELECT team_key, team_name, number_of_team_members, ai_insight
		FROM public.teams
		ORDER BY team_name
	`).Scan(&teamRows).Error
	if err != nil {
		r.logger.Error("Failed to load teams", zap.Error(err))
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}

	var assocRows []associationRow
	err = r.db.WithContext(ctx).Raw(`
		SELECT tg.team_id, tg.group_id, g.group_name
		FROM public.team_groups tg
		INNER JOIN public.groups g ON g.group_key = tg.group_id
	`).Scan(&assocRows).Error
	if err != nil {
		r.logger.Error("Failed to load team group associations", zap.Error(err))
		return nil, fmt.Errorf("failed to load team group associations: %w", err)
	}

	groupKeysByTeam := map[int][]int{}
	groupNamesByTeam := map[int][]string{}
	seen := map[int]map[int]bool{}
	for _, assoc := range assocRows {
		if seen[assoc.TeamID] == nil {
			seen[assoc.TeamID] = map[int]bool{}
		}
		if seen[assoc.TeamID][assoc.GroupID] {
			continue
		}
		seen[assoc.TeamID][assoc.GroupID] = true
		groupKeysByTeam[assoc.TeamID] = append(groupKeysByTeam[assoc.TeamID], assoc.GroupID)
		groupNamesByTeam[assoc.TeamID] = append(groupNamesByTeam[assoc.TeamID], assoc.GroupName)
	}

	teams := make([]entity.Team, 0, len(teamRows))
	for _, row := range teamRows {
		keys := groupKeysByTeam[row.TeamKey]
		if keys == nil {
			keys = []int{}
		}
		names := groupNamesByTeam[row.TeamKey]
		if names == nil {
			names = []string{}
		}
		sort.Ints(keys)
		sort.Strings(names)
		teams = append(teams, entity.Team{
			TeamKey:             row.TeamKey,
			TeamName:            row.TeamName,
			NumberOfTeamMembers: row.NumberOfTeamMembers,
			AIInsight:           row.AIInsight,
			GroupKeys:           keys,
			GroupNames:          names,
		})
	}
	return teams, nil
}

type teamRefRow struct {
	TeamKey             int    `gorm:"column:team_key"`
	TeamName            string `gorm:"column:team_name"`
	NumberOfTeamMembers int    `gorm:"column:number_of_team_members"`
	GroupKey            int    `gorm:"column:group_key"`
}

// LoadTeamsInGroup retrieves teams attached to a group. With
// includeChildren the descendant set is resolved with a recursive CTE;
// UNION (not UNION ALL) keeps the traversal finite on malformed cyclic
// data.
func (r *hierarchyRepository) LoadTeamsInGroup(ctx context.Context, groupID int, includeChildren bool) ([]entity.TeamRef, error) {
	var rows []teamRefRow
	var err error

	if includeChildren {
		err = r.db.WithContext(ctx).Raw(`
			WITH RECURSIVE descendants AS (
				SELECT group_key FROM public.groups WHERE group_key = @group_key
				UNION
				SELECT g.group_key
				FROM public.groups g
				INNER JOIN descendants d ON g.parent_group_key = d.group_key
			)
			SELECT
				t.team_key,
				t.team_name,
				t.number_of_team_members,
				tg.group_id AS group_key
			FROM public.teams t
			INNER JOIN public.team_groups tg ON t.team_key = tg.team_id
			WHERE tg.group_id IN (SELECT group_key FROM descendants)
			ORDER BY t.team_name
		`, map[string]interface{}{"group_key": groupID}).Scan(&rows).Error
	} else {
		err = r.db.WithContext(ctx).Raw(`
			SELECT
				t.team_key,
				t.team_name,
				t.number_of_team_members,
				tg.group_id AS group_key
			FROM public.teams t
			INNER JOIN public.team_groups tg ON t.team_key = tg.team_id
			WHERE tg.group_id = @group_key
			ORDER BY t.team_name
		`, map[string]interface{}{"group_key": groupID}).Scan(&rows).Error
	}
	if err != nil {
		r.logger.Error("Failed to load teams in group",
			zap.Int("group_id", groupID),
			zap.Bool("include_children", includeChildren),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load teams in group: %w", err)
	}

	// A team attached to several descendant groups comes back once per
	// association; keep the first occurrence.
	teams := make([]entity.TeamRef, 0, len(rows))
	seen := map[int]bool{}
	for _, row := range rows {
		if seen[row.TeamKey] {
			continue
		}
		seen[row.TeamKey] = true
		teams = append(teams, entity.TeamRef{
			TeamKey:             row.TeamKey,
			TeamName:            row.TeamName,
			NumberOfTeamMembers: row.NumberOfTeamMembers,
			GroupKey:            row.GroupKey,
		})
	}
	return teams, nil
}

// GroupExists reports whether a group row exists
func (r *hierarchyRepository) GroupExists(ctx context.Context, id int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM public.groups WHERE group_key = @group_key
	`, map[string]interface{}{"group_key": id}).Scan(&count).Error
	if err != nil {
		r.logger.Error("Failed to check group existence", zap.Int("group_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to check group existence: %w", err)
	}
	return count > 0, nil
}

// TeamExists reports whether a team row exists
func (r *hierarchyRepository) TeamExists(ctx context.Context, id int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM public.teams WHERE team_key = @team_key
	`, map[string]interface{}{"team_key": id}).Scan(&count).Error
	if err != nil {
		r.logger.Error("Failed to check team existence", zap.Int("team_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to check team existence: %w", err)
	}
	return count > 0, nil
}

// CreateGroup inserts a new group row and returns it
func (r *hierarchyRepository) CreateGroup(ctx context.Context, name string, parentID *int, aiInsight bool) (*entity.Group, error) {
	var row groupRow
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO public.groups (group_name, parent_group_key, ai_insight)
		VALUES (@group_name, @parent_group_key, @ai_insight)
		RETURNING group_key, group_name, parent_group_key, ai_insight
	`, map[string]interface{}{
		"group_name":       name,
		"parent_group_key": parentID,
		"ai_insight":       aiInsight,
	}).Scan(&row).Error
	if err != nil {
		r.logger.Error("Failed to create group", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return &entity.Group{ID: row.GroupKey, Name: row.GroupName, ParentID: row.ParentGroupKey, AIInsight: row.AIInsight}, nil
}

// UpdateGroup applies a partial update and returns the updated row.
// Callers validate the patch; this only builds the SET clause from the
// fields that are present.
func (r *hierarchyRepository) UpdateGroup(ctx context.Context, id int, name *string, parentID *int, aiInsight *bool) (*entity.Group, error) {
	updates := []string{}
	params := map[string]interface{}{"group_key": id}

	if name != nil {
		updates = append(updates, "group_name = @group_name")
		params["group_name"] = *name
	}
	if parentID != nil {
		updates = append(updates, "parent_group_key = @parent_group_key")
		params["parent_group_key"] = *parentID
	}
	if aiInsight != nil {
		updates = append(updates, "ai_insight = @ai_insight")
		params["ai_insight"] = *aiInsight
	}
	if len(updates) == 0 {
		return nil, domainerrors.InvalidArgument("at least one field must be provided for update")
	}

	query := fmt.Sprintf(`
		UPDATE public.groups
		SET %s
		WHERE group_key = @group_key
		RETURNING group_key, group_name, parent_group_key, ai_insight
	`, strings.Join(updates, ", "))

	var row groupRow
	result := r.db.WithContext(ctx).Raw(query, params).Scan(&row)
	if result.Error != nil {
		r.logger.Error("Failed to update group", zap.Int("group_id", id), zap.Error(result.Error))
		return nil, fmt.Errorf("failed to update group: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domainerrors.NotFound(fmt.Sprintf("group %d", id))
	}

	return &entity.Group{ID: row.GroupKey, Name: row.GroupName, ParentID: row.ParentGroupKey, AIInsight: row.AIInsight}, nil
}

// DeleteGroup removes the group's team associations and then the group
// row, in one transaction. Teams are never cascade-deleted; they only
// lose the association.
func (r *hierarchyRepository) DeleteGroup(ctx context.Context, id int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			DELETE FROM public.team_groups WHERE group_id = @group_key
		`, map[string]interface{}{"group_key": id}).Error; err != nil {
			return err
		}

		result := tx.Exec(`
			DELETE FROM public.groups WHERE group_key = @group_key
		`, map[string]interface{}{"group_key": id})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.NotFound(fmt.Sprintf("group %d", id))
		}
		return nil
	})
	if err != nil {
		if !domainerrors.IsDomainError(err) {
			r.logger.Error("Failed to delete group", zap.Int("group_id", id), zap.Error(err))
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return err
	}
	return nil
}
