package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sparksai/insight-server/internal/adapter/repository"
	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
	domainrepo "github.com/sparksai/insight-server/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	groupsCacheKey = "groups:all"
	teamsCacheKey  = "teams:all"
)

// HierarchyUsecase serves the group/team hierarchy through a
// read-through cache. The two fixed keys are always invalidated
// together after a successful mutation, so readers never observe a
// group list from one generation and a team list from another for
// longer than one reload.
type HierarchyUsecase struct {
	repo   repository.HierarchyRepository
	cache  domainrepo.CacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewHierarchyUsecase creates a new hierarchy usecase
func NewHierarchyUsecase(repo repository.HierarchyRepository, cache domainrepo.CacheStore, ttl time.Duration, logger *zap.Logger) *HierarchyUsecase {
	return &HierarchyUsecase{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// LoadAllGroups returns every group, from cache when warm
func (u *HierarchyUsecase) LoadAllGroups(ctx context.Context) ([]entity.Group, error) {
	if payload, ok := u.cache.Get(ctx, groupsCacheKey); ok {
		var groups []entity.Group
		if err := json.Unmarshal(payload, &groups); err == nil {
			return groups, nil
		}
		u.logger.Warn("Discarding undecodable cached groups", zap.String("key", groupsCacheKey))
	}

	groups, err := u.repo.LoadAllGroups(ctx)
	if err != nil {
		return nil, err
	}
	u.storeJSON(ctx, groupsCacheKey, groups)
	return groups, nil
}

// LoadAllTeams returns every team with group associations, from cache
// when warm
func (u *HierarchyUsecase) LoadAllTeams(ctx context.Context) ([]entity.Team, error) {
	if payload, ok := u.cache.Get(ctx, teamsCacheKey); ok {
		var teams []entity.Team
		if err := json.Unmarshal(payload, &teams); err == nil {
			return teams, nil
		}
		u.logger.Warn("Discarding undecodable cached teams", zap.String("key", teamsCacheKey))
	}

	teams, err := u.repo.LoadAllTeams(ctx)
	if err != nil {
		return nil, err
	}
	u.storeJSON(ctx, teamsCacheKey, teams)
	return teams, nil
}

// Snapshot loads groups and teams as one consistent-enough view for
// in-memory closure computations.
func (u *HierarchyUsecase) Snapshot(ctx context.Context) (*entity.HierarchySnapshot, error) {
	groups, err := u.LoadAllGroups(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := u.LoadAllTeams(ctx)
	if err != nil {
		return nil, err
	}
	return &entity.HierarchySnapshot{Groups: groups, Teams: teams}, nil
}

// TeamNames lists every team name in catalog order
func (u *HierarchyUsecase) TeamNames(ctx context.Context) ([]string, error) {
	teams, err := u.LoadAllTeams(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(teams))
	for _, team := range teams {
		names = append(names, team.TeamName)
	}
	return names, nil
}

// TeamsInGroup lists the teams of one group, optionally including every
// descendant group's teams.
func (u *HierarchyUsecase) TeamsInGroup(ctx context.Context, groupID int, includeChildren bool) ([]entity.TeamRef, error) {
	exists, err := u.repo.GroupExists(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domainerrors.NotFound(fmt.Sprintf("group %d", groupID))
	}
	return u.repo.LoadTeamsInGroup(ctx, groupID, includeChildren)
}

// ResolveTeamNamesFromFilter maps the team_name/is_group filter pair to
// the team names a report query should match. An empty name means all
// teams, reported as nil. A group name expands to the member teams of
// the group and all its descendants. A group name with no members, or a
// name that matches no group, falls back to the literal name.
func (u *HierarchyUsecase) ResolveTeamNamesFromFilter(ctx context.Context, teamName string, isGroup bool) ([]string, error) {
	if teamName == "" {
		return nil, nil
	}
	if !isGroup {
		return []string{teamName}, nil
	}

	snapshot, err := u.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, group := range snapshot.Groups {
		if group.Name == teamName {
			names := TeamNamesInGroups(snapshot, DescendantGroupIDs(snapshot, group.ID))
			if len(names) == 0 {
				return []string{teamName}, nil
			}
			return names, nil
		}
	}
	return []string{teamName}, nil
}

// CreateGroup validates the parent and inserts the group
func (u *HierarchyUsecase) CreateGroup(ctx context.Context, name string, parentID *int, aiInsight bool) (*entity.Group, error) {
	if parentID != nil {
		exists, err := u.repo.GroupExists(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domainerrors.NotFound(fmt.Sprintf("parent group %d", *parentID))
		}
	}

	group, err := u.repo.CreateGroup(ctx, name, parentID, aiInsight)
	if err != nil {
		return nil, err
	}
	u.invalidate(ctx)
	return group, nil
}

// UpdateGroup validates and applies a partial update
func (u *HierarchyUsecase) UpdateGroup(ctx context.Context, id int, name *string, parentID *int, aiInsight *bool) (*entity.Group, error) {
	if name == nil && parentID == nil && aiInsight == nil {
		return nil, domainerrors.InvalidArgument("at least one field must be provided for update")
	}

	exists, err := u.repo.GroupExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domainerrors.NotFound(fmt.Sprintf("group %d", id))
	}

	if parentID != nil {
		if *parentID == id {
			return nil, domainerrors.InvalidArgument("a group cannot be its own parent")
		}
		parentExists, err := u.repo.GroupExists(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !parentExists {
			return nil, domainerrors.NotFound(fmt.Sprintf("parent group %d", *parentID))
		}
	}

	group, err := u.repo.UpdateGroup(ctx, id, name, parentID, aiInsight)
	if err != nil {
		return nil, err
	}
	u.invalidate(ctx)
	return group, nil
}

// DeleteGroup removes a group and its team associations
func (u *HierarchyUsecase) DeleteGroup(ctx context.Context, id int) error {
	if err := u.repo.DeleteGroup(ctx, id); err != nil {
		return err
	}
	u.invalidate(ctx)
	return nil
}

func (u *HierarchyUsecase) storeJSON(ctx context.Context, key string, value interface{}) {
	payload, err := json.Marshal(value)
	if err != nil {
		u.logger.Warn("Failed to encode hierarchy cache entry",
			zap.String("key", key),
			zap.Error(err))
		return
	}
	u.cache.SetWithTTL(ctx, key, payload, u.ttl)
}

// invalidate drops both hierarchy keys. Invalidation runs only after
// the storage transaction committed; a cache fault here just leaves the
// TTL to finish the job.
func (u *HierarchyUsecase) invalidate(ctx context.Context) {
	deleted := u.cache.DeleteMany(ctx, groupsCacheKey, teamsCacheKey)
	u.logger.Debug("Invalidated hierarchy cache", zap.Int("deleted", deleted))
}
