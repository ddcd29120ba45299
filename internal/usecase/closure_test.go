package usecase

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sparksai/insight-server/internal/domain/entity"
)

func intPtr(v int) *int { return &v }

func TestDescendantGroupIDs(t *testing.T) {
	snapshot := &entity.HierarchySnapshot{
		Groups: []entity.Group{
			{ID: 1, Name: "Engineering"},
			{ID: 2, Name: "Platform", ParentID: intPtr(1)},
			{ID: 3, Name: "Mobile", ParentID: intPtr(1)},
			{ID: 4, Name: "Infra", ParentID: intPtr(2)},
			{ID: 5, Name: "Sales"},
		},
	}

	t.Run("root includes every transitive child", func(t *testing.T) {
		ids := DescendantGroupIDs(snapshot, 1)
		assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true}, ids)
	})

	t.Run("leaf returns only itself", func(t *testing.T) {
		ids := DescendantGroupIDs(snapshot, 4)
		assert.Equal(t, map[int]bool{4: true}, ids)
	})

	t.Run("terminates on cyclic parent links", func(t *testing.T) {
		cyclic := &entity.HierarchySnapshot{
			Groups: []entity.Group{
				{ID: 1, ParentID: intPtr(2)},
				{ID: 2, ParentID: intPtr(1)},
			},
		}
		ids := DescendantGroupIDs(cyclic, 1)
		assert.Equal(t, map[int]bool{1: true, 2: true}, ids)
	})
}

// relationalTeamsInGroup mirrors the repository's SQL semantics: resolve
// the descendant set to a fixed point over parent links (the recursive
// CTE), then collect every team associated with any group in the set,
// deduplicated and name-ordered.
func relationalTeamsInGroup(snapshot *entity.HierarchySnapshot, rootID int, includeChildren bool) []string {
	scope := map[int]bool{rootID: true}
	if includeChildren {
		for {
			grew := false
			for _, group := range snapshot.Groups {
				if group.ParentID != nil && scope[*group.ParentID] && !scope[group.ID] {
					scope[group.ID] = true
					grew = true
				}
			}
			if !grew {
				break
			}
		}
	}

	seen := map[string]bool{}
	names := []string{}
	for _, team := range snapshot.Teams {
		for _, key := range team.GroupKeys {
			if scope[key] && !seen[team.TeamName] {
				seen[team.TeamName] = true
				names = append(names, team.TeamName)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

func TestClosureMatchesRelationalSemantics(t *testing.T) {
	snapshot := &entity.HierarchySnapshot{
		Groups: []entity.Group{
			{ID: 1, Name: "Engineering"},
			{ID: 2, Name: "Platform Org", ParentID: intPtr(1)},
			{ID: 3, Name: "Mobile Org", ParentID: intPtr(1)},
			{ID: 4, Name: "Infra", ParentID: intPtr(2)},
			{ID: 5, Name: "Sales"},
		},
		Teams: []entity.Team{
			{TeamKey: 1, TeamName: "Core", GroupKeys: []int{2}},
			{TeamKey: 2, TeamName: "API", GroupKeys: []int{1}},
			{TeamKey: 3, TeamName: "iOS", GroupKeys: []int{3}},
			{TeamKey: 4, TeamName: "SRE", GroupKeys: []int{4}},
			{TeamKey: 5, TeamName: "Shared", GroupKeys: []int{2, 3}},
			{TeamKey: 6, TeamName: "Field Ops", GroupKeys: []int{5}},
			{TeamKey: 7, TeamName: "Floaters", GroupKeys: []int{}},
		},
	}

	for _, group := range snapshot.Groups {
		fromCache := TeamNamesInGroups(snapshot, DescendantGroupIDs(snapshot, group.ID))
		fromRelational := relationalTeamsInGroup(snapshot, group.ID, true)
		assert.Equal(t, fromRelational, fromCache, "group %d (%s)", group.ID, group.Name)

		direct := TeamNamesInGroups(snapshot, map[int]bool{group.ID: true})
		assert.Equal(t, relationalTeamsInGroup(snapshot, group.ID, false), direct,
			"direct membership of group %d (%s)", group.ID, group.Name)
	}

	// Spot-check the expected expansion at the root.
	assert.Equal(t, []string{"API", "Core", "SRE", "Shared", "iOS"},
		TeamNamesInGroups(snapshot, DescendantGroupIDs(snapshot, 1)))
}

func TestTeamNamesInGroups(t *testing.T) {
	snapshot := &entity.HierarchySnapshot{
		Teams: []entity.Team{
			{TeamKey: 1, TeamName: "Zebra", GroupKeys: []int{2}},
			{TeamKey: 2, TeamName: "Alpha", GroupKeys: []int{2, 4}},
			{TeamKey: 3, TeamName: "Gamma", GroupKeys: []int{5}},
			{TeamKey: 4, TeamName: "Orphan", GroupKeys: []int{}},
		},
	}

	names := TeamNamesInGroups(snapshot, map[int]bool{2: true, 4: true})
	assert.Equal(t, []string{"Alpha", "Zebra"}, names)

	assert.Empty(t, TeamNamesInGroups(snapshot, map[int]bool{99: true}))
}
