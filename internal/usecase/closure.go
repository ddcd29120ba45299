package usecase

import (
	"sort"

	"github.com/sparksai/insight-server/internal/domain/entity"
)

// DescendantGroupIDs returns the root group plus every transitive child
// in the snapshot. Traversal is breadth-first over the parent links and
// tolerates cyclic data by never revisiting a node.
func DescendantGroupIDs(snapshot *entity.HierarchySnapshot, rootID int) map[int]bool {
	children := map[int][]int{}
	for _, group := range snapshot.Groups {
		if group.ParentID != nil {
			children[*group.ParentID] = append(children[*group.ParentID], group.ID)
		}
	}

	visited := map[int]bool{rootID: true}
	queue := []int{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			queue = append(queue, child)
		}
	}
	return visited
}

// TeamNamesInGroups collects the names of teams attached to any group
// in the set, deduplicated and sorted.
func TeamNamesInGroups(snapshot *entity.HierarchySnapshot, groupIDs map[int]bool) []string {
	seen := map[string]bool{}
	names := []string{}
	for _, team := range snapshot.Teams {
		for _, key := range team.GroupKeys {
			if groupIDs[key] && !seen[team.TeamName] {
				seen[team.TeamName] = true
				names = append(names, team.TeamName)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}
