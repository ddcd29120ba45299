package entity

// Group is a node in the organizational hierarchy. ParentID is nil for
// root groups. Groups form a forest; the only cycle guard on writes is
// the direct self-parent rejection.
type Group struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ParentID  *int   `json:"parent_id"`
	AIInsight bool   `json:"ai_insight"`
}

// TeamRef identifies a team attached to a group.
type TeamRef struct {
	TeamKey             int    `json:"team_key"`
	TeamName            string `json:"team_name"`
	NumberOfTeamMembers int    `json:"number_of_team_members"`
	GroupKey            int    `json:"group_key"`
}

// Team is a leaf of the hierarchy. A team may belong to several groups;
// GroupKeys and GroupNames aggregate every association, deduplicated,
// and are empty slices (never nil) for unassociated teams.
type Team struct {
	TeamKey             int      `json:"team_key"`
	TeamName            string   `json:"team_name"`
	NumberOfTeamMembers int      `json:"number_of_team_members"`
	AIInsight           bool     `json:"ai_insight"`
	GroupKeys           []int    `json:"group_keys"`
	GroupNames          []string `json:"group_names"`
}

// HierarchySnapshot is the groups/teams state loaded in one shot and
// kept in cache until the next mutation.
type HierarchySnapshot struct {
	Groups []Group `json:"groups"`
	Teams  []Team  `json:"teams"`
}
