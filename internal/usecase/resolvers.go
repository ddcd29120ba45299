package usecase

import (
	"math"
	"strconv"

	"github.com/sparksai/insight-server/internal/adapter/repository"
	"go.uber.org/zap"
)

// ReportResolvers implements the per-report data fetchers behind the
// registry. Each resolver returns the chart payload plus a meta block
// that echoes the effective filters and the available picker options.
type ReportResolvers struct {
	sprints   repository.SprintMetricsRepository
	pis       repository.PIRepository
	issues    repository.IssueRepository
	hierarchy *HierarchyUsecase
	clock     Clock
	logger    *zap.Logger
}

// NewReportResolvers creates the resolver set
func NewReportResolvers(
	sprints repository.SprintMetricsRepository,
	pis repository.PIRepository,
	issues repository.IssueRepository,
	hierarchy *HierarchyUsecase,
	clock Clock,
	logger *zap.Logger,
) *ReportResolvers {
	return &ReportResolvers{
		sprints:   sprints,
		pis:       pis,
		issues:    issues,
		hierarchy: hierarchy,
		clock:     clock,
		logger:    logger,
	}
}

// RegisterAll binds every resolver to its data source name. The order
// here is the order introspection reports.
func (r *ReportResolvers) RegisterAll(registry *ReportRegistry) {
	registry.Register("team_sprint_burndown", r.TeamSprintBurndown)
	registry.Register("team_current_sprint_progress", r.TeamCurrentSprintProgress)
	registry.Register("pi_burndown", r.PIBurndown)
	registry.Register("team_closed_sprints", r.TeamClosedSprints)
	registry.Register("team_sprint_velocity_advanced", r.TeamSprintVelocityAdvanced)
	registry.Register("team_issues_trend", r.TeamIssuesTrend)
	registry.Register("pi_predictability", r.PIPredictability)
	registry.Register("epic_scope_changes", r.EpicScopeChanges)
	registry.Register("issues_bugs_by_priority", r.IssuesBugsByPriority)
	registry.Register("issues_bugs_by_team", r.IssuesBugsByTeam)
	registry.Register("issues_flow_status_duration", r.IssuesFlowStatusDuration)
	registry.Register("issues_epics_hierarchy", r.IssuesEpicsHierarchy)
	registry.Register("issues_hierarchy", r.IssuesHierarchy)
	registry.Register("issues_epic_dependencies", r.IssuesEpicDependencies)
	registry.Register("issues_release_predictability", r.IssuesReleasePredictability)
	registry.Register("sprint_predictability", r.SprintPredictability)
	registry.Register("pi_metrics_summary", r.PIMetricsSummary)
	registry.Register("pi_metrics_summary_by_team", r.PIMetricsSummaryByTeam)
}

// nilable renders an empty string as JSON null in meta blocks.
func nilable(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// applyTeamMeta fills the team/group duality block of a meta document.
// legacy also writes the deprecated "team" key older clients read.
func applyTeamMeta(meta map[string]interface{}, team string, isGroup bool, teamNames []string, legacy bool) {
	if isGroup {
		meta["group_name"] = team
		meta["teams_in_group"] = teamNames
		return
	}
	meta["team_name"] = team
	if legacy {
		meta["team"] = team
	}
}

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return parsed
	case []byte:
		parsed, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func toInt(value interface{}) int {
	return int(toFloat(value))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
