package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/sparksai/insight-server/internal/domain/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PISummaryParams are the inputs of the PI summary warehouse functions.
type PISummaryParams struct {
	PIName              string
	ProjectKeys         string
	IssueType           string
	TeamNames           []string
	PlanGracePeriodDays int
}

// TeamWIP is the per-team epic work-in-progress aggregate.
type TeamWIP struct {
	TeamName        string `gorm:"column:team_name"`
	TotalEpics      int    `gorm:"column:total_epics"`
	InProgressEpics int    `gorm:"column:in_progress_epics"`
}

// PIRepository handles program-increment report queries
type PIRepository interface {
	AvailablePIs(ctx context.Context) ([]string, error)
	PIBurndown(ctx context.Context, piName, projectKeys, issueType string, teamNames []string) ([]entity.Row, error)
	PIPredictability(ctx context.Context, piNames, teamNames []string) ([]entity.Row, error)
	ScopeChanges(ctx context.Context, quarters []string) ([]entity.Row, error)
	PISummary(ctx context.Context, params PISummaryParams) ([]entity.Row, error)
	PISummaryByTeam(ctx context.Context, params PISummaryParams) ([]entity.Row, error)
	EpicWIP(ctx context.Context, piName string, teamNames []string, project string) (total, inProgress int, err error)
	EpicWIPByTeam(ctx context.Context, piName string, teamNames []string, project string) ([]TeamWIP, error)
	EpicInboundDependencies(ctx context.Context, piName string, teamNames []string) ([]entity.Row, error)
	EpicOutboundDependencies(ctx context.Context, piName string, teamNames []string) ([]entity.Row, error)
	DependencyPIs(ctx context.Context) ([]string, error)
}

type piRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPIRepository creates a new PI repository
func NewPIRepository(db *gorm.DB, logger *zap.Logger) PIRepository {
	return &piRepository{
		db:     db,
		logger: logger,
	}
}

// AvailablePIs lists the known program increments, newest first
func (r *piRepository) AvailablePIs(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT pi_name
		FROM public.pis
		WHERE pi_name IS NOT NULL
		ORDER BY pi_name DESC
	`).Scan(&names).Error
	if err != nil {
		r.logger.Error("Failed to get available PIs", zap.Error(err))
		return nil, fmt.Errorf("failed to get available PIs: %w", err)
	}
	return names, nil
}

// PIBurndown calls the burndown warehouse function for one PI
func (r *piRepository) PIBurndown(ctx context.Context, piName, projectKeys, issueType string, teamNames []string) ([]entity.Row, error) {
	if piName == "" {
		return []entity.Row{}, nil
	}
	if issueType == "" {
		issueType = "all"
	}

	params := map[string]interface{}{
		"pi_name":      piName,
		"project_keys": nullableString(projectKeys),
		"issue_type":   issueType,
		"team_names":   nullableStrings(teamNames),
	}

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(`
		SELECT *
		FROM public.get_pi_burndown_data(@pi_name, @project_keys, @issue_type, CAST(@team_names AS text[]))
	`, params).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get PI burndown",
			zap.String("pi_name", piName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get PI burndown: %w", err)
	}
	return joinArrayColumns(formatRowDates(rows)), nil
}

// PIPredictability calls the predictability function once per PI and
// concatenates the results, matching the UI's multi-PI selection.
func (r *piRepository) PIPredictability(ctx context.Context, piNames, teamNames []string) ([]entity.Row, error) {
	allRows := []entity.Row{}
	for _, piName := range piNames {
		params := map[string]interface{}{
			"pi_name":    piName,
			"team_names": nullableStrings(teamNames),
		}

		var rows []entity.Row
		err := r.db.WithContext(ctx).Raw(`
			SELECT *
			FROM public.get_pi_predictability_by_team(CAST(@team_names AS text[]), @pi_name)
		`, params).Scan(&rows).Error
		if err != nil {
			r.logger.Error("Failed to get PI predictability",
				zap.String("pi_name", piName),
				zap.Error(err))
			return nil, fmt.Errorf("failed to get PI predictability: %w", err)
		}
		allRows = append(allRows, joinArrayColumns(formatRowDates(rows))...)
	}
	return allRows, nil
}

// ScopeChanges retrieves scope-change metrics for the given quarters
func (r *piRepository) ScopeChanges(ctx context.Context, quarters []string) ([]entity.Row, error) {
	if len(quarters) == 0 {
		return []entity.Row{}, nil
	}

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(`
		SELECT *
		FROM public.epic_pi_scope_changes_long
		WHERE "Quarter Name" = ANY(@quarters)
		ORDER BY "Quarter Name", "Metric Name"
	`, map[string]interface{}{"quarters": quarters}).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get scope changes",
			zap.Strings("quarters", quarters),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get scope changes: %w", err)
	}
	return joinArrayColumns(rows), nil
}

// PISummary calls the PI summary warehouse function
func (r *piRepository) PISummary(ctx context.Context, params PISummaryParams) ([]entity.Row, error) {
	return r.runSummaryFunction(ctx, "get_pi_summary_data", params)
}

// PISummaryByTeam calls the per-team PI summary warehouse function
func (r *piRepository) PISummaryByTeam(ctx context.Context, params PISummaryParams) ([]entity.Row, error) {
	return r.runSummaryFunction(ctx, "get_pi_summary_data_by_team", params)
}

func (r *piRepository) runSummaryFunction(ctx context.Context, function string, params PISummaryParams) ([]entity.Row, error) {
	binds := map[string]interface{}{
		"target_pi_name":    nullableString(params.PIName),
		"target_issue_type": nullableString(params.IssueType),
		"target_projects":   nullableString(params.ProjectKeys),
		"target_team_names": nullableStrings(params.TeamNames),
		"plan_grace_period": params.PlanGracePeriodDays,
	}

	query := fmt.Sprintf(`
		SELECT *
		FROM public.%s(@target_pi_name, @target_issue_type, @target_projects, CAST(@target_team_names AS text[]), @plan_grace_period)
	`, function)

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, binds).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get PI summary",
			zap.String("function", function),
			zap.String("pi_name", params.PIName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get PI summary: %w", err)
	}
	return joinArrayColumns(formatRowDates(rows)), nil
}

// EpicWIP counts epics and in-progress epics under the given filters
func (r *piRepository) EpicWIP(ctx context.Context, piName string, teamNames []string, project string) (int, int, error) {
	fragment := newQueryFragment()
	fragment.Raw("issue_type = 'Epic'")
	if piName != "" {
		fragment.Equals("quarter_pi", "pi", piName)
	}
	if len(teamNames) > 0 {
		fragment.Raw("team_name = ANY(@team_names)")
		fragment.Bind("team_names", teamNames)
	}
	if project != "" {
		fragment.Equals("project_key", "project", project)
	}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total_epics,
			COUNT(CASE WHEN status_category = 'In Progress' THEN 1 END) AS in_progress_epics
		FROM public.jira_issues
		WHERE %s
	`, fragment.Where())

	var wip TeamWIP
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&wip).Error
	if err != nil {
		r.logger.Error("Failed to get epic WIP",
			zap.String("pi_name", piName),
			zap.Error(err))
		return 0, 0, fmt.Errorf("failed to get epic WIP: %w", err)
	}
	return wip.TotalEpics, wip.InProgressEpics, nil
}

// EpicWIPByTeam counts epics and in-progress epics grouped by team
func (r *piRepository) EpicWIPByTeam(ctx context.Context, piName string, teamNames []string, project string) ([]TeamWIP, error) {
	fragment := newQueryFragment()
	fragment.Raw("issue_type = 'Epic'")
	fragment.Equals("quarter_pi", "pi", piName)
	if len(teamNames) > 0 {
		fragment.Raw("team_name = ANY(@team_names)")
		fragment.Bind("team_names", teamNames)
	}
	if project != "" {
		fragment.Equals("project_key", "project", project)
	}

	query := fmt.Sprintf(`
		SELECT
			team_name,
			COUNT(*) AS total_epics,
			COUNT(CASE WHEN status_category = 'In Progress' THEN 1 END) AS in_progress_epics
		FROM public.jira_issues
		WHERE %s
		GROUP BY team_name
		ORDER BY team_name
	`, fragment.Where())

	var wip []TeamWIP
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&wip).Error
	if err != nil {
		r.logger.Error("Failed to get epic WIP by team",
			zap.String("pi_name", piName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get epic WIP by team: %w", err)
	}
	return wip, nil
}

// EpicInboundDependencies retrieves inbound dependency load rows
func (r *piRepository) EpicInboundDependencies(ctx context.Context, piName string, teamNames []string) ([]entity.Row, error) {
	return r.dependencyRows(ctx, "epic_inbound_dependency_load_by_quarter", piName, teamNames)
}

// EpicOutboundDependencies retrieves outbound dependency metric rows
func (r *piRepository) EpicOutboundDependencies(ctx context.Context, piName string, teamNames []string) ([]entity.Row, error) {
	return r.dependencyRows(ctx, "epic_outbound_dependency_metrics_by_quarter", piName, teamNames)
}

func (r *piRepository) dependencyRows(ctx context.Context, view, piName string, teamNames []string) ([]entity.Row, error) {
	fragment := newQueryFragment()
	if piName != "" {
		fragment.Equals("quarter_pi_of_epic", "pi", piName)
	}
	fragment.In("team_name_of_epic", "team_name", teamNames)

	query := fmt.Sprintf(`
		SELECT *
		FROM public.%s
		WHERE %s
		ORDER BY quarter_pi_of_epic DESC
	`, view, fragment.Where())

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get epic dependencies",
			zap.String("view", view),
			zap.String("pi_name", piName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get epic dependencies: %w", err)
	}
	return joinArrayColumns(formatRowDates(rows)), nil
}

// DependencyPIs lists the PIs present in either dependency view
func (r *piRepository) DependencyPIs(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT quarter_pi_of_epic
		FROM (
			SELECT quarter_pi_of_epic FROM public.epic_inbound_dependency_load_by_quarter
			UNION
			SELECT quarter_pi_of_epic FROM public.epic_outbound_dependency_metrics_by_quarter
		) AS all_pis
		WHERE quarter_pi_of_epic IS NOT NULL
		ORDER BY quarter_pi_of_epic DESC
	`).Scan(&names).Error
	if err != nil {
		r.logger.Error("Failed to get dependency PIs", zap.Error(err))
		return nil, fmt.Errorf("failed to get dependency PIs: %w", err)
	}
	return names, nil
}

// joinArrayColumns flattens array-typed columns into comma-joined
// strings, the shape downstream chart consumers expect.
func joinArrayColumns(rows []entity.Row) []entity.Row {
	for _, row := range rows {
		for key, value := range row {
			if items, ok := value.([]string); ok {
				row[key] = strings.Join(items, ", ")
			}
		}
	}
	return rows
}

func nullableString(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func nullableStrings(values []string) interface{} {
	if len(values) == 0 {
		return nil
	}
	return values
}
