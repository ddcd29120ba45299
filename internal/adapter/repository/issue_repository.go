package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sparksai/insight-server/internal/domain/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// minDurationDays floors status durations to suppress noise from
// instantaneous transitions.
const minDurationDays = 0.05

// statusPriorityCase is the fixed business ordering for status names.
const statusPriorityCase = `
	CASE
		WHEN isd.status_name = 'In Progress' THEN 1
		WHEN isd.status_name LIKE '%Review%' THEN 2
		WHEN isd.status_name LIKE '%QA%' THEN 3
		WHEN isd.status_name LIKE '%Approved%' THEN 4
		ELSE 99
	END`

// BugFilter narrows bug aggregation queries. With an empty
// StatusCategory and IncludeDone false, 'Done' issues are excluded.
type BugFilter struct {
	IssueType      string
	TeamNames      []string
	StatusCategory string
	IncludeDone    bool
}

// StatusDetailParams select the issues behind one status bucket.
// YearMonth, when set, wins over the rolling window start.
type StatusDetailParams struct {
	StatusName string
	YearMonth  string
	Since      time.Time
	IssueType  string
	TeamNames  []string
}

// IssueHierarchyParams narrow the advanced issue hierarchy view.
type IssueHierarchyParams struct {
	PINames        []string
	TeamNames      []string
	HierarchyLevel *int
	Limit          int
}

// IssueRepository handles issue-scoped report queries
type IssueRepository interface {
	AvailableIssueTypes(ctx context.Context) ([]string, error)
	BugCountsByPriority(ctx context.Context, filter BugFilter) ([]entity.Row, error)
	BugCountsByTeamPriority(ctx context.Context, filter BugFilter) ([]entity.Row, error)
	StatusDurationSummary(ctx context.Context, since time.Time, issueType string, teamNames []string) ([]entity.Row, error)
	StatusDurationMonthly(ctx context.Context, since, until time.Time, teamNames []string) ([]entity.Row, error)
	StatusDurationDetail(ctx context.Context, params StatusDetailParams) ([]entity.Row, error)
	EpicHierarchyOptions(ctx context.Context) (teams, pis []string, err error)
	EpicHierarchy(ctx context.Context, piNames []string, teamName string, limit int) ([]entity.Row, error)
	IssueHierarchyOptions(ctx context.Context) (teams, pis []string, err error)
	IssueHierarchy(ctx context.Context, params IssueHierarchyParams) ([]entity.Row, error)
	ReleasePredictability(ctx context.Context, since time.Time) ([]entity.Row, error)
}

type issueRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewIssueRepository creates a new issue repository
func NewIssueRepository(db *gorm.DB, logger *zap.Logger) IssueRepository {
	return &issueRepository{
		db:     db,
		logger: logger,
	}
}

// AvailableIssueTypes lists the known issue types
func (r *issueRepository) AvailableIssueTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT issue_type
		FROM public.issue_types
		ORDER BY issue_type
	`).Scan(&types).Error
	if err != nil {
		r.logger.Error("Failed to get issue types", zap.Error(err))
		return nil, fmt.Errorf("failed to get issue types: %w", err)
	}
	return types, nil
}

func bugFragment(filter BugFilter) *queryFragment {
	fragment := newQueryFragment()
	if filter.IssueType != "" {
		fragment.Equals("issue_type", "issue_type", filter.IssueType)
	}
	fragment.In("team_name", "team_name", filter.TeamNames)
	if filter.StatusCategory != "" {
		fragment.Equals("status_category", "status_category", filter.StatusCategory)
	} else if !filter.IncludeDone {
		fragment.Raw("status_category != 'Done'")
	}
	return fragment
}

// BugCountsByPriority counts issues grouped by priority and status
// category under the filter
func (r *issueRepository) BugCountsByPriority(ctx context.Context, filter BugFilter) ([]entity.Row, error) {
	fragment := bugFragment(filter)
	query := fmt.Sprintf(`
		SELECT
			priority,
			status_category,
			COUNT(*) AS issue_count
		FROM public.jira_issues
		WHERE %s
		GROUP BY priority, status_category
		ORDER BY priority, status_category
	`, fragment.Where())

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get bug counts by priority", zap.Error(err))
		return nil, fmt.Errorf("failed to get bug counts by priority: %w", err)
	}
	return rows, nil
}

// BugCountsByTeamPriority counts issues grouped by team and priority
// under the filter
func (r *issueRepository) BugCountsByTeamPriority(ctx context.Context, filter BugFilter) ([]entity.Row, error) {
	fragment := bugFragment(filter)
	query := fmt.Sprintf(`
		SELECT
			team_name,
			priority,
			COUNT(*) AS issue_count
		FROM public.jira_issues
		WHERE %s
		GROUP BY team_name, priority
		ORDER BY team_name, priority
	`, fragment.Where())

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get bug counts by team", zap.Error(err))
		return nil, fmt.Errorf("failed to get bug counts by team: %w", err)
	}
	return rows, nil
}

// StatusDurationSummary averages in-progress status durations per
// status name over the window, in business priority order
func (r *issueRepository) StatusDurationSummary(ctx context.Context, since time.Time, issueType string, teamNames []string) ([]entity.Row, error) {
	fragment := newQueryFragment()
	fragment.Raw("isd.status_category = 'In Progress'")
	fragment.Raw(fmt.Sprintf("isd.duration_days >= %v", minDurationDays))
	fragment.Raw("isd.time_exited >= @start_date")
	fragment.Bind("start_date", since.Format("2006-01-02"))
	if issueType != "" {
		fragment.Equals("isd.issue_type", "issue_type", issueType)
	}
	fragment.In("isd.team_name", "team_name", teamNames)

	query := fmt.Sprintf(`
		SELECT
			isd.status_name,
			AVG(isd.duration_days) AS avg_duration_days
		FROM public.issue_status_durations isd
		WHERE %s
		GROUP BY isd.status_name
		HAVING AVG(isd.duration_days) >= %v
		ORDER BY %s
	`, fragment.Where(), minDurationDays, statusPriorityCase)

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get status duration summary", zap.Error(err))
		return nil, fmt.Errorf("failed to get status duration summary: %w", err)
	}
	return rows, nil
}

// StatusDurationMonthly averages durations per status and exit month
func (r *issueRepository) StatusDurationMonthly(ctx context.Context, since, until time.Time, teamNames []string) ([]entity.Row, error) {
	fragment := newQueryFragment()
	fragment.Raw("isd.time_exited >= @start_date")
	fragment.Bind("start_date", since.Format("2006-01-02"))
	fragment.Raw("isd.time_exited < @end_date")
	fragment.Bind("end_date", until.Format("2006-01-02"))
	fragment.Raw("isd.status_category = 'In Progress'")
	fragment.Raw(fmt.Sprintf("isd.duration_days >= %v", minDurationDays))
	fragment.In("isd.team_name", "team_name", teamNames)

	query := fmt.Sprintf(`
		SELECT
			isd.status_name,
			TO_CHAR(isd.time_exited, 'YYYY-MM') AS month_exited,
			AVG(isd.duration_days) AS avg_duration_days
		FROM public.issue_status_durations isd
		WHERE %s
		GROUP BY isd.status_name, month_exited
		HAVING AVG(isd.duration_days) >= %v
		ORDER BY %s, month_exited
	`, fragment.Where(), minDurationDays, statusPriorityCase)

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get monthly status durations", zap.Error(err))
		return nil, fmt.Errorf("failed to get monthly status durations: %w", err)
	}
	return rows, nil
}

// StatusDurationDetail lists the individual issues behind one status
// bucket, newest exit first
func (r *issueRepository) StatusDurationDetail(ctx context.Context, params StatusDetailParams) ([]entity.Row, error) {
	fragment := newQueryFragment()
	fragment.Raw("isd.status_category = 'In Progress'")
	fragment.Equals("isd.status_name", "status_name", params.StatusName)
	fragment.Raw(fmt.Sprintf("isd.duration_days >= %v", minDurationDays))

	if params.YearMonth != "" {
		fragment.Raw("TO_CHAR(isd.time_exited, 'YYYY-MM') = @year_month")
		fragment.Bind("year_month", params.YearMonth)
	} else {
		fragment.Raw("isd.time_exited >= @start_date")
		fragment.Bind("start_date", params.Since.Format("2006-01-02"))
	}
	if params.IssueType != "" {
		fragment.Equals("isd.issue_type", "issue_type", params.IssueType)
	}
	fragment.In("isd.team_name", "team_name", params.TeamNames)

	query := fmt.Sprintf(`
		SELECT
			isd.issue_key,
			ji.summary,
			isd.duration_days,
			isd.time_entered,
			isd.time_exited,
			isd.team_name,
			isd.issue_type
		FROM public.issue_status_durations isd
		INNER JOIN public.jira_issues ji ON isd.issue_key = ji.issue_key
		WHERE %s
		ORDER BY isd.time_exited DESC
	`, fragment.Where())

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get status duration detail",
			zap.String("status_name", params.StatusName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get status duration detail: %w", err)
	}
	return formatRowDates(rows), nil
}

// EpicHierarchyOptions lists the teams and PIs present in the epic
// hierarchy view
func (r *issueRepository) EpicHierarchyOptions(ctx context.Context) ([]string, []string, error) {
	return r.hierarchyOptions(ctx, "epic_hierarchy_with_progress")
}

// IssueHierarchyOptions lists the teams and PIs present in the advanced
// issue hierarchy view
func (r *issueRepository) IssueHierarchyOptions(ctx context.Context) ([]string, []string, error) {
	return r.hierarchyOptions(ctx, "get_issue_hierarchy_advanced")
}

func (r *issueRepository) hierarchyOptions(ctx context.Context, view string) ([]string, []string, error) {
	var teams []string
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT DISTINCT "Team Name of Epic"
		FROM %s
		WHERE "Team Name of Epic" IS NOT NULL
		ORDER BY "Team Name of Epic"
	`, view)).Scan(&teams).Error
	if err != nil {
		r.logger.Error("Failed to get hierarchy teams", zap.String("view", view), zap.Error(err))
		return nil, nil, fmt.Errorf("failed to get hierarchy teams: %w", err)
	}

	var pis []string
	err = r.db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT DISTINCT "Quarter PI of Epic"
		FROM %s
		WHERE "Quarter PI of Epic" IS NOT NULL
		ORDER BY "Quarter PI of Epic" DESC
	`, view)).Scan(&pis).Error
	if err != nil {
		r.logger.Error("Failed to get hierarchy PIs", zap.String("view", view), zap.Error(err))
		return nil, nil, fmt.Errorf("failed to get hierarchy PIs: %w", err)
	}
	return teams, pis, nil
}

// EpicHierarchy retrieves epic hierarchy rows under the filters
func (r *issueRepository) EpicHierarchy(ctx context.Context, piNames []string, teamName string, limit int) ([]entity.Row, error) {
	fragment := newQueryFragment()
	fragment.In(`"Quarter PI of Epic"`, "pi", piNames)
	if teamName != "" {
		fragment.Equals(`"Team Name of Epic"`, "team_name", teamName)
	}
	fragment.Bind("limit", limit)

	query := fmt.Sprintf(`
		SELECT *
		FROM epic_hierarchy_with_progress
		WHERE %s
		LIMIT @limit
	`, fragment.Where())

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get epic hierarchy", zap.Error(err))
		return nil, fmt.Errorf("failed to get epic hierarchy: %w", err)
	}
	return formatRowDates(rows), nil
}

// IssueHierarchy retrieves advanced issue hierarchy rows
func (r *issueRepository) IssueHierarchy(ctx context.Context, params IssueHierarchyParams) ([]entity.Row, error) {
	fragment := newQueryFragment()
	if params.HierarchyLevel != nil {
		fragment.Raw(`"Hierarchy Level" <= @hierarchy_level`)
		fragment.Bind("hierarchy_level", *params.HierarchyLevel)
	}
	if len(params.TeamNames) == 1 {
		fragment.Equals(`"Team Name of Epic"`, "team_name", params.TeamNames[0])
	} else {
		fragment.In(`"Team Name of Epic"`, "team", params.TeamNames)
	}
	fragment.In(`"Quarter PI of Epic"`, "pi", params.PINames)
	fragment.Bind("limit", params.Limit)

	query := fmt.Sprintf(`
		SELECT *
		FROM get_issue_hierarchy_advanced
		WHERE %s
		LIMIT @limit
	`, fragment.Where())

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get issue hierarchy", zap.Error(err))
		return nil, fmt.Errorf("failed to get issue hierarchy: %w", err)
	}
	return formatRowDates(rows), nil
}

// ReleasePredictability retrieves release predictability rows whose
// release started within the window
func (r *issueRepository) ReleasePredictability(ctx context.Context, since time.Time) ([]entity.Row, error) {
	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			version_name,
			project_key,
			release_start_date,
			release_date,
			total_epics_in_scope,
			epics_completed,
			epic_percent_completed,
			total_other_issues_in_scope,
			other_issues_completed,
			other_issues_percent_completed
		FROM public.release_predictability_analysis
		WHERE release_start_date >= @start_date
		ORDER BY release_start_date DESC
	`, map[string]interface{}{"start_date": since.Format("2006-01-02")}).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get release predictability", zap.Error(err))
		return nil, fmt.Errorf("failed to get release predictability: %w", err)
	}
	return formatRowDates(rows), nil
}
