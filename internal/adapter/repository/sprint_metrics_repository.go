package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sparksai/insight-server/internal/domain/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SprintSelection is the outcome of picking a sprint for a set of
// teams, either by explicit name or by auto-selection.
type SprintSelection struct {
	SprintID    int        `gorm:"column:sprint_id"`
	SprintName  string     `gorm:"column:sprint_name"`
	StartDate   *time.Time `gorm:"column:start_date"`
	EndDate     *time.Time `gorm:"column:end_date"`
	TotalIssues int        `gorm:"column:total_issues"`
}

// SprintProgress is the aggregate state of a team's active sprint.
type SprintProgress struct {
	SprintName       string     `gorm:"column:sprint_name"`
	StartDate        *time.Time `gorm:"column:start_date"`
	EndDate          *time.Time `gorm:"column:end_date"`
	TotalIssues      int        `gorm:"column:total_issues"`
	DoneIssues       int        `gorm:"column:done_issues"`
	InProgressIssues int        `gorm:"column:in_progress_issues"`
	TodoIssues       int        `gorm:"column:todo_issues"`
}

// SprintMetricsRepository handles sprint-scoped report queries
type SprintMetricsRepository interface {
	// SelectSprint picks the sprint to report on. With an empty
	// sprintName the currently active sprint with the largest total
	// issue count wins. Returns nil when nothing qualifies.
	SelectSprint(ctx context.Context, teamNames []string, sprintName string) (*SprintSelection, error)
	SprintBurndown(ctx context.Context, teamNames []string, sprintName, issueType string) ([]entity.Row, error)
	CurrentSprintProgress(ctx context.Context, teamName string) (*SprintProgress, error)
	ClosedSprints(ctx context.Context, teamNames []string, since time.Time, issueType, sortBy string) ([]entity.Row, error)
	IssuesTrend(ctx context.Context, teamNames []string, since time.Time, issueType string) ([]entity.Row, error)
	SprintPredictability(ctx context.Context, months int, teamNames []string) ([]entity.Row, error)
	ListSprints(ctx context.Context) ([]entity.Sprint, error)
}

type sprintMetricsRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSprintMetricsRepository creates a new sprint metrics repository
func NewSprintMetricsRepository(db *gorm.DB, logger *zap.Logger) SprintMetricsRepository {
	return &sprintMetricsRepository{
		db:     db,
		logger: logger,
	}
}

// SelectSprint resolves the target sprint for the given teams
func (r *sprintMetricsRepository) SelectSprint(ctx context.Context, teamNames []string, sprintName string) (*SprintSelection, error) {
	fragment := newQueryFragment()
	fragment.In("i.team_name", "team_name", teamNames)
	if sprintName != "" {
		fragment.Equals("s.name", "sprint_name", sprintName)
	} else {
		fragment.Raw("s.state = 'active'")
	}

	query := fmt.Sprintf(`
		SELECT
			s.sprint_id,
			s.name AS sprint_name,
			s.start_date,
			s.end_date,
			COUNT(i.issue_key) AS total_issues
		FROM public.jira_sprints s
		INNER JOIN public.jira_issues i ON i.current_sprint_id = s.sprint_id
		WHERE %s
		GROUP BY s.sprint_id, s.name, s.start_date, s.end_date
		ORDER BY total_issues DESC
		LIMIT 1
	`, fragment.Where())

	var selections []SprintSelection
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&selections).Error
	if err != nil {
		r.logger.Error("Failed to select sprint",
			zap.Strings("team_names", teamNames),
			zap.String("sprint_name", sprintName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to select sprint: %w", err)
	}
	if len(selections) == 0 {
		return nil, nil
	}
	return &selections[0], nil
}

// SprintBurndown retrieves the per-day burndown rows for a sprint
func (r *sprintMetricsRepository) SprintBurndown(ctx context.Context, teamNames []string, sprintName, issueType string) ([]entity.Row, error) {
	params := map[string]interface{}{
		"sprint_name": sprintName,
		"team_names":  teamNames,
		"issue_type":  issueType,
	}
	if len(teamNames) == 0 {
		params["team_names"] = nil
	}

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(`
		SELECT *
		FROM public.get_sprint_burndown_data(@sprint_name, CAST(@team_names AS text[]), @issue_type)
	`, params).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get sprint burndown",
			zap.String("sprint_name", sprintName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get sprint burndown: %w", err)
	}
	return formatRowDates(rows), nil
}

// CurrentSprintProgress aggregates the active sprint of one team
func (r *sprintMetricsRepository) CurrentSprintProgress(ctx context.Context, teamName string) (*SprintProgress, error) {
	var progress []SprintProgress
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			s.name AS sprint_name,
			MIN(s.start_date) AS start_date,
			MAX(s.end_date) AS end_date,
			COUNT(*) AS total_issues,
			COUNT(CASE WHEN i.status_category = 'Done' THEN 1 END) AS done_issues,
			COUNT(CASE WHEN i.status_category = 'In Progress' THEN 1 END) AS in_progress_issues,
			COUNT(CASE WHEN i.status_category = 'To Do' THEN 1 END) AS todo_issues
		FROM public.jira_issues i
		INNER JOIN public.jira_sprints s ON s.sprint_id = i.current_sprint_id
		WHERE i.team_name = @team_name AND s.state = 'active'
		GROUP BY s.name
		ORDER BY MAX(s.end_date) DESC
		LIMIT 1
	`, map[string]interface{}{"team_name": teamName}).Scan(&progress).Error
	if err != nil {
		r.logger.Error("Failed to get current sprint progress",
			zap.String("team_name", teamName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get current sprint progress: %w", err)
	}
	if len(progress) == 0 {
		return nil, nil
	}
	return &progress[0], nil
}

// ClosedSprints retrieves closed sprints with completion counts since
// the window start. sortBy "advanced" orders by start date then team.
func (r *sprintMetricsRepository) ClosedSprints(ctx context.Context, teamNames []string, since time.Time, issueType, sortBy string) ([]entity.Row, error) {
	fragment := newQueryFragment()
	fragment.Raw("s.state = 'closed'")
	fragment.Raw("s.end_date >= @start_date")
	fragment.Bind("start_date", since.Format("2006-01-02"))
	fragment.In("i.team_name", "team_name", teamNames)
	if issueType != "" {
		fragment.Equals("i.issue_type", "issue_type", issueType)
	}

	orderBy := "s.end_date DESC, i.team_name"
	if sortBy == "advanced" {
		orderBy = "s.start_date ASC, i.team_name ASC"
	}

	query := fmt.Sprintf(`
		SELECT
			s.sprint_id,
			s.name AS sprint_name,
			i.team_name,
			s.start_date,
			s.end_date,
			COUNT(*) AS total_issues,
			COUNT(CASE WHEN i.status_category = 'Done' THEN 1 END) AS issues_done
		FROM public.jira_sprints s
		INNER JOIN public.jira_issues i ON i.current_sprint_id = s.sprint_id
		WHERE %s
		GROUP BY s.sprint_id, s.name, i.team_name, s.start_date, s.end_date
		ORDER BY %s
	`, fragment.Where(), orderBy)

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get closed sprints",
			zap.Strings("team_names", teamNames),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get closed sprints: %w", err)
	}
	return formatRowDates(rows), nil
}

// IssuesTrend counts created and resolved issues per month label
func (r *sprintMetricsRepository) IssuesTrend(ctx context.Context, teamNames []string, since time.Time, issueType string) ([]entity.Row, error) {
	fragment := newQueryFragment()
	fragment.Equals("issue_type", "issue_type", issueType)
	fragment.Raw("created_date >= @start_date")
	fragment.Bind("start_date", since.Format("2006-01-02"))
	fragment.In("team_name", "team_name", teamNames)

	query := fmt.Sprintf(`
		SELECT
			TO_CHAR(created_date, 'YYYY-MM') AS month,
			COUNT(*) AS created_count,
			COUNT(CASE WHEN status_category = 'Done' THEN 1 END) AS resolved_count
		FROM public.jira_issues
		WHERE %s
		GROUP BY month
		ORDER BY month
	`, fragment.Where())

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(query, fragment.Params()).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get issues trend",
			zap.Strings("team_names", teamNames),
			zap.String("issue_type", issueType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get issues trend: %w", err)
	}
	return rows, nil
}

// SprintPredictability calls the warehouse predictability function.
// Issue key columns arrive comma-separated and are split into lists.
func (r *sprintMetricsRepository) SprintPredictability(ctx context.Context, months int, teamNames []string) ([]entity.Row, error) {
	params := map[string]interface{}{
		"months":     months,
		"team_names": teamNames,
	}
	if len(teamNames) == 0 {
		params["team_names"] = nil
	}

	var rows []entity.Row
	err := r.db.WithContext(ctx).Raw(`
		SELECT *
		FROM public.get_sprint_predictability_metrics_with_issues(@months, CAST(@team_names AS text[]))
	`, params).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to get sprint predictability",
			zap.Int("months", months),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get sprint predictability: %w", err)
	}

	rows = formatRowDates(rows)
	for _, row := range rows {
		for _, key := range []string{"completed_issue_keys", "total_committed_issue_keys", "issues_not_completed_keys"} {
			if value, ok := row[key]; ok {
				row[key] = splitKeyList(value)
			}
		}
	}
	return rows, nil
}

type sprintListRow struct {
	SprintID  int        `gorm:"column:sprint_id"`
	Name      string     `gorm:"column:name"`
	State     string     `gorm:"column:state"`
	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`
	Goal      *string    `gorm:"column:goal"`
}

// ListSprints retrieves the sprint dimension, newest first
func (r *sprintMetricsRepository) ListSprints(ctx context.Context) ([]entity.Sprint, error) {
	var rows []sprintListRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT sprint_id, name, state, start_date, end_date, goal
		FROM public.jira_sprints
		ORDER BY sprint_id DESC
	`).Scan(&rows).Error
	if err != nil {
		r.logger.Error("Failed to list sprints", zap.Error(err))
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}

	sprints := make([]entity.Sprint, 0, len(rows))
	for _, row := range rows {
		sprints = append(sprints, entity.Sprint{
			SprintID:  row.SprintID,
			Name:      row.Name,
			State:     row.State,
			StartDate: formatDatePtr(row.StartDate),
			EndDate:   formatDatePtr(row.EndDate),
			Goal:      row.Goal,
		})
	}
	return sprints, nil
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format("2006-01-02")
	return &formatted
}
