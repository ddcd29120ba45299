package usecase

import (
	"context"
	"time"

	"github.com/sparksai/insight-server/internal/domain/entity"
)

// slackThreshold is the grace, in completion percent points, a sprint
// gets before its traffic light degrades.
const slackThreshold = 15.0

// TeamSprintBurndown resolves the per-day burndown of one sprint. With
// no explicit sprint_name the active sprint carrying the most issues is
// auto-selected.
func (r *ReportResolvers) TeamSprintBurndown(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	teamName := filters.String("team_name")
	issueType := filters.String("issue_type")
	if issueType == "" {
		issueType = "all"
	}
	sprintName := filters.String("sprint_name")
	isGroup := filters.Bool("isGroup")

	availableTeams, err := r.hierarchy.TeamNames(ctx)
	if err != nil {
		return nil, err
	}

	emptyMeta := func(autoSelected bool) map[string]interface{} {
		return map[string]interface{}{
			"team_name":              nilable(teamName),
			"issue_type":             issueType,
			"sprint_name":            nil,
			"sprint_id":              nil,
			"auto_selected":          autoSelected,
			"total_issues_in_sprint": 0,
			"start_date":             nil,
			"end_date":               nil,
			"available_teams":        availableTeams,
		}
	}

	// Burndown needs a team; without one only the picker options go out.
	if teamName == "" {
		return &entity.ReportResult{Data: []entity.Row{}, Meta: emptyMeta(false)}, nil
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	selection, err := r.sprints.SelectSprint(ctx, teamNames, sprintName)
	if err != nil {
		return nil, err
	}
	if selection == nil {
		return &entity.ReportResult{Data: []entity.Row{}, Meta: emptyMeta(false)}, nil
	}
	autoSelected := sprintName == ""

	rows, err := r.sprints.SprintBurndown(ctx, teamNames, selection.SprintName, issueType)
	if err != nil {
		return nil, err
	}

	totalIssues := selection.TotalIssues
	var startDate, endDate interface{}
	if selection.StartDate != nil {
		startDate = selection.StartDate.Format("2006-01-02")
	}
	if selection.EndDate != nil {
		endDate = selection.EndDate.Format("2006-01-02")
	}
	if len(rows) > 0 {
		if value, ok := rows[0]["total_issues"]; ok {
			totalIssues = toInt(value)
		}
		if startDate == nil {
			startDate = rows[0]["start_date"]
		}
		if endDate == nil {
			endDate = rows[0]["end_date"]
		}
	}

	return &entity.ReportResult{
		Data: rows,
		Meta: map[string]interface{}{
			"team_name":              teamName,
			"issue_type":             issueType,
			"sprint_name":            nilable(sprintName),
			"sprint_id":              selection.SprintID,
			"auto_selected":          autoSelected,
			"total_issues_in_sprint": totalIssues,
			"start_date":             startDate,
			"end_date":               endDate,
			"available_teams":        availableTeams,
		},
	}, nil
}

// TeamCurrentSprintProgress resolves the progress snapshot of one
// team's active sprint, with derived day counts and traffic lights.
func (r *ReportResolvers) TeamCurrentSprintProgress(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	teamName, err := filters.Require("team_name")
	if err != nil {
		return nil, err
	}

	progress, err := r.sprints.CurrentSprintProgress(ctx, teamName)
	if err != nil {
		return nil, err
	}

	today := truncateToDay(r.clock.Now())

	data := map[string]interface{}{
		"sprint_name":               nil,
		"start_date":                nil,
		"end_date":                  nil,
		"total_issues":              0,
		"done_issues":               0,
		"in_progress_issues":        0,
		"todo_issues":               0,
		"percent_completed":         0.0,
		"days_left":                 nil,
		"days_in_sprint":            nil,
		"percent_completed_status":  "green",
		"in_progress_issues_status": "green",
	}

	if progress != nil {
		percentCompleted := 0.0
		if progress.TotalIssues > 0 {
			percentCompleted = round2(float64(progress.DoneIssues) / float64(progress.TotalIssues) * 100)
		}

		data["sprint_name"] = progress.SprintName
		data["start_date"] = formatDateValue(progress.StartDate)
		data["end_date"] = formatDateValue(progress.EndDate)
		data["total_issues"] = progress.TotalIssues
		data["done_issues"] = progress.DoneIssues
		data["in_progress_issues"] = progress.InProgressIssues
		data["todo_issues"] = progress.TodoIssues
		data["percent_completed"] = percentCompleted
		data["days_left"] = intOrNil(daysLeft(progress.EndDate, today))
		data["days_in_sprint"] = intOrNil(daysInSprint(progress.StartDate, progress.EndDate))
		data["percent_completed_status"] = percentCompletedStatus(percentCompleted, progress.StartDate, progress.EndDate, today)
		data["in_progress_issues_status"] = inProgressIssuesStatus(progress.InProgressIssues, progress.TotalIssues)
	}

	return &entity.ReportResult{
		Data: data,
		Meta: map[string]interface{}{
			"team_name": teamName,
		},
	}, nil
}

// TeamClosedSprints resolves closed sprint velocity rows, newest first.
func (r *ReportResolvers) TeamClosedSprints(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	return r.closedSprintsReport(ctx, filters, "default")
}

// TeamSprintVelocityAdvanced resolves closed sprint rows ordered for
// the velocity trend chart, oldest first grouped by team.
func (r *ReportResolvers) TeamSprintVelocityAdvanced(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	return r.closedSprintsReport(ctx, filters, "advanced")
}

func (r *ReportResolvers) closedSprintsReport(ctx context.Context, filters Filters, sortBy string) (*entity.ReportResult, error) {
	teamName := filters.String("team_name")
	isGroup := filters.Bool("isGroup")
	months := filters.Months(3)
	issueType := filters.String("issue_type")

	availableTeams, err := r.hierarchy.TeamNames(ctx)
	if err != nil {
		return nil, err
	}
	availableIssueTypes, err := r.issues.AvailableIssueTypes(ctx)
	if err != nil {
		return nil, err
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	rows, err := r.sprints.ClosedSprints(ctx, teamNames, windowStart(r.clock, months), issueType, sortBy)
	if err != nil {
		return nil, err
	}

	totalDone := 0.0
	for _, row := range rows {
		totalDone += toFloat(row["issues_done"])
	}
	averageVelocity := 0.0
	if len(rows) > 0 {
		averageVelocity = round2(totalDone / float64(len(rows)))
	}

	return &entity.ReportResult{
		Data: rows,
		Meta: map[string]interface{}{
			"team_name":             nilable(teamName),
			"isGroup":               isGroup,
			"months":                months,
			"issue_type":            nilable(issueType),
			"count":                 len(rows),
			"average_velocity":      averageVelocity,
			"available_teams":       availableTeams,
			"available_issue_types": availableIssueTypes,
		},
	}, nil
}

// TeamIssuesTrend resolves created vs resolved counts per month.
func (r *ReportResolvers) TeamIssuesTrend(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	teamName, err := filters.Require("team_name")
	if err != nil {
		return nil, err
	}
	isGroup := filters.Bool("isGroup")
	issueType := filters.String("issue_type")
	if issueType == "" {
		issueType = "Bug"
	}
	months := filters.Int("months", 6)
	if months <= 0 {
		months = 6
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	rows, err := r.sprints.IssuesTrend(ctx, teamNames, windowStart(r.clock, months), issueType)
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"issue_type": issueType,
		"months":     months,
		"count":      len(rows),
	}
	applyTeamMeta(meta, teamName, isGroup, teamNames, false)

	return &entity.ReportResult{Data: rows, Meta: meta}, nil
}

// SprintPredictability resolves per-sprint commitment vs delivery
// metrics with the backing issue key lists.
func (r *ReportResolvers) SprintPredictability(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	months := filters.Months(3)
	teamName := filters.String("team_name")
	if teamName == "" {
		teamName = filters.String("team")
	}
	isGroup := filters.Bool("isGroup")

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	rows, err := r.sprints.SprintPredictability(ctx, months, teamNames)
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"months":  months,
		"count":   len(rows),
		"isGroup": isGroup,
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, false)
	}

	return &entity.ReportResult{Data: rows, Meta: meta}, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysLeft counts remaining sprint days inclusive of today. Returns -1
// for "unknown" when there is no end date.
func daysLeft(end *time.Time, today time.Time) int {
	if end == nil {
		return -1
	}
	endDay := truncateToDay(*end)
	if endDay.Before(today) {
		return 0
	}
	return int(endDay.Sub(today).Hours()/24) + 1
}

// daysInSprint counts the sprint length inclusive of both ends, -1 when
// either date is missing.
func daysInSprint(start, end *time.Time) int {
	if start == nil || end == nil {
		return -1
	}
	return int(truncateToDay(*end).Sub(truncateToDay(*start)).Hours()/24) + 1
}

func intOrNil(value int) interface{} {
	if value < 0 {
		return nil
	}
	return value
}

func formatDateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

// percentCompletedStatus grades sprint completion against the pace an
// on-track sprint would show at this point of its timeline.
func percentCompletedStatus(percentCompleted float64, start, end *time.Time, today time.Time) string {
	if start == nil || end == nil {
		return "green"
	}
	startDay := truncateToDay(*start)
	endDay := truncateToDay(*end)

	if today.Before(startDay) {
		return "green"
	}
	if !today.Before(endDay) {
		switch {
		case percentCompleted >= 100-slackThreshold:
			return "green"
		case percentCompleted >= 75:
			return "yellow"
		default:
			return "red"
		}
	}

	totalDays := endDay.Sub(startDay).Hours() / 24
	if totalDays <= 0 {
		return "green"
	}

	daysElapsed := today.Sub(startDay).Hours() / 24
	expectedCompletion := (daysElapsed / totalDays) * 100

	switch {
	case percentCompleted >= expectedCompletion-slackThreshold:
		return "green"
	case percentCompleted >= expectedCompletion-25.0:
		return "yellow"
	default:
		return "red"
	}
}

// inProgressIssuesStatus grades how much of the sprint is in flight at
// once.
func inProgressIssuesStatus(inProgress, total int) string {
	if total == 0 {
		return "green"
	}
	percentage := float64(inProgress) / float64(total) * 100
	switch {
	case percentage > 60:
		return "red"
	case percentage >= 40:
		return "yellow"
	default:
		return "green"
	}
}
