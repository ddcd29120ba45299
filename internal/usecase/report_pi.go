package usecase

import (
	"context"

	"github.com/sparksai/insight-server/internal/adapter/repository"
	"github.com/sparksai/insight-server/internal/domain/entity"
)

// PIBurndown resolves the burndown of one program increment. With no
// PI selected only the picker options go out.
func (r *ReportResolvers) PIBurndown(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	piName := filters.String("pi")
	issueType := filters.String("issue_type")
	if issueType == "" {
		issueType = "Epic"
	}
	project := filters.String("project")
	teamName := filters.String("team_name")
	if teamName == "" {
		teamName = filters.String("team")
	}
	isGroup := filters.Bool("isGroup")

	availablePIs, err := r.pis.AvailablePIs(ctx)
	if err != nil {
		return nil, err
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	rows, err := r.pis.PIBurndown(ctx, piName, project, issueType, teamNames)
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"pi":            nilable(piName),
		"issue_type":    issueType,
		"project":       nilable(project),
		"isGroup":       isGroup,
		"available_pis": availablePIs,
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, true)
	} else {
		meta["team_name"] = nil
		meta["team"] = nil
	}

	return &entity.ReportResult{Data: rows, Meta: meta}, nil
}

// PIPredictability resolves planned vs delivered metrics for one or
// more program increments.
func (r *ReportResolvers) PIPredictability(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	piNames := filters.List("pi_names")
	if len(piNames) == 0 {
		piNames = filters.List("pi")
	}
	teamName := filters.String("team_name")
	if teamName == "" {
		teamName = filters.String("team")
	}
	isGroup := filters.Bool("isGroup")

	availableTeams, err := r.hierarchy.TeamNames(ctx)
	if err != nil {
		return nil, err
	}
	availablePIs, err := r.pis.AvailablePIs(ctx)
	if err != nil {
		return nil, err
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	rows := []entity.Row{}
	if len(piNames) > 0 {
		rows, err = r.pis.PIPredictability(ctx, piNames, teamNames)
		if err != nil {
			return nil, err
		}
	}

	meta := map[string]interface{}{
		"pi_names":        piNames,
		"isGroup":         isGroup,
		"count":           len(rows),
		"available_teams": availableTeams,
		"available_pis":   availablePIs,
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, true)
	} else {
		meta["team_name"] = nil
		meta["team"] = nil
	}

	return &entity.ReportResult{Data: rows, Meta: meta}, nil
}

// EpicScopeChanges resolves scope-change metrics for the selected
// quarters.
func (r *ReportResolvers) EpicScopeChanges(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	quarters := filters.List("quarters")
	if len(quarters) == 0 {
		quarters = filters.List("quarter")
	}

	availablePIs, err := r.pis.AvailablePIs(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.pis.ScopeChanges(ctx, quarters)
	if err != nil {
		return nil, err
	}

	return &entity.ReportResult{
		Data: rows,
		Meta: map[string]interface{}{
			"quarters":      quarters,
			"count":         len(rows),
			"available_pis": availablePIs,
		},
	}, nil
}

// wipStatus grades the share of epics in flight. Unlike the sprint
// variant, an empty scope reads as "gray" (no signal).
func wipStatus(inProgress, total int) string {
	if total <= 0 {
		return "gray"
	}
	percentage := float64(inProgress) / float64(total) * 100
	switch {
	case percentage < 30:
		return "green"
	case percentage <= 50:
		return "yellow"
	default:
		return "red"
	}
}

// PIMetricsSummary resolves the status-today summary of a PI plus an
// epic WIP traffic light.
func (r *ReportResolvers) PIMetricsSummary(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	piName := filters.String("pi")
	if piName == "" {
		piName = filters.String("pi_name")
	}
	project := filters.String("project")
	issueType := filters.String("issue_type")
	if issueType == "" {
		issueType = "Epic"
	}
	teamName := filters.String("team_name")
	if teamName == "" {
		teamName = filters.String("team")
	}
	isGroup := filters.Bool("isGroup")
	planGracePeriod := filters.Int("plan_grace_period", 5)

	availableTeams, err := r.hierarchy.TeamNames(ctx)
	if err != nil {
		return nil, err
	}
	availableIssueTypes, err := r.issues.AvailableIssueTypes(ctx)
	if err != nil {
		return nil, err
	}
	availablePIs, err := r.pis.AvailablePIs(ctx)
	if err != nil {
		return nil, err
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	// TODO: re-enable team scoping of the summary and WIP queries once
	// the summary function aggregates correctly for partial team sets.
	// Until then this report always covers all teams; the team filter
	// is echoed in meta only.
	var scopedTeamNames []string

	summary, err := r.pis.PISummary(ctx, repository.PISummaryParams{
		PIName:              piName,
		ProjectKeys:         project,
		IssueType:           issueType,
		TeamNames:           scopedTeamNames,
		PlanGracePeriodDays: planGracePeriod,
	})
	if err != nil {
		return nil, err
	}

	totalEpics, inProgressEpics, err := r.pis.EpicWIP(ctx, piName, scopedTeamNames, project)
	if err != nil {
		return nil, err
	}
	inProgressPercentage := 0.0
	if totalEpics > 0 {
		inProgressPercentage = float64(inProgressEpics) / float64(totalEpics) * 100
	}

	wipData := map[string]interface{}{
		"count_in_progress":        inProgressEpics,
		"count_in_progress_status": wipStatus(inProgressEpics, totalEpics),
		"total_epics":              totalEpics,
		"in_progress_percentage":   round2(inProgressPercentage),
		"pi":                       nilable(piName),
		"team_name":                nilable(teamName),
		"project":                  nilable(project),
	}

	meta := map[string]interface{}{
		"pi":                    nilable(piName),
		"project":               nilable(project),
		"issue_type":            issueType,
		"isGroup":               isGroup,
		"available_teams":       availableTeams,
		"available_issue_types": availableIssueTypes,
		"available_pis":         availablePIs,
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, false)
	} else {
		meta["team_name"] = nil
	}

	return &entity.ReportResult{
		Data: map[string]interface{}{
			"status_today": summary,
			"wip":          wipData,
		},
		Meta: meta,
	}, nil
}

// PIMetricsSummaryByTeam resolves the per-team status-today summary of
// a PI. WIP breakdowns are produced only when a PI is selected.
func (r *ReportResolvers) PIMetricsSummaryByTeam(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	piName := filters.String("pi")
	if piName == "" {
		piName = filters.String("pi_name")
	}
	project := filters.String("project")
	issueType := filters.String("issue_type")
	if issueType == "" {
		issueType = "Epic"
	}
	teamName := filters.String("team_name")
	if teamName == "" {
		teamName = filters.String("team")
	}
	isGroup := filters.Bool("isGroup")
	planGracePeriod := filters.Int("plan_grace_period", 5)

	availableTeams, err := r.hierarchy.TeamNames(ctx)
	if err != nil {
		return nil, err
	}
	availableIssueTypes, err := r.issues.AvailableIssueTypes(ctx)
	if err != nil {
		return nil, err
	}
	availablePIs, err := r.pis.AvailablePIs(ctx)
	if err != nil {
		return nil, err
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	summary, err := r.pis.PISummaryByTeam(ctx, repository.PISummaryParams{
		PIName:              piName,
		ProjectKeys:         project,
		IssueType:           issueType,
		TeamNames:           teamNames,
		PlanGracePeriodDays: planGracePeriod,
	})
	if err != nil {
		return nil, err
	}

	wipByTeam := []map[string]interface{}{}
	if piName != "" {
		teamWIP, err := r.pis.EpicWIPByTeam(ctx, piName, teamNames, project)
		if err != nil {
			return nil, err
		}
		for _, wip := range teamWIP {
			percentage := 0.0
			if wip.TotalEpics > 0 {
				percentage = float64(wip.InProgressEpics) / float64(wip.TotalEpics) * 100
			}
			wipByTeam = append(wipByTeam, map[string]interface{}{
				"team_name":                wip.TeamName,
				"count_in_progress":        wip.InProgressEpics,
				"count_in_progress_status": wipStatus(wip.InProgressEpics, wip.TotalEpics),
				"total_epics":              wip.TotalEpics,
				"in_progress_percentage":   round2(percentage),
			})
		}
	}

	meta := map[string]interface{}{
		"pi":                    nilable(piName),
		"project":               nilable(project),
		"issue_type":            issueType,
		"isGroup":               isGroup,
		"available_teams":       availableTeams,
		"available_issue_types": availableIssueTypes,
		"available_pis":         availablePIs,
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, false)
	} else {
		meta["team_name"] = nil
	}

	return &entity.ReportResult{
		Data: map[string]interface{}{
			"status_today_by_team": summary,
			"wip_by_team":          wipByTeam,
		},
		Meta: meta,
	}, nil
}
