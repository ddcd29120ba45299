package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sparksai/insight-server/internal/adapter/repository"
	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
)

const defaultHierarchyLimit = 500

var yearMonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// IssuesBugsByPriority resolves bug counts grouped by priority, with a
// per-team breakdown, optionally scoped to one team or group.
func (r *ReportResolvers) IssuesBugsByPriority(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	issueType := filters.String("issue_type")
	if issueType == "" {
		issueType = "Bug"
	}
	teamName := filters.String("team_name")
	isGroup := filters.Bool("isGroup")
	statusCategory := filters.String("status_category")
	includeDone := filters.Bool("include_done")

	var teamNames []string
	if teamName != "" {
		var err error
		teamNames, err = r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
		if err != nil {
			return nil, err
		}
	}

	bugFilter := repository.BugFilter{
		IssueType:      issueType,
		TeamNames:      teamNames,
		StatusCategory: statusCategory,
		IncludeDone:    includeDone,
	}

	priorityRows, err := r.issues.BugCountsByPriority(ctx, bugFilter)
	if err != nil {
		return nil, err
	}
	prioritySummary := make([]map[string]interface{}, 0, len(priorityRows))
	for _, row := range priorityRows {
		prioritySummary = append(prioritySummary, map[string]interface{}{
			"priority":        stringOrUnspecified(row["priority"]),
			"status_category": stringOrUnspecified(row["status_category"]),
			"issue_count":     toInt(row["issue_count"]),
		})
	}

	teamRows, err := r.issues.BugCountsByTeamPriority(ctx, bugFilter)
	if err != nil {
		return nil, err
	}
	teamBreakdown := buildTeamBreakdown(teamRows)

	availableTeams, err := r.hierarchy.TeamNames(ctx)
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"issue_type":      issueType,
		"status_category": nilable(statusCategory),
		"include_done":    includeDone,
		"priority_count":  len(prioritySummary),
		"team_count":      len(teamBreakdown),
		"available_teams": availableTeams,
		"isGroup":         isGroup,
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, false)
	}

	return &entity.ReportResult{
		Data: map[string]interface{}{
			"priority_summary": prioritySummary,
			"team_breakdown":   teamBreakdown,
		},
		Meta: meta,
	}, nil
}

// IssuesBugsByTeam resolves bug counts grouped by team across the whole
// organization.
func (r *ReportResolvers) IssuesBugsByTeam(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	issueType := filters.String("issue_type")
	if issueType == "" {
		issueType = "Bug"
	}
	statusCategory := filters.String("status_category")
	includeDone := filters.Bool("include_done")

	teamRows, err := r.issues.BugCountsByTeamPriority(ctx, repository.BugFilter{
		IssueType:      issueType,
		StatusCategory: statusCategory,
		IncludeDone:    includeDone,
	})
	if err != nil {
		return nil, err
	}
	teamBreakdown := buildTeamBreakdown(teamRows)

	return &entity.ReportResult{
		Data: map[string]interface{}{
			"team_breakdown": teamBreakdown,
		},
		Meta: map[string]interface{}{
			"issue_type":      issueType,
			"status_category": nilable(statusCategory),
			"include_done":    includeDone,
			"team_count":      len(teamBreakdown),
		},
	}, nil
}

// buildTeamBreakdown folds (team, priority, count) rows into one entry
// per team. Rows arrive ordered by team, so entries keep that order.
func buildTeamBreakdown(rows []entity.Row) []map[string]interface{} {
	breakdown := []map[string]interface{}{}
	indexByTeam := map[string]int{}
	for _, row := range rows {
		team := stringOrUnspecified(row["team_name"])
		count := toInt(row["issue_count"])
		priorityEntry := map[string]interface{}{
			"priority":    stringOrUnspecified(row["priority"]),
			"issue_count": count,
		}

		index, ok := indexByTeam[team]
		if !ok {
			index = len(breakdown)
			indexByTeam[team] = index
			breakdown = append(breakdown, map[string]interface{}{
				"team_name":    team,
				"priorities":   []map[string]interface{}{},
				"total_issues": 0,
			})
		}
		entry := breakdown[index]
		entry["priorities"] = append(entry["priorities"].([]map[string]interface{}), priorityEntry)
		entry["total_issues"] = entry["total_issues"].(int) + count
	}
	return breakdown
}

// IssuesFlowStatusDuration resolves how long issues dwell in each
// in-progress status: an overall summary, a monthly trend, and an
// optional per-issue drill-down for one status bucket.
func (r *ReportResolvers) IssuesFlowStatusDuration(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	months := filters.Months(3)
	issueType := filters.String("issue_type")
	teamName := filters.String("team_name")
	isGroup := filters.Bool("isGroup")
	viewMode := filters.String("view_mode")
	if viewMode == "" {
		viewMode = "total"
	}

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	availableTeams, err := r.hierarchy.TeamNames(ctx)
	if err != nil {
		return nil, err
	}
	availableIssueTypes, err := r.issues.AvailableIssueTypes(ctx)
	if err != nil {
		return nil, err
	}

	since := windowStart(r.clock, months)
	now := r.clock.Now()

	summaryRows, err := r.issues.StatusDurationSummary(ctx, since, issueType, teamNames)
	if err != nil {
		return nil, err
	}
	summary := make([]map[string]interface{}, 0, len(summaryRows))
	for _, row := range summaryRows {
		summary = append(summary, map[string]interface{}{
			"status_name":       row["status_name"],
			"avg_duration_days": toFloat(row["avg_duration_days"]),
		})
	}

	monthly, err := r.monthlyStatusDurations(ctx, since, now, months, teamNames)
	if err != nil {
		return nil, err
	}

	var detail map[string]interface{}
	if detailStatus := filters.String("detail_status"); detailStatus != "" {
		detail, err = r.statusDurationDetail(ctx, filters, detailStatus, months, issueType, teamNames)
		if err != nil {
			return nil, err
		}
	}

	data := map[string]interface{}{
		"summary":   summary,
		"monthly":   monthly,
		"view_mode": viewMode,
	}
	if detail != nil {
		data["detail"] = detail
	} else {
		data["detail"] = nil
	}

	return &entity.ReportResult{
		Data: data,
		Meta: map[string]interface{}{
			"issue_type":            nilable(issueType),
			"team_name":             nilable(teamName),
			"months":                months,
			"available_teams":       availableTeams,
			"available_issue_types": availableIssueTypes,
		},
	}, nil
}

// monthlyStatusDurations shapes the monthly rows into one zero-filled
// dataset per status, ordered by workflow position.
func (r *ReportResolvers) monthlyStatusDurations(ctx context.Context, since, until time.Time, months int, teamNames []string) (map[string]interface{}, error) {
	labels := monthLabels(since, until)

	rows, err := r.issues.StatusDurationMonthly(ctx, since, until, teamNames)
	if err != nil {
		return nil, err
	}

	byStatus := map[string]map[string]float64{}
	for _, row := range rows {
		status := fmt.Sprint(row["status_name"])
		month := fmt.Sprint(row["month_exited"])
		if byStatus[status] == nil {
			byStatus[status] = map[string]float64{}
		}
		byStatus[status][month] = toFloat(row["avg_duration_days"])
	}

	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.SliceStable(statuses, func(i, j int) bool {
		pi, pj := statusPriority(statuses[i]), statusPriority(statuses[j])
		if pi != pj {
			return pi < pj
		}
		return statuses[i] < statuses[j]
	})

	datasets := make([]map[string]interface{}, 0, len(statuses))
	for _, status := range statuses {
		values := make([]float64, len(labels))
		for i, label := range labels {
			values[i] = byStatus[status][label]
		}
		datasets = append(datasets, map[string]interface{}{
			"label": status,
			"data":  values,
		})
	}

	var metaTeam interface{}
	if len(teamNames) == 1 {
		metaTeam = teamNames[0]
	}

	return map[string]interface{}{
		"labels":    labels,
		"datasets":  datasets,
		"months":    months,
		"team_name": metaTeam,
	}, nil
}

func (r *ReportResolvers) statusDurationDetail(ctx context.Context, filters Filters, statusName string, months int, issueType string, teamNames []string) (map[string]interface{}, error) {
	yearMonth := filters.String("detail_year_month")
	if yearMonth == "" {
		yearMonth = filters.String("year_month")
	}
	if yearMonth != "" && !yearMonthPattern.MatchString(yearMonth) {
		return nil, domainerrors.InvalidArgument("detail_year_month must be in YYYY-MM format")
	}

	detailMonths := filters.Int("detail_months", months)
	if yearMonth == "" && !validMonths[detailMonths] {
		detailMonths = 3
	}

	params := repository.StatusDetailParams{
		StatusName: statusName,
		YearMonth:  yearMonth,
		IssueType:  issueType,
		TeamNames:  teamNames,
	}
	if yearMonth == "" {
		params.Since = windowStart(r.clock, detailMonths)
	}

	rows, err := r.issues.StatusDurationDetail(ctx, params)
	if err != nil {
		return nil, err
	}

	issues := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, map[string]interface{}{
			"issue_key":     row["issue_key"],
			"summary":       row["summary"],
			"duration_days": toFloat(row["duration_days"]),
			"time_entered":  row["time_entered"],
			"time_exited":   row["time_exited"],
			"team_name":     row["team_name"],
			"issue_type":    row["issue_type"],
		})
	}

	detail := map[string]interface{}{
		"issues":      issues,
		"count":       len(issues),
		"status_name": statusName,
		"months":      nil,
		"year_month":  nil,
	}
	if yearMonth != "" {
		detail["year_month"] = yearMonth
	} else {
		detail["months"] = detailMonths
	}
	return detail, nil
}

// IssuesEpicsHierarchy resolves the epic tree with progress columns.
func (r *ReportResolvers) IssuesEpicsHierarchy(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	piNames := listWithFallbacks(filters, "pi", "pi_names", "pi_name")
	teamName := filters.String("team_name")
	limit := hierarchyLimit(filters)

	availableTeams, availablePIs, err := r.issues.EpicHierarchyOptions(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.issues.EpicHierarchy(ctx, piNames, teamName, limit)
	if err != nil {
		return nil, err
	}

	return &entity.ReportResult{
		Data: map[string]interface{}{
			"issues": rows,
			"count":  len(rows),
			"limit":  limit,
		},
		Meta: map[string]interface{}{
			"pi_names":        piNames,
			"team_name":       nilable(teamName),
			"available_teams": availableTeams,
			"available_pis":   availablePIs,
		},
	}, nil
}

// IssuesHierarchy resolves the full issue tree, optionally truncated at
// a hierarchy depth.
func (r *ReportResolvers) IssuesHierarchy(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	piNames := listWithFallbacks(filters, "pi", "pi_names", "pi_name")
	teamName := filters.String("team_name")
	isGroup := filters.Bool("isGroup")
	limit := hierarchyLimit(filters)

	var hierarchyLevel *int
	if raw := filters.String("hierarchy_level"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 0 {
			return nil, domainerrors.InvalidArgument("hierarchy_level must be a non-negative integer")
		}
		hierarchyLevel = &level
	}

	var teamNames []string
	if teamName != "" {
		var err error
		teamNames, err = r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
		if err != nil {
			return nil, err
		}
	}

	availableTeams, availablePIs, err := r.issues.IssueHierarchyOptions(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.issues.IssueHierarchy(ctx, repository.IssueHierarchyParams{
		PINames:        piNames,
		TeamNames:      teamNames,
		HierarchyLevel: hierarchyLevel,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}

	meta := map[string]interface{}{
		"hierarchy_level": nil,
		"pi_names":        piNames,
		"isGroup":         isGroup,
		"available_teams": availableTeams,
		"available_pis":   availablePIs,
	}
	if hierarchyLevel != nil {
		meta["hierarchy_level"] = *hierarchyLevel
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, true)
	} else {
		meta["team_name"] = nil
		meta["team"] = nil
	}

	return &entity.ReportResult{
		Data: map[string]interface{}{
			"issues": rows,
			"count":  len(rows),
			"limit":  limit,
		},
		Meta: meta,
	}, nil
}

// IssuesEpicDependencies resolves inbound and outbound cross-team epic
// dependency metrics.
func (r *ReportResolvers) IssuesEpicDependencies(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	piNames := listWithFallbacks(filters, "pi", "pi_names", "pi_name")
	teamName := filters.String("team_name")
	isGroup := filters.Bool("isGroup")

	teamNames, err := r.hierarchy.ResolveTeamNamesFromFilter(ctx, teamName, isGroup)
	if err != nil {
		return nil, err
	}

	availablePIs, err := r.pis.DependencyPIs(ctx)
	if err != nil {
		return nil, err
	}

	inbound := []entity.Row{}
	outbound := []entity.Row{}
	targetPIs := piNames
	if len(targetPIs) == 0 {
		targetPIs = []string{""}
	}
	for _, pi := range targetPIs {
		inboundRows, err := r.pis.EpicInboundDependencies(ctx, pi, teamNames)
		if err != nil {
			return nil, err
		}
		outboundRows, err := r.pis.EpicOutboundDependencies(ctx, pi, teamNames)
		if err != nil {
			return nil, err
		}
		inbound = append(inbound, inboundRows...)
		outbound = append(outbound, outboundRows...)
	}

	meta := map[string]interface{}{
		"pi_names":       piNames,
		"inbound_count":  len(inbound),
		"outbound_count": len(outbound),
		"available_pis":  availablePIs,
	}
	if teamName != "" {
		applyTeamMeta(meta, teamName, isGroup, teamNames, false)
	}

	return &entity.ReportResult{
		Data: map[string]interface{}{
			"inbound":  inbound,
			"outbound": outbound,
		},
		Meta: meta,
	}, nil
}

// IssuesReleasePredictability resolves delivery completion per release
// version within the lookback window.
func (r *ReportResolvers) IssuesReleasePredictability(ctx context.Context, filters Filters) (*entity.ReportResult, error) {
	months := filters.Int("months", 3)
	if months <= 0 {
		months = 3
	}

	rows, err := r.issues.ReleasePredictability(ctx, windowStart(r.clock, months))
	if err != nil {
		return nil, err
	}

	return &entity.ReportResult{
		Data: rows,
		Meta: map[string]interface{}{
			"months": months,
			"count":  len(rows),
		},
	}, nil
}

func listWithFallbacks(filters Filters, keys ...string) []string {
	for _, key := range keys {
		if values := filters.List(key); len(values) > 0 {
			return values
		}
	}
	return []string{}
}

func hierarchyLimit(filters Filters) int {
	limit := filters.Int("limit", defaultHierarchyLimit)
	if limit <= 0 || limit > 1000 {
		return defaultHierarchyLimit
	}
	return limit
}

func stringOrUnspecified(value interface{}) string {
	if value == nil {
		return "Unspecified"
	}
	if s, ok := value.(string); ok {
		if s == "" {
			return "Unspecified"
		}
		return s
	}
	return fmt.Sprint(value)
}
