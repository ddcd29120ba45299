package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sparksai/insight-server/internal/adapter/repository"
	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
)

// MockSprintMetricsRepository is a mock implementation of SprintMetricsRepository
type MockSprintMetricsRepository struct {
	mock.Mock
}

func (m *MockSprintMetricsRepository) SelectSprint(ctx context.Context, teamNames []string, sprintName string) (*repository.SprintSelection, error) {
	args := m.Called(ctx, teamNames, sprintName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SprintSelection), args.Error(1)
}

func (m *MockSprintMetricsRepository) SprintBurndown(ctx context.Context, teamNames []string, sprintName, issueType string) ([]entity.Row, error) {
	args := m.Called(ctx, teamNames, sprintName, issueType)
	return args.Get(0).([]entity.Row), args.Error(1)
}

func (m *MockSprintMetricsRepository) CurrentSprintProgress(ctx context.Context, teamName string) (*repository.SprintProgress, error) {
	args := m.Called(ctx, teamName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SprintProgress), args.Error(1)
}

func (m *MockSprintMetricsRepository) ClosedSprints(ctx context.Context, teamNames []string, since time.Time, issueType, sortBy string) ([]entity.Row, error) {
	args := m.Called(ctx, teamNames, since, issueType, sortBy)
	return args.Get(0).([]entity.Row), args.Error(1)
}

func (m *MockSprintMetricsRepository) IssuesTrend(ctx context.Context, teamNames []string, since time.Time, issueType string) ([]entity.Row, error) {
	args := m.Called(ctx, teamNames, since, issueType)
	return args.Get(0).([]entity.Row), args.Error(1)
}

func (m *MockSprintMetricsRepository) SprintPredictability(ctx context.Context, months int, teamNames []string) ([]entity.Row, error) {
	args := m.Called(ctx, months, teamNames)
	return args.Get(0).([]entity.Row), args.Error(1)
}

func (m *MockSprintMetricsRepository) ListSprints(ctx context.Context) ([]entity.Sprint, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Sprint), args.Error(1)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestPercentCompletedStatus(t *testing.T) {
	start := timePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	end := timePtr(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))

	t.Run("before the sprint starts", func(t *testing.T) {
		today := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "green", percentCompletedStatus(0, start, end, today))
	})

	t.Run("at or past the end date", func(t *testing.T) {
		today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "green", percentCompletedStatus(90, start, end, today))
		assert.Equal(t, "yellow", percentCompletedStatus(80, start, end, today))
		assert.Equal(t, "red", percentCompletedStatus(50, start, end, today))
	})

	t.Run("mid sprint against expected pace", func(t *testing.T) {
		// Day 5 of 9, expected completion about 55.6 percent.
		today := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "green", percentCompletedStatus(50, start, end, today))
		assert.Equal(t, "yellow", percentCompletedStatus(35, start, end, today))
		assert.Equal(t, "red", percentCompletedStatus(20, start, end, today))
	})

	t.Run("missing or degenerate dates", func(t *testing.T) {
		today := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "green", percentCompletedStatus(0, nil, end, today))
		assert.Equal(t, "green", percentCompletedStatus(0, start, nil, today))
		assert.Equal(t, "green", percentCompletedStatus(0, start, start, today))
	})
}

func TestInProgressIssuesStatus(t *testing.T) {
	assert.Equal(t, "green", inProgressIssuesStatus(0, 0))
	assert.Equal(t, "green", inProgressIssuesStatus(3, 10))
	assert.Equal(t, "yellow", inProgressIssuesStatus(4, 10))
	assert.Equal(t, "yellow", inProgressIssuesStatus(6, 10))
	assert.Equal(t, "red", inProgressIssuesStatus(7, 10))
}

func TestDaysLeft(t *testing.T) {
	today := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, -1, daysLeft(nil, today))
	assert.Equal(t, 0, daysLeft(timePtr(time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)), today))
	assert.Equal(t, 1, daysLeft(timePtr(time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)), today))
	assert.Equal(t, 6, daysLeft(timePtr(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)), today))
}

func TestDaysInSprint(t *testing.T) {
	start := timePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	end := timePtr(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 10, daysInSprint(start, end))
	assert.Equal(t, -1, daysInSprint(nil, end))
	assert.Equal(t, -1, daysInSprint(start, nil))
}

func TestIntOrNil(t *testing.T) {
	assert.Equal(t, 5, intOrNil(5))
	assert.Equal(t, 0, intOrNil(0))
	assert.Nil(t, intOrNil(-1))
}

func TestTeamCurrentSprintProgress(t *testing.T) {
	ctx := context.Background()
	clock := fixedClock{now: time.Date(2025, 6, 6, 10, 30, 0, 0, time.UTC)}

	t.Run("requires team_name", func(t *testing.T) {
		resolvers := &ReportResolvers{clock: clock, logger: zap.NewNop()}
		_, err := resolvers.TeamCurrentSprintProgress(ctx, Filters{})
		assert.ErrorIs(t, err, domainerrors.ErrMissingFilter)
	})

	t.Run("no active sprint yields zeroed snapshot", func(t *testing.T) {
		sprints := new(MockSprintMetricsRepository)
		sprints.On("CurrentSprintProgress", ctx, "Platform").Return(nil, nil)
		resolvers := &ReportResolvers{sprints: sprints, clock: clock, logger: zap.NewNop()}

		result, err := resolvers.TeamCurrentSprintProgress(ctx, Filters{"team_name": "Platform"})
		assert.NoError(t, err)

		data := result.Data.(map[string]interface{})
		assert.Nil(t, data["sprint_name"])
		assert.Equal(t, 0, data["total_issues"])
		assert.Equal(t, "green", data["percent_completed_status"])
		assert.Equal(t, "green", data["in_progress_issues_status"])
		assert.Equal(t, "Platform", result.Meta["team_name"])
	})

	t.Run("derives percentages, day counts, and lights", func(t *testing.T) {
		sprints := new(MockSprintMetricsRepository)
		sprints.On("CurrentSprintProgress", ctx, "Platform").Return(&repository.SprintProgress{
			SprintName:       "Sprint 42",
			StartDate:        timePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
			EndDate:          timePtr(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)),
			TotalIssues:      10,
			DoneIssues:       5,
			InProgressIssues: 3,
			TodoIssues:       2,
		}, nil)
		resolvers := &ReportResolvers{sprints: sprints, clock: clock, logger: zap.NewNop()}

		result, err := resolvers.TeamCurrentSprintProgress(ctx, Filters{"team_name": "Platform"})
		assert.NoError(t, err)

		data := result.Data.(map[string]interface{})
		assert.Equal(t, "Sprint 42", data["sprint_name"])
		assert.Equal(t, "2025-06-01", data["start_date"])
		assert.Equal(t, "2025-06-10", data["end_date"])
		assert.Equal(t, 50.0, data["percent_completed"])
		assert.Equal(t, 5, data["days_left"])
		assert.Equal(t, 10, data["days_in_sprint"])
		assert.Equal(t, "green", data["percent_completed_status"])
		assert.Equal(t, "green", data["in_progress_issues_status"])

		sprints.AssertExpectations(t)
	})
}

func TestTeamSprintBurndown_NoTeamSelected(t *testing.T) {
	ctx := context.Background()

	hierarchyRepo := new(MockHierarchyRepository)
	hierarchyRepo.On("LoadAllTeams", ctx).Return([]entity.Team{
		{TeamKey: 1, TeamName: "Platform"},
		{TeamKey: 2, TeamName: "Mobile"},
	}, nil)
	hierarchy := newHierarchyUnderTest(hierarchyRepo, newFakeCacheStore())

	sprints := new(MockSprintMetricsRepository)
	resolvers := &ReportResolvers{
		sprints:   sprints,
		hierarchy: hierarchy,
		clock:     fixedClock{now: time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)},
		logger:    zap.NewNop(),
	}

	result, err := resolvers.TeamSprintBurndown(ctx, Filters{"issue_type": "Story"})
	assert.NoError(t, err)
	assert.Equal(t, []entity.Row{}, result.Data)
	assert.Nil(t, result.Meta["team_name"])
	assert.Equal(t, "Story", result.Meta["issue_type"])
	assert.Equal(t, false, result.Meta["auto_selected"])
	assert.Equal(t, []string{"Platform", "Mobile"}, result.Meta["available_teams"])

	sprints.AssertNotCalled(t, "SelectSprint", mock.Anything, mock.Anything, mock.Anything)
}
