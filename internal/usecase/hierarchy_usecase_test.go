package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
)

// fakeCacheStore is an in-memory CacheStore for exercising the
// read-through and invalidation paths without Redis.
type fakeCacheStore struct {
	entries map[string][]byte
	sets    int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: map[string][]byte{}}
}

func (s *fakeCacheStore) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok := s.entries[key]
	return value, ok
}

func (s *fakeCacheStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	s.entries[key] = value
	s.sets++
	return true
}

func (s *fakeCacheStore) Exists(ctx context.Context, key string) bool {
	_, ok := s.entries[key]
	return ok
}

func (s *fakeCacheStore) DeleteMany(ctx context.Context, keys ...string) int {
	deleted := 0
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

func (s *fakeCacheStore) DeleteByPattern(ctx context.Context, pattern string) int {
	prefix := strings.TrimSuffix(pattern, "*")
	deleted := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

// MockHierarchyRepository is a mock implementation of HierarchyRepository
type MockHierarchyRepository struct {
	mock.Mock
}

func (m *MockHierarchyRepository) LoadAllGroups(ctx context.Context) ([]entity.Group, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Group), args.Error(1)
}

func (m *MockHierarchyRepository) LoadAllTeams(ctx context.Context) ([]entity.Team, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Team), args.Error(1)
}

func (m *MockHierarchyRepository) LoadTeamsInGroup(ctx context.Context, groupID int, includeChildren bool) ([]entity.TeamRef, error) {
	args := m.Called(ctx, groupID, includeChildren)
	return args.Get(0).([]entity.TeamRef), args.Error(1)
}

func (m *MockHierarchyRepository) GroupExists(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockHierarchyRepository) TeamExists(ctx context.Context, id int) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockHierarchyRepository) CreateGroup(ctx context.Context, name string, parentID *int, aiInsight bool) (*entity.Group, error) {
	args := m.Called(ctx, name, parentID, aiInsight)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Group), args.Error(1)
}

func (m *MockHierarchyRepository) UpdateGroup(ctx context.Context, id int, name *string, parentID *int, aiInsight *bool) (*entity.Group, error) {
	args := m.Called(ctx, id, name, parentID, aiInsight)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Group), args.Error(1)
}

func (m *MockHierarchyRepository) DeleteGroup(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newHierarchyUnderTest(repo *MockHierarchyRepository, cache *fakeCacheStore) *HierarchyUsecase {
	return NewHierarchyUsecase(repo, cache, 15*time.Minute, zap.NewNop())
}

func TestHierarchyUsecase_LoadAllGroups_ReadThrough(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCacheStore()
	repo := new(MockHierarchyRepository)
	usecase := newHierarchyUnderTest(repo, cache)

	groups := []entity.Group{{ID: 1, Name: "Engineering"}}
	repo.On("LoadAllGroups", ctx).Return(groups, nil).Once()

	// Cold read hits the repository and populates the cache.
	loaded, err := usecase.LoadAllGroups(ctx)
	assert.NoError(t, err)
	assert.Equal(t, groups, loaded)
	assert.True(t, cache.Exists(ctx, "groups:all"))

	// Warm read is served from cache; the Once expectation would fail
	// if the repository were asked again.
	loaded, err = usecase.LoadAllGroups(ctx)
	assert.NoError(t, err)
	assert.Equal(t, groups, loaded)

	repo.AssertExpectations(t)
}

func TestHierarchyUsecase_LoadAllGroups_UndecodableCacheEntry(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCacheStore()
	cache.entries["groups:all"] = []byte("not json")
	repo := new(MockHierarchyRepository)
	usecase := newHierarchyUnderTest(repo, cache)

	groups := []entity.Group{{ID: 1, Name: "Engineering"}}
	repo.On("LoadAllGroups", ctx).Return(groups, nil).Once()

	loaded, err := usecase.LoadAllGroups(ctx)
	assert.NoError(t, err)
	assert.Equal(t, groups, loaded)

	repo.AssertExpectations(t)
}

func TestHierarchyUsecase_CreateGroup_InvalidatesBothKeys(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCacheStore()
	cache.entries["groups:all"] = []byte("[]")
	cache.entries["teams:all"] = []byte("[]")
	repo := new(MockHierarchyRepository)
	usecase := newHierarchyUnderTest(repo, cache)

	parentID := 1
	created := &entity.Group{ID: 7, Name: "Platform", ParentID: &parentID}
	repo.On("GroupExists", ctx, parentID).Return(true, nil)
	repo.On("CreateGroup", ctx, "Platform", &parentID, false).Return(created, nil)

	group, err := usecase.CreateGroup(ctx, "Platform", &parentID, false)
	assert.NoError(t, err)
	assert.Equal(t, created, group)
	assert.False(t, cache.Exists(ctx, "groups:all"))
	assert.False(t, cache.Exists(ctx, "teams:all"))

	repo.AssertExpectations(t)
}

func TestHierarchyUsecase_CreateGroup_MissingParent(t *testing.T) {
	ctx := context.Background()
	repo := new(MockHierarchyRepository)
	usecase := newHierarchyUnderTest(repo, newFakeCacheStore())

	parentID := 42
	repo.On("GroupExists", ctx, parentID).Return(false, nil)

	_, err := usecase.CreateGroup(ctx, "Platform", &parentID, false)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	repo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHierarchyUsecase_UpdateGroup_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty patch", func(t *testing.T) {
		repo := new(MockHierarchyRepository)
		usecase := newHierarchyUnderTest(repo, newFakeCacheStore())

		_, err := usecase.UpdateGroup(ctx, 1, nil, nil, nil)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
	})

	t.Run("group not found", func(t *testing.T) {
		repo := new(MockHierarchyRepository)
		usecase := newHierarchyUnderTest(repo, newFakeCacheStore())
		repo.On("GroupExists", ctx, 1).Return(false, nil)

		name := "Renamed"
		_, err := usecase.UpdateGroup(ctx, 1, &name, nil, nil)
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})

	t.Run("self parent", func(t *testing.T) {
		repo := new(MockHierarchyRepository)
		usecase := newHierarchyUnderTest(repo, newFakeCacheStore())
		repo.On("GroupExists", ctx, 1).Return(true, nil)

		parentID := 1
		_, err := usecase.UpdateGroup(ctx, 1, nil, &parentID, nil)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
	})

	t.Run("missing new parent", func(t *testing.T) {
		repo := new(MockHierarchyRepository)
		usecase := newHierarchyUnderTest(repo, newFakeCacheStore())
		repo.On("GroupExists", ctx, 1).Return(true, nil)
		repo.On("GroupExists", ctx, 9).Return(false, nil)

		parentID := 9
		_, err := usecase.UpdateGroup(ctx, 1, nil, &parentID, nil)
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})
}

func TestHierarchyUsecase_GroupAIInsight(t *testing.T) {
	ctx := context.Background()

	t.Run("create carries the flag through", func(t *testing.T) {
		repo := new(MockHierarchyRepository)
		usecase := newHierarchyUnderTest(repo, newFakeCacheStore())

		created := &entity.Group{ID: 3, Name: "AI Guild", AIInsight: true}
		repo.On("CreateGroup", ctx, "AI Guild", (*int)(nil), true).Return(created, nil)

		group, err := usecase.CreateGroup(ctx, "AI Guild", nil, true)
		assert.NoError(t, err)
		assert.True(t, group.AIInsight)
		repo.AssertExpectations(t)
	})

	t.Run("flag alone is a valid patch and invalidates the cache", func(t *testing.T) {
		cache := newFakeCacheStore()
		cache.entries["groups:all"] = []byte("[]")
		cache.entries["teams:all"] = []byte("[]")
		repo := new(MockHierarchyRepository)
		usecase := newHierarchyUnderTest(repo, cache)

		aiInsight := true
		updated := &entity.Group{ID: 3, Name: "AI Guild", AIInsight: true}
		repo.On("GroupExists", ctx, 3).Return(true, nil)
		repo.On("UpdateGroup", ctx, 3, (*string)(nil), (*int)(nil), &aiInsight).Return(updated, nil)

		group, err := usecase.UpdateGroup(ctx, 3, nil, nil, &aiInsight)
		assert.NoError(t, err)
		assert.True(t, group.AIInsight)
		assert.False(t, cache.Exists(ctx, "groups:all"))
		assert.False(t, cache.Exists(ctx, "teams:all"))
		repo.AssertExpectations(t)
	})
}

func TestHierarchyUsecase_DeleteGroup_Invalidates(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCacheStore()
	cache.entries["groups:all"] = []byte("[]")
	cache.entries["teams:all"] = []byte("[]")
	repo := new(MockHierarchyRepository)
	usecase := newHierarchyUnderTest(repo, cache)

	repo.On("DeleteGroup", ctx, 3).Return(nil)

	assert.NoError(t, usecase.DeleteGroup(ctx, 3))
	assert.False(t, cache.Exists(ctx, "groups:all"))
	assert.False(t, cache.Exists(ctx, "teams:all"))
}

func TestHierarchyUsecase_TeamsInGroup_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockHierarchyRepository)
	usecase := newHierarchyUnderTest(repo, newFakeCacheStore())
	repo.On("GroupExists", ctx, 5).Return(false, nil)

	_, err := usecase.TeamsInGroup(ctx, 5, true)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestHierarchyUsecase_ResolveTeamNamesFromFilter(t *testing.T) {
	ctx := context.Background()

	newUsecase := func() (*HierarchyUsecase, *MockHierarchyRepository) {
		repo := new(MockHierarchyRepository)
		usecase := newHierarchyUnderTest(repo, newFakeCacheStore())
		return usecase, repo
	}

	t.Run("empty name means all teams", func(t *testing.T) {
		usecase, _ := newUsecase()
		names, err := usecase.ResolveTeamNamesFromFilter(ctx, "", true)
		assert.NoError(t, err)
		assert.Nil(t, names)
	})

	t.Run("plain team passes through", func(t *testing.T) {
		usecase, _ := newUsecase()
		names, err := usecase.ResolveTeamNamesFromFilter(ctx, "Platform", false)
		assert.NoError(t, err)
		assert.Equal(t, []string{"Platform"}, names)
	})

	t.Run("group expands to descendant member teams", func(t *testing.T) {
		usecase, repo := newUsecase()
		repo.On("LoadAllGroups", ctx).Return([]entity.Group{
			{ID: 1, Name: "Engineering"},
			{ID: 2, Name: "Platform Org", ParentID: intPtr(1)},
		}, nil)
		repo.On("LoadAllTeams", ctx).Return([]entity.Team{
			{TeamKey: 1, TeamName: "Core", GroupKeys: []int{2}},
			{TeamKey: 2, TeamName: "API", GroupKeys: []int{1}},
			{TeamKey: 3, TeamName: "Sales Ops", GroupKeys: []int{9}},
		}, nil)

		names, err := usecase.ResolveTeamNamesFromFilter(ctx, "Engineering", true)
		assert.NoError(t, err)
		assert.Equal(t, []string{"API", "Core"}, names)
	})

	t.Run("group with no members falls back to literal name", func(t *testing.T) {
		usecase, repo := newUsecase()
		repo.On("LoadAllGroups", ctx).Return([]entity.Group{{ID: 1, Name: "Empty Org"}}, nil)
		repo.On("LoadAllTeams", ctx).Return([]entity.Team{}, nil)

		names, err := usecase.ResolveTeamNamesFromFilter(ctx, "Empty Org", true)
		assert.NoError(t, err)
		assert.Equal(t, []string{"Empty Org"}, names)
	})

	t.Run("unknown group falls back to literal name", func(t *testing.T) {
		usecase, repo := newUsecase()
		repo.On("LoadAllGroups", ctx).Return([]entity.Group{}, nil)
		repo.On("LoadAllTeams", ctx).Return([]entity.Team{}, nil)

		names, err := usecase.ResolveTeamNamesFromFilter(ctx, "Ghost", true)
		assert.NoError(t, err)
		assert.Equal(t, []string{"Ghost"}, names)
	})
}
