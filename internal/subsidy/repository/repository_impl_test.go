package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"gorm.io/gorm"
)

type fixture struct {
	repo   domain.Repository
	node   *snowflake.Node
	seoul  domain.Region
	all    domain.Region
	living domain.Category
	youth  domain.TargetGroup
	senior domain.TargetGroup
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Region{},
		&domain.Category{},
		&domain.TargetGroup{},
		&domain.Subsidy{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	f := &fixture{
		repo:   NewRepository(db),
		node:   node,
		seoul:  domain.Region{ID: node.Generate(), Name: "서울특별시", Code: "SEOUL"},
		all:    domain.Region{ID: node.Generate(), Name: "전국", Code: domain.RegionCodeAll},
		living: domain.Category{ID: node.Generate(), Name: "생활안정", Code: "LIVING"},
		youth:  domain.TargetGroup{ID: node.Generate(), Name: "청년", Code: "YOUTH"},
		senior: domain.TargetGroup{ID: node.Generate(), Name: "노인", Code: "SENIOR"},
	}
	require.NoError(t, db.Create(&f.seoul).Error)
	require.NoError(t, db.Create(&f.all).Error)
	require.NoError(t, db.Create(&f.living).Error)
	require.NoError(t, db.Create(&f.youth).Error)
	require.NoError(t, db.Create(&f.senior).Error)
	return f
}

func (f *fixture) subsidy(title, externalID string, sourceType domain.SourceType, status domain.SubsidyStatus) *domain.Subsidy {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := &domain.Subsidy{
		ID:           f.node.Generate(),
		Title:        title,
		Organization: "서울특별시",
		Status:       status,
		SourceType:   sourceType,
		RegionID:     f.seoul.ID,
		CategoryID:   f.living.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if externalID != "" {
		s.ExternalID = &externalID
	}
	return s
}

func TestInsertAndGetByExternalID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.subsidy("청년 주거 지원", "svc_1", domain.SourcePublicDataPortal, domain.StatusActive)
	require.NoError(t, f.repo.Insert(ctx, created))

	found, err := f.repo.GetByExternalID(ctx, "svc_1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = f.repo.GetByExternalID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	exists, err := f.repo.Exists(ctx, "svc_1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInsert_DuplicateExternalIDRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Insert(ctx, f.subsidy("원본", "dup_1", domain.SourcePublicDataPortal, domain.StatusActive)))
	err := f.repo.Insert(ctx, f.subsidy("중복", "dup_1", domain.SourcePublicDataPortal, domain.StatusActive))
	assert.ErrorIs(t, err, domain.ErrDuplicateExternalID)
}

func TestUpdate_PreservesCallerTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.subsidy("수정 대상", "svc_upd", domain.SourcePublicDataPortal, domain.StatusActive)
	require.NoError(t, f.repo.Insert(ctx, s))

	stamp := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	s.Title = "수정됨"
	s.UpdatedAt = stamp
	require.NoError(t, f.repo.Update(ctx, s))

	found, err := f.repo.GetByExternalID(ctx, "svc_upd")
	require.NoError(t, err)
	assert.Equal(t, "수정됨", found.Title)
	assert.True(t, stamp.Equal(found.UpdatedAt))
}

func TestCloseMissing_OnlyTouchesOwnSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Insert(ctx, f.subsidy("유지", "youth_1", domain.SourceYouthCenter, domain.StatusActive)))
	require.NoError(t, f.repo.Insert(ctx, f.subsidy("닫힘", "youth_2", domain.SourceYouthCenter, domain.StatusActive)))
	require.NoError(t, f.repo.Insert(ctx, f.subsidy("이미 만료", "youth_3", domain.SourceYouthCenter, domain.StatusExpired)))
	require.NoError(t, f.repo.Insert(ctx, f.subsidy("다른 출처", "svc_9", domain.SourcePublicDataPortal, domain.StatusActive)))

	closedAt := time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)
	closed, err := f.repo.CloseMissing(ctx, domain.SourceYouthCenter, []string{"youth_1"}, closedAt)
	require.NoError(t, err)
	assert.EqualValues(t, 1, closed)

	for externalID, want := range map[string]domain.SubsidyStatus{
		"youth_1": domain.StatusActive,
		"youth_2": domain.StatusClosed,
		"youth_3": domain.StatusExpired,
		"svc_9":   domain.StatusActive,
	} {
		found, err := f.repo.GetByExternalID(ctx, externalID)
		require.NoError(t, err)
		assert.Equal(t, want, found.Status, externalID)
	}

	// The closed row carries the caller's timestamp, not wall-clock time.
	closedRow, err := f.repo.GetByExternalID(ctx, "youth_2")
	require.NoError(t, err)
	assert.True(t, closedAt.Equal(closedRow.UpdatedAt))
}

func TestCloseMissing_EmptySeenListIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repo.Insert(ctx, f.subsidy("유지", "youth_1", domain.SourceYouthCenter, domain.StatusActive)))

	closed, err := f.repo.CloseMissing(ctx, domain.SourceYouthCenter, nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s := f.subsidy(fmt.Sprintf("지원금 %d", i), fmt.Sprintf("svc_%d", i), domain.SourcePublicDataPortal, domain.StatusActive)
		s.CreatedAt = time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, f.repo.Insert(ctx, s))
	}

	status := domain.StatusActive
	filter := domain.Filter{
		Status:         &status,
		SortBy:         domain.SortByCreatedAt,
		SortDescending: true,
		Page:           1,
		PageSize:       2,
	}

	first, err := f.repo.List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "지원금 4", first[0].Title)

	filter.Page = 3
	last, err := f.repo.List(ctx, filter)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "지원금 0", last[0].Title)

	count, err := f.repo.Count(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestList_KeywordMatchesTitleDescriptionOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	byTitle := f.subsidy("월세 지원", "kw_1", domain.SourceManual, domain.StatusActive)
	byDesc := f.subsidy("다른 제목", "kw_2", domain.SourceManual, domain.StatusActive)
	byDesc.Description = "월세를 지원합니다"
	unrelated := f.subsidy("무관한 사업", "kw_3", domain.SourceManual, domain.StatusActive)
	require.NoError(t, f.repo.Insert(ctx, byTitle))
	require.NoError(t, f.repo.Insert(ctx, byDesc))
	require.NoError(t, f.repo.Insert(ctx, unrelated))

	results, err := f.repo.List(ctx, domain.Filter{Keyword: "월세"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestReplaceTargetGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.subsidy("대상 그룹", "tg_1", domain.SourceManual, domain.StatusActive)
	require.NoError(t, f.repo.Insert(ctx, s))

	require.NoError(t, f.repo.ReplaceTargetGroups(ctx, s, []domain.TargetGroup{f.youth}))
	found, err := f.repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, found.TargetGroups, 1)
	assert.Equal(t, "YOUTH", found.TargetGroups[0].Code)

	require.NoError(t, f.repo.ReplaceTargetGroups(ctx, s, []domain.TargetGroup{f.senior}))
	found, err = f.repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, found.TargetGroups, 1)
	assert.Equal(t, "SENIOR", found.TargetGroups[0].Code)

	groupID := f.senior.ID
	results, err := f.repo.List(ctx, domain.Filter{TargetGroupID: &groupID})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRegionAndCategoryLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	region, err := f.repo.GetRegionByCode(ctx, "SEOUL")
	require.NoError(t, err)
	assert.Equal(t, "서울특별시", region.Name)

	_, err = f.repo.GetRegionByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrRegionNotFound)

	top, err := f.repo.GetTopLevelRegions(ctx)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	_, err = f.repo.GetCategoryByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	group, err := f.repo.GetTargetGroupByCode(ctx, "YOUTH")
	require.NoError(t, err)
	assert.Equal(t, "청년", group.Name)
}
