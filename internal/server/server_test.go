package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	logdomain "github.com/subsidytracker/subsidytracker/internal/collectionlog/domain"
	logrepository "github.com/subsidytracker/subsidytracker/internal/collectionlog/repository"
	collectordomain "github.com/subsidytracker/subsidytracker/internal/collector/domain"
	"github.com/subsidytracker/subsidytracker/internal/config"
	subsidydomain "github.com/subsidytracker/subsidytracker/internal/subsidy/domain"
	"github.com/subsidytracker/subsidytracker/internal/subsidy/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubRunner struct {
	sources   []string
	collected int
	err       error
	lastRun   string
}

func (r *stubRunner) RunAll(ctx context.Context) int { return 0 }

func (r *stubRunner) RunOne(ctx context.Context, sourceName string) (int, error) {
	for _, s := range r.sources {
		if s == sourceName {
			r.lastRun = sourceName
			return r.collected, r.err
		}
	}
	return 0, collectordomain.ErrUnknownSource
}

func (r *stubRunner) Sources() []string { return r.sources }

type fixture struct {
	server  *Server
	engine  *gin.Engine
	store   subsidydomain.Repository
	logs    logdomain.Repository
	node    *snowflake.Node
	runner  *stubRunner
	regions map[string]subsidydomain.Region
	cats    map[string]subsidydomain.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&subsidydomain.Region{},
		&subsidydomain.Category{},
		&subsidydomain.TargetGroup{},
		&subsidydomain.Subsidy{},
		&logdomain.CollectionLog{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	regions := map[string]subsidydomain.Region{}
	for _, r := range []struct{ name, code string }{
		{"전국", subsidydomain.RegionCodeAll},
		{"서울특별시", "SEOUL"},
	} {
		region := subsidydomain.Region{ID: node.Generate(), Name: r.name, Code: r.code}
		require.NoError(t, db.Create(&region).Error)
		regions[r.code] = region
	}
	seoul := regions["SEOUL"]
	gangnam := subsidydomain.Region{ID: node.Generate(), Name: "강남구", Code: "SEOUL_GANGNAM", ParentID: &seoul.ID}
	require.NoError(t, db.Create(&gangnam).Error)
	regions[gangnam.Code] = gangnam

	cats := map[string]subsidydomain.Category{}
	for _, c := range []struct{ name, code string }{
		{"기타", subsidydomain.CategoryCodeEtc},
		{"생활안정", "LIVING"},
	} {
		category := subsidydomain.Category{ID: node.Generate(), Name: c.name, Code: c.code}
		require.NoError(t, db.Create(&category).Error)
		cats[c.code] = category
	}

	runner := &stubRunner{sources: []string{"PublicDataPortal", "YouthCenter", "Bokjiro"}, collected: 42}

	engine := NewEngine(zap.NewNop())
	srv := NewServer(Params{
		Engine:    engine,
		Config:    config.Config{},
		Subsidies: repository.NewRepository(db),
		Logs:      logrepository.NewRepository(db),
		Runner:    runner,
		Log:       zap.NewNop(),
	})
	srv.RegisterAPIRoutes()

	return &fixture{
		server:  srv,
		engine:  engine,
		store:   repository.NewRepository(db),
		logs:    logrepository.NewRepository(db),
		node:    node,
		runner:  runner,
		regions: regions,
		cats:    cats,
	}
}

func (f *fixture) addSubsidy(t *testing.T, title string, region subsidydomain.Region, category subsidydomain.Category, status subsidydomain.SubsidyStatus) *subsidydomain.Subsidy {
	t.Helper()
	externalID := "test_" + title
	subsidy := &subsidydomain.Subsidy{
		ID:           f.node.Generate(),
		Title:        title,
		Organization: "테스트 기관",
		ExternalID:   &externalID,
		Status:       status,
		SourceType:   subsidydomain.SourceManual,
		RegionID:     region.ID,
		CategoryID:   category.ID,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.store.Insert(context.Background(), subsidy))
	return subsidy
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) post(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListSubsidies_DefaultsToActive(t *testing.T) {
	f := newFixture(t)
	f.addSubsidy(t, "활성 지원금", f.regions["SEOUL"], f.cats["LIVING"], subsidydomain.StatusActive)
	f.addSubsidy(t, "마감된 지원금", f.regions["SEOUL"], f.cats["LIVING"], subsidydomain.StatusClosed)

	rec := f.get(t, "/api/subsidies")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[pagedResult](t, rec)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "활성 지원금", result.Items[0].Title)
	assert.EqualValues(t, 1, result.TotalCount)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
}

func TestListSubsidies_FiltersByRegionAndStatus(t *testing.T) {
	f := newFixture(t)
	f.addSubsidy(t, "서울 지원금", f.regions["SEOUL"], f.cats["LIVING"], subsidydomain.StatusActive)
	f.addSubsidy(t, "전국 지원금", f.regions[subsidydomain.RegionCodeAll], f.cats["LIVING"], subsidydomain.StatusActive)
	f.addSubsidy(t, "서울 마감", f.regions["SEOUL"], f.cats["LIVING"], subsidydomain.StatusClosed)

	rec := f.get(t, "/api/subsidies?regionId="+f.regions["SEOUL"].ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[pagedResult](t, rec)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "서울 지원금", result.Items[0].Title)

	rec = f.get(t, "/api/subsidies?regionId="+f.regions["SEOUL"].ID.String()+"&status=Closed")
	result = decode[pagedResult](t, rec)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "서울 마감", result.Items[0].Title)
}

func TestListSubsidies_InvalidStatusRejected(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/subsidies?status=Bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSubsidy(t *testing.T) {
	f := newFixture(t)
	created := f.addSubsidy(t, "상세 조회 지원금", f.regions["SEOUL"], f.cats["LIVING"], subsidydomain.StatusActive)

	rec := f.get(t, "/api/subsidies/"+created.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[subsidyDetail](t, rec)
	assert.Equal(t, "상세 조회 지원금", detail.Title)
	assert.Equal(t, "서울특별시", detail.RegionName)
	assert.Equal(t, "생활안정", detail.CategoryName)

	rec = f.get(t, "/api/subsidies/"+f.node.Generate().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.get(t, "/api/subsidies/not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchSubsidies_RequiresKeyword(t *testing.T) {
	f := newFixture(t)
	f.addSubsidy(t, "청년 월세 지원", f.regions["SEOUL"], f.cats["LIVING"], subsidydomain.StatusActive)
	f.addSubsidy(t, "노인 돌봄 지원", f.regions["SEOUL"], f.cats["LIVING"], subsidydomain.StatusClosed)

	rec := f.get(t, "/api/subsidies/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.get(t, "/api/subsidies/search?keyword=월세")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[pagedResult](t, rec)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "청년 월세 지원", result.Items[0].Title)

	// Search spans all statuses.
	rec = f.get(t, "/api/subsidies/search?keyword=돌봄")
	result = decode[pagedResult](t, rec)
	assert.Len(t, result.Items, 1)
}

func TestListRegions_NestsChildren(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/regions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []regionDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)

	var seoul *regionDTO
	for i := range body.Data {
		if body.Data[i].Code == "SEOUL" {
			seoul = &body.Data[i]
		}
	}
	require.NotNil(t, seoul)
	require.Len(t, seoul.Children, 1)
	assert.Equal(t, "강남구", seoul.Children[0].Name)
}

func TestGetRegionChildren(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/regions/"+f.regions["SEOUL"].ID.String()+"/children")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []regionDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "SEOUL_GANGNAM", body.Data[0].Code)
}

func TestListCategories(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []categoryDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestGetCollectionLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.logs.Add(ctx, &logdomain.CollectionLog{
			ID:         f.node.Generate(),
			Source:     "PublicDataPortal",
			SourceType: subsidydomain.SourcePublicDataPortal,
			StartedAt:  time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.UTC),
			Status:     logdomain.StatusCompleted,
		}))
	}

	rec := f.get(t, "/api/collection/logs?count=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []collectionLogDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	// Most recent first.
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), body.Data[0].StartedAt)
}

func TestTriggerCollection(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/api/collection/trigger/YouthCenter")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "42건 수집 완료")
	assert.Equal(t, "YouthCenter", f.runner.lastRun)

	rec = f.post(t, "/api/collection/trigger/Nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCollectionSources(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/collection/sources")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PublicDataPortal")
	assert.Contains(t, rec.Body.String(), "Bokjiro")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
