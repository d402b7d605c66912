package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/crime-eda-backend-go/internal/database"
	"github.com/jengzang/crime-eda-backend-go/internal/ingest"
	"github.com/jengzang/crime-eda-backend-go/internal/logging"
	"github.com/jengzang/crime-eda-backend-go/internal/memo"
	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/repository"
	"github.com/jengzang/crime-eda-backend-go/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubIncidents struct{ rows []models.RawIncident }

func (s *stubIncidents) Name() string { return "stub" }

func (s *stubIncidents) ReadIncidents(context.Context) ([]models.RawIncident, error) {
	return s.rows, nil
}

type stubAreas struct{ table *models.AreaTable }

func (s *stubAreas) Name() string { return "stub-areas" }

func (s *stubAreas) ReadAreas(context.Context) (*models.AreaTable, error) {
	return s.table, nil
}

func incident(n int, category string, at time.Time, area int) models.RawIncident {
	return models.RawIncident{
		ID:            strconv.Itoa(n),
		CaseNumber:    fmt.Sprintf("JC%06d", n),
		Date:          at.Format(ingest.TimestampLayout),
		PrimaryType:   category,
		Description:   "DESC",
		Beat:          "0111",
		District:      "1",
		Ward:          "42",
		CommunityArea: strconv.Itoa(area),
		FBICode:       "06",
		IUCR:          "0820",
		Latitude:      "41.88",
		Longitude:     "-87.63",
	}
}

func newServices(t *testing.T) (*service.DatasetService, *service.AggregateService) {
	t.Helper()
	return newServicesWithStore(t, nil)
}

func newServicesWithStore(t *testing.T, store service.SnapshotStore) (*service.DatasetService, *service.AggregateService) {
	t.Helper()
	square := orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}}
	areas := models.NewAreaTable([]models.Area{
		{Number: 1, Name: "ROGERS PARK", AreaKm2: 4.76, Geometry: square},
		{Number: 2, Name: "WEST RIDGE", AreaKm2: 9.14, Geometry: square},
	})
	rows := []models.RawIncident{
		incident(1, "THEFT", time.Date(2020, time.December, 1, 9, 0, 0, 0, time.UTC), 1),
		incident(2, "THEFT", time.Date(2020, time.December, 2, 14, 0, 0, 0, time.UTC), 1),
		incident(3, "BATTERY", time.Date(2020, time.December, 3, 22, 0, 0, 0, time.UTC), 2),
	}

	m := memo.New(time.Hour, nil)
	t.Cleanup(m.Stop)
	datasets := service.NewDatasetService(&stubIncidents{rows: rows}, &stubAreas{table: areas}, store, m, nil, logging.NewNop())
	return datasets, service.NewAggregateService(datasets, m)
}

func newRouter(t *testing.T, load bool) *gin.Engine {
	t.Helper()
	datasets, aggregates := newServices(t)
	if load {
		_, err := datasets.Refresh(context.Background())
		require.NoError(t, err)
	}

	dh := NewDatasetHandler(datasets, aggregates)
	ah := NewAggregateHandler(aggregates)

	r := gin.New()
	r.GET("/overview", dh.GetOverview)
	r.GET("/columns", dh.GetColumns)
	r.GET("/preview", dh.GetPreview)
	r.GET("/missing", dh.GetMissing)
	r.GET("/history", dh.GetHistory)
	r.GET("/history/:id", dh.GetSnapshot)
	r.POST("/refresh", dh.Refresh)
	r.GET("/derivations", ah.ListDerivations)
	r.GET("/derivations/:name", ah.GetDerivation)
	r.GET("/summary", ah.GetSummary)
	r.GET("/periods", ah.GetPeriods)
	r.GET("/timeseries", ah.GetTimeSeries)
	r.GET("/ranking", ah.GetRanking)
	r.GET("/ranking/series", ah.GetRankingSeries)
	r.GET("/top-categories", ah.GetTopCategories)
	r.GET("/density", ah.GetDensity)
	r.GET("/density/map", ah.GetDensityMap)
	r.GET("/density/geojson", ah.GetDensityGeoJSON)
	r.GET("/time-of-day", ah.GetTimeOfDay)
	return r
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func get(t *testing.T, r *gin.Engine, method, target string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestHandlers_NotLoaded(t *testing.T) {
	r := newRouter(t, false)
	for _, target := range []string{"/overview", "/summary", "/periods", "/top-categories", "/density", "/time-of-day", "/missing", "/preview"} {
		code, env := get(t, r, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, code, target)
		assert.Equal(t, http.StatusServiceUnavailable, env.Code, target)
	}

	code, _ := get(t, r, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, r, http.MethodGet, "/summary")
	assert.Equal(t, http.StatusOK, code)
}

func TestHandlers_Dataset(t *testing.T) {
	r := newRouter(t, true)

	code, env := get(t, r, http.MethodGet, "/overview")
	require.Equal(t, http.StatusOK, code)
	var overview struct {
		Summary  models.DatasetSummary  `json:"summary"`
		Snapshot models.DatasetSnapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overview))
	assert.Equal(t, 3, overview.Summary.Incidents)
	assert.Equal(t, 3, overview.Snapshot.Clean.OutputRows)

	code, env = get(t, r, http.MethodGet, "/preview?limit=2")
	require.Equal(t, http.StatusOK, code)
	var preview []models.IncidentView
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Len(t, preview, 2)

	code, _ = get(t, r, http.MethodGet, "/preview?limit=x")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, r, http.MethodGet, "/preview?from=2020-13-01")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = get(t, r, http.MethodGet, "/columns")
	require.Equal(t, http.StatusOK, code)
	var columns []models.ColumnInfo
	require.NoError(t, json.Unmarshal(env.Data, &columns))
	assert.Len(t, columns, len(models.IncidentColumns))

	code, _ = get(t, r, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusOK, code)

	code, env = get(t, r, http.MethodGet, "/history")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))
	code, _ = get(t, r, http.MethodGet, "/history?limit=-1")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, r, http.MethodGet, "/history/latest")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandlers_Snapshot(t *testing.T) {
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, logging.NewNop()))

	datasets, _ := newServicesWithStore(t, repository.NewSnapshotRepository(db))
	snap, err := datasets.Refresh(context.Background())
	require.NoError(t, err)

	r := gin.New()
	r.GET("/history/:id", NewDatasetHandler(datasets, nil).GetSnapshot)

	for _, target := range []string{"/history/latest", "/history/" + strconv.FormatInt(snap.ID, 10)} {
		code, env := get(t, r, http.MethodGet, target)
		require.Equal(t, http.StatusOK, code, target)
		var detail models.SnapshotDetail
		require.NoError(t, json.Unmarshal(env.Data, &detail))
		assert.Equal(t, snap.ID, detail.Snapshot.ID, target)
		assert.Equal(t, snap.Version, detail.Snapshot.Version, target)
		assert.Equal(t, 3, sumCounts(detail.Periods[models.GranularityMonth]), target)
		assert.Len(t, detail.Density, 2, target)
	}

	code, env := get(t, r, http.MethodGet, "/history/latest?year=2019")
	require.Equal(t, http.StatusOK, code)
	var detail models.SnapshotDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Empty(t, detail.Density)

	code, _ = get(t, r, http.MethodGet, "/history/999")
	assert.Equal(t, http.StatusNotFound, code)
	for _, target := range []string{"/history/abc", "/history/0", "/history/latest?year=x"} {
		code, _ = get(t, r, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, code, target)
	}
}

func sumCounts(counts []models.PeriodCount) int {
	n := 0
	for _, p := range counts {
		n += p.Count
	}
	return n
}

func TestHandlers_Aggregates(t *testing.T) {
	r := newRouter(t, true)

	code, env := get(t, r, http.MethodGet, "/periods?granularity=day")
	require.Equal(t, http.StatusOK, code)
	var days []models.PeriodCount
	require.NoError(t, json.Unmarshal(env.Data, &days))
	assert.Len(t, days, 3)

	code, _ = get(t, r, http.MethodGet, "/periods?granularity=fortnight")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = get(t, r, http.MethodGet, "/top-categories")
	require.Equal(t, http.StatusOK, code)
	var top models.TopCategoryList
	require.NoError(t, json.Unmarshal(env.Data, &top))
	assert.Equal(t, 2020, top.Year)
	assert.Equal(t, []string{"THEFT", "BATTERY"}, top.Names())

	code, _ = get(t, r, http.MethodGet, "/top-categories?year=2019")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, _ = get(t, r, http.MethodGet, "/top-categories?limit=-2")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = get(t, r, http.MethodGet, "/ranking?category=THEFT")
	require.Equal(t, http.StatusOK, code)
	var ranking []models.CategoryMonthCount
	require.NoError(t, json.Unmarshal(env.Data, &ranking))
	require.Len(t, ranking, 1)
	assert.Equal(t, 2, ranking[0].Cumulative)

	code, env = get(t, r, http.MethodGet, "/density?area=2")
	require.Equal(t, http.StatusOK, code)
	var density models.DensityTable
	require.NoError(t, json.Unmarshal(env.Data, &density))
	require.Len(t, density.Rows, 1)
	assert.Equal(t, 1, density.Rows[0].Incidents)

	code, env = get(t, r, http.MethodGet, "/time-of-day")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Morning (05:00-11:59)")

	code, env = get(t, r, http.MethodGet, "/time-of-day?raw=true")
	require.Equal(t, http.StatusOK, code)
	var raw models.TimeOfDayDistribution
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.Len(t, raw.Summary, 4)

	for _, target := range []string{"/timeseries", "/ranking/series", "/summary", "/derivations", "/derivations/area_density", "/density/map?year=2020"} {
		code, _ := get(t, r, http.MethodGet, target)
		assert.Equal(t, http.StatusOK, code, target)
	}

	code, _ = get(t, r, http.MethodGet, "/derivations/nope")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, r, http.MethodGet, "/density/map?year=abc")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHandlers_DensityGeoJSON(t *testing.T) {
	r := newRouter(t, true)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/density/geojson", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}
