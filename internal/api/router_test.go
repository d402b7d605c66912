package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/crime-eda-backend-go/internal/config"
	"github.com/jengzang/crime-eda-backend-go/internal/handler"
	"github.com/jengzang/crime-eda-backend-go/internal/logging"
	"github.com/jengzang/crime-eda-backend-go/internal/memo"
	"github.com/jengzang/crime-eda-backend-go/internal/metrics"
	"github.com/jengzang/crime-eda-backend-go/internal/middleware"
	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/service"
)

const secret = "router-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type oneIncident struct{}

func (oneIncident) Name() string { return "one" }

func (oneIncident) ReadIncidents(context.Context) ([]models.RawIncident, error) {
	return []models.RawIncident{{
		ID: "1", CaseNumber: "JA000001", Date: "12/01/2020 09:00:00 AM", PrimaryType: "THEFT",
		Description: "DESC", Beat: "0111", District: "1", Ward: "42", CommunityArea: "1",
		FBICode: "06", IUCR: "0820", Latitude: "41.88", Longitude: "-87.63",
	}}, nil
}

type oneArea struct{}

func (oneArea) Name() string { return "one-area" }

func (oneArea) ReadAreas(context.Context) (*models.AreaTable, error) {
	square := orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}}
	return models.NewAreaTable([]models.Area{{Number: 1, Name: "ROGERS PARK", AreaKm2: 4.76, Geometry: square}}), nil
}

func newTestRouter(t *testing.T, limit int) *gin.Engine {
	t.Helper()
	met := metrics.New()
	m := memo.New(time.Hour, met)
	t.Cleanup(m.Stop)
	datasets := service.NewDatasetService(oneIncident{}, oneArea{}, nil, m, met, logging.NewNop())
	aggregates := service.NewAggregateService(datasets, m)

	limiter := middleware.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	cfg := &config.Config{JWTSecret: secret}
	return SetupRouter(cfg, Handlers{
		Dataset:   handler.NewDatasetHandler(datasets, aggregates),
		Aggregate: handler.NewAggregateHandler(aggregates),
	}, limiter, met, logging.NewNop())
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndCORS(t *testing.T) {
	r := newTestRouter(t, 100)

	w := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, httptest.NewRequest(http.MethodOptions, "/api/v1/aggregates/summary", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_RefreshRequiresToken(t *testing.T) {
	r := newTestRouter(t, 100)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/aggregates/summary", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/dataset/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := middleware.IssueToken(secret, "ops", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/aggregates/summary", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crime_eda_rows_ingested_total 1")
}

func TestRouter_RateLimited(t *testing.T) {
	r := newTestRouter(t, 2)

	for i := 0; i < 2; i++ {
		w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/dataset/columns", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/dataset/columns", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// health is outside the limited group
	w = do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
