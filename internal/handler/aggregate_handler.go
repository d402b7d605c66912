package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/service"
	"github.com/jengzang/crime-eda-backend-go/pkg/response"
)

// AggregateHandler handles HTTP requests for aggregate tables and charts
type AggregateHandler struct {
	aggregates *service.AggregateService
}

// NewAggregateHandler creates a new aggregate handler
func NewAggregateHandler(aggregates *service.AggregateService) *AggregateHandler {
	return &AggregateHandler{
		aggregates: aggregates,
	}
}

// ListDerivations handles GET /api/v1/aggregates/derivations
func (h *AggregateHandler) ListDerivations(c *gin.Context) {
	response.Success(c, h.aggregates.Derivations())
}

// GetDerivation handles GET /api/v1/aggregates/derivations/:name
func (h *AggregateHandler) GetDerivation(c *gin.Context) {
	v, err := h.aggregates.Derive(c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, v)
}

// GetSummary handles GET /api/v1/aggregates/summary
func (h *AggregateHandler) GetSummary(c *gin.Context) {
	summary, err := h.aggregates.Summary()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, summary)
}

// GetPeriods handles GET /api/v1/aggregates/periods
func (h *AggregateHandler) GetPeriods(c *gin.Context) {
	var filter models.PeriodFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	counts, err := h.aggregates.PeriodCounts(filter)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, counts)
}

// GetTimeSeries handles GET /api/v1/aggregates/timeseries
func (h *AggregateHandler) GetTimeSeries(c *gin.Context) {
	chart, err := h.aggregates.TimeSeries()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, chart)
}

// GetRanking handles GET /api/v1/aggregates/ranking
func (h *AggregateHandler) GetRanking(c *gin.Context) {
	var filter models.RankingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	rows, err := h.aggregates.CategoryRanking(filter)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rows)
}

// GetRankingSeries handles GET /api/v1/aggregates/ranking/series
func (h *AggregateHandler) GetRankingSeries(c *gin.Context) {
	lines, err := h.aggregates.RankingSeries()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, lines)
}

// GetTopCategories handles GET /api/v1/aggregates/top-categories
func (h *AggregateHandler) GetTopCategories(c *gin.Context) {
	var filter models.RankingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	if filter.Limit < 0 {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	top, err := h.aggregates.TopCategories(filter)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, top)
}

// GetDensity handles GET /api/v1/aggregates/density
func (h *AggregateHandler) GetDensity(c *gin.Context) {
	var filter models.DensityFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	density, err := h.aggregates.Density(filter)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, density)
}

// GetDensityMap handles GET /api/v1/aggregates/density/map
func (h *AggregateHandler) GetDensityMap(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}

	areaMap, err := h.aggregates.AreaMap(year)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, areaMap)
}

// GetDensityGeoJSON handles GET /api/v1/aggregates/density/geojson. The
// body is a bare FeatureCollection so map clients can load it directly.
func (h *AggregateHandler) GetDensityGeoJSON(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}

	areaMap, err := h.aggregates.AreaMap(year)
	if err != nil {
		fail(c, err)
		return
	}
	body, err := areaMap.Features.MarshalJSON()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

// GetTimeOfDay handles GET /api/v1/aggregates/time-of-day
func (h *AggregateHandler) GetTimeOfDay(c *gin.Context) {
	if c.Query("raw") == "true" {
		dist, err := h.aggregates.TimeOfDayRaw()
		if err != nil {
			fail(c, err)
			return
		}
		response.Success(c, dist)
		return
	}

	dist, err := h.aggregates.TimeOfDay()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dist)
}

func yearParam(c *gin.Context) (int, bool) {
	s := c.Query("year")
	if s == "" {
		return 0, true
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 0 {
		response.BadRequest(c, "Invalid year parameter")
		return 0, false
	}
	return year, true
}
