package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/service"
	"github.com/jengzang/crime-eda-backend-go/pkg/response"
)

const defaultHistoryLimit = 20

// DatasetHandler handles HTTP requests about the loaded dataset
type DatasetHandler struct {
	datasets   *service.DatasetService
	aggregates *service.AggregateService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(datasets *service.DatasetService, aggregates *service.AggregateService) *DatasetHandler {
	return &DatasetHandler{
		datasets:   datasets,
		aggregates: aggregates,
	}
}

// GetOverview handles GET /api/v1/dataset/overview
func (h *DatasetHandler) GetOverview(c *gin.Context) {
	ds, err := h.datasets.Current()
	if err != nil {
		fail(c, err)
		return
	}
	summary, err := h.aggregates.Summary()
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{
		"summary":  summary,
		"snapshot": ds.Snapshot,
	})
}

// GetColumns handles GET /api/v1/dataset/columns
func (h *DatasetHandler) GetColumns(c *gin.Context) {
	response.Success(c, h.aggregates.Columns())
}

// GetPreview handles GET /api/v1/dataset/preview
func (h *DatasetHandler) GetPreview(c *gin.Context) {
	var filter models.PreviewFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	rows, err := h.aggregates.Preview(filter)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rows)
}

// GetMissing handles GET /api/v1/dataset/missing
func (h *DatasetHandler) GetMissing(c *gin.Context) {
	heatmap, err := h.aggregates.MissingByYear()
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, heatmap)
}

// GetHistory handles GET /api/v1/dataset/history
func (h *DatasetHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 0 {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	history, err := h.datasets.History(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, history)
}

// GetSnapshot handles GET /api/v1/dataset/history/:id
// The id "latest" selects the newest stored snapshot.
func (h *DatasetHandler) GetSnapshot(c *gin.Context) {
	var id int64
	if param := c.Param("id"); param != "latest" {
		var err error
		id, err = strconv.ParseInt(param, 10, 64)
		if err != nil || id <= 0 {
			response.BadRequest(c, "Invalid snapshot ID")
			return
		}
	}
	year, ok := yearParam(c)
	if !ok {
		return
	}

	detail, err := h.datasets.Snapshot(c.Request.Context(), id, year)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

// Refresh handles POST /api/v1/dataset/refresh
func (h *DatasetHandler) Refresh(c *gin.Context) {
	snap, err := h.datasets.Refresh(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, snap)
}
