package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loopcredit/dailybrief/internal/pipeline"
	"github.com/loopcredit/dailybrief/internal/storage"
)

// ReportsAPI exposes the archive and on-demand runs over HTTP.
type ReportsAPI struct {
	runner  *pipeline.Service
	archive storage.ReportArchive
}

func NewReportsAPI(runner *pipeline.Service, archive storage.ReportArchive) *ReportsAPI {
	return &ReportsAPI{runner: runner, archive: archive}
}

// RegisterRoutes registers all report API routes on the given router.
func (api *ReportsAPI) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/reports/:date", api.HandleGetReport)
	r.POST("/v1/reports/:date/run", api.HandleRunReport)
}

// HandleGetReport handles GET /v1/reports/:date
func (api *ReportsAPI) HandleGetReport(c *gin.Context) {
	day, ok := bindDate(c)
	if !ok {
		return
	}

	if api.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "report archive is not configured",
		})
		return
	}

	rec, err := api.archive.GetReport(c.Request.Context(), day.Format("2006-01-02"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "no report archived for date",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to load report",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// HandleRunReport handles POST /v1/reports/:date/run
// Runs the full pipeline for the date and returns the produced record.
func (api *ReportsAPI) HandleRunReport(c *gin.Context) {
	day, ok := bindDate(c)
	if !ok {
		return
	}

	rec, err := api.runner.Run(c.Request.Context(), day)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "report run failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func bindDate(c *gin.Context) (time.Time, bool) {
	day, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid date, expected YYYY-MM-DD",
		})
		return time.Time{}, false
	}
	return day, true
}
