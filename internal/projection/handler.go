package projection

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	httperr "github.com/itad-lab/itad-metrics/internal/core/errors"
)

// RegisterRoutes registers all query API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.GET("/kpis", s.HandleKPIs)
	v1.GET("/revenue-trend", s.HandleRevenueTrend)
	v1.GET("/device-performance", s.HandleDevicePerformance)
	v1.GET("/segment-breakdown", s.HandleSegmentBreakdown)
	v1.GET("/environmental-trend", s.HandleEnvironmentalTrend)
	v1.GET("/certification-breakdown", s.HandleCertificationBreakdown)
	v1.GET("/operational-metrics", s.HandleOperationalMetrics)
	v1.GET("/trends", s.HandleTrends)
	v1.GET("/snapshot", s.HandleSnapshot)
	v1.GET("/snapshots", s.HandleSnapshots)
	v1.GET("/timeseries/:dimension", s.HandleTimeSeries)
	v1.GET("/breakdown/:dimension", s.HandleBreakdown)
}

func (s *Service) HandleKPIs(c *gin.Context) {
	resp, err := s.GetKPIs()
	respond(c, resp, err)
}

// HandleRevenueTrend handles GET /v1/revenue-trend
// Query parameters: granularity (month, quarter, window; default month)
func (s *Service) HandleRevenueTrend(c *gin.Context) {
	resp, err := s.GetRevenueTrend(c.Query("granularity"))
	respond(c, resp, err)
}

func (s *Service) HandleDevicePerformance(c *gin.Context) {
	resp, err := s.GetDevicePerformance()
	respond(c, resp, err)
}

func (s *Service) HandleSegmentBreakdown(c *gin.Context) {
	resp, err := s.GetSegmentBreakdown()
	respond(c, resp, err)
}

// HandleEnvironmentalTrend handles GET /v1/environmental-trend
// Query parameters: granularity (default quarter)
func (s *Service) HandleEnvironmentalTrend(c *gin.Context) {
	resp, err := s.GetEnvironmentalTrend(c.Query("granularity"))
	respond(c, resp, err)
}

func (s *Service) HandleCertificationBreakdown(c *gin.Context) {
	resp, err := s.GetCertificationBreakdown()
	respond(c, resp, err)
}

func (s *Service) HandleOperationalMetrics(c *gin.Context) {
	resp, err := s.GetOperationalMetrics()
	respond(c, resp, err)
}

func (s *Service) HandleTrends(c *gin.Context) {
	resp, err := s.GetTrends()
	respond(c, resp, err)
}

// HandleSnapshot handles GET /v1/snapshot
// Query parameters: version (retained history only), format (json, protobuf).
// An Accept header of application/x-protobuf also selects protobuf.
func (s *Service) HandleSnapshot(c *gin.Context) {
	if wantsProtobuf(c) {
		data, contentType, err := s.EncodeSnapshot()
		if err != nil {
			writeError(c, err)
			return
		}
		c.Data(http.StatusOK, contentType, data)
		return
	}

	if raw := c.Query("version"); raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || version <= 0 {
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid query parameters",
				Details:   "version must be a positive integer",
			})
			return
		}
		snap, err := s.GetSnapshot(version)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, viewOf(snap))
		return
	}

	resp, err := s.GetSnapshotView()
	respond(c, resp, err)
}

// HandleSnapshots handles GET /v1/snapshots
// Query parameters: source (memory, archive), limit
func (s *Service) HandleSnapshots(c *gin.Context) {
	var query struct {
		Source string `form:"source"`
		Limit  int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.ListSnapshots(c.Request.Context(), query.Source, query.Limit)
	respond(c, resp, err)
}

// HandleTimeSeries handles GET /v1/timeseries/:dimension
// Query parameters: granularity, field, key
func (s *Service) HandleTimeSeries(c *gin.Context) {
	resp, err := s.GetTimeSeries(c.Param("dimension"), c.Query("granularity"), c.Query("field"), c.Query("key"))
	respond(c, resp, err)
}

// HandleBreakdown handles GET /v1/breakdown/:dimension
// Query parameters: field
func (s *Service) HandleBreakdown(c *gin.Context) {
	resp, err := s.GetBreakdown(c.Param("dimension"), c.Query("field"))
	respond(c, resp, err)
}

func wantsProtobuf(c *gin.Context) bool {
	switch strings.ToLower(c.Query("format")) {
	case "protobuf", "proto", "pb":
		return true
	case "json":
		return false
	}
	return strings.Contains(c.GetHeader("Accept"), "application/x-protobuf")
}

func respond(c *gin.Context, resp any, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoSnapshot):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpNoSnapshotError,
			Message:   "No snapshot has been published yet",
		})
	case errors.Is(err, ErrSnapshotNotRetained):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpSnapshotVersionError,
			Message:   "Snapshot version is not retained",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid metrics query",
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to query metrics",
			Details:   err.Error(),
		})
	}
}
