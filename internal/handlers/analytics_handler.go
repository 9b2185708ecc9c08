package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"whatsapp-api/internal/analytics"
	"whatsapp-api/internal/journey"
	"whatsapp-api/pkg/response"
)

// AnalyticsHandler is a thin HTTP wrapper around the analytics suite —
// every computation lives in internal/analytics, per spec §5.
type AnalyticsHandler struct {
	suite *analytics.Suite
}

func NewAnalyticsHandler(suite *analytics.Suite) *AnalyticsHandler {
	return &AnalyticsHandler{suite: suite}
}

// Overview handles GET /analytics/overview.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	w := windowFromQuery(c)
	overview, err := h.suite.Overview(c.Request.Context(), w)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, overview)
}

// Metrics handles POST /analytics/metrics, taking a body of metric names.
func (h *AnalyticsHandler) Metrics(c *gin.Context) {
	var req struct {
		Metrics []string `json:"metrics" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	w := windowFromQuery(c)
	result, err := h.suite.Metrics(c.Request.Context(), w, req.Metrics)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Funnel handles GET /analytics/funnel.
func (h *AnalyticsHandler) Funnel(c *gin.Context) {
	buckets, err := h.suite.Funnel(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, buckets)
}

// Timeseries handles GET /analytics/timeseries?metric&interval.
func (h *AnalyticsHandler) Timeseries(c *gin.Context) {
	metric := c.Query("metric")
	if metric == "" {
		response.BadRequest(c, "metric is required")
		return
	}
	interval := analytics.Interval(c.DefaultQuery("interval", string(analytics.IntervalDay)))
	w := windowFromQuery(c)

	points, err := h.suite.Timeseries(c.Request.Context(), w, metric, interval)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, points)
}

// Attribution handles GET /analytics/attribution?model.
func (h *AnalyticsHandler) Attribution(c *gin.Context) {
	model := journey.AttributionModel(c.DefaultQuery("model", string(journey.ModelLastTouch)))
	w := windowFromQuery(c)

	credits, err := h.suite.Attribution(c.Request.Context(), w, model)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, credits)
}

// Cohorts handles GET /analytics/cohorts?cohortType.
func (h *AnalyticsHandler) Cohorts(c *gin.Context) {
	cohortType := analytics.CohortType(strings.ToLower(c.DefaultQuery("cohortType", string(analytics.CohortWeekly))))
	w := windowFromQuery(c)

	buckets, err := h.suite.Cohorts(c.Request.Context(), w, cohortType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, buckets)
}
