package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"whatsapp-api/internal/analytics"
	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/middleware"
	"whatsapp-api/pkg/response"
)

// ReportHandler generates point-in-time analytics snapshots and serves
// them back as CSV downloads. Non-goals exclude rendering reports as
// images, not reports themselves — and since no persisted report table
// exists in the schema, generated reports live in the KV gateway with a
// bounded TTL, and history is a per-team index of report metadata.
type ReportHandler struct {
	suite *analytics.Suite
	kvg   *kv.Gateway
}

func NewReportHandler(suite *analytics.Suite, kvg *kv.Gateway) *ReportHandler {
	return &ReportHandler{suite: suite, kvg: kvg}
}

const reportTTL = 30 * 24 * time.Hour

type reportMeta struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Window      string    `json:"window"`
}

type generateReportRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GenerateReport handles POST /reports/generate, computing an overview
// snapshot over the requested window and storing it for later download.
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req generateReportRequest
	_ = c.ShouldBindJSON(&req)

	w := windowFromQuery(c)
	if req.Start != "" {
		if t, err := parseTimeParam(req.Start); err == nil {
			w.Start = t
		}
	}
	if req.End != "" {
		if t, err := parseTimeParam(req.End); err == nil {
			w.End = t
		}
	}

	overview, err := h.suite.Overview(c.Request.Context(), w)
	if err != nil {
		response.Error(c, err)
		return
	}

	id := uuid.NewString()
	body, err := renderReportCSV(overview)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.kvg.Set(c.Request.Context(), reportBodyKey(tc.TeamID, id), body, reportTTL); err != nil {
		response.Error(c, err)
		return
	}

	meta := reportMeta{ID: id, GeneratedAt: time.Now(), Window: w.Start.Format(time.RFC3339) + "/" + w.End.Format(time.RFC3339)}
	if err := h.appendHistory(c, tc.TeamID, meta); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, meta)
}

// DownloadReport handles GET /reports/:id/download.
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var body string
	found, err := h.kvg.Get(c.Request.Context(), reportBodyKey(tc.TeamID, c.Param("id")), &body)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "report not found or expired")
		return
	}

	response.Download(c, []byte(body), "report-"+c.Param("id")+".csv", "text/csv")
}

// ReportHistory handles GET /reports/history.
func (h *ReportHandler) ReportHistory(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var history []reportMeta
	if _, err := h.kvg.Get(c.Request.Context(), reportHistoryKey(tc.TeamID), &history); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, history)
}

func (h *ReportHandler) appendHistory(c *gin.Context, teamID string, meta reportMeta) error {
	var history []reportMeta
	if _, err := h.kvg.Get(c.Request.Context(), reportHistoryKey(teamID), &history); err != nil {
		return err
	}
	history = append([]reportMeta{meta}, history...)
	if len(history) > 100 {
		history = history[:100]
	}
	return h.kvg.Set(c.Request.Context(), reportHistoryKey(teamID), history, reportTTL)
}

func reportBodyKey(teamID, id string) string { return "report_body:" + teamID + ":" + id }
func reportHistoryKey(teamID string) string  { return "report_history:" + teamID }

// renderReportCSV flattens the overview's metric families into a
// metric/value CSV — each family already marshals to a JSON object, so
// each of its top-level fields becomes one row.
func renderReportCSV(overview analytics.Overview) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"section", "field", "value"}); err != nil {
		return "", err
	}

	sections := map[string]interface{}{
		"response_time": overview.ResponseTime,
		"volume":        overview.Volume,
		"conversation":  overview.Conversation,
		"engagement":    overview.Engagement,
	}
	for name, section := range sections {
		raw, err := json.Marshal(section)
		if err != nil {
			return "", err
		}
		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return "", err
		}
		for field, value := range fields {
			valueJSON, err := json.Marshal(value)
			if err != nil {
				return "", err
			}
			if err := w.Write([]string{name, field, string(valueJSON)}); err != nil {
				return "", err
			}
		}
	}

	w.Flush()
	return buf.String(), w.Error()
}
