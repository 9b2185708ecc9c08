package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"whatsapp-api/internal/correlation"
	"whatsapp-api/internal/middleware"
	"whatsapp-api/internal/models"
	"whatsapp-api/internal/storage"
	"whatsapp-api/pkg/response"
)

// CorrelationHandler serves the identity-correlation surface of spec §6,
// delegating matching/scoring to internal/correlation and reads/writes on
// the correlation table to storage.Gateway directly.
type CorrelationHandler struct {
	engine *correlation.Engine
	verify *correlation.VerificationManager
	store  *storage.Gateway
}

func NewCorrelationHandler(engine *correlation.Engine, verify *correlation.VerificationManager, store *storage.Gateway) *CorrelationHandler {
	return &CorrelationHandler{engine: engine, verify: verify, store: store}
}

// ListCorrelations handles GET /correlations, filterable by verified and
// minConfidence.
func (h *CorrelationHandler) ListCorrelations(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	q := h.store.DB().WithContext(c.Request.Context()).Where("team_id = ?", tc.TeamID)
	if v := c.Query("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(c, "invalid verified filter")
			return
		}
		q = q.Where("verified = ?", verified)
	}
	if mc := c.Query("minConfidence"); mc != "" {
		min, err := strconv.ParseFloat(mc, 64)
		if err != nil {
			response.BadRequest(c, "invalid minConfidence filter")
			return
		}
		q = q.Where("confidence_score >= ?", min)
	}

	page := pageFromQuery(c)
	var total int64
	if err := q.Model(&models.UserIdentityCorrelation{}).Count(&total).Error; err != nil {
		response.Error(c, err)
		return
	}

	var correlations []models.UserIdentityCorrelation
	if err := q.Order("confidence_score desc").Offset(page.Offset()).Limit(page.Limit()).Find(&correlations).Error; err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, correlations, page.Page, page.PerPage, total)
}

type createCorrelationRequest struct {
	WAPhone          string `json:"wa_phone" binding:"required"`
	WAContactName    string `json:"wa_contact_name"`
	MessageTimestamp string `json:"message_timestamp"`
	MessageContent   string `json:"message_content"`
	UserAgent        string `json:"user_agent"`
}

// CreateCorrelation handles POST /correlations, running the matching
// engine against the supplied WhatsApp-side evidence.
func (h *CorrelationHandler) CreateCorrelation(c *gin.Context) {
	var req createCorrelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.engine.Correlate(c.Request.Context(), correlation.Request{
		WAPhone:        req.WAPhone,
		WAContactName:  req.WAContactName,
		MessageContent: req.MessageContent,
		UserAgent:      req.UserAgent,
	}, correlation.DefaultOptions())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

type verifyCorrelationRequest struct {
	Approve             bool     `json:"approve"`
	Reason              string   `json:"reason"`
	AdjustedConfidence  *float64 `json:"adjusted_confidence"`
}

// VerifyCorrelation handles POST /correlations/:id/verify.
func (h *CorrelationHandler) VerifyCorrelation(c *gin.Context) {
	tc, ok := middleware.GetTenant(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	id := c.Param("id")
	var req verifyCorrelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	var err error
	if req.Approve {
		err = h.verify.ApproveCorrelation(c.Request.Context(), id, tc.UserID, req.AdjustedConfidence)
	} else {
		err = h.verify.RejectCorrelation(c.Request.Context(), id, tc.UserID, req.Reason)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"id": id, "approved": req.Approve})
}
