package handlers

import (
	"errors"
	"net/http"

	"outreach-server/internal/db"
	"outreach-server/internal/models"
	"outreach-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LeadHandler handles lead lifecycle requests: initial-send logging,
// follow-up acknowledgement, and read-side queries
type LeadHandler struct {
	leadService LeadServiceInterface
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService LeadServiceInterface) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// LogSend handles POST /log-send: records an initial email send and seeds the
// lead's follow-up schedule
func (h *LeadHandler) LogSend(c *gin.Context) {
	var req models.LogSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid log-send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	lead, err := h.leadService.LogInitialSend(&req)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateSend) {
			c.JSON(http.StatusConflict, gin.H{"error": "Lead already logged"})
			return
		}
		logger.Warn("Failed to log initial send",
			zap.String("lead_id", req.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Info("Logged initial send",
		zap.String("lead_id", lead.ID),
		zap.String("recipient", lead.RecipientEmail),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "lead": lead})
}

// FollowUpSent handles POST /follow-up-sent: acknowledges a manually sent
// follow-up so the scheduler never re-sends it
func (h *LeadHandler) FollowUpSent(c *gin.Context) {
	var req models.FollowUpSentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.leadService.MarkFollowUpSent(&req); err != nil {
		switch {
		case errors.Is(err, db.ErrLeadNotFound), errors.Is(err, db.ErrStepNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, db.ErrStepAlreadySent):
			c.JSON(http.StatusConflict, gin.H{"error": "Follow-up already sent"})
		default:
			logger.Error("Failed to mark follow-up sent",
				zap.String("lead_id", req.LeadID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update follow-up"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PendingFollowUps handles GET /followups/pending: the current due-candidate
// set, computed with the same query the scheduler runs
func (h *LeadHandler) PendingFollowUps(c *gin.Context) {
	due, err := h.leadService.PendingFollowUps()
	if err != nil {
		logger.Error("Failed to query pending follow-ups", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query follow-ups"})
		return
	}
	if due == nil {
		due = []*models.DueFollowUp{}
	}

	c.JSON(http.StatusOK, gin.H{"pending": due, "count": len(due)})
}

// GetLead handles GET /lead/:id
func (h *LeadHandler) GetLead(c *gin.Context) {
	lead, err := h.leadService.GetLead(c.Param("id"))
	if errors.Is(err, db.ErrLeadNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
		return
	}
	if err != nil {
		logger.Error("Failed to load lead", zap.String("lead_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load lead"})
		return
	}

	c.JSON(http.StatusOK, lead)
}

// Analytics handles GET /analytics: aggregate outcomes across all leads
func (h *LeadHandler) Analytics(c *gin.Context) {
	stats, err := h.leadService.Analytics("")
	if err != nil {
		logger.Error("Failed to compute analytics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// OpenedStatus handles GET /status: map of opened lead ids to last-open time
func (h *LeadHandler) OpenedStatus(c *gin.Context) {
	status, err := h.leadService.OpenedStatus()
	if err != nil {
		logger.Error("Failed to load opened status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"opened": status})
}

// ClearAll handles POST /api/clear: removes every lead, step, and campaign
func (h *LeadHandler) ClearAll(c *gin.Context) {
	if err := h.leadService.ClearAll(); err != nil {
		logger.Error("Failed to clear data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear data"})
		return
	}

	logger.Info("Cleared all leads and campaigns")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
