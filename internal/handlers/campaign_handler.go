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

// CampaignHandler handles campaign management requests
type CampaignHandler struct {
	campaignService CampaignServiceInterface
	leadService     LeadServiceInterface
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignService CampaignServiceInterface, leadService LeadServiceInterface) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		leadService:     leadService,
	}
}

// Create handles POST /api/campaigns
func (h *CampaignHandler) Create(c *gin.Context) {
	var req models.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Campaign name is required"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	campaign, err := h.campaignService.CreateCampaign(&req)
	if err != nil {
		logger.Warn("Failed to create campaign", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Info("Created campaign",
		zap.String("campaign_id", campaign.ID),
		zap.String("name", campaign.Name),
	)
	c.JSON(http.StatusCreated, campaign)
}

// List handles GET /api/campaigns
func (h *CampaignHandler) List(c *gin.Context) {
	campaigns, err := h.campaignService.ListCampaigns()
	if err != nil {
		logger.Error("Failed to list campaigns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list campaigns"})
		return
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}

	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// Get handles GET /api/campaigns/:id
func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.campaignService.GetCampaign(c.Param("id"))
	if errors.Is(err, db.ErrCampaignNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		logger.Error("Failed to load campaign", zap.String("campaign_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load campaign"})
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// Analytics handles GET /api/campaigns/:id/analytics
func (h *CampaignHandler) Analytics(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.campaignService.GetCampaign(id); errors.Is(err, db.ErrCampaignNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}

	stats, err := h.leadService.Analytics(id)
	if err != nil {
		logger.Error("Failed to compute campaign analytics", zap.String("campaign_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Pending handles GET /api/campaigns/:id/pending: the campaign's leads whose
// next step is pending, regardless of due date
func (h *CampaignHandler) Pending(c *gin.Context) {
	h.nextFollowUps(c)
}

// SendNext handles POST /api/campaigns/:id/send-next-followup: the manual
// trigger surfaces each lead's next pending step for the interactive path to
// send, due or not
func (h *CampaignHandler) SendNext(c *gin.Context) {
	h.nextFollowUps(c)
}

func (h *CampaignHandler) nextFollowUps(c *gin.Context) {
	id := c.Param("id")
	next, err := h.leadService.NextFollowUps(id)
	if err != nil {
		logger.Error("Failed to query next follow-ups", zap.String("campaign_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query follow-ups"})
		return
	}
	if next == nil {
		next = []*models.DueFollowUp{}
	}

	c.JSON(http.StatusOK, gin.H{"followUps": next, "count": len(next)})
}
