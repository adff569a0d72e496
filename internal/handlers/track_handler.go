package handlers

import (
	"encoding/base64"
	"net/http"

	"outreach-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// transparentGIF is a 1x1 transparent image returned for every tracking hit
const transparentGIF = "R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// TrackHandler serves the open-tracking pixel
type TrackHandler struct {
	leadService LeadServiceInterface
	pixel       []byte
}

// NewTrackHandler creates a new tracking handler
func NewTrackHandler(leadService LeadServiceInterface) *TrackHandler {
	pixel, _ := base64.StdEncoding.DecodeString(transparentGIF)
	return &TrackHandler{leadService: leadService, pixel: pixel}
}

// Track handles GET /track/:id. The pixel is always served with a 200 so the
// recipient's mail client never sees a broken image; recording failures are
// logged and swallowed.
func (h *TrackHandler) Track(c *gin.Context) {
	leadID := c.Param("id")

	if err := h.leadService.RecordOpen(leadID); err != nil {
		logger.Debug("Tracking hit for unknown lead",
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	} else {
		logger.Info("Recorded email open", zap.String("lead_id", leadID))
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/gif", h.pixel)
}
