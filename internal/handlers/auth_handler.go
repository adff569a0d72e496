package handlers

import (
	"errors"
	"net/http"

	"outreach-server/internal/config"
	"outreach-server/internal/db"
	"outreach-server/pkg/logger"
	"outreach-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExchangeRequest is the body of the OAuth sign-in endpoint
type ExchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

// AuthHandler handles the OAuth sign-in exchange and connection status
type AuthHandler struct {
	tokens TokenServiceInterface
	creds  db.CredentialRepository
	config *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tokens TokenServiceInterface, creds db.CredentialRepository, cfg *config.Config) *AuthHandler {
	return &AuthHandler{tokens: tokens, creds: creds, config: cfg}
}

// Exchange handles POST /auth/token: trades the authorization code for
// provider tokens, stores them, and issues a session JWT
func (h *AuthHandler) Exchange(c *gin.Context) {
	logger.Info("Auth token exchange endpoint called")

	var req ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code is required"})
		return
	}

	cred, err := h.tokens.ExchangeCode(c.Request.Context(), req.Code, req.RedirectURI)
	if err != nil {
		logger.Error("Authorization code exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization failed"})
		return
	}

	session, err := middleware.GenerateToken(cred.UserID, cred.Email, h.config)
	if err != nil {
		logger.Error("Failed to generate session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":           session,
		"email":           cred.Email,
		"name":            cred.Name,
		"autoSendEnabled": cred.CanAutoSend(),
	})
}

// Status handles GET /auth/status?email=: reports whether the account is
// connected and capable of scheduler sends
func (h *AuthHandler) Status(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	cred, err := h.creds.GetByEmail(email)
	if errors.Is(err, db.ErrCredentialNotFound) {
		c.JSON(http.StatusOK, gin.H{"connected": false, "autoSendEnabled": false})
		return
	}
	if err != nil {
		logger.Error("Failed to look up credential", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"autoSendEnabled": cred.CanAutoSend(),
	})
}
