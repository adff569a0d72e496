package handlers

import (
	"context"

	"outreach-server/internal/models"
	"outreach-server/internal/services"
)

// LeadServiceInterface defines the contract for lead lifecycle operations
// This interface is used for dependency injection and testing
type LeadServiceInterface interface {
	LogInitialSend(req *models.LogSendRequest) (*models.Lead, error)
	RecordOpen(leadID string) error
	MarkFollowUpSent(req *models.FollowUpSentRequest) error
	GetLead(id string) (*models.Lead, error)
	PendingFollowUps() ([]*models.DueFollowUp, error)
	NextFollowUps(campaignID string) ([]*models.DueFollowUp, error)
	Analytics(campaignID string) (*services.Analytics, error)
	OpenedStatus() (map[string]int64, error)
	ClearAll() error
}

// CampaignServiceInterface defines the contract for campaign operations
// This interface is used for dependency injection and testing
type CampaignServiceInterface interface {
	CreateCampaign(req *models.CreateCampaignRequest) (*models.Campaign, error)
	GetCampaign(id string) (*models.Campaign, error)
	ListCampaigns() ([]*models.Campaign, error)
}

// TokenServiceInterface defines the contract for the OAuth sign-in exchange
type TokenServiceInterface interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*models.Credential, error)
}
