package services

import (
	"errors"
	"fmt"

	"outreach-server/internal/db"
	"outreach-server/internal/models"
)

// CampaignService handles campaign creation and lookups
type CampaignService struct {
	campaigns db.CampaignRepository
	creds     db.CredentialRepository
}

// NewCampaignService creates a new campaign service
func NewCampaignService(campaigns db.CampaignRepository, creds db.CredentialRepository) *CampaignService {
	return &CampaignService{campaigns: campaigns, creds: creds}
}

// CreateCampaign creates a campaign owned by the user with the given email,
// creating the user record on first use
func (s *CampaignService) CreateCampaign(req *models.CreateCampaignRequest) (*models.Campaign, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	if err := validateIntervals(req.FollowUpIntervals); err != nil {
		return nil, err
	}

	email := req.UserEmail
	if email == "" {
		email = DefaultUserEmail
	}

	cred, err := s.creds.GetByEmail(email)
	if errors.Is(err, db.ErrCredentialNotFound) {
		cred = models.NewCredential(email, req.SenderName)
		err = s.creds.Upsert(cred)
	}
	if err != nil {
		return nil, err
	}

	campaign := models.NewCampaign(cred.UserID, req.Name, req.SenderName, req.SenderCompany, req.FollowUpIntervals)
	if err := s.campaigns.Create(campaign); err != nil {
		return nil, err
	}

	return campaign, nil
}

// validateIntervals enforces the schedule shape the store relies on: day
// offsets must be positive and strictly increasing, so every lead seeded from
// the campaign has a well-ordered sequence with no same-day twins
func validateIntervals(intervals []int) error {
	for i, day := range intervals {
		if day <= 0 {
			return fmt.Errorf("follow-up intervals must be positive, got %d", day)
		}
		if i > 0 && day <= intervals[i-1] {
			return fmt.Errorf("follow-up intervals must be strictly increasing, got %d after %d", day, intervals[i-1])
		}
	}
	return nil
}

// GetCampaign retrieves a campaign with its lead aggregates
func (s *CampaignService) GetCampaign(id string) (*models.Campaign, error) {
	return s.campaigns.GetByID(id)
}

// ListCampaigns retrieves all campaigns, newest first
func (s *CampaignService) ListCampaigns() ([]*models.Campaign, error) {
	return s.campaigns.List()
}
