package services

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"outreach-server/internal/db"
	"outreach-server/internal/models"
)

// DefaultUserEmail owns leads logged without a campaign. Such leads get no
// follow-up schedule and can only be sent through the interactive path.
const DefaultUserEmail = "default@user.com"

// Analytics aggregates send/open outcomes across a set of leads
type Analytics struct {
	TotalSent     int            `json:"totalSent"`
	TotalOpened   int            `json:"totalOpened"`
	TotalOpens    int            `json:"totalOpens"`
	OpenRate      int            `json:"openRate"` // percentage, rounded
	FollowUpsSent int            `json:"followUpsSent"`
	Leads         []*models.Lead `json:"leads"`
}

// LeadService handles lead lifecycle operations: initial-send logging, open
// tracking, follow-up bookkeeping, and analytics
type LeadService struct {
	leads     db.LeadRepository
	campaigns db.CampaignRepository
	creds     db.CredentialRepository
	now       func() time.Time
}

// NewLeadService creates a new lead service
func NewLeadService(leads db.LeadRepository, campaigns db.CampaignRepository, creds db.CredentialRepository) *LeadService {
	return &LeadService{
		leads:     leads,
		campaigns: campaigns,
		creds:     creds,
		now:       time.Now,
	}
}

// LogInitialSend records the initial email for a lead and seeds its
// follow-up schedule from the campaign's interval list. The second call for
// the same lead id fails with ErrDuplicateSend.
func (s *LeadService) LogInitialSend(req *models.LogSendRequest) (*models.Lead, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if req.ID == "" || req.RecipientEmail == "" {
		return nil, fmt.Errorf("lead id and recipient email are required")
	}
	if _, err := mail.ParseAddress(req.RecipientEmail); err != nil {
		return nil, fmt.Errorf("invalid recipient email: %w", err)
	}

	var userID string
	var intervals []int

	if req.CampaignID != "" {
		campaign, err := s.campaigns.GetByID(req.CampaignID)
		if err != nil && !errors.Is(err, db.ErrCampaignNotFound) {
			return nil, err
		}
		if campaign != nil {
			userID = campaign.UserID
			intervals = campaign.FollowUpIntervals
			if req.SenderName == "" {
				req.SenderName = campaign.SenderName
			}
			if req.SenderCompany == "" {
				req.SenderCompany = campaign.SenderCompany
			}
		}
	}

	if userID == "" {
		defaultUser, err := s.getOrCreateDefaultUser()
		if err != nil {
			return nil, err
		}
		userID = defaultUser.UserID
	}

	lead := models.NewLead(req, userID)
	if err := s.leads.LogInitialSend(lead, intervals, s.now()); err != nil {
		return nil, err
	}

	return lead, nil
}

// RecordOpen registers a tracking-pixel hit for the lead
func (s *LeadService) RecordOpen(leadID string) error {
	if leadID == "" {
		return fmt.Errorf("lead ID is required")
	}
	return s.leads.RecordOpen(leadID, s.now())
}

// MarkFollowUpSent acknowledges a manually sent follow-up so the interactive
// path stays in sync with the scheduler's bookkeeping
func (s *LeadService) MarkFollowUpSent(req *models.FollowUpSentRequest) error {
	if req == nil || req.LeadID == "" {
		return fmt.Errorf("lead ID is required")
	}
	return s.leads.MarkStepSent(req.LeadID, req.FollowUpIndex, req.SubjectLine, s.now())
}

// GetLead retrieves a lead with its follow-up sequence
func (s *LeadService) GetLead(id string) (*models.Lead, error) {
	return s.leads.GetByID(id)
}

// PendingFollowUps returns the current due-candidate set, computed on demand
// with the same earliest-pending-step query the scheduler uses
func (s *LeadService) PendingFollowUps() ([]*models.DueFollowUp, error) {
	return s.leads.ListDueSteps(s.now())
}

// NextFollowUps returns each lead's next pending step regardless of due
// date, for the manual send-next trigger
func (s *LeadService) NextFollowUps(campaignID string) ([]*models.DueFollowUp, error) {
	return s.leads.ListNextPending(campaignID)
}

// Analytics computes aggregate outcomes; an empty campaignID spans all leads
func (s *LeadService) Analytics(campaignID string) (*Analytics, error) {
	leads, err := s.leads.List(campaignID)
	if err != nil {
		return nil, err
	}

	stats := &Analytics{Leads: leads}
	if stats.Leads == nil {
		stats.Leads = []*models.Lead{}
	}

	for _, lead := range leads {
		if lead.SentAt != nil {
			stats.TotalSent++
		}
		if lead.Opened() {
			stats.TotalOpened++
		}
		stats.TotalOpens += lead.OpenCount
		for _, step := range lead.FollowUps {
			if step.Status == models.StepSent {
				stats.FollowUpsSent++
			}
		}
	}

	if stats.TotalSent > 0 {
		stats.OpenRate = int(float64(stats.TotalOpened)/float64(stats.TotalSent)*100 + 0.5)
	}

	return stats, nil
}

// OpenedStatus maps each opened lead's id to its last-open timestamp
func (s *LeadService) OpenedStatus() (map[string]int64, error) {
	leads, err := s.leads.ListOpened()
	if err != nil {
		return nil, err
	}

	status := make(map[string]int64, len(leads))
	for _, lead := range leads {
		if lead.LastOpenedAt != nil {
			status[lead.ID] = *lead.LastOpenedAt
		}
	}
	return status, nil
}

// ClearAll removes all leads, follow-up steps, and campaigns
func (s *LeadService) ClearAll() error {
	if err := s.leads.ClearAll(); err != nil {
		return err
	}
	return s.campaigns.ClearAll()
}

func (s *LeadService) getOrCreateDefaultUser() (*models.Credential, error) {
	cred, err := s.creds.GetByEmail(DefaultUserEmail)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, db.ErrCredentialNotFound) {
		return nil, err
	}

	cred = models.NewCredential(DefaultUserEmail, "Default User")
	if err := s.creds.Upsert(cred); err != nil {
		return nil, err
	}
	return cred, nil
}
