package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"outreach-server/internal/models"
)

// CampaignRepository defines the interface for campaign storage
type CampaignRepository interface {
	Create(campaign *models.Campaign) error
	GetByID(id string) (*models.Campaign, error)
	List() ([]*models.Campaign, error)
	ClearAll() error
}

// campaignRepository implements CampaignRepository over sqlite
type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new CampaignRepository
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// Create inserts a new campaign. The interval list is stored as a JSON array
// because campaigns carry a dynamically sized sequence of day offsets.
func (r *campaignRepository) Create(campaign *models.Campaign) error {
	if campaign == nil {
		return fmt.Errorf("campaign cannot be nil")
	}
	if campaign.Name == "" {
		return fmt.Errorf("campaign name is required")
	}

	intervals, err := json.Marshal(campaign.FollowUpIntervals)
	if err != nil {
		return fmt.Errorf("failed to encode intervals: %w", err)
	}

	if campaign.CreatedAt == 0 {
		campaign.CreatedAt = time.Now().Unix()
	}

	_, err = r.db.Exec(`
		INSERT INTO campaigns (id, user_id, name, follow_up_intervals, sender_name, sender_company, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		campaign.ID,
		campaign.UserID,
		campaign.Name,
		string(intervals),
		campaign.SenderName,
		campaign.SenderCompany,
		campaign.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign with its lead aggregates
func (r *campaignRepository) GetByID(id string) (*models.Campaign, error) {
	if id == "" {
		return nil, fmt.Errorf("campaign ID cannot be empty")
	}

	row := r.db.QueryRow(`
		SELECT id, user_id, name, follow_up_intervals, sender_name, sender_company, created_at
		FROM campaigns WHERE id = ?
	`, id)

	campaign, err := r.scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	if err := r.loadStats(campaign); err != nil {
		return nil, err
	}

	return campaign, nil
}

// List retrieves all campaigns with lead aggregates, newest first
func (r *campaignRepository) List() ([]*models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, follow_up_intervals, sender_name, sender_company, created_at
		FROM campaigns ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		campaign, err := r.scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, campaign := range campaigns {
		if err := r.loadStats(campaign); err != nil {
			return nil, err
		}
	}

	return campaigns, nil
}

// ClearAll removes all campaigns
func (r *campaignRepository) ClearAll() error {
	if _, err := r.db.Exec("DELETE FROM campaigns"); err != nil {
		return fmt.Errorf("failed to clear campaigns: %w", err)
	}
	return nil
}

func (r *campaignRepository) scanCampaign(row rowScanner) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	var intervals string
	var senderName, senderCompany sql.NullString

	err := row.Scan(
		&campaign.ID,
		&campaign.UserID,
		&campaign.Name,
		&intervals,
		&senderName,
		&senderCompany,
		&campaign.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	campaign.SenderName = senderName.String
	campaign.SenderCompany = senderCompany.String

	if err := json.Unmarshal([]byte(intervals), &campaign.FollowUpIntervals); err != nil {
		return nil, fmt.Errorf("failed to decode intervals: %w", err)
	}

	return campaign, nil
}

func (r *campaignRepository) loadStats(campaign *models.Campaign) error {
	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COUNT(sent_at),
			COALESCE(SUM(CASE WHEN open_count > 0 THEN 1 ELSE 0 END), 0)
		FROM leads WHERE campaign_id = ?
	`, campaign.ID).Scan(&campaign.TotalLeads, &campaign.SentCount, &campaign.OpenedCount)
	if err != nil {
		return fmt.Errorf("failed to load campaign stats: %w", err)
	}
	return nil
}
