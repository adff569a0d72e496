package db

import (
	"testing"
	"time"

	"outreach-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignCreateAndGet(t *testing.T) {
	repo := NewCampaignRepository(newTestDatabase(t).GetDB())

	campaign := models.NewCampaign("user-1", "Q3 Outreach", "Sam", "Sellers Inc", []int{2, 5, 10})
	require.NoError(t, repo.Create(campaign))

	got, err := repo.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q3 Outreach", got.Name)
	assert.Equal(t, []int{2, 5, 10}, got.FollowUpIntervals)
	assert.Equal(t, "Sam", got.SenderName)
	assert.Equal(t, 0, got.TotalLeads)
}

func TestCampaignCreateValidation(t *testing.T) {
	repo := NewCampaignRepository(newTestDatabase(t).GetDB())

	assert.Error(t, repo.Create(nil))
	assert.Error(t, repo.Create(&models.Campaign{ID: "c1"}))
}

func TestCampaignNotFound(t *testing.T) {
	repo := NewCampaignRepository(newTestDatabase(t).GetDB())

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestCampaignList(t *testing.T) {
	repo := NewCampaignRepository(newTestDatabase(t).GetDB())

	first := models.NewCampaign("user-1", "First", "", "", nil)
	first.ID = "campaign_1"
	first.CreatedAt = time.Now().Add(-time.Hour).Unix()
	require.NoError(t, repo.Create(first))

	second := models.NewCampaign("user-1", "Second", "", "", nil)
	second.ID = "campaign_2"
	second.CreatedAt = time.Now().Unix()
	require.NoError(t, repo.Create(second))

	campaigns, err := repo.List()
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	// Newest first
	assert.Equal(t, "Second", campaigns[0].Name)
	assert.Equal(t, "First", campaigns[1].Name)
}

func TestCampaignStats(t *testing.T) {
	database := newTestDatabase(t)
	campaignRepo := NewCampaignRepository(database.GetDB())
	leadRepo := NewLeadRepository(database.GetDB())

	campaign := models.NewCampaign("user-1", "Stats", "", "", []int{2})
	require.NoError(t, campaignRepo.Create(campaign))

	for _, id := range []string{"lead-1", "lead-2"} {
		lead := testLead(id)
		lead.CampaignID = &campaign.ID
		require.NoError(t, leadRepo.LogInitialSend(lead, campaign.FollowUpIntervals, time.Now()))
	}
	require.NoError(t, leadRepo.RecordOpen("lead-1", time.Now()))

	got, err := campaignRepo.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalLeads)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.OpenedCount)
}

func TestCampaignClearAll(t *testing.T) {
	repo := NewCampaignRepository(newTestDatabase(t).GetDB())

	require.NoError(t, repo.Create(models.NewCampaign("user-1", "ToClear", "", "", nil)))
	require.NoError(t, repo.ClearAll())

	campaigns, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, campaigns)
}
