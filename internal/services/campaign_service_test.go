package services

import (
	"testing"

	"outreach-server/internal/db"
	"outreach-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCampaignServiceForTest(t *testing.T) (*CampaignService, *serviceRepos) {
	t.Helper()

	repos := newServiceRepos(t)
	return NewCampaignService(repos.campaigns, repos.creds), repos
}

func TestCreateCampaign(t *testing.T) {
	svc, repos := newCampaignServiceForTest(t)

	campaign, err := svc.CreateCampaign(&models.CreateCampaignRequest{
		Name:              "Q3 Outreach",
		FollowUpIntervals: []int{1, 3, 7},
		SenderName:        "Sam",
		SenderCompany:     "Sellers Inc",
		UserEmail:         "owner@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 7}, campaign.FollowUpIntervals)

	// First use of the email creates the user record
	owner, err := repos.creds.GetByEmail("owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, owner.UserID, campaign.UserID)
}

func TestCreateCampaignDefaults(t *testing.T) {
	svc, _ := newCampaignServiceForTest(t)

	campaign, err := svc.CreateCampaign(&models.CreateCampaignRequest{Name: "Bare"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultFollowUpIntervals, campaign.FollowUpIntervals)
	assert.Equal(t, "Unknown", campaign.SenderName)
}

func TestCreateCampaignReusesExistingUser(t *testing.T) {
	svc, repos := newCampaignServiceForTest(t)

	cred := models.NewCredential("owner@example.com", "Owner")
	cred.RefreshToken = "keep-me"
	require.NoError(t, repos.creds.Upsert(cred))

	campaign, err := svc.CreateCampaign(&models.CreateCampaignRequest{
		Name:      "Second",
		UserEmail: "owner@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, cred.UserID, campaign.UserID)

	stored, err := repos.creds.GetByEmail("owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "keep-me", stored.RefreshToken)
}

func TestCreateCampaignRejectsBadIntervals(t *testing.T) {
	svc, _ := newCampaignServiceForTest(t)

	tests := []struct {
		name      string
		intervals []int
	}{
		{name: "zero offset", intervals: []int{0, 5}},
		{name: "negative offset", intervals: []int{-1, 2}},
		{name: "duplicate offsets", intervals: []int{2, 2, 5}},
		{name: "decreasing offsets", intervals: []int{5, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCampaign(&models.CreateCampaignRequest{
				Name:              "Bad Intervals",
				FollowUpIntervals: tt.intervals,
			})
			assert.Error(t, err)
		})
	}
}

func TestCreateCampaignRequiresName(t *testing.T) {
	svc, _ := newCampaignServiceForTest(t)

	_, err := svc.CreateCampaign(&models.CreateCampaignRequest{})
	assert.Error(t, err)

	_, err = svc.CreateCampaign(nil)
	assert.Error(t, err)
}

func TestGetCampaignNotFound(t *testing.T) {
	svc, _ := newCampaignServiceForTest(t)

	_, err := svc.GetCampaign("campaign_missing")
	assert.ErrorIs(t, err, db.ErrCampaignNotFound)
}

func TestListCampaigns(t *testing.T) {
	svc, _ := newCampaignServiceForTest(t)

	_, err := svc.CreateCampaign(&models.CreateCampaignRequest{Name: "One"})
	require.NoError(t, err)

	campaigns, err := svc.ListCampaigns()
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "One", campaigns[0].Name)
}
