package db

import (
	"testing"
	"time"

	"outreach-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLead(id string) *models.Lead {
	return &models.Lead{
		ID:             id,
		UserID:         "user-1",
		RecipientEmail: "jane@acme.com",
		RecipientName:  "Jane",
		CompanyName:    "Acme",
		SubjectLine:    "Quick question about Acme",
		SenderName:     "Sam",
		SenderCompany:  "Sellers Inc",
	}
}

func TestLogInitialSend(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	lead := testLead("lead-1")
	require.NoError(t, repo.LogInitialSend(lead, []int{2, 5, 10}, now))

	require.NotNil(t, lead.SentAt)
	assert.Equal(t, now.Unix(), *lead.SentAt)
	require.Len(t, lead.FollowUps, 3)
	assert.Equal(t, 2, lead.FollowUps[0].Day)
	assert.Equal(t, 5, lead.FollowUps[1].Day)
	assert.Equal(t, 10, lead.FollowUps[2].Day)
	for _, step := range lead.FollowUps {
		assert.Equal(t, models.StepPending, step.Status)
	}
}

func TestLogInitialSendDuplicate(t *testing.T) {
	// Calling twice for the same lead id must fail the second time and leave
	// exactly one step set
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2, 5}, now))

	err := repo.LogInitialSend(testLead("lead-1"), []int{2, 5}, now)
	assert.ErrorIs(t, err, ErrDuplicateSend)

	lead, err := repo.GetByID("lead-1")
	require.NoError(t, err)
	assert.Len(t, lead.FollowUps, 2)
}

func TestLogInitialSendNoIntervals(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())

	lead := testLead("lead-1")
	require.NoError(t, repo.LogInitialSend(lead, nil, time.Now()))
	assert.Empty(t, lead.FollowUps)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestRecordOpen(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2}, now))

	firstOpen := now.Add(time.Hour)
	require.NoError(t, repo.RecordOpen("lead-1", firstOpen))

	lead, err := repo.GetByID("lead-1")
	require.NoError(t, err)
	assert.Equal(t, 1, lead.OpenCount)
	assert.True(t, lead.Stopped)
	require.NotNil(t, lead.FirstOpenedAt)
	assert.Equal(t, firstOpen.Unix(), *lead.FirstOpenedAt)
	assert.Equal(t, firstOpen.Unix(), *lead.LastOpenedAt)

	// Repeated opens increment further, stopped stays true and first open
	// keeps its original timestamp
	secondOpen := now.Add(2 * time.Hour)
	require.NoError(t, repo.RecordOpen("lead-1", secondOpen))

	lead, err = repo.GetByID("lead-1")
	require.NoError(t, err)
	assert.Equal(t, 2, lead.OpenCount)
	assert.True(t, lead.Stopped)
	assert.Equal(t, firstOpen.Unix(), *lead.FirstOpenedAt)
	assert.Equal(t, secondOpen.Unix(), *lead.LastOpenedAt)
}

func TestRecordOpenUnknownLead(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())

	err := repo.RecordOpen("missing", time.Now())
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestMarkStepSent(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2, 5}, now))

	sentAt := now.Add(48 * time.Hour)
	require.NoError(t, repo.MarkStepSent("lead-1", 0, "Re: Quick question", sentAt))

	lead, err := repo.GetByID("lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.StepSent, lead.FollowUps[0].Status)
	require.NotNil(t, lead.FollowUps[0].SentAt)
	assert.Equal(t, sentAt.Unix(), *lead.FollowUps[0].SentAt)
	assert.Equal(t, models.StepPending, lead.FollowUps[1].Status)
}

func TestMarkStepSentErrors(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2}, now))
	require.NoError(t, repo.MarkStepSent("lead-1", 0, "Re: subject", now))

	tests := []struct {
		name      string
		leadID    string
		stepIndex int
		wantErr   error
	}{
		{"already sent", "lead-1", 0, ErrStepAlreadySent},
		{"index out of range", "lead-1", 5, ErrStepNotFound},
		{"negative index", "lead-1", -1, ErrStepNotFound},
		{"unknown lead", "missing", 0, ErrStepNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.MarkStepSent(tt.leadID, tt.stepIndex, "subject", now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListDueStepsEarliestOnly(t *testing.T) {
	// With steps at [2,5,10] and only day 2 elapsed, exactly the day-2 step
	// is returned
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	sentAt := time.Now().Add(-3 * 24 * time.Hour)

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2, 5, 10}, sentAt))

	due, err := repo.ListDueSteps(time.Now())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "lead-1", due[0].Lead.ID)
	assert.Equal(t, 2, due[0].Step.Day)
	assert.Equal(t, 0, due[0].StepIndex)
}

func TestListDueStepsWithholdsLaterStepsUntilEarlierSent(t *testing.T) {
	// Even when several offsets have elapsed, only the earliest pending step
	// surfaces per call; the next appears once the first is marked sent
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	sentAt := time.Now().Add(-12 * 24 * time.Hour)
	now := time.Now()

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2, 5, 10}, sentAt))

	due, err := repo.ListDueSteps(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].Step.Day)

	require.NoError(t, repo.MarkStepSent("lead-1", 0, "Re: s", now))

	due, err = repo.ListDueSteps(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 5, due[0].Step.Day)
	assert.Equal(t, 1, due[0].StepIndex)
}

func TestListDueStepsDuplicateDayOffsets(t *testing.T) {
	// Two pending steps sharing a day offset must still yield one candidate
	// per call; the twin surfaces only after the first is marked sent
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	sentAt := time.Now().Add(-3 * 24 * time.Hour)
	now := time.Now()

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2, 2, 5}, sentAt))

	due, err := repo.ListDueSteps(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "lead-1", due[0].Lead.ID)
	assert.Equal(t, 2, due[0].Step.Day)
	assert.Equal(t, 0, due[0].StepIndex)

	require.NoError(t, repo.MarkStepSent("lead-1", 0, "Re: s", now))

	due, err = repo.ListDueSteps(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].Step.Day)
	assert.Equal(t, 1, due[0].StepIndex)
}

func TestListDueStepsSkipsNotYetDue(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	sentAt := time.Now().Add(-24 * time.Hour)

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2, 5}, sentAt))

	due, err := repo.ListDueSteps(time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestListDueStepsSkipsStoppedLeads(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	sentAt := time.Now().Add(-3 * 24 * time.Hour)

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2}, sentAt))
	require.NoError(t, repo.RecordOpen("lead-1", time.Now()))

	due, err := repo.ListDueSteps(time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestListDueStepsMultipleLeads(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	dueLead := testLead("lead-due")
	require.NoError(t, repo.LogInitialSend(dueLead, []int{2}, now.Add(-3*24*time.Hour)))

	freshLead := testLead("lead-fresh")
	freshLead.RecipientEmail = "joe@other.com"
	require.NoError(t, repo.LogInitialSend(freshLead, []int{2}, now))

	due, err := repo.ListDueSteps(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "lead-due", due[0].Lead.ID)
}

func TestListNextPendingIgnoresDueDate(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	campaignID := "campaign-1"
	lead := testLead("lead-1")
	lead.CampaignID = &campaignID
	require.NoError(t, repo.LogInitialSend(lead, []int{2, 5}, now))

	pending, err := repo.ListNextPending(campaignID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Step.Day)
	assert.Equal(t, 0, pending[0].StepIndex)
}

func TestListOpened(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())
	now := time.Now()

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2}, now))
	opened := testLead("lead-2")
	opened.RecipientEmail = "joe@other.com"
	require.NoError(t, repo.LogInitialSend(opened, []int{2}, now))
	require.NoError(t, repo.RecordOpen("lead-2", now))

	leads, err := repo.ListOpened()
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "lead-2", leads[0].ID)
}

func TestClearAll(t *testing.T) {
	repo := NewLeadRepository(newTestDatabase(t).GetDB())

	require.NoError(t, repo.LogInitialSend(testLead("lead-1"), []int{2}, time.Now()))
	require.NoError(t, repo.ClearAll())

	leads, err := repo.List("")
	require.NoError(t, err)
	assert.Empty(t, leads)
}
