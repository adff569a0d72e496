package handlers

import (
	"context"

	"outreach-server/internal/models"
	"outreach-server/internal/services"
)

// mockLeadService implements LeadServiceInterface with overridable functions
type mockLeadService struct {
	logInitialSendFn   func(req *models.LogSendRequest) (*models.Lead, error)
	recordOpenFn       func(leadID string) error
	markFollowUpSentFn func(req *models.FollowUpSentRequest) error
	getLeadFn          func(id string) (*models.Lead, error)
	pendingFollowUpsFn func() ([]*models.DueFollowUp, error)
	nextFollowUpsFn    func(campaignID string) ([]*models.DueFollowUp, error)
	analyticsFn        func(campaignID string) (*services.Analytics, error)
	openedStatusFn     func() (map[string]int64, error)
	clearAllFn         func() error
}

func (m *mockLeadService) LogInitialSend(req *models.LogSendRequest) (*models.Lead, error) {
	return m.logInitialSendFn(req)
}

func (m *mockLeadService) RecordOpen(leadID string) error {
	return m.recordOpenFn(leadID)
}

func (m *mockLeadService) MarkFollowUpSent(req *models.FollowUpSentRequest) error {
	return m.markFollowUpSentFn(req)
}

func (m *mockLeadService) GetLead(id string) (*models.Lead, error) {
	return m.getLeadFn(id)
}

func (m *mockLeadService) PendingFollowUps() ([]*models.DueFollowUp, error) {
	return m.pendingFollowUpsFn()
}

func (m *mockLeadService) NextFollowUps(campaignID string) ([]*models.DueFollowUp, error) {
	return m.nextFollowUpsFn(campaignID)
}

func (m *mockLeadService) Analytics(campaignID string) (*services.Analytics, error) {
	return m.analyticsFn(campaignID)
}

func (m *mockLeadService) OpenedStatus() (map[string]int64, error) {
	return m.openedStatusFn()
}

func (m *mockLeadService) ClearAll() error {
	return m.clearAllFn()
}

// mockCampaignService implements CampaignServiceInterface
type mockCampaignService struct {
	createCampaignFn func(req *models.CreateCampaignRequest) (*models.Campaign, error)
	getCampaignFn    func(id string) (*models.Campaign, error)
	listCampaignsFn  func() ([]*models.Campaign, error)
}

func (m *mockCampaignService) CreateCampaign(req *models.CreateCampaignRequest) (*models.Campaign, error) {
	return m.createCampaignFn(req)
}

func (m *mockCampaignService) GetCampaign(id string) (*models.Campaign, error) {
	return m.getCampaignFn(id)
}

func (m *mockCampaignService) ListCampaigns() ([]*models.Campaign, error) {
	return m.listCampaignsFn()
}

// mockTokenService implements TokenServiceInterface
type mockTokenService struct {
	exchangeCodeFn func(ctx context.Context, code, redirectURI string) (*models.Credential, error)
}

func (m *mockTokenService) ExchangeCode(ctx context.Context, code, redirectURI string) (*models.Credential, error) {
	return m.exchangeCodeFn(ctx, code, redirectURI)
}

// mockCredentialRepo implements db.CredentialRepository
type mockCredentialRepo struct {
	getByUserIDFn       func(userID string) (*models.Credential, error)
	getByEmailFn        func(email string) (*models.Credential, error)
	upsertFn            func(cred *models.Credential) error
	updateAccessTokenFn func(userID, accessToken string, expiresAt int64) error
	expireFn            func(userID string) error
}

func (m *mockCredentialRepo) GetByUserID(userID string) (*models.Credential, error) {
	return m.getByUserIDFn(userID)
}

func (m *mockCredentialRepo) GetByEmail(email string) (*models.Credential, error) {
	return m.getByEmailFn(email)
}

func (m *mockCredentialRepo) Upsert(cred *models.Credential) error {
	return m.upsertFn(cred)
}

func (m *mockCredentialRepo) UpdateAccessToken(userID, accessToken string, expiresAt int64) error {
	return m.updateAccessTokenFn(userID, accessToken, expiresAt)
}

func (m *mockCredentialRepo) ExpireAccessToken(userID string) error {
	return m.expireFn(userID)
}
