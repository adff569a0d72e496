package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"outreach-server/internal/config"
	"outreach-server/internal/db"
	"outreach-server/internal/models"
	"outreach-server/pkg/logger"

	"go.uber.org/zap"
)

// RefreshError indicates the OAuth refresh grant was rejected. Recoverable
// only by the user re-authenticating; the scheduler skips the user's
// candidates for the cycle and retries on the next poll.
type RefreshError struct {
	Reason string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %s", e.Reason)
}

// TokenRefresher exchanges a refresh token for a fresh access token
type TokenRefresher interface {
	Refresh(ctx context.Context, userID string) (string, error)
}

// TokenService handles the OAuth token lifecycle: the authorization-code
// exchange at sign-in and refresh-token grants for the scheduler
type TokenService struct {
	creds        db.CredentialRepository
	clientID     string
	clientSecret string
	tokenURL     string
	userInfoURL  string
	httpClient   *http.Client
	now          func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(cfg *config.Config, creds db.CredentialRepository) *TokenService {
	return &TokenService{
		creds:        creds,
		clientID:     cfg.OAuth.ClientID,
		clientSecret: cfg.OAuth.ClientSecret,
		tokenURL:     cfg.OAuth.TokenURL,
		userInfoURL:  cfg.OAuth.UserInfoURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
}

// tokenResponse is the identity provider's token endpoint payload
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it with expiry now + expires_in. Requires a stored refresh token.
func (s *TokenService) Refresh(ctx context.Context, userID string) (string, error) {
	cred, err := s.creds.GetByUserID(userID)
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if !cred.CanAutoSend() {
		return "", &RefreshError{Reason: "no refresh token on file"}
	}

	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"refresh_token": {cred.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	resp, err := s.postForm(ctx, form)
	if err != nil {
		return "", err
	}

	expiresAt := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()
	if err := s.creds.UpdateAccessToken(userID, resp.AccessToken, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}

	logger.Info("Refreshed access token", zap.String("user_id", userID))
	return resp.AccessToken, nil
}

// ExchangeCode exchanges an authorization code for tokens, fetches the user
// profile, and upserts the credential. Returns the stored credential.
func (s *TokenService) ExchangeCode(ctx context.Context, code, redirectURI string) (*models.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}
	if redirectURI == "" {
		redirectURI = "postmessage"
	}

	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
	}

	resp, err := s.postForm(ctx, form)
	if err != nil {
		return nil, err
	}

	email, name, err := s.fetchUserInfo(ctx, resp.AccessToken)
	if err != nil {
		return nil, err
	}

	cred := models.NewCredential(email, name)
	cred.AccessToken = resp.AccessToken
	cred.RefreshToken = resp.RefreshToken
	cred.TokenExpiresAt = s.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()

	if err := s.creds.Upsert(cred); err != nil {
		return nil, err
	}

	logger.Info("Stored tokens for user", zap.String("email", email))
	return cred, nil
}

func (s *TokenService) postForm(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &RefreshError{Reason: err.Error()}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		reason := resp.ErrorDescription
		if reason == "" {
			reason = resp.ErrorCode
		}
		if reason == "" {
			reason = fmt.Sprintf("token endpoint returned %d", httpResp.StatusCode)
		}
		return nil, &RefreshError{Reason: reason}
	}

	return &resp, nil
}

func (s *TokenService) fetchUserInfo(ctx context.Context, accessToken string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("userinfo endpoint returned %d", httpResp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&info); err != nil {
		return "", "", fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.Email == "" {
		return "", "", fmt.Errorf("userinfo response missing email")
	}

	return info.Email, info.Name, nil
}
