package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach-server/internal/config"
	"outreach-server/internal/models"
)

// SendError carries the mail API's status code so callers can distinguish
// auth failures (401 token invalid, 403 missing scope) from transient ones
type SendError struct {
	StatusCode int
	Message    string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether the send failed because the access token
// was rejected despite apparent freshness
func IsUnauthorized(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.StatusCode == http.StatusUnauthorized
}

// IsForbidden reports whether the send failed on a permission or scope
// issue, terminal for the user until re-auth
func IsForbidden(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.StatusCode == http.StatusForbidden
}

// Dispatcher submits one follow-up email to the outbound mail capability
type Dispatcher interface {
	Send(ctx context.Context, accessToken string, lead *models.Lead, subject, htmlBody string) error
}

// GmailDispatcher implements Dispatcher against the Gmail send API: a
// base64url-encoded RFC 2822 message submitted with a bearer token
type GmailDispatcher struct {
	sendURL         string
	trackingBaseURL string
	httpClient      *http.Client
}

// NewGmailDispatcher creates a new Gmail-backed dispatcher
func NewGmailDispatcher(cfg *config.Config) *GmailDispatcher {
	return &GmailDispatcher{
		sendURL:         cfg.Mailer.SendURL,
		trackingBaseURL: cfg.Scheduler.TrackingBaseURL,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Send appends the open-tracking pixel, builds the raw MIME message, and
// submits it authorized by the given access token
func (d *GmailDispatcher) Send(ctx context.Context, accessToken string, lead *models.Lead, subject, htmlBody string) error {
	if accessToken == "" {
		return &SendError{StatusCode: http.StatusUnauthorized, Message: "missing access token"}
	}

	finalBody := appendTrackingPixel(htmlBody, d.trackingBaseURL, lead.ID)
	raw := buildRawMessage(lead.RecipientEmail, subject, finalBody)

	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(httpResp.Body)
		return &SendError{
			StatusCode: httpResp.StatusCode,
			Message:    extractAPIError(body),
		}
	}

	return nil
}

// buildRawMessage assembles the RFC 2822 message and base64url-encodes it
// the way the Gmail API expects
func buildRawMessage(to, subject, htmlBody string) string {
	message := strings.Join([]string{
		"To: " + to,
		"Content-Type: text/html; charset=utf-8",
		"MIME-Version: 1.0",
		"Subject: " + subject,
		"",
		htmlBody,
	}, "\r\n")

	return base64.RawURLEncoding.EncodeToString([]byte(message))
}

// appendTrackingPixel adds the invisible 1x1 open-tracking image pointing at
// the tracking endpoint for this lead
func appendTrackingPixel(htmlBody, baseURL, leadID string) string {
	pixel := fmt.Sprintf(`<img src="%s/track/%s" width="1" height="1" style="display:none;" />`, baseURL, leadID)
	return htmlBody + pixel
}

// extractAPIError pulls the human-readable message out of a structured mail
// API error response, falling back to the raw body
func extractAPIError(body []byte) string {
	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Message != "" {
		return resp.Error.Message
	}
	return string(body)
}
