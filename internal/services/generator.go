package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"outreach-server/internal/config"
	"outreach-server/internal/models"
)

// ErrGenerationFailed indicates the content service errored or returned
// malformed output. The step stays pending and retries next cycle.
var ErrGenerationFailed = errors.New("content generation failed")

// ContentGenerator produces the subject and HTML body for one follow-up.
// Called fresh for every send; responses are request-specific and never
// cached.
type ContentGenerator interface {
	Generate(ctx context.Context, lead *models.Lead, ordinal int, originalSubject string) (*models.GeneratedEmail, error)
}

// followUpStyles selects tone by follow-up ordinal, not array index, so
// non-sequential day offsets still read as 1st, 2nd, 3rd touches
var followUpStyles = map[int]string{
	1: "Gentle bump. 1-2 sentences. Example: 'Hey, just wanted to bump this. Still interested? No worries if not.'",
	2: "Share something helpful. Example: 'Quick thought - just helped a similar company with X. Made me think of you.'",
	3: "Break-up email. Last shot. Example: 'Looks like this isn't a priority. Totally get it. Here if things change!'",
}

var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// GeminiGenerator implements ContentGenerator against the Gemini
// generateContent REST API
type GeminiGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGeminiGenerator creates a new Gemini-backed content generator
func NewGeminiGenerator(cfg *config.Config) *GeminiGenerator {
	return &GeminiGenerator{
		apiKey:     cfg.Generator.APIKey,
		baseURL:    cfg.Generator.BaseURL,
		model:      cfg.Generator.Model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Generate asks the model for a short follow-up email and parses the strict
// JSON object it is instructed to return
func (g *GeminiGenerator) Generate(ctx context.Context, lead *models.Lead, ordinal int, originalSubject string) (*models.GeneratedEmail, error) {
	prompt := buildFollowUpPrompt(lead, ordinal, originalSubject)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrGenerationFailed, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("%w: API returned %d: %s", ErrGenerationFailed, httpResp.StatusCode, string(body))
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	return parseGeneratedEmail(resp.Candidates[0].Content.Parts[0].Text)
}

// parseGeneratedEmail extracts the JSON object from the raw model text,
// tolerating markdown fences around it
func parseGeneratedEmail(text string) (*models.GeneratedEmail, error) {
	match := jsonBlockPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON found in model output", ErrGenerationFailed)
	}

	var email models.GeneratedEmail
	if err := json.Unmarshal([]byte(match), &email); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON in model output: %v", ErrGenerationFailed, err)
	}
	if email.SubjectLine == "" || email.EmailBody == "" {
		return nil, fmt.Errorf("%w: model output missing subject or body", ErrGenerationFailed)
	}

	return &email, nil
}

func buildFollowUpPrompt(lead *models.Lead, ordinal int, originalSubject string) string {
	style, ok := followUpStyles[ordinal]
	if !ok {
		style = followUpStyles[1]
	}
	if originalSubject == "" {
		originalSubject = "previous email"
	}

	return fmt.Sprintf(`
Write a SUPER SHORT follow-up email (follow-up #%d).

**WHO:**
- From: %s (%s)
- To: %s at %s
- Original subject: "%s"

**STYLE FOR #%d:** %s

**RULES:**
- MAX 2-3 sentences. No fluff.
- Sound like you're texting a friend.
- Use <br><br> for breaks.
- Signature: %s<br>%s

**SUBJECT:** Use "Re: %s" OR something super short like "bump" or "quick follow up"

**OUTPUT (JSON only, no markdown):**
{"subjectLine": "short subject", "emailBody": "ultra-short follow-up with <br><br> breaks"}
`,
		ordinal,
		lead.SenderName, lead.SenderCompany,
		lead.RecipientName, lead.CompanyName,
		originalSubject,
		ordinal, style,
		lead.SenderName, lead.SenderCompany,
		originalSubject,
	)
}
