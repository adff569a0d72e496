package models

// Follow-up step statuses. A step transitions pending -> sent exactly once.
const (
	StepPending = "pending"
	StepSent    = "sent"
)

// secondsPerDay converts a day offset into a due timestamp
const secondsPerDay = 24 * 60 * 60

// Lead represents one prospect in an outreach sequence. The initial email is
// sent through the interactive path; follow-ups are driven by the scheduler
// until the sequence completes or the prospect opens any email.
type Lead struct {
	ID             string  `json:"id"`
	CampaignID     *string `json:"campaignId,omitempty"`
	UserID         string  `json:"user_id"`
	RecipientEmail string  `json:"recipientEmail" binding:"required,email"`
	RecipientName  string  `json:"recipientName"`
	CompanyName    string  `json:"companyName"`
	Industry       *string `json:"industry,omitempty"`
	KeyPainPoint   *string `json:"keyPainPoint,omitempty"`
	SubjectLine    string  `json:"subjectLine"` // subject of the initial email, follow-ups build "Re:" from it
	SenderName     string  `json:"senderName"`
	SenderCompany  string  `json:"senderCompany"`
	SentAt         *int64  `json:"sentAt,omitempty"` // Unix timestamp of initial send, set at most once
	OpenCount      int     `json:"openCount"`
	FirstOpenedAt  *int64  `json:"firstOpenedAt,omitempty"`
	LastOpenedAt   *int64  `json:"lastOpenedAt,omitempty"`
	Stopped        bool    `json:"stopped"` // monotonic: set on first open, never reset

	// Ordered by day offset ascending, loaded separately
	FollowUps []FollowUpStep `json:"followUpSequence,omitempty"`
}

// FollowUpStep is one scheduled follow-up owned by a lead
type FollowUpStep struct {
	ID     int64  `json:"-"`
	LeadID string `json:"-"`
	Day    int    `json:"day"` // days after the lead's initial send
	Status string `json:"status"`
	SentAt *int64 `json:"sentAt,omitempty"`
}

// DueAt returns the Unix timestamp at which this step becomes due for the
// given initial-send time
func (s *FollowUpStep) DueAt(leadSentAt int64) int64 {
	return leadSentAt + int64(s.Day)*secondsPerDay
}

// FollowUpOrdinal returns the 1-based position of the step with the given day
// offset within the lead's sequence. The ordinal selects tone in content
// generation, so non-sequential offsets still map to "1st", "2nd", etc.
func (l *Lead) FollowUpOrdinal(day int) int {
	ordinal := 0
	for _, s := range l.FollowUps {
		if s.Day <= day {
			ordinal++
		}
	}
	return ordinal
}

// NextPendingIndex returns the index of the earliest pending step, or -1 if
// every step has been sent
func (l *Lead) NextPendingIndex() int {
	for i, s := range l.FollowUps {
		if s.Status == StepPending {
			return i
		}
	}
	return -1
}

// Opened reports whether the prospect has opened any email
func (l *Lead) Opened() bool {
	return l.OpenCount > 0
}

// DueFollowUp is one candidate produced by the due-step query: a lead plus
// its single earliest pending step that has come due
type DueFollowUp struct {
	Lead      *Lead        `json:"lead"`
	Step      FollowUpStep `json:"step"`
	StepIndex int          `json:"followUpIndex"`
	DueAt     int64        `json:"dueAt"`
}

// GeneratedEmail is the content-generation result for one follow-up
type GeneratedEmail struct {
	SubjectLine string `json:"subjectLine"`
	EmailBody   string `json:"emailBody"`
}

// LogSendRequest represents the body of the initial-send logging endpoint
type LogSendRequest struct {
	ID             string `json:"id" binding:"required"`
	RecipientEmail string `json:"recipientEmail" binding:"required,email"`
	RecipientName  string `json:"recipientName"`
	CompanyName    string `json:"companyName"`
	Industry       string `json:"industry"`
	KeyPainPoint   string `json:"keyPainPoint"`
	SubjectLine    string `json:"subjectLine"`
	CampaignID     string `json:"campaignId"`
	SenderName     string `json:"senderName"`
	SenderCompany  string `json:"senderCompany"`
}

// FollowUpSentRequest acknowledges a manually sent follow-up so the
// interactive path stays in sync with the scheduler's bookkeeping
type FollowUpSentRequest struct {
	LeadID        string `json:"leadId" binding:"required"`
	FollowUpIndex int    `json:"followUpIndex"`
	SubjectLine   string `json:"subjectLine"`
}

// NewLead builds a lead from a log-send request, defaulting empty identity
// fields the way the interactive UI does
func NewLead(req *LogSendRequest, userID string) *Lead {
	lead := &Lead{
		ID:             req.ID,
		UserID:         userID,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  defaultString(req.RecipientName, "Unknown"),
		CompanyName:    defaultString(req.CompanyName, "Unknown"),
		SubjectLine:    defaultString(req.SubjectLine, "No Subject"),
		SenderName:     defaultString(req.SenderName, "Unknown"),
		SenderCompany:  defaultString(req.SenderCompany, "Unknown"),
	}
	if req.CampaignID != "" {
		campaignID := req.CampaignID
		lead.CampaignID = &campaignID
	}
	if req.Industry != "" {
		industry := req.Industry
		lead.Industry = &industry
	}
	if req.KeyPainPoint != "" {
		painPoint := req.KeyPainPoint
		lead.KeyPainPoint = &painPoint
	}
	return lead
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
