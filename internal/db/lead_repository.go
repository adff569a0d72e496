package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"outreach-server/internal/models"
)

// LeadRepository defines the interface for lead and follow-up sequence storage
type LeadRepository interface {
	LogInitialSend(lead *models.Lead, intervals []int, now time.Time) error
	GetByID(id string) (*models.Lead, error)
	RecordOpen(id string, now time.Time) error
	MarkStepSent(leadID string, stepIndex int, subject string, now time.Time) error
	ListDueSteps(now time.Time) ([]*models.DueFollowUp, error)
	ListNextPending(campaignID string) ([]*models.DueFollowUp, error)
	List(campaignID string) ([]*models.Lead, error)
	ListOpened() ([]*models.Lead, error)
	ClearAll() error
}

// leadRepository implements LeadRepository over sqlite
type leadRepository struct {
	db *sql.DB
}

// NewLeadRepository creates a new LeadRepository
func NewLeadRepository(db *sql.DB) LeadRepository {
	return &leadRepository{db: db}
}

const leadColumns = `id, campaign_id, user_id, recipient_email, recipient_name, company_name,
	industry, key_pain_point, subject_line, sender_name, sender_company,
	sent_at, open_count, first_opened_at, last_opened_at, stopped`

// LogInitialSend records the initial email for a lead and seeds its pending
// follow-up steps, one per interval. Fails with ErrDuplicateSend when an
// initial send was already logged for the lead id, so exactly one step set
// ever exists per lead.
func (r *leadRepository) LogInitialSend(lead *models.Lead, intervals []int, now time.Time) error {
	if lead == nil {
		return fmt.Errorf("lead cannot be nil")
	}
	if lead.ID == "" || lead.RecipientEmail == "" {
		return fmt.Errorf("lead id and recipient email are required")
	}

	var existingSentAt sql.NullInt64
	err := r.db.QueryRow("SELECT sent_at FROM leads WHERE id = ?", lead.ID).Scan(&existingSentAt)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check for existing lead: %w", err)
	}
	if err == nil && existingSentAt.Valid {
		return ErrDuplicateSend
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sentAt := now.Unix()
	lead.SentAt = &sentAt
	lead.Stopped = false
	lead.OpenCount = 0

	_, err = tx.Exec(`
		INSERT INTO leads (`+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL, 0)
	`,
		lead.ID,
		lead.CampaignID,
		lead.UserID,
		lead.RecipientEmail,
		lead.RecipientName,
		lead.CompanyName,
		lead.Industry,
		lead.KeyPainPoint,
		lead.SubjectLine,
		lead.SenderName,
		lead.SenderCompany,
		sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	for _, day := range intervals {
		if _, err := tx.Exec(
			"INSERT INTO follow_ups (lead_id, day, status) VALUES (?, ?, ?)",
			lead.ID, day, models.StepPending,
		); err != nil {
			return fmt.Errorf("failed to insert follow-up step: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit initial send: %w", err)
	}

	lead.FollowUps, err = r.getSteps(lead.ID)
	return err
}

// GetByID retrieves a lead with its ordered follow-up steps
func (r *leadRepository) GetByID(id string) (*models.Lead, error) {
	if id == "" {
		return nil, fmt.Errorf("lead ID cannot be empty")
	}

	row := r.db.QueryRow("SELECT "+leadColumns+" FROM leads WHERE id = ?", id)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	lead.FollowUps, err = r.getSteps(id)
	if err != nil {
		return nil, err
	}

	return lead, nil
}

// RecordOpen registers a tracking-pixel hit: increments the open count,
// stamps first/last open, and stops the sequence. Stopping is monotonic;
// repeated opens only increment the count further.
func (r *leadRepository) RecordOpen(id string, now time.Time) error {
	if id == "" {
		return fmt.Errorf("lead ID cannot be empty")
	}

	ts := now.Unix()
	result, err := r.db.Exec(`
		UPDATE leads SET
			open_count = open_count + 1,
			first_opened_at = COALESCE(first_opened_at, ?),
			last_opened_at = ?,
			stopped = 1
		WHERE id = ?
	`, ts, ts, id)
	if err != nil {
		return fmt.Errorf("failed to record open: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLeadNotFound
	}

	return nil
}

// MarkStepSent transitions exactly one step from pending to sent. The index
// addresses the lead's steps in ascending day order.
func (r *leadRepository) MarkStepSent(leadID string, stepIndex int, subject string, now time.Time) error {
	if leadID == "" {
		return fmt.Errorf("lead ID cannot be empty")
	}

	steps, err := r.getSteps(leadID)
	if err != nil {
		return err
	}
	if stepIndex < 0 || stepIndex >= len(steps) {
		return ErrStepNotFound
	}

	step := steps[stepIndex]
	if step.Status == models.StepSent {
		return ErrStepAlreadySent
	}

	_, err = r.db.Exec(
		"UPDATE follow_ups SET status = ?, subject = ?, sent_at = ? WHERE id = ?",
		models.StepSent, subject, now.Unix(), step.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark step sent: %w", err)
	}

	return nil
}

// ListDueSteps returns, for every non-stopped lead whose initial email was
// sent, the single earliest pending step that has come due. Later pending
// steps are withheld until the earlier one is marked sent, which prevents
// bursting several follow-ups to one lead in a single pass. The subquery
// selects one row id, so a lead appears at most once even when two steps
// share a day offset.
func (r *leadRepository) ListDueSteps(now time.Time) ([]*models.DueFollowUp, error) {
	query := `
		SELECT ` + prefixColumns("l", leadColumns) + `
		FROM leads l
		JOIN follow_ups f ON f.lead_id = l.id
		WHERE l.stopped = 0
		  AND l.sent_at IS NOT NULL
		  AND f.status = 'pending'
		  AND f.id = (
			SELECT f2.id FROM follow_ups f2
			WHERE f2.lead_id = l.id AND f2.status = 'pending'
			ORDER BY f2.day, f2.id
			LIMIT 1
		  )
		  AND l.sent_at + f.day * 86400 <= ?
	`

	rows, err := r.db.Query(query, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query due steps: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return r.buildCandidates(leads, true, now)
}

// ListNextPending returns each lead's next pending step regardless of
// due date. Used by the manual send-next-followup path. An empty campaignID
// spans all campaigns.
func (r *leadRepository) ListNextPending(campaignID string) ([]*models.DueFollowUp, error) {
	query := "SELECT " + leadColumns + " FROM leads WHERE stopped = 0 AND sent_at IS NOT NULL"
	args := []interface{}{}
	if campaignID != "" {
		query += " AND campaign_id = ?"
		args = append(args, campaignID)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return r.buildCandidates(leads, false, time.Now())
}

// buildCandidates loads each lead's steps and pairs it with its earliest
// pending step. With dueOnly set, leads whose earliest step is not yet due
// are dropped (a step may have been sent between the query and this load).
func (r *leadRepository) buildCandidates(leads []*models.Lead, dueOnly bool, now time.Time) ([]*models.DueFollowUp, error) {
	var candidates []*models.DueFollowUp
	for _, lead := range leads {
		steps, err := r.getSteps(lead.ID)
		if err != nil {
			return nil, err
		}
		lead.FollowUps = steps

		idx := lead.NextPendingIndex()
		if idx < 0 || lead.SentAt == nil {
			continue
		}

		step := steps[idx]
		dueAt := step.DueAt(*lead.SentAt)
		if dueOnly && dueAt > now.Unix() {
			continue
		}

		candidates = append(candidates, &models.DueFollowUp{
			Lead:      lead,
			Step:      step,
			StepIndex: idx,
			DueAt:     dueAt,
		})
	}
	return candidates, nil
}

// List retrieves all leads with their steps, newest initial send first. An
// empty campaignID spans all campaigns.
func (r *leadRepository) List(campaignID string) ([]*models.Lead, error) {
	query := "SELECT " + leadColumns + " FROM leads"
	args := []interface{}{}
	if campaignID != "" {
		query += " WHERE campaign_id = ?"
		args = append(args, campaignID)
	}
	query += " ORDER BY sent_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for _, lead := range leads {
		if lead.FollowUps, err = r.getSteps(lead.ID); err != nil {
			return nil, err
		}
	}

	return leads, nil
}

// ListOpened returns leads that have opened at least one email
func (r *leadRepository) ListOpened() ([]*models.Lead, error) {
	rows, err := r.db.Query("SELECT " + leadColumns + " FROM leads WHERE open_count > 0")
	if err != nil {
		return nil, fmt.Errorf("failed to list opened leads: %w", err)
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// ClearAll removes all leads and follow-up steps. Explicit bulk-clear is the
// only way leads are ever deleted.
func (r *leadRepository) ClearAll() error {
	if _, err := r.db.Exec("DELETE FROM follow_ups"); err != nil {
		return fmt.Errorf("failed to clear follow-ups: %w", err)
	}
	if _, err := r.db.Exec("DELETE FROM leads"); err != nil {
		return fmt.Errorf("failed to clear leads: %w", err)
	}
	return nil
}

// getSteps returns the lead's steps ordered by day offset ascending
func (r *leadRepository) getSteps(leadID string) ([]models.FollowUpStep, error) {
	rows, err := r.db.Query(
		"SELECT id, lead_id, day, status, sent_at FROM follow_ups WHERE lead_id = ? ORDER BY day ASC, id ASC",
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get follow-up steps: %w", err)
	}
	defer rows.Close()

	var steps []models.FollowUpStep
	for rows.Next() {
		var step models.FollowUpStep
		var sentAt sql.NullInt64
		if err := rows.Scan(&step.ID, &step.LeadID, &step.Day, &step.Status, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up step: %w", err)
		}
		if sentAt.Valid {
			step.SentAt = &sentAt.Int64
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	lead := &models.Lead{}
	var campaignID, industry, painPoint sql.NullString
	var sentAt, firstOpenedAt, lastOpenedAt sql.NullInt64

	err := row.Scan(
		&lead.ID,
		&campaignID,
		&lead.UserID,
		&lead.RecipientEmail,
		&lead.RecipientName,
		&lead.CompanyName,
		&industry,
		&painPoint,
		&lead.SubjectLine,
		&lead.SenderName,
		&lead.SenderCompany,
		&sentAt,
		&lead.OpenCount,
		&firstOpenedAt,
		&lastOpenedAt,
		&lead.Stopped,
	)
	if err != nil {
		return nil, err
	}

	if campaignID.Valid {
		lead.CampaignID = &campaignID.String
	}
	if industry.Valid {
		lead.Industry = &industry.String
	}
	if painPoint.Valid {
		lead.KeyPainPoint = &painPoint.String
	}
	if sentAt.Valid {
		lead.SentAt = &sentAt.Int64
	}
	if firstOpenedAt.Valid {
		lead.FirstOpenedAt = &firstOpenedAt.Int64
	}
	if lastOpenedAt.Valid {
		lead.LastOpenedAt = &lastOpenedAt.Int64
	}

	return lead, nil
}

// prefixColumns qualifies a comma-separated column list with a table alias
func prefixColumns(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
