package scheduler

import (
	"context"
	"time"

	"outreach-server/internal/config"
	"outreach-server/internal/db"
	"outreach-server/internal/models"
	"outreach-server/internal/services"
	"outreach-server/pkg/logger"

	"go.uber.org/zap"
)

// CycleStats summarizes one scheduling pass
type CycleStats struct {
	Processed int
	Sent      int
	Failed    int
}

// Scheduler drives the follow-up lifecycle on a fixed polling cadence: scan
// due steps, refresh credentials as needed, generate and dispatch each
// email, and mark the step sent. Candidates are processed one at a time with
// an inter-send delay to stay under outbound rate limits; each candidate is
// isolated so one failure never aborts the cycle for the others.
type Scheduler struct {
	leads      db.LeadRepository
	creds      db.CredentialRepository
	refresher  services.TokenRefresher
	generator  services.ContentGenerator
	dispatcher services.Dispatcher

	pollInterval time.Duration
	sendDelay    time.Duration
	initialDelay time.Duration

	// Injected for deterministic tests
	now   func() time.Time
	sleep func(time.Duration)

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler wired to the given stores and capabilities
func New(
	cfg *config.Config,
	leads db.LeadRepository,
	creds db.CredentialRepository,
	refresher services.TokenRefresher,
	generator services.ContentGenerator,
	dispatcher services.Dispatcher,
) *Scheduler {
	return &Scheduler{
		leads:        leads,
		creds:        creds,
		refresher:    refresher,
		generator:    generator,
		dispatcher:   dispatcher,
		pollInterval: cfg.Scheduler.PollInterval,
		sendDelay:    cfg.Scheduler.SendDelay,
		initialDelay: cfg.Scheduler.InitialDelay,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

// Start launches the polling loop: one run shortly after startup, then one
// per poll interval. Safe to call once; Stop shuts the loop down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	logger.Info("Starting follow-up scheduler",
		zap.Duration("poll_interval", s.pollInterval),
		zap.Duration("send_delay", s.sendDelay),
	)

	go s.run(ctx)
}

// Stop cancels the polling loop and waits for it to exit
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	logger.Info("Follow-up scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	// Immediate run shortly after process start
	initial := time.NewTimer(s.initialDelay)
	defer initial.Stop()
	select {
	case <-initial.C:
		s.RunCycle(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunCycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunCycle executes one scheduling pass over the current due-candidate set.
// A store failure on the initial query aborts the pass; it retries at the
// next tick.
func (s *Scheduler) RunCycle(ctx context.Context) CycleStats {
	stats := CycleStats{}

	candidates, err := s.leads.ListDueSteps(s.now())
	if err != nil {
		logger.Error("Failed to query due follow-ups", zap.Error(err))
		return stats
	}

	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return stats
		}

		outcome := s.processCandidate(ctx, candidate, &stats)
		if outcome == skipped {
			continue
		}

		// Pace outbound sends to avoid bursting the mail API
		if i < len(candidates)-1 {
			s.sleep(s.sendDelay)
		}
	}

	if stats.Processed > 0 {
		logger.Info("Follow-up cycle complete",
			zap.Int("processed", stats.Processed),
			zap.Int("sent", stats.Sent),
			zap.Int("failed", stats.Failed),
		)
	} else {
		logger.Debug("No follow-ups due")
	}

	return stats
}

type candidateOutcome int

const (
	skipped candidateOutcome = iota
	succeeded
	failed
)

// processCandidate runs the refresh -> generate -> send -> persist pipeline
// for one due step. Every error is caught here; nothing propagates to abort
// the cycle.
func (s *Scheduler) processCandidate(ctx context.Context, candidate *models.DueFollowUp, stats *CycleStats) candidateOutcome {
	// Fresh read: an open event may have stopped the lead since the scan
	lead, err := s.leads.GetByID(candidate.Lead.ID)
	if err != nil {
		logger.Warn("Skipping candidate, lead lookup failed",
			zap.String("lead_id", candidate.Lead.ID),
			zap.Error(err),
		)
		return skipped
	}
	if lead.Stopped {
		logger.Debug("Skipping stopped lead", zap.String("lead_id", lead.ID))
		return skipped
	}

	cred, err := s.creds.GetByUserID(lead.UserID)
	if err != nil {
		logger.Warn("Skipping candidate, credential lookup failed",
			zap.String("lead_id", lead.ID),
			zap.String("user_id", lead.UserID),
			zap.Error(err),
		)
		return skipped
	}
	if !cred.CanAutoSend() {
		// No refresh token: only the interactive path can send for this user
		logger.Debug("Skipping lead, user has no refresh token",
			zap.String("lead_id", lead.ID),
			zap.String("user_id", lead.UserID),
		)
		return skipped
	}

	stats.Processed++
	logger.Info("Processing follow-up",
		zap.String("lead_id", lead.ID),
		zap.String("recipient", lead.RecipientEmail),
		zap.Int("day", candidate.Step.Day),
	)

	accessToken := cred.AccessToken
	if cred.TokenExpired(s.now()) {
		accessToken, err = s.refresher.Refresh(ctx, lead.UserID)
		if err != nil {
			logger.Error("Token refresh failed",
				zap.String("lead_id", lead.ID),
				zap.String("user_id", lead.UserID),
				zap.Error(err),
			)
			stats.Failed++
			return failed
		}
	}

	ordinal := lead.FollowUpOrdinal(candidate.Step.Day)
	generated, err := s.generator.Generate(ctx, lead, ordinal, lead.SubjectLine)
	if err != nil {
		logger.Error("Content generation failed",
			zap.String("lead_id", lead.ID),
			zap.Int("ordinal", ordinal),
			zap.Error(err),
		)
		stats.Failed++
		return failed
	}

	if err := s.dispatcher.Send(ctx, accessToken, lead, generated.SubjectLine, generated.EmailBody); err != nil {
		s.classifySendFailure(lead, err)
		stats.Failed++
		return failed
	}

	if err := s.leads.MarkStepSent(lead.ID, candidate.StepIndex, generated.SubjectLine, s.now()); err != nil {
		// The email went out but bookkeeping failed; the step will be
		// re-offered next cycle (at-least-once delivery)
		logger.Error("Failed to mark step sent",
			zap.String("lead_id", lead.ID),
			zap.Int("step_index", candidate.StepIndex),
			zap.Error(err),
		)
		stats.Failed++
		return failed
	}

	logger.Info("Sent follow-up",
		zap.String("lead_id", lead.ID),
		zap.String("recipient", lead.RecipientEmail),
		zap.Int("ordinal", ordinal),
	)
	stats.Sent++
	return succeeded
}

// classifySendFailure logs a send error and, on 401, invalidates the stored
// access token so the next cycle refreshes before sending
func (s *Scheduler) classifySendFailure(lead *models.Lead, err error) {
	switch {
	case services.IsUnauthorized(err):
		logger.Warn("Send unauthorized, forcing token refresh next cycle",
			zap.String("lead_id", lead.ID),
			zap.String("user_id", lead.UserID),
		)
		if expireErr := s.creds.ExpireAccessToken(lead.UserID); expireErr != nil {
			logger.Error("Failed to expire access token",
				zap.String("user_id", lead.UserID),
				zap.Error(expireErr),
			)
		}
	case services.IsForbidden(err):
		// Scope or permission revoked; retries are harmless no-ops until the
		// user re-grants access
		logger.Warn("Send forbidden, user must re-authorize",
			zap.String("lead_id", lead.ID),
			zap.String("user_id", lead.UserID),
			zap.Error(err),
		)
	default:
		logger.Error("Send failed",
			zap.String("lead_id", lead.ID),
			zap.String("recipient", lead.RecipientEmail),
			zap.Error(err),
		)
	}
}

// SetClock overrides the scheduler's time source and pacing sleep. Tests use
// this to drive due-ness without real delays.
func (s *Scheduler) SetClock(now func() time.Time, sleep func(time.Duration)) {
	if now != nil {
		s.now = now
	}
	if sleep != nil {
		s.sleep = sleep
	}
}
