package services

import (
	"context"

	"outreach-server/internal/config"
	"outreach-server/internal/models"

	"gopkg.in/gomail.v2"
)

// SMTPDispatcher routes follow-ups through a configured SMTP relay instead
// of the Gmail API. Used by deployments without a Gmail OAuth grant; the
// access token argument is ignored.
type SMTPDispatcher struct {
	dialer          *gomail.Dialer
	from            string
	trackingBaseURL string
}

// NewSMTPDispatcher creates a new SMTP-backed dispatcher
func NewSMTPDispatcher(cfg *config.Config) *SMTPDispatcher {
	smtp := cfg.Mailer.SMTP
	return &SMTPDispatcher{
		dialer:          gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password),
		from:            smtp.From,
		trackingBaseURL: cfg.Scheduler.TrackingBaseURL,
	}
}

// Send builds the HTML message with the tracking pixel appended and delivers
// it through the relay
func (d *SMTPDispatcher) Send(ctx context.Context, _ string, lead *models.Lead, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", d.from)
	msg.SetHeader("To", lead.RecipientEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", appendTrackingPixel(htmlBody, d.trackingBaseURL, lead.ID))

	// gomail has no context support; honor cancellation before dialing
	if err := ctx.Err(); err != nil {
		return err
	}

	return d.dialer.DialAndSend(msg)
}
