// Package email provides outbound email delivery for booking notifications.
package email

import (
	"context"

	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"
)

// Sender delivers transactional emails. Implementations must be safe for
// concurrent use.
type Sender interface {
	// SendBookingConfirmation notifies the booking owner that a call was scheduled.
	SendBookingConfirmation(ctx context.Context, toEmail, leadName, scheduledDate, scheduledTime string) error
	// SendBookingReminder reminds the booking owner shortly before the slot.
	SendBookingReminder(ctx context.Context, toEmail, leadName, scheduledDate, scheduledTime string) error
}

// NewSender returns an SMTP-backed sender when email is configured,
// otherwise a logging no-op sender.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		return &noopSender{log: log}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

type noopSender struct {
	log *logger.Logger
}

func (s *noopSender) SendBookingConfirmation(_ context.Context, toEmail, leadName, scheduledDate, scheduledTime string) error {
	s.log.Debug("email disabled, skipping booking confirmation", "to", toEmail, "lead", leadName, "date", scheduledDate, "time", scheduledTime)
	return nil
}

func (s *noopSender) SendBookingReminder(_ context.Context, toEmail, leadName, scheduledDate, scheduledTime string) error {
	s.log.Debug("email disabled, skipping booking reminder", "to", toEmail, "lead", leadName, "date", scheduledDate, "time", scheduledTime)
	return nil
}
