package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadcrm_backend/internal/email"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReminderInfo is what the worker needs to deliver one booking reminder.
type ReminderInfo struct {
	BookingID     uuid.UUID
	LeadName      string
	OwnerEmail    string
	ScheduledDate time.Time
	ScheduledTime string
	Status        string
	ReminderSent  bool
}

// ReminderStore loads reminder delivery state for a booking.
type ReminderStore interface {
	GetReminderInfo(ctx context.Context, bookingID uuid.UUID) (*ReminderInfo, error)
	MarkReminderSent(ctx context.Context, bookingID uuid.UUID) error
}

// Worker consumes reminder tasks from Redis and emails booking owners.
type Worker struct {
	srv   *asynq.Server
	mux   *asynq.ServeMux
	store ReminderStore
	email email.Sender
	log   *logger.Logger
}

// NewWorker creates a reminder worker bound to the configured Redis queue.
func NewWorker(cfg config.SchedulerConfig, store ReminderStore, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{queue: 1},
	})

	w := &Worker{
		srv:   srv,
		mux:   asynq.NewServeMux(),
		store: store,
		email: sender,
		log:   log,
	}
	w.mux.HandleFunc(TaskBookingReminder, w.handleBookingReminder)

	return w, nil
}

// Run blocks processing tasks until Shutdown is called.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker gracefully.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// handleBookingReminder delivers one reminder. Bookings that were closed out
// or already reminded since enqueueing are skipped, not retried.
func (w *Worker) handleBookingReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBookingReminderPayload(task)
	if err != nil {
		return fmt.Errorf("malformed reminder payload: %w: %w", err, asynq.SkipRetry)
	}

	bookingID, err := uuid.Parse(payload.BookingID)
	if err != nil {
		return fmt.Errorf("invalid booking id in payload: %w: %w", err, asynq.SkipRetry)
	}

	info, err := w.store.GetReminderInfo(ctx, bookingID)
	if err != nil {
		w.log.Warn("booking gone before reminder, skipping", "bookingId", bookingID, "error", err)
		return nil
	}

	if info.Status != "scheduled" || info.ReminderSent {
		w.log.Debug("reminder no longer applicable", "bookingId", bookingID,
			"status", info.Status, "reminderSent", info.ReminderSent)
		return nil
	}

	if err := w.email.SendBookingReminder(ctx, info.OwnerEmail, info.LeadName,
		info.ScheduledDate.Format("2006-01-02"), info.ScheduledTime); err != nil {
		return fmt.Errorf("failed to send booking reminder: %w", err)
	}

	if err := w.store.MarkReminderSent(ctx, bookingID); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	w.log.Info("booking reminder sent", "bookingId", bookingID, "to", info.OwnerEmail)
	return nil
}
