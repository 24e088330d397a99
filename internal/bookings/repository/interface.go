package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the booking persistence contract consumed by the service layer.
// The implementation must enforce slot uniqueness for scheduled bookings at
// the store level, not just via the service's pre-check.
type Store interface {
	// Insert persists a new booking. When the booking is in scheduled status
	// and its (lead, date, time) slot is already held by another scheduled
	// booking, Insert returns apperr.Conflict.
	Insert(ctx context.Context, b *Booking) error
	// FindScheduledBySlot returns the scheduled booking occupying the slot,
	// or nil when the slot is free.
	FindScheduledBySlot(ctx context.Context, leadID uuid.UUID, date time.Time, timeOfDay string) (*Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// CloseOut moves a booking out of scheduled status. It returns the
	// updated booking, or nil when the booking was not in scheduled status.
	CloseOut(ctx context.Context, id uuid.UUID, status string, now time.Time) (*Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
	GetReminderInfo(ctx context.Context, id uuid.UUID) (*ReminderInfo, error)
}

var _ Store = (*Repository)(nil)
