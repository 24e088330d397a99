package adapters

import (
	"context"

	bookingsrepo "leadcrm_backend/internal/bookings/repository"
	"leadcrm_backend/internal/scheduler"

	"github.com/google/uuid"
)

// BookingReminderStoreAdapter exposes booking reminder state to the worker.
type BookingReminderStoreAdapter struct {
	repo bookingsrepo.Store
}

// NewBookingReminderStoreAdapter creates an adapter over the bookings repository.
func NewBookingReminderStoreAdapter(repo bookingsrepo.Store) *BookingReminderStoreAdapter {
	return &BookingReminderStoreAdapter{repo: repo}
}

// GetReminderInfo implements scheduler.ReminderStore.
func (a *BookingReminderStoreAdapter) GetReminderInfo(ctx context.Context, bookingID uuid.UUID) (*scheduler.ReminderInfo, error) {
	info, err := a.repo.GetReminderInfo(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	return &scheduler.ReminderInfo{
		BookingID:     info.BookingID,
		LeadName:      info.LeadName,
		OwnerEmail:    info.OwnerEmail,
		ScheduledDate: info.ScheduledDate,
		ScheduledTime: info.ScheduledTime,
		Status:        info.Status,
		ReminderSent:  info.ReminderSent,
	}, nil
}

// MarkReminderSent implements scheduler.ReminderStore.
func (a *BookingReminderStoreAdapter) MarkReminderSent(ctx context.Context, bookingID uuid.UUID) error {
	return a.repo.MarkReminderSent(ctx, bookingID)
}

var _ scheduler.ReminderStore = (*BookingReminderStoreAdapter)(nil)
