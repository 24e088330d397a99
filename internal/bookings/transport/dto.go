package transport

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus defines the status of a call booking.
type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// Duration bounds for a call booking, in minutes.
const (
	DefaultDurationMinutes = 30
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 480
)

// CreateBookingRequest is the request body for booking a call attempt.
// ScheduledTime is an opaque clock token paired with ScheduledDate; no
// timezone arithmetic is performed on it.
type CreateBookingRequest struct {
	LeadID          uuid.UUID `json:"leadId" validate:"required"`
	ScheduledDate   string    `json:"scheduledDate" validate:"required"`
	ScheduledTime   string    `json:"scheduledTime" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"omitempty,min=15,max=480"`
}

// UpdateBookingStatusRequest is the request body for closing out a booking.
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" validate:"required,oneof=completed cancelled no_show"`
}

// ListBookingsRequest is the query parameters for listing bookings.
type ListBookingsRequest struct {
	LeadID   string         `form:"leadId"`
	Status   *BookingStatus `form:"status" validate:"omitempty,oneof=scheduled completed cancelled no_show"`
	DateFrom string         `form:"dateFrom"` // ISO date
	DateTo   string         `form:"dateTo"`   // ISO date
	Page     int            `form:"page"`
	PageSize int            `form:"pageSize"`
}

// BookingResponse is the response body for a call booking.
type BookingResponse struct {
	ID              uuid.UUID     `json:"id"`
	LeadID          uuid.UUID     `json:"leadId"`
	OwnerID         uuid.UUID     `json:"ownerId"`
	ScheduledDate   string        `json:"scheduledDate"`
	ScheduledTime   string        `json:"scheduledTime"`
	DurationMinutes int           `json:"durationMinutes"`
	Status          BookingStatus `json:"status"`
	ReminderSent    bool          `json:"reminderSent"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// BookingListResponse is the paginated list response.
type BookingListResponse struct {
	Items      []BookingResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// SlotConflict describes the booking blocking a requested slot, so the caller
// can choose a different one.
type SlotConflict struct {
	BlockingBookingID uuid.UUID     `json:"blockingBookingId"`
	Status            BookingStatus `json:"status"`
	ScheduledDate     string        `json:"scheduledDate"`
	ScheduledTime     string        `json:"scheduledTime"`
}
