package transport

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus defines the lifecycle status of a lead.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusNegotiation LeadStatus = "negotiation"
	LeadStatusClosed      LeadStatus = "closed"
	LeadStatusLost        LeadStatus = "lost"
)

// ValidStatus reports whether s is inside the closed status set.
func ValidStatus(s LeadStatus) bool {
	switch s {
	case LeadStatusNew, LeadStatusQualified, LeadStatusNegotiation, LeadStatusClosed, LeadStatusLost:
		return true
	}
	return false
}

// Call history outcomes.
const (
	CallOutcomeNotConnected = "not_connected"
	CallOutcomeCompleted    = "completed"
)

// CreateLeadRequest is the request body for manual lead entry.
type CreateLeadRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=200"`
	Phone           string  `json:"phone" validate:"required"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Notes           *string `json:"notes" validate:"omitempty,max=5000"`
	ImportantPoints *string `json:"importantPoints" validate:"omitempty,max=5000"`
	AssigneeID      *uuid.UUID `json:"assigneeId"`
}

// UpdateLeadRequest is the request body for patching lead fields.
// Status is NOT updatable here; lifecycle transitions go through their own endpoint.
type UpdateLeadRequest struct {
	Name            *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Phone           *string    `json:"phone"`
	Email           *string    `json:"email" validate:"omitempty,email"`
	Notes           *string    `json:"notes" validate:"omitempty,max=5000"`
	ImportantPoints *string    `json:"importantPoints" validate:"omitempty,max=5000"`
	AssigneeID      *uuid.UUID `json:"assigneeId"`
}

// TransitionStatusRequest is the request body for a lifecycle transition.
type TransitionStatusRequest struct {
	Status LeadStatus `json:"status" validate:"required"`
}

// CompleteCallRequest is the request body for closing out a call against a lead.
type CompleteCallRequest struct {
	Outcome     string     `json:"outcome" validate:"omitempty,max=500"`
	CompletedAt *time.Time `json:"completedAt"`
}

// ListLeadsRequest is the query parameters for listing leads.
type ListLeadsRequest struct {
	Status     *LeadStatus `form:"status" validate:"omitempty,oneof=new qualified negotiation closed lost"`
	AssigneeID string      `form:"assigneeId"`
	Search     string      `form:"search"`
	Page       int         `form:"page"`
	PageSize   int         `form:"pageSize"`
}

// LeadResponse is the response body for a lead.
type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           *string    `json:"email,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	ImportantPoints *string    `json:"importantPoints,omitempty"`
	Status          LeadStatus `json:"status"`
	OwnerID         uuid.UUID  `json:"ownerId"`
	AssigneeID      *uuid.UUID `json:"assigneeId,omitempty"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	CallCompleted   bool       `json:"callCompleted"`
	CallCompletedAt *time.Time `json:"callCompletedAt,omitempty"`
	CallCompletedBy *uuid.UUID `json:"callCompletedBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// LeadListResponse is the paginated list response.
type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// ConversionInfo reports the outcome of the post-transition conversion attempt.
type ConversionInfo struct {
	Outcome    string     `json:"outcome"` // created | already_converted | identity_exists
	CustomerID *uuid.UUID `json:"customerId,omitempty"`
}

// TransitionResult is the response for a lifecycle transition. The status
// change is the transaction of record; Conversion and Warning describe the
// best-effort secondary effect.
type TransitionResult struct {
	Lead       LeadResponse    `json:"lead"`
	Conversion *ConversionInfo `json:"conversion,omitempty"`
	Warning    string          `json:"warning,omitempty"`
}

// BookedCallInfo describes the auto-created retry booking.
type BookedCallInfo struct {
	BookingID     uuid.UUID `json:"bookingId"`
	ScheduledDate string    `json:"scheduledDate"`
	ScheduledTime string    `json:"scheduledTime"`
}

// RescheduleResult is the response for the not-connected flow. The history
// append and lastContacted update succeed independently of the booking; when
// the auto-computed slot collides, Booking is nil and BookingError says why.
type RescheduleResult struct {
	Lead         LeadResponse    `json:"lead"`
	Booking      *BookedCallInfo `json:"booking,omitempty"`
	BookingError string          `json:"bookingError,omitempty"`
}

// CallHistoryEntryResponse is one append-only call history record.
type CallHistoryEntryResponse struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	Outcome    string    `json:"outcome"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    uuid.UUID `json:"actorId"`
	Note       *string   `json:"note,omitempty"`
}
