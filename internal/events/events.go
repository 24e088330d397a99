// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a lead is entered manually or imported.
type LeadCreated struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	OwnerID uuid.UUID `json:"ownerId"`
	Status  string    `json:"status"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published on every lifecycle transition.
// It carries the full transition record that drives the conversion policy.
type LeadStatusChanged struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadConverted is published when a qualifying lead materializes a customer.
type LeadConverted struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	CustomerID uuid.UUID `json:"customerId"`
}

func (e LeadConverted) EventName() string { return "leads.lead.converted" }

// CallCompleted is published when a call attempt against a lead is closed out.
type CallCompleted struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	ActorID     uuid.UUID `json:"actorId"`
	Outcome     string    `json:"outcome"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e CallCompleted) EventName() string { return "leads.call.completed" }

// LeadDeleted is published on soft or hard delete of a lead.
type LeadDeleted struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Hard   bool      `json:"hard"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// =============================================================================
// Bookings Domain Events
// =============================================================================

// BookingCreated is published when a call booking is scheduled.
type BookingCreated struct {
	BaseEvent
	BookingID     uuid.UUID `json:"bookingId"`
	LeadID        uuid.UUID `json:"leadId"`
	OwnerID       uuid.UUID `json:"ownerId"`
	ScheduledDate string    `json:"scheduledDate"`
	ScheduledTime string    `json:"scheduledTime"`
}

func (e BookingCreated) EventName() string { return "bookings.booking.created" }

// BookingStatusChanged is published when a booking leaves the scheduled state.
type BookingStatusChanged struct {
	BaseEvent
	BookingID uuid.UUID `json:"bookingId"`
	LeadID    uuid.UUID `json:"leadId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e BookingStatusChanged) EventName() string { return "bookings.booking.status_changed" }

// =============================================================================
// Auth Domain Events
// =============================================================================

// SessionStarted is published when a principal starts a new work session.
type SessionStarted struct {
	BaseEvent
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
}

func (e SessionStarted) EventName() string { return "auth.session.started" }

// SessionEnded is published when a session is closed, including implicit
// closure by a replacing session.
type SessionEnded struct {
	BaseEvent
	SessionID       uuid.UUID `json:"sessionId"`
	UserID          uuid.UUID `json:"userId"`
	DurationSeconds int64     `json:"durationSeconds"`
}

func (e SessionEnded) EventName() string { return "auth.session.ended" }
