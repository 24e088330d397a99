// Package adapters bridges module boundaries. Each adapter implements one
// module's small dependency interface on top of another module's service or
// repository, keeping the modules themselves decoupled.
package adapters

import (
	"context"
	"time"

	bookingsservice "leadcrm_backend/internal/bookings/service"
	bookingstransport "leadcrm_backend/internal/bookings/transport"
	customersservice "leadcrm_backend/internal/customers/service"
	customerstransport "leadcrm_backend/internal/customers/transport"
	leadsrepo "leadcrm_backend/internal/leads/repository"
	leadsservice "leadcrm_backend/internal/leads/service"

	"github.com/google/uuid"
)

// LeadDirectoryAdapter exposes lead lookups to the bookings module.
type LeadDirectoryAdapter struct {
	repo leadsrepo.Store
}

// NewLeadDirectoryAdapter creates an adapter over the leads repository.
func NewLeadDirectoryAdapter(repo leadsrepo.Store) *LeadDirectoryAdapter {
	return &LeadDirectoryAdapter{repo: repo}
}

// GetLeadInfo implements bookings/service.LeadDirectory. The leads repository
// only returns active leads, so a soft-deleted lead surfaces as NotFound.
func (a *LeadDirectoryAdapter) GetLeadInfo(ctx context.Context, leadID uuid.UUID) (*bookingsservice.LeadInfo, error) {
	lead, err := a.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	return &bookingsservice.LeadInfo{
		ID:       lead.ID,
		Name:     lead.Name,
		IsActive: lead.IsActive,
	}, nil
}

var _ bookingsservice.LeadDirectory = (*LeadDirectoryAdapter)(nil)

// CallSchedulerAdapter exposes booking creation to the leads module, keeping
// the auto-retry path subject to the slot conflict invariant.
type CallSchedulerAdapter struct {
	bookings *bookingsservice.Service
}

// NewCallSchedulerAdapter creates an adapter over the bookings service.
func NewCallSchedulerAdapter(bookings *bookingsservice.Service) *CallSchedulerAdapter {
	return &CallSchedulerAdapter{bookings: bookings}
}

// BookCall implements leads/service.CallScheduler via the conflict-checked
// booking creation path.
func (a *CallSchedulerAdapter) BookCall(ctx context.Context, leadID, ownerID uuid.UUID, scheduledDate, scheduledTime string, durationMinutes int) (*leadsservice.BookedCall, error) {
	booking, err := a.bookings.Create(ctx, ownerID, bookingstransport.CreateBookingRequest{
		LeadID:          leadID,
		ScheduledDate:   scheduledDate,
		ScheduledTime:   scheduledTime,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		return nil, err
	}

	return &leadsservice.BookedCall{
		BookingID:     booking.ID,
		ScheduledDate: booking.ScheduledDate,
		ScheduledTime: booking.ScheduledTime,
	}, nil
}

// RecordCompletedCall implements leads/service.CallScheduler for the
// informational completed booking row.
func (a *CallSchedulerAdapter) RecordCompletedCall(ctx context.Context, leadID, ownerID uuid.UUID, completedAt time.Time) error {
	return a.bookings.MaterializeCompleted(ctx, leadID, ownerID, completedAt)
}

var _ leadsservice.CallScheduler = (*CallSchedulerAdapter)(nil)

// ConverterAdapter exposes the customer conversion policy to the leads module.
type ConverterAdapter struct {
	customers *customersservice.Service
}

// NewConverterAdapter creates an adapter over the customers service.
func NewConverterAdapter(customers *customersservice.Service) *ConverterAdapter {
	return &ConverterAdapter{customers: customers}
}

// ConvertFromLead implements leads/service.Converter.
func (a *ConverterAdapter) ConvertFromLead(ctx context.Context, req leadsservice.ConversionRequest) (*leadsservice.ConversionResult, error) {
	result, err := a.customers.ConvertFromLead(ctx, customersservice.ConvertInput{
		LeadID: req.LeadID,
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
	})
	if err != nil {
		return nil, err
	}

	out := &leadsservice.ConversionResult{Outcome: mapOutcome(result.Outcome)}
	if result.Customer != nil {
		out.CustomerID = result.Customer.ID
	}
	return out, nil
}

func mapOutcome(outcome string) leadsservice.ConversionOutcome {
	switch outcome {
	case customerstransport.OutcomeAlreadyConverted:
		return leadsservice.ConversionAlreadyConverted
	case customerstransport.OutcomeIdentityExists:
		return leadsservice.ConversionIdentityExists
	default:
		return leadsservice.ConversionCreated
	}
}

var _ leadsservice.Converter = (*ConverterAdapter)(nil)
