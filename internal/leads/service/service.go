// Package service implements the lead lifecycle engine: status transitions
// with the qualified-conversion trigger, call completion, and the
// not-connected auto-retry flow.
package service

import (
	"context"
	"time"

	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/leads/repository"
	"leadcrm_backend/internal/leads/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"
	"leadcrm_backend/platform/phone"
	"leadcrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"

	// retryDelay is how far ahead a not-connected call is rebooked.
	retryDelay = 2 * time.Hour
)

// ConversionOutcome classifies what the conversion policy did with a lead.
type ConversionOutcome string

const (
	ConversionCreated          ConversionOutcome = "created"
	ConversionAlreadyConverted ConversionOutcome = "already_converted"
	ConversionIdentityExists   ConversionOutcome = "identity_exists"
)

// ConversionRequest carries the lead snapshot the conversion policy needs.
type ConversionRequest struct {
	LeadID uuid.UUID
	Name   string
	Phone  string
	Email  *string
}

// ConversionResult is the conversion policy's verdict.
type ConversionResult struct {
	Outcome    ConversionOutcome
	CustomerID uuid.UUID
}

// Converter materializes a customer from a qualifying lead, exactly once per
// lead id and per contact identity.
type Converter interface {
	ConvertFromLead(ctx context.Context, req ConversionRequest) (*ConversionResult, error)
}

// BookedCall describes a booking created on the lead's behalf.
type BookedCall struct {
	BookingID     uuid.UUID
	ScheduledDate string
	ScheduledTime string
}

// CallScheduler books call attempts through the conflict-checked creation
// path and records historical completed calls.
type CallScheduler interface {
	// BookCall creates a scheduled booking; durationMinutes 0 means default.
	BookCall(ctx context.Context, leadID, ownerID uuid.UUID, scheduledDate, scheduledTime string, durationMinutes int) (*BookedCall, error)
	// RecordCompletedCall materializes an informational completed booking row.
	RecordCompletedCall(ctx context.Context, leadID, ownerID uuid.UUID, completedAt time.Time) error
}

// Service provides business logic for leads.
type Service struct {
	repo      repository.Store
	converter Converter
	calls     CallScheduler
	eventBus  events.Bus
	clk       clock.Clock
	log       *logger.Logger
}

// New creates a new leads service.
func New(repo repository.Store, converter Converter, calls CallScheduler, eventBus events.Bus, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		converter: converter,
		calls:     calls,
		eventBus:  eventBus,
		clk:       clk,
		log:       log,
	}
}

// TransitionStatus moves a lead through its lifecycle. The status write is
// the transaction of record; when the new status is qualified, the conversion
// policy runs afterwards and its failure is reported as a warning, never as
// an error.
func (s *Service) TransitionStatus(ctx context.Context, leadID uuid.UUID, requested transport.LeadStatus, actorID uuid.UUID) (*transport.TransitionResult, error) {
	if !transport.ValidStatus(requested) {
		return nil, apperr.Validation("invalid status value: " + string(requested))
	}

	updated, err := s.repo.TransitionStatus(ctx, leadID, string(requested), s.clk.Now())
	if err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         updated.ID,
			PreviousStatus: updated.PreviousStatus,
			NewStatus:      updated.Status,
			ActorID:        actorID,
		})
	}

	result := &transport.TransitionResult{Lead: toResponse(&updated.Lead)}

	if requested == transport.LeadStatusQualified {
		result.Conversion, result.Warning = s.convertQualified(ctx, &updated.Lead)
	}

	return result, nil
}

// convertQualified runs the conversion policy after a committed transition to
// qualified. It never returns an error: the status change already succeeded.
func (s *Service) convertQualified(ctx context.Context, lead *repository.Lead) (*transport.ConversionInfo, string) {
	if s.converter == nil {
		return nil, ""
	}

	res, err := s.converter.ConvertFromLead(ctx, ConversionRequest{
		LeadID: lead.ID,
		Name:   lead.Name,
		Phone:  lead.Phone,
		Email:  lead.Email,
	})
	if err != nil {
		s.log.ConversionSkipped(lead.ID.String(), err.Error())
		return nil, "status updated, but customer conversion failed: " + err.Error()
	}

	info := &transport.ConversionInfo{Outcome: string(res.Outcome)}
	if res.CustomerID != uuid.Nil {
		id := res.CustomerID
		info.CustomerID = &id
	}

	switch res.Outcome {
	case ConversionCreated:
		if s.eventBus != nil {
			s.eventBus.Publish(ctx, events.LeadConverted{
				BaseEvent:  events.NewBaseEvent(),
				LeadID:     lead.ID,
				CustomerID: res.CustomerID,
			})
		}
		return info, ""
	case ConversionIdentityExists:
		s.log.ConversionSkipped(lead.ID.String(), "customer with same contact identity already exists")
		return info, "a customer with this contact identity already exists; no new customer was created"
	default:
		return info, ""
	}
}

// CompleteCall closes out a call against a lead. Status is untouched: a lead
// can be status=new and call-completed at the same time.
func (s *Service) CompleteCall(ctx context.Context, leadID uuid.UUID, req transport.CompleteCallRequest, actorID uuid.UUID) (*transport.LeadResponse, error) {
	now := s.clk.Now()
	completedAt := now
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	updated, err := s.repo.MarkCallCompleted(ctx, leadID, completedAt, actorID, now)
	if err != nil {
		return nil, err
	}

	var note *string
	if req.Outcome != "" {
		cleaned := sanitize.Text(req.Outcome)
		note = &cleaned
	}
	if err := s.repo.AppendHistory(ctx, &repository.CallHistoryEntry{
		ID:         uuid.New(),
		LeadID:     leadID,
		Outcome:    transport.CallOutcomeCompleted,
		OccurredAt: completedAt,
		ActorID:    actorID,
		Note:       note,
	}); err != nil {
		return nil, err
	}

	// Informational booking row for reporting symmetry; never load-bearing.
	if s.calls != nil {
		if err := s.calls.RecordCompletedCall(ctx, leadID, actorID, completedAt); err != nil {
			s.log.Warn("failed to materialize completed booking", "leadId", leadID, "error", err)
		}
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.CallCompleted{
			BaseEvent:   events.NewBaseEvent(),
			LeadID:      leadID,
			ActorID:     actorID,
			Outcome:     req.Outcome,
			CompletedAt: completedAt,
		})
	}

	resp := toResponse(updated)
	return &resp, nil
}

// HandleNotConnected records a failed call attempt and books a retry two
// hours out. The history append and lastContacted update succeed even when
// the retry slot is already taken; the result says which sub-step failed.
func (s *Service) HandleNotConnected(ctx context.Context, leadID, actorID uuid.UUID) (*transport.RescheduleResult, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	retryAt := now.Add(retryDelay)
	retryDate := retryAt.Format(dateFormat)
	retryTime := retryAt.Format(timeFormat)

	result := &transport.RescheduleResult{}

	var note string
	if s.calls != nil {
		booked, err := s.calls.BookCall(ctx, leadID, actorID, retryDate, retryTime, 0)
		switch {
		case err != nil:
			result.BookingError = err.Error()
			note = "not connected; retry booking failed for " + retryDate + " " + retryTime
		default:
			result.Booking = &transport.BookedCallInfo{
				BookingID:     booked.BookingID,
				ScheduledDate: booked.ScheduledDate,
				ScheduledTime: booked.ScheduledTime,
			}
			note = "not connected; retry booked for " + booked.ScheduledDate + " " + booked.ScheduledTime
		}
	} else {
		note = "not connected"
	}

	if err := s.repo.AppendHistory(ctx, &repository.CallHistoryEntry{
		ID:         uuid.New(),
		LeadID:     leadID,
		Outcome:    transport.CallOutcomeNotConnected,
		OccurredAt: now,
		ActorID:    actorID,
		Note:       &note,
	}); err != nil {
		return nil, err
	}

	updated, err := s.repo.TouchLastContacted(ctx, leadID, now)
	if err != nil {
		return nil, err
	}

	result.Lead = toResponse(updated)
	return result, nil
}

// Create enters a new lead manually with status new.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateLeadRequest) (*transport.LeadResponse, error) {
	now := s.clk.Now()
	lead := &repository.Lead{
		ID:              uuid.New(),
		Name:            sanitize.Text(req.Name),
		Phone:           phone.NormalizeE164(req.Phone),
		Email:           req.Email,
		Notes:           sanitize.TextPtr(req.Notes),
		ImportantPoints: sanitize.TextPtr(req.ImportantPoints),
		Status:          string(transport.LeadStatusNew),
		IsActive:        true,
		OwnerID:         ownerID,
		AssigneeID:      req.AssigneeID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, lead); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			OwnerID:   ownerID,
			Status:    lead.Status,
		})
	}

	resp := toResponse(lead)
	return &resp, nil
}

// GetByID retrieves an active lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toResponse(lead)
	return &resp, nil
}

// Update patches mutable lead fields. Lifecycle status is not patchable here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (*transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		lead.Name = sanitize.Text(*req.Name)
	}
	if req.Phone != nil {
		lead.Phone = phone.NormalizeE164(*req.Phone)
	}
	if req.Email != nil {
		lead.Email = req.Email
	}
	if req.Notes != nil {
		lead.Notes = sanitize.TextPtr(req.Notes)
	}
	if req.ImportantPoints != nil {
		lead.ImportantPoints = sanitize.TextPtr(req.ImportantPoints)
	}
	if req.AssigneeID != nil {
		lead.AssigneeID = req.AssigneeID
	}
	lead.UpdatedAt = s.clk.Now()

	if err := s.repo.Update(ctx, lead); err != nil {
		return nil, err
	}

	resp := toResponse(lead)
	return &resp, nil
}

// List retrieves active leads with filtering.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (*transport.LeadListResponse, error) {
	params := repository.ListParams{
		Search:   req.Search,
		Page:     max(req.Page, 1),
		PageSize: clampPageSize(req.PageSize),
	}

	if req.Status != nil {
		st := string(*req.Status)
		params.Status = &st
	}
	if req.AssigneeID != "" {
		assigneeID, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			return nil, apperr.Validation("invalid assigneeId format")
		}
		params.AssigneeID = &assigneeID
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.LeadResponse, len(result.Items))
	for i := range result.Items {
		items[i] = toResponse(&result.Items[i])
	}

	return &transport.LeadListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// History returns a lead's call history, newest first.
func (s *Service) History(ctx context.Context, leadID uuid.UUID) ([]transport.CallHistoryEntryResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListHistory(ctx, leadID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.CallHistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = transport.CallHistoryEntryResponse{
			ID:         e.ID,
			LeadID:     e.LeadID,
			Outcome:    e.Outcome,
			OccurredAt: e.OccurredAt,
			ActorID:    e.ActorID,
			Note:       e.Note,
		}
	}

	return out, nil
}

// SoftDelete hides a lead; the row and its history are retained.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id, s.clk.Now()); err != nil {
		return err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadDeleted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			Hard:      false,
		})
	}

	return nil
}

// HardDelete removes a lead permanently; admin-only at the route layer.
func (s *Service) HardDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.HardDelete(ctx, id); err != nil {
		return err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadDeleted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			Hard:      true,
		})
	}

	return nil
}

func clampPageSize(size int) int {
	if size < 1 || size > 100 {
		return 50
	}
	return size
}

func toResponse(l *repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              l.ID,
		Name:            l.Name,
		Phone:           l.Phone,
		Email:           l.Email,
		Notes:           l.Notes,
		ImportantPoints: l.ImportantPoints,
		Status:          transport.LeadStatus(l.Status),
		OwnerID:         l.OwnerID,
		AssigneeID:      l.AssigneeID,
		LastContactedAt: l.LastContactedAt,
		CallCompleted:   l.CallCompleted,
		CallCompletedAt: l.CallCompletedAt,
		CallCompletedBy: l.CallCompletedBy,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}
