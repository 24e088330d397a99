// Package service implements call booking business logic, including the slot
// conflict invariant: at most one scheduled booking per (lead, date, time).
package service

import (
	"context"
	"fmt"
	"time"

	"leadcrm_backend/internal/bookings/repository"
	"leadcrm_backend/internal/bookings/transport"
	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	"leadcrm_backend/internal/scheduler"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"

	reminderLeadTime = time.Hour
)

// LeadInfo is the minimal lead view the booking path needs.
type LeadInfo struct {
	ID       uuid.UUID
	Name     string
	IsActive bool
}

// LeadDirectory provides minimal lead lookups for booking validation.
type LeadDirectory interface {
	GetLeadInfo(ctx context.Context, leadID uuid.UUID) (*LeadInfo, error)
}

// UserDirectory resolves a user's email for booking notifications.
type UserDirectory interface {
	GetUserEmail(ctx context.Context, userID uuid.UUID) (string, error)
}

// Service provides business logic for call bookings.
type Service struct {
	repo              repository.Store
	leads             LeadDirectory
	users             UserDirectory
	emailSender       email.Sender
	eventBus          events.Bus
	reminderScheduler scheduler.ReminderScheduler
	clk               clock.Clock
	log               *logger.Logger
}

// New creates a new bookings service.
func New(repo repository.Store, leads LeadDirectory, users UserDirectory, emailSender email.Sender, eventBus events.Bus, reminderScheduler scheduler.ReminderScheduler, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		repo:              repo,
		leads:             leads,
		users:             users,
		emailSender:       emailSender,
		eventBus:          eventBus,
		reminderScheduler: reminderScheduler,
		clk:               clk,
		log:               log,
	}
}

// Create books a call attempt for a lead. The slot must not be held by
// another scheduled booking; the pre-check and the store's unique constraint
// both report the same Conflict error carrying the blocking booking.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateBookingRequest) (*transport.BookingResponse, error) {
	date, err := parseScheduledDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	timeOfDay, err := normalizeTimeToken(req.ScheduledTime)
	if err != nil {
		return nil, err
	}
	duration, err := resolveDuration(req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	lead, err := s.leads.GetLeadInfo(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}
	if lead == nil || !lead.IsActive {
		return nil, apperr.NotFound("lead not found")
	}

	if blocking, err := s.repo.FindScheduledBySlot(ctx, req.LeadID, date, timeOfDay); err != nil {
		return nil, err
	} else if blocking != nil {
		return nil, slotConflict(blocking)
	}

	now := s.clk.Now()
	booking := &repository.Booking{
		ID:              uuid.New(),
		LeadID:          req.LeadID,
		OwnerID:         ownerID,
		ScheduledDate:   date,
		ScheduledTime:   timeOfDay,
		DurationMinutes: duration,
		Status:          string(transport.BookingStatusScheduled),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, booking); err != nil {
		// A concurrent request may have taken the slot between the pre-check
		// and the insert; surface the winner the same way the pre-check does.
		if apperr.Is(err, apperr.KindConflict) {
			if blocking, lookupErr := s.repo.FindScheduledBySlot(ctx, req.LeadID, date, timeOfDay); lookupErr == nil && blocking != nil {
				return nil, slotConflict(blocking)
			}
		}
		return nil, err
	}

	s.publishCreated(ctx, booking)
	s.scheduleReminder(ctx, booking)
	s.sendConfirmation(ctx, booking, lead.Name)

	resp := toResponse(booking)
	return &resp, nil
}

// MaterializeCompleted records a historical completed booking for a call that
// was closed out without an explicit prior booking. Completed rows never
// block scheduling, so this bypasses conflict checking by construction.
func (s *Service) MaterializeCompleted(ctx context.Context, leadID, ownerID uuid.UUID, completedAt time.Time) error {
	now := s.clk.Now()
	booking := &repository.Booking{
		ID:              uuid.New(),
		LeadID:          leadID,
		OwnerID:         ownerID,
		ScheduledDate:   completedAt.Truncate(24 * time.Hour),
		ScheduledTime:   completedAt.Format(timeFormat),
		DurationMinutes: transport.DefaultDurationMinutes,
		Status:          string(transport.BookingStatusCompleted),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	return s.repo.Insert(ctx, booking)
}

// GetByID retrieves a booking, restricted to its owner unless admin.
func (s *Service) GetByID(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*transport.BookingResponse, error) {
	booking, err := s.ensureAccess(ctx, id, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	resp := toResponse(booking)
	return &resp, nil
}

// UpdateStatus closes out a scheduled booking. Terminal bookings are never
// reopened; attempting to close one again reports Conflict with the current
// status.
func (s *Service) UpdateStatus(ctx context.Context, id, userID uuid.UUID, isAdmin bool, req transport.UpdateBookingStatusRequest) (*transport.BookingResponse, error) {
	booking, err := s.ensureAccess(ctx, id, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.CloseOut(ctx, id, string(req.Status), s.clk.Now())
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.Conflict(fmt.Sprintf("booking is already %s", booking.Status))
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.BookingStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			BookingID: updated.ID,
			LeadID:    updated.LeadID,
			OldStatus: booking.Status,
			NewStatus: updated.Status,
		})
	}

	resp := toResponse(updated)
	return &resp, nil
}

// Delete removes a booking; only its owner may do so.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if booking.OwnerID != userID {
		return apperr.Forbidden("not authorized to delete this booking")
	}

	return s.repo.Delete(ctx, id)
}

// List retrieves bookings with filtering; non-admins only see their own.
func (s *Service) List(ctx context.Context, userID uuid.UUID, isAdmin bool, req transport.ListBookingsRequest) (*transport.BookingListResponse, error) {
	params := repository.ListParams{
		Page:     max(req.Page, 1),
		PageSize: clampPageSize(req.PageSize),
	}

	if !isAdmin {
		params.OwnerID = &userID
	}
	if req.LeadID != "" {
		leadID, err := uuid.Parse(req.LeadID)
		if err != nil {
			return nil, apperr.Validation("invalid leadId format")
		}
		params.LeadID = &leadID
	}
	if req.Status != nil {
		st := string(*req.Status)
		params.Status = &st
	}

	var err error
	if params.DateFrom, err = parseOptionalDate(req.DateFrom, "dateFrom"); err != nil {
		return nil, err
	}
	if params.DateTo, err = parseOptionalDate(req.DateTo, "dateTo"); err != nil {
		return nil, err
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.BookingResponse, len(result.Items))
	for i := range result.Items {
		items[i] = toResponse(&result.Items[i])
	}

	return &transport.BookingListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

func (s *Service) ensureAccess(ctx context.Context, id, userID uuid.UUID, isAdmin bool) (*repository.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && booking.OwnerID != userID {
		return nil, apperr.Forbidden("not authorized to access this booking")
	}
	return booking, nil
}

func (s *Service) publishCreated(ctx context.Context, b *repository.Booking) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.BookingCreated{
		BaseEvent:     events.NewBaseEvent(),
		BookingID:     b.ID,
		LeadID:        b.LeadID,
		OwnerID:       b.OwnerID,
		ScheduledDate: b.ScheduledDate.Format(dateFormat),
		ScheduledTime: b.ScheduledTime,
	})
}

func (s *Service) scheduleReminder(ctx context.Context, b *repository.Booking) {
	if s.reminderScheduler == nil {
		return
	}

	slotStart, err := slotInstant(b.ScheduledDate, b.ScheduledTime)
	if err != nil {
		return
	}

	reminderAt := slotStart.Add(-reminderLeadTime)
	if !reminderAt.After(s.clk.Now()) {
		return
	}

	payload := scheduler.BookingReminderPayload{
		BookingID: b.ID.String(),
		LeadID:    b.LeadID.String(),
	}
	if err := s.reminderScheduler.ScheduleBookingReminder(ctx, payload, reminderAt); err != nil && s.log != nil {
		s.log.Warn("failed to schedule booking reminder", "bookingId", b.ID, "error", err)
	}
}

func (s *Service) sendConfirmation(ctx context.Context, b *repository.Booking, leadName string) {
	if s.emailSender == nil || s.users == nil {
		return
	}

	ownerEmail, err := s.users.GetUserEmail(ctx, b.OwnerID)
	if err != nil || ownerEmail == "" {
		return
	}

	if err := s.emailSender.SendBookingConfirmation(ctx, ownerEmail, leadName, b.ScheduledDate.Format(dateFormat), b.ScheduledTime); err != nil && s.log != nil {
		s.log.Warn("failed to send booking confirmation", "bookingId", b.ID, "error", err)
	}
}

func slotConflict(blocking *repository.Booking) error {
	return apperr.Conflict("timeslot already booked").WithDetails(transport.SlotConflict{
		BlockingBookingID: blocking.ID,
		Status:            transport.BookingStatus(blocking.Status),
		ScheduledDate:     blocking.ScheduledDate.Format(dateFormat),
		ScheduledTime:     blocking.ScheduledTime,
	})
}

func parseScheduledDate(value string) (time.Time, error) {
	date, err := time.Parse(dateFormat, value)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid scheduledDate format, expected YYYY-MM-DD")
	}
	return date, nil
}

// normalizeTimeToken validates the clock token shape and canonicalizes it so
// "9:00" and "09:00" occupy the same slot.
func normalizeTimeToken(value string) (string, error) {
	parsed, err := time.Parse(timeFormat, value)
	if err != nil {
		if parsed, err = time.Parse("3:04", value); err != nil {
			return "", apperr.Validation("invalid scheduledTime format, expected HH:MM")
		}
	}
	return parsed.Format(timeFormat), nil
}

func resolveDuration(minutes int) (int, error) {
	if minutes == 0 {
		return transport.DefaultDurationMinutes, nil
	}
	if minutes < transport.MinDurationMinutes || minutes > transport.MaxDurationMinutes {
		return 0, apperr.Validation(fmt.Sprintf("durationMinutes must be between %d and %d",
			transport.MinDurationMinutes, transport.MaxDurationMinutes))
	}
	return minutes, nil
}

func parseOptionalDate(value, fieldName string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, value)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid %s date format: %s", fieldName, value))
	}
	return &t, nil
}

// slotInstant pairs the date with the clock token to produce the slot start
// instant used for reminder timing only.
func slotInstant(date time.Time, timeOfDay string) (time.Time, error) {
	clockPart, err := time.Parse(timeFormat, timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clockPart.Hour(), clockPart.Minute(), 0, 0, time.UTC), nil
}

func clampPageSize(size int) int {
	if size < 1 || size > 100 {
		return 50
	}
	return size
}

func toResponse(b *repository.Booking) transport.BookingResponse {
	return transport.BookingResponse{
		ID:              b.ID,
		LeadID:          b.LeadID,
		OwnerID:         b.OwnerID,
		ScheduledDate:   b.ScheduledDate.Format(dateFormat),
		ScheduledTime:   b.ScheduledTime,
		DurationMinutes: b.DurationMinutes,
		Status:          transport.BookingStatus(b.Status),
		ReminderSent:    b.ReminderSent,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
