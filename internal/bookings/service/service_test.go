package service

import (
	"context"
	"testing"
	"time"

	"leadcrm_backend/internal/bookings/repository"
	"leadcrm_backend/internal/bookings/transport"
	"leadcrm_backend/internal/scheduler"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store that enforces the scheduled-slot uniqueness
// the real Postgres index provides.
type fakeStore struct {
	bookings map[uuid.UUID]*repository.Booking
	// forcedInsertErr simulates losing a concurrent insert race.
	forcedInsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[uuid.UUID]*repository.Booking)}
}

func (f *fakeStore) Insert(_ context.Context, b *repository.Booking) error {
	if f.forcedInsertErr != nil {
		err := f.forcedInsertErr
		f.forcedInsertErr = nil
		return err
	}
	if b.Status == string(transport.BookingStatusScheduled) {
		for _, existing := range f.bookings {
			if existing.Status == string(transport.BookingStatusScheduled) &&
				existing.LeadID == b.LeadID &&
				existing.ScheduledDate.Equal(b.ScheduledDate) &&
				existing.ScheduledTime == b.ScheduledTime {
				return apperr.Conflict("timeslot already booked")
			}
		}
	}
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeStore) FindScheduledBySlot(_ context.Context, leadID uuid.UUID, date time.Time, timeOfDay string) (*repository.Booking, error) {
	for _, b := range f.bookings {
		if b.Status == string(transport.BookingStatusScheduled) &&
			b.LeadID == leadID && b.ScheduledDate.Equal(date) && b.ScheduledTime == timeOfDay {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) CloseOut(_ context.Context, id uuid.UUID, status string, now time.Time) (*repository.Booking, error) {
	b, ok := f.bookings[id]
	if !ok || b.Status != string(transport.BookingStatusScheduled) {
		return nil, nil
	}
	b.Status = status
	b.UpdatedAt = now
	cp := *b
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.bookings[id]; !ok {
		return apperr.NotFound("booking not found")
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	items := []repository.Booking{}
	for _, b := range f.bookings {
		if params.OwnerID != nil && b.OwnerID != *params.OwnerID {
			continue
		}
		if params.LeadID != nil && b.LeadID != *params.LeadID {
			continue
		}
		if params.Status != nil && b.Status != *params.Status {
			continue
		}
		items = append(items, *b)
	}
	return &repository.ListResult{
		Items: items, Total: len(items),
		Page: params.Page, PageSize: params.PageSize, TotalPages: 1,
	}, nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	b, ok := f.bookings[id]
	if !ok {
		return apperr.NotFound("booking not found")
	}
	b.ReminderSent = true
	return nil
}

func (f *fakeStore) GetReminderInfo(_ context.Context, id uuid.UUID) (*repository.ReminderInfo, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	return &repository.ReminderInfo{
		BookingID:     b.ID,
		ScheduledDate: b.ScheduledDate,
		ScheduledTime: b.ScheduledTime,
		Status:        b.Status,
		ReminderSent:  b.ReminderSent,
	}, nil
}

var _ repository.Store = (*fakeStore)(nil)

type fakeLeadDirectory struct {
	leads map[uuid.UUID]*LeadInfo
}

func (f *fakeLeadDirectory) GetLeadInfo(_ context.Context, leadID uuid.UUID) (*LeadInfo, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return nil, apperr.NotFound("lead not found")
	}
	return lead, nil
}

type fakeReminderScheduler struct {
	scheduled []time.Time
}

func (f *fakeReminderScheduler) ScheduleBookingReminder(_ context.Context, _ scheduler.BookingReminderPayload, runAt time.Time) error {
	f.scheduled = append(f.scheduled, runAt)
	return nil
}

type fixture struct {
	svc       *Service
	store     *fakeStore
	reminders *fakeReminderScheduler
	clk       *clock.Fake
	leadID    uuid.UUID
	ownerID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	leadID := uuid.New()
	store := newFakeStore()
	reminders := &fakeReminderScheduler{}
	clk := clock.NewFake(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	leads := &fakeLeadDirectory{leads: map[uuid.UUID]*LeadInfo{
		leadID: {ID: leadID, Name: "Jane Prospect", IsActive: true},
	}}

	svc := New(store, leads, nil, nil, nil, reminders, clk, logger.New("test"))

	return &fixture{
		svc:       svc,
		store:     store,
		reminders: reminders,
		clk:       clk,
		leadID:    leadID,
		ownerID:   uuid.New(),
	}
}

func (fx *fixture) createRequest() transport.CreateBookingRequest {
	return transport.CreateBookingRequest{
		LeadID:        fx.leadID,
		ScheduledDate: "2025-03-11",
		ScheduledTime: "14:30",
	}
}

func TestCreateBookingAppliesDefaultDuration(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.DurationMinutes != transport.DefaultDurationMinutes {
		t.Fatalf("expected default duration %d, got %d", transport.DefaultDurationMinutes, resp.DurationMinutes)
	}
	if resp.Status != transport.BookingStatusScheduled {
		t.Fatalf("expected scheduled status, got %s", resp.Status)
	}
}

func TestCreateBookingRejectsOutOfRangeDuration(t *testing.T) {
	fx := newFixture(t)

	req := fx.createRequest()
	req.DurationMinutes = 10
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, req); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for duration 10, got %v", err)
	}

	req.DurationMinutes = 481
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, req); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for duration 481, got %v", err)
	}
}

func TestCreateBookingRejectsMalformedDateAndTime(t *testing.T) {
	fx := newFixture(t)

	req := fx.createRequest()
	req.ScheduledDate = "11-03-2025"
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, req); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for malformed date, got %v", err)
	}

	req = fx.createRequest()
	req.ScheduledTime = "half past two"
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, req); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for malformed time, got %v", err)
	}
}

func TestCreateBookingRejectsUnknownLead(t *testing.T) {
	fx := newFixture(t)

	req := fx.createRequest()
	req.LeadID = uuid.New()
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, req); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for unknown lead, got %v", err)
	}
}

func TestCreateBookingConflictCarriesBlockingBooking(t *testing.T) {
	fx := newFixture(t)

	first, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest())
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	_, err = fx.svc.Create(context.Background(), uuid.New(), fx.createRequest())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	details, ok := err.(*apperr.Error).Details.(transport.SlotConflict)
	if !ok {
		t.Fatalf("expected SlotConflict details, got %#v", err.(*apperr.Error).Details)
	}
	if details.BlockingBookingID != first.ID {
		t.Fatalf("expected blocking booking %s, got %s", first.ID, details.BlockingBookingID)
	}
	if details.Status != transport.BookingStatusScheduled {
		t.Fatalf("expected scheduled blocker, got %s", details.Status)
	}
}

func TestCreateBookingNormalizesTimeToken(t *testing.T) {
	fx := newFixture(t)

	req := fx.createRequest()
	req.ScheduledTime = "9:05"
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, req); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	req.ScheduledTime = "09:05"
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, req); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for equivalent time token, got %v", err)
	}
}

func TestCreateBookingRaceLoserGetsSameConflictShape(t *testing.T) {
	fx := newFixture(t)

	// Winner already in the store, but make the pre-check miss it by injecting
	// the store-level conflict directly.
	winner, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest())
	if err != nil {
		t.Fatalf("winner booking failed: %v", err)
	}
	fx.store.forcedInsertErr = apperr.Conflict("timeslot already booked")

	_, err = fx.svc.Create(context.Background(), uuid.New(), fx.createRequest())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	details, ok := err.(*apperr.Error).Details.(transport.SlotConflict)
	if !ok || details.BlockingBookingID != winner.ID {
		t.Fatalf("expected race loser to see winner %s, got %#v", winner.ID, err.(*apperr.Error).Details)
	}
}

func TestTerminalBookingDoesNotBlockSlot(t *testing.T) {
	fx := newFixture(t)

	first, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest())
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	_, err = fx.svc.UpdateStatus(context.Background(), first.ID, fx.ownerID, false,
		transport.UpdateBookingStatusRequest{Status: transport.BookingStatusCancelled})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest()); err != nil {
		t.Fatalf("expected freed slot to be bookable again, got %v", err)
	}
}

func TestUpdateStatusRejectsSecondCloseOut(t *testing.T) {
	fx := newFixture(t)

	booking, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	complete := transport.UpdateBookingStatusRequest{Status: transport.BookingStatusCompleted}
	if _, err := fx.svc.UpdateStatus(context.Background(), booking.ID, fx.ownerID, false, complete); err != nil {
		t.Fatalf("first close-out failed: %v", err)
	}
	if _, err := fx.svc.UpdateStatus(context.Background(), booking.ID, fx.ownerID, false, complete); apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict on second close-out, got %v", err)
	}
}

func TestUpdateStatusForbiddenForNonOwner(t *testing.T) {
	fx := newFixture(t)

	booking, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	_, err = fx.svc.UpdateStatus(context.Background(), booking.ID, uuid.New(), false,
		transport.UpdateBookingStatusRequest{Status: transport.BookingStatusCompleted})
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
}

func TestDeleteBookingOwnerOnly(t *testing.T) {
	fx := newFixture(t)

	booking, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest())
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	if err := fx.svc.Delete(context.Background(), booking.ID, uuid.New()); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for non-owner delete, got %v", err)
	}
	if err := fx.svc.Delete(context.Background(), booking.ID, fx.ownerID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
}

func TestReminderScheduledOneHourBeforeSlot(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	if len(fx.reminders.scheduled) != 1 {
		t.Fatalf("expected one reminder scheduled, got %d", len(fx.reminders.scheduled))
	}
	want := time.Date(2025, 3, 11, 13, 30, 0, 0, time.UTC)
	if !fx.reminders.scheduled[0].Equal(want) {
		t.Fatalf("expected reminder at %v, got %v", want, fx.reminders.scheduled[0])
	}
}

func TestReminderSkippedForImminentSlot(t *testing.T) {
	fx := newFixture(t)
	fx.clk.Set(time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC))

	if _, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	if len(fx.reminders.scheduled) != 0 {
		t.Fatalf("expected no reminder within lead time, got %d", len(fx.reminders.scheduled))
	}
}

func TestMaterializeCompletedNeverConflicts(t *testing.T) {
	fx := newFixture(t)

	completedAt := time.Date(2025, 3, 11, 14, 30, 0, 0, time.UTC)
	if err := fx.svc.MaterializeCompleted(context.Background(), fx.leadID, fx.ownerID, completedAt); err != nil {
		t.Fatalf("materialize failed: %v", err)
	}

	// The same slot must still be bookable: completed rows never hold slots.
	if _, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest()); err != nil {
		t.Fatalf("expected slot free despite completed row, got %v", err)
	}
}

func TestListScopesToOwnerForNonAdmins(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.svc.Create(context.Background(), fx.ownerID, fx.createRequest()); err != nil {
		t.Fatalf("booking failed: %v", err)
	}

	other := uuid.New()
	result, err := fx.svc.List(context.Background(), other, false, transport.ListBookingsRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("expected empty list for non-owner, got %d", result.Total)
	}

	result, err = fx.svc.List(context.Background(), other, true, transport.ListBookingsRequest{})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected admin to see the booking, got %d", result.Total)
	}
}
