package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"leadcrm_backend/internal/customers/repository"
	"leadcrm_backend/internal/customers/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore enforces the converted_from_lead_id uniqueness the real Postgres
// index provides.
type fakeStore struct {
	customers map[uuid.UUID]*repository.Customer
	// forcedInsertErr simulates losing a concurrent conversion race.
	forcedInsertErr error
	// missNextLeadLookup makes one FindByLeadID miss, simulating a pre-check
	// that ran before the concurrent winner committed.
	missNextLeadLookup bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{customers: make(map[uuid.UUID]*repository.Customer)}
}

func (f *fakeStore) Insert(_ context.Context, c *repository.Customer) error {
	if f.forcedInsertErr != nil {
		err := f.forcedInsertErr
		f.forcedInsertErr = nil
		return err
	}
	if c.ConvertedFromLeadID != nil {
		for _, existing := range f.customers {
			if existing.ConvertedFromLeadID != nil && *existing.ConvertedFromLeadID == *c.ConvertedFromLeadID {
				return apperr.Conflict("customer already exists for this lead")
			}
		}
	}
	cp := *c
	f.customers[c.ID] = &cp
	return nil
}

func (f *fakeStore) FindByLeadID(_ context.Context, leadID uuid.UUID) (*repository.Customer, error) {
	if f.missNextLeadLookup {
		f.missNextLeadLookup = false
		return nil, nil
	}
	for _, c := range f.customers {
		if c.ConvertedFromLeadID != nil && *c.ConvertedFromLeadID == leadID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*repository.Customer, error) {
	for _, c := range f.customers {
		if c.Email != nil && strings.EqualFold(*c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, apperr.NotFound("customer not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) (*repository.ListResult, error) {
	items := []repository.Customer{}
	for _, c := range f.customers {
		items = append(items, *c)
	}
	return &repository.ListResult{
		Items: items, Total: len(items),
		Page: params.Page, PageSize: params.PageSize, TotalPages: 1,
	}, nil
}

var _ repository.Store = (*fakeStore)(nil)

func newService(store *fakeStore) *Service {
	clk := clock.NewFake(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	return New(store, clk, logger.New("test"))
}

func sampleInput() ConvertInput {
	email := "jane@example.com"
	return ConvertInput{
		LeadID: uuid.New(),
		Name:   "Jane Prospect",
		Phone:  "+31612345678",
		Email:  &email,
	}
}

func TestConvertFromLeadCreatesCustomerSnapshot(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	in := sampleInput()

	result, err := svc.ConvertFromLead(context.Background(), in)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if result.Outcome != transport.OutcomeCreated {
		t.Fatalf("expected created outcome, got %s", result.Outcome)
	}
	if result.Customer == nil {
		t.Fatal("expected a customer record")
	}
	if result.Customer.ConvertedFromLeadID == nil || *result.Customer.ConvertedFromLeadID != in.LeadID {
		t.Fatal("customer must be tagged with its originating lead")
	}
	if result.Customer.ConvertedAt == nil {
		t.Fatal("customer must carry a conversion timestamp")
	}
	if result.Customer.Name != in.Name || result.Customer.Phone != in.Phone {
		t.Fatal("customer must snapshot the lead's contact fields")
	}
}

func TestConvertFromLeadIdempotentPerLead(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	in := sampleInput()

	first, err := svc.ConvertFromLead(context.Background(), in)
	if err != nil {
		t.Fatalf("first conversion failed: %v", err)
	}

	second, err := svc.ConvertFromLead(context.Background(), in)
	if err != nil {
		t.Fatalf("second conversion failed: %v", err)
	}
	if second.Outcome != transport.OutcomeAlreadyConverted {
		t.Fatalf("expected already_converted, got %s", second.Outcome)
	}
	if second.Customer.ID != first.Customer.ID {
		t.Fatal("repeated conversions must converge on the same customer")
	}
	if len(store.customers) != 1 {
		t.Fatalf("expected exactly one customer, got %d", len(store.customers))
	}
}

func TestConvertFromLeadDeduplicatesByEmail(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	first := sampleInput()
	if _, err := svc.ConvertFromLead(context.Background(), first); err != nil {
		t.Fatalf("first conversion failed: %v", err)
	}

	// Different lead, same contact identity with different casing.
	second := sampleInput()
	email := "JANE@Example.com"
	second.Email = &email

	result, err := svc.ConvertFromLead(context.Background(), second)
	if err != nil {
		t.Fatalf("second conversion failed: %v", err)
	}
	if result.Outcome != transport.OutcomeIdentityExists {
		t.Fatalf("expected identity_exists, got %s", result.Outcome)
	}
	if len(store.customers) != 1 {
		t.Fatalf("expected no duplicate customer, got %d", len(store.customers))
	}
}

func TestConvertFromLeadWithoutEmailSkipsIdentityCheck(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	in := sampleInput()
	in.Email = nil

	result, err := svc.ConvertFromLead(context.Background(), in)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if result.Outcome != transport.OutcomeCreated {
		t.Fatalf("expected created outcome for email-less lead, got %s", result.Outcome)
	}
}

func TestConvertFromLeadRaceLoserAdoptsWinner(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	in := sampleInput()
	in.Email = nil

	// Winner's row exists but the loser's pre-check missed it; the insert
	// comes back with the constraint violation.
	winner, err := svc.ConvertFromLead(context.Background(), in)
	if err != nil {
		t.Fatalf("winner conversion failed: %v", err)
	}
	store.missNextLeadLookup = true
	store.forcedInsertErr = apperr.Conflict("customer already exists for this lead")

	result, err := svc.ConvertFromLead(context.Background(), in)
	if err != nil {
		t.Fatalf("loser must not surface the constraint error, got %v", err)
	}
	if result.Outcome != transport.OutcomeAlreadyConverted {
		t.Fatalf("expected already_converted for race loser, got %s", result.Outcome)
	}
	if result.Customer.ID != winner.Customer.ID {
		t.Fatal("race loser must adopt the winner's customer")
	}
}
