// Package service implements the customer conversion policy: a qualifying
// lead materializes at most one customer, keyed by lead id and, where
// available, by contact email.
package service

import (
	"context"

	"leadcrm_backend/internal/customers/repository"
	"leadcrm_backend/internal/customers/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// ConvertInput is the lead snapshot the conversion policy works from.
type ConvertInput struct {
	LeadID uuid.UUID
	Name   string
	Phone  string
	Email  *string
}

// ConvertResult reports what the policy did. Outcome is one of the
// transport.Outcome* constants; Customer is the winning customer record
// regardless of which call created it.
type ConvertResult struct {
	Outcome  string
	Customer *transport.CustomerResponse
}

// Service provides business logic for customers.
type Service struct {
	repo repository.Store
	clk  clock.Clock
	log  *logger.Logger
}

// New creates a new customers service.
func New(repo repository.Store, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{repo: repo, clk: clk, log: log}
}

// ConvertFromLead creates a customer from a qualifying lead, exactly once.
// Two idempotency axes short-circuit to a no-op: a customer already converted
// from this lead id, and a customer already carrying the same contact email.
// The check-then-create is backstopped by the unique index on
// converted_from_lead_id; the email axis stays best-effort.
func (s *Service) ConvertFromLead(ctx context.Context, in ConvertInput) (*ConvertResult, error) {
	existing, err := s.repo.FindByLeadID(ctx, in.LeadID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ConvertResult{Outcome: transport.OutcomeAlreadyConverted, Customer: toResponsePtr(existing)}, nil
	}

	if in.Email != nil && *in.Email != "" {
		byEmail, err := s.repo.FindByEmail(ctx, *in.Email)
		if err != nil {
			return nil, err
		}
		if byEmail != nil {
			s.log.ConversionSkipped(in.LeadID.String(), "customer with same email already exists")
			return &ConvertResult{Outcome: transport.OutcomeIdentityExists, Customer: toResponsePtr(byEmail)}, nil
		}
	}

	now := s.clk.Now()
	leadID := in.LeadID
	customer := &repository.Customer{
		ID:                  uuid.New(),
		Name:                in.Name,
		Phone:               in.Phone,
		Email:               in.Email,
		ConvertedFromLeadID: &leadID,
		ConvertedAt:         &now,
		CreatedAt:           now,
	}

	if err := s.repo.Insert(ctx, customer); err != nil {
		// A concurrent conversion of the same lead won the insert; treat its
		// customer as ours.
		if apperr.Is(err, apperr.KindConflict) {
			winner, findErr := s.repo.FindByLeadID(ctx, in.LeadID)
			if findErr == nil && winner != nil {
				return &ConvertResult{Outcome: transport.OutcomeAlreadyConverted, Customer: toResponsePtr(winner)}, nil
			}
		}
		return nil, err
	}

	return &ConvertResult{Outcome: transport.OutcomeCreated, Customer: toResponsePtr(customer)}, nil
}

// GetByID retrieves a customer.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.CustomerResponse, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toResponsePtr(customer), nil
}

// List retrieves customers with search and pagination.
func (s *Service) List(ctx context.Context, req transport.ListCustomersRequest) (*transport.CustomerListResponse, error) {
	params := repository.ListParams{
		Search:   req.Search,
		Page:     max(req.Page, 1),
		PageSize: clampPageSize(req.PageSize),
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.CustomerResponse, len(result.Items))
	for i := range result.Items {
		items[i] = toResponse(&result.Items[i])
	}

	return &transport.CustomerListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

func clampPageSize(size int) int {
	if size < 1 || size > 100 {
		return 50
	}
	return size
}

func toResponse(c *repository.Customer) transport.CustomerResponse {
	return transport.CustomerResponse{
		ID:                  c.ID,
		Name:                c.Name,
		Phone:               c.Phone,
		Email:               c.Email,
		ConvertedFromLeadID: c.ConvertedFromLeadID,
		ConvertedAt:         c.ConvertedAt,
		CreatedAt:           c.CreatedAt,
	}
}

func toResponsePtr(c *repository.Customer) *transport.CustomerResponse {
	resp := toResponse(c)
	return &resp
}
