package repository

import (
	"context"

	"github.com/google/uuid"
)

// Store is the customer persistence contract consumed by the service layer.
type Store interface {
	// Insert persists a new customer; a duplicate converted_from_lead_id
	// returns apperr.Conflict.
	Insert(ctx context.Context, c *Customer) error
	// FindByLeadID returns nil when no customer was converted from the lead.
	FindByLeadID(ctx context.Context, leadID uuid.UUID) (*Customer, error)
	// FindByEmail returns nil when no customer carries the contact email.
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

var _ Store = (*Repository)(nil)
