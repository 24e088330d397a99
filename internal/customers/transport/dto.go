package transport

import (
	"time"

	"github.com/google/uuid"
)

// Conversion outcomes.
const (
	OutcomeCreated          = "created"
	OutcomeAlreadyConverted = "already_converted"
	OutcomeIdentityExists   = "identity_exists"
)

// ListCustomersRequest is the query parameters for listing customers.
type ListCustomersRequest struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// CustomerResponse is the response body for a customer. Contact fields are a
// snapshot taken at conversion time, not a live view of the lead.
type CustomerResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone"`
	Email               *string    `json:"email,omitempty"`
	ConvertedFromLeadID *uuid.UUID `json:"convertedFromLeadId,omitempty"`
	ConvertedAt         *time.Time `json:"convertedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// CustomerListResponse is the paginated list response.
type CustomerListResponse struct {
	Items      []CustomerResponse `json:"items"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalPages int                `json:"totalPages"`
}
