package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Customer represents the customer database model.
type Customer struct {
	ID                  uuid.UUID  `db:"id"`
	Name                string     `db:"name"`
	Phone               string     `db:"phone"`
	Email               *string    `db:"email"`
	ConvertedFromLeadID *uuid.UUID `db:"converted_from_lead_id"`
	ConvertedAt         *time.Time `db:"converted_at"`
	CreatedAt           time.Time  `db:"created_at"`
}

// Repository provides database operations for customers.
type Repository struct {
	pool *pgxpool.Pool
}

const customerNotFoundMsg = "customer not found"

const pgUniqueViolation = "23505"

const customerColumns = `id, name, phone, email, converted_from_lead_id, converted_at, created_at`

// New creates a new customers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new customer. The unique index on converted_from_lead_id
// backstops the conversion policy's lead-id idempotency axis; a duplicate
// insert comes back as Conflict so the caller can re-read the winner.
func (r *Repository) Insert(ctx context.Context, c *Customer) error {
	query := `
		INSERT INTO customers (id, name, phone, email, converted_from_lead_id, converted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Phone, c.Email, c.ConvertedFromLeadID, c.ConvertedAt, c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.Conflict("customer already exists for this lead")
		}
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	return nil
}

// FindByLeadID returns the customer converted from the given lead, or nil.
func (r *Repository) FindByLeadID(ctx context.Context, leadID uuid.UUID) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE converted_from_lead_id = $1`

	c, err := r.scanOne(r.pool.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer by lead: %w", err)
	}

	return c, nil
}

// FindByEmail returns the customer with the given contact email, or nil.
// Matching is case-insensitive.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1)`

	c, err := r.scanOne(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}

	return c, nil
}

// GetByID retrieves a customer by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	c, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(customerNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

// ListParams contains parameters for listing customers.
type ListParams struct {
	Search   string
	Page     int
	PageSize int
}

// ListResult contains a page of customers.
type ListResult struct {
	Items      []Customer
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// List retrieves customers with search and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	idx := 1

	if params.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)", idx, idx, idx)
		args = append(args, "%"+params.Search+"%")
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM customers %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, customerColumns, where, idx, idx+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	items := []Customer{}
	for rows.Next() {
		var c Customer
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Phone, &c.Email, &c.ConvertedFromLeadID, &c.ConvertedAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *Repository) scanOne(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.ConvertedFromLeadID, &c.ConvertedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
