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

// Booking represents the call booking database model. ScheduledTime is an
// opaque "15:04" token; it is compared for slot equality but never used for
// timezone arithmetic.
type Booking struct {
	ID              uuid.UUID `db:"id"`
	LeadID          uuid.UUID `db:"lead_id"`
	OwnerID         uuid.UUID `db:"owner_id"`
	ScheduledDate   time.Time `db:"scheduled_date"`
	ScheduledTime   string    `db:"scheduled_time"`
	DurationMinutes int       `db:"duration_minutes"`
	Status          string    `db:"status"`
	ReminderSent    bool      `db:"reminder_sent"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// ReminderInfo carries what the reminder worker needs to notify a booking owner.
type ReminderInfo struct {
	BookingID     uuid.UUID
	LeadName      string
	OwnerEmail    string
	ScheduledDate time.Time
	ScheduledTime string
	Status        string
	ReminderSent  bool
}

// Repository provides database operations for call bookings.
type Repository struct {
	pool *pgxpool.Pool
}

const bookingNotFoundMsg = "booking not found"

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

const bookingColumns = `id, lead_id, owner_id, scheduled_date, scheduled_time,
	duration_minutes, status, reminder_sent, created_at, updated_at`

// New creates a new bookings repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new booking. The partial unique index on
// (lead_id, scheduled_date, scheduled_time) WHERE status='scheduled' makes
// two concurrent inserts for the same slot impossible; the loser gets the
// same Conflict error the pre-check path produces.
func (r *Repository) Insert(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO call_bookings (
			id, lead_id, owner_id, scheduled_date, scheduled_time,
			duration_minutes, status, reminder_sent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.LeadID, b.OwnerID, b.ScheduledDate, b.ScheduledTime,
		b.DurationMinutes, b.Status, b.ReminderSent, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.Conflict("timeslot already booked")
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

// FindScheduledBySlot returns the scheduled booking holding the given
// (lead, date, time) slot, or nil when the slot is free.
func (r *Repository) FindScheduledBySlot(ctx context.Context, leadID uuid.UUID, date time.Time, timeOfDay string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM call_bookings
		WHERE lead_id = $1 AND scheduled_date = $2 AND scheduled_time = $3 AND status = 'scheduled'`

	b, err := r.scanOne(r.pool.QueryRow(ctx, query, leadID, date, timeOfDay))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find booking by slot: %w", err)
	}

	return b, nil
}

// GetByID retrieves a booking by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM call_bookings WHERE id = $1`

	b, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(bookingNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return b, nil
}

// CloseOut moves a scheduled booking into a terminal status. The status guard
// in the WHERE clause makes terminal bookings impossible to reopen or
// re-close; in that case it returns nil so the service can report the reason.
func (r *Repository) CloseOut(ctx context.Context, id uuid.UUID, status string, now time.Time) (*Booking, error) {
	query := `UPDATE call_bookings SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'scheduled'
		RETURNING ` + bookingColumns

	b, err := r.scanOne(r.pool.QueryRow(ctx, query, id, status, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to close out booking: %w", err)
	}

	return b, nil
}

// Delete removes a booking.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM call_bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(bookingNotFoundMsg)
	}

	return nil
}

// MarkReminderSent flags a booking's reminder as delivered.
func (r *Repository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE call_bookings SET reminder_sent = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(bookingNotFoundMsg)
	}

	return nil
}

// GetReminderInfo loads the booking joined with lead and owner contact data
// for the reminder worker.
func (r *Repository) GetReminderInfo(ctx context.Context, id uuid.UUID) (*ReminderInfo, error) {
	query := `SELECT b.id, l.name, u.email, b.scheduled_date, b.scheduled_time, b.status, b.reminder_sent
		FROM call_bookings b
		JOIN leads l ON l.id = b.lead_id
		JOIN users u ON u.id = b.owner_id
		WHERE b.id = $1`

	var info ReminderInfo
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&info.BookingID, &info.LeadName, &info.OwnerEmail,
		&info.ScheduledDate, &info.ScheduledTime, &info.Status, &info.ReminderSent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(bookingNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get reminder info: %w", err)
	}

	return &info, nil
}

// ListParams contains parameters for listing bookings.
type ListParams struct {
	OwnerID  *uuid.UUID
	LeadID   *uuid.UUID
	Status   *string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// ListResult contains a page of bookings.
type ListResult struct {
	Items      []Booking
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// List retrieves bookings with filtering and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	idx := 1

	addFilter := func(clause string, value interface{}) {
		where += fmt.Sprintf(" AND %s = $%d", clause, idx)
		args = append(args, value)
		idx++
	}

	if params.OwnerID != nil {
		addFilter("owner_id", *params.OwnerID)
	}
	if params.LeadID != nil {
		addFilter("lead_id", *params.LeadID)
	}
	if params.Status != nil {
		addFilter("status", *params.Status)
	}
	if params.DateFrom != nil {
		where += fmt.Sprintf(" AND scheduled_date >= $%d", idx)
		args = append(args, *params.DateFrom)
		idx++
	}
	if params.DateTo != nil {
		where += fmt.Sprintf(" AND scheduled_date <= $%d", idx)
		args = append(args, *params.DateTo)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM call_bookings "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM call_bookings %s
		ORDER BY scheduled_date, scheduled_time
		LIMIT $%d OFFSET $%d`, bookingColumns, where, idx, idx+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	items := []Booking{}
	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.LeadID, &b.OwnerID, &b.ScheduledDate, &b.ScheduledTime,
			&b.DurationMinutes, &b.Status, &b.ReminderSent, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
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

func (r *Repository) scanOne(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.LeadID, &b.OwnerID, &b.ScheduledDate, &b.ScheduledTime,
		&b.DurationMinutes, &b.Status, &b.ReminderSent, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
