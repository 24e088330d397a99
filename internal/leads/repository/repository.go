package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Lead represents the lead database model.
type Lead struct {
	ID              uuid.UUID  `db:"id"`
	Name            string     `db:"name"`
	Phone           string     `db:"phone"`
	Email           *string    `db:"email"`
	Notes           *string    `db:"notes"`
	ImportantPoints *string    `db:"important_points"`
	Status          string     `db:"status"`
	IsActive        bool       `db:"is_active"`
	OwnerID         uuid.UUID  `db:"owner_id"`
	AssigneeID      *uuid.UUID `db:"assignee_id"`
	LastContactedAt *time.Time `db:"last_contacted_at"`
	CallCompleted   bool       `db:"call_completed"`
	CallCompletedAt *time.Time `db:"call_completed_at"`
	CallCompletedBy *uuid.UUID `db:"call_completed_by"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// TransitionedLead is a lead after a status transition, carrying the status
// it held immediately before the write.
type TransitionedLead struct {
	Lead
	PreviousStatus string
}

// CallHistoryEntry is one append-only record of a call attempt against a lead.
type CallHistoryEntry struct {
	ID         uuid.UUID `db:"id"`
	LeadID     uuid.UUID `db:"lead_id"`
	Outcome    string    `db:"outcome"`
	OccurredAt time.Time `db:"occurred_at"`
	ActorID    uuid.UUID `db:"actor_id"`
	Note       *string   `db:"note"`
}

// Repository provides database operations for leads.
type Repository struct {
	pool *pgxpool.Pool
}

const leadNotFoundMsg = "lead not found"

const leadColumns = `id, name, phone, email, notes, important_points, status, is_active,
	owner_id, assignee_id, last_contacted_at, call_completed, call_completed_at,
	call_completed_by, created_at, updated_at`

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new lead.
func (r *Repository) Insert(ctx context.Context, l *Lead) error {
	query := `
		INSERT INTO leads (
			id, name, phone, email, notes, important_points, status, is_active,
			owner_id, assignee_id, last_contacted_at, call_completed,
			call_completed_at, call_completed_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.Name, l.Phone, l.Email, l.Notes, l.ImportantPoints, l.Status, l.IsActive,
		l.OwnerID, l.AssigneeID, l.LastContactedAt, l.CallCompleted,
		l.CallCompletedAt, l.CallCompletedBy, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	return nil
}

// GetByID retrieves an active lead by its ID. Soft-deleted leads are invisible
// here; callers cannot distinguish deleted from never-existed.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND is_active = true`

	l, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	return l, nil
}

// TransitionStatus atomically writes the new status and returns the lead
// together with the status it held before the write. The self-join pins the
// previous status inside the same statement, so concurrent transitions each
// see a consistent (previous, new) pair.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, newStatus string, now time.Time) (*TransitionedLead, error) {
	query := `
		UPDATE leads l SET status = $2, updated_at = $3
		FROM (SELECT id, status AS prev_status FROM leads WHERE id = $1 AND is_active = true FOR UPDATE) cur
		WHERE l.id = cur.id
		RETURNING l.id, l.name, l.phone, l.email, l.notes, l.important_points, l.status,
			l.is_active, l.owner_id, l.assignee_id, l.last_contacted_at, l.call_completed,
			l.call_completed_at, l.call_completed_by, l.created_at, l.updated_at, cur.prev_status`

	var t TransitionedLead
	err := r.pool.QueryRow(ctx, query, id, newStatus, now).Scan(
		&t.ID, &t.Name, &t.Phone, &t.Email, &t.Notes, &t.ImportantPoints, &t.Status,
		&t.IsActive, &t.OwnerID, &t.AssigneeID, &t.LastContactedAt, &t.CallCompleted,
		&t.CallCompletedAt, &t.CallCompletedBy, &t.CreatedAt, &t.UpdatedAt, &t.PreviousStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to transition lead status: %w", err)
	}

	return &t, nil
}

// Update patches mutable contact fields on an active lead.
func (r *Repository) Update(ctx context.Context, l *Lead) error {
	query := `
		UPDATE leads SET name = $2, phone = $3, email = $4, notes = $5,
			important_points = $6, assignee_id = $7, updated_at = $8
		WHERE id = $1 AND is_active = true`

	result, err := r.pool.Exec(ctx, query,
		l.ID, l.Name, l.Phone, l.Email, l.Notes, l.ImportantPoints, l.AssigneeID, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// MarkCallCompleted sets the call completion fields without touching status.
func (r *Repository) MarkCallCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time, actorID uuid.UUID, now time.Time) (*Lead, error) {
	query := `
		UPDATE leads SET call_completed = true, call_completed_at = $2,
			call_completed_by = $3, last_contacted_at = $2, updated_at = $4
		WHERE id = $1 AND is_active = true
		RETURNING ` + leadColumns

	l, err := r.scanOne(r.pool.QueryRow(ctx, query, id, completedAt, actorID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to mark call completed: %w", err)
	}

	return l, nil
}

// TouchLastContacted stamps the last contact time and returns the lead.
func (r *Repository) TouchLastContacted(ctx context.Context, id uuid.UUID, now time.Time) (*Lead, error) {
	query := `
		UPDATE leads SET last_contacted_at = $2, updated_at = $2
		WHERE id = $1 AND is_active = true
		RETURNING ` + leadColumns

	l, err := r.scanOne(r.pool.QueryRow(ctx, query, id, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to touch last contacted: %w", err)
	}

	return l, nil
}

// SoftDelete hides a lead from all active queries while retaining the row.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE leads SET is_active = false, updated_at = $2 WHERE id = $1 AND is_active = true`, id, now)
	if err != nil {
		return fmt.Errorf("failed to soft delete lead: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// HardDelete removes a lead permanently; bookings and history cascade via FK.
func (r *Repository) HardDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to hard delete lead: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}

	return nil
}

// AppendHistory writes one append-only call history record.
func (r *Repository) AppendHistory(ctx context.Context, e *CallHistoryEntry) error {
	query := `
		INSERT INTO lead_call_history (id, lead_id, outcome, occurred_at, actor_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, e.ID, e.LeadID, e.Outcome, e.OccurredAt, e.ActorID, e.Note)
	if err != nil {
		return fmt.Errorf("failed to append call history: %w", err)
	}

	return nil
}

// ListHistory returns a lead's call history, newest first.
func (r *Repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]CallHistoryEntry, error) {
	query := `SELECT id, lead_id, outcome, occurred_at, actor_id, note
		FROM lead_call_history WHERE lead_id = $1 ORDER BY occurred_at DESC`

	rows, err := r.pool.Query(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call history: %w", err)
	}
	defer rows.Close()

	entries := []CallHistoryEntry{}
	for rows.Next() {
		var e CallHistoryEntry
		if err := rows.Scan(&e.ID, &e.LeadID, &e.Outcome, &e.OccurredAt, &e.ActorID, &e.Note); err != nil {
			return nil, fmt.Errorf("failed to scan call history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate call history: %w", err)
	}

	return entries, nil
}

// ListParams contains parameters for listing leads.
type ListParams struct {
	Status     *string
	AssigneeID *uuid.UUID
	Search     string
	Page       int
	PageSize   int
}

// ListResult contains a page of leads.
type ListResult struct {
	Items      []Lead
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// List retrieves active leads with filtering and pagination.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE is_active = true"
	args := []interface{}{}
	idx := 1

	if params.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, *params.Status)
		idx++
	}
	if params.AssigneeID != nil {
		where += fmt.Sprintf(" AND assignee_id = $%d", idx)
		args = append(args, *params.AssigneeID)
		idx++
	}
	if params.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR phone ILIKE $%d)", idx, idx)
		args = append(args, "%"+params.Search+"%")
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM leads %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, leadColumns, where, idx, idx+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	items := []Lead{}
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Phone, &l.Email, &l.Notes, &l.ImportantPoints, &l.Status,
			&l.IsActive, &l.OwnerID, &l.AssigneeID, &l.LastContactedAt, &l.CallCompleted,
			&l.CallCompletedAt, &l.CallCompletedBy, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
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

func (r *Repository) scanOne(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Notes, &l.ImportantPoints, &l.Status,
		&l.IsActive, &l.OwnerID, &l.AssigneeID, &l.LastContactedAt, &l.CallCompleted,
		&l.CallCompletedAt, &l.CallCompletedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
