package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the lead persistence contract consumed by the service layer.
// Soft-deleted leads are excluded from every method here; they are retained
// in the table but indistinguishable from never-existed.
type Store interface {
	Insert(ctx context.Context, l *Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lead, error)
	// TransitionStatus atomically writes the new status and reports the
	// status held immediately before the write.
	TransitionStatus(ctx context.Context, id uuid.UUID, newStatus string, now time.Time) (*TransitionedLead, error)
	Update(ctx context.Context, l *Lead) error
	MarkCallCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time, actorID uuid.UUID, now time.Time) (*Lead, error)
	TouchLastContacted(ctx context.Context, id uuid.UUID, now time.Time) (*Lead, error)
	SoftDelete(ctx context.Context, id uuid.UUID, now time.Time) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	AppendHistory(ctx context.Context, e *CallHistoryEntry) error
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]CallHistoryEntry, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

var _ Store = (*Repository)(nil)
