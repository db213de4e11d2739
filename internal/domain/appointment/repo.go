package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// LockByID reads the appointment with a row lock held until the
	// surrounding transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// LockAgenda locks the dentist row until the surrounding transaction
	// ends so overlap checks and inserts for one dentist run one at a time.
	LockAgenda(ctx context.Context, dentistID uuid.UUID) error
	// HasOverlap reports whether the dentist has a scheduled appointment
	// intersecting [start, end).
	HasOverlap(ctx context.Context, dentistID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
}
