package treatment

import (
	"context"

	"github.com/google/uuid"
)

// ServiceRepository persists services together with their requirements.
// Reads fill Requirement.Supply.
type ServiceRepository interface {
	Create(ctx context.Context, s *DentalService) error
	GetByID(ctx context.Context, id uuid.UUID) (*DentalService, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*DentalService, error)
	Update(ctx context.Context, s *DentalService) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	List(ctx context.Context, f ServiceFilter, limit, offset int) ([]*DentalService, int, error)
}
