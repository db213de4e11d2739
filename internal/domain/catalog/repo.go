package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads the seeded catalogs.
type Repository interface {
	TaxRegimes(ctx context.Context) ([]TaxRegime, error)
	Weekdays(ctx context.Context) ([]Weekday, error)
	Frequencies(ctx context.Context) ([]Frequency, error)
	PaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

type AllergyRepository interface {
	Create(ctx context.Context, a *Allergy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Allergy, error)
	Update(ctx context.Context, a *Allergy) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	// CountActive returns how many of ids are active allergies.
	CountActive(ctx context.Context, ids []uuid.UUID) (int, error)
	List(ctx context.Context, status string, limit, offset int) ([]*Allergy, int, error)
}
