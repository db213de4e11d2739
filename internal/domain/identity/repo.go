package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// PatientRepository stores patients with their person row and allergies.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, f PersonFilter, limit, offset int) ([]*Patient, int, error)
}

// DentistRepository stores dentists with their person row, weekdays and
// diplomas.
type DentistRepository interface {
	Create(ctx context.Context, d *Dentist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dentist, error)
	Update(ctx context.Context, d *Dentist) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, f PersonFilter, limit, offset int) ([]*Dentist, int, error)
}
