package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SellRepository interface {
	// Create stores the sell with its service and supply lines.
	Create(ctx context.Context, s *Sell) error
	// GetByID returns the sell with lines and payments.
	GetByID(ctx context.Context, id uuid.UUID) (*Sell, error)
	// LockByID returns the sell with its payments and holds a row lock until
	// the surrounding transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*Sell, error)
	// List returns sells without lines; Balance is filled.
	List(ctx context.Context, f SellFilter, limit, offset int) ([]*Sell, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error
	AddPayment(ctx context.Context, p *Payment) error
}
