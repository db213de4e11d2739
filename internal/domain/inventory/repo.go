package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SupplyRepository interface {
	Create(ctx context.Context, s *Supply) error
	GetByID(ctx context.Context, id uuid.UUID) (*Supply, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Supply, error)
	Update(ctx context.Context, s *Supply) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	List(ctx context.Context, f SupplyFilter, limit, offset int) ([]*Supply, int, error)
}

type LotRepository interface {
	Create(ctx context.Context, l *PurchaseLot) error
	ListBySupply(ctx context.Context, supplyID uuid.UUID, limit, offset int) ([]*PurchaseLot, int, error)
	// Consumable returns lots of the given supplies that are not expired on
	// day today and still have stock.
	Consumable(ctx context.Context, supplyIDs []uuid.UUID, today time.Time) ([]*PurchaseLot, error)
	// LockConsumable is Consumable with FOR UPDATE row locks; it must run in a
	// transaction.
	LockConsumable(ctx context.Context, supplyIDs []uuid.UUID, today time.Time) ([]*PurchaseLot, error)
	UpdateAvailable(ctx context.Context, lots []*PurchaseLot) error
}
