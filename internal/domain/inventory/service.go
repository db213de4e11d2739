package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
)

// Service manages supplies and their purchase lots.
type Service struct {
	supplies SupplyRepository
	lots     LotRepository
	now      func() time.Time
}

func NewService(supplies SupplyRepository, lots LotRepository) *Service {
	return &Service{supplies: supplies, lots: lots, now: time.Now}
}

// Today is the service clock truncated to a calendar day.
func (s *Service) Today() time.Time {
	return Day(s.now())
}

func validateSupply(sp *Supply) error {
	sp.Name = strings.TrimSpace(sp.Name)
	switch {
	case sp.Name == "":
		return apperr.Invalid("name is required")
	case sp.BuyUnit == "" || sp.UseUnit == "":
		return apperr.Invalid("buy_unit and use_unit are required")
	case sp.Equivalence <= 0:
		return apperr.Invalid("equivalence must be greater than 0")
	case sp.Cost < 0 || sp.Price < 0:
		return apperr.Invalid("cost and price must not be negative")
	}
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, exclude uuid.UUID) error {
	taken, err := s.supplies.NameTaken(ctx, name, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("supply %q already exists", name)
	}
	return nil
}

func (s *Service) CreateSupply(ctx context.Context, sp *Supply) error {
	if err := validateSupply(sp); err != nil {
		return err
	}
	if err := s.ensureNameFree(ctx, sp.Name, uuid.Nil); err != nil {
		return err
	}
	sp.Status = StatusActive
	return s.supplies.Create(ctx, sp)
}

// GetSupply returns an active supply.
func (s *Service) GetSupply(ctx context.Context, id uuid.UUID) (*Supply, error) {
	sp, err := s.supplies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sp.Status != StatusActive {
		return nil, apperr.NotFound("supply not found")
	}
	return sp, nil
}

func (s *Service) ListSupplies(ctx context.Context, f SupplyFilter, limit, offset int) ([]*Supply, int, error) {
	if f.Status == "" {
		f.Status = StatusActive
	}
	return s.supplies.List(ctx, f, limit, offset)
}

func (s *Service) UpdateSupply(ctx context.Context, id uuid.UUID, u SupplyUpdate) (*Supply, error) {
	sp, err := s.GetSupply(ctx, id)
	if err != nil {
		return nil, err
	}
	u.apply(sp)
	if err := validateSupply(sp); err != nil {
		return nil, err
	}
	if u.Name != nil {
		if err := s.ensureNameFree(ctx, sp.Name, sp.ID); err != nil {
			return nil, err
		}
	}
	if err := s.supplies.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// DeleteSupply marks the supply inactive. Lots and sell history are kept.
func (s *Service) DeleteSupply(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetSupply(ctx, id); err != nil {
		return err
	}
	return s.supplies.SetStatus(ctx, id, StatusInactive)
}

// Buy appends a purchase lot to the supply.
func (s *Service) Buy(ctx context.Context, supplyID uuid.UUID, req BuyRequest) (*PurchaseLot, error) {
	sp, err := s.GetSupply(ctx, supplyID)
	if err != nil {
		return nil, err
	}

	unitCost := sp.Cost
	if req.UnitCost != nil {
		unitCost = *req.UnitCost
	}
	buyDate := s.now().UTC()
	if req.BuyDate != nil {
		buyDate = req.BuyDate.UTC()
	}
	var exp *time.Time
	if req.ExpirationDate != nil && !req.ExpirationDate.IsZero() {
		t := req.ExpirationDate.Time
		exp = &t
	}

	lot, err := NewLot(sp, req.Quantity, unitCost, buyDate, exp)
	if err != nil {
		return nil, apperr.Invalid("%s", err.Error())
	}
	if err := s.lots.Create(ctx, lot); err != nil {
		return nil, err
	}
	return lot, nil
}

// ListBuys returns the purchase history of a supply, newest first.
func (s *Service) ListBuys(ctx context.Context, supplyID uuid.UUID, limit, offset int) ([]*PurchaseLot, int, error) {
	if _, err := s.GetSupply(ctx, supplyID); err != nil {
		return nil, 0, err
	}
	return s.lots.ListBySupply(ctx, supplyID, limit, offset)
}

func (s *Service) Inventory(ctx context.Context, supplyID uuid.UUID) (*InventoryView, error) {
	stocks, err := s.Stocks(ctx, []uuid.UUID{supplyID})
	if err != nil {
		return nil, err
	}
	st := stocks[supplyID]
	if st.Supply.Status != StatusActive {
		return nil, apperr.NotFound("supply not found")
	}
	today := s.Today()
	return &InventoryView{
		Supply:         st.Supply,
		Lots:           st.ConsumableLots(today),
		StockInUseUnit: st.InUseUnit(today),
		StockInBuyUnit: st.InBuyUnit(today),
	}, nil
}

// Stocks loads the supplies and their consumable lots without locking.
func (s *Service) Stocks(ctx context.Context, supplyIDs []uuid.UUID) (map[uuid.UUID]*Stock, error) {
	return s.loadStocks(ctx, supplyIDs, s.lots.Consumable)
}

// LockStocks loads the supplies and row-locks their consumable lots until the
// surrounding transaction ends.
func (s *Service) LockStocks(ctx context.Context, supplyIDs []uuid.UUID) (map[uuid.UUID]*Stock, error) {
	return s.loadStocks(ctx, supplyIDs, s.lots.LockConsumable)
}

type lotLoader func(ctx context.Context, supplyIDs []uuid.UUID, today time.Time) ([]*PurchaseLot, error)

func (s *Service) loadStocks(ctx context.Context, supplyIDs []uuid.UUID, load lotLoader) (map[uuid.UUID]*Stock, error) {
	ids := uniqueSorted(supplyIDs)
	stocks := make(map[uuid.UUID]*Stock, len(ids))
	if len(ids) == 0 {
		return stocks, nil
	}

	supplies, err := s.supplies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sp := range supplies {
		stocks[sp.ID] = &Stock{Supply: sp}
	}
	for _, id := range ids {
		if _, ok := stocks[id]; !ok {
			return nil, apperr.NotFound("supply %s not found", id)
		}
	}

	lots, err := load(ctx, ids, s.Today())
	if err != nil {
		return nil, err
	}
	for _, l := range lots {
		if st, ok := stocks[l.SupplyID]; ok {
			st.Lots = append(st.Lots, l)
		}
	}
	return stocks, nil
}

// SaveLots persists lot quantities changed by Consume.
func (s *Service) SaveLots(ctx context.Context, lots []*PurchaseLot) error {
	return s.lots.UpdateAvailable(ctx, lots)
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sortIDs(out)
	return out
}
