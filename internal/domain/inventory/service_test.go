package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory/inventorytest"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/pkg/dates"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService() (*inventory.Service, *inventorytest.SupplyRepo, *inventorytest.LotRepo) {
	supplies := inventorytest.NewSupplyRepo()
	lots := inventorytest.NewLotRepo()
	svc := inventory.NewService(supplies, lots)
	svc.SetClock(func() time.Time { return now })
	return svc, supplies, lots
}

func floss() *inventory.Supply {
	return &inventory.Supply{
		Name: "Dental Floss", Cost: 50, Price: 3, BuyUnit: "roll", UseUnit: "meter",
		Equivalence: 50, IsSalable: true,
	}
}

func TestService_CreateSupply(t *testing.T) {
	svc, _, _ := newTestService()
	sp := floss()
	if err := svc.CreateSupply(context.Background(), sp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.ID == uuid.Nil || sp.Status != inventory.StatusActive {
		t.Errorf("expected id and active status, got %+v", sp)
	}

	dup := floss()
	dup.Name = "dental floss"
	if err := svc.CreateSupply(context.Background(), dup); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict for duplicate name, got %v", err)
	}
}

func TestService_CreateSupply_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	tests := []struct {
		name   string
		mutate func(*inventory.Supply)
	}{
		{"missing name", func(s *inventory.Supply) { s.Name = "  " }},
		{"zero equivalence", func(s *inventory.Supply) { s.Equivalence = 0 }},
		{"missing unit", func(s *inventory.Supply) { s.UseUnit = "" }},
		{"negative price", func(s *inventory.Supply) { s.Price = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := floss()
			tt.mutate(sp)
			if err := svc.CreateSupply(context.Background(), sp); !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("expected invalid error, got %v", err)
			}
		})
	}
}

func TestService_UpdateAndDeleteSupply(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sp := floss()
	_ = svc.CreateSupply(ctx, sp)

	price := 4.5
	updated, err := svc.UpdateSupply(ctx, sp.ID, inventory.SupplyUpdate{Price: &price})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Price != 4.5 || updated.Name != "Dental Floss" {
		t.Errorf("unexpected update result: %+v", updated)
	}

	zero := 0.0
	if _, err := svc.UpdateSupply(ctx, sp.ID, inventory.SupplyUpdate{Equivalence: &zero}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid error, got %v", err)
	}

	if err := svc.DeleteSupply(ctx, sp.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetSupply(ctx, sp.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected deleted supply to be hidden, got %v", err)
	}

	items, total, _ := svc.ListSupplies(ctx, inventory.SupplyFilter{}, 20, 0)
	if total != 0 || len(items) != 0 {
		t.Errorf("expected no active supplies, got %d", total)
	}
}

func TestService_BuyAndInventory(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sp := floss()
	_ = svc.CreateSupply(ctx, sp)

	exp := dates.Of(now.AddDate(0, 6, 0))
	lot, err := svc.Buy(ctx, sp.ID, inventory.BuyRequest{Quantity: 2, ExpirationDate: &exp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lot.AvailableUseQuantity != 100 || lot.UnitCost != 50 {
		t.Errorf("expected 100 meters at supply cost, got %+v", lot)
	}

	cost := 40.0
	if _, err := svc.Buy(ctx, sp.ID, inventory.BuyRequest{Quantity: 1, UnitCost: &cost}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view, err := svc.Inventory(ctx, sp.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.StockInUseUnit != 150 || view.StockInBuyUnit != 3 {
		t.Errorf("unexpected stock: %g use / %g buy", view.StockInUseUnit, view.StockInBuyUnit)
	}
	if len(view.Lots) != 2 || view.Lots[0].ExpirationDate == nil {
		t.Errorf("expected expiring lot first, got %+v", view.Lots)
	}

	buys, total, err := svc.ListBuys(ctx, sp.ID, 20, 0)
	if err != nil || total != 2 || len(buys) != 2 {
		t.Errorf("expected 2 buy records, got %d (%v)", total, err)
	}

	if _, err := svc.Buy(ctx, sp.ID, inventory.BuyRequest{Quantity: 0}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid error for zero quantity, got %v", err)
	}
	if _, err := svc.Buy(ctx, uuid.New(), inventory.BuyRequest{Quantity: 1}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_LockStocks(t *testing.T) {
	svc, supplies, lots := newTestService()
	ctx := context.Background()
	sp := supplies.Put(floss())
	lots.Put(&inventory.PurchaseLot{SupplyID: sp.ID, BuyDate: now, Quantity: 1, AvailableUseQuantity: 50})

	stocks, err := svc.LockStocks(ctx, []uuid.UUID{sp.ID, sp.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lots.Locked != 1 {
		t.Errorf("expected one locking query, got %d", lots.Locked)
	}
	st := stocks[sp.ID]
	if st == nil || st.InUseUnit(now) != 50 {
		t.Fatalf("unexpected stock: %+v", st)
	}

	if _, err := st.Consume(20, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lots.Available(st.Lots[0].ID) != 50 {
		t.Error("consumption must not be visible before SaveLots")
	}
	if err := svc.SaveLots(ctx, st.Lots); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lots.Available(st.Lots[0].ID) != 30 {
		t.Errorf("expected 30 after save, got %g", lots.Available(st.Lots[0].ID))
	}

	if _, err := svc.LockStocks(ctx, []uuid.UUID{uuid.New()}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown supply, got %v", err)
	}
}
