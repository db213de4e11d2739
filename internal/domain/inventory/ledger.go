package inventory

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
)

// epsilon absorbs float rounding when comparing use quantities.
const epsilon = 1e-9

// InsufficientStockError reports that a supply cannot cover a requested
// quantity. No lot is modified when it is returned.
type InsufficientStockError struct {
	SupplyID   uuid.UUID
	SupplyName string
	UseUnit    string
	Requested  float64
	Available  float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough %s: requested %g %s, only %g %s available",
		e.SupplyName, e.Requested, e.UseUnit, e.Available, e.UseUnit)
}

// Is classifies the error as a client error.
func (e *InsufficientStockError) Is(target error) bool { return target == apperr.ErrInvalid }

// Draw is the quantity taken from one lot by Consume.
type Draw struct {
	LotID    uuid.UUID `json:"lot_id"`
	Quantity float64   `json:"quantity"`
}

// Stock is a supply together with its purchase lots. All stock math is done
// on a Stock so it can be tested without a database.
type Stock struct {
	Supply *Supply
	Lots   []*PurchaseLot
}

// consumable reports whether lot can still be drawn from on day today.
// A lot expiring today is already excluded.
func consumable(lot *PurchaseLot, today time.Time) bool {
	if lot.AvailableUseQuantity <= epsilon {
		return false
	}
	return lot.ExpirationDate == nil || Day(*lot.ExpirationDate).After(Day(today))
}

// SortLots orders lots by consumption priority: earliest expiration first,
// lots without expiration last, then by buy date and id.
func SortLots(lots []*PurchaseLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.ExpirationDate == nil && b.ExpirationDate != nil:
			return false
		case a.ExpirationDate != nil && b.ExpirationDate == nil:
			return true
		case a.ExpirationDate != nil && !Day(*a.ExpirationDate).Equal(Day(*b.ExpirationDate)):
			return a.ExpirationDate.Before(*b.ExpirationDate)
		case !a.BuyDate.Equal(b.BuyDate):
			return a.BuyDate.Before(b.BuyDate)
		default:
			return a.ID.String() < b.ID.String()
		}
	})
}

// ConsumableLots returns the lots that can be drawn from today, in
// consumption order.
func (s *Stock) ConsumableLots(today time.Time) []*PurchaseLot {
	out := make([]*PurchaseLot, 0, len(s.Lots))
	for _, lot := range s.Lots {
		if consumable(lot, today) {
			out = append(out, lot)
		}
	}
	SortLots(out)
	return out
}

// InUseUnit is the consumable stock in use units.
func (s *Stock) InUseUnit(today time.Time) float64 {
	var total float64
	for _, lot := range s.ConsumableLots(today) {
		total += lot.AvailableUseQuantity
	}
	return total
}

// InBuyUnit is the consumable stock in buy units.
func (s *Stock) InBuyUnit(today time.Time) float64 {
	if s.Supply.Equivalence <= 0 {
		return 0
	}
	return s.InUseUnit(today) / s.Supply.Equivalence
}

// Consume draws qty use units from the consumable lots in priority order and
// returns what was taken from each lot. When the consumable stock is short
// it returns *InsufficientStockError and leaves every lot untouched.
func (s *Stock) Consume(qty float64, today time.Time) ([]Draw, error) {
	if qty < 0 || math.IsNaN(qty) {
		return nil, fmt.Errorf("consume quantity must not be negative, got %g", qty)
	}

	lots := s.ConsumableLots(today)
	var available float64
	for _, lot := range lots {
		available += lot.AvailableUseQuantity
	}
	if qty > available+epsilon {
		return nil, &InsufficientStockError{
			SupplyID:   s.Supply.ID,
			SupplyName: s.Supply.Name,
			UseUnit:    s.Supply.UseUnit,
			Requested:  qty,
			Available:  available,
		}
	}

	var draws []Draw
	remaining := qty
	for _, lot := range lots {
		if remaining <= epsilon {
			break
		}
		take := math.Min(remaining, lot.AvailableUseQuantity)
		lot.AvailableUseQuantity -= take
		if lot.AvailableUseQuantity < epsilon {
			lot.AvailableUseQuantity = 0
		}
		remaining -= take
		draws = append(draws, Draw{LotID: lot.ID, Quantity: take})
	}
	return draws, nil
}

// NewLot builds the lot appended by a purchase of quantity buy units.
func NewLot(supply *Supply, quantity, unitCost float64, buyDate time.Time, expiration *time.Time) (*PurchaseLot, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be greater than 0")
	}
	if unitCost < 0 {
		return nil, fmt.Errorf("unit_cost must not be negative")
	}
	if supply.Equivalence <= 0 {
		return nil, fmt.Errorf("supply %s has no valid equivalence", supply.Name)
	}
	if expiration != nil {
		exp := Day(*expiration)
		if exp.Before(Day(buyDate)) {
			return nil, fmt.Errorf("expiration_date must not be before buy_date")
		}
		expiration = &exp
	}
	return &PurchaseLot{
		SupplyID:             supply.ID,
		BuyDate:              buyDate,
		ExpirationDate:       expiration,
		Quantity:             quantity,
		AvailableUseQuantity: quantity * supply.Equivalence,
		UnitCost:             unitCost,
	}, nil
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}
