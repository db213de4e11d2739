package treatment

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
)

// Shortfall is the stock a supply lacks to produce a request. Missing is in
// use units; BuyMissing is the whole number of buy units to purchase.
type Shortfall struct {
	SupplyID   uuid.UUID `json:"supply_id"`
	Name       string    `json:"name"`
	Missing    float64   `json:"missing"`
	BuyMissing float64   `json:"buy_missing"`
	BuyUnit    string    `json:"buy_unit"`
	UseUnit    string    `json:"use_unit"`
}

// ShortfallError aborts a request that cannot be produced from current stock.
type ShortfallError struct {
	Shortfalls []Shortfall
}

func (e *ShortfallError) Error() string {
	names := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		names[i] = fmt.Sprintf("%s (missing %g %s)", s.Name, s.Missing, s.UseUnit)
	}
	return "not enough supplies: " + strings.Join(names, ", ")
}

func (e *ShortfallError) Is(target error) bool { return target == apperr.ErrInvalid }

func shortfallFor(sp *inventory.Supply, needed, available float64) (Shortfall, bool) {
	if needed <= available {
		return Shortfall{}, false
	}
	missing := needed - available
	var buyMissing float64
	if sp.Equivalence > 0 {
		buyMissing = math.Ceil(missing / sp.Equivalence)
	}
	return Shortfall{
		SupplyID:   sp.ID,
		Name:       sp.Name,
		Missing:    missing,
		BuyMissing: buyMissing,
		BuyUnit:    sp.BuyUnit,
		UseUnit:    sp.UseUnit,
	}, true
}

func supplyOf(req Requirement, stocks map[uuid.UUID]*inventory.Stock) (*inventory.Supply, *inventory.Stock) {
	if st, ok := stocks[req.SupplyID]; ok {
		return st.Supply, st
	}
	if req.Supply != nil {
		return req.Supply, nil
	}
	return &inventory.Supply{ID: req.SupplyID, Name: req.SupplyID.String()}, nil
}

// CanProduce reports the supplies that lack stock to produce qty units of
// svc. An empty result means the service can be produced. It does not modify
// stocks.
func CanProduce(svc *DentalService, qty float64, stocks map[uuid.UUID]*inventory.Stock, today time.Time) []Shortfall {
	var out []Shortfall
	for _, req := range svc.Requirements {
		sp, st := supplyOf(req, stocks)
		var available float64
		if st != nil {
			available = st.InUseUnit(today)
		}
		if sf, short := shortfallFor(sp, req.Quantity*qty, available); short {
			out = append(out, sf)
		}
	}
	return out
}

// CanProduceAll checks several orders against the same stock. Demand is
// summed per supply, so orders that fit one at a time but not together are
// reported. Shortfalls follow the order in which supplies first appear.
func CanProduceAll(orders []Order, stocks map[uuid.UUID]*inventory.Stock, today time.Time) []Shortfall {
	needed := make(map[uuid.UUID]float64)
	var order []Requirement
	for _, o := range orders {
		for _, req := range o.Service.Requirements {
			if _, seen := needed[req.SupplyID]; !seen {
				order = append(order, req)
			}
			needed[req.SupplyID] += req.Quantity * o.Quantity
		}
	}

	var out []Shortfall
	for _, req := range order {
		sp, st := supplyOf(req, stocks)
		var available float64
		if st != nil {
			available = st.InUseUnit(today)
		}
		if sf, short := shortfallFor(sp, needed[req.SupplyID], available); short {
			out = append(out, sf)
		}
	}
	return out
}

// Cost is the supply cost of one unit of svc. Requirements without a loaded
// supply are skipped.
func Cost(svc *DentalService) float64 {
	var total float64
	for _, req := range svc.Requirements {
		if req.Supply != nil {
			total += req.Supply.UnitUseCost() * req.Quantity
		}
	}
	return total
}

// SupplyIDs lists the distinct supplies used by svc.
func SupplyIDs(svc *DentalService) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(svc.Requirements))
	var ids []uuid.UUID
	for _, req := range svc.Requirements {
		if !seen[req.SupplyID] {
			seen[req.SupplyID] = true
			ids = append(ids, req.SupplyID)
		}
	}
	return ids
}
