package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/pkg/dates"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Supply is a consumable material. Stock is bought in BuyUnit and consumed in
// UseUnit; Equivalence is the number of use units in one buy unit.
type Supply struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Cost        float64   `db:"cost" json:"cost"`
	Price       float64   `db:"price" json:"price"`
	BuyUnit     string    `db:"buy_unit" json:"buy_unit"`
	UseUnit     string    `db:"use_unit" json:"use_unit"`
	Equivalence float64   `db:"equivalence" json:"equivalence"`
	IsSalable   bool      `db:"is_salable" json:"is_salable"`
	Image       *string   `db:"image" json:"image,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UnitUseCost is the cost of a single use unit.
func (s *Supply) UnitUseCost() float64 {
	if s.Equivalence <= 0 {
		return 0
	}
	return s.Cost / s.Equivalence
}

// PurchaseLot is one purchase of a supply. AvailableUseQuantity only ever
// decreases, and stays within [0, Quantity*Equivalence].
type PurchaseLot struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	SupplyID             uuid.UUID  `db:"supply_id" json:"supply_id"`
	BuyDate              time.Time  `db:"buy_date" json:"buy_date"`
	ExpirationDate       *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	Quantity             float64    `db:"quantity" json:"quantity"`
	AvailableUseQuantity float64    `db:"available_use_quantity" json:"available_use_quantity"`
	UnitCost             float64    `db:"unit_cost" json:"unit_cost"`
}

// TotalCost is what was paid for the lot.
func (l *PurchaseLot) TotalCost() float64 {
	return l.UnitCost * l.Quantity
}

// SupplyUpdate lists the fields an edit may change. Nil fields are left alone.
type SupplyUpdate struct {
	Name        *string  `json:"name"`
	Cost        *float64 `json:"cost"`
	Price       *float64 `json:"price"`
	BuyUnit     *string  `json:"buy_unit"`
	UseUnit     *string  `json:"use_unit"`
	Equivalence *float64 `json:"equivalence"`
	IsSalable   *bool    `json:"is_salable"`
	Image       *string  `json:"image"`
}

func (u SupplyUpdate) apply(s *Supply) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Cost != nil {
		s.Cost = *u.Cost
	}
	if u.Price != nil {
		s.Price = *u.Price
	}
	if u.BuyUnit != nil {
		s.BuyUnit = *u.BuyUnit
	}
	if u.UseUnit != nil {
		s.UseUnit = *u.UseUnit
	}
	if u.Equivalence != nil {
		s.Equivalence = *u.Equivalence
	}
	if u.IsSalable != nil {
		s.IsSalable = *u.IsSalable
	}
	if u.Image != nil {
		s.Image = u.Image
	}
}

// BuyRequest records a purchase. UnitCost defaults to the supply cost.
type BuyRequest struct {
	Quantity       float64     `json:"quantity"`
	UnitCost       *float64    `json:"unit_cost"`
	BuyDate        *time.Time  `json:"buy_date"`
	ExpirationDate *dates.Date `json:"expiration_date"`
}

// InventoryView is the consumable stock of one supply.
type InventoryView struct {
	Supply         *Supply        `json:"supply"`
	Lots           []*PurchaseLot `json:"lots"`
	StockInUseUnit float64        `json:"stock_in_use_unit"`
	StockInBuyUnit float64        `json:"stock_in_buy_unit"`
}

type SupplyFilter struct {
	Status  string
	Name    string
	Salable *bool
}
