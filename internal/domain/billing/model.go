package billing

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusCreated   = "created"
	StatusPartial   = "partial-payment"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Sell is the bill produced when an appointment is finished. Amounts are
// VAT inclusive: Total = Subtotal + VAT.
type Sell struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID    `db:"appointment_id" json:"appointment_id,omitempty"`
	Subtotal      float64       `db:"subtotal" json:"subtotal"`
	VAT           float64       `db:"vat" json:"vat"`
	Total         float64       `db:"total" json:"total"`
	Status        string        `db:"status" json:"status"`
	PaidAt        *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	Services      []ServiceLine `json:"services"`
	Supplies      []SupplyLine  `json:"supplies"`
	Payments      []Payment     `json:"payments"`
	Balance       float64       `json:"balance"`
}

// Amounts is the VAT split shared by lines, sells and payments.
type Amounts struct {
	Subtotal float64 `json:"subtotal"`
	VAT      float64 `json:"vat"`
	Total    float64 `json:"total"`
}

type ServiceLine struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SellID    uuid.UUID `db:"sell_id" json:"sell_id"`
	ServiceID uuid.UUID `db:"service_id" json:"service_id"`
	Name      string    `json:"name"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Price     float64   `db:"price" json:"price"`
	Amounts
}

type SupplyLine struct {
	ID       uuid.UUID `db:"id" json:"id"`
	SellID   uuid.UUID `db:"sell_id" json:"sell_id"`
	SupplyID uuid.UUID `db:"supply_id" json:"supply_id"`
	Name     string    `json:"name"`
	Quantity int       `db:"quantity" json:"quantity"`
	Price    float64   `db:"price" json:"price"`
	Amounts
}

type Payment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	SellID          uuid.UUID `db:"sell_id" json:"sell_id"`
	PaymentMethodID *int      `db:"payment_method_id" json:"payment_method_id,omitempty"`
	Amounts
	PaidAt time.Time `db:"paid_at" json:"paid_at"`
}

type PaymentRequest struct {
	PaymentMethodID *int    `json:"payment_method_id"`
	Total           float64 `json:"total"`
}

type SellFilter struct {
	PatientID *uuid.UUID
	Status    string
}
