package treatment

import (
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// DentalService is a billable procedure and the supplies one unit of it uses.
type DentalService struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	Price        float64       `db:"price" json:"price"`
	Status       string        `db:"status" json:"status"`
	Requirements []Requirement `json:"supplies"`
	Cost         float64       `json:"cost"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Requirement is the use-unit quantity of a supply consumed per unit of service.
type Requirement struct {
	SupplyID uuid.UUID         `db:"supply_id" json:"supply_id"`
	Quantity float64           `db:"quantity" json:"quantity"`
	Supply   *inventory.Supply `json:"supply,omitempty"`
}

// ServiceUpdate lists the editable fields. Requirements, when present,
// replace the whole list.
type ServiceUpdate struct {
	Name         *string        `json:"name"`
	Price        *float64       `json:"price"`
	Requirements *[]Requirement `json:"supplies"`
}

type ServiceFilter struct {
	Status string
	Name   string
}

// Order asks for Quantity units of a service.
type Order struct {
	Service  *DentalService
	Quantity float64
}
