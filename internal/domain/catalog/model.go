package catalog

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// TaxRegime is a fiscal regime a person can be registered under.
type TaxRegime struct {
	ID   int    `db:"id" json:"id"`
	Key  string `db:"key" json:"key"`
	Name string `db:"name" json:"name"`
	Type int    `db:"type" json:"type"`
}

type Weekday struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Frequency is how often a dentist attends, Days apart.
type Frequency struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Days int    `db:"days" json:"days"`
}

type PaymentMethod struct {
	ID   int    `db:"id" json:"id"`
	Key  string `db:"key" json:"key"`
	Name string `db:"name" json:"name"`
}

type Allergy struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type AllergyUpdate struct {
	Name *string `json:"name"`
}
