package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusAttended  = "attended"
	StatusCancelled = "cancelled"
)

// Appointment is a dentist's booked time with a patient. It leaves
// scheduled exactly once: to attended through Finish or to cancelled.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DentistID uuid.UUID `db:"dentist_id" json:"dentist_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type Filter struct {
	DentistID *uuid.UUID
	PatientID *uuid.UUID
	Status    string
}

type ServiceItem struct {
	ServiceID uuid.UUID `json:"service_id"`
	Quantity  int       `json:"quantity"`
}

type SupplyItem struct {
	SupplyID uuid.UUID `json:"supply_id"`
	Quantity int       `json:"quantity"`
}

// FinishRequest lists what was performed and sold during an appointment.
type FinishRequest struct {
	Services []ServiceItem `json:"services"`
	Supplies []SupplyItem  `json:"supplies"`
}
