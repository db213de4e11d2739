package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/pkg/dates"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is a login account. Patients and dentists each own one.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Role         string    `db:"role" json:"role"`
	Image        *string   `db:"image" json:"image,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Person holds the personal and fiscal data shared by patients and dentists.
type Person struct {
	Name        string     `db:"name" json:"name"`
	Surname     string     `db:"surname" json:"surname"`
	Lastname    string     `db:"lastname" json:"lastname"`
	Birthday    dates.Date `db:"birthday" json:"birthday"`
	RFC         *string    `db:"rfc" json:"rfc,omitempty"`
	TaxRegimeID *int       `db:"tax_regime_id" json:"tax_regime_id,omitempty"`
	Sex         bool       `db:"sex" json:"sex"`
	Address     string     `db:"address" json:"address"`
	CP          string     `db:"cp" json:"cp"`
	Latitude    float64    `db:"latitude" json:"latitude"`
	Longitude   float64    `db:"longitude" json:"longitude"`
	Phone       string     `db:"phone" json:"phone"`
}

// FullName is name, surname and lastname joined by spaces.
func (p Person) FullName() string {
	return p.Name + " " + p.Surname + " " + p.Lastname
}

type Patient struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	PersonID  uuid.UUID   `db:"person_id" json:"-"`
	Email     string      `json:"email"`
	Person    Person      `json:"person"`
	Allergies []uuid.UUID `json:"allergies"`
	Status    string      `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

type Diploma struct {
	Name       string `db:"name" json:"name"`
	University string `db:"university" json:"university"`
}

type Dentist struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	UserID              uuid.UUID  `db:"user_id" json:"user_id"`
	PersonID            uuid.UUID  `db:"person_id" json:"-"`
	Email               string     `json:"email"`
	Person              Person     `json:"person"`
	ProfessionalLicense string     `db:"professional_license" json:"professional_license"`
	HiredAt             dates.Date `db:"hired_at" json:"hired_at"`
	Position            string     `db:"position" json:"position"`
	StartTime           string     `db:"start_time" json:"start_time"`
	EndTime             string     `db:"end_time" json:"end_time"`
	FrequencyID         *int       `db:"frequency_id" json:"frequency_id,omitempty"`
	Weekdays            []int      `json:"weekdays"`
	Diplomas            []Diploma  `json:"diplomas"`
	Status              string     `db:"status" json:"status"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Credentials are the login fields of a new account.
type Credentials struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Image    *string `json:"image"`
}

type NewPatient struct {
	User      Credentials `json:"user"`
	Person    Person      `json:"person"`
	Allergies []uuid.UUID `json:"allergies"`
}

type NewDentist struct {
	User                Credentials `json:"user"`
	Person              Person      `json:"person"`
	ProfessionalLicense string      `json:"professional_license"`
	HiredAt             dates.Date  `json:"hired_at"`
	Position            string      `json:"position"`
	StartTime           string      `json:"start_time"`
	EndTime             string      `json:"end_time"`
	FrequencyID         *int        `json:"frequency_id"`
	Weekdays            []int       `json:"weekdays"`
	Diplomas            []Diploma   `json:"diplomas"`
}

// PersonUpdate lists the editable person fields.
type PersonUpdate struct {
	Name        *string     `json:"name"`
	Surname     *string     `json:"surname"`
	Lastname    *string     `json:"lastname"`
	Birthday    *dates.Date `json:"birthday"`
	RFC         *string     `json:"rfc"`
	TaxRegimeID *int        `json:"tax_regime_id"`
	Sex         *bool       `json:"sex"`
	Address     *string     `json:"address"`
	CP          *string     `json:"cp"`
	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`
	Phone       *string     `json:"phone"`
}

func (u PersonUpdate) apply(p *Person) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Surname != nil {
		p.Surname = *u.Surname
	}
	if u.Lastname != nil {
		p.Lastname = *u.Lastname
	}
	if u.Birthday != nil {
		p.Birthday = *u.Birthday
	}
	if u.RFC != nil {
		p.RFC = u.RFC
	}
	if u.TaxRegimeID != nil {
		p.TaxRegimeID = u.TaxRegimeID
	}
	if u.Sex != nil {
		p.Sex = *u.Sex
	}
	if u.Address != nil {
		p.Address = *u.Address
	}
	if u.CP != nil {
		p.CP = *u.CP
	}
	if u.Latitude != nil {
		p.Latitude = *u.Latitude
	}
	if u.Longitude != nil {
		p.Longitude = *u.Longitude
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
}

type PatientUpdate struct {
	Person    PersonUpdate `json:"person"`
	Allergies *[]uuid.UUID `json:"allergies"`
}

type DentistUpdate struct {
	Person              PersonUpdate `json:"person"`
	ProfessionalLicense *string      `json:"professional_license"`
	Position            *string      `json:"position"`
	StartTime           *string      `json:"start_time"`
	EndTime             *string      `json:"end_time"`
	FrequencyID         *int         `json:"frequency_id"`
	Weekdays            *[]int       `json:"weekdays"`
	Diplomas            *[]Diploma   `json:"diplomas"`
}

func (u DentistUpdate) apply(d *Dentist) {
	u.Person.apply(&d.Person)
	if u.ProfessionalLicense != nil {
		d.ProfessionalLicense = *u.ProfessionalLicense
	}
	if u.Position != nil {
		d.Position = *u.Position
	}
	if u.StartTime != nil {
		d.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		d.EndTime = *u.EndTime
	}
	if u.FrequencyID != nil {
		d.FrequencyID = u.FrequencyID
	}
	if u.Weekdays != nil {
		d.Weekdays = *u.Weekdays
	}
	if u.Diplomas != nil {
		d.Diplomas = *u.Diplomas
	}
}

type PersonFilter struct {
	Status string
	Name   string
}
