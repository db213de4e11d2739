package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/auth"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
)

// AllergyChecker reports an invalid-kind error when any id is not an active
// allergy.
type AllergyChecker interface {
	CheckAllergies(ctx context.Context, ids []uuid.UUID) error
}

type Service struct {
	users     UserRepository
	patients  PatientRepository
	dentists  DentistRepository
	allergies AllergyChecker
	tx        db.TxRunner
}

func NewService(users UserRepository, patients PatientRepository, dentists DentistRepository,
	allergies AllergyChecker, tx db.TxRunner) *Service {
	return &Service{users: users, patients: patients, dentists: dentists, allergies: allergies, tx: tx}
}

// -- Users --

func (s *Service) newUser(ctx context.Context, c Credentials, role string) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Invalid("a valid email is required")
	}
	if len(c.Password) < auth.MinPasswordLength {
		return nil, apperr.Invalid("password must be at least %d characters", auth.MinPasswordLength)
	}
	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("email %s is already registered", email)
	}
	hash, err := auth.HashPassword(c.Password)
	if err != nil {
		return nil, err
	}
	return &User{Email: email, PasswordHash: hash, Role: role, Image: c.Image}, nil
}

// CreateAdmin registers an administrator account.
func (s *Service) CreateAdmin(ctx context.Context, c Credentials) (*User, error) {
	u, err := s.newUser(ctx, c, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func validatePerson(p *Person) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Surname = strings.TrimSpace(p.Surname)
	p.Lastname = strings.TrimSpace(p.Lastname)
	switch {
	case p.Name == "" || p.Surname == "" || p.Lastname == "":
		return apperr.Invalid("name, surname and lastname are required")
	case p.Birthday.IsZero():
		return apperr.Invalid("birthday is required")
	case p.Birthday.After(time.Now()):
		return apperr.Invalid("birthday must be in the past")
	case strings.TrimSpace(p.Address) == "" || strings.TrimSpace(p.CP) == "":
		return apperr.Invalid("address and cp are required")
	case strings.TrimSpace(p.Phone) == "":
		return apperr.Invalid("phone is required")
	case p.RFC != nil && len(*p.RFC) > 13:
		return apperr.Invalid("rfc must be at most 13 characters")
	}
	return nil
}

// -- Patients --

func (s *Service) checkAllergies(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) > 0 && s.allergies != nil {
		if err := s.allergies.CheckAllergies(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) CreatePatient(ctx context.Context, req NewPatient) (*Patient, error) {
	if err := validatePerson(&req.Person); err != nil {
		return nil, err
	}
	allergies, err := s.checkAllergies(ctx, req.Allergies)
	if err != nil {
		return nil, err
	}
	u, err := s.newUser(ctx, req.User, auth.RolePatient)
	if err != nil {
		return nil, err
	}

	p := &Patient{Email: u.Email, Person: req.Person, Allergies: allergies, Status: StatusActive}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		p.UserID = u.ID
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPatient returns an active patient.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusActive {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

// PatientByUser returns the active patient owned by a user account.
func (s *Service) PatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusActive {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, f PersonFilter, limit, offset int) ([]*Patient, int, error) {
	if f.Status == "" {
		f.Status = StatusActive
	}
	return s.patients.List(ctx, f, limit, offset)
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, u PatientUpdate) (*Patient, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Person.apply(&p.Person)
	if err := validatePerson(&p.Person); err != nil {
		return nil, err
	}
	if u.Allergies != nil {
		if p.Allergies, err = s.checkAllergies(ctx, *u.Allergies); err != nil {
			return nil, err
		}
	}
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.patients.Update(ctx, p)
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePatient marks the patient inactive. Appointments and sells are kept.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetPatient(ctx, id); err != nil {
		return err
	}
	return s.patients.SetStatus(ctx, id, StatusInactive)
}

// -- Dentists --

const clockLayout = "15:04"

func validateDentist(d *Dentist) error {
	if err := validatePerson(&d.Person); err != nil {
		return err
	}
	d.ProfessionalLicense = strings.TrimSpace(d.ProfessionalLicense)
	d.Position = strings.TrimSpace(d.Position)
	if d.ProfessionalLicense == "" || d.Position == "" {
		return apperr.Invalid("professional_license and position are required")
	}
	if d.HiredAt.IsZero() {
		return apperr.Invalid("hired_at is required")
	}
	start, err := time.Parse(clockLayout, d.StartTime)
	if err != nil {
		return apperr.Invalid("start_time must be HH:MM")
	}
	end, err := time.Parse(clockLayout, d.EndTime)
	if err != nil {
		return apperr.Invalid("end_time must be HH:MM")
	}
	if !end.After(start) {
		return apperr.Invalid("end_time must be after start_time")
	}
	seen := make(map[int]bool, len(d.Weekdays))
	days := make([]int, 0, len(d.Weekdays))
	for _, w := range d.Weekdays {
		if w < 1 || w > 7 {
			return apperr.Invalid("weekday %d is out of range 1-7", w)
		}
		if !seen[w] {
			seen[w] = true
			days = append(days, w)
		}
	}
	d.Weekdays = days
	for _, dip := range d.Diplomas {
		if strings.TrimSpace(dip.Name) == "" || strings.TrimSpace(dip.University) == "" {
			return apperr.Invalid("diplomas need a name and university")
		}
	}
	if d.Diplomas == nil {
		d.Diplomas = []Diploma{}
	}
	return nil
}

func (s *Service) CreateDentist(ctx context.Context, req NewDentist) (*Dentist, error) {
	d := &Dentist{
		Person:              req.Person,
		ProfessionalLicense: req.ProfessionalLicense,
		HiredAt:             req.HiredAt,
		Position:            req.Position,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		FrequencyID:         req.FrequencyID,
		Weekdays:            req.Weekdays,
		Diplomas:            req.Diplomas,
		Status:              StatusActive,
	}
	if err := validateDentist(d); err != nil {
		return nil, err
	}
	u, err := s.newUser(ctx, req.User, auth.RoleDentist)
	if err != nil {
		return nil, err
	}
	d.Email = u.Email

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		d.UserID = u.ID
		return s.dentists.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// GetDentist returns an active dentist.
func (s *Service) GetDentist(ctx context.Context, id uuid.UUID) (*Dentist, error) {
	d, err := s.dentists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusActive {
		return nil, apperr.NotFound("dentist not found")
	}
	return d, nil
}

func (s *Service) ListDentists(ctx context.Context, f PersonFilter, limit, offset int) ([]*Dentist, int, error) {
	if f.Status == "" {
		f.Status = StatusActive
	}
	return s.dentists.List(ctx, f, limit, offset)
}

func (s *Service) UpdateDentist(ctx context.Context, id uuid.UUID, u DentistUpdate) (*Dentist, error) {
	d, err := s.GetDentist(ctx, id)
	if err != nil {
		return nil, err
	}
	u.apply(d)
	if err := validateDentist(d); err != nil {
		return nil, err
	}
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.dentists.Update(ctx, d)
	}); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDentist marks the dentist inactive.
func (s *Service) DeleteDentist(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetDentist(ctx, id); err != nil {
		return err
	}
	return s.dentists.SetStatus(ctx, id, StatusInactive)
}
