package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
)

type Service struct {
	repo      Repository
	allergies AllergyRepository
}

func NewService(repo Repository, allergies AllergyRepository) *Service {
	return &Service{repo: repo, allergies: allergies}
}

func (s *Service) TaxRegimes(ctx context.Context) ([]TaxRegime, error) {
	return s.repo.TaxRegimes(ctx)
}

func (s *Service) Weekdays(ctx context.Context) ([]Weekday, error) {
	return s.repo.Weekdays(ctx)
}

func (s *Service) Frequencies(ctx context.Context) ([]Frequency, error) {
	return s.repo.Frequencies(ctx)
}

func (s *Service) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return s.repo.PaymentMethods(ctx)
}

// -- Allergies --

func (s *Service) ensureNameFree(ctx context.Context, name string, exclude uuid.UUID) error {
	taken, err := s.allergies.NameTaken(ctx, name, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("allergy %q already exists", name)
	}
	return nil
}

func (s *Service) CreateAllergy(ctx context.Context, a *Allergy) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return apperr.Invalid("name is required")
	}
	if err := s.ensureNameFree(ctx, a.Name, uuid.Nil); err != nil {
		return err
	}
	a.Status = StatusActive
	return s.allergies.Create(ctx, a)
}

func (s *Service) GetAllergy(ctx context.Context, id uuid.UUID) (*Allergy, error) {
	a, err := s.allergies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, apperr.NotFound("allergy not found")
	}
	return a, nil
}

func (s *Service) ListAllergies(ctx context.Context, status string, limit, offset int) ([]*Allergy, int, error) {
	if status == "" {
		status = StatusActive
	}
	return s.allergies.List(ctx, status, limit, offset)
}

func (s *Service) UpdateAllergy(ctx context.Context, id uuid.UUID, u AllergyUpdate) (*Allergy, error) {
	a, err := s.GetAllergy(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Name == nil {
		return a, nil
	}
	name := strings.TrimSpace(*u.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	if err := s.ensureNameFree(ctx, name, a.ID); err != nil {
		return nil, err
	}
	a.Name = name
	if err := s.allergies.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAllergy(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetAllergy(ctx, id); err != nil {
		return err
	}
	return s.allergies.SetStatus(ctx, id, StatusInactive)
}

// CheckAllergies fails unless every id names an active allergy. ids must
// not repeat.
func (s *Service) CheckAllergies(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.allergies.CountActive(ctx, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return apperr.Invalid("unknown allergy in list")
	}
	return nil
}
