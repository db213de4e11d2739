package treatment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
)

// Inventory is the part of the inventory service a treatment catalog reads.
type Inventory interface {
	GetSupply(ctx context.Context, id uuid.UUID) (*inventory.Supply, error)
	Stocks(ctx context.Context, supplyIDs []uuid.UUID) (map[uuid.UUID]*inventory.Stock, error)
	Today() time.Time
}

// Availability answers whether a number of units of a service can be
// produced from current stock.
type Availability struct {
	ServiceID  uuid.UUID   `json:"service_id"`
	Quantity   float64     `json:"quantity"`
	CanProduce bool        `json:"can_produce"`
	Shortfalls []Shortfall `json:"shortfalls"`
}

type Service struct {
	repo ServiceRepository
	inv  Inventory
	tx   db.TxRunner
}

func NewService(repo ServiceRepository, inv Inventory, tx db.TxRunner) *Service {
	return &Service{repo: repo, inv: inv, tx: tx}
}

// normalizeRequirements merges repeated supplies and attaches each supply.
func (s *Service) normalizeRequirements(ctx context.Context, reqs []Requirement) ([]Requirement, error) {
	index := make(map[uuid.UUID]int, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return nil, apperr.Invalid("supply quantity must be greater than 0")
		}
		if i, ok := index[req.SupplyID]; ok {
			out[i].Quantity += req.Quantity
			continue
		}
		sp, err := s.inv.GetSupply(ctx, req.SupplyID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Invalid("supply %s does not exist", req.SupplyID)
			}
			return nil, err
		}
		index[req.SupplyID] = len(out)
		out = append(out, Requirement{SupplyID: sp.ID, Quantity: req.Quantity, Supply: sp})
	}
	return out, nil
}

func (s *Service) validate(ctx context.Context, svc *DentalService) error {
	svc.Name = strings.TrimSpace(svc.Name)
	if svc.Name == "" {
		return apperr.Invalid("name is required")
	}
	if svc.Price < 0 {
		return apperr.Invalid("price must not be negative")
	}
	reqs, err := s.normalizeRequirements(ctx, svc.Requirements)
	if err != nil {
		return err
	}
	svc.Requirements = reqs
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, exclude uuid.UUID) error {
	taken, err := s.repo.NameTaken(ctx, name, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("service %q already exists", name)
	}
	return nil
}

func (s *Service) CreateService(ctx context.Context, svc *DentalService) error {
	if err := s.validate(ctx, svc); err != nil {
		return err
	}
	if err := s.ensureNameFree(ctx, svc.Name, uuid.Nil); err != nil {
		return err
	}
	svc.Status = StatusActive
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, svc)
	}); err != nil {
		return err
	}
	svc.Cost = Cost(svc)
	return nil
}

// GetService returns an active service with its cost.
func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*DentalService, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if svc.Status != StatusActive {
		return nil, apperr.NotFound("service not found")
	}
	svc.Cost = Cost(svc)
	return svc, nil
}

// ActiveServices loads services by id. Every id must name an active service.
func (s *Service) ActiveServices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*DentalService, error) {
	out := make(map[uuid.UUID]*DentalService, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, svc := range items {
		if svc.Status == StatusActive {
			svc.Cost = Cost(svc)
			out[svc.ID] = svc
		}
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, apperr.NotFound("service %s not found", id)
		}
	}
	return out, nil
}

func (s *Service) ListServices(ctx context.Context, f ServiceFilter, limit, offset int) ([]*DentalService, int, error) {
	if f.Status == "" {
		f.Status = StatusActive
	}
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, svc := range items {
		svc.Cost = Cost(svc)
	}
	return items, total, nil
}

func (s *Service) UpdateService(ctx context.Context, id uuid.UUID, u ServiceUpdate) (*DentalService, error) {
	svc, err := s.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		svc.Name = *u.Name
	}
	if u.Price != nil {
		svc.Price = *u.Price
	}
	if u.Requirements != nil {
		svc.Requirements = *u.Requirements
	}
	if err := s.validate(ctx, svc); err != nil {
		return nil, err
	}
	if u.Name != nil {
		if err := s.ensureNameFree(ctx, svc.Name, svc.ID); err != nil {
			return nil, err
		}
	}
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, svc)
	}); err != nil {
		return nil, err
	}
	svc.Cost = Cost(svc)
	return svc, nil
}

// DeleteService marks the service inactive.
func (s *Service) DeleteService(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetService(ctx, id); err != nil {
		return err
	}
	return s.repo.SetStatus(ctx, id, StatusInactive)
}

// Availability runs CanProduce for qty units against unlocked stock. The
// answer is advisory; finishing an appointment checks again under lock.
func (s *Service) Availability(ctx context.Context, id uuid.UUID, qty float64) (*Availability, error) {
	if qty < 0 {
		return nil, apperr.Invalid("quantity must not be negative")
	}
	svc, err := s.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	stocks, err := s.inv.Stocks(ctx, SupplyIDs(svc))
	if err != nil {
		return nil, err
	}
	shortfalls := CanProduce(svc, qty, stocks, s.inv.Today())
	if shortfalls == nil {
		shortfalls = []Shortfall{}
	}
	return &Availability{
		ServiceID:  svc.ID,
		Quantity:   qty,
		CanProduce: len(shortfalls) == 0,
		Shortfalls: shortfalls,
	}, nil
}
