// Package treatmenttest provides an in-memory service repository for tests.
package treatmenttest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/treatment"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
)

// ServiceRepo stores services in memory. Requirement supplies are resolved
// through Supplies on every read, like the Postgres join.
type ServiceRepo struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*treatment.DentalService
	Supplies inventory.SupplyRepository
}

func NewServiceRepo(supplies inventory.SupplyRepository) *ServiceRepo {
	return &ServiceRepo{items: make(map[uuid.UUID]*treatment.DentalService), Supplies: supplies}
}

func clone(s *treatment.DentalService) *treatment.DentalService {
	cp := *s
	cp.Requirements = make([]treatment.Requirement, len(s.Requirements))
	for i, r := range s.Requirements {
		cp.Requirements[i] = treatment.Requirement{SupplyID: r.SupplyID, Quantity: r.Quantity}
	}
	return &cp
}

func (r *ServiceRepo) resolve(ctx context.Context, s *treatment.DentalService) *treatment.DentalService {
	if r.Supplies == nil {
		return s
	}
	for i := range s.Requirements {
		if sp, err := r.Supplies.GetByID(ctx, s.Requirements[i].SupplyID); err == nil {
			s.Requirements[i].Supply = sp
		}
	}
	return s
}

// Put stores s as is, assigning an id when missing.
func (r *ServiceRepo) Put(s *treatment.DentalService) *treatment.DentalService {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = treatment.StatusActive
	}
	r.items[s.ID] = clone(s)
	return s
}

func (r *ServiceRepo) Create(_ context.Context, s *treatment.DentalService) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.Put(s)
	return nil
}

func (r *ServiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*treatment.DentalService, error) {
	r.mu.Lock()
	s, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return nil, apperr.NotFound("service not found")
	}
	cp := clone(s)
	r.mu.Unlock()
	return r.resolve(ctx, cp), nil
}

func (r *ServiceRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*treatment.DentalService, error) {
	var out []*treatment.DentalService
	for _, id := range ids {
		if s, err := r.GetByID(ctx, id); err == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *ServiceRepo) Update(_ context.Context, s *treatment.DentalService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return apperr.NotFound("service not found")
	}
	s.UpdatedAt = time.Now()
	r.items[s.ID] = clone(s)
	return nil
}

func (r *ServiceRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return apperr.NotFound("service not found")
	}
	s.Status = status
	return nil
}

func (r *ServiceRepo) NameTaken(_ context.Context, name string, exclude uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.ID != exclude && s.Status == treatment.StatusActive && strings.EqualFold(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *ServiceRepo) List(ctx context.Context, f treatment.ServiceFilter, limit, offset int) ([]*treatment.DentalService, int, error) {
	r.mu.Lock()
	var out []*treatment.DentalService
	for _, s := range r.items {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Name)) {
			continue
		}
		out = append(out, clone(s))
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for _, s := range out {
		r.resolve(ctx, s)
	}
	return out, total, nil
}
