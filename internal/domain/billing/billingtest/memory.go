// Package billingtest provides an in-memory sell repository for tests.
package billingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/billing"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
)

type SellRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*billing.Sell
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func NewSellRepo() *SellRepo {
	return &SellRepo{items: make(map[uuid.UUID]*billing.Sell)}
}

func clone(s *billing.Sell) *billing.Sell {
	cp := *s
	cp.Services = append([]billing.ServiceLine{}, s.Services...)
	cp.Supplies = append([]billing.SupplyLine{}, s.Supplies...)
	cp.Payments = append([]billing.Payment{}, s.Payments...)
	return &cp
}

// Len reports how many sells are stored.
func (r *SellRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Delete removes a sell. Tests use it to undo Create on rollback.
func (r *SellRepo) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *SellRepo) Create(_ context.Context, s *billing.Sell) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	r.items[s.ID] = clone(s)
	return nil
}

func (r *SellRepo) GetByID(_ context.Context, id uuid.UUID) (*billing.Sell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("sell not found")
	}
	return clone(s), nil
}

func (r *SellRepo) LockByID(ctx context.Context, id uuid.UUID) (*billing.Sell, error) {
	return r.GetByID(ctx, id)
}

func (r *SellRepo) List(_ context.Context, f billing.SellFilter, limit, offset int) ([]*billing.Sell, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Sell
	for _, s := range r.items {
		if f.PatientID != nil && s.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		cp := clone(s)
		cp.Balance = billing.Balance(cp)
		cp.Services, cp.Supplies, cp.Payments = nil, nil, nil
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *SellRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, paidAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return apperr.NotFound("sell not found")
	}
	s.Status = status
	s.PaidAt = paidAt
	return nil
}

func (r *SellRepo) AddPayment(_ context.Context, p *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[p.SellID]
	if !ok {
		return apperr.NotFound("sell not found")
	}
	p.ID = uuid.New()
	s.Payments = append(s.Payments, *p)
	return nil
}
