// Package inventorytest provides in-memory inventory repositories for tests.
// Reads return copies so callers only change stored state through the
// repository methods, as with the Postgres implementation.
package inventorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
)

type SupplyRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*inventory.Supply
}

func NewSupplyRepo() *SupplyRepo {
	return &SupplyRepo{items: make(map[uuid.UUID]*inventory.Supply)}
}

// Put stores sp as is, assigning an id when missing.
func (r *SupplyRepo) Put(sp *inventory.Supply) *inventory.Supply {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	if sp.Status == "" {
		sp.Status = inventory.StatusActive
	}
	cp := *sp
	r.items[sp.ID] = &cp
	return sp
}

func (r *SupplyRepo) Create(_ context.Context, sp *inventory.Supply) error {
	sp.ID = uuid.New()
	sp.CreatedAt = time.Now()
	sp.UpdatedAt = sp.CreatedAt
	r.Put(sp)
	return nil
}

func (r *SupplyRepo) GetByID(_ context.Context, id uuid.UUID) (*inventory.Supply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("supply not found")
	}
	cp := *sp
	return &cp, nil
}

func (r *SupplyRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.Supply, error) {
	var out []*inventory.Supply
	for _, id := range ids {
		sp, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

func (r *SupplyRepo) Update(_ context.Context, sp *inventory.Supply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[sp.ID]; !ok {
		return apperr.NotFound("supply not found")
	}
	sp.UpdatedAt = time.Now()
	cp := *sp
	r.items[sp.ID] = &cp
	return nil
}

func (r *SupplyRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.items[id]
	if !ok {
		return apperr.NotFound("supply not found")
	}
	sp.Status = status
	return nil
}

func (r *SupplyRepo) NameTaken(_ context.Context, name string, exclude uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sp := range r.items {
		if sp.ID != exclude && sp.Status == inventory.StatusActive && strings.EqualFold(sp.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *SupplyRepo) List(_ context.Context, f inventory.SupplyFilter, limit, offset int) ([]*inventory.Supply, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.Supply
	for _, sp := range r.items {
		if f.Status != "" && sp.Status != f.Status {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(sp.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Salable != nil && sp.IsSalable != *f.Salable {
			continue
		}
		cp := *sp
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), len(out), nil
}

type LotRepo struct {
	mu   sync.Mutex
	lots map[uuid.UUID]*inventory.PurchaseLot
	// UpdateErr, when set, is returned by UpdateAvailable.
	UpdateErr error
	// Locked counts LockConsumable calls.
	Locked int
}

func NewLotRepo() *LotRepo {
	return &LotRepo{lots: make(map[uuid.UUID]*inventory.PurchaseLot)}
}

// Put stores a lot directly, assigning an id when missing.
func (r *LotRepo) Put(l *inventory.PurchaseLot) *inventory.PurchaseLot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	r.lots[l.ID] = &cp
	return l
}

// Available returns the stored available quantity of a lot.
func (r *LotRepo) Available(id uuid.UUID) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lots[id]; ok {
		return l.AvailableUseQuantity
	}
	return -1
}

// Snapshot captures the stored lots and returns a func that restores them.
func (r *LotRepo) Snapshot() (restore func()) {
	r.mu.Lock()
	saved := make(map[uuid.UUID]inventory.PurchaseLot, len(r.lots))
	for id, l := range r.lots {
		saved[id] = *l
	}
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.lots = make(map[uuid.UUID]*inventory.PurchaseLot, len(saved))
		for id, l := range saved {
			l := l
			r.lots[id] = &l
		}
	}
}

func (r *LotRepo) Create(_ context.Context, l *inventory.PurchaseLot) error {
	l.ID = uuid.New()
	r.Put(l)
	return nil
}

func (r *LotRepo) ListBySupply(_ context.Context, supplyID uuid.UUID, limit, offset int) ([]*inventory.PurchaseLot, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.PurchaseLot
	for _, l := range r.lots {
		if l.SupplyID == supplyID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BuyDate.After(out[j].BuyDate) })
	return page(out, limit, offset), len(out), nil
}

func (r *LotRepo) Consumable(_ context.Context, supplyIDs []uuid.UUID, today time.Time) ([]*inventory.PurchaseLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(supplyIDs))
	for _, id := range supplyIDs {
		want[id] = true
	}
	var out []*inventory.PurchaseLot
	for _, l := range r.lots {
		if !want[l.SupplyID] || l.AvailableUseQuantity <= 0 {
			continue
		}
		if l.ExpirationDate != nil && !inventory.Day(*l.ExpirationDate).After(inventory.Day(today)) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	inventory.SortLots(out)
	return out, nil
}

func (r *LotRepo) LockConsumable(ctx context.Context, supplyIDs []uuid.UUID, today time.Time) ([]*inventory.PurchaseLot, error) {
	r.mu.Lock()
	r.Locked++
	r.mu.Unlock()
	return r.Consumable(ctx, supplyIDs, today)
}

func (r *LotRepo) UpdateAvailable(_ context.Context, lots []*inventory.PurchaseLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	for _, l := range lots {
		if stored, ok := r.lots[l.ID]; ok {
			stored.AvailableUseQuantity = l.AvailableUseQuantity
		}
	}
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
