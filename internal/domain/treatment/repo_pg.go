package treatment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
)

type serviceRepoPG struct{ pool *pgxpool.Pool }

func NewServiceRepoPG(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepoPG{pool: pool}
}

const serviceCols = `id, name, price, status, created_at, updated_at`

func scanService(row pgx.Row) (*DentalService, error) {
	var s DentalService
	err := row.Scan(&s.ID, &s.Name, &s.Price, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

// Create and Update write several rows; callers run them inside RunInTx.
func (r *serviceRepoPG) Create(ctx context.Context, s *DentalService) error {
	s.ID = uuid.New()
	if s.Status == "" {
		s.Status = StatusActive
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO service (id, name, price, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Price, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return apperr.FromDB(err, "service")
	}
	return r.insertRequirements(ctx, s)
}

func (r *serviceRepoPG) insertRequirements(ctx context.Context, s *DentalService) error {
	if len(s.Requirements) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, req := range s.Requirements {
		batch.Queue(`INSERT INTO service_supply (service_id, supply_id, quantity) VALUES ($1, $2, $3)`,
			s.ID, req.SupplyID, req.Quantity)
	}
	br := db.Conn(ctx, r.pool).SendBatch(ctx, batch)
	defer br.Close()
	for range s.Requirements {
		if _, err := br.Exec(); err != nil {
			return apperr.FromDB(err, "service supply")
		}
	}
	return nil
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DentalService, error) {
	s, err := scanService(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM service WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "service")
	}
	if err := r.loadRequirements(ctx, []*DentalService{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *serviceRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*DentalService, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+serviceCols+` FROM service WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, apperr.FromDB(err, "service")
	}
	items, err := collectServices(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadRequirements(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func collectServices(rows pgx.Rows) ([]*DentalService, error) {
	defer rows.Close()
	var items []*DentalService
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "service")
		}
		items = append(items, s)
	}
	return items, apperr.FromDB(rows.Err(), "service")
}

func (r *serviceRepoPG) loadRequirements(ctx context.Context, services []*DentalService) error {
	if len(services) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*DentalService, len(services))
	ids := make([]uuid.UUID, 0, len(services))
	for _, s := range services {
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT ss.service_id, ss.supply_id, ss.quantity,
			sp.name, sp.cost, sp.price, sp.buy_unit, sp.use_unit, sp.equivalence,
			sp.is_salable, sp.image, sp.status, sp.created_at, sp.updated_at
		FROM service_supply ss
		JOIN supply sp ON sp.id = ss.supply_id
		WHERE ss.service_id = ANY($1)
		ORDER BY ss.service_id, sp.name`, ids)
	if err != nil {
		return apperr.FromDB(err, "service supply")
	}
	defer rows.Close()
	for rows.Next() {
		var serviceID uuid.UUID
		var req Requirement
		var sp inventory.Supply
		if err := rows.Scan(&serviceID, &req.SupplyID, &req.Quantity,
			&sp.Name, &sp.Cost, &sp.Price, &sp.BuyUnit, &sp.UseUnit, &sp.Equivalence,
			&sp.IsSalable, &sp.Image, &sp.Status, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return apperr.FromDB(err, "service supply")
		}
		sp.ID = req.SupplyID
		req.Supply = &sp
		if s, ok := byID[serviceID]; ok {
			s.Requirements = append(s.Requirements, req)
		}
	}
	return apperr.FromDB(rows.Err(), "service supply")
}

func (r *serviceRepoPG) Update(ctx context.Context, s *DentalService) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE service SET name = $2, price = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Name, s.Price,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return apperr.FromDB(err, "service")
	}
	if _, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM service_supply WHERE service_id = $1`, s.ID); err != nil {
		return apperr.FromDB(err, "service supply")
	}
	return r.insertRequirements(ctx, s)
}

func (r *serviceRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE service SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.FromDB(err, "service")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("service not found")
	}
	return nil
}

func (r *serviceRepoPG) NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM service
			WHERE lower(name) = lower($1) AND status = $2 AND id <> $3)`,
		name, StatusActive, exclude).Scan(&taken)
	return taken, apperr.FromDB(err, "service")
}

func (r *serviceRepoPG) List(ctx context.Context, f ServiceFilter, limit, offset int) ([]*DentalService, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Name != "" {
		where += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+f.Name+"%")
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM service`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "service")
	}

	query := `SELECT ` + serviceCols + ` FROM service` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "service")
	}
	items, err := collectServices(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadRequirements(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
