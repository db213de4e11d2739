package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
)

// ---- Supply Repo ----

type supplyRepoPG struct{ pool *pgxpool.Pool }

func NewSupplyRepoPG(pool *pgxpool.Pool) SupplyRepository {
	return &supplyRepoPG{pool: pool}
}

const supplyCols = `id, name, cost, price, buy_unit, use_unit, equivalence,
	is_salable, image, status, created_at, updated_at`

func scanSupply(row pgx.Row) (*Supply, error) {
	var s Supply
	err := row.Scan(&s.ID, &s.Name, &s.Cost, &s.Price, &s.BuyUnit, &s.UseUnit, &s.Equivalence,
		&s.IsSalable, &s.Image, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *supplyRepoPG) Create(ctx context.Context, s *Supply) error {
	s.ID = uuid.New()
	if s.Status == "" {
		s.Status = StatusActive
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO supply (id, name, cost, price, buy_unit, use_unit, equivalence, is_salable, image, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Cost, s.Price, s.BuyUnit, s.UseUnit, s.Equivalence, s.IsSalable, s.Image, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return apperr.FromDB(err, "supply")
}

func (r *supplyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Supply, error) {
	s, err := scanSupply(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+supplyCols+` FROM supply WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "supply")
	}
	return s, nil
}

func (r *supplyRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Supply, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+supplyCols+` FROM supply WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, apperr.FromDB(err, "supply")
	}
	defer rows.Close()
	var items []*Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "supply")
		}
		items = append(items, s)
	}
	return items, apperr.FromDB(rows.Err(), "supply")
}

func (r *supplyRepoPG) Update(ctx context.Context, s *Supply) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE supply SET name=$2, cost=$3, price=$4, buy_unit=$5, use_unit=$6,
			equivalence=$7, is_salable=$8, image=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Name, s.Cost, s.Price, s.BuyUnit, s.UseUnit, s.Equivalence, s.IsSalable, s.Image,
	).Scan(&s.UpdatedAt)
	return apperr.FromDB(err, "supply")
}

func (r *supplyRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE supply SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.FromDB(err, "supply")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("supply not found")
	}
	return nil
}

func (r *supplyRepoPG) NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM supply
			WHERE lower(name) = lower($1) AND status = $2 AND id <> $3)`,
		name, StatusActive, exclude).Scan(&taken)
	return taken, apperr.FromDB(err, "supply")
}

func (r *supplyRepoPG) List(ctx context.Context, f SupplyFilter, limit, offset int) ([]*Supply, int, error) {
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
	if f.Salable != nil {
		where += fmt.Sprintf(` AND is_salable = $%d`, idx)
		args = append(args, *f.Salable)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM supply`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "supply")
	}

	query := `SELECT ` + supplyCols + ` FROM supply` + where +
		fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "supply")
	}
	defer rows.Close()
	var items []*Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, 0, apperr.FromDB(err, "supply")
		}
		items = append(items, s)
	}
	return items, total, apperr.FromDB(rows.Err(), "supply")
}

// ---- PurchaseLot Repo ----

type lotRepoPG struct{ pool *pgxpool.Pool }

func NewLotRepoPG(pool *pgxpool.Pool) LotRepository {
	return &lotRepoPG{pool: pool}
}

const lotCols = `id, supply_id, buy_date, expiration_date, quantity, available_use_quantity, unit_cost`

func scanLot(row pgx.Row) (*PurchaseLot, error) {
	var l PurchaseLot
	err := row.Scan(&l.ID, &l.SupplyID, &l.BuyDate, &l.ExpirationDate, &l.Quantity,
		&l.AvailableUseQuantity, &l.UnitCost)
	return &l, err
}

func (r *lotRepoPG) collect(rows pgx.Rows) ([]*PurchaseLot, error) {
	defer rows.Close()
	var items []*PurchaseLot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "purchase lot")
		}
		items = append(items, l)
	}
	return items, apperr.FromDB(rows.Err(), "purchase lot")
}

func (r *lotRepoPG) Create(ctx context.Context, l *PurchaseLot) error {
	l.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO purchase_lot (id, supply_id, buy_date, expiration_date, quantity, available_use_quantity, unit_cost)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.ID, l.SupplyID, l.BuyDate, l.ExpirationDate, l.Quantity, l.AvailableUseQuantity, l.UnitCost)
	return apperr.FromDB(err, "purchase lot")
}

func (r *lotRepoPG) ListBySupply(ctx context.Context, supplyID uuid.UUID, limit, offset int) ([]*PurchaseLot, int, error) {
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM purchase_lot WHERE supply_id = $1`, supplyID).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "purchase lot")
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+lotCols+` FROM purchase_lot WHERE supply_id = $1
		ORDER BY buy_date DESC, id LIMIT $2 OFFSET $3`, supplyID, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "purchase lot")
	}
	items, err := r.collect(rows)
	return items, total, err
}

// consumableQuery selects lots in consumption order. Locking callers append
// FOR UPDATE; ordering by supply_id first keeps lock acquisition order stable
// across concurrent transactions.
const consumableQuery = `SELECT ` + lotCols + ` FROM purchase_lot
	WHERE supply_id = ANY($1)
	  AND available_use_quantity > 0
	  AND (expiration_date IS NULL OR expiration_date > $2::date)
	ORDER BY supply_id, expiration_date ASC NULLS LAST, buy_date ASC, id`

func (r *lotRepoPG) Consumable(ctx context.Context, supplyIDs []uuid.UUID, today time.Time) ([]*PurchaseLot, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, consumableQuery, supplyIDs, Day(today))
	if err != nil {
		return nil, apperr.FromDB(err, "purchase lot")
	}
	return r.collect(rows)
}

func (r *lotRepoPG) LockConsumable(ctx context.Context, supplyIDs []uuid.UUID, today time.Time) ([]*PurchaseLot, error) {
	tx := db.TxFromContext(ctx)
	if tx == nil {
		return nil, fmt.Errorf("lock purchase lots: no transaction in context")
	}
	rows, err := tx.Query(ctx, consumableQuery+` FOR UPDATE`, supplyIDs, Day(today))
	if err != nil {
		return nil, apperr.FromDB(err, "purchase lot")
	}
	return r.collect(rows)
}

func (r *lotRepoPG) UpdateAvailable(ctx context.Context, lots []*PurchaseLot) error {
	if len(lots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range lots {
		batch.Queue(`UPDATE purchase_lot SET available_use_quantity = $2 WHERE id = $1`, l.ID, l.AvailableUseQuantity)
	}
	br := db.Conn(ctx, r.pool).SendBatch(ctx, batch)
	defer br.Close()
	for range lots {
		if _, err := br.Exec(); err != nil {
			return apperr.FromDB(err, "purchase lot")
		}
	}
	return nil
}
