package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// collect runs a catalog query and scans each row with scan.
func collect[T any](ctx context.Context, q db.Querier, sql, entity string, scan func(pgx.Rows, *T) error) ([]T, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, apperr.FromDB(err, entity)
	}
	defer rows.Close()
	items := []T{}
	for rows.Next() {
		var item T
		if err := scan(rows, &item); err != nil {
			return nil, apperr.FromDB(err, entity)
		}
		items = append(items, item)
	}
	return items, apperr.FromDB(rows.Err(), entity)
}

func (r *repoPG) TaxRegimes(ctx context.Context) ([]TaxRegime, error) {
	return collect(ctx, db.Conn(ctx, r.pool), `SELECT id, key, name, type FROM tax_regime ORDER BY key`, "tax regime",
		func(rows pgx.Rows, t *TaxRegime) error { return rows.Scan(&t.ID, &t.Key, &t.Name, &t.Type) })
}

func (r *repoPG) Weekdays(ctx context.Context) ([]Weekday, error) {
	return collect(ctx, db.Conn(ctx, r.pool), `SELECT id, name FROM weekday ORDER BY id`, "weekday",
		func(rows pgx.Rows, w *Weekday) error { return rows.Scan(&w.ID, &w.Name) })
}

func (r *repoPG) Frequencies(ctx context.Context) ([]Frequency, error) {
	return collect(ctx, db.Conn(ctx, r.pool), `SELECT id, name, days FROM frequency ORDER BY days`, "frequency",
		func(rows pgx.Rows, f *Frequency) error { return rows.Scan(&f.ID, &f.Name, &f.Days) })
}

func (r *repoPG) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	return collect(ctx, db.Conn(ctx, r.pool), `SELECT id, key, name FROM payment_method ORDER BY key`, "payment method",
		func(rows pgx.Rows, m *PaymentMethod) error { return rows.Scan(&m.ID, &m.Key, &m.Name) })
}

// -- Allergy Repository --

type allergyRepoPG struct{ pool *pgxpool.Pool }

func NewAllergyRepoPG(pool *pgxpool.Pool) AllergyRepository {
	return &allergyRepoPG{pool: pool}
}

func (r *allergyRepoPG) Create(ctx context.Context, a *Allergy) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO allergy (id, name, status) VALUES ($1, $2, $3)
		RETURNING created_at`, a.ID, a.Name, a.Status).Scan(&a.CreatedAt)
	return apperr.FromDB(err, "allergy")
}

func (r *allergyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Allergy, error) {
	var a Allergy
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, status, created_at FROM allergy WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, apperr.FromDB(err, "allergy")
	}
	return &a, nil
}

func (r *allergyRepoPG) Update(ctx context.Context, a *Allergy) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE allergy SET name = $2 WHERE id = $1`, a.ID, a.Name)
	if err != nil {
		return apperr.FromDB(err, "allergy")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("allergy not found")
	}
	return nil
}

func (r *allergyRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE allergy SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return apperr.FromDB(err, "allergy")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("allergy not found")
	}
	return nil
}

func (r *allergyRepoPG) NameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM allergy
			WHERE lower(name) = lower($1) AND status = $2 AND id <> $3)`,
		name, StatusActive, exclude).Scan(&taken)
	return taken, apperr.FromDB(err, "allergy")
}

func (r *allergyRepoPG) CountActive(ctx context.Context, ids []uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM allergy WHERE id = ANY($1) AND status = $2`, ids, StatusActive).Scan(&n)
	return n, apperr.FromDB(err, "allergy")
}

func (r *allergyRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Allergy, int, error) {
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM allergy WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "allergy")
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, name, status, created_at FROM allergy WHERE status = $1
		ORDER BY name LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "allergy")
	}
	defer rows.Close()
	var items []*Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.ID, &a.Name, &a.Status, &a.CreatedAt); err != nil {
			return nil, 0, apperr.FromDB(err, "allergy")
		}
		items = append(items, &a)
	}
	return items, total, apperr.FromDB(rows.Err(), "allergy")
}
