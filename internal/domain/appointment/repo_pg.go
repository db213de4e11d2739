package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

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

const apptCols = `id, dentist_id, patient_id, start_date, end_date, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DentistID, &a.PatientID, &a.StartDate, &a.EndDate,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointment (id, dentist_id, patient_id, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.DentistID, a.PatientID, a.StartDate, a.EndDate, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return apperr.FromDB(err, "appointment")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "appointment")
	}
	return a, nil
}

func (r *repoPG) LockByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	tx := db.TxFromContext(ctx)
	if tx == nil {
		return nil, fmt.Errorf("lock appointment: no transaction in context")
	}
	a, err := scanAppointment(tx.QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "appointment")
	}
	return a, nil
}

func (r *repoPG) LockAgenda(ctx context.Context, dentistID uuid.UUID) error {
	tx := db.TxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("lock agenda: no transaction in context")
	}
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM dentist WHERE id = $1 FOR UPDATE`, dentistID).Scan(&id)
	return apperr.FromDB(err, "dentist")
}

func (r *repoPG) HasOverlap(ctx context.Context, dentistID uuid.UUID, start, end time.Time, exclude uuid.UUID) (bool, error) {
	var overlap bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointment
			WHERE dentist_id = $1 AND status = $2 AND id <> $3
			AND start_date < $5 AND end_date > $4)`,
		dentistID, StatusScheduled, exclude, start, end).Scan(&overlap)
	return overlap, apperr.FromDB(err, "appointment")
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE appointment SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.FromDB(err, "appointment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	where := []string{"1=1"}
	var args []interface{}
	idx := 1
	if f.DentistID != nil {
		where = append(where, fmt.Sprintf("dentist_id = $%d", idx))
		args = append(args, *f.DentistID)
		idx++
	}
	if f.PatientID != nil {
		where = append(where, fmt.Sprintf("patient_id = $%d", idx))
		args = append(args, *f.PatientID)
		idx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}
	cond := strings.Join(where, " AND ")
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM appointment WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "appointment")
	}

	query := fmt.Sprintf(`SELECT %s FROM appointment WHERE %s ORDER BY start_date DESC LIMIT $%d OFFSET $%d`,
		apptCols, cond, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "appointment")
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, apperr.FromDB(err, "appointment")
		}
		items = append(items, a)
	}
	return items, total, apperr.FromDB(rows.Err(), "appointment")
}
