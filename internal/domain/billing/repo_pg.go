package billing

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

type sellRepoPG struct{ pool *pgxpool.Pool }

func NewSellRepoPG(pool *pgxpool.Pool) SellRepository {
	return &sellRepoPG{pool: pool}
}

const sellCols = `s.id, s.patient_id, s.appointment_id, s.subtotal, s.vat, s.total, s.status, s.paid_at, s.created_at`

func scanSell(row pgx.Row, extra ...interface{}) (*Sell, error) {
	var s Sell
	dest := []interface{}{&s.ID, &s.PatientID, &s.AppointmentID, &s.Subtotal, &s.VAT, &s.Total,
		&s.Status, &s.PaidAt, &s.CreatedAt}
	err := row.Scan(append(dest, extra...)...)
	return &s, err
}

func (r *sellRepoPG) Create(ctx context.Context, s *Sell) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	conn := db.Conn(ctx, r.pool)
	err := conn.QueryRow(ctx, `
		INSERT INTO sell (id, patient_id, appointment_id, subtotal, vat, total, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		s.ID, s.PatientID, s.AppointmentID, s.Subtotal, s.VAT, s.Total, s.Status, s.PaidAt,
	).Scan(&s.CreatedAt)
	if err != nil {
		return apperr.FromDB(err, "sell")
	}

	batch := &pgx.Batch{}
	for i := range s.Services {
		l := &s.Services[i]
		l.SellID = s.ID
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		batch.Queue(`
			INSERT INTO sell_service (id, sell_id, service_id, quantity, price, subtotal, vat, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, l.SellID, l.ServiceID, l.Quantity, l.Price, l.Subtotal, l.VAT, l.Total)
	}
	for i := range s.Supplies {
		l := &s.Supplies[i]
		l.SellID = s.ID
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		batch.Queue(`
			INSERT INTO sell_supply (id, sell_id, supply_id, quantity, price, subtotal, vat, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, l.SellID, l.SupplyID, l.Quantity, l.Price, l.Subtotal, l.VAT, l.Total)
	}
	if batch.Len() == 0 {
		return nil
	}
	br := conn.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return apperr.FromDB(err, "sell line")
		}
	}
	return nil
}

func (r *sellRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Sell, error) {
	s, err := scanSell(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+sellCols+` FROM sell s WHERE s.id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "sell")
	}
	if err := r.loadLines(ctx, s); err != nil {
		return nil, err
	}
	if s.Payments, err = r.payments(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sellRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*Sell, error) {
	tx := db.TxFromContext(ctx)
	if tx == nil {
		return nil, fmt.Errorf("lock sell: no transaction in context")
	}
	s, err := scanSell(tx.QueryRow(ctx,
		`SELECT `+sellCols+` FROM sell s WHERE s.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "sell")
	}
	if s.Payments, err = r.payments(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sellRepoPG) loadLines(ctx context.Context, s *Sell) error {
	conn := db.Conn(ctx, r.pool)
	rows, err := conn.Query(ctx, `
		SELECT l.id, l.service_id, sv.name, l.quantity, l.price, l.subtotal, l.vat, l.total
		FROM sell_service l JOIN service sv ON sv.id = l.service_id
		WHERE l.sell_id = $1 ORDER BY sv.name`, s.ID)
	if err != nil {
		return apperr.FromDB(err, "sell line")
	}
	s.Services = []ServiceLine{}
	for rows.Next() {
		l := ServiceLine{SellID: s.ID}
		if err := rows.Scan(&l.ID, &l.ServiceID, &l.Name, &l.Quantity, &l.Price, &l.Subtotal, &l.VAT, &l.Total); err != nil {
			rows.Close()
			return apperr.FromDB(err, "sell line")
		}
		s.Services = append(s.Services, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return apperr.FromDB(err, "sell line")
	}

	rows, err = conn.Query(ctx, `
		SELECT l.id, l.supply_id, sp.name, l.quantity, l.price, l.subtotal, l.vat, l.total
		FROM sell_supply l JOIN supply sp ON sp.id = l.supply_id
		WHERE l.sell_id = $1 ORDER BY sp.name`, s.ID)
	if err != nil {
		return apperr.FromDB(err, "sell line")
	}
	defer rows.Close()
	s.Supplies = []SupplyLine{}
	for rows.Next() {
		l := SupplyLine{SellID: s.ID}
		if err := rows.Scan(&l.ID, &l.SupplyID, &l.Name, &l.Quantity, &l.Price, &l.Subtotal, &l.VAT, &l.Total); err != nil {
			return apperr.FromDB(err, "sell line")
		}
		s.Supplies = append(s.Supplies, l)
	}
	return apperr.FromDB(rows.Err(), "sell line")
}

func (r *sellRepoPG) payments(ctx context.Context, sellID uuid.UUID) ([]Payment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, sell_id, payment_method_id, subtotal, vat, total, paid_at
		FROM payment WHERE sell_id = $1 ORDER BY paid_at, id`, sellID)
	if err != nil {
		return nil, apperr.FromDB(err, "payment")
	}
	defer rows.Close()
	items := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.SellID, &p.PaymentMethodID, &p.Subtotal, &p.VAT, &p.Total, &p.PaidAt); err != nil {
			return nil, apperr.FromDB(err, "payment")
		}
		items = append(items, p)
	}
	return items, apperr.FromDB(rows.Err(), "payment")
}

func (r *sellRepoPG) List(ctx context.Context, f SellFilter, limit, offset int) ([]*Sell, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND s.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND s.status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM sell s`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "sell")
	}

	query := `SELECT ` + sellCols + `,
		s.total - COALESCE((SELECT SUM(p.total) FROM payment p WHERE p.sell_id = s.id), 0)
		FROM sell s` + where +
		fmt.Sprintf(` ORDER BY s.created_at DESC, s.id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "sell")
	}
	defer rows.Close()
	var items []*Sell
	for rows.Next() {
		var balance float64
		s, err := scanSell(rows, &balance)
		if err != nil {
			return nil, 0, apperr.FromDB(err, "sell")
		}
		s.Balance = balance
		items = append(items, s)
	}
	return items, total, apperr.FromDB(rows.Err(), "sell")
}

func (r *sellRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, paidAt *time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE sell SET status = $2, paid_at = $3 WHERE id = $1`, id, status, paidAt)
	if err != nil {
		return apperr.FromDB(err, "sell")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("sell not found")
	}
	return nil
}

func (r *sellRepoPG) AddPayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO payment (id, sell_id, payment_method_id, subtotal, vat, total, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.SellID, p.PaymentMethodID, p.Subtotal, p.VAT, p.Total, p.PaidAt)
	return apperr.FromDB(err, "payment")
}
