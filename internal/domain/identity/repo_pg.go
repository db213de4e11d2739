package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
)

// -- User Repository --

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, email, password, role, image, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Image, &u.CreatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO app_user (id, email, password, role, image)
		VALUES ($1, lower($2), $3, $4, $5)
		RETURNING email, created_at`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.Image,
	).Scan(&u.Email, &u.CreatedAt)
	return apperr.FromDB(err, "user")
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return u, nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE email = lower($1)`, email))
	if err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return u, nil
}

func (r *userRepoPG) EmailTaken(ctx context.Context, email string) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM app_user WHERE email = lower($1))`, email).Scan(&taken)
	return taken, apperr.FromDB(err, "user")
}

// -- Person rows --

const personCols = `pe.name, pe.surname, pe.lastname, pe.birthday, pe.rfc, pe.tax_regime_id, pe.sex,
	pe.address, pe.cp, pe.latitude, pe.longitude, pe.phone`

func personDest(p *Person) []interface{} {
	return []interface{}{&p.Name, &p.Surname, &p.Lastname, &p.Birthday.Time, &p.RFC, &p.TaxRegimeID, &p.Sex,
		&p.Address, &p.CP, &p.Latitude, &p.Longitude, &p.Phone}
}

func insertPerson(ctx context.Context, q db.Querier, p *Person) (uuid.UUID, error) {
	id := uuid.New()
	_, err := q.Exec(ctx, `
		INSERT INTO person (id, name, surname, lastname, birthday, rfc, tax_regime_id, sex,
			address, cp, latitude, longitude, phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		id, p.Name, p.Surname, p.Lastname, p.Birthday.Time, p.RFC, p.TaxRegimeID, p.Sex,
		p.Address, p.CP, p.Latitude, p.Longitude, p.Phone)
	return id, apperr.FromDB(err, "person")
}

func updatePerson(ctx context.Context, q db.Querier, id uuid.UUID, p *Person) error {
	_, err := q.Exec(ctx, `
		UPDATE person SET name=$2, surname=$3, lastname=$4, birthday=$5, rfc=$6, tax_regime_id=$7,
			sex=$8, address=$9, cp=$10, latitude=$11, longitude=$12, phone=$13
		WHERE id = $1`,
		id, p.Name, p.Surname, p.Lastname, p.Birthday.Time, p.RFC, p.TaxRegimeID,
		p.Sex, p.Address, p.CP, p.Latitude, p.Longitude, p.Phone)
	return apperr.FromDB(err, "person")
}

// personWhere builds the filter shared by patient and dentist listings. alias
// is the table alias that carries status.
func personWhere(alias string, f PersonFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.Status != "" {
		where += fmt.Sprintf(` AND %s.status = $%d`, alias, idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Name != "" {
		where += fmt.Sprintf(` AND (pe.name || ' ' || pe.surname || ' ' || pe.lastname) ILIKE $%d`, idx)
		args = append(args, "%"+f.Name+"%")
	}
	return where, args
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// -- Patient Repository --

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientSelect = `SELECT p.id, p.user_id, p.person_id, u.email, ` + personCols + `,
	ARRAY(SELECT pa.allergy_id::text FROM patient_allergy pa WHERE pa.patient_id = p.id ORDER BY pa.allergy_id),
	p.status, p.created_at, p.updated_at
	FROM patient p
	JOIN app_user u ON u.id = p.user_id
	JOIN person pe ON pe.id = p.person_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var allergies []string
	dest := append([]interface{}{&p.ID, &p.UserID, &p.PersonID, &p.Email}, personDest(&p.Person)...)
	dest = append(dest, &allergies, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	ids, err := parseUUIDs(allergies)
	if err != nil {
		return nil, err
	}
	p.Allergies = ids
	return &p, nil
}

func (r *patientRepoPG) setAllergies(ctx context.Context, q db.Querier, p *Patient) error {
	if _, err := q.Exec(ctx, `DELETE FROM patient_allergy WHERE patient_id = $1`, p.ID); err != nil {
		return apperr.FromDB(err, "patient allergy")
	}
	if len(p.Allergies) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		INSERT INTO patient_allergy (patient_id, allergy_id)
		SELECT $1, unnest($2::uuid[])`, p.ID, p.Allergies)
	return apperr.FromDB(err, "patient allergy")
}

// Create writes the person, patient and allergy rows. Callers run it inside
// RunInTx.
func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	q := db.Conn(ctx, r.pool)
	personID, err := insertPerson(ctx, q, &p.Person)
	if err != nil {
		return err
	}
	p.ID = uuid.New()
	p.PersonID = personID
	err = q.QueryRow(ctx, `
		INSERT INTO patient (id, user_id, person_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.PersonID, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return apperr.FromDB(err, "patient")
	}
	return r.setAllergies(ctx, q, p)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, patientSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "patient")
	}
	return p, nil
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, patientSelect+` WHERE p.user_id = $1`, userID))
	if err != nil {
		return nil, apperr.FromDB(err, "patient")
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	q := db.Conn(ctx, r.pool)
	if err := updatePerson(ctx, q, p.PersonID, &p.Person); err != nil {
		return err
	}
	err := q.QueryRow(ctx,
		`UPDATE patient SET updated_at = NOW() WHERE id = $1 RETURNING updated_at`, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return apperr.FromDB(err, "patient")
	}
	return r.setAllergies(ctx, q, p)
}

func (r *patientRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE patient SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.FromDB(err, "patient")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, f PersonFilter, limit, offset int) ([]*Patient, int, error) {
	where, args := personWhere("p", f)
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient p JOIN person pe ON pe.id = p.person_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "patient")
	}

	idx := len(args) + 1
	query := patientSelect + where + fmt.Sprintf(` ORDER BY pe.name, pe.surname, p.id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "patient")
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, apperr.FromDB(err, "patient")
		}
		items = append(items, p)
	}
	return items, total, apperr.FromDB(rows.Err(), "patient")
}

// -- Dentist Repository --

type dentistRepoPG struct{ pool *pgxpool.Pool }

func NewDentistRepoPG(pool *pgxpool.Pool) DentistRepository {
	return &dentistRepoPG{pool: pool}
}

const dentistSelect = `SELECT d.id, d.user_id, d.person_id, u.email, ` + personCols + `,
	d.professional_license, d.hired_at, d.position,
	to_char(d.start_time, 'HH24:MI'), to_char(d.end_time, 'HH24:MI'), d.frequency_id,
	ARRAY(SELECT dw.weekday_id FROM dentist_weekday dw WHERE dw.dentist_id = d.id ORDER BY dw.weekday_id),
	d.status, d.created_at, d.updated_at
	FROM dentist d
	JOIN app_user u ON u.id = d.user_id
	JOIN person pe ON pe.id = d.person_id`

func scanDentist(row pgx.Row) (*Dentist, error) {
	var d Dentist
	var weekdays []int32
	dest := append([]interface{}{&d.ID, &d.UserID, &d.PersonID, &d.Email}, personDest(&d.Person)...)
	dest = append(dest, &d.ProfessionalLicense, &d.HiredAt.Time, &d.Position,
		&d.StartTime, &d.EndTime, &d.FrequencyID, &weekdays, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d.Weekdays = make([]int, len(weekdays))
	for i, w := range weekdays {
		d.Weekdays[i] = int(w)
	}
	return &d, nil
}

func (r *dentistRepoPG) loadDiplomas(ctx context.Context, dentists []*Dentist) error {
	if len(dentists) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Dentist, len(dentists))
	ids := make([]uuid.UUID, 0, len(dentists))
	for _, d := range dentists {
		d.Diplomas = []Diploma{}
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT dentist_id, name, university FROM diploma
		WHERE dentist_id = ANY($1) ORDER BY dentist_id, name`, ids)
	if err != nil {
		return apperr.FromDB(err, "diploma")
	}
	defer rows.Close()
	for rows.Next() {
		var dentistID uuid.UUID
		var dip Diploma
		if err := rows.Scan(&dentistID, &dip.Name, &dip.University); err != nil {
			return apperr.FromDB(err, "diploma")
		}
		if d, ok := byID[dentistID]; ok {
			d.Diplomas = append(d.Diplomas, dip)
		}
	}
	return apperr.FromDB(rows.Err(), "diploma")
}

// setSchedule replaces weekdays and diplomas in one batch.
func (r *dentistRepoPG) setSchedule(ctx context.Context, q db.Querier, d *Dentist) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM dentist_weekday WHERE dentist_id = $1`, d.ID)
	batch.Queue(`DELETE FROM diploma WHERE dentist_id = $1`, d.ID)
	for _, w := range d.Weekdays {
		batch.Queue(`INSERT INTO dentist_weekday (dentist_id, weekday_id) VALUES ($1, $2)`, d.ID, w)
	}
	for _, dip := range d.Diplomas {
		batch.Queue(`INSERT INTO diploma (id, dentist_id, name, university) VALUES ($1, $2, $3, $4)`,
			uuid.New(), d.ID, dip.Name, dip.University)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return apperr.FromDB(err, "dentist schedule")
		}
	}
	return nil
}

// Create writes the person, dentist, weekday and diploma rows. Callers run
// it inside RunInTx.
func (r *dentistRepoPG) Create(ctx context.Context, d *Dentist) error {
	q := db.Conn(ctx, r.pool)
	personID, err := insertPerson(ctx, q, &d.Person)
	if err != nil {
		return err
	}
	d.ID = uuid.New()
	d.PersonID = personID
	err = q.QueryRow(ctx, `
		INSERT INTO dentist (id, user_id, person_id, professional_license, hired_at, position,
			start_time, end_time, frequency_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7::time, $8::time, $9, $10)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.PersonID, d.ProfessionalLicense, d.HiredAt.Time, d.Position,
		d.StartTime, d.EndTime, d.FrequencyID, d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return apperr.FromDB(err, "dentist")
	}
	return r.setSchedule(ctx, q, d)
}

func (r *dentistRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dentist, error) {
	d, err := scanDentist(db.Conn(ctx, r.pool).QueryRow(ctx, dentistSelect+` WHERE d.id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "dentist")
	}
	if err := r.loadDiplomas(ctx, []*Dentist{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *dentistRepoPG) Update(ctx context.Context, d *Dentist) error {
	q := db.Conn(ctx, r.pool)
	if err := updatePerson(ctx, q, d.PersonID, &d.Person); err != nil {
		return err
	}
	err := q.QueryRow(ctx, `
		UPDATE dentist SET professional_license=$2, position=$3, start_time=$4::time, end_time=$5::time,
			frequency_id=$6, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID, d.ProfessionalLicense, d.Position, d.StartTime, d.EndTime, d.FrequencyID,
	).Scan(&d.UpdatedAt)
	if err != nil {
		return apperr.FromDB(err, "dentist")
	}
	return r.setSchedule(ctx, q, d)
}

func (r *dentistRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE dentist SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return apperr.FromDB(err, "dentist")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("dentist not found")
	}
	return nil
}

func (r *dentistRepoPG) List(ctx context.Context, f PersonFilter, limit, offset int) ([]*Dentist, int, error) {
	where, args := personWhere("d", f)
	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM dentist d JOIN person pe ON pe.id = d.person_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "dentist")
	}

	idx := len(args) + 1
	query := dentistSelect + where + fmt.Sprintf(` ORDER BY pe.name, pe.surname, d.id LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "dentist")
	}
	var items []*Dentist
	for rows.Next() {
		d, err := scanDentist(rows)
		if err != nil {
			rows.Close()
			return nil, 0, apperr.FromDB(err, "dentist")
		}
		items = append(items, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.FromDB(err, "dentist")
	}
	if err := r.loadDiplomas(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
