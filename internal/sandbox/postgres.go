package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists the sandbox in PostgreSQL. The schema comes from
// Migrations.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *PGStore) Kind() string { return "postgres" }

func (s *PGStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PGStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE users, patients, treatments, dental_records, appointments, queue_entries RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// validID filters ids that cannot be UUIDs so they read as missing rather
// than as a database error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -- Users --

func (s *PGStore) CreateUser(ctx context.Context, u *UserRecord) error {
	_, err := s.conn(ctx).Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PGStore) UserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var u UserRecord
	var id uuid.UUID
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	u.ID = id.String()
	return &u, nil
}

// -- Patients --

const patientCols = `id, name, date_of_birth, gender, contact, address, teeth, created_at`

func scanPatient(row pgx.Row) (*dental.Patient, error) {
	var (
		p       dental.Patient
		id      uuid.UUID
		teeth   []byte
		created time.Time
	)
	if err := row.Scan(&id, &p.Name, &p.DateOfBirth, &p.Gender, &p.Contact, &p.Address, &teeth, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(teeth, &p.Teeth); err != nil {
		return nil, fmt.Errorf("decode teeth of %s: %w", id, err)
	}
	p.ID = id.String()
	p.CreatedAt = created.UTC().Format(wireTimestamp)
	p.Treatments = []dental.Treatment{}
	return &p, nil
}

const treatmentCols = `id, patient_id, date, tooth_ids, procedure, notes, cost, performed_by`

func scanTreatment(row pgx.Row) (dental.Treatment, string, error) {
	var (
		t     dental.Treatment
		id    uuid.UUID
		pid   uuid.UUID
		teeth []int32
	)
	if err := row.Scan(&id, &pid, &t.Date, &teeth, &t.Procedure, &t.Notes, &t.Cost, &t.PerformedBy); err != nil {
		return t, "", err
	}
	t.ID = id.String()
	t.ToothIDs = make([]int, len(teeth))
	for i, v := range teeth {
		t.ToothIDs[i] = int(v)
	}
	return t, pid.String(), nil
}

func toothArray(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, v := range ids {
		out[i] = int32(v)
	}
	return out
}

func (s *PGStore) ListPatients(ctx context.Context) ([]dental.Patient, error) {
	q := s.conn(ctx)
	rows, err := q.Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []dental.Patient
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		index[p.ID] = len(patients)
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := q.Query(ctx, `SELECT `+treatmentCols+` FROM treatments ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		t, pid, err := scanTreatment(trows)
		if err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		if i, ok := index[pid]; ok {
			patients[i].Treatments = append(patients[i].Treatments, t)
		}
	}
	if patients == nil {
		patients = []dental.Patient{}
	}
	return patients, trows.Err()
}

func (s *PGStore) GetPatient(ctx context.Context, id string) (*dental.Patient, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	q := s.conn(ctx)
	p, err := scanPatient(q.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := q.Query(ctx, `SELECT `+treatmentCols+` FROM treatments WHERE patient_id = $1 ORDER BY date, id`, id)
	if err != nil {
		return nil, fmt.Errorf("get treatments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		t, _, err := scanTreatment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		p.Treatments = append(p.Treatments, t)
	}
	return p, rows.Err()
}

func (s *PGStore) CreatePatient(ctx context.Context, p *dental.Patient) error {
	teeth, err := json.Marshal(p.Teeth)
	if err != nil {
		return fmt.Errorf("encode teeth: %w", err)
	}
	created, err := time.Parse(wireTimestamp, p.CreatedAt)
	if err != nil {
		created = time.Now().UTC()
	}
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		q := s.conn(ctx)
		if _, err := q.Exec(ctx,
			`INSERT INTO patients (`+patientCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Name, p.DateOfBirth, p.Gender, p.Contact, p.Address, teeth, created,
		); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		for i := range p.Treatments {
			if err := s.CreateTreatment(ctx, p.ID, &p.Treatments[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PGStore) UpdatePatient(ctx context.Context, p *dental.Patient) error {
	if !validID(p.ID) {
		return ErrNotFound
	}
	teeth, err := json.Marshal(p.Teeth)
	if err != nil {
		return fmt.Errorf("encode teeth: %w", err)
	}
	return affected(s.conn(ctx).Exec(ctx,
		`UPDATE patients SET name = $2, date_of_birth = $3, gender = $4, contact = $5, address = $6, teeth = $7
		 WHERE id = $1`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.Contact, p.Address, teeth))
}

func (s *PGStore) DeletePatient(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return affected(s.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id))
}

// -- Treatments --

func (s *PGStore) CreateTreatment(ctx context.Context, patientID string, t *dental.Treatment) error {
	if !validID(patientID) {
		return ErrNotFound
	}
	_, err := s.conn(ctx).Exec(ctx,
		`INSERT INTO treatments (`+treatmentCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, patientID, t.Date, toothArray(t.ToothIDs), t.Procedure, t.Notes, t.Cost, t.PerformedBy)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("create treatment: %w", err)
	}
	return nil
}

func (s *PGStore) GetTreatment(ctx context.Context, id string) (*dental.Treatment, string, error) {
	if !validID(id) {
		return nil, "", ErrNotFound
	}
	t, pid, err := scanTreatment(s.conn(ctx).QueryRow(ctx, `SELECT `+treatmentCols+` FROM treatments WHERE id = $1`, id))
	if err != nil {
		return nil, "", notFound(err)
	}
	return &t, pid, nil
}

func (s *PGStore) UpdateTreatment(ctx context.Context, t *dental.Treatment) error {
	if !validID(t.ID) {
		return ErrNotFound
	}
	return affected(s.conn(ctx).Exec(ctx,
		`UPDATE treatments SET date = $2, tooth_ids = $3, procedure = $4, notes = $5, cost = $6, performed_by = $7
		 WHERE id = $1`,
		t.ID, t.Date, toothArray(t.ToothIDs), t.Procedure, t.Notes, t.Cost, t.PerformedBy))
}

func (s *PGStore) DeleteTreatment(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return affected(s.conn(ctx).Exec(ctx, `DELETE FROM treatments WHERE id = $1`, id))
}

// -- Records --

func (s *PGStore) ListRecords(ctx context.Context, patientID string) ([]dental.DentalRecord, error) {
	out := []dental.DentalRecord{}
	if !validID(patientID) {
		return out, nil
	}
	rows, err := s.conn(ctx).Query(ctx,
		`SELECT id, patient_id, tooth_number, treatment_date, description, treatment_type
		 FROM dental_records WHERE patient_id = $1 ORDER BY treatment_date, created_at`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r dental.DentalRecord
		var id, pid uuid.UUID
		if err := rows.Scan(&id, &pid, &r.ToothNumber, &r.TreatmentDate, &r.Description, &r.TreatmentType); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.ID, r.PatientID = id.String(), pid.String()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateRecord(ctx context.Context, r *dental.DentalRecord) error {
	if !validID(r.PatientID) {
		return ErrNotFound
	}
	_, err := s.conn(ctx).Exec(ctx,
		`INSERT INTO dental_records (id, patient_id, tooth_number, treatment_date, description, treatment_type)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.PatientID, r.ToothNumber, r.TreatmentDate, r.Description, r.TreatmentType)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// -- Appointments --

const appointmentCols = `id, patient_id, patient_name, date, time, notes, status`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var pid uuid.UUID
	if err := row.Scan(&a.ID, &pid, &a.PatientName, &a.Date, &a.Time, &a.Notes, &a.Status); err != nil {
		return nil, err
	}
	a.PatientID = pid.String()
	return &a, nil
}

func (s *PGStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+appointmentCols+` FROM appointments ORDER BY date, time, id`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	out := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *PGStore) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(s.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *PGStore) CreateAppointment(ctx context.Context, a *Appointment) error {
	if !validID(a.PatientID) {
		return ErrNotFound
	}
	err := s.conn(ctx).QueryRow(ctx,
		`INSERT INTO appointments (patient_id, patient_name, date, time, notes, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.PatientID, a.PatientName, a.Date, a.Time, a.Notes, a.Status).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateAppointment(ctx context.Context, a *Appointment) error {
	return affected(s.conn(ctx).Exec(ctx,
		`UPDATE appointments SET patient_id = $2, patient_name = $3, date = $4, time = $5, notes = $6, status = $7
		 WHERE id = $1`,
		a.ID, a.PatientID, a.PatientName, a.Date, a.Time, a.Notes, a.Status))
}

func (s *PGStore) DeleteAppointment(ctx context.Context, id int64) error {
	return affected(s.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id))
}

// -- Queue --

const queueCols = `id, patient_id, patient_name, number, status, created_at`

func scanQueueEntry(row pgx.Row) (*QueueEntry, error) {
	var e QueueEntry
	var pid uuid.UUID
	if err := row.Scan(&e.ID, &pid, &e.PatientName, &e.Number, &e.Status, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.PatientID = pid.String()
	return &e, nil
}

func (s *PGStore) ListQueue(ctx context.Context) ([]QueueEntry, error) {
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+queueCols+` FROM queue_entries ORDER BY queue_day, number`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()
	out := []QueueEntry{}
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *PGStore) GetQueueEntry(ctx context.Context, id int64) (*QueueEntry, error) {
	e, err := scanQueueEntry(s.conn(ctx).QueryRow(ctx, `SELECT `+queueCols+` FROM queue_entries WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// CreateQueueEntry numbers inside a transaction; the unique (queue_day,
// number) constraint rejects a concurrent duplicate.
func (s *PGStore) CreateQueueEntry(ctx context.Context, e *QueueEntry) error {
	if !validID(e.PatientID) {
		return ErrNotFound
	}
	day := queueDay(e.CreatedAt)
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		q := s.conn(ctx)
		if err := q.QueryRow(ctx,
			`SELECT COALESCE(MAX(number), 0) + 1 FROM queue_entries WHERE queue_day = $1`, day,
		).Scan(&e.Number); err != nil {
			return fmt.Errorf("next queue number: %w", err)
		}
		if err := q.QueryRow(ctx,
			`INSERT INTO queue_entries (patient_id, patient_name, number, status, queue_day, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			e.PatientID, e.PatientName, e.Number, e.Status, day, e.CreatedAt,
		).Scan(&e.ID); err != nil {
			return fmt.Errorf("create queue entry: %w", err)
		}
		return nil
	})
}

func (s *PGStore) UpdateQueueEntry(ctx context.Context, e *QueueEntry) error {
	return affected(s.conn(ctx).Exec(ctx,
		`UPDATE queue_entries SET patient_id = $2, patient_name = $3, status = $4 WHERE id = $1`,
		e.ID, e.PatientID, e.PatientName, e.Status))
}

func (s *PGStore) DeleteQueueEntry(ctx context.Context, id int64) error {
	return affected(s.conn(ctx).Exec(ctx, `DELETE FROM queue_entries WHERE id = $1`, id))
}

// isUniqueViolation reports a duplicate key error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
