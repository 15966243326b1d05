package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// insertBatchSize bounds the arrays sent in one bulk slot insert.
const insertBatchSize = 1000

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type txKey struct{}

type PgRepository struct {
	pool *pgxpool.Pool
}

var _ Store = (*PgRepository)(nil)

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// conn returns the transaction bound to ctx, if any, else the pool.
func (r *PgRepository) conn(ctx context.Context) queryable {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

func (r *PgRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Helpers

const (
	schedCols = `id, doctor_id, weekday, to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS'),
		slot_duration_minutes, is_active, created_at, updated_at`
	slotCols = `id, doctor_id, to_char(slot_date, 'YYYY-MM-DD'), to_char(slot_time, 'HH24:MI:SS'),
		is_available, is_blocked, appointment_id, created_at, updated_at`
	apptCols = `id, patient_id, doctor_id, to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI:SS'),
		type, status, reason, notes, payment_status, slot_id, created_at, updated_at`
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.Email, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanSchedule(row pgx.Row) (*ScheduleTemplate, error) {
	var (
		t          ScheduleTemplate
		weekday    int16
		start, end string
	)
	err := row.Scan(&t.ID, &t.DoctorID, &weekday, &start, &end,
		&t.SlotDurationMinutes, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	t.Weekday = Weekday(weekday)
	if t.StartTime, err = ParseTimeOfDay(start); err != nil {
		return nil, err
	}
	if t.EndTime, err = ParseTimeOfDay(end); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var (
		s        Slot
		date, at string
	)
	err := row.Scan(&s.ID, &s.DoctorID, &date, &at,
		&s.IsAvailable, &s.IsBlocked, &s.AppointmentID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if s.Date, err = ParseDate(date); err != nil {
		return nil, err
	}
	if s.Time, err = ParseTimeOfDay(at); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a        Appointment
		date, at string
	)
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &date, &at,
		&a.Type, &a.Status, &a.Reason, &a.Notes, &a.PaymentStatus, &a.SlotID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if a.Date, err = ParseDate(date); err != nil {
		return nil, err
	}
	if a.Time, err = ParseTimeOfDay(at); err != nil {
		return nil, err
	}
	return &a, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PgRepository) exists(ctx context.Context, table string, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// Directory

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, specialty, email, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// Schedules

func (r *PgRepository) CreateSchedule(ctx context.Context, t *ScheduleTemplate) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO schedule_templates (id, doctor_id, weekday, start_time, end_time,
			slot_duration_minutes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4::text::time, $5::text::time, $6, $7, $8, $9)
	`, t.ID, t.DoctorID, int16(t.Weekday), t.StartTime.String(), t.EndTime.String(),
		t.SlotDurationMinutes, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: active %s schedule already exists", ErrConflict, t.Weekday)
		}
		return err
	}
	return nil
}

func (r *PgRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleTemplate, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx, `SELECT `+schedCols+` FROM schedule_templates WHERE id = $1`, id))
}

func (r *PgRepository) ListSchedulesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]ScheduleTemplate, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+schedCols+`
		FROM schedule_templates
		WHERE doctor_id = $1
		ORDER BY weekday, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSchedule)
}

func (r *PgRepository) UpdateSchedule(ctx context.Context, t *ScheduleTemplate) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE schedule_templates
		SET weekday = $2,
		    start_time = $3::text::time,
		    end_time = $4::text::time,
		    slot_duration_minutes = $5,
		    is_active = $6,
		    updated_at = $7
		WHERE id = $1
	`, t.ID, int16(t.Weekday), t.StartTime.String(), t.EndTime.String(),
		t.SlotDurationMinutes, t.IsActive, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: active %s schedule already exists", ErrConflict, t.Weekday)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) ListDoctorsWithActiveSchedules(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT doctor_id
		FROM schedule_templates
		WHERE is_active
		ORDER BY doctor_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Slots

func (r *PgRepository) ListSlots(ctx context.Context, limit, offset int) ([]Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotCols+`
		FROM slots
		ORDER BY slot_date, slot_time, doctor_id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSlot)
}

func (r *PgRepository) ListSlotsByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date Date) ([]Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotCols+`
		FROM slots
		WHERE doctor_id = $1 AND slot_date = $2::text::date
		ORDER BY slot_time
	`, doctorID, date.String())
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSlot)
}

func (r *PgRepository) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM slots WHERE id = $1`, id))
}

func (r *PgRepository) GetSlotByKey(ctx context.Context, key SlotKey) (*Slot, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+slotCols+`
		FROM slots
		WHERE doctor_id = $1 AND slot_date = $2::text::date AND slot_time = $3::text::time
	`, key.DoctorID, key.Date.String(), key.Time.String())
	return scanSlot(row)
}

// InsertSlots relies on the (doctor_id, slot_date, slot_time) unique
// constraint; rows that lose the race to a concurrent generator are skipped.
func (r *PgRepository) InsertSlots(ctx context.Context, keys []SlotKey) (int, error) {
	created := 0
	for start := 0; start < len(keys); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		ids := make([]string, len(batch))
		doctors := make([]string, len(batch))
		dates := make([]string, len(batch))
		times := make([]string, len(batch))
		for i, k := range batch {
			ids[i] = uuid.NewString()
			doctors[i] = k.DoctorID.String()
			dates[i] = k.Date.String()
			times[i] = k.Time.String()
		}

		tag, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO slots (id, doctor_id, slot_date, slot_time, is_available, is_blocked, created_at, updated_at)
			SELECT k.id::uuid, k.doctor_id::uuid, k.slot_date::date, k.slot_time::time, true, false, now(), now()
			FROM unnest($1::text[], $2::text[], $3::text[], $4::text[]) AS k(id, doctor_id, slot_date, slot_time)
			ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING
		`, ids, doctors, dates, times)
		if err != nil {
			return created, err
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

func (r *PgRepository) ClaimSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (*Slot, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE slots
		SET is_available = false,
		    appointment_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND is_available
		  AND NOT is_blocked
		  AND appointment_id IS NULL
		RETURNING `+slotCols, slotID, appointmentID)

	s, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		ok, exErr := r.exists(ctx, "slots", slotID)
		if exErr != nil {
			return nil, exErr
		}
		if ok {
			return nil, fmt.Errorf("%w: slot %s is taken or blocked", ErrSlotUnavailable, slotID)
		}
	}
	return s, err
}

func (r *PgRepository) ReleaseSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE slots
		SET appointment_id = NULL,
		    is_available = NOT is_blocked,
		    updated_at = now()
		WHERE id = $1 AND appointment_id = $2
	`, slotID, appointmentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) ReleaseAppointmentSlots(ctx context.Context, appointmentID uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE slots
		SET appointment_id = NULL,
		    is_available = NOT is_blocked,
		    updated_at = now()
		WHERE appointment_id = $1
	`, appointmentID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) SetSlotBlocked(ctx context.Context, id uuid.UUID, blocked bool) (*Slot, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE slots
		SET is_blocked = $2::boolean,
		    is_available = (appointment_id IS NULL AND NOT $2::boolean),
		    updated_at = now()
		WHERE id = $1
		  AND (NOT $2::boolean OR appointment_id IS NULL)
		RETURNING `+slotCols, id, blocked)

	s, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) && blocked {
		ok, exErr := r.exists(ctx, "slots", id)
		if exErr != nil {
			return nil, exErr
		}
		if ok {
			return nil, fmt.Errorf("%w: slot %s is booked", ErrSlotUnavailable, id)
		}
	}
	return s, err
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM slots WHERE id = $1 AND appointment_id IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	ok, err := r.exists(ctx, "slots", id)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: slot %s is booked", ErrConflict, id)
	}
	return ErrSlotNotFound
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time,
			type, status, reason, notes, payment_status, slot_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4::text::date, $5::text::time, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.PatientID, a.DoctorID, a.Date.String(), a.Time.String(),
		a.Type, a.Status, a.Reason, a.Notes, a.PaymentStatus, a.SlotID, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptCols, id, to, from)

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		ok, exErr := r.exists(ctx, "appointments", id)
		if exErr != nil {
			return nil, exErr
		}
		if ok {
			return nil, fmt.Errorf("%w: appointment %s is no longer %s", ErrInvalidTransition, id, from)
		}
	}
	return a, err
}

func (r *PgRepository) MoveAppointment(ctx context.Context, id uuid.UUID, from AppointmentStatus, slot Slot) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2::text::date,
		    appointment_time = $3::text::time,
		    slot_id = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = $5
		RETURNING `+apptCols, id, slot.Date.String(), slot.Time.String(), slot.ID, from)

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		ok, exErr := r.exists(ctx, "appointments", id)
		if exErr != nil {
			return nil, exErr
		}
		if ok {
			return nil, fmt.Errorf("%w: appointment %s is no longer %s", ErrInvalidTransition, id, from)
		}
	}
	return a, err
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, date *Date, limit, offset int) ([]Appointment, error) {
	var day *string
	if date != nil {
		s := date.String()
		day = &s
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE doctor_id = $1
		  AND ($2::text IS NULL OR appointment_date = $2::text::date)
		ORDER BY appointment_date, appointment_time
		LIMIT $3 OFFSET $4
	`, doctorID, day, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

// Events

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
