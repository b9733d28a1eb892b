package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
)

const scheduleCols = `id, doctor_id, available_days, start_hour, start_minute, start_period,
	end_hour, end_minute, end_period, created_at, updated_at`

type scheduleRepoPG struct {
	pool *pgxpool.Pool
}

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository {
	return &scheduleRepoPG{pool: pool}
}

func (r *scheduleRepoPG) conn(ctx context.Context) db.Queryable {
	if q := db.QueryableFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.AvailableDays, &s.StartHour, &s.StartMinute, &s.StartPeriod,
		&s.EndHour, &s.EndMinute, &s.EndPeriod, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	return &s, nil
}

func (r *scheduleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM doctor_schedules WHERE id = $1`, id)
	return scanSchedule(row)
}

func (r *scheduleRepoPG) GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*Schedule, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+scheduleCols+` FROM doctor_schedules WHERE doctor_id = $1`, doctorID)
	return scanSchedule(row)
}

func (r *scheduleRepoPG) Upsert(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor_schedules (id, doctor_id, available_days, start_hour, start_minute, start_period,
			end_hour, end_minute, end_period)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (doctor_id) DO UPDATE SET
			available_days = EXCLUDED.available_days,
			start_hour = EXCLUDED.start_hour,
			start_minute = EXCLUDED.start_minute,
			start_period = EXCLUDED.start_period,
			end_hour = EXCLUDED.end_hour,
			end_minute = EXCLUDED.end_minute,
			end_period = EXCLUDED.end_period,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		s.ID, s.DoctorID, s.AvailableDays, s.StartHour, s.StartMinute, s.StartPeriod,
		s.EndHour, s.EndMinute, s.EndPeriod)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

func (r *scheduleRepoPG) Update(ctx context.Context, s *Schedule) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_schedules SET
			available_days = $2, start_hour = $3, start_minute = $4, start_period = $5,
			end_hour = $6, end_minute = $7, end_period = $8, updated_at = now()
		WHERE id = $1`,
		s.ID, s.AvailableDays, s.StartHour, s.StartMinute, s.StartPeriod,
		s.EndHour, s.EndMinute, s.EndPeriod)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *scheduleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const appointmentCols = `id, doctor_id, patient_id, date, time, status, duration, created_at, updated_at`

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Queryable {
	if q := db.QueryableFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time, &a.Status, &a.Duration,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Duration == 0 {
		a.Duration = SlotMinutes
	}
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, time, status, duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		a.ID, a.DoctorID, a.PatientID, a.Date, a.Time, a.Status, a.Duration)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET date = $2, time = $3, status = $4, updated_at = now()
		WHERE id = $1`,
		a.ID, a.Date, a.Time, a.Status)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) FindActive(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status IN ($3, $4)
		ORDER BY time`,
		doctorID, date, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("query active appointments: %w", err)
	}
	defer rows.Close()

	var result []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *appointmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, `SELECT `+appointmentCols+` FROM appointments ORDER BY date, time LIMIT $1 OFFSET $2`,
		`SELECT COUNT(*) FROM appointments`, nil, limit, offset)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE doctor_id = $3 ORDER BY date, time LIMIT $1 OFFSET $2`,
		`SELECT COUNT(*) FROM appointments WHERE doctor_id = $1`, &doctorID, limit, offset)
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE patient_id = $3 ORDER BY date, time LIMIT $1 OFFSET $2`,
		`SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, &patientID, limit, offset)
}

func (r *appointmentRepoPG) list(ctx context.Context, pageSQL, countSQL string, id *uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	q := r.conn(ctx)

	var total int
	countArgs := []any{}
	pageArgs := []any{limit, offset}
	if id != nil {
		countArgs = append(countArgs, *id)
		pageArgs = append(pageArgs, *id)
	}
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	rows, err := q.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var result []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, a)
	}
	return result, total, rows.Err()
}
