package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/notification"
)

var (
	// ErrNotAssignedDoctor is returned when a doctor tries to modify an
	// appointment assigned to a different doctor.
	ErrNotAssignedDoctor = errors.New("unauthorized to modify this appointment")
	// ErrDoctorProfileMissing is returned when the acting user has no
	// doctor profile.
	ErrDoctorProfileMissing = errors.New("doctor profile not found")
)

// RejectionError carries a booking rule violation. Handlers surface the
// reason verbatim as a 400; it is never retried automatically.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// DoctorDirectory resolves identities the scheduling rules need: the
// doctor profile behind an acting user, and contact details for
// notifications. The identity service implements it.
type DoctorDirectory interface {
	DoctorIDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	UserContact(ctx context.Context, userID uuid.UUID) (name, email string, err error)
	DoctorDisplayName(ctx context.Context, doctorID uuid.UUID) (string, error)
}

type Service struct {
	schedules    ScheduleRepository
	appointments AppointmentRepository
	validator    *Validator
	directory    DoctorDirectory
	notifier     *notification.Notifier

	// tx runs fn inside a serializable transaction so the overlap check
	// and the write commit atomically. Swapped out in tests.
	tx func(ctx context.Context, fn func(context.Context) error) error
}

func NewService(schedules ScheduleRepository, appointments AppointmentRepository, directory DoctorDirectory, notifier *notification.Notifier, pool *pgxpool.Pool) *Service {
	return &Service{
		schedules:    schedules,
		appointments: appointments,
		validator:    NewValidator(schedules, appointments),
		directory:    directory,
		notifier:     notifier,
		tx: func(ctx context.Context, fn func(context.Context) error) error {
			return db.WithSerializableTx(ctx, pool, fn)
		},
	}
}

// -- Appointments --

type CreateAppointmentInput struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      string
	Time      string
	Status    string
}

// CreateAppointment books a slot. The admission check and the insert run
// in one serializable transaction; the unique index on
// (doctor_id, date, time) closes the remaining race between two bookings
// for the identical slot.
func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	if in.DoctorID == uuid.Nil || in.PatientID == uuid.Nil || in.Date == "" || in.Time == "" {
		return nil, &RejectionError{Reason: "Missing required fields: doctorId, patientId, date, time"}
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !ValidStatus(in.Status) {
		return nil, &RejectionError{Reason: "Invalid status, must be pending, confirmed, completed, or canceled"}
	}

	appt := &Appointment{
		ID:        uuid.New(),
		DoctorID:  in.DoctorID,
		PatientID: in.PatientID,
		Date:      in.Date,
		Time:      in.Time,
		Status:    in.Status,
		Duration:  SlotMinutes,
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		verdict, err := s.validator.Validate(ctx, in.DoctorID, in.Date, in.Time)
		if err != nil {
			return err
		}
		if !verdict.Valid {
			return &RejectionError{Reason: verdict.Message}
		}
		return s.appointments.Create(ctx, appt)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "appointments_doctor_id_date_time_key") {
			return nil, &RejectionError{Reason: fmt.Sprintf("Time slot %s on %s overlaps with an existing appointment", in.Time, in.Date)}
		}
		return nil, err
	}

	s.notifyBooked(ctx, appt)

	return appt, nil
}

type UpdateAppointmentInput struct {
	Date   string
	Time   string
	Status string
}

// UpdateAppointment reschedules and/or changes status. When date or time
// changes the admission check runs again on the effective values, with the
// appointment's own slot excluded from the overlap set.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in UpdateAppointmentInput) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Status != "" && !ValidStatus(in.Status) {
		return nil, &RejectionError{Reason: "Invalid status, must be pending, confirmed, completed, or canceled"}
	}

	newDate, newTime := appt.Date, appt.Time
	if in.Date != "" {
		newDate = in.Date
	}
	if in.Time != "" {
		newTime = in.Time
	}
	reschedule := newDate != appt.Date || newTime != appt.Time

	err = s.tx(ctx, func(ctx context.Context) error {
		if reschedule {
			verdict, err := s.validateExcluding(ctx, appt.DoctorID, newDate, newTime, appt.ID)
			if err != nil {
				return err
			}
			if !verdict.Valid {
				return &RejectionError{Reason: verdict.Message}
			}
		}
		appt.Date = newDate
		appt.Time = newTime
		if in.Status != "" {
			appt.Status = in.Status
		}
		return s.appointments.Update(ctx, appt)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "appointments_doctor_id_date_time_key") {
			return nil, &RejectionError{Reason: fmt.Sprintf("Time slot %s on %s overlaps with an existing appointment", newTime, newDate)}
		}
		return nil, err
	}
	return appt, nil
}

// validateExcluding runs the admission check but ignores one appointment
// id in the overlap set, so rescheduling does not collide with itself.
func (s *Service) validateExcluding(ctx context.Context, doctorID uuid.UUID, date, timeOfDay string, exclude uuid.UUID) (Verdict, error) {
	v := NewValidator(s.schedules, excludeAppointments{s.appointments, exclude})
	return v.Validate(ctx, doctorID, date, timeOfDay)
}

type excludeAppointments struct {
	AppointmentRepository
	exclude uuid.UUID
}

func (e excludeAppointments) FindActive(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error) {
	appts, err := e.AppointmentRepository.FindActive(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	filtered := appts[:0]
	for _, a := range appts {
		if a.ID != e.exclude {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// UpdateStatus changes an appointment's status. Only the assigned doctor
// may do it. The patient is notified best-effort.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, actingUserID uuid.UUID, status string) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, &RejectionError{Reason: "Invalid status, must be pending, confirmed, completed, or canceled"}
	}

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requireAssignedDoctor(ctx, actingUserID, appt); err != nil {
		return nil, err
	}

	appt.Status = status
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.notifyStatusChanged(ctx, appt)

	return appt, nil
}

// DeleteAppointment removes an appointment. Only the assigned doctor may
// do it.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID, actingUserID uuid.UUID) error {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAssignedDoctor(ctx, actingUserID, appt); err != nil {
		return err
	}
	return s.appointments.Delete(ctx, id)
}

func (s *Service) requireAssignedDoctor(ctx context.Context, actingUserID uuid.UUID, appt *Appointment) error {
	doctorID, err := s.directory.DoctorIDForUser(ctx, actingUserID)
	if err != nil {
		return ErrDoctorProfileMissing
	}
	if doctorID != appt.DoctorID {
		return ErrNotAssignedDoctor
	}
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

// -- Schedules --

type ScheduleInput struct {
	AvailableDays []string
	StartHour     int
	StartMinute   int
	StartPeriod   string
	EndHour       int
	EndMinute     int
	EndPeriod     string
}

var weekdayNames = map[string]bool{
	"Sunday": true, "Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true,
}

func validateScheduleInput(in ScheduleInput) error {
	if len(in.AvailableDays) == 0 {
		return &RejectionError{Reason: "availableDays must not be empty"}
	}
	for _, d := range in.AvailableDays {
		if !weekdayNames[d] {
			return &RejectionError{Reason: fmt.Sprintf("invalid weekday: %s", d)}
		}
	}
	if in.StartHour < 1 || in.StartHour > 12 || in.EndHour < 1 || in.EndHour > 12 {
		return &RejectionError{Reason: "hours must be between 1 and 12"}
	}
	if in.StartMinute < 0 || in.StartMinute > 59 || in.EndMinute < 0 || in.EndMinute > 59 {
		return &RejectionError{Reason: "minutes must be between 0 and 59"}
	}
	if (in.StartPeriod != PeriodAM && in.StartPeriod != PeriodPM) ||
		(in.EndPeriod != PeriodAM && in.EndPeriod != PeriodPM) {
		return &RejectionError{Reason: "period must be AM or PM"}
	}

	start := resolveHour(in.StartHour, in.StartPeriod)*60 + in.StartMinute
	end := resolveHour(in.EndHour, in.EndPeriod)*60 + in.EndMinute
	if end <= start {
		return &RejectionError{Reason: "schedule end time must be after start time"}
	}
	return nil
}

// UpsertSchedule creates or replaces the acting doctor's weekly
// availability. The end-after-start invariant is enforced here, not
// trusted from the client.
func (s *Service) UpsertSchedule(ctx context.Context, actingUserID uuid.UUID, in ScheduleInput) (*Schedule, error) {
	doctorID, err := s.directory.DoctorIDForUser(ctx, actingUserID)
	if err != nil {
		return nil, ErrDoctorProfileMissing
	}
	if err := validateScheduleInput(in); err != nil {
		return nil, err
	}

	sched := &Schedule{
		DoctorID:      doctorID,
		AvailableDays: in.AvailableDays,
		StartHour:     in.StartHour,
		StartMinute:   in.StartMinute,
		StartPeriod:   in.StartPeriod,
		EndHour:       in.EndHour,
		EndMinute:     in.EndMinute,
		EndPeriod:     in.EndPeriod,
	}
	if err := s.schedules.Upsert(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// UpdateSchedule modifies a schedule by id. The schedule must belong to
// the acting doctor.
func (s *Service) UpdateSchedule(ctx context.Context, id uuid.UUID, actingUserID uuid.UUID, in ScheduleInput) (*Schedule, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doctorID, err := s.directory.DoctorIDForUser(ctx, actingUserID)
	if err != nil {
		return nil, ErrDoctorProfileMissing
	}
	if doctorID != sched.DoctorID {
		return nil, ErrNotAssignedDoctor
	}
	if err := validateScheduleInput(in); err != nil {
		return nil, err
	}

	sched.AvailableDays = in.AvailableDays
	sched.StartHour = in.StartHour
	sched.StartMinute = in.StartMinute
	sched.StartPeriod = in.StartPeriod
	sched.EndHour = in.EndHour
	sched.EndMinute = in.EndMinute
	sched.EndPeriod = in.EndPeriod

	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// DeleteSchedule removes a schedule. The schedule must belong to the
// acting doctor.
func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID, actingUserID uuid.UUID) error {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	doctorID, err := s.directory.DoctorIDForUser(ctx, actingUserID)
	if err != nil {
		return ErrDoctorProfileMissing
	}
	if doctorID != sched.DoctorID {
		return ErrNotAssignedDoctor
	}
	return s.schedules.Delete(ctx, id)
}

func (s *Service) GetScheduleByDoctor(ctx context.Context, doctorID uuid.UUID) (*Schedule, error) {
	return s.schedules.GetByDoctor(ctx, doctorID)
}

// -- Notifications --

func (s *Service) notifyBooked(ctx context.Context, appt *Appointment) {
	if s.notifier == nil || s.directory == nil {
		return
	}
	name, email, err := s.directory.UserContact(ctx, appt.PatientID)
	if err != nil {
		return
	}
	doctorName, err := s.directory.DoctorDisplayName(ctx, appt.DoctorID)
	if err != nil {
		doctorName = "your doctor"
	}
	s.notifier.AppointmentBooked(ctx, email, name, doctorName, appt.Date, appt.Time)
}

func (s *Service) notifyStatusChanged(ctx context.Context, appt *Appointment) {
	if s.notifier == nil || s.directory == nil {
		return
	}
	name, email, err := s.directory.UserContact(ctx, appt.PatientID)
	if err != nil {
		return
	}
	s.notifier.StatusChanged(ctx, email, name, appt.Date, appt.Time, appt.Status)
}
