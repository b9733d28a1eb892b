package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a schedule or appointment does not exist.
var ErrNotFound = errors.New("not found")

type ScheduleRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetByDoctor(ctx context.Context, doctorID uuid.UUID) (*Schedule, error)
	Upsert(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindActive returns the doctor's pending and confirmed appointments
	// on a date. The overlap check runs against this set.
	FindActive(ctx context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error)
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}
