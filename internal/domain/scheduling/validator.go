package scheduling

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Verdict is the outcome of an admission check. A rejection carries the
// human-readable reason; the caller surfaces it verbatim.
type Verdict struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

func reject(format string, args ...any) Verdict {
	return Verdict{Valid: false, Message: fmt.Sprintf(format, args...)}
}

// Validator decides whether a proposed appointment is admissible against
// the doctor's schedule and existing bookings. It is read-only: the caller
// persists the appointment only after an accepting verdict, and should do
// so in the same transaction that ran the check.
type Validator struct {
	schedules    ScheduleRepository
	appointments AppointmentRepository
}

func NewValidator(schedules ScheduleRepository, appointments AppointmentRepository) *Validator {
	return &Validator{schedules: schedules, appointments: appointments}
}

// Validate runs the admission checks in order and returns the first
// rejection, or an accepting verdict. A rejection is a return value, not
// an error; the error is non-nil only for storage failures, which are not
// a judgment about the appointment.
func (v *Validator) Validate(ctx context.Context, doctorID uuid.UUID, date, timeOfDay string) (Verdict, error) {
	if !datePattern.MatchString(date) {
		return reject("Invalid date format, expected YYYY-MM-DD"), nil
	}
	parsedDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return reject("Invalid date format, expected YYYY-MM-DD"), nil
	}

	if !timePattern.MatchString(timeOfDay) {
		return reject("Invalid time format, expected HH:mm"), nil
	}

	schedule, err := v.schedules.GetByDoctor(ctx, doctorID)
	if errors.Is(err, ErrNotFound) {
		return reject("Doctor has no schedule defined"), nil
	}
	if err != nil {
		return Verdict{}, fmt.Errorf("load schedule: %w", err)
	}

	day := weekdayOf(parsedDate)
	if !schedule.DayAvailable(day) {
		return reject("Doctor is not available on %s", day), nil
	}

	// The pattern only guarantees digit count, so "25:00" still parses.
	hour, minute := splitClock(timeOfDay)
	if hour > 23 || minute > 59 {
		return reject("Invalid time, hours must be 0-23 and minutes 0-59"), nil
	}

	// Start is inclusive, end exclusive: a booking at the exact closing
	// time is rejected.
	apptMinutes := hour*60 + minute
	if apptMinutes < schedule.StartMinutes() || apptMinutes >= schedule.EndMinutes() {
		return reject("Appointment time %s is outside doctor's schedule (%s)", timeOfDay, schedule.FormatWindow()), nil
	}

	existing, err := v.appointments.FindActive(ctx, doctorID, date)
	if err != nil {
		return Verdict{}, fmt.Errorf("load appointments: %w", err)
	}
	newStart := apptMinutes
	newEnd := apptMinutes + SlotMinutes
	for _, appt := range existing {
		h, m := splitClock(appt.Time)
		existStart := h*60 + m
		existEnd := existStart + SlotMinutes
		// Half-open intervals: touching endpoints do not conflict.
		if newStart < existEnd && newEnd > existStart {
			return reject("Time slot %s on %s overlaps with an existing appointment", timeOfDay, date), nil
		}
	}

	return Verdict{Valid: true}, nil
}

// splitClock parses "HH:mm" into its numeric parts. Callers must have
// checked the shape against timePattern first.
func splitClock(s string) (hour, minute int) {
	parts := strings.SplitN(s, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		minute, _ = strconv.Atoi(parts[1])
	}
	return hour, minute
}
