package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Only pending and confirmed appointments block a
// doctor's slot; canceled and completed ones are ignored by the overlap
// check.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// SlotMinutes is the fixed appointment length used by the overlap check.
// The stored duration column exists for forward compatibility but is not
// consulted when detecting conflicts.
const SlotMinutes = 60

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCanceled:  true,
}

// ValidStatus reports whether s is one of the four appointment statuses.
func ValidStatus(s string) bool { return validStatuses[s] }

// Schedule is a doctor's recurring weekly availability: a set of weekdays
// and a single daily window expressed on a 12-hour clock.
type Schedule struct {
	ID            uuid.UUID `db:"id" json:"id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AvailableDays []string  `db:"available_days" json:"available_days"`
	StartHour     int       `db:"start_hour" json:"start_hour"`
	StartMinute   int       `db:"start_minute" json:"start_minute"`
	StartPeriod   string    `db:"start_period" json:"start_period"`
	EndHour       int       `db:"end_hour" json:"end_hour"`
	EndMinute     int       `db:"end_minute" json:"end_minute"`
	EndPeriod     string    `db:"end_period" json:"end_period"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Appointment is a single booked slot. Date and Time keep the wire formats
// YYYY-MM-DD and HH:mm; the validator parses them on every check rather
// than trusting a stored timestamp.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Date      string    `db:"date" json:"date"`
	Time      string    `db:"time" json:"time"`
	Status    string    `db:"status" json:"status"`
	Duration  int       `db:"duration" json:"duration"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the appointment occupies its slot.
func (a *Appointment) Active() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}
