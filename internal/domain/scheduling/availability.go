package scheduling

import (
	"fmt"
	"time"
)

const (
	PeriodAM = "AM"
	PeriodPM = "PM"
)

// resolveHour converts a 12-hour clock hour plus period to a 24-hour hour.
// 12 PM is noon, 12 AM is midnight.
func resolveHour(hour int, period string) int {
	if period == PeriodPM && hour != 12 {
		return hour + 12
	}
	if period == PeriodAM && hour == 12 {
		return 0
	}
	return hour
}

// weekdayOf returns the weekday name ("Sunday".."Saturday") for a date.
// Go's time package follows the proleptic Gregorian calendar, so the name
// is always consistent with the date value.
func weekdayOf(date time.Time) string {
	return date.Weekday().String()
}

// StartMinutes is the window's opening instant in minutes since midnight.
func (s *Schedule) StartMinutes() int {
	return resolveHour(s.StartHour, s.StartPeriod)*60 + s.StartMinute
}

// EndMinutes is the window's closing instant in minutes since midnight.
func (s *Schedule) EndMinutes() int {
	return resolveHour(s.EndHour, s.EndPeriod)*60 + s.EndMinute
}

// DayAvailable reports whether day is one of the schedule's available
// weekdays.
func (s *Schedule) DayAvailable(day string) bool {
	for _, d := range s.AvailableDays {
		if d == day {
			return true
		}
	}
	return false
}

// FormatWindow renders the window the way it was entered, e.g.
// "8:00 AM - 5:00 PM". Rejection messages include it so the caller can see
// the doctor's actual hours.
func (s *Schedule) FormatWindow() string {
	return fmt.Sprintf("%d:%02d %s - %d:%02d %s",
		s.StartHour, s.StartMinute, s.StartPeriod,
		s.EndHour, s.EndMinute, s.EndPeriod)
}
