package scheduling

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockScheduleRepo struct {
	byDoctor map[uuid.UUID]*Schedule
	err      error
	lookups  int
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{byDoctor: make(map[uuid.UUID]*Schedule)}
}
func (m *mockScheduleRepo) GetByID(_ context.Context, id uuid.UUID) (*Schedule, error) {
	for _, s := range m.byDoctor {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrNotFound
}
func (m *mockScheduleRepo) GetByDoctor(_ context.Context, doctorID uuid.UUID) (*Schedule, error) {
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.byDoctor[doctorID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}
func (m *mockScheduleRepo) Upsert(_ context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.byDoctor[s.DoctorID] = s
	return nil
}
func (m *mockScheduleRepo) Update(_ context.Context, s *Schedule) error {
	for did, existing := range m.byDoctor {
		if existing.ID == s.ID {
			m.byDoctor[did] = s
			return nil
		}
	}
	return ErrNotFound
}
func (m *mockScheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	for did, s := range m.byDoctor {
		if s.ID == id {
			delete(m.byDoctor, did)
			return nil
		}
	}
	return ErrNotFound
}

type mockAppointmentRepo struct {
	store map[uuid.UUID]*Appointment
	err   error
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{store: make(map[uuid.UUID]*Appointment)}
}
func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.store {
		if existing.DoctorID == a.DoctorID && existing.Date == a.Date && existing.Time == a.Time {
			return fmt.Errorf("duplicate slot")
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.store[a.ID] = a
	return nil
}
func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}
func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.store[a.ID]; !ok {
		return ErrNotFound
	}
	m.store[a.ID] = a
	return nil
}
func (m *mockAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
func (m *mockAppointmentRepo) FindActive(_ context.Context, doctorID uuid.UUID, date string) ([]*Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var r []*Appointment
	for _, a := range m.store {
		if a.DoctorID == doctorID && a.Date == date && a.Active() {
			r = append(r, a)
		}
	}
	return r, nil
}
func (m *mockAppointmentRepo) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	var r []*Appointment
	for _, a := range m.store {
		r = append(r, a)
	}
	return r, len(r), nil
}
func (m *mockAppointmentRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var r []*Appointment
	for _, a := range m.store {
		if a.DoctorID == doctorID {
			r = append(r, a)
		}
	}
	return r, len(r), nil
}
func (m *mockAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var r []*Appointment
	for _, a := range m.store {
		if a.PatientID == patientID {
			r = append(r, a)
		}
	}
	return r, len(r), nil
}

// weekdaySchedule is Mon-Fri, 8:00 AM to 5:00 PM.
func weekdaySchedule(doctorID uuid.UUID) *Schedule {
	return &Schedule{
		ID:            uuid.New(),
		DoctorID:      doctorID,
		AvailableDays: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		StartHour:     8, StartMinute: 0, StartPeriod: PeriodAM,
		EndHour: 5, EndMinute: 0, EndPeriod: PeriodPM,
	}
}

func newTestValidator(doctorID uuid.UUID) (*Validator, *mockScheduleRepo, *mockAppointmentRepo) {
	schedules := newMockScheduleRepo()
	appointments := newMockAppointmentRepo()
	schedules.byDoctor[doctorID] = weekdaySchedule(doctorID)
	return NewValidator(schedules, appointments), schedules, appointments
}

// 2024-01-08 is a Monday, 2024-01-07 a Sunday.
const (
	monday = "2024-01-08"
	sunday = "2024-01-07"
)

func TestValidate_InvalidDateFormat(t *testing.T) {
	doctorID := uuid.New()
	v, schedules, _ := newTestValidator(doctorID)

	for _, date := range []string{"08-01-2024", "2024/01/08", "2024-1-8", "not-a-date", "2024-13-01", "2024-02-30"} {
		verdict, err := v.Validate(context.Background(), doctorID, date, "10:00")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", date, err)
		}
		if verdict.Valid || verdict.Message != "Invalid date format, expected YYYY-MM-DD" {
			t.Errorf("%s: verdict = %+v", date, verdict)
		}
	}
	if schedules.lookups != 0 {
		t.Errorf("format rejection must short-circuit before schedule lookup, saw %d lookups", schedules.lookups)
	}
}

func TestValidate_InvalidTimeFormat(t *testing.T) {
	doctorID := uuid.New()
	v, _, _ := newTestValidator(doctorID)

	for _, tm := range []string{"9:00", "09:0", "0900", "09:00:00", "nine"} {
		verdict, err := v.Validate(context.Background(), doctorID, monday, tm)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tm, err)
		}
		if verdict.Valid || verdict.Message != "Invalid time format, expected HH:mm" {
			t.Errorf("%s: verdict = %+v", tm, verdict)
		}
	}
}

func TestValidate_NoSchedule(t *testing.T) {
	v := NewValidator(newMockScheduleRepo(), newMockAppointmentRepo())

	verdict, err := v.Validate(context.Background(), uuid.New(), monday, "10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Valid || verdict.Message != "Doctor has no schedule defined" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestValidate_UnavailableWeekday(t *testing.T) {
	doctorID := uuid.New()
	v, _, _ := newTestValidator(doctorID)

	verdict, err := v.Validate(context.Background(), doctorID, sunday, "10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Valid || verdict.Message != "Doctor is not available on Sunday" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestValidate_OutOfRangeClock(t *testing.T) {
	doctorID := uuid.New()
	v, _, _ := newTestValidator(doctorID)

	// Shape passes the pattern but the numbers are out of range.
	for _, tm := range []string{"25:00", "10:60", "99:99"} {
		verdict, err := v.Validate(context.Background(), doctorID, monday, tm)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tm, err)
		}
		if verdict.Valid || verdict.Message != "Invalid time, hours must be 0-23 and minutes 0-59" {
			t.Errorf("%s: verdict = %+v", tm, verdict)
		}
	}
}

func TestValidate_WindowContainment(t *testing.T) {
	doctorID := uuid.New()
	v, _, _ := newTestValidator(doctorID)

	cases := []struct {
		time  string
		valid bool
	}{
		{"08:00", true},  // start is inclusive
		{"16:59", true},  // just before close
		{"17:00", false}, // end is exclusive
		{"07:59", false},
		{"00:00", false},
		{"23:00", false},
	}
	for _, tc := range cases {
		verdict, err := v.Validate(context.Background(), doctorID, monday, tc.time)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.time, err)
		}
		if verdict.Valid != tc.valid {
			t.Errorf("%s: valid = %v, want %v (%s)", tc.time, verdict.Valid, tc.valid, verdict.Message)
		}
		if !tc.valid {
			if !strings.Contains(verdict.Message, tc.time) || !strings.Contains(verdict.Message, "8:00 AM - 5:00 PM") {
				t.Errorf("%s: message should name the time and the window: %q", tc.time, verdict.Message)
			}
		}
	}
}

func TestValidate_Overlap(t *testing.T) {
	doctorID := uuid.New()
	v, _, appointments := newTestValidator(doctorID)
	appointments.store[uuid.New()] = &Appointment{
		ID: uuid.New(), DoctorID: doctorID, PatientID: uuid.New(),
		Date: monday, Time: "09:00", Status: StatusPending, Duration: SlotMinutes,
	}

	cases := []struct {
		time  string
		valid bool
	}{
		{"09:00", false}, // identical slot
		{"09:30", false}, // starts inside
		{"08:30", false}, // ends inside
		{"10:00", true},  // touches the end boundary
		{"08:00", true},  // touches the start boundary
		{"11:00", true},
	}
	for _, tc := range cases {
		verdict, err := v.Validate(context.Background(), doctorID, monday, tc.time)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.time, err)
		}
		if verdict.Valid != tc.valid {
			t.Errorf("%s: valid = %v, want %v (%s)", tc.time, verdict.Valid, tc.valid, verdict.Message)
		}
		if !tc.valid {
			want := fmt.Sprintf("Time slot %s on %s overlaps with an existing appointment", tc.time, monday)
			if verdict.Message != want {
				t.Errorf("%s: message = %q, want %q", tc.time, verdict.Message, want)
			}
		}
	}
}

func TestValidate_OverlapSymmetry(t *testing.T) {
	doctorID := uuid.New()

	check := func(existing, proposed string) bool {
		v, _, appointments := newTestValidator(doctorID)
		appointments.store[uuid.New()] = &Appointment{
			ID: uuid.New(), DoctorID: doctorID, PatientID: uuid.New(),
			Date: monday, Time: existing, Status: StatusConfirmed,
		}
		verdict, err := v.Validate(context.Background(), doctorID, monday, proposed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return verdict.Valid
	}

	pairs := [][2]string{{"09:00", "09:30"}, {"10:00", "10:45"}, {"13:00", "13:59"}}
	for _, p := range pairs {
		if check(p[0], p[1]) || check(p[1], p[0]) {
			t.Errorf("overlap between %s and %s must be symmetric and rejected both ways", p[0], p[1])
		}
	}
}

func TestValidate_CanceledDoesNotBlock(t *testing.T) {
	doctorID := uuid.New()
	v, _, appointments := newTestValidator(doctorID)
	appointments.store[uuid.New()] = &Appointment{
		ID: uuid.New(), DoctorID: doctorID, PatientID: uuid.New(),
		Date: monday, Time: "09:00", Status: StatusCanceled,
	}
	appointments.store[uuid.New()] = &Appointment{
		ID: uuid.New(), DoctorID: doctorID, PatientID: uuid.New(),
		Date: monday, Time: "10:00", Status: StatusCompleted,
	}

	for _, tm := range []string{"09:00", "10:00"} {
		verdict, err := v.Validate(context.Background(), doctorID, monday, tm)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !verdict.Valid {
			t.Errorf("%s: canceled/completed appointments must not block: %s", tm, verdict.Message)
		}
	}
}

func TestValidate_Idempotent(t *testing.T) {
	doctorID := uuid.New()
	v, _, appointments := newTestValidator(doctorID)
	appointments.store[uuid.New()] = &Appointment{
		ID: uuid.New(), DoctorID: doctorID, PatientID: uuid.New(),
		Date: monday, Time: "09:00", Status: StatusPending,
	}

	for _, tm := range []string{"09:30", "11:00"} {
		first, err := v.Validate(context.Background(), doctorID, monday, tm)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := v.Validate(context.Background(), doctorID, monday, tm)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Errorf("%s: verdicts differ between calls: %+v vs %+v", tm, first, second)
		}
	}
}

func TestValidate_StorageErrorSurfaces(t *testing.T) {
	doctorID := uuid.New()

	schedules := newMockScheduleRepo()
	schedules.err = fmt.Errorf("connection refused")
	v := NewValidator(schedules, newMockAppointmentRepo())
	if _, err := v.Validate(context.Background(), doctorID, monday, "10:00"); err == nil {
		t.Error("schedule lookup failure must surface as an error, not a verdict")
	}

	schedules = newMockScheduleRepo()
	schedules.byDoctor[doctorID] = weekdaySchedule(doctorID)
	appointments := newMockAppointmentRepo()
	appointments.err = fmt.Errorf("connection refused")
	v = NewValidator(schedules, appointments)
	if _, err := v.Validate(context.Background(), doctorID, monday, "10:00"); err == nil {
		t.Error("appointment lookup failure must surface as an error, not a verdict")
	}
}

func TestValidate_OtherDoctorDoesNotBlock(t *testing.T) {
	doctorID := uuid.New()
	v, _, appointments := newTestValidator(doctorID)
	appointments.store[uuid.New()] = &Appointment{
		ID: uuid.New(), DoctorID: uuid.New(), PatientID: uuid.New(),
		Date: monday, Time: "09:00", Status: StatusPending,
	}

	verdict, err := v.Validate(context.Background(), doctorID, monday, "09:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.Valid {
		t.Errorf("another doctor's appointment must not block: %s", verdict.Message)
	}
}
