package schedule

import (
	"fmt"
	"time"
)

// Slot identifies a candidate appointment time as raw calendar components.
// The canonical timezone is supplied by the validator, not the caller.
type Slot struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// SlotValidator normalizes candidate timestamps into the canonical zone and
// rejects past instants and hours outside the working window. It is a pure
// function of its inputs plus "now"; the clock is injectable for tests.
type SlotValidator struct {
	loc       *time.Location
	startHour int
	endHour   int
	now       func() time.Time
}

// NewSlotValidator builds a validator over the canonical zone and a
// [startHour, endHour) working window.
func NewSlotValidator(loc *time.Location, startHour, endHour int, now func() time.Time) *SlotValidator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &SlotValidator{loc: loc, startHour: startHour, endHour: endHour, now: now}
}

// Location returns the canonical timezone.
func (v *SlotValidator) Location() *time.Location {
	return v.loc
}

// WorkingHours returns the configured [start, end) hour window.
func (v *SlotValidator) WorkingHours() (int, int) {
	return v.startHour, v.endHour
}

// Instant converts slot components to an instant in the canonical zone
// without validating it. Cancel lookups use this directly.
func (v *SlotValidator) Instant(s Slot) time.Time {
	return time.Date(s.Year, time.Month(s.Month), s.Day, s.Hour, s.Minute, 0, 0, v.loc)
}

// Normalize validates a candidate slot for booking. On success the returned
// failure is nil and the instant is normalized to the canonical zone.
//
// Weekends are deliberately not rejected here: direct booking filters by hour
// only, while next-slot search skips weekends. The asymmetry comes from the
// booking flow this replaces and is kept until the policy is clarified.
func (v *SlotValidator) Normalize(s Slot) (time.Time, *Result) {
	at := v.Instant(s)

	if !at.After(v.now().In(v.loc)) {
		failure := Fail(KindPastDate, "Cannot book appointments in the past. Please select a future date and time.")
		return time.Time{}, &failure
	}

	if s.Hour < v.startHour || s.Hour >= v.endHour {
		failure := Fail(KindOutsideWorkingHours, fmt.Sprintf(
			"Appointments only available %d:00 - %d:00. Please select a time within business hours.",
			v.startHour, v.endHour))
		return time.Time{}, &failure
	}

	return at, nil
}
