package schedule

import (
	"context"
	"fmt"
	"time"
)

// ConflictDetector checks a candidate slot against existing non-tombstoned
// bookings along three independent dimensions, in a fixed order so error
// precedence is deterministic:
//
//  1. doctor already booked at the instant        -> SLOT_BOOKED
//  2. user already booked at the instant          -> USER_CONFLICT
//  3. user already sees this doctor that same day -> DUPLICATE_APPOINTMENT
//
// Slot-level conflicts outrank the same-day rule: the first two are
// unconditionally illegal, the third is business policy.
type ConflictDetector struct {
	store Store
}

// NewConflictDetector builds a detector over the appointment store.
func NewConflictDetector(store Store) *ConflictDetector {
	if store == nil {
		panic("schedule: store cannot be nil")
	}
	return &ConflictDetector{store: store}
}

// Check returns the first conflict found as a failure Result, nil when the
// slot is free, and a non-nil error only on store faults.
func (d *ConflictDetector) Check(ctx context.Context, doctorName, userEmail string, at time.Time) (*Result, error) {
	booked, err := d.store.ExistsActiveDoctorSlot(ctx, doctorName, at)
	if err != nil {
		return nil, fmt.Errorf("schedule: doctor slot lookup: %w", err)
	}
	if booked {
		failure := Fail(KindSlotBooked, fmt.Sprintf(
			"Appointment at %s is already booked. Please choose another time.", formatInstant(at)))
		return &failure, nil
	}

	taken, err := d.store.ExistsActiveUserSlot(ctx, userEmail, at)
	if err != nil {
		return nil, fmt.Errorf("schedule: user slot lookup: %w", err)
	}
	if taken {
		failure := Fail(KindUserConflict, fmt.Sprintf(
			"You already have an appointment at %s. Cannot book multiple appointments at the same time.", formatInstant(at)))
		return &failure, nil
	}

	// Midnight-to-midnight in the slot's zone; DST transition days are not
	// 24 hours long, so the end is computed from the next calendar day.
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	dayEnd := time.Date(at.Year(), at.Month(), at.Day()+1, 0, 0, 0, 0, at.Location()).Add(-time.Nanosecond)
	duplicate, err := d.store.ExistsActiveUserDoctorBetween(ctx, userEmail, doctorName, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("schedule: same-day lookup: %w", err)
	}
	if duplicate {
		failure := Fail(KindDuplicateWithDoctor, fmt.Sprintf(
			"You already have an appointment with %s on %s. Cannot book multiple appointments with the same doctor on the same day.",
			doctorName, at.Format("2006-01-02")))
		return &failure, nil
	}

	return nil, nil
}

func formatInstant(at time.Time) string {
	return at.Format("2006-01-02 15:04")
}
