package schedule

import (
	"context"
	"fmt"
	"time"
)

// NextSlotFinder searches forward for the first free, classifier-approved
// slot. Unlike direct booking it skips weekends and aligns candidates to the
// slot grid; the search gives up after the configured horizon.
type NextSlotFinder struct {
	store       Store
	gate        RiskGate
	validator   *SlotValidator
	slotMinutes int
	horizonDays int
	now         func() time.Time
}

// NewNextSlotFinder builds a finder sharing the ledger's validator.
func NewNextSlotFinder(store Store, gate RiskGate, validator *SlotValidator, slotMinutes, horizonDays int) *NextSlotFinder {
	if store == nil {
		panic("schedule: store cannot be nil")
	}
	if validator == nil {
		panic("schedule: validator cannot be nil")
	}
	if slotMinutes <= 0 {
		slotMinutes = DefaultDurationMinutes
	}
	if horizonDays <= 0 {
		horizonDays = 7
	}
	return &NextSlotFinder{
		store:       store,
		gate:        gate,
		validator:   validator,
		slotMinutes: slotMinutes,
		horizonDays: horizonDays,
		now:         time.Now,
	}
}

// WithClock overrides the clock for tests.
func (f *NextSlotFinder) WithClock(now func() time.Time) *NextSlotFinder {
	f.now = now
	return f
}

// Find returns the earliest free slot within the horizon. The result carries
// the slot as "2006-01-02 15:04" in the canonical zone.
func (f *NextSlotFinder) Find(ctx context.Context) Result {
	loc := f.validator.Location()
	current := f.now().In(loc)
	slot := time.Duration(f.slotMinutes) * time.Minute

	// Align to the next slot boundary.
	candidate := current.Truncate(time.Minute)
	if rem := candidate.Minute() % f.slotMinutes; rem != 0 || candidate.Before(current) {
		candidate = candidate.Add(time.Duration(f.slotMinutes-rem) * time.Minute)
	}
	candidate = f.advanceToWorkingHours(candidate)

	for {
		if candidate.Sub(current) > time.Duration(f.horizonDays)*24*time.Hour {
			return Fail(KindNoAvailability, fmt.Sprintf("No appointments available in the next %d days.", f.horizonDays))
		}

		booked, err := f.store.ExistsActiveSlot(ctx, candidate)
		if err != nil {
			return Fail(KindOperationFailed, fmt.Sprintf("slot search failed: %v", err))
		}
		if !booked {
			optimal := true
			if f.gate != nil {
				optimal, _ = f.gate.Predict(candidate.Format("2006-01-02"), candidate.Format("15:04"), f.slotMinutes)
			}
			if optimal {
				result := Ok(fmt.Sprintf("Next available appointment is at %s", formatInstant(candidate)))
				result.AppointmentTime = formatInstant(candidate)
				return result
			}
		}

		candidate = f.advanceToWorkingHours(candidate.Add(slot))
	}
}

// advanceToWorkingHours moves a candidate forward until it lands inside the
// working window on a weekday: weekends roll to Monday, pre-open times jump
// to opening, post-close times roll to the next working day's opening.
func (f *NextSlotFinder) advanceToWorkingHours(at time.Time) time.Time {
	start, end := f.validator.WorkingHours()
	loc := f.validator.Location()

	for {
		switch {
		case at.Weekday() == time.Saturday || at.Weekday() == time.Sunday:
			at = time.Date(at.Year(), at.Month(), at.Day()+1, start, 0, 0, 0, loc)
		case at.Hour() < start:
			at = time.Date(at.Year(), at.Month(), at.Day(), start, 0, 0, 0, loc)
		case at.Hour() >= end:
			at = time.Date(at.Year(), at.Month(), at.Day()+1, start, 0, 0, 0, loc)
		default:
			return at
		}
	}
}
