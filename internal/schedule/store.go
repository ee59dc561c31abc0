package schedule

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Store errors surfaced to the ledger. Unique-slot violations exist so a
// backing store with real constraints can report the race the conflict check
// cannot close on its own.
var (
	ErrNotFound        = errors.New("schedule: appointment not found")
	ErrDoctorSlotTaken = errors.New("schedule: doctor slot already booked")
	ErrUserSlotTaken   = errors.New("schedule: user already booked at this time")
	ErrTerminalState   = errors.New("schedule: appointment is in a terminal state")
)

// Store owns Appointment persistence. Every method is one transactional scope:
// implementations commit on success and roll back on any error, and queries
// never see tombstoned rows unless stated otherwise.
type Store interface {
	// CreateAppointment inserts a Scheduled appointment and fills in its ID and
	// timestamps. Returns ErrDoctorSlotTaken / ErrUserSlotTaken when a
	// uniqueness constraint catches a concurrent double-booking.
	CreateAppointment(ctx context.Context, appt *Appointment) error

	// GetAppointment loads by id, tombstoned rows included (audit path).
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)

	// FindActiveByUserAndTime returns the unique non-tombstoned appointment for
	// (user, instant), or ErrNotFound.
	FindActiveByUserAndTime(ctx context.Context, userEmail string, at time.Time) (*Appointment, error)

	// ExistsActiveDoctorSlot reports a non-tombstoned booking for (doctor, instant).
	ExistsActiveDoctorSlot(ctx context.Context, doctorName string, at time.Time) (bool, error)

	// ExistsActiveUserSlot reports a non-tombstoned booking for (user, instant),
	// regardless of doctor.
	ExistsActiveUserSlot(ctx context.Context, userEmail string, at time.Time) (bool, error)

	// ExistsActiveUserDoctorBetween reports any non-tombstoned booking for
	// (user, doctor) inside [from, to].
	ExistsActiveUserDoctorBetween(ctx context.Context, userEmail, doctorName string, from, to time.Time) (bool, error)

	// ExistsActiveSlot reports any non-tombstoned booking at the instant, for
	// any doctor. Used by next-slot search.
	ExistsActiveSlot(ctx context.Context, at time.Time) (bool, error)

	// TombstoneAppointment marks the row deleted and cancelled.
	TombstoneAppointment(ctx context.Context, id int64) error

	// CompleteAppointment moves a Scheduled appointment to Completed; returns
	// ErrTerminalState if the row already reached a terminal state.
	CompleteAppointment(ctx context.Context, id int64) error

	// UpdateConfirmationRef attaches a confirmation artifact reference.
	UpdateConfirmationRef(ctx context.Context, id int64, ref string) error

	// ListActive returns non-tombstoned appointments for a user, or all users
	// when userEmail is empty, ordered by scheduled time.
	ListActive(ctx context.Context, userEmail string) ([]Appointment, error)
}

// MemoryStore is an in-process Store for tests and for running without a
// database. The mutex makes each method atomic, so the uniqueness checks in
// CreateAppointment close the check-then-insert race within this store.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*Appointment
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, rows: make(map[int64]*Appointment)}
}

func (s *MemoryStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.IsDeleted || !row.ScheduledTime.Equal(appt.ScheduledTime) {
			continue
		}
		if row.DoctorName == appt.DoctorName {
			return ErrDoctorSlotTaken
		}
		if row.UserEmail == appt.UserEmail {
			return ErrUserSlotTaken
		}
	}

	now := time.Now().UTC()
	clone := *appt
	clone.ID = s.nextID
	clone.Status = StatusScheduled
	clone.IsDeleted = false
	clone.CreatedAt = now
	clone.UpdatedAt = now
	s.nextID++
	s.rows[clone.ID] = &clone

	*appt = clone
	return nil
}

func (s *MemoryStore) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *MemoryStore) FindActiveByUserAndTime(ctx context.Context, userEmail string, at time.Time) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if !row.IsDeleted && row.UserEmail == userEmail && row.ScheduledTime.Equal(at) {
			clone := *row
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ExistsActiveDoctorSlot(ctx context.Context, doctorName string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if !row.IsDeleted && row.DoctorName == doctorName && row.ScheduledTime.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ExistsActiveUserSlot(ctx context.Context, userEmail string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if !row.IsDeleted && row.UserEmail == userEmail && row.ScheduledTime.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ExistsActiveUserDoctorBetween(ctx context.Context, userEmail, doctorName string, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.IsDeleted || row.UserEmail != userEmail || row.DoctorName != doctorName {
			continue
		}
		if !row.ScheduledTime.Before(from) && !row.ScheduledTime.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ExistsActiveSlot(ctx context.Context, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if !row.IsDeleted && row.ScheduledTime.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) TombstoneAppointment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.IsDeleted {
		return ErrNotFound
	}
	row.IsDeleted = true
	row.Status = StatusCancelled
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) CompleteAppointment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	if row.Terminal() {
		return ErrTerminalState
	}
	row.Status = StatusCompleted
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateConfirmationRef(ctx context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	row.ConfirmationRef = ref
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListActive(ctx context.Context, userEmail string) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Appointment{}
	for _, row := range s.rows {
		if row.IsDeleted {
			continue
		}
		if userEmail != "" && row.UserEmail != userEmail {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(out[j].ScheduledTime) })
	return out, nil
}
