package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Partial unique index names from migrations. A 23505 on one of these means a
// concurrent booking won the race between the conflict check and the insert.
const (
	doctorSlotIndex = "appointments_doctor_slot_active_idx"
	userSlotIndex   = "appointments_user_slot_active_idx"
)

// PostgresStore persists appointments via pgx. Every method runs inside one
// transaction scope: begin, work, commit, with rollback deferred so the scope
// is released on every exit path. Scheduled times are stored as naive
// timestamps in the canonical zone.
type PostgresStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool, loc *time.Location) *PostgresStore {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{pool: pool, loc: loc}
}

func (s *PostgresStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("schedule: begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (user_email, doctor_name, reason, scheduled_time, duration_minutes, status, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, created_at, updated_at`,
		appt.UserEmail, appt.DoctorName, appt.Reason, s.toNaive(appt.ScheduledTime), appt.DurationMinutes, StatusScheduled,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case doctorSlotIndex:
				return ErrDoctorSlotTaken
			case userSlotIndex:
				return ErrUserSlotTaken
			}
		}
		return fmt.Errorf("schedule: insert appointment: %w", err)
	}
	appt.Status = StatusScheduled
	appt.IsDeleted = false

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("schedule: commit insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, selectColumns+` FROM appointments WHERE id = $1`, id)
	return s.scanAppointment(row)
}

func (s *PostgresStore) FindActiveByUserAndTime(ctx context.Context, userEmail string, at time.Time) (*Appointment, error) {
	row := s.pool.QueryRow(ctx, selectColumns+`
		FROM appointments
		WHERE user_email = $1 AND scheduled_time = $2 AND NOT is_deleted`,
		userEmail, s.toNaive(at))
	return s.scanAppointment(row)
}

func (s *PostgresStore) ExistsActiveDoctorSlot(ctx context.Context, doctorName string, at time.Time) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments
		WHERE doctor_name = $1 AND scheduled_time = $2 AND NOT is_deleted)`,
		doctorName, s.toNaive(at))
}

func (s *PostgresStore) ExistsActiveUserSlot(ctx context.Context, userEmail string, at time.Time) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments
		WHERE user_email = $1 AND scheduled_time = $2 AND NOT is_deleted)`,
		userEmail, s.toNaive(at))
}

func (s *PostgresStore) ExistsActiveUserDoctorBetween(ctx context.Context, userEmail, doctorName string, from, to time.Time) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments
		WHERE user_email = $1 AND doctor_name = $2
		  AND scheduled_time BETWEEN $3 AND $4 AND NOT is_deleted)`,
		userEmail, doctorName, s.toNaive(from), s.toNaive(to))
}

func (s *PostgresStore) ExistsActiveSlot(ctx context.Context, at time.Time) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments
		WHERE scheduled_time = $1 AND NOT is_deleted)`,
		s.toNaive(at))
}

func (s *PostgresStore) TombstoneAppointment(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("schedule: begin tombstone: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET is_deleted = TRUE, status = $2, updated_at = now()
		WHERE id = $1 AND NOT is_deleted`,
		id, StatusCancelled)
	if err != nil {
		return fmt.Errorf("schedule: tombstone appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("schedule: commit tombstone: %w", err)
	}
	return nil
}

func (s *PostgresStore) CompleteAppointment(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("schedule: begin complete: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	var deleted bool
	err = tx.QueryRow(ctx, `SELECT status, is_deleted FROM appointments WHERE id = $1 FOR UPDATE`, id).
		Scan(&status, &deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("schedule: load for complete: %w", err)
	}
	if deleted || status == StatusCompleted || status == StatusCancelled {
		return ErrTerminalState
	}

	if _, err := tx.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`, id, StatusCompleted); err != nil {
		return fmt.Errorf("schedule: complete appointment: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("schedule: commit complete: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateConfirmationRef(ctx context.Context, id int64, ref string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments SET confirmation_ref = $2, updated_at = now() WHERE id = $1`, id, ref)
	if err != nil {
		return fmt.Errorf("schedule: update confirmation ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context, userEmail string) ([]Appointment, error) {
	query := selectColumns + ` FROM appointments WHERE NOT is_deleted`
	args := []any{}
	if userEmail != "" {
		query += ` AND user_email = $1`
		args = append(args, userEmail)
	}
	query += ` ORDER BY scheduled_time ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("schedule: list appointments: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		appt, err := s.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

const selectColumns = `
	SELECT id, user_email, doctor_name, reason, scheduled_time, duration_minutes,
	       status, is_deleted, COALESCE(confirmation_ref, ''), created_at, updated_at`

func (s *PostgresStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("schedule: existence query: %w", err)
	}
	return found, nil
}

func (s *PostgresStore) scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	err := row.Scan(&appt.ID, &appt.UserEmail, &appt.DoctorName, &appt.Reason, &appt.ScheduledTime,
		&appt.DurationMinutes, &appt.Status, &appt.IsDeleted, &appt.ConfirmationRef,
		&appt.CreatedAt, &appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: scan appointment: %w", err)
	}
	// timestamp-without-tz columns come back in UTC wall clock; rebind to the
	// canonical zone so comparisons against validator instants stay exact.
	appt.ScheduledTime = s.fromNaive(appt.ScheduledTime)
	return &appt, nil
}

// toNaive strips the zone by re-reading the canonical wall clock as UTC, the
// representation pgx writes into timestamp-without-tz columns.
func (s *PostgresStore) toNaive(at time.Time) time.Time {
	local := at.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
}

func (s *PostgresStore) fromNaive(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), 0, s.loc)
}
