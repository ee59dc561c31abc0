package visitors

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores visitors via pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("visitors: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, v *Visitor) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO visitors (name, purpose, company, check_in_time, image_ref)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''))
		RETURNING id`,
		v.Name, v.Purpose, v.Company, v.CheckInTime, v.ImageRef).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("visitors: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Visitor, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, purpose, COALESCE(company, ''), check_in_time, COALESCE(image_ref, '')
		FROM visitors ORDER BY check_in_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("visitors: list: %w", err)
	}
	defer rows.Close()

	out := []Visitor{}
	for rows.Next() {
		var v Visitor
		if err := rows.Scan(&v.ID, &v.Name, &v.Purpose, &v.Company, &v.CheckInTime, &v.ImageRef); err != nil {
			return nil, fmt.Errorf("visitors: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MemoryRepository is the in-process Repository used in tests and
// databaseless runs.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   []Visitor
}

// NewMemoryRepository builds an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) Create(ctx context.Context, v *Visitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = r.nextID
	r.nextID++
	r.rows = append(r.rows, *v)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, limit int) ([]Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.rows) {
		limit = len(r.rows)
	}
	out := make([]Visitor, 0, limit)
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.rows[i])
	}
	return out, nil
}
