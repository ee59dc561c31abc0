package doctors

import (
	"context"
	"database/sql"
	"strings"
	"sync"
)

// Directory resolves doctors by name. The ledger only needs Exists; the HTTP
// surface also lists.
type Directory interface {
	Exists(ctx context.Context, name string) (bool, error)
	GetByName(ctx context.Context, name string) (*Doctor, error)
	List(ctx context.Context, specialty string) ([]Doctor, error)
}

// Repository is the SQL-backed directory.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a directory over an open database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Exists(ctx context.Context, name string) (bool, error) {
	var found bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE name = $1)`, name).Scan(&found)
	return found, err
}

func (r *Repository) GetByName(ctx context.Context, name string) (*Doctor, error) {
	var d Doctor
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, specialty, created_at FROM doctors WHERE name = $1`, name).
		Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) List(ctx context.Context, specialty string) ([]Doctor, error) {
	query := `SELECT id, name, specialty, created_at FROM doctors`
	args := []any{}
	if specialty != "" {
		query += ` WHERE specialty = $1`
		args = append(args, specialty)
	}
	query += ` ORDER BY specialty, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if out == nil {
		out = []Doctor{}
	}
	return out, rows.Err()
}

// MemoryDirectory is an in-process Directory for tests and databaseless runs.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byName  map[string]Doctor
	ordered []string
}

// NewMemoryDirectory seeds an in-memory directory.
func NewMemoryDirectory(seed ...Doctor) *MemoryDirectory {
	d := &MemoryDirectory{byName: make(map[string]Doctor)}
	for i, doc := range seed {
		if doc.ID == 0 {
			doc.ID = int64(i + 1)
		}
		d.byName[doc.Name] = doc
		d.ordered = append(d.ordered, doc.Name)
	}
	return d
}

func (d *MemoryDirectory) Exists(ctx context.Context, name string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byName[name]
	return ok, nil
}

func (d *MemoryDirectory) GetByName(ctx context.Context, name string) (*Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if doc, ok := d.byName[name]; ok {
		clone := doc
		return &clone, nil
	}
	return nil, nil
}

func (d *MemoryDirectory) List(ctx context.Context, specialty string) ([]Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := []Doctor{}
	for _, name := range d.ordered {
		doc := d.byName[name]
		if specialty == "" || strings.EqualFold(doc.Specialty, specialty) {
			out = append(out, doc)
		}
	}
	return out, nil
}
