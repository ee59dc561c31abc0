// Package visitors handles walk-in visitor check-in, including optional face
// image capture with validation and blob storage.
package visitors

import (
	"context"
	"time"
)

// Visitor is a check-in record.
type Visitor struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Purpose     string    `json:"purpose"`
	Company     string    `json:"company,omitempty"`
	CheckInTime time.Time `json:"check_in_time"`
	ImageRef    string    `json:"image_ref,omitempty"`
}

// Repository persists visitor records.
type Repository interface {
	Create(ctx context.Context, v *Visitor) error
	List(ctx context.Context, limit int) ([]Visitor, error)
}
