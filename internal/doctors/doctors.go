// Package doctors exposes the read-mostly doctor directory. The records are
// owned by an external directory service; the scheduling core only reads them.
package doctors

import "time"

// Doctor is a medical professional patients can book with.
type Doctor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	CreatedAt time.Time `json:"created_at"`
}
