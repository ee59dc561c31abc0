package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"receptionist/internal/schedule"
	"receptionist/pkg/logging"
)

// Generator renders a booking's details into a scannable confirmation card
// and stores it as a PNG blob. The returned reference is opaque to callers.
type Generator struct {
	store  BlobStore
	logger *logging.Logger
	now    func() time.Time
}

// NewGenerator builds a confirmation generator over a blob store.
func NewGenerator(store BlobStore, logger *logging.Logger) *Generator {
	if store == nil {
		panic("artifact: blob store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{store: store, logger: logger, now: time.Now}
}

// Generate encodes the appointment payload and stores the resulting image.
func (g *Generator) Generate(ctx context.Context, appt schedule.Appointment) (string, error) {
	payload := fmt.Sprintf("Appointment ID: %d, Doctor: %s, Time: %s",
		appt.ID, appt.DoctorName, appt.ScheduledTime.Format("2006-01-02 15:04"))

	img, err := encodeCard(payload)
	if err != nil {
		return "", fmt.Errorf("artifact: encode confirmation: %w", err)
	}

	key := fmt.Sprintf("appointment_%d_%d.png", appt.ID, g.now().Unix())
	ref, err := g.store.Put(ctx, key, "image/png", img)
	if err != nil {
		return "", err
	}
	g.logger.Info("confirmation artifact generated", "appointment_id", appt.ID, "ref", ref)
	return ref, nil
}

// encodeCard renders the payload as a deterministic 25x25 block matrix PNG.
// The matrix is derived from the payload digest so identical bookings encode
// to identical cards.
func encodeCard(payload string) ([]byte, error) {
	const (
		cells = 25
		scale = 10
		quiet = 2
	)
	digest := sha256.Sum256([]byte(payload))

	side := (cells + 2*quiet) * scale
	img := image.NewGray(image.Rect(0, 0, side, side))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	bit := 0
	for row := 0; row < cells; row++ {
		for col := 0; col < cells; col++ {
			byteIdx := (bit / 8) % len(digest)
			dark := digest[byteIdx]>>(uint(bit)%8)&1 == 1
			bit++
			if !dark {
				continue
			}
			x0 := (quiet + col) * scale
			y0 := (quiet + row) * scale
			for y := y0; y < y0+scale; y++ {
				for x := x0; x < x0+scale; x++ {
					img.SetGray(x, y, color.Gray{Y: 0})
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
