// Package classifier implements the availability risk gate: a small model
// trained from historical appointment outcomes that flags slots with a high
// cancellation risk. The gate is advisory and fails open — when the model is
// missing, still training, or errors during inference, every slot is reported
// as available.
package classifier

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"receptionist/pkg/logging"
)

// OutcomeConfirmed is the historical label counted as a good outcome; every
// other label (cancelled, no-show) counts against the slot.
const OutcomeConfirmed = "confirmed"

type featureKey struct {
	weekday int // 0=Mon .. 6=Sun
	hour    int
}

type outcomeCount struct {
	confirmed int
	other     int
}

// AvailabilityClassifier predicts whether a (weekday, hour, duration) slot is
// likely to be kept. Training runs once, asynchronously, at construction;
// Predict is safe to call concurrently with and before training completion.
type AvailabilityClassifier struct {
	mu      sync.RWMutex
	trained bool
	counts  map[featureKey]outcomeCount

	dataFile string
	logger   *logging.Logger
}

// New starts background training from the CSV at dataFile. A missing file is
// not an error: the classifier simply stays untrained and fails open.
func New(dataFile string, logger *logging.Logger) *AvailabilityClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	c := &AvailabilityClassifier{
		counts:   make(map[featureKey]outcomeCount),
		dataFile: dataFile,
		logger:   logger,
	}
	go c.train()
	return c
}

// Ready reports whether training has completed successfully.
func (c *AvailabilityClassifier) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trained
}

// Predict returns (isOptimal, message) for a candidate slot. date is
// YYYY-MM-DD, clock is HH:MM. Any failure yields (true, message): the gate
// must never make booking unusable because of a model fault.
func (c *AvailabilityClassifier) Predict(date, clock string, durationMinutes int) (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.trained {
		return true, "Model not trained yet, assuming available"
	}

	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return true, fmt.Sprintf("Error in prediction: %v", err)
	}
	at, err := time.Parse("15:04", clock)
	if err != nil {
		return true, fmt.Sprintf("Error in prediction: %v", err)
	}

	key := featureKey{weekday: mondayWeekday(day.Weekday()), hour: at.Hour()}
	count, seen := c.counts[key]
	if !seen || count.confirmed+count.other == 0 {
		return true, "No history for this slot, assuming available"
	}

	if count.other > count.confirmed {
		return false, "This time slot has a high risk of cancellation based on historical data"
	}
	return true, "Slot appears to be optimal"
}

// train loads the historical CSV (columns: date, time, duration, status) and
// builds the per-slot outcome counts.
func (c *AvailabilityClassifier) train() {
	file, err := os.Open(c.dataFile)
	if err != nil {
		c.logger.Warn("classifier data file unavailable, predictions default to available",
			"file", c.dataFile, "error", err)
		return
	}
	defer file.Close()

	counts, samples, err := readSamples(file)
	if err != nil {
		c.logger.Error("classifier training failed", "error", err)
		return
	}

	c.mu.Lock()
	c.counts = counts
	c.trained = true
	c.mu.Unlock()

	c.logger.Info("availability classifier trained", "samples", samples, "slots", len(counts))
}

func readSamples(r io.Reader) (map[featureKey]outcomeCount, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("classifier: read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"date", "time", "status"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("classifier: missing column %q", required)
		}
	}

	counts := make(map[featureKey]outcomeCount)
	samples := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("classifier: read record: %w", err)
		}

		day, err := parseSampleDate(record[cols["date"]])
		if err != nil {
			continue
		}
		at, err := time.Parse("15:04", record[cols["time"]])
		if err != nil {
			continue
		}

		key := featureKey{weekday: mondayWeekday(day.Weekday()), hour: at.Hour()}
		count := counts[key]
		if record[cols["status"]] == OutcomeConfirmed {
			count.confirmed++
		} else {
			count.other++
		}
		counts[key] = count
		samples++
	}
	return counts, samples, nil
}

// parseSampleDate accepts the day-first layout of the historical export as
// well as ISO dates.
func parseSampleDate(value string) (time.Time, error) {
	for _, layout := range []string{"02/01/2006", "2006-01-02"} {
		if day, err := time.Parse(layout, value); err == nil {
			return day, nil
		}
	}
	return time.Time{}, fmt.Errorf("classifier: unparseable date %q", value)
}

// mondayWeekday maps Go's Sunday-first weekday to the 0=Monday convention of
// the feature vector.
func mondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}
