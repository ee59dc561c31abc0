package classifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "appointment_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func trainedClassifier(t *testing.T, contents string) *AvailabilityClassifier {
	t.Helper()
	c := New(writeDataFile(t, contents), nil)
	require.Eventually(t, c.Ready, 2*time.Second, 10*time.Millisecond)
	return c
}

func TestPredictFailsOpenWhenUntrained(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "missing.csv"), nil)

	available, msg := c.Predict("2026-03-03", "10:00", 30)
	assert.True(t, available)
	assert.Equal(t, "Model not trained yet, assuming available", msg)
}

func TestPredictHighRiskSlot(t *testing.T) {
	// Tuesdays at 10 were mostly cancelled; Tuesdays at 14 were kept.
	c := trainedClassifier(t, `date,time,duration,status
2026-02-03,10:00,30,cancelled
2026-02-10,10:00,30,cancelled
2026-02-17,10:00,30,confirmed
2026-02-03,14:00,30,confirmed
2026-02-10,14:00,30,confirmed
`)

	available, msg := c.Predict("2026-03-03", "10:00", 30)
	assert.False(t, available)
	assert.Contains(t, msg, "high risk of cancellation")

	available, _ = c.Predict("2026-03-03", "14:00", 30)
	assert.True(t, available)
}

func TestPredictUnseenSlotAssumesAvailable(t *testing.T) {
	c := trainedClassifier(t, `date,time,duration,status
2026-02-03,10:00,30,confirmed
`)

	available, msg := c.Predict("2026-03-04", "16:00", 30)
	assert.True(t, available)
	assert.Contains(t, msg, "No history")
}

func TestPredictFailsOpenOnBadInput(t *testing.T) {
	c := trainedClassifier(t, `date,time,duration,status
2026-02-03,10:00,30,confirmed
`)

	available, msg := c.Predict("not-a-date", "10:00", 30)
	assert.True(t, available)
	assert.Contains(t, msg, "Error in prediction")
}

func TestTrainAcceptsDayFirstDates(t *testing.T) {
	// 03/02/2026 is Tuesday Feb 3 in the day-first export layout.
	c := trainedClassifier(t, `date,time,duration,status
03/02/2026,10:00,30,cancelled
10/02/2026,10:00,30,cancelled
`)

	available, _ := c.Predict("2026-03-03", "10:00", 30)
	assert.False(t, available)
}

func TestTrainSkipsMalformedRows(t *testing.T) {
	c := trainedClassifier(t, `date,time,duration,status
garbage,10:00,30,cancelled
2026-02-03,bad,30,cancelled
2026-02-03,10:00,30,confirmed
`)

	available, _ := c.Predict("2026-03-03", "10:00", 30)
	assert.True(t, available)
}
