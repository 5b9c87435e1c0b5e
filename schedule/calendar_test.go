package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadTemplate(t *testing.T) {
	path := writeTemplate(t, `
schedule:
  0: ["09:00", "17:30"]
  4: ["12:00"]
`)
	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)

	// File key 0 is Monday, 4 is Friday.
	assert.Equal(t, []Slot{{9, 0}, {17, 30}}, tmpl[time.Monday])
	assert.Equal(t, []Slot{{12, 0}}, tmpl[time.Friday])
}

func TestLoadTemplate_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", "schedule: {}"},
		{"bad weekday", "schedule:\n  7: [\"09:00\"]"},
		{"bad time", "schedule:\n  0: [\"25:00\"]"},
		{"not a time", "schedule:\n  0: [\"morning\"]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTemplate(writeTemplate(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplate_MissingFile(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNextSlot_AfterWatermark(t *testing.T) {
	// Monday and Wednesday at 09:00.
	tmpl := Template{
		time.Monday:    {{9, 0}},
		time.Wednesday: {{9, 0}},
	}

	// 2026-08-03 is a Monday.
	monday := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	now := monday.Add(2 * time.Hour)

	got, err := NextSlot(tmpl, now, monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 5, 9, 0, 0, 0, time.UTC), got, "expected the following Wednesday 09:00")
}

func TestNextSlot_StrictlyAfterNowAndWatermark(t *testing.T) {
	tmpl := Template{time.Monday: {{9, 0}}}
	monday := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	// now == the slot itself: must skip to next week.
	got, err := NextSlot(tmpl, monday, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, monday.AddDate(0, 0, 7), got)

	// Watermark ahead of now: slot must be after the watermark.
	watermark := monday.AddDate(0, 0, 14)
	got, err = NextSlot(tmpl, monday, watermark)
	require.NoError(t, err)
	assert.True(t, got.After(watermark))
	assert.True(t, got.After(monday))
}

func TestNextSlot_SameDayLaterSlot(t *testing.T) {
	tmpl := Template{time.Monday: {{9, 0}, {18, 0}}}
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC) // Monday 10:00

	got, err := NextSlot(tmpl, now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 3, 18, 0, 0, 0, time.UTC), got)
}

func TestNextSlot_EmptyTemplate(t *testing.T) {
	_, err := NextSlot(Template{}, time.Now(), time.Time{})
	assert.ErrorIs(t, err, ErrNoSlot)
}

func TestNextSlot_ZeroWatermarkFallsBackToNow(t *testing.T) {
	tmpl := Template{time.Tuesday: {{8, 0}}}
	now := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC) // Monday

	got, err := NextSlot(tmpl, now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 4, 8, 0, 0, 0, time.UTC), got)
}
