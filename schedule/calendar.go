// Package schedule computes publish slots from a recurring weekly template.
package schedule

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoSlot means no publish slot exists within the search horizon. This is a
// configuration problem (empty or exhausted template), not a transient fault.
var ErrNoSlot = errors.New("schedule: no publish slot available within 365 days")

// Slot is a time of day in UTC.
type Slot struct {
	Hour   int
	Minute int
}

// Template maps a weekday to its ordered publish slots.
type Template map[time.Weekday][]Slot

type templateFile struct {
	// Weekdays are keyed 0=Monday .. 6=Sunday in schedule.yaml.
	Schedule map[int][]string `yaml:"schedule"`
}

// LoadTemplate reads schedule.yaml. File keys use 0=Monday through 6=Sunday;
// they are converted to time.Weekday (0=Sunday) here so the rest of the code
// only ever sees Go's convention.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule template: %w", err)
	}
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schedule template: %w", err)
	}
	if len(file.Schedule) == 0 {
		return nil, fmt.Errorf("schedule template %s has no entries", path)
	}

	tmpl := Template{}
	for day, times := range file.Schedule {
		if day < 0 || day > 6 {
			return nil, fmt.Errorf("schedule template: weekday %d out of range (0=Monday .. 6=Sunday)", day)
		}
		weekday := time.Weekday((day + 1) % 7)
		for _, ts := range times {
			slot, err := parseSlot(ts)
			if err != nil {
				return nil, fmt.Errorf("schedule template: weekday %d: %w", day, err)
			}
			tmpl[weekday] = append(tmpl[weekday], slot)
		}
	}
	return tmpl, nil
}

func parseSlot(s string) (Slot, error) {
	var slot Slot
	if _, err := fmt.Sscanf(s, "%d:%d", &slot.Hour, &slot.Minute); err != nil {
		return Slot{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if slot.Hour < 0 || slot.Hour > 23 || slot.Minute < 0 || slot.Minute > 59 {
		return Slot{}, fmt.Errorf("invalid time %q", s)
	}
	return slot, nil
}

// NextSlot returns the first template slot strictly after max(now, watermark).
// A zero watermark means none has been assigned yet. Scanning is capped at
// 365 days; running past the cap returns ErrNoSlot.
func NextSlot(tmpl Template, now, watermark time.Time) (time.Time, error) {
	if len(tmpl) == 0 {
		return time.Time{}, ErrNoSlot
	}
	start := now.UTC()
	if watermark.After(start) {
		start = watermark.UTC()
	}
	for i := 0; i < 365; i++ {
		day := start.AddDate(0, 0, i)
		for _, slot := range tmpl[day.Weekday()] {
			candidate := time.Date(day.Year(), day.Month(), day.Day(), slot.Hour, slot.Minute, 0, 0, time.UTC)
			if candidate.After(start) {
				return candidate, nil
			}
		}
	}
	return time.Time{}, ErrNoSlot
}
