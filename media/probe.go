package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Duration returns the length of a video in seconds, read with ffprobe.
func Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unparseable duration %q: %w", path, strings.TrimSpace(string(out)), err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe %s: non-positive duration %f", path, seconds)
	}
	return seconds, nil
}

// TotalClips computes how many clips a source of the given duration yields.
// Consecutive clips overlap by overlapSec, so each clip advances the cursor
// by clipSec-overlapSec. Always at least 1, even for very short sources.
func TotalClips(durationSec float64, clipSec, overlapSec int) int {
	step := clipSec - overlapSec
	if step <= 0 {
		return 1
	}
	n := int(durationSec) / step
	if n < 1 {
		return 1
	}
	return n
}

// ClipStart returns the start offset in seconds for the 1-based clip number.
func ClipStart(clipNumber, clipSec, overlapSec int) float64 {
	return float64((clipNumber - 1) * (clipSec - overlapSec))
}
