package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"shortsbot/config"
)

// verticalFilter crops the source square, scales it to 1080x1080 and pads it
// onto a 1080x1920 black canvas, the fixed shorts aspect.
const verticalFilter = "crop=ih:ih,scale=1080:1080,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:color=black"

// out_time_ms in the ffmpeg -progress stream is microseconds of output.
var outTimeRe = regexp.MustCompile(`out_time_ms=(\d+)`)

// Splitter cuts fixed-duration vertical clips out of source videos.
type Splitter struct {
	folders Folders
	video   config.VideoConfig
	log     *slog.Logger
}

// NewSplitter creates a new Splitter.
func NewSplitter(folders Folders, video config.VideoConfig, logger *slog.Logger) *Splitter {
	return &Splitter{folders: folders, video: video, log: logger.With("component", "split")}
}

// Split produces clip clipNumber (1-based) of the named source video and
// returns the clip path. onProgress, if non-nil, receives percentages in
// [0,100] as ffmpeg advances. If the clip file already exists the call
// short-circuits and reports 100%, so re-entry after a crash is free.
func (s *Splitter) Split(ctx context.Context, sourceName string, clipNumber int, onProgress func(float64)) (string, error) {
	outPath := filepath.Join(s.folders.ProcessedClips, ClipFilename(sourceName, clipNumber))
	if _, err := os.Stat(outPath); err == nil {
		s.log.Info("clip already exists, skipping split", "clip", filepath.Base(outPath))
		if onProgress != nil {
			onProgress(100)
		}
		return outPath, nil
	}

	sourcePath := filepath.Join(s.folders.InputVideos, sourceName)
	start := ClipStart(clipNumber, s.video.ClipDurationSeconds, s.video.ClipOverlapSeconds)
	duration := float64(s.video.ClipDurationSeconds)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-progress", "pipe:1",
		"-nostats",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", sourcePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", verticalFilter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-c:a", "copy",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if pct, ok := progressPercent(scanner.Text(), duration); ok && onProgress != nil {
			onProgress(pct)
		}
	}

	if err := cmd.Wait(); err != nil {
		os.Remove(outPath)
		s.log.Error("ffmpeg split failed", "source", sourceName, "clip", clipNumber, "stderr", stderr.String())
		return "", fmt.Errorf("ffmpeg split clip %d of %s: %w", clipNumber, sourceName, err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return outPath, nil
}

// progressPercent extracts a completion percentage from one line of the
// ffmpeg -progress stream.
func progressPercent(line string, clipSeconds float64) (float64, bool) {
	m := outTimeRe.FindStringSubmatch(line)
	if m == nil || clipSeconds <= 0 {
		return 0, false
	}
	processedUs, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	pct := float64(processedUs) / (clipSeconds * 1_000_000) * 100
	if pct > 100 {
		pct = 100
	}
	return pct, true
}
