// Package subtitles generates word-level subtitles with Whisper and burns
// them into clips with ffmpeg.
package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"shortsbot/config"
)

// Generator handles subtitle generation and burn-in for one clip at a time.
type Generator struct {
	cfg config.SubtitlesConfig
	log *slog.Logger
}

// New creates a subtitle Generator.
func New(cfg config.SubtitlesConfig, logger *slog.Logger) *Generator {
	return &Generator{cfg: cfg, log: logger.With("component", "subtitles")}
}

// Enabled reports whether subtitle generation is turned on in config.
func (g *Generator) Enabled() bool { return g.cfg.Enabled }

// Generate transcribes the clip with Whisper and returns the path of the
// produced SRT file, written next to the clip.
func (g *Generator) Generate(ctx context.Context, clipPath string) (string, error) {
	outputDir := filepath.Dir(clipPath)

	cmd := exec.CommandContext(ctx,
		"whisper",
		clipPath,
		"--model", g.cfg.WhisperModel,
		"--output_format", "srt",
		"--output_dir", outputDir,
		"--language", "en",
		"--word_timestamps", "True",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		g.log.Error("whisper transcription failed", "clip", filepath.Base(clipPath), "output", string(out))
		return "", fmt.Errorf("whisper %s: %w", filepath.Base(clipPath), err)
	}

	// Whisper writes <clip stem>.srt into the output dir.
	stem := strings.TrimSuffix(filepath.Base(clipPath), filepath.Ext(clipPath))
	srtPath := filepath.Join(outputDir, stem+".srt")
	if _, err := os.Stat(srtPath); err != nil {
		return "", fmt.Errorf("whisper produced no SRT for %s: %w", filepath.Base(clipPath), err)
	}
	return srtPath, nil
}

// Burn composites the SRT onto the clip and returns the path of the
// subtitled copy ("<stem>_subtitled.mp4"). The original file is untouched.
func (g *Generator) Burn(ctx context.Context, clipPath, srtPath string) (string, error) {
	outPath := strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + "_subtitled.mp4"

	filter := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,PrimaryColour=%s,OutlineColour=%s,Outline=%.1f,Alignment=2,MarginV=%d'",
		escapeSubtitlePath(srtPath),
		g.cfg.Font,
		g.cfg.FontSize,
		assColor(g.cfg.Color, "&H00FFFFFF"),
		assColor(g.cfg.StrokeColor, "&H00000000"),
		g.cfg.StrokeWidth,
		g.cfg.MarginBottom,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", clipPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-c:a", "copy",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		g.log.Error("subtitle burn failed", "clip", filepath.Base(clipPath), "output", string(out))
		return "", fmt.Errorf("ffmpeg subtitle burn %s: %w", filepath.Base(clipPath), err)
	}
	return outPath, nil
}

// assColor maps a config color name to libass BGR notation.
func assColor(name, fallback string) string {
	switch strings.ToLower(name) {
	case "white":
		return "&H00FFFFFF"
	case "black":
		return "&H00000000"
	case "yellow":
		return "&H0000FFFF"
	case "":
		return fallback
	}
	return fallback
}

// escapeSubtitlePath escapes the characters the ffmpeg subtitles filter
// treats specially.
func escapeSubtitlePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	return path
}
