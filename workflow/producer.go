package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// clipSplitter and subtitler are the slices of media and subtitles the
// producer needs; tests substitute fakes.
type clipSplitter interface {
	Split(ctx context.Context, sourceName string, clipNumber int, onProgress func(float64)) (string, error)
}

type subtitler interface {
	Enabled() bool
	Generate(ctx context.Context, clipPath string) (string, error)
	Burn(ctx context.Context, clipPath, srtPath string) (string, error)
}

// Producer turns (source, clip number) into one finished clip file,
// optionally with burned-in subtitles.
type Producer struct {
	splitter clipSplitter
	subs     subtitler
	notifier Notifier
	log      *slog.Logger
}

// NewProducer creates a clip Producer.
func NewProducer(splitter clipSplitter, subs subtitler, notifier Notifier, logger *slog.Logger) *Producer {
	return &Producer{splitter: splitter, subs: subs, notifier: notifier, log: logger.With("component", "producer")}
}

// Produce cuts clip clipNumber from the source video and returns the path of
// the file to upload. When subtitles are enabled it transcribes and burns
// them in; if either subtitle step fails the unsubtitled clip is returned
// rather than discarding the segmentation work.
func (p *Producer) Produce(ctx context.Context, sourceName string, clipNumber int) (string, error) {
	msg := p.notifier.NotifyProgress(fmt.Sprintf("⏳ Preparing clip #%d...", clipNumber))

	clipPath, err := p.splitter.Split(ctx, sourceName, clipNumber, func(pct float64) {
		msg.Update(fmt.Sprintf("⚙️ Creating clip #%d: `%s`", clipNumber, progressBar(pct)))
	})
	if err != nil {
		msg.Update(fmt.Sprintf("❌ Error creating clip #%d.", clipNumber))
		return "", err
	}

	if !p.subs.Enabled() {
		return clipPath, nil
	}

	msg.Update(fmt.Sprintf("🎤 Generating subtitles for clip #%d...", clipNumber))
	srtPath, err := p.subs.Generate(ctx, clipPath)
	if err != nil {
		p.log.Warn("subtitle generation failed, keeping unsubtitled clip", "clip", filepath.Base(clipPath), "error", err)
		msg.Update(fmt.Sprintf("⚠️ Could not generate subtitles for clip #%d.", clipNumber))
		return clipPath, nil
	}

	msg.Update(fmt.Sprintf("🔥 Burning subtitles into clip #%d...", clipNumber))
	subtitled, err := p.subs.Burn(ctx, clipPath, srtPath)
	os.Remove(srtPath)
	if err != nil {
		p.log.Warn("subtitle burn failed, keeping unsubtitled clip", "clip", filepath.Base(clipPath), "error", err)
		msg.Update(fmt.Sprintf("❌ Error burning subtitles; clip #%d will be unsubtitled.", clipNumber))
		return clipPath, nil
	}

	os.Remove(clipPath)
	msg.Update(fmt.Sprintf("✅ Subtitles added to clip #%d.", clipNumber))
	return subtitled, nil
}

// progressBar renders a fixed-width text bar for a percentage in [0,100].
func progressBar(pct float64) string {
	const width = 20
	filled := int(width * pct / 100)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("─", width-filled)
	return fmt.Sprintf("[%s] %.1f%%", bar, pct)
}
