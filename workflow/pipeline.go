package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortsbot/config"
	"shortsbot/media"
	"shortsbot/metadata"
	"shortsbot/progress"
	"shortsbot/schedule"
)

// Pipeline uploads produced clips: it reserves a publish slot, performs the
// upload with bounded retries, attaches the clip to its source playlist and
// records the outcome durably.
type Pipeline struct {
	cfg      *config.Config
	store    *progress.Store
	folders  media.Folders
	uploader ClipUploader
	meta     *metadata.Builder
	notifier Notifier
	log      *slog.Logger

	// loadTemplate re-reads schedule.yaml on every upload so the operator can
	// adjust the timetable without restarting the bot.
	loadTemplate func() (schedule.Template, error)
	now          func() time.Time
}

// NewPipeline wires an upload Pipeline.
func NewPipeline(cfg *config.Config, store *progress.Store, folders media.Folders, uploader ClipUploader, notifier Notifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		store:        store,
		folders:      folders,
		uploader:     uploader,
		meta:         metadata.New(cfg),
		notifier:     notifier,
		log:          logger.With("component", "pipeline"),
		loadTemplate: func() (schedule.Template, error) { return schedule.LoadTemplate(cfg.Paths.ScheduleFile) },
		now:          time.Now,
	}
}

// UploadClip runs the full upload flow for one clip. On success the clip
// file is deleted; on a first-time failure it is relocated to the
// failed-upload holding area. The progress store is persisted before return
// on every outcome.
func (p *Pipeline) UploadClip(ctx context.Context, sourceName, clipPath string, clipNumber int, isRetry bool) error {
	clipName := filepath.Base(clipPath)

	sv, ok := p.store.Source(sourceName)
	if !ok {
		return fmt.Errorf("upload %s: source %s not in progress store", clipName, sourceName)
	}
	// The record is replaced wholesale below; keep the creation time across
	// status changes.
	createdAt := sv.Clips[clipName].CreatedAt

	tmpl, err := p.loadTemplate()
	if err != nil {
		p.notifier.Notify("❌ **Scheduling Error:** " + err.Error())
		return fmt.Errorf("load schedule template: %w", err)
	}
	watermark, _ := p.store.Watermark()
	slot, err := schedule.NextSlot(tmpl, p.now(), watermark)
	if err != nil {
		p.notifier.Notify("❌ **Scheduling Error:** could not find a publish slot.")
		return fmt.Errorf("next publish slot: %w", err)
	}
	// Reserve the slot before attempting the upload. A failed upload burns
	// the slot, but retry storms can never double-book one.
	if !isRetry {
		p.store.AdvanceWatermark(slot)
	}

	meta := p.meta.ForClip(sourceName, clipNumber, sv.PlaylistID)
	videoID, err := p.uploader.Upload(ctx, clipPath, meta, slot)
	if err != nil {
		p.store.SetClip(sourceName, clipName, progress.ClipRecord{
			Status:    progress.ClipUploadFailed,
			CreatedAt: createdAt,
			Reason:    err.Error(),
		})
		p.notifier.Notify(fmt.Sprintf("❌ **Upload FAILED:** `%s`\n> **Reason:** `%v`", meta.Title, err))
		if !isRetry {
			// First-time failures get one relocation; a retry that fails
			// again stays put so files never loop between folders.
			if moveErr := p.folders.MoveToFailed(clipPath); moveErr != nil {
				p.log.Error("could not move clip to holding area", "clip", clipName, "error", moveErr)
			}
		}
		p.store.MustSave()
		return err
	}

	p.chargeQuota("upload")
	if err := p.uploader.AddToPlaylist(ctx, sv.PlaylistID, videoID); err != nil {
		// The video is up; a missing playlist entry is not worth reverting it.
		p.log.Error("could not add video to playlist", "video", videoID, "playlist", sv.PlaylistID, "error", err)
	} else {
		p.chargeQuota("playlist_item_insert")
	}

	p.store.SetClip(sourceName, clipName, progress.ClipRecord{
		Status:    progress.ClipUploaded,
		CreatedAt: createdAt,
		YouTubeID: videoID,
		PublishAt: slot.UTC().Format("2006-01-02T15:04:05Z"),
	})
	p.notifier.Notify(fmt.Sprintf("✅ **Upload Complete:** `%s`\n> Scheduled for **%s**",
		meta.Title, slot.UTC().Format("Jan 02, 2006 at 03:04 PM (UTC)")))

	if err := os.Remove(clipPath); err != nil {
		p.log.Error("could not delete uploaded clip", "clip", clipName, "error", err)
	}
	p.store.MustSave()
	return nil
}

// FlushQueue uploads pending clips up to today's remaining upload allowance.
func (p *Pipeline) FlushQueue(ctx context.Context, pending []PendingClip) {
	p.notifier.Notify(fmt.Sprintf("📬 Found **%d** clip(s) in the upload queue. Checking daily limit...", len(pending)))

	tracker := p.store.Quota(p.now())
	left := p.cfg.Bot.MaxUploadsPerDay - tracker.UploadsToday
	if left <= 0 {
		p.notifier.Notify("🚫 Daily upload limit reached for today.")
		return
	}
	if len(pending) > left {
		pending = pending[:left]
	}
	p.notifier.Notify(fmt.Sprintf("   - Uploading up to **%d** clip(s) now...", len(pending)))

	for _, item := range pending {
		clipNumber, ok := media.ParseClipNumber(item.ClipName)
		if !ok {
			p.log.Error("could not parse clip number", "clip", item.ClipName)
			continue
		}
		if err := p.UploadClip(ctx, item.Source, item.Path, clipNumber, false); err != nil {
			p.log.Warn("queue upload failed", "clip", item.ClipName, "error", err)
		}
	}
}

// RetryFailed re-attempts every clip in the failed-upload holding area.
func (p *Pipeline) RetryFailed(ctx context.Context, failedClips []string) {
	p.notifier.Notify(fmt.Sprintf("♻️ Retrying **%d** failed upload(s)...", len(failedClips)))

	for _, clipName := range failedClips {
		clipNumber, ok := media.ParseClipNumber(clipName)
		if !ok {
			p.log.Error("could not parse clip number", "clip", clipName)
			continue
		}
		source, ok := p.sourceForClip(clipName)
		if !ok {
			p.log.Error("no progress record matches failed clip", "clip", clipName)
			continue
		}
		path := filepath.Join(p.folders.FailedUploads, clipName)
		if err := p.UploadClip(ctx, source, path, clipNumber, true); err != nil {
			p.log.Warn("retry upload failed", "clip", clipName, "error", err)
		}
	}
	p.notifier.Notify("✅ Re-upload process complete.")
}

// sourceForClip maps a clip filename back to its source video by stem,
// regardless of the source's own extension.
func (p *Pipeline) sourceForClip(clipName string) (string, bool) {
	stem, ok := media.SourceStem(clipName)
	if !ok {
		return "", false
	}
	for name := range p.store.Sources() {
		if strings.TrimSuffix(name, filepath.Ext(name)) == stem {
			return name, true
		}
	}
	return "", false
}

// chargeQuota records the configured cost of an action and notifies the
// operator of the running daily total.
func (p *Pipeline) chargeQuota(action string) {
	cost := p.cfg.YouTube.APICosts[action]
	if cost == 0 {
		return
	}
	tracker := p.store.AddQuota(action, cost, p.now())
	limit := p.cfg.YouTube.DailyQuotaLimit
	p.notifier.Notify(fmt.Sprintf("📊 Quota Update: `%s` cost **%d**. Est. usage: **%d / %d** (`%d` remaining).",
		action, cost, tracker.Spent, limit, limit-tracker.Spent))
	p.store.MustSave()
}
