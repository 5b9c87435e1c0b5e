package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shortsbot/media"
	"shortsbot/progress"
)

// parseCommand splits a prefixed command message into its name and argument
// string. ok is false for ordinary messages.
func (b *Bot) parseCommand(content string) (cmd, args string, ok bool) {
	prefix := b.cfg.Bot.CommandPrefix
	if !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}
	cmd, args, _ = strings.Cut(rest, " ")
	return strings.ToLower(cmd), strings.TrimSpace(args), true
}

func (b *Bot) dispatch(cmd, args string) {
	b.log.Info("command received", "command", cmd, "args", args)
	switch cmd {
	case "start":
		b.cmdStart()
	case "stop":
		b.cmdStop()
	case "status":
		b.cmdStatus()
	case "quota":
		b.cmdQuota()
	case "schedule":
		b.cmdSchedule()
	case "preview":
		b.cmdPreview(args)
	case "end":
		b.cmdEnd()
	default:
		b.Notify(fmt.Sprintf("❓ Unknown command. Available: `%[1]sstart` `%[1]sstop` `%[1]sstatus` `%[1]squota` `%[1]sschedule` `%[1]spreview <file>` `%[1]send`", b.cfg.Bot.CommandPrefix))
	}
}

func (b *Bot) cmdStart() {
	if !b.driver.RequestStart() {
		b.Notify("⚠️ A processing run is already in progress.")
		return
	}
	b.Notify("✅ Processing started. Checking for work now.")
}

func (b *Bot) cmdStop() {
	if b.driver.RequestStop() {
		b.Notify("🛑 Stopping. The current action will finish first.")
	} else {
		b.Notify("💤 Nothing is running.")
	}
}

func (b *Bot) cmdStatus() {
	state := "idle"
	if b.driver.Busy() {
		state = "working"
	}
	mode := "online"
	if !b.online {
		mode = "offline (no uploads)"
	}

	pending, failedUploads := b.clipCounts()
	inventory, _ := b.folders.ListInputVideos()
	held, _ := b.folders.ListFailedClips()

	b.Notify(fmt.Sprintf(
		"📋 **Status**\n> State: **%s** | Mode: **%s**\n> Input videos: **%d**\n> Clips awaiting upload: **%d**\n> Failed uploads on record: **%d** (**%d** file(s) held)",
		state, mode, len(inventory), pending, failedUploads, len(held)))
}

func (b *Bot) cmdQuota() {
	if !b.online {
		b.Notify("📴 Offline mode: no quota is being spent.")
		return
	}
	tracker := b.store.Quota(b.now())
	limit := b.cfg.YouTube.DailyQuotaLimit
	b.Notify(fmt.Sprintf(
		"📊 **Quota for %s**\n> Spent: **%d / %d** (`%d` remaining)\n> Uploads today: **%d / %d**",
		tracker.Date, tracker.Spent, limit, limit-tracker.Spent, tracker.UploadsToday, b.cfg.Bot.MaxUploadsPerDay))
}

type upcomingPublish struct {
	clip string
	at   time.Time
}

func (b *Bot) cmdSchedule() {
	var upcoming []upcomingPublish
	now := b.now()
	// Commands run on the gateway goroutine, so read a snapshot rather than
	// the live document the driver is mutating.
	for _, sv := range b.store.Snapshot().SourceVideos {
		for clipName, rec := range sv.Clips {
			if rec.Status != progress.ClipUploaded || rec.PublishAt == "" {
				continue
			}
			at, err := time.Parse("2006-01-02T15:04:05Z", rec.PublishAt)
			if err != nil || !at.After(now) {
				continue
			}
			upcoming = append(upcoming, upcomingPublish{clip: clipName, at: at})
		}
	}
	if len(upcoming) == 0 {
		b.Notify("🗓️ No scheduled publishes on record.")
		return
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].at.Before(upcoming[j].at) })
	if len(upcoming) > 10 {
		upcoming = upcoming[:10]
	}

	var sb strings.Builder
	sb.WriteString("🗓️ **Upcoming publishes**\n")
	for _, u := range upcoming {
		fmt.Fprintf(&sb, "> %s — `%s`\n", u.at.Format("Mon Jan 02, 15:04 UTC"), u.clip)
	}
	b.Notify(sb.String())
}

// cmdPreview lists the clip boundaries a source would be cut into, without
// touching it.
func (b *Bot) cmdPreview(name string) {
	if name == "" {
		b.Notify(fmt.Sprintf("Usage: `%spreview <video file>`", b.cfg.Bot.CommandPrefix))
		return
	}
	if !media.IsVideoFile(name) {
		b.Notify(fmt.Sprintf("❌ `%s` is not a video file.", name))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	duration, err := b.probeDuration(ctx, filepath.Join(b.folders.InputVideos, name))
	if err != nil {
		b.Notify(fmt.Sprintf("❌ Could not read `%s`: %v", name, err))
		return
	}

	clipSec := b.cfg.Video.ClipDurationSeconds
	overlapSec := b.cfg.Video.ClipOverlapSeconds
	total := media.TotalClips(duration, clipSec, overlapSec)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 **Preview of `%s`** (%.0fs): **%d** clip(s)\n", name, duration, total)
	shown := total
	if shown > 15 {
		shown = 15
	}
	for n := 1; n <= shown; n++ {
		start := media.ClipStart(n, clipSec, overlapSec)
		end := start + float64(clipSec)
		if end > duration {
			end = duration
		}
		fmt.Fprintf(&sb, "> Part %d: %s - %s\n", n, formatOffset(start), formatOffset(end))
	}
	if total > shown {
		fmt.Fprintf(&sb, "> ... and %d more\n", total-shown)
	}
	b.Notify(sb.String())
}

func (b *Bot) cmdEnd() {
	b.Notify("👋 Shutting down. Goodbye.")
	b.requestEnd()
}

// clipCounts tallies recorded clips by upload state across all sources. It
// reads a snapshot because it runs on the gateway goroutine.
func (b *Bot) clipCounts() (pending, failed int) {
	for _, sv := range b.store.Snapshot().SourceVideos {
		for _, rec := range sv.Clips {
			switch rec.Status {
			case progress.ClipPendingUpload:
				pending++
			case progress.ClipUploadFailed:
				failed++
			}
		}
	}
	return pending, failed
}

func formatOffset(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
