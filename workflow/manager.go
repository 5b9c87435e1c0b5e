package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shortsbot/config"
	"shortsbot/media"
	"shortsbot/metadata"
	"shortsbot/progress"
)

// Manager executes one unit of work per tick: it runs the selector, then
// dispatches to clip production, queue flushing, retries or operator prompts.
type Manager struct {
	cfg      *config.Config
	store    *progress.Store
	folders  media.Folders
	selector *Selector
	producer *Producer
	pipeline *Pipeline
	uploader ClipUploader // nil in offline mode
	notifier Notifier
	prompter Prompter
	log      *slog.Logger

	probeDuration func(ctx context.Context, path string) (float64, error)
	now           func() time.Time
}

// NewManager wires the workflow Manager. uploader may be nil (offline mode):
// clips are still produced but nothing is uploaded.
func NewManager(
	cfg *config.Config,
	store *progress.Store,
	folders media.Folders,
	producer *Producer,
	pipeline *Pipeline,
	uploader ClipUploader,
	notifier Notifier,
	prompter Prompter,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:           cfg,
		store:         store,
		folders:       folders,
		selector:      NewSelector(store, folders.ProcessedClips),
		producer:      producer,
		pipeline:      pipeline,
		uploader:      uploader,
		notifier:      notifier,
		prompter:      prompter,
		log:           logger.With("component", "workflow"),
		probeDuration: media.Duration,
		now:           time.Now,
	}
}

func (m *Manager) online() bool { return m.uploader != nil }

func (m *Manager) promptTimeout() time.Duration {
	return time.Duration(m.cfg.Bot.PromptTimeoutMinutes) * time.Minute
}

// RunTick performs exactly one Work Selector decision and its action.
func (m *Manager) RunTick(ctx context.Context, sess *Session) {
	inventory, err := m.folders.ListInputVideos()
	if err != nil {
		m.log.Error("could not list input videos", "error", err)
		return
	}
	failed, err := m.folders.ListFailedClips()
	if err != nil {
		m.log.Error("could not list failed uploads", "error", err)
		failed = nil
	}

	item := m.selector.Select(inventory, failed, sess, m.online())
	if item == nil {
		if sess.ProcessNew {
			m.notifier.Notify("✅ No new videos to process.")
		}
		return
	}
	m.log.Info("selected work", "session", sess.ID, "kind", item.Kind, "source", item.Source)

	switch item.Kind {
	case WorkFlushQueue:
		m.pipeline.FlushQueue(ctx, item.Pending)
	case WorkRetryFailed:
		m.pipeline.RetryFailed(ctx, item.Failed)
	case WorkResume:
		m.resumeVideo(ctx, sess, item.Source)
	case WorkStartNew:
		m.startNewVideo(ctx, sess, item.Source)
	case WorkHandleCompleted:
		m.handleCompleted(ctx, sess, item.Source)
	}
}

// TotalClips probes the source duration and converts it to a clip count.
// Unreadable sources are quarantined and the operator notified; processing
// moves on to other sources.
func (m *Manager) TotalClips(ctx context.Context, sourceName string) (int, error) {
	path := filepath.Join(m.folders.InputVideos, sourceName)
	duration, err := m.probeDuration(ctx, path)
	if err != nil {
		m.log.Error("unreadable source video, quarantining", "source", sourceName, "error", err)
		if moveErr := m.folders.MoveToQuarantine(sourceName); moveErr != nil {
			m.log.Error("could not quarantine source", "source", sourceName, "error", moveErr)
		}
		m.notifier.Notify(fmt.Sprintf("🚨 **Warning:** Could not read `%s`. Moved to quarantine.", sourceName))
		return 0, err
	}
	return media.TotalClips(duration, m.cfg.Video.ClipDurationSeconds, m.cfg.Video.ClipOverlapSeconds), nil
}

func (m *Manager) startNewVideo(ctx context.Context, sess *Session, sourceName string) {
	total, err := m.TotalClips(ctx, sourceName)
	if err != nil {
		return
	}
	count, ok := m.promptClipCount(ctx,
		fmt.Sprintf("🎬 **New video:** `%s` | **%d** clip(s) possible.\n> How many to process? (`all` or a number)", sourceName, total),
		total)
	if !ok {
		m.notifier.Notify("⏰ Timed out waiting for a clip count.")
		return
	}
	m.runFullProcess(ctx, sess, sourceName, 0, count, total)
}

func (m *Manager) resumeVideo(ctx context.Context, sess *Session, sourceName string) {
	sv, ok := m.store.Source(sourceName)
	if !ok {
		return
	}
	total, err := m.TotalClips(ctx, sourceName)
	if err != nil {
		return
	}
	done := len(sv.Clips)
	remaining := total - done
	if remaining <= 0 {
		m.store.SetSourceStatus(sourceName, progress.SourceCompleted)
		m.store.MustSave()
		return
	}
	count, ok := m.promptClipCount(ctx,
		fmt.Sprintf("▶️ **Resuming `%s`**.\n> `%d/%d` done, **%d** remaining.\n> How many **more**? (`all` or a number)", sourceName, done, total, remaining),
		remaining)
	if !ok {
		m.notifier.Notify("⏰ Timed out.")
		return
	}
	m.runFullProcess(ctx, sess, sourceName, done, count, total)
}

// promptClipCount asks the operator for a clip count, accepting "all" or an
// integer in [1,max]. ok is false on timeout.
func (m *Manager) promptClipCount(ctx context.Context, prompt string, max int) (int, bool) {
	accept := func(reply string) bool {
		reply = strings.ToLower(strings.TrimSpace(reply))
		if reply == "all" {
			return true
		}
		n, err := strconv.Atoi(reply)
		return err == nil && n >= 1 && n <= max
	}
	reply, ok := m.prompter.Await(ctx, prompt, accept, m.promptTimeout())
	if !ok {
		return 0, false
	}
	reply = strings.ToLower(strings.TrimSpace(reply))
	if reply == "all" {
		return max, true
	}
	n, _ := strconv.Atoi(reply)
	return n, true
}

// runFullProcess produces count clips starting at startIndex (0-based) and
// queues them for upload. On the first pass it creates the source record and
// its playlist.
func (m *Manager) runFullProcess(ctx context.Context, sess *Session, sourceName string, startIndex, count, total int) {
	if _, exists := m.store.Source(sourceName); !exists {
		playlistID := ""
		if m.online() {
			id, err := m.uploader.CreatePlaylist(ctx, metadata.PlaylistTitle(sourceName))
			if err != nil {
				m.notifier.Notify("❌ Failed to create playlist.")
				m.log.Error("playlist creation failed", "source", sourceName, "error", err)
				return
			}
			playlistID = id
			m.pipeline.chargeQuota("playlist_insert")
		}
		m.store.CreateSource(sourceName, playlistID)
		m.store.MustSave()
	}

	m.notifier.Notify(fmt.Sprintf("⚙️ Starting processing of **%d** clip(s)...", count))
	produced := 0
	for i := startIndex; i < startIndex+count; i++ {
		clipNumber := i + 1
		clipPath, err := m.producer.Produce(ctx, sourceName, clipNumber)
		if err != nil {
			m.log.Error("clip production failed", "source", sourceName, "clip", clipNumber, "error", err)
			m.store.SetSourceStatus(sourceName, progress.SourceFailedSplit)
			break
		}
		m.store.SetClip(sourceName, filepath.Base(clipPath), progress.ClipRecord{
			Status:    progress.ClipPendingUpload,
			CreatedAt: m.now().UTC().Format(time.RFC3339),
		})
		m.store.MustSave()
		produced++
	}
	m.notifier.Notify(fmt.Sprintf("✅ Batch processing complete! **%d** clip(s) added to the upload queue.", produced))

	sv, _ := m.store.Source(sourceName)
	if sv != nil && len(sv.Clips) >= total {
		if m.online() {
			m.store.SetSourceStatus(sourceName, progress.SourceCompleted)
		}
		if err := m.folders.MoveToProcessed(sourceName); err != nil {
			m.log.Error("could not archive source video", "source", sourceName, "error", err)
		}
		m.notifier.Notify(fmt.Sprintf("✅ **All processing for `%s` is complete!**", sourceName))
	} else {
		m.notifier.Notify(fmt.Sprintf("✅ Batch complete. `%s` remains in progress.", sourceName))
	}
	m.store.MustSave()
}

// handleCompleted asks the operator what to do with a fully processed source
// that is still sitting in the input folder. Timeout means ignore.
func (m *Manager) handleCompleted(ctx context.Context, sess *Session, sourceName string) {
	prompt := fmt.Sprintf("⚠️ **Notice:** `%s` is fully processed.\n➡️ Reply `reprocess`, `ignore`, or `stop`.", sourceName)
	accept := func(reply string) bool {
		switch strings.ToLower(strings.TrimSpace(reply)) {
		case "reprocess", "ignore", "stop":
			return true
		}
		return false
	}
	reply, ok := m.prompter.Await(ctx, prompt, accept, m.promptTimeout())
	if !ok {
		m.notifier.Notify("⏰ Timed out. Ignoring.")
		sess.Ignore.Add(sourceName)
		return
	}
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "reprocess":
		m.store.DeleteSource(sourceName)
		m.store.MustSave()
		m.notifier.Notify(fmt.Sprintf("✅ Records deleted for `%s`.", sourceName))
	case "ignore":
		sess.Ignore.Add(sourceName)
		m.notifier.Notify(fmt.Sprintf("👍 Ignoring `%s`.", sourceName))
	case "stop":
		sess.Stop()
		m.notifier.Notify("✅ Processing stopped.")
	}
}
