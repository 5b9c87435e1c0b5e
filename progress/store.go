// Package progress persists the bot's single source of truth: which source
// videos are known, which clips exist, where each clip is in the upload
// lifecycle, and how much API quota was spent today.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Source video statuses.
const (
	SourceProcessing  = "processing"
	SourceCompleted   = "completed"
	SourceFailedSplit = "failed_split"
)

// Clip statuses.
const (
	ClipPendingUpload = "pending_upload"
	ClipUploaded      = "uploaded"
	ClipUploadFailed  = "upload_failed"
)

// ClipRecord tracks one produced clip through the upload lifecycle.
type ClipRecord struct {
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
	YouTubeID string `json:"youtube_id,omitempty"`
	PublishAt string `json:"publish_at,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// SourceVideo tracks one long-form input file and all clips cut from it.
type SourceVideo struct {
	Status     string                `json:"status"`
	PlaylistID string                `json:"playlist_id,omitempty"`
	Clips      map[string]ClipRecord `json:"clips"`
}

// QuotaTracker accumulates estimated API cost for a single UTC day.
type QuotaTracker struct {
	Date         string `json:"date"`
	Spent        int    `json:"spent"`
	UploadsToday int    `json:"uploads_today"`
}

// Document is the on-disk shape of progress.json.
type Document struct {
	SourceVideos map[string]*SourceVideo `json:"source_videos"`
	// LastScheduledTime is the UNIX timestamp of the most recently assigned
	// publish slot. Nil means no slot has ever been assigned.
	LastScheduledTime *float64     `json:"last_scheduled_time"`
	QuotaTracker      QuotaTracker `json:"quota_tracker"`
}

// Store owns the in-memory progress document and its file on disk. The
// driver loop is the single writer. Sources and Source hand out live records
// and must stay on that goroutine; other goroutines read through Snapshot and
// Quota, which serialize against the mutating methods.
type Store struct {
	path string
	log  *slog.Logger

	mu  sync.Mutex
	doc *Document
}

// Open loads the progress file at path. A missing or corrupt file yields an
// empty document rather than an error, matching the recover-and-continue
// behavior the rest of the bot relies on.
func Open(path string, logger *slog.Logger) *Store {
	s := &Store{path: path, log: logger.With("component", "progress")}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.doc = emptyDocument()
	case err != nil:
		s.log.Error("could not read progress file, starting empty", "path", path, "error", err)
		s.doc = emptyDocument()
	default:
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			s.log.Error("progress file is corrupt, starting empty", "path", path, "error", err)
			s.doc = emptyDocument()
			break
		}
		if doc.SourceVideos == nil {
			doc.SourceVideos = map[string]*SourceVideo{}
		}
		s.doc = &doc
	}
	return s
}

func emptyDocument() *Document {
	return &Document{SourceVideos: map[string]*SourceVideo{}}
}

// Save rewrites the progress file. The document is written to a temp file in
// the same directory and renamed into place so a crash mid-write cannot
// corrupt the previous version.
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.doc, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("create temp progress file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp progress file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace progress file: %w", err)
	}
	return nil
}

// MustSave saves and logs failures as critical instead of propagating them.
// The in-memory document stays authoritative until the next successful write.
func (s *Store) MustSave() {
	if err := s.Save(); err != nil {
		s.log.Error("CRITICAL: failed to save progress", "error", err)
	}
}

// Sources returns the source-video map for iteration. Callers must not hold
// onto it across mutations.
func (s *Store) Sources() map[string]*SourceVideo {
	return s.doc.SourceVideos
}

// Source returns the record for one source video.
func (s *Store) Source(name string) (*SourceVideo, bool) {
	sv, ok := s.doc.SourceVideos[name]
	return sv, ok
}

// CreateSource registers a new source video in the processing state.
// The playlist ID is assigned here, exactly once.
func (s *Store) CreateSource(name, playlistID string) *SourceVideo {
	sv := &SourceVideo{
		Status:     SourceProcessing,
		PlaylistID: playlistID,
		Clips:      map[string]ClipRecord{},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.SourceVideos[name] = sv
	return sv
}

// DeleteSource removes all records for a source video. Only the explicit
// "reprocess" confirmation path calls this.
func (s *Store) DeleteSource(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.SourceVideos, name)
}

// SetSourceStatus updates a source video's status if it exists.
func (s *Store) SetSourceStatus(name, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sv, ok := s.doc.SourceVideos[name]; ok {
		sv.Status = status
	}
}

// SetClip records the state of one clip under its source video.
func (s *Store) SetClip(source, clip string, rec ClipRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv, ok := s.doc.SourceVideos[source]
	if !ok {
		return
	}
	if sv.Clips == nil {
		sv.Clips = map[string]ClipRecord{}
	}
	sv.Clips[clip] = rec
}

// Watermark returns the last assigned publish slot. ok is false when no slot
// has been assigned yet or the stored value is unusable.
func (s *Store) Watermark() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.doc.LastScheduledTime
	if ts == nil || *ts <= 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(*ts), 0).UTC(), true
}

// AdvanceWatermark moves the watermark forward to t. Moves backward are
// ignored so the publish schedule stays monotonic.
func (s *Store) AdvanceWatermark(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := float64(t.Unix())
	if s.doc.LastScheduledTime != nil && *s.doc.LastScheduledTime >= ts {
		return
	}
	s.doc.LastScheduledTime = &ts
}

// Quota returns today's tracker, resetting it when the stored date differs
// from the current UTC date.
func (s *Store) Quota(now time.Time) QuotaTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotaLocked(now)
}

func (s *Store) quotaLocked(now time.Time) QuotaTracker {
	today := now.UTC().Format("2006-01-02")
	if s.doc.QuotaTracker.Date != today {
		return QuotaTracker{Date: today}
	}
	return s.doc.QuotaTracker
}

// AddQuota charges cost units for an action and returns the updated tracker.
// Upload actions also bump the daily upload counter.
func (s *Store) AddQuota(action string, cost int, now time.Time) QuotaTracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracker := s.quotaLocked(now)
	tracker.Spent += cost
	if action == "upload" {
		tracker.UploadsToday++
	}
	s.doc.QuotaTracker = tracker
	return tracker
}

// Snapshot returns a deep copy of the current document. Unlike the live
// accessors it may be called from any goroutine; the command layer reads
// through it while the driver mutates.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Document{
		SourceVideos: make(map[string]*SourceVideo, len(s.doc.SourceVideos)),
		QuotaTracker: s.doc.QuotaTracker,
	}
	if s.doc.LastScheduledTime != nil {
		ts := *s.doc.LastScheduledTime
		out.LastScheduledTime = &ts
	}
	for name, sv := range s.doc.SourceVideos {
		clips := make(map[string]ClipRecord, len(sv.Clips))
		for clip, rec := range sv.Clips {
			clips[clip] = rec
		}
		out.SourceVideos[name] = &SourceVideo{
			Status:     sv.Status,
			PlaylistID: sv.PlaylistID,
			Clips:      clips,
		}
	}
	return out
}
