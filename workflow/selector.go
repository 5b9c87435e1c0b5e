package workflow

import (
	"os"
	"path/filepath"
	"sort"

	"shortsbot/progress"
)

// WorkKind enumerates the units of work a tick can execute.
type WorkKind int

const (
	// WorkFlushQueue drains produced clips waiting in the staging area.
	WorkFlushQueue WorkKind = iota + 1
	// WorkRetryFailed re-attempts clips sitting in the failed-upload holding area.
	WorkRetryFailed
	// WorkResume continues a partially processed source video.
	WorkResume
	// WorkStartNew begins a source video not yet in the progress store.
	WorkStartNew
	// WorkHandleCompleted asks the operator what to do with a fully
	// processed source still present in the input folder.
	WorkHandleCompleted
)

// PendingClip is one produced clip waiting for upload.
type PendingClip struct {
	Source   string
	ClipName string
	Path     string
}

// WorkItem is the single unit of work selected for one tick.
type WorkItem struct {
	Kind    WorkKind
	Source  string        // Resume, StartNew, HandleCompleted
	Pending []PendingClip // FlushQueue
	Failed  []string      // RetryFailed: clip filenames in the holding area
}

// Selector decides the next unit of work from the input inventory and the
// progress store.
type Selector struct {
	store    *progress.Store
	clipsDir string
	exists   func(string) bool
}

// NewSelector creates a Selector reading clip files from clipsDir.
func NewSelector(store *progress.Store, clipsDir string) *Selector {
	return &Selector{
		store:    store,
		clipsDir: clipsDir,
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// Select returns the highest-priority work item, or nil when there is
// nothing to do. Draining already-produced clips always outranks creating
// new ones; resuming partial work outranks starting fresh work. Upload work
// is only selected online: offline, the queue cannot drain, so it must never
// shadow clip production.
func (s *Selector) Select(inventory, failedClips []string, sess *Session, online bool) *WorkItem {
	if online {
		if pending := s.pendingClips(); len(pending) > 0 {
			return &WorkItem{Kind: WorkFlushQueue, Pending: pending}
		}
		if len(failedClips) > 0 {
			return &WorkItem{Kind: WorkRetryFailed, Failed: failedClips}
		}
	}
	if !sess.ProcessNew {
		return nil
	}
	for _, name := range inventory {
		if sv, ok := s.store.Source(name); ok && sv.Status == progress.SourceProcessing {
			return &WorkItem{Kind: WorkResume, Source: name}
		}
	}
	for _, name := range inventory {
		if _, ok := s.store.Source(name); !ok {
			return &WorkItem{Kind: WorkStartNew, Source: name}
		}
	}
	if online {
		for _, name := range inventory {
			if sv, ok := s.store.Source(name); ok && sv.Status == progress.SourceCompleted && !sess.Ignore.Has(name) {
				return &WorkItem{Kind: WorkHandleCompleted, Source: name}
			}
		}
	}
	return nil
}

// pendingClips lists every pending_upload clip whose file still exists in the
// staging area, in sorted order so a tick sees a stable sequence.
func (s *Selector) pendingClips() []PendingClip {
	sources := make([]string, 0, len(s.store.Sources()))
	for name := range s.store.Sources() {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	var pending []PendingClip
	for _, source := range sources {
		sv, _ := s.store.Source(source)
		clips := make([]string, 0, len(sv.Clips))
		for clip := range sv.Clips {
			clips = append(clips, clip)
		}
		sort.Strings(clips)
		for _, clip := range clips {
			if sv.Clips[clip].Status != progress.ClipPendingUpload {
				continue
			}
			path := filepath.Join(s.clipsDir, clip)
			if s.exists(path) {
				pending = append(pending, PendingClip{Source: source, ClipName: clip, Path: path})
			}
		}
	}
	return pending
}
