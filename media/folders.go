// Package media owns the working-folder layout and every ffmpeg/ffprobe
// invocation: probing source durations, cutting vertical clips and tracking
// clip naming conventions.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shortsbot/config"
)

// Folders is the on-disk working layout of the bot.
type Folders struct {
	InputVideos     string
	ProcessedClips  string
	ProcessedVideos string
	FailedUploads   string
	Quarantined     string
	Logs            string
}

// NewFolders maps the configured paths onto the working layout.
func NewFolders(paths config.PathsConfig) Folders {
	return Folders{
		InputVideos:     paths.InputVideos,
		ProcessedClips:  paths.ProcessedClips,
		ProcessedVideos: paths.ProcessedVideos,
		FailedUploads:   paths.FailedUploads,
		Quarantined:     paths.Quarantined,
		Logs:            paths.Logs,
	}
}

// Ensure creates every working folder that does not exist yet.
func (f Folders) Ensure() error {
	for _, dir := range []string{f.InputVideos, f.ProcessedClips, f.ProcessedVideos, f.FailedUploads, f.Quarantined, f.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create folder %s: %w", dir, err)
		}
	}
	return nil
}

// IsVideoFile reports whether name has a source-video extension.
func IsVideoFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mkv":
		return true
	}
	return false
}

func listVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsVideoFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListInputVideos returns the sorted filenames of source videos waiting in
// the input folder.
func (f Folders) ListInputVideos() ([]string, error) {
	return listVideos(f.InputVideos)
}

// ListFailedClips returns the sorted filenames of clips sitting in the
// failed-upload holding area.
func (f Folders) ListFailedClips() ([]string, error) {
	return listVideos(f.FailedUploads)
}

// MoveToProcessed archives a fully handled source video.
func (f Folders) MoveToProcessed(name string) error {
	return os.Rename(filepath.Join(f.InputVideos, name), filepath.Join(f.ProcessedVideos, name))
}

// MoveToQuarantine moves an unreadable source video out of the active inventory.
func (f Folders) MoveToQuarantine(name string) error {
	return os.Rename(filepath.Join(f.InputVideos, name), filepath.Join(f.Quarantined, name))
}

// MoveToFailed relocates a clip to the failed-upload holding area.
func (f Folders) MoveToFailed(clipPath string) error {
	return os.Rename(clipPath, filepath.Join(f.FailedUploads, filepath.Base(clipPath)))
}
