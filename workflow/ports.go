// Package workflow is the bot's brain: it selects the next unit of work,
// produces clips, schedules and uploads them, and drives the periodic tick
// loop. It talks to the interactive layer only through the narrow Notifier
// and Prompter ports so the core logic stays testable without Discord.
package workflow

import (
	"context"
	"time"

	"shortsbot/types"
)

// Notifier posts operator-visible messages to the control channel.
type Notifier interface {
	Notify(text string)
	// NotifyProgress posts a message that will be edited in place as work
	// advances, and returns its handle.
	NotifyProgress(text string) ProgressHandle
}

// ProgressHandle is an editable in-channel message.
type ProgressHandle interface {
	Update(text string)
}

// Prompter asks the operator a free-text question and waits for the first
// reply accepted by the predicate. ok is false when the timeout elapses
// first; callers treat that as a decline.
type Prompter interface {
	Await(ctx context.Context, prompt string, accept func(string) bool, timeout time.Duration) (reply string, ok bool)
}

// ClipUploader is the slice of the video-host client the pipeline needs.
type ClipUploader interface {
	Upload(ctx context.Context, clipPath string, meta *types.VideoMetadata, publishAt time.Time) (string, error)
	CreatePlaylist(ctx context.Context, title string) (string, error)
	AddToPlaylist(ctx context.Context, playlistID, videoID string) error
}
