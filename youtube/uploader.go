package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"google.golang.org/api/googleapi"
	youtubeapi "google.golang.org/api/youtube/v3"

	"shortsbot/types"
)

// UploadError describes a failed API call. Terminal errors (bad request,
// auth, forbidden) must not be retried.
type UploadError struct {
	Reason     string
	StatusCode int
	Terminal   bool
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (error %d)", e.Reason, e.StatusCode)
	}
	return e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

// classify turns an API error into an UploadError, marking the client-error
// class terminal.
func classify(err error) *UploadError {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := gerr.Message
		if len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			reason = gerr.Errors[0].Reason
		}
		if reason == "" {
			reason = "unknown reason"
		}
		terminal := gerr.Code == 400 || gerr.Code == 401 || gerr.Code == 403
		return &UploadError{Reason: reason, StatusCode: gerr.Code, Terminal: terminal, Err: err}
	}
	return &UploadError{Reason: err.Error(), Err: err}
}

// api is the slice of the YouTube service the uploader needs. Tests swap in
// a fake; production wires the real service via newGoogleAPI.
type api interface {
	insertVideo(ctx context.Context, video *youtubeapi.Video, media io.Reader) (string, error)
	insertPlaylist(ctx context.Context, title string) (string, error)
	insertPlaylistItem(ctx context.Context, playlistID, videoID string) error
}

type googleAPI struct {
	svc *youtubeapi.Service
}

func (g *googleAPI) insertVideo(ctx context.Context, video *youtubeapi.Video, media io.Reader) (string, error) {
	call := g.svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(media)
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

func (g *googleAPI) insertPlaylist(ctx context.Context, title string) (string, error) {
	playlist := &youtubeapi.Playlist{
		Snippet: &youtubeapi.PlaylistSnippet{Title: title},
		Status:  &youtubeapi.PlaylistStatus{PrivacyStatus: "public"},
	}
	resp, err := g.svc.Playlists.Insert([]string{"snippet", "status"}, playlist).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

func (g *googleAPI) insertPlaylistItem(ctx context.Context, playlistID, videoID string) error {
	item := &youtubeapi.PlaylistItem{
		Snippet: &youtubeapi.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtubeapi.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}
	_, err := g.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	return err
}

// Uploader performs playlist and upload calls with bounded retries.
type Uploader struct {
	api        api
	log        *slog.Logger
	attempts   int
	retryDelay time.Duration
}

// NewUploader wraps an authenticated service. attempts is the total number of
// tries per upload; retryDelay is the fixed wait between them.
func NewUploader(svc *youtubeapi.Service, attempts int, retryDelay time.Duration, logger *slog.Logger) *Uploader {
	return &Uploader{
		api:        &googleAPI{svc: svc},
		log:        logger.With("component", "youtube"),
		attempts:   attempts,
		retryDelay: retryDelay,
	}
}

// Upload sends one clip as a private video scheduled to go public at
// publishAt. Transient failures are retried up to the configured attempt
// count with a fixed delay; terminal failures abort immediately.
func (u *Uploader) Upload(ctx context.Context, clipPath string, meta *types.VideoMetadata, publishAt time.Time) (string, error) {
	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtubeapi.VideoStatus{
			PrivacyStatus:           "private", // must be private to schedule
			PublishAt:               publishAt.UTC().Format(time.RFC3339),
			SelfDeclaredMadeForKids: false,
		},
	}

	var lastErr *UploadError
	for attempt := 1; attempt <= u.attempts; attempt++ {
		f, err := os.Open(clipPath)
		if err != nil {
			return "", &UploadError{Reason: fmt.Sprintf("open clip: %v", err), Terminal: true, Err: err}
		}
		id, err := u.api.insertVideo(ctx, video, f)
		f.Close()
		if err == nil {
			return id, nil
		}

		lastErr = classify(err)
		if lastErr.Terminal {
			u.log.Error("upload failed terminally", "clip", clipPath, "reason", lastErr.Reason, "status", lastErr.StatusCode)
			return "", lastErr
		}
		u.log.Warn("upload attempt failed", "clip", clipPath, "attempt", attempt, "of", u.attempts, "reason", lastErr.Reason)
		if attempt < u.attempts {
			select {
			case <-time.After(u.retryDelay):
			case <-ctx.Done():
				return "", &UploadError{Reason: "canceled", Err: ctx.Err()}
			}
		}
	}
	return "", lastErr
}

// CreatePlaylist creates a public playlist and returns its ID.
func (u *Uploader) CreatePlaylist(ctx context.Context, title string) (string, error) {
	u.log.Info("creating playlist", "title", title)
	id, err := u.api.insertPlaylist(ctx, title)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

// AddToPlaylist appends an uploaded video to a playlist.
func (u *Uploader) AddToPlaylist(ctx context.Context, playlistID, videoID string) error {
	if err := u.api.insertPlaylistItem(ctx, playlistID, videoID); err != nil {
		return classify(err)
	}
	return nil
}
