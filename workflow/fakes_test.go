package workflow

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"shortsbot/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
}

func (n *fakeNotifier) NotifyProgress(text string) ProgressHandle {
	n.Notify(text)
	return &fakeProgress{notifier: n}
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func (n *fakeNotifier) contains(substr string) bool {
	for _, m := range n.all() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type fakeProgress struct {
	notifier *fakeNotifier
}

func (p *fakeProgress) Update(text string) { p.notifier.Notify(text) }

// fakePrompter replays canned replies; an empty string simulates a timeout.
type fakePrompter struct {
	replies []string
	prompts []string
}

func (p *fakePrompter) Await(ctx context.Context, prompt string, accept func(string) bool, timeout time.Duration) (string, bool) {
	p.prompts = append(p.prompts, prompt)
	if len(p.replies) == 0 {
		return "", false
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	if reply == "" || !accept(reply) {
		return "", false
	}
	return reply, true
}

type uploadCall struct {
	ClipPath  string
	Meta      *types.VideoMetadata
	PublishAt time.Time
}

type fakeClipUploader struct {
	uploadErrs   []error // consumed one per Upload call
	playlistErr  error
	attachErr    error
	uploads      []uploadCall
	playlists    []string
	attachments  [][2]string
	nextVideoID  string
	nextPlaylist string
}

func (u *fakeClipUploader) Upload(ctx context.Context, clipPath string, meta *types.VideoMetadata, publishAt time.Time) (string, error) {
	u.uploads = append(u.uploads, uploadCall{ClipPath: clipPath, Meta: meta, PublishAt: publishAt})
	if len(u.uploadErrs) > 0 {
		err := u.uploadErrs[0]
		u.uploadErrs = u.uploadErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if u.nextVideoID == "" {
		return "vid1", nil
	}
	return u.nextVideoID, nil
}

func (u *fakeClipUploader) CreatePlaylist(ctx context.Context, title string) (string, error) {
	u.playlists = append(u.playlists, title)
	if u.playlistErr != nil {
		return "", u.playlistErr
	}
	if u.nextPlaylist == "" {
		return "PL1", nil
	}
	return u.nextPlaylist, nil
}

func (u *fakeClipUploader) AddToPlaylist(ctx context.Context, playlistID, videoID string) error {
	u.attachments = append(u.attachments, [2]string{playlistID, videoID})
	return u.attachErr
}

type fakeSplitter struct {
	err   error
	paths map[int]string // clipNumber -> produced path
}

func (s *fakeSplitter) Split(ctx context.Context, sourceName string, clipNumber int, onProgress func(float64)) (string, error) {
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	if s.err != nil {
		return "", s.err
	}
	return s.paths[clipNumber], nil
}

type fakeSubtitler struct {
	enabled     bool
	generateErr error
	burnErr     error
	srtPath     string
	burnedPath  string
}

func (s *fakeSubtitler) Enabled() bool { return s.enabled }

func (s *fakeSubtitler) Generate(ctx context.Context, clipPath string) (string, error) {
	if s.generateErr != nil {
		return "", s.generateErr
	}
	return s.srtPath, nil
}

func (s *fakeSubtitler) Burn(ctx context.Context, clipPath, srtPath string) (string, error) {
	if s.burnErr != nil {
		return "", s.burnErr
	}
	return s.burnedPath, nil
}
