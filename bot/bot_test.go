package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortsbot/config"
	"shortsbot/media"
	"shortsbot/progress"
	"shortsbot/workflow"
)

type fakeMessenger struct {
	mu    sync.Mutex
	sent  []string
	edits []string
}

func (f *fakeMessenger) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &discordgo.Message{ID: fmt.Sprintf("msg%d", len(f.sent))}, nil
}

func (f *fakeMessenger) ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, content)
	return &discordgo.Message{ID: messageID}, nil
}

func (f *fakeMessenger) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type noopTicker struct{}

func (noopTicker) RunTick(ctx context.Context, sess *workflow.Session) {}

func testBot(t *testing.T, online bool) (*Bot, *fakeMessenger) {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		Bot: config.BotConfig{
			ChannelID:        "chan1",
			CommandPrefix:    "!",
			MaxUploadsPerDay: 10,
		},
		YouTube: config.YouTubeConfig{DailyQuotaLimit: 10000},
		Video:   config.VideoConfig{ClipDurationSeconds: 60, ClipOverlapSeconds: 10},
		Paths: config.PathsConfig{
			InputVideos:     filepath.Join(base, "input_videos"),
			ProcessedClips:  filepath.Join(base, "processed_clips"),
			ProcessedVideos: filepath.Join(base, "processed_videos"),
			FailedUploads:   filepath.Join(base, "failed_uploads"),
			Quarantined:     filepath.Join(base, "quarantined_videos"),
			Logs:            filepath.Join(base, "logs"),
		},
	}
	folders := media.NewFolders(cfg.Paths)
	require.NoError(t, folders.Ensure())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	b := &Bot{
		cfg:        cfg,
		store:      progress.Open(filepath.Join(base, "progress.json"), logger),
		folders:    folders,
		driver:     workflow.NewDriver(noopTicker{}, time.Hour, logger),
		log:        logger,
		online:     online,
		send:       &fakeMessenger{},
		requestEnd: func() {},
		probeDuration: func(ctx context.Context, path string) (float64, error) {
			return 130, nil
		},
		now: func() time.Time { return time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC) },
	}
	b.ready.Store(true)
	fm := b.send.(*fakeMessenger)
	return b, fm
}

func TestParseCommand(t *testing.T) {
	b, _ := testBot(t, true)
	tests := []struct {
		in       string
		cmd, arg string
		ok       bool
	}{
		{"!start", "start", "", true},
		{"!PREVIEW my video.mp4", "preview", "my video.mp4", true},
		{"!  ", "", "", false},
		{"start", "", "", false},
		{"hello there", "", "", false},
	}
	for _, tt := range tests {
		cmd, arg, ok := b.parseCommand(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.cmd, cmd, tt.in)
		assert.Equal(t, tt.arg, arg, tt.in)
	}
}

func TestHandleMessage_ChannelGate(t *testing.T) {
	b, fm := testBot(t, true)

	b.HandleMessage("other-channel", "!status")
	assert.Equal(t, 0, fm.sentCount(), "other channels are ignored")

	b.HandleMessage("chan1", "!status")
	assert.Equal(t, 1, fm.sentCount())
}

func TestHandleMessage_RejectedUntilReady(t *testing.T) {
	b, fm := testBot(t, true)
	b.ready.Store(false)

	b.HandleMessage("chan1", "!status")
	assert.Equal(t, 0, fm.sentCount())
}

func TestCmdStartAndStop(t *testing.T) {
	b, fm := testBot(t, true)

	b.HandleMessage("chan1", "!start")
	assert.Contains(t, fm.lastSent(), "Processing started")

	b.HandleMessage("chan1", "!stop")
	assert.Contains(t, fm.lastSent(), "Stopping")

	b.HandleMessage("chan1", "!stop")
	assert.Contains(t, fm.lastSent(), "Nothing is running")
}

func TestCmdQuota(t *testing.T) {
	t.Run("offline", func(t *testing.T) {
		b, fm := testBot(t, false)
		b.HandleMessage("chan1", "!quota")
		assert.Contains(t, fm.lastSent(), "Offline mode")
	})

	t.Run("online", func(t *testing.T) {
		b, fm := testBot(t, true)
		b.store.AddQuota("upload", 1600, b.now())
		b.HandleMessage("chan1", "!quota")
		assert.Contains(t, fm.lastSent(), "1600 / 10000")
		assert.Contains(t, fm.lastSent(), "8400")
	})
}

func TestCmdSchedule(t *testing.T) {
	b, fm := testBot(t, true)

	b.HandleMessage("chan1", "!schedule")
	assert.Contains(t, fm.lastSent(), "No scheduled publishes")

	b.store.CreateSource("v.mp4", "PL1")
	b.store.SetClip("v.mp4", "v part 2.mp4", progress.ClipRecord{
		Status: progress.ClipUploaded, PublishAt: "2026-08-12T09:00:00Z",
	})
	b.store.SetClip("v.mp4", "v part 1.mp4", progress.ClipRecord{
		Status: progress.ClipUploaded, PublishAt: "2026-08-05T09:00:00Z",
	})
	// Already published: not listed.
	b.store.SetClip("v.mp4", "v part 0.mp4", progress.ClipRecord{
		Status: progress.ClipUploaded, PublishAt: "2026-08-01T09:00:00Z",
	})

	b.HandleMessage("chan1", "!schedule")
	out := fm.lastSent()
	assert.NotContains(t, out, "v part 0.mp4")
	first := strings.Index(out, "v part 1.mp4")
	second := strings.Index(out, "v part 2.mp4")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second, "sorted by publish time")
}

func TestCmdPreview(t *testing.T) {
	b, fm := testBot(t, true)

	b.HandleMessage("chan1", "!preview")
	assert.Contains(t, fm.lastSent(), "Usage")

	b.HandleMessage("chan1", "!preview notes.txt")
	assert.Contains(t, fm.lastSent(), "not a video file")

	// 130s at 60s clips with 10s overlap: two clips.
	b.HandleMessage("chan1", "!preview long video.mp4")
	out := fm.lastSent()
	assert.Contains(t, out, "**2** clip(s)")
	assert.Contains(t, out, "Part 1: 00:00 - 01:00")
	assert.Contains(t, out, "Part 2: 00:50 - 01:50")
}

func TestCmdEnd(t *testing.T) {
	b, fm := testBot(t, true)
	ended := false
	b.requestEnd = func() { ended = true }

	b.HandleMessage("chan1", "!end")
	assert.Contains(t, fm.lastSent(), "Shutting down")
	assert.True(t, ended)
}

func TestCmdUnknown(t *testing.T) {
	b, fm := testBot(t, true)
	b.HandleMessage("chan1", "!dance")
	assert.Contains(t, fm.lastSent(), "Unknown command")
}

func TestAwait_DeliversMatchingReply(t *testing.T) {
	b, _ := testBot(t, true)

	got := make(chan string, 1)
	go func() {
		reply, ok := b.Await(context.Background(), "how many?", func(s string) bool { return s == "all" }, 2*time.Second)
		if !ok {
			reply = "<timeout>"
		}
		got <- reply
	}()

	// Wait for the waiter to register before replying.
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.waiters) == 1
	}, time.Second, 5*time.Millisecond)

	b.HandleMessage("chan1", "nonsense") // not accepted, dropped
	b.HandleMessage("chan1", "all")

	select {
	case reply := <-got:
		assert.Equal(t, "all", reply)
	case <-time.After(2 * time.Second):
		t.Fatal("reply never delivered")
	}
}

func TestAwait_Timeout(t *testing.T) {
	b, _ := testBot(t, true)

	_, ok := b.Await(context.Background(), "how many?", func(string) bool { return true }, 10*time.Millisecond)
	assert.False(t, ok)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Empty(t, b.waiters, "timed-out waiter is removed")
}

func TestCommands_ReadSafelyWhileStoreIsWritten(t *testing.T) {
	b, _ := testBot(t, true)
	b.store.CreateSource("v.mp4", "PL1")

	// Simulates a driver tick recording clips while the gateway goroutine
	// serves read commands.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			b.store.SetClip("v.mp4", fmt.Sprintf("v part %d.mp4", i%20+1), progress.ClipRecord{
				Status:    progress.ClipUploaded,
				PublishAt: "2026-09-07T09:00:00Z",
			})
			b.store.AddQuota("upload", 1600, b.now())
		}
	}()
	for i := 0; i < 200; i++ {
		b.HandleMessage("chan1", "!schedule")
		b.HandleMessage("chan1", "!status")
		b.HandleMessage("chan1", "!quota")
	}
	<-done
}

func TestNotifyProgress_EditsAreRateLimited(t *testing.T) {
	b, fm := testBot(t, true)

	handle := b.NotifyProgress("[----] 0%")
	handle.Update("[----] 0%") // unchanged, skipped
	handle.Update("[##--] 50%")
	handle.Update("[####] 100%") // within a second of the previous edit

	assert.Equal(t, 1, fm.sentCount())
	assert.Equal(t, []string{"[##--] 50%"}, fm.edits)
}
