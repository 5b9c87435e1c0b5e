package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestProduce_SplitError(t *testing.T) {
	p := NewProducer(&fakeSplitter{err: fmt.Errorf("ffmpeg exploded")}, &fakeSubtitler{}, &fakeNotifier{}, quietLogger())

	_, err := p.Produce(context.Background(), "v.mp4", 1)
	assert.Error(t, err)
}

func TestProduce_SubtitlesDisabled(t *testing.T) {
	dir := t.TempDir()
	clip := tempFile(t, dir, "v part 1.mp4")

	p := NewProducer(&fakeSplitter{paths: map[int]string{1: clip}}, &fakeSubtitler{enabled: false}, &fakeNotifier{}, quietLogger())

	got, err := p.Produce(context.Background(), "v.mp4", 1)
	require.NoError(t, err)
	assert.Equal(t, clip, got)
}

func TestProduce_SubtitleFailureFallsBackToPlainClip(t *testing.T) {
	dir := t.TempDir()
	clip := tempFile(t, dir, "v part 1.mp4")

	tests := []struct {
		name string
		subs *fakeSubtitler
	}{
		{"generation fails", &fakeSubtitler{enabled: true, generateErr: fmt.Errorf("whisper down")}},
		{"burn fails", &fakeSubtitler{enabled: true, srtPath: tempFile(t, dir, "v part 1.srt"), burnErr: fmt.Errorf("ffmpeg down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProducer(&fakeSplitter{paths: map[int]string{1: clip}}, tt.subs, &fakeNotifier{}, quietLogger())

			got, err := p.Produce(context.Background(), "v.mp4", 1)
			require.NoError(t, err)
			assert.Equal(t, clip, got, "segmentation work is kept")
			assert.FileExists(t, clip)
		})
	}
}

func TestProduce_SubtitledClipReplacesBase(t *testing.T) {
	dir := t.TempDir()
	clip := tempFile(t, dir, "v part 1.mp4")
	srt := tempFile(t, dir, "v part 1.srt")
	burned := tempFile(t, dir, "v part 1_subtitled.mp4")

	subs := &fakeSubtitler{enabled: true, srtPath: srt, burnedPath: burned}
	p := NewProducer(&fakeSplitter{paths: map[int]string{1: clip}}, subs, &fakeNotifier{}, quietLogger())

	got, err := p.Produce(context.Background(), "v.mp4", 1)
	require.NoError(t, err)
	assert.Equal(t, burned, got)
	assert.NoFileExists(t, clip, "base clip removed after burn")
	assert.NoFileExists(t, srt, "srt removed after burn")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[────────────────────] 0.0%", progressBar(0))
	assert.Equal(t, "[██████████──────────] 50.0%", progressBar(50))
	assert.Equal(t, "[████████████████████] 100.0%", progressBar(100))
}
