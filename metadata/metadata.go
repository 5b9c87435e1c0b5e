// Package metadata builds the YouTube title, description and tags for a clip.
package metadata

import (
	"fmt"
	"strings"

	"shortsbot/config"
	"shortsbot/media"
	"shortsbot/types"
)

// Builder renders per-clip upload metadata from the configured templates.
type Builder struct {
	cfg *config.Config
}

// New creates a metadata Builder.
func New(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// ForClip builds the metadata for one clip of a source video. The playlist ID
// is interpolated into the description so every part links back to the series.
func (b *Builder) ForClip(sourceName string, clipNumber int, playlistID string) *types.VideoMetadata {
	baseTitle := media.TitleCaseStem(sourceName)
	title := fmt.Sprintf("%s - Part %d #shorts", baseTitle, clipNumber)

	playlistLink := fmt.Sprintf("https://www.youtube.com/playlist?list=%s", playlistID)
	hashtags := strings.Join(b.cfg.DefaultHashtags, " ")

	description := b.cfg.DescriptionTemplate
	description = strings.ReplaceAll(description, "{title}", baseTitle)
	description = strings.ReplaceAll(description, "{playlist_link}", playlistLink)
	description = strings.ReplaceAll(description, "{hashtags}", hashtags)

	return &types.VideoMetadata{
		Title:       title,
		Description: description,
		Tags:        b.cfg.DefaultHashtags,
		CategoryID:  b.cfg.YouTube.DefaultCategoryID,
	}
}

// PlaylistTitle names the per-source playlist after the source video.
func PlaylistTitle(sourceName string) string {
	return media.TitleCaseStem(sourceName)
}
