package media

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ClipFilename builds the canonical clip name for the 1-based clip number,
// e.g. "lecture part 3.mp4" for source "lecture.mkv".
func ClipFilename(source string, clipNumber int) string {
	stem := strings.TrimSuffix(source, filepath.Ext(source))
	return fmt.Sprintf("%s part %d.mp4", stem, clipNumber)
}

// ParseClipNumber recovers the clip number from a clip filename produced by
// ClipFilename. ok is false for names that do not follow the convention.
func ParseClipNumber(clipName string) (int, bool) {
	stem := strings.TrimSuffix(clipName, filepath.Ext(clipName))
	idx := strings.LastIndex(stem, " part ")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(stem[idx+len(" part "):])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// SourceStem recovers the source-video stem from a clip filename. ok is
// false for names that do not follow the convention.
func SourceStem(clipName string) (string, bool) {
	stem := strings.TrimSuffix(clipName, filepath.Ext(clipName))
	idx := strings.LastIndex(stem, " part ")
	if idx < 0 {
		return "", false
	}
	if _, ok := ParseClipNumber(clipName); !ok {
		return "", false
	}
	return stem[:idx], true
}

// TitleCaseStem turns a source filename into a human title:
// "my_video.file.mp4" becomes "My Video File".
func TitleCaseStem(source string) string {
	stem := strings.TrimSuffix(source, filepath.Ext(source))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, ".", " ")
	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
