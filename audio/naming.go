package audio

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var segmentSuffix = regexp.MustCompile(`_segment_\d+$`)

// SegmentName returns the file name of segment n (1-based) of a source.
// ext includes the leading dot.
func SegmentName(stem string, n int, ext string) string {
	return fmt.Sprintf("%s_segment_%d%s", stem, n, ext)
}

// StripSegmentSuffix removes a trailing _segment_<n> from a stem so every
// segment of a source maps to the same logical name.
func StripSegmentSuffix(stem string) string {
	return segmentSuffix.ReplaceAllString(stem, "")
}

// IsSegmentFile reports whether path already looks like a segment.
func IsSegmentFile(path string) bool {
	stem, _ := splitExt(filepath.Base(path))
	return segmentSuffix.MatchString(stem)
}

func splitExt(base string) (stem, ext string) {
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}
