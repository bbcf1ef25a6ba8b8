package pipeline

import (
	"fmt"
	"os"
)

// srtCue renders a single SubRip cue spanning [0, duration). The end time is
// truncated to whole seconds and the hours field is always 00, so durations
// of an hour or more show up as minutes > 59.
func srtCue(text string, duration float64) string {
	secs := int(duration)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("1\n00:00:00,000 --> 00:%02d:%02d,000\n%s\n\n", secs/60, secs%60, text)
}

// writeSubtitle writes the caption for one segment to path.
func writeSubtitle(path, text string, duration float64) error {
	if err := os.WriteFile(path, []byte(srtCue(text, duration)), 0o644); err != nil {
		return newError(KindSubtitleWriteFailed, "write subtitle", err)
	}
	return nil
}
