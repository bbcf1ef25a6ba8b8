package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"clipcut/ffmpeg"
	"clipcut/tempfs"
)

// intermediateExt is the container used for every artifact between stages.
// Matroska accepts any codec pairing, including aac audio next to VP9 video.
const intermediateExt = "mkv"

// segmentFilters builds the per-segment chain: volume first, then subtitles.
// subtitlePath is empty when no caption is burned in.
func segmentFilters(volume float64, subtitlePath string) ffmpeg.FilterChain {
	var chain ffmpeg.FilterChain
	if math.Abs(volume-1.0) > 0.01 {
		chain = append(chain, ffmpeg.Volume(volume))
	}
	if subtitlePath != "" {
		chain = append(chain, ffmpeg.Subtitles(subtitlePath))
	}
	return chain
}

// wantsCaption reports whether a segment gets a burned-in caption.
func wantsCaption(subtitles bool, s Segment) bool {
	return subtitles && strings.TrimSpace(s.Content) != ""
}

// cutJob trims [start, end) from input, applies the profile scale followed by
// the segment chain, and encodes with aac audio.
func cutJob(name, input string, s Segment, profile EncodeProfile, chain ffmpeg.FilterChain, output string) ffmpeg.Job {
	filters := append(append(ffmpeg.FilterChain{}, profile.Filters()...), chain...)

	args := []string{
		"-y",
		"-ss", ffmpeg.Seconds(s.Start),
		"-i", input,
		"-t", ffmpeg.Seconds(s.Duration()),
	}
	args = append(args, filters.Args()...)
	args = append(args, profile.VideoArgs()...)
	args = append(args, "-c:a", "aac", "-strict", "experimental", output)

	return ffmpeg.Job{Name: name, Args: args, Output: output}
}

// renderSegment writes the optional caption file and cuts one segment into an
// intermediate artifact inside wd.
func (p *Pipeline) renderSegment(ctx context.Context, wd *tempfs.WorkDir, pl *plan, s indexedSegment) (string, error) {
	op := fmt.Sprintf("render segment %d", s.index)

	var subtitlePath string
	if wantsCaption(pl.subtitles, s.Segment) {
		subtitlePath = wd.Path(fmt.Sprintf("subtitle_%03d.srt", s.index))
		if err := writeSubtitle(subtitlePath, s.Content, s.Duration()); err != nil {
			return "", err
		}
	}

	dest := wd.Path(fmt.Sprintf("segment_%03d.%s", s.index, intermediateExt))
	job := cutJob(op, pl.input, s.Segment, pl.profile, segmentFilters(pl.volume, subtitlePath), dest)
	if stderr, err := p.exec.Run(ctx, job); err != nil {
		return "", toolError(KindRenderFailed, op, stderr, err)
	}
	return dest, nil
}
