package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipcut/ffmpeg"
	"clipcut/tempfs"

	"github.com/lithammer/shortuuid/v4"
)

// previewProfile is a fixed 720p H.264 encode.
var previewProfile = EncodeProfile{
	Format:     "mp4",
	Quality:    "preview",
	VideoCodec: "libx264",
	AudioCodec: "aac",
	Width:      1280,
	Height:     720,
}

// previewJob is cutJob with the preview profile and no bitrate target.
func previewJob(input string, s Segment, chain ffmpeg.FilterChain, output string) ffmpeg.Job {
	filters := append(previewProfile.Filters(), chain...)
	args := []string{
		"-y",
		"-ss", ffmpeg.Seconds(s.Start),
		"-i", input,
		"-t", ffmpeg.Seconds(s.Duration()),
	}
	args = append(args, filters.Args()...)
	args = append(args, "-c:v", previewProfile.VideoCodec, "-c:a", "aac", "-strict", "experimental", output)
	return ffmpeg.Job{Name: "preview", Args: args, Output: output}
}

// Preview renders a single segment at 720p into the preview directory and
// returns the file path. The caller owns the returned file.
func (p *Pipeline) Preview(ctx context.Context, req PreviewRequest) (string, error) {
	if p.tools != nil {
		if err := p.tools.CheckTools(); err != nil {
			return "", newError(KindToolNotInstalled, "check tools", err)
		}
	}
	if strings.TrimSpace(req.InputPath) == "" {
		return "", newError(KindInvalidRequest, "preview", errors.New("input_path is required"))
	}
	if !req.Segment.Valid() {
		return "", newError(KindInvalidRequest, "preview",
			fmt.Errorf("invalid time range [%v, %v)", req.Segment.Start, req.Segment.End))
	}
	if err := p.checkInputSize(req.InputPath); err != nil {
		return "", err
	}

	previewDir := p.opts.PreviewDir
	if previewDir == "" {
		previewDir = filepath.Join(p.opts.TempRoot, p.opts.Namespace+"_preview")
	}
	if err := os.MkdirAll(previewDir, 0o755); err != nil {
		return "", newError(KindIOFailed, "create preview directory", err)
	}

	wd, err := tempfs.NewWorkDir(p.opts.TempRoot, p.opts.Namespace)
	if err != nil {
		return "", newError(KindIOFailed, "create work directory", err)
	}
	defer wd.Cleanup()

	var subtitlePath string
	if wantsCaption(req.AddSubtitles, req.Segment) {
		subtitlePath = wd.Path("subtitle.srt")
		if err := writeSubtitle(subtitlePath, req.Segment.Content, req.Segment.Duration()); err != nil {
			return "", err
		}
	}

	out := filepath.Join(previewDir, fmt.Sprintf("preview_%s.mp4", shortuuid.New()))
	chain := segmentFilters(floatOr(req.Volume, defaultVolume), subtitlePath)
	if stderr, err := p.exec.Run(ctx, previewJob(req.InputPath, req.Segment, chain, out)); err != nil {
		return "", toolError(KindRenderFailed, "preview", stderr, err)
	}
	return out, nil
}
