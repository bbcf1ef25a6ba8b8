package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipcut/ffmpeg"
	"clipcut/tempfs"
)

// manifest renders the concat demuxer list for paths, in order.
func manifest(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func concatJob(manifestPath, format, output string) ffmpeg.Job {
	videoCodec, audioCodec := OutputCodecs(format)
	return ffmpeg.Job{
		Name: "concat",
		Args: []string{
			"-y",
			"-f", "concat",
			"-safe", "0",
			"-i", manifestPath,
			"-c:v", videoCodec,
			"-c:a", audioCodec,
			"-strict", "-2",
			output,
		},
		Output: output,
	}
}

// stagingPath returns a hidden sibling of output that keeps its extension, so
// ffmpeg picks the same muxer.
func stagingPath(output, runID string) string {
	dir, base := filepath.Split(output)
	ext := filepath.Ext(base)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.partial%s", strings.TrimSuffix(base, ext), runID, ext))
}

// concatenate writes the manifest and re-encodes all artifacts into a staging
// file next to the output, then renames it into place. A failed encode leaves
// whatever was already at the output path untouched.
func (p *Pipeline) concatenate(ctx context.Context, wd *tempfs.WorkDir, pl *plan, artifacts []string) error {
	listPath := wd.Path("segments.txt")
	if err := os.WriteFile(listPath, []byte(manifest(artifacts)), 0o644); err != nil {
		return newError(KindIOFailed, "write manifest", err)
	}

	staging := stagingPath(pl.output, filepath.Base(wd.Dir()))
	wd.Track(staging)
	if stderr, err := p.exec.Run(ctx, concatJob(listPath, pl.format, staging)); err != nil {
		return toolError(KindConcatFailed, "concat", stderr, err)
	}
	if err := os.Rename(staging, pl.output); err != nil {
		return newError(KindIOFailed, "move output into place", err)
	}
	return nil
}
