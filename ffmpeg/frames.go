package ffmpeg

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

// ThumbnailJob grabs one 320px-wide frame at 15% of the input.
func ThumbnailJob(input, output string) Job {
	return Job{
		Name: "thumbnail",
		Args: append(append([]string{"-y", "-ss", "15%", "-i", input, "-vframes", "1"},
			FilterChain{Scale(320, -1)}.Args()...),
			"-q:v", "2", "-f", "image2", output),
		Output: output,
	}
}

// FrameJob grabs one full-size frame at position seconds.
func FrameJob(input string, position float64, output string) Job {
	return Job{
		Name:   fmt.Sprintf("frame at %ss", Seconds(position)),
		Args:   []string{"-y", "-ss", Seconds(position), "-i", input, "-vframes", "1", "-q:v", "2", "-f", "image2", output},
		Output: output,
	}
}

// FramePositions spreads count positions evenly over duration, excluding both ends.
func FramePositions(duration float64, count int) []float64 {
	if count <= 0 || duration <= 0 {
		return nil
	}
	step := duration / float64(count+1)
	positions := make([]float64, count)
	for i := range positions {
		positions[i] = step * float64(i+1)
	}
	return positions
}

// Thumbnail writes a thumbnail into the preview directory and returns its path.
func (r *Runner) Thumbnail(ctx context.Context, input string) (string, error) {
	if err := r.CheckTools(); err != nil {
		return "", err
	}
	out := filepath.Join(r.cfg.PreviewDir(), fmt.Sprintf("thumb_%s.jpg", shortuuid.New()))
	if stderr, err := r.Run(ctx, ThumbnailJob(input, out)); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
	}
	return out, nil
}

// KeyFrames extracts count evenly spaced frames and returns their paths in timeline order.
func (r *Runner) KeyFrames(ctx context.Context, input string, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", count)
	}
	meta, err := r.Probe(ctx, input)
	if err != nil {
		return nil, err
	}

	batch := shortuuid.New()
	var paths []string
	for i, pos := range FramePositions(meta.Duration, count) {
		out := filepath.Join(r.cfg.PreviewDir(), fmt.Sprintf("frame_%s_%d.jpg", batch, i+1))
		if stderr, err := r.Run(ctx, FrameJob(input, pos, out)); err != nil {
			for _, p := range paths {
				if rmErr := os.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
					log.Printf("Could not remove frame %s: %v", p, rmErr)
				}
			}
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
		}
		paths = append(paths, out)
	}
	return paths, nil
}
