package pipeline

import (
	"context"
	"fmt"

	"clipcut/ffmpeg"
	"clipcut/tempfs"
)

const (
	TransitionNone     = "none"
	TransitionFade     = "fade"
	TransitionDissolve = "dissolve"
	TransitionWipe     = "wipe"
	TransitionSlide    = "slide"
)

// xfadeOffset is where the cross-fade starts, in seconds into the first clip.
const xfadeOffset = 5.0

var xfadeNames = map[string]string{
	TransitionDissolve: "fade",
	TransitionWipe:     "wiperight",
	TransitionSlide:    "slideleft",
}

// transitionGraph returns the -filter_complex graph for kind. Unknown kinds
// and "none" fall back to a plain two-input concat.
func transitionGraph(kind string, duration float64) ffmpeg.FilterGraph {
	if kind == TransitionFade {
		return ffmpeg.FilterGraph{
			{
				Inputs:  []string{"0:v"},
				Filters: ffmpeg.FilterChain{ffmpeg.Format("yuva420p"), ffmpeg.Fade("out", duration, duration)},
				Outputs: []string{"fv1"},
			},
			{
				Inputs:  []string{"1:v"},
				Filters: ffmpeg.FilterChain{ffmpeg.Format("yuva420p"), ffmpeg.Fade("in", 0, duration)},
				Outputs: []string{"fv2"},
			},
			{
				Inputs:  []string{"fv1", "fv2"},
				Filters: ffmpeg.FilterChain{ffmpeg.Overlay("yuv420")},
				Outputs: []string{"outv"},
			},
		}
	}

	filter := ffmpeg.Concat(2)
	if name, ok := xfadeNames[kind]; ok {
		filter = ffmpeg.XFade(name, duration, xfadeOffset)
	}
	return ffmpeg.FilterGraph{{
		Inputs:  []string{"0:v", "1:v"},
		Filters: ffmpeg.FilterChain{filter},
		Outputs: []string{"outv"},
	}}
}

// transitionJob composites a (first) and b (second) into output.
func transitionJob(name, a, b, kind string, duration float64, videoCodec, output string) ffmpeg.Job {
	return ffmpeg.Job{
		Name: name,
		Args: []string{
			"-y",
			"-i", a,
			"-i", b,
			"-filter_complex", transitionGraph(kind, duration).String(),
			"-map", "[outv]",
			"-c:v", videoCodec,
			output,
		},
		Output: output,
	}
}

// compositePairs runs one transition job per adjacent pair and returns the
// N-1 composited artifacts in timeline order. The pairs overlap: artifact i
// appears in composite i-1 and composite i.
func (p *Pipeline) compositePairs(ctx context.Context, r *run, wd *tempfs.WorkDir, pl *plan, artifacts []string) ([]string, error) {
	out := make([]string, 0, len(artifacts)-1)
	for i := 0; i < len(artifacts)-1; i++ {
		if err := r.checkCanceled(ctx); err != nil {
			return nil, err
		}
		op := fmt.Sprintf("transition %d/%d", i+1, len(artifacts)-1)
		r.logf("%s (%s, %ss)", op, pl.transition, ffmpeg.Seconds(pl.transitionDuration))

		dest := wd.Path(fmt.Sprintf("transition_%03d_%03d.%s", i, i+1, intermediateExt))
		job := transitionJob(op, artifacts[i], artifacts[i+1], pl.transition, pl.transitionDuration, pl.profile.VideoCodec, dest)
		if stderr, err := p.exec.Run(ctx, job); err != nil {
			return nil, toolError(KindTransitionFailed, op, stderr, err)
		}
		out = append(out, dest)
	}
	return out, nil
}
