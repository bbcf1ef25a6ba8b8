// Package pipeline turns an EditRequest into a sequence of ffmpeg jobs:
// cut every segment, optionally composite adjacent pairs, then concatenate
// and re-encode into the requested container.
//
// A run is strictly sequential. Exactly one job is in flight at a time and
// the context is only consulted between jobs, so cancellation never leaves a
// half-written artifact. Whatever happens, every intermediate file the run
// created is removed before Run returns.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"clipcut/ffmpeg"
	"clipcut/tempfs"

	"github.com/lithammer/shortuuid/v4"
)

// Executor runs one job to completion and returns the tool's stderr.
type Executor interface {
	Run(ctx context.Context, job ffmpeg.Job) (diagnostics string, err error)
}

// ToolChecker reports whether the external tools can be invoked.
type ToolChecker interface {
	CheckTools() error
}

// State is a step of the run state machine.
type State string

const (
	StateValidating    State = "Validating"
	StateRendering     State = "Rendering"
	StateTransitioning State = "Transitioning"
	StateConcatenating State = "Concatenating"
	StateCleaningUp    State = "CleaningUp"
	StateDone          State = "Done"
	StateFailed        State = "Failed"
)

// Options configures where a pipeline writes its files.
type Options struct {
	// TempRoot is the parent of every per-run work directory.
	TempRoot string
	// Namespace prefixes work directory names.
	Namespace string
	// PreviewDir receives preview outputs, which outlive the run.
	PreviewDir string
	// MaxInputSize rejects larger inputs when > 0.
	MaxInputSize int64
}

type Pipeline struct {
	exec  Executor
	tools ToolChecker
	opts  Options
}

// New returns a pipeline that runs its jobs on exec. If exec also implements
// ToolChecker, tool availability is verified before every run.
func New(exec Executor, opts Options) *Pipeline {
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	if opts.Namespace == "" {
		opts.Namespace = "clipcut"
	}
	p := &Pipeline{exec: exec, opts: opts}
	if tc, ok := exec.(ToolChecker); ok {
		p.tools = tc
	}
	return p
}

// run carries the per-run state: id, current state and progress.
type run struct {
	id       string
	state    State
	progress *progressTracker
}

func (r *run) enter(s State) {
	log.Printf("Run %s: %s -> %s", r.id, r.state, s)
	r.state = s
}

func (r *run) logf(format string, args ...interface{}) {
	log.Printf("Run %s: "+format, append([]interface{}{r.id}, args...)...)
}

func (r *run) checkCanceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newError(KindCanceled, string(r.state), err)
	}
	return nil
}

// Run executes an edit and returns the output path. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, req EditRequest, progress ProgressFunc) (string, error) {
	r := &run{id: shortuuid.New(), state: StateValidating}
	r.progress = newProgressTracker(r.id, progress)
	r.logf("starting edit %s -> %s (%d segments)", req.InputPath, req.OutputPath, len(req.Segments))

	pl, err := p.validate(req)
	if err != nil {
		r.enter(StateFailed)
		return "", err
	}
	if dropped := len(req.Segments) - len(pl.segments); dropped > 0 {
		r.logf("ignoring %d segment(s) with end <= start", dropped)
	}

	wd, err := tempfs.NewWorkDir(p.opts.TempRoot, p.opts.Namespace)
	if err != nil {
		r.enter(StateFailed)
		return "", newError(KindIOFailed, "create work directory", err)
	}

	err = p.execute(ctx, r, wd, pl)

	r.enter(StateCleaningUp)
	if failed := wd.Cleanup(); failed > 0 {
		r.logf("%d temp artifact(s) could not be removed", failed)
	}

	if err != nil {
		r.enter(StateFailed)
		r.logf("edit failed: %v", err)
		return "", err
	}
	r.enter(StateDone)
	return pl.output, nil
}

func (p *Pipeline) validate(req EditRequest) (*plan, error) {
	if p.tools != nil {
		if err := p.tools.CheckTools(); err != nil {
			return nil, newError(KindToolNotInstalled, "check tools", err)
		}
	}
	pl, err := newPlan(req)
	if err != nil {
		return nil, err
	}
	if err := p.checkInputSize(pl.input); err != nil {
		return nil, err
	}
	return pl, nil
}

func (p *Pipeline) checkInputSize(input string) error {
	if p.opts.MaxInputSize <= 0 {
		return nil
	}
	info, err := os.Stat(input)
	if err != nil {
		return newError(KindInvalidRequest, "validate", fmt.Errorf("could not read input: %w", err))
	}
	if info.Size() > p.opts.MaxInputSize {
		return newError(KindInvalidRequest, "validate",
			fmt.Errorf("input file size %d exceeds limit of %d bytes", info.Size(), p.opts.MaxInputSize))
	}
	return nil
}

// execute drives Rendering, Transitioning and Concatenating. Cleanup is the caller's job.
func (p *Pipeline) execute(ctx context.Context, r *run, wd *tempfs.WorkDir, pl *plan) error {
	r.enter(StateRendering)
	artifacts := make([]string, 0, len(pl.segments))
	for i, s := range pl.segments {
		if err := r.checkCanceled(ctx); err != nil {
			return err
		}
		r.logf("rendering segment %d/%d [%ss, %ss)", i+1, len(pl.segments), ffmpeg.Seconds(s.Start), ffmpeg.Seconds(s.End))
		path, err := p.renderSegment(ctx, wd, pl, s)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, path)
		r.progress.report(float64(i+1) / float64(len(pl.segments)) * 0.6)
	}

	if pl.transition != TransitionNone && len(artifacts) > 1 {
		r.enter(StateTransitioning)
		r.progress.report(0.7)
		composited, err := p.compositePairs(ctx, r, wd, pl, artifacts)
		if err != nil {
			return err
		}
		artifacts = composited
	}

	if err := r.checkCanceled(ctx); err != nil {
		return err
	}
	r.enter(StateConcatenating)
	r.progress.report(0.9)
	if err := p.concatenate(ctx, wd, pl, artifacts); err != nil {
		return err
	}
	r.progress.report(1.0)
	return nil
}

// IsCanceled reports whether err is a pipeline cancellation.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled || errors.Is(err, context.Canceled)
}
