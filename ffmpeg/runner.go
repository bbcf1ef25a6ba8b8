package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"strings"

	"clipcut/config"
)

// ErrToolNotFound is returned when ffmpeg or ffprobe cannot be executed.
var ErrToolNotFound = errors.New("media tool not installed")

type Runner struct {
	cfg        *config.Config
	globalArgs []string
}

func NewRunner(cfg *config.Config) (*Runner, error) {
	globalArgs, err := SplitCommand(cfg.FFGlobalArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid FF_GLOBAL_ARGS: %w", err)
	}
	if err := SanitizeGlobalArgs(globalArgs); err != nil {
		return nil, fmt.Errorf("invalid FF_GLOBAL_ARGS: %w", err)
	}

	if err := os.MkdirAll(cfg.PreviewDir(), 0o755); err != nil {
		return nil, fmt.Errorf("could not create preview directory: %w", err)
	}
	log.Printf("Using temp root %s, preview directory %s", cfg.TempRoot, cfg.PreviewDir())

	return &Runner{
		cfg:        cfg,
		globalArgs: globalArgs,
	}, nil
}

// Run executes one job and blocks until the subprocess exits. It returns the
// tool's stderr verbatim. On failure the job's output file is removed so a
// partial artifact is never left behind.
//
// Cancellation of ctx does not interrupt a running job; only FF_TIMEOUT does.
func (r *Runner) Run(ctx context.Context, job Job) (string, error) {
	stageCtx := context.WithoutCancel(ctx)
	if r.cfg.FFTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, r.cfg.FFTimeout)
		defer cancel()
	}

	args := append(append([]string{}, r.globalArgs...), job.Args...)
	log.Printf("Executing %s: %s %s", job.Name, r.cfg.FFBin, strings.Join(args, " "))

	stderr, err := r.exec(stageCtx, r.cfg.FFBin, args, io.Discard)
	if err != nil {
		if job.Output != "" {
			if rmErr := os.Remove(job.Output); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Printf("Could not remove partial output %s: %v", job.Output, rmErr)
			}
		}
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
			return stderr, fmt.Errorf("%s timed out after %s: %w", job.Name, r.cfg.FFTimeout, err)
		}
		return stderr, fmt.Errorf("%s failed: %w", job.Name, err)
	}
	return stderr, nil
}

// exec runs bin with args, writing stdout to the given writer and returning stderr.
func (r *Runner) exec(ctx context.Context, bin string, args []string, stdout io.Writer) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var errBuf bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if err != nil && (errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)) {
		return errBuf.String(), fmt.Errorf("%w: %s", ErrToolNotFound, bin)
	}
	return errBuf.String(), err
}
