package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary the service relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if path, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		} else {
			status.Available = true
			status.Detail = path
		}
		results = append(results, status)
	}
	return results
}

// Requirements lists the binaries this runner invokes.
func (r *Runner) Requirements() []Requirement {
	return []Requirement{
		{Name: "ffmpeg", Command: r.cfg.FFBin, Description: "cuts, composites and encodes segments"},
		{Name: "ffprobe", Command: r.cfg.FFProbeBin, Description: "reads media metadata"},
	}
}

// CheckTools fails with ErrToolNotFound unless both ffmpeg and ffprobe resolve.
func (r *Runner) CheckTools() error {
	var missing []string
	for _, s := range CheckBinaries(r.Requirements()) {
		if !s.Available {
			missing = append(missing, s.Detail)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrToolNotFound, strings.Join(missing, "; "))
	}
	return nil
}

// Version returns the first line of `ffmpeg -version`.
func (r *Runner) Version(ctx context.Context) (string, error) {
	var out bytes.Buffer
	stderr, err := r.exec(ctx, r.cfg.FFBin, []string{"-version"}, &out)
	if err != nil {
		return "", fmt.Errorf("ffmpeg -version failed: %w: %s", err, strings.TrimSpace(stderr))
	}
	line, _, _ := strings.Cut(out.String(), "\n")
	return strings.TrimSpace(line), nil
}
