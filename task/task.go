package task

import (
	"context"
	"sync"
	"time"

	"clipcut/pipeline"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Done reports whether the status is terminal.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

type Task struct {
	ID          string               `json:"id"`
	Status      Status               `json:"status"`
	Progress    float64              `json:"progress"`
	Request     pipeline.EditRequest `json:"request"`
	OutputPath  string               `json:"outputPath,omitempty"`
	Error       string               `json:"error,omitempty"`
	ErrorKind   pipeline.Kind        `json:"errorKind,omitempty"`
	Diagnostics string               `json:"diagnostics,omitempty"` // Stderr from ffmpeg
	CreatedAt   time.Time            `json:"createdAt"`
	StartedAt   time.Time            `json:"startedAt,omitempty"`
	CompletedAt time.Time            `json:"completedAt,omitempty"`

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// Snapshot returns a copy of the task that is safe to read and serialize
// while the task keeps running.
func (t *Task) Snapshot() *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Task{
		ID:          t.ID,
		Status:      t.Status,
		Progress:    t.Progress,
		Request:     t.Request,
		OutputPath:  t.OutputPath,
		Error:       t.Error,
		ErrorKind:   t.ErrorKind,
		Diagnostics: t.Diagnostics,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

func (t *Task) update(fn func(t *Task)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t)
}
