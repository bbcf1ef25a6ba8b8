package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"clipcut/config"
	"clipcut/pipeline"
	"clipcut/tempfs"

	"github.com/lithammer/shortuuid/v4"
)

var (
	ErrNotFound      = errors.New("task not found")
	ErrNotCancelable = errors.New("task cannot be canceled")
)

// Editor runs one edit to completion.
type Editor interface {
	Run(ctx context.Context, req pipeline.EditRequest, progress pipeline.ProgressFunc) (string, error)
}

// ResourceChecker gates the start of a task on free system resources.
type ResourceChecker interface {
	CheckResources() error
}

type Manager struct {
	cfg            *config.Config
	tasks          sync.Map // More scalable than a mutex-protected map
	taskQueue      chan *Task
	concurrencySem chan struct{}
	editor         Editor
	resources      ResourceChecker
}

func NewManager(cfg *config.Config, editor Editor) (*Manager, error) {
	if editor == nil {
		return nil, errors.New("task manager needs an editor")
	}
	m := &Manager{
		cfg:            cfg,
		taskQueue:      make(chan *Task, 100), // Buffered queue
		concurrencySem: make(chan struct{}, cfg.MaxConcurrency),
		editor:         editor,
	}
	return m, nil
}

// WithResourceChecker gates every task on rc before it starts.
func (m *Manager) WithResourceChecker(rc ResourceChecker) *Manager {
	m.resources = rc
	return m
}

func (m *Manager) Start(ctx context.Context) {
	log.Println("Task manager started. Concurrency limit:", m.cfg.MaxConcurrency)
	go m.cleanupLoop(ctx)
	go m.workerLoop(ctx)
}

// workerLoop pulls tasks from the queue and processes them
func (m *Manager) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Worker loop shutting down.")
			return
		case t := <-m.taskQueue:
			// Wait for a free processing slot
			select {
			case m.concurrencySem <- struct{}{}:
			case <-ctx.Done():
				log.Println("Worker loop shutting down.")
				return
			}
			go func(t *Task) {
				defer func() { <-m.concurrencySem }() // Release slot
				m.processTask(ctx, t)
			}(t)
		}
	}
}

// processTask runs one edit. The pipeline itself bounds each ffmpeg stage
// with FF_TIMEOUT; the task context only carries cancellation.
func (m *Manager) processTask(parentCtx context.Context, t *Task) {
	taskCtx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var canceled bool
	t.update(func(t *Task) {
		// Check if task was canceled while in queue
		if t.Status == StatusCanceled {
			canceled = true
			return
		}
		t.Status = StatusProcessing
		t.StartedAt = time.Now()
		t.cancelFunc = cancel
	})
	if canceled {
		log.Printf("Task %s was canceled before processing.", t.ID)
		return
	}

	if m.resources != nil {
		if err := m.resources.CheckResources(); err != nil {
			log.Printf("Task %s rejected: %v", t.ID, err)
			m.finish(t, "", fmt.Errorf("insufficient resources: %w", err))
			return
		}
	}

	log.Printf("Processing task %s", t.ID)
	output, err := m.editor.Run(taskCtx, t.Request, func(fraction float64) {
		t.update(func(t *Task) { t.Progress = fraction })
	})
	m.finish(t, output, err)
}

func (m *Manager) finish(t *Task, output string, err error) {
	t.update(func(t *Task) {
		t.cancelFunc = nil
		t.CompletedAt = time.Now()
		switch {
		case err == nil:
			t.Status = StatusCompleted
			t.OutputPath = output
			t.Progress = 1
		case pipeline.IsCanceled(err):
			t.Status = StatusCanceled
			t.Error = "Task was canceled"
			t.ErrorKind = pipeline.KindCanceled
		default:
			t.Status = StatusFailed
			t.Error = err.Error()
			var pe *pipeline.Error
			if errors.As(err, &pe) {
				t.ErrorKind = pe.Kind
				t.Diagnostics = pe.Diagnostics
			}
		}
	})

	switch {
	case err == nil:
		log.Printf("Task %s completed successfully.", t.ID)
	case pipeline.IsCanceled(err):
		log.Printf("Task %s canceled.", t.ID)
	default:
		log.Printf("Task %s failed: %v", t.ID, err)
	}
}

// cleanupLoop periodically removes expired previews, thumbnails and key frames.
// Edit outputs belong to the caller and are never touched.
func (m *Manager) cleanupLoop(ctx context.Context) {
	interval := m.cfg.OutputLocalLifetime / 4 // Check 4 times per lifetime
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cleanup loop shutting down.")
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	dir := m.cfg.PreviewDir()
	n, err := tempfs.SweepOlderThan(dir, m.cfg.OutputLocalLifetime)
	if err != nil {
		log.Printf("Cleanup of %s failed: %v", dir, err)
		return
	}
	if n > 0 {
		log.Printf("Cleaned up %d expired file(s) in %s", n, dir)
	}
}

// Submit validates req and queues it. Invalid requests are rejected here so
// the caller gets the error synchronously.
func (m *Manager) Submit(req pipeline.EditRequest) (*Task, error) {
	if err := pipeline.Validate(req); err != nil {
		return nil, err
	}
	t := &Task{
		ID:        fmt.Sprintf("%s_%d", shortuuid.New(), time.Now().Unix()),
		Status:    StatusQueued,
		Request:   req,
		CreatedAt: time.Now(),
	}

	m.tasks.Store(t.ID, t)
	select {
	case m.taskQueue <- t:
	default:
		m.tasks.Delete(t.ID)
		return nil, errors.New("task queue is full")
	}
	log.Printf("Task %s submitted to queue.", t.ID)
	return t.Snapshot(), nil
}

// Get returns a snapshot of the task.
func (m *Manager) Get(taskID string) (*Task, bool) {
	if val, ok := m.tasks.Load(taskID); ok {
		return val.(*Task).Snapshot(), true
	}
	return nil, false
}

// List returns snapshots of every task, oldest first.
func (m *Manager) List() []*Task {
	taskList := []*Task{}
	m.tasks.Range(func(key, value interface{}) bool {
		taskList = append(taskList, value.(*Task).Snapshot())
		return true
	})
	sort.Slice(taskList, func(i, j int) bool {
		return taskList[i].CreatedAt.Before(taskList[j].CreatedAt)
	})
	return taskList
}

// Cancel stops a queued task immediately. A processing task is signalled and
// stops at its next stage boundary.
func (m *Manager) Cancel(taskID string) error {
	val, ok := m.tasks.Load(taskID)
	if !ok {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	t := val.(*Task)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status.Done() {
		return fmt.Errorf("%w in state: %s", ErrNotCancelable, t.Status)
	}
	switch t.Status {
	case StatusQueued:
		t.Status = StatusCanceled
		t.Error = "Canceled by user while in queue"
		t.ErrorKind = pipeline.KindCanceled
		t.CompletedAt = time.Now()
		log.Printf("Task %s marked as canceled in queue.", t.ID)
	case StatusProcessing:
		if t.cancelFunc == nil {
			return fmt.Errorf("task %s is processing but has no cancellation handle", t.ID)
		}
		t.cancelFunc()
		log.Printf("Cancellation signal sent to running task %s.", t.ID)
	}
	return nil
}

// GetFilePath resolves a bare file name inside the preview directory.
func (m *Manager) GetFilePath(filename string) (string, error) {
	// Security: Prevent path traversal
	cleanFilename := filepath.Base(filename)
	if cleanFilename != filename || cleanFilename == "." || cleanFilename == ".." {
		return "", fmt.Errorf("invalid filename")
	}

	fullPath := filepath.Join(m.cfg.PreviewDir(), cleanFilename)
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found")
	}
	return fullPath, nil
}
