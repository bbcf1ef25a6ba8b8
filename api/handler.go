package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"clipcut/config"
	"clipcut/ffmpeg"
	"clipcut/pipeline"
	"clipcut/project"
	"clipcut/task"

	"github.com/gin-gonic/gin"
)

// Previewer renders single-segment previews synchronously.
type Previewer interface {
	Preview(ctx context.Context, req pipeline.PreviewRequest) (string, error)
}

// Media is the ffmpeg/ffprobe surface used outside the edit pipeline.
type Media interface {
	CheckTools() error
	Version(ctx context.Context) (string, error)
	Probe(ctx context.Context, path string) (*ffmpeg.Metadata, error)
	Thumbnail(ctx context.Context, input string) (string, error)
	KeyFrames(ctx context.Context, input string, count int) ([]string, error)
}

// Services bundles everything the handlers depend on.
type Services struct {
	Tasks     *task.Manager
	Previewer Previewer
	Media     Media
	Projects  *project.Store
}

type Handler struct {
	svc Services
	cfg *config.Config
}

func NewHandler(svc Services, cfg *config.Config) *Handler {
	return &Handler{
		svc: svc,
		cfg: cfg,
	}
}

// errorStatus maps a pipeline error kind to an HTTP status.
func errorStatus(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidRequest:
		return http.StatusBadRequest
	case pipeline.KindToolNotInstalled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {error, message, details}.
func respondError(c *gin.Context, err error) {
	var pe *pipeline.Error
	switch {
	case errors.As(err, &pe):
		body := gin.H{"error": string(pe.Kind), "message": pe.Message(), "details": err.Error()}
		if pe.Diagnostics != "" {
			body["diagnostics"] = pe.Diagnostics
		}
		c.JSON(errorStatus(pe.Kind), body)
	case errors.Is(err, ffmpeg.ErrToolNotFound):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   string(pipeline.KindToolNotInstalled),
			"message": "ffmpeg and ffprobe must be installed and on PATH",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalError", "message": "Request failed", "details": err.Error()})
	}
}

// handleCreateEdit queues an edit request.
func (h *Handler) handleCreateEdit(c *gin.Context) {
	var req pipeline.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	t, err := h.svc.Tasks.Submit(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": t.ID})
}

// handleListEdits lists all edit tasks.
func (h *Handler) handleListEdits(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Tasks.List())
}

// handleGetEdit retrieves the status of a single edit task.
func (h *Handler) handleGetEdit(c *gin.Context) {
	taskID := c.Param("taskId")
	t, found := h.svc.Tasks.Get(taskID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// handleCancelEdit cancels a queued or running edit task.
func (h *Handler) handleCancelEdit(c *gin.Context) {
	taskID := c.Param("taskId")
	err := h.svc.Tasks.Cancel(taskID)
	switch {
	case errors.Is(err, task.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Task cancellation requested"})
	}
}

// buildDownloadURL constructs the full URL for a file in the preview directory.
func (h *Handler) buildDownloadURL(c *gin.Context, path string) string {
	if path == "" {
		return ""
	}

	baseURL := h.cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	filename := filepath.Base(path)
	return fmt.Sprintf("%s/api/v1/files/%s", baseURL, filename)
}

// handleGetFile serves a preview, thumbnail or key frame.
func (h *Handler) handleGetFile(c *gin.Context) {
	filename := c.Param("filename")
	filePath, err := h.svc.Tasks.GetFilePath(filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.File(filePath)
}
