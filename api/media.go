package api

import (
	"errors"
	"io/fs"
	"net/http"

	"clipcut/pipeline"
	"clipcut/tempfs"

	"github.com/gin-gonic/gin"
)

const maxKeyFrames = 100

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type keyFramesRequest struct {
	Path  string `json:"path" binding:"required"`
	Count int    `json:"count" binding:"required,min=1"`
}

type fileResponse struct {
	OutputPath  string `json:"outputPath"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": string(pipeline.KindInvalidRequest), "message": "Invalid request body", "details": err.Error()})
}

// handlePreview renders one segment synchronously.
func (h *Handler) handlePreview(c *gin.Context) {
	var req pipeline.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.svc.Previewer.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fileResponse{OutputPath: out, DownloadURL: h.buildDownloadURL(c, out)})
}

// handleProbe returns media metadata for a local file.
func (h *Handler) handleProbe(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	meta, err := h.svc.Media.Probe(c.Request.Context(), req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

// handleCheckFFmpeg reports whether the tools are installed. It never fails.
func (h *Handler) handleCheckFFmpeg(c *gin.Context) {
	if err := h.svc.Media.CheckTools(); err != nil {
		c.JSON(http.StatusOK, gin.H{"installed": false, "error": err.Error()})
		return
	}
	version, err := h.svc.Media.Version(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"installed": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"installed": true, "version": version})
}

// handleThumbnail grabs a single frame at 15% of the duration.
func (h *Handler) handleThumbnail(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.svc.Media.Thumbnail(c.Request.Context(), req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fileResponse{OutputPath: out, DownloadURL: h.buildDownloadURL(c, out)})
}

// handleKeyFrames grabs count evenly spaced frames.
func (h *Handler) handleKeyFrames(c *gin.Context) {
	var req keyFramesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Count > maxKeyFrames {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(pipeline.KindInvalidRequest), "message": "Too many frames requested"})
		return
	}
	paths, err := h.svc.Media.KeyFrames(c.Request.Context(), req.Path, req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	frames := make([]fileResponse, 0, len(paths))
	for _, p := range paths {
		frames = append(frames, fileResponse{OutputPath: p, DownloadURL: h.buildDownloadURL(c, p)})
	}
	c.JSON(http.StatusOK, gin.H{"frames": frames})
}

// handleDeleteTempFile removes a file only if its path looks temporary.
func (h *Handler) handleDeleteTempFile(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := tempfs.RemoveTempPath(req.Path, h.cfg.AppNamespace)
	switch {
	case errors.Is(err, tempfs.ErrNotTempPath):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "File deleted"})
	}
}
