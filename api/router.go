package api

import (
	"clipcut/config"

	"github.com/gin-gonic/gin"
)

func SetupRouter(svc Services, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	h := NewHandler(svc, cfg)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(cfg))
	{
		// Async edit endpoints
		v1.POST("/edits", h.handleCreateEdit)
		v1.GET("/edits", h.handleListEdits)
		v1.GET("/edits/:taskId", h.handleGetEdit)
		v1.PATCH("/edits/:taskId/cancel", h.handleCancelEdit)

		// Synchronous media endpoints
		v1.POST("/preview", h.handlePreview)
		v1.POST("/probe", h.handleProbe)
		v1.GET("/ffmpeg", h.handleCheckFFmpeg)
		v1.POST("/thumbnail", h.handleThumbnail)
		v1.POST("/keyframes", h.handleKeyFrames)
		v1.DELETE("/temp-files", h.handleDeleteTempFile)

		// Previews, thumbnails and key frames
		v1.GET("/files/:filename", h.handleGetFile)

		if svc.Projects != nil {
			v1.GET("/projects", h.handleListProjects)
			v1.GET("/projects/:projectId", h.handleGetProject)
			v1.PUT("/projects/:projectId", h.handleSaveProject)
			v1.DELETE("/projects/:projectId", h.handleDeleteProject)
		}
	}
	return r
}
