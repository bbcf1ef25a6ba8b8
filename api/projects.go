package api

import (
	"errors"
	"io"
	"net/http"

	"clipcut/project"

	"github.com/gin-gonic/gin"
)

func projectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, project.ErrInvalidID), errors.Is(err, project.ErrInvalidJSON):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) handleListProjects(c *gin.Context) {
	list, err := h.svc.Projects.List(c.Request.Context())
	if err != nil {
		projectError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) handleGetProject(c *gin.Context) {
	p, err := h.svc.Projects.Get(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		projectError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleSaveProject stores the raw request body as the project content.
func (h *Handler) handleSaveProject(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.Projects.Save(c.Request.Context(), c.Param("projectId"), body)
	if err != nil {
		projectError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) handleDeleteProject(c *gin.Context) {
	if err := h.svc.Projects.Delete(c.Request.Context(), c.Param("projectId")); err != nil {
		projectError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
