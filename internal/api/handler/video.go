package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/granitehq/granite/internal/artifact"
	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/logger"
)

// VideoHandler streams completed artifacts.
type VideoHandler struct {
	store     jobstore.Store
	artifacts *artifact.Store
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(store jobstore.Store, artifacts *artifact.Store) *VideoHandler {
	return &VideoHandler{store: store, artifacts: artifacts}
}

// Video handles GET /api/video/:id. The artifact streams only for
// completed jobs; the 404 body distinguishes unknown, unfinished, and
// failed jobs for better client diagnostics.
func (h *VideoHandler) Video(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	job, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		logger.CtxError(ctx, "Failed to read job %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job"})
		return
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		// fall through to streaming
	case domain.JobStatusFailed:
		c.JSON(http.StatusNotFound, gin.H{"error": "generation failed"})
		return
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "video not ready"})
		return
	}

	reader, size, err := h.artifacts.Load(ctx, id)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "video not ready"})
			return
		}
		logger.CtxError(ctx, "Failed to load artifact for job %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load video"})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, size, "video/mp4", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`inline; filename="%s.mp4"`, id),
	})
}
