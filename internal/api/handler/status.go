package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/logger"
)

// StatusHandler serves job status snapshots to polling clients.
type StatusHandler struct {
	store jobstore.Store
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(store jobstore.Store) *StatusHandler {
	return &StatusHandler{store: store}
}

// StatusResponse is the polling contract: one snapshot of a job.
type StatusResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	CurrentStep string `json:"current_step"`
	Progress    int    `json:"progress"`
	Message     string `json:"message"`
	Error       string `json:"error,omitempty"`
}

// Status handles GET /api/status/:id. It is a pure read, safe to call
// arbitrarily often while the pipeline runs.
func (h *StatusHandler) Status(c *gin.Context) {
	id := c.Param("id")

	job, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		logger.CtxError(c.Request.Context(), "Failed to read job %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStage),
		Progress:    job.Progress,
		Message:     job.Message,
		Error:       job.Error,
	})
}
