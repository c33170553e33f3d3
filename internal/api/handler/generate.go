package handler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/logger"
	"github.com/granitehq/granite/internal/pipeline"
	"github.com/granitehq/granite/internal/storage"
	_ "golang.org/x/image/webp"
)

// maxUploadSize caps uploaded documents at 25 MB.
const maxUploadSize = 25 << 20

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".txt":  true,
	".md":   true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// GenerateHandler handles video generation submissions.
type GenerateHandler struct {
	store        jobstore.Store
	orchestrator *pipeline.Orchestrator
	storage      storage.ObjectStorage
}

// NewGenerateHandler creates a new generate handler.
// Parameters:
//   - store: job registry.
//   - orchestrator: pipeline orchestrator jobs are submitted to.
//   - objectStorage: destination for uploaded documents.
// Returns:
//   - *GenerateHandler: initialized handler.
func NewGenerateHandler(store jobstore.Store, orchestrator *pipeline.Orchestrator, objectStorage storage.ObjectStorage) *GenerateHandler {
	return &GenerateHandler{
		store:        store,
		orchestrator: orchestrator,
		storage:      objectStorage,
	}
}

// Generate handles POST /api/generate.
//
// The multipart body carries an optional document under "file" and an
// optional topic description under "concept". At least one is required;
// a request with neither is rejected and creates no job.
func (h *GenerateHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	concept := strings.TrimSpace(c.PostForm("concept"))
	file, err := c.FormFile("file")
	if err != nil && err != http.ErrMissingFile {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid multipart body: " + err.Error(),
		})
		return
	}

	if file == nil && concept == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Provide at least a file or a concept description.",
		})
		return
	}

	jobID := uuid.New().String()
	job := &domain.Job{
		ID:           jobID,
		Status:       domain.JobStatusQueued,
		CurrentStage: domain.StageQueued,
		Message:      "Waiting for an available worker",
		Concept:      concept,
	}

	if file != nil {
		key, name, err := h.storeDocument(c, jobID, file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		job.DocumentKey = key
		job.DocumentName = name
	}

	if err := h.store.Create(ctx, job); err != nil {
		logger.CtxError(ctx, "Failed to create job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	if err := h.orchestrator.Submit(jobID); err != nil {
		// The job record stays queued; it is recovered on restart.
		logger.CtxWarn(ctx, "Job queue saturated: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Server is at capacity, please retry shortly",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": jobID})
}

// storeDocument validates the upload and persists it under a job-scoped
// storage key.
func (h *GenerateHandler) storeDocument(c *gin.Context, jobID string, file *multipart.FileHeader) (key, name string, err error) {
	if file.Size > maxUploadSize {
		return "", "", fmt.Errorf("file exceeds the %d MB upload limit", maxUploadSize>>20)
	}

	name = filepath.Base(file.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", "", fmt.Errorf("unsupported file type %q", ext)
	}

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("uploaded file is empty")
	}

	// Reject corrupt images up front rather than failing mid-pipeline.
	if imageExtensions[ext] {
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", "", fmt.Errorf("uploaded image could not be decoded")
		}
	}

	key = fmt.Sprintf("uploads/%s/%s", jobID, name)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.storage.Upload(c.Request.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", "", fmt.Errorf("failed to store upload: %w", err)
	}
	return key, name, nil
}
