package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/granitehq/granite/internal/artifact"
	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/jobstore"
	"github.com/granitehq/granite/internal/logger"
	"github.com/granitehq/granite/internal/pipeline"
	"github.com/granitehq/granite/internal/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.SetDefaultLogger(logger.New(&logger.Config{Level: "error", Output: io.Discard}))
	os.Exit(m.Run())
}

// fakeMP4 returns a payload the quality stage accepts.
func fakeMP4() []byte {
	b := make([]byte, 2048)
	copy(b[4:8], []byte("ftyp"))
	return b
}

type testEnv struct {
	store        *jobstore.MemoryStore
	artifacts    *artifact.Store
	objects      storage.ObjectStorage
	orchestrator *pipeline.Orchestrator
	router       *gin.Engine
}

// newTestEnv wires the API over an in-memory store and instant stage
// handlers so a submitted job completes within milliseconds.
func newTestEnv(t *testing.T, cfg *pipeline.OrchestratorConfig, start bool) *testEnv {
	t.Helper()

	store := jobstore.NewMemoryStore()
	objects, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	artifacts := artifact.NewStore(objects)

	handlers := make(map[domain.Stage]pipeline.Handler, len(domain.Stages))
	for _, st := range domain.Stages {
		handlers[st] = pipeline.HandlerFunc(func(ctx context.Context, in *pipeline.Output, job *domain.Job) (*pipeline.Output, error) {
			return &pipeline.Output{Text: in.Text, Video: fakeMP4()}, nil
		})
	}
	def, err := pipeline.NewDefinition(handlers)
	if err != nil {
		t.Fatalf("failed to build definition: %v", err)
	}

	if cfg == nil {
		cfg = &pipeline.OrchestratorConfig{Workers: 2, QueueSize: 16}
	}
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	orchestrator := pipeline.NewOrchestrator(store, artifacts, def, log, cfg)
	if start {
		orchestrator.Start()
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			orchestrator.Stop(ctx)
		})
	}

	r := gin.New()
	generateHandler := NewGenerateHandler(store, orchestrator, objects)
	statusHandler := NewStatusHandler(store)
	videoHandler := NewVideoHandler(store, artifacts)
	r.POST("/api/generate", generateHandler.Generate)
	r.GET("/api/status/:id", statusHandler.Status)
	r.GET("/api/video/:id", videoHandler.Video)

	return &testEnv{
		store:        store,
		artifacts:    artifacts,
		objects:      objects,
		orchestrator: orchestrator,
		router:       r,
	}
}

// multipartBody builds a generate request body with optional fields.
func multipartBody(t *testing.T, concept, filename string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if concept != "" {
		if err := w.WriteField("concept", concept); err != nil {
			t.Fatalf("failed to write concept field: %v", err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := fw.Write(fileData); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func postGenerate(env *testEnv, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, env *testEnv, path string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode %s response %q: %v", path, w.Body.String(), err)
		}
	}
	return w
}

func waitCompleted(t *testing.T, env *testEnv, id string) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := env.store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", id, err)
		}
		if job.Status.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", id)
	return nil
}

func TestGenerateRejectsEmptySubmission(t *testing.T) {
	env := newTestEnv(t, nil, true)

	body, contentType := multipartBody(t, "", "", nil)
	w := postGenerate(env, body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "file or a concept") {
		t.Errorf("body = %s", w.Body.String())
	}

	// No job record may exist for a rejected request.
	n, _ := env.store.Count(context.Background())
	if n != 0 {
		t.Errorf("store holds %d jobs after a rejected request", n)
	}
}

func TestGenerateWithConcept(t *testing.T) {
	env := newTestEnv(t, nil, true)

	body, contentType := multipartBody(t, "matrix multiplication", "", nil)
	w := postGenerate(env, body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("response carries no job_id")
	}

	job, err := env.store.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job was not persisted: %v", err)
	}
	if job.Concept != "matrix multiplication" {
		t.Errorf("job concept = %q", job.Concept)
	}
}

func TestGenerateWithDocument(t *testing.T) {
	env := newTestEnv(t, nil, true)

	body, contentType := multipartBody(t, "", "notes.txt", []byte("the chain rule"))
	w := postGenerate(env, body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		JobID string `json:"job_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	job, err := env.store.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job was not persisted: %v", err)
	}
	if job.DocumentName != "notes.txt" {
		t.Errorf("document name = %q", job.DocumentName)
	}
	if job.DocumentKey == "" {
		t.Fatal("job has no document key")
	}
	exists, err := env.objects.Exists(context.Background(), job.DocumentKey)
	if err != nil || !exists {
		t.Errorf("uploaded document missing from storage: exists=%v err=%v", exists, err)
	}
}

func TestGenerateRejectsUnsupportedFileType(t *testing.T) {
	env := newTestEnv(t, nil, true)

	body, contentType := multipartBody(t, "", "malware.exe", []byte("MZ"))
	w := postGenerate(env, body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unsupported file type") {
		t.Errorf("body = %s", w.Body.String())
	}
	n, _ := env.store.Count(context.Background())
	if n != 0 {
		t.Errorf("store holds %d jobs after a rejected upload", n)
	}
}

func TestGenerateRejectsEmptyFile(t *testing.T) {
	env := newTestEnv(t, nil, true)

	body, contentType := multipartBody(t, "", "empty.txt", nil)
	w := postGenerate(env, body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGenerateQueueSaturated(t *testing.T) {
	// A single queue slot and no workers running, so the second request
	// finds the queue full.
	env := newTestEnv(t, &pipeline.OrchestratorConfig{Workers: 1, QueueSize: 1}, false)

	body, contentType := multipartBody(t, "first", "", nil)
	if w := postGenerate(env, body, contentType); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}

	body, contentType = multipartBody(t, "second", "", nil)
	w := postGenerate(env, body, contentType)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("second request status = %d, want 503", w.Code)
	}

	// Both job records exist; the unscheduled one stays queued for
	// recovery instead of being lost.
	n, _ := env.store.Count(context.Background())
	if n != 2 {
		t.Errorf("store holds %d jobs, want 2", n)
	}
	queued, _ := env.store.ListByStatus(context.Background(), domain.JobStatusQueued, 0)
	if len(queued) != 2 {
		t.Errorf("%d jobs queued, want 2", len(queued))
	}
}

func TestStatusUnknownJob(t *testing.T) {
	env := newTestEnv(t, nil, true)

	var resp map[string]string
	w := getJSON(t, env, "/api/status/does-not-exist", &resp)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp["error"] != "job not found" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestFullGenerationFlow(t *testing.T) {
	env := newTestEnv(t, nil, true)

	body, contentType := multipartBody(t, "complex numbers", "", nil)
	w := postGenerate(env, body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}
	var created struct {
		JobID string `json:"job_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	done := waitCompleted(t, env, created.JobID)
	if done.Status != domain.JobStatusCompleted {
		t.Fatalf("job finished %s (error %q)", done.Status, done.Error)
	}

	var status StatusResponse
	sw := getJSON(t, env, "/api/status/"+created.JobID, &status)
	if sw.Code != http.StatusOK {
		t.Fatalf("status endpoint returned %d", sw.Code)
	}
	if status.Status != "completed" || status.Progress != 100 {
		t.Errorf("status = %+v", status)
	}
	if status.CurrentStep != "quality" {
		t.Errorf("current_step = %q, want quality", status.CurrentStep)
	}
	if status.Error != "" {
		t.Errorf("completed job reports error %q", status.Error)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/video/"+created.JobID, nil)
	vw := httptest.NewRecorder()
	env.router.ServeHTTP(vw, req)
	if vw.Code != http.StatusOK {
		t.Fatalf("video endpoint returned %d: %s", vw.Code, vw.Body.String())
	}
	if ct := vw.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(vw.Body.Bytes(), fakeMP4()) {
		t.Errorf("video body is %d bytes, want the stored artifact", vw.Body.Len())
	}
}

func TestVideoNotReady(t *testing.T) {
	env := newTestEnv(t, &pipeline.OrchestratorConfig{Workers: 1, QueueSize: 4}, false)

	// Job exists but has not run yet.
	env.store.Create(context.Background(), &domain.Job{
		ID:           "pending",
		Status:       domain.JobStatusQueued,
		CurrentStage: domain.StageQueued,
	})

	var resp map[string]string
	w := getJSON(t, env, "/api/video/pending", &resp)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp["error"] != "video not ready" {
		t.Errorf("error = %q, want \"video not ready\"", resp["error"])
	}
}

func TestVideoFailedJob(t *testing.T) {
	env := newTestEnv(t, nil, false)

	env.store.Create(context.Background(), &domain.Job{
		ID:     "broken",
		Status: domain.JobStatusFailed,
		Error:  "render exploded",
	})

	var resp map[string]string
	w := getJSON(t, env, "/api/video/broken", &resp)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp["error"] != "generation failed" {
		t.Errorf("error = %q, want \"generation failed\"", resp["error"])
	}
}

func TestVideoUnknownJob(t *testing.T) {
	env := newTestEnv(t, nil, false)

	var resp map[string]string
	w := getJSON(t, env, "/api/video/ghost", &resp)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if resp["error"] != "job not found" {
		t.Errorf("error = %q, want \"job not found\"", resp["error"])
	}
}
