package pipeline

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/prompts"
	"github.com/granitehq/granite/internal/service"
	"github.com/granitehq/granite/internal/storage"
)

// ExtractionHandler turns the job input (uploaded document and/or concept
// text) into a structured content summary.
//
// When both a document and a concept are supplied, the document drives
// extraction and the concept is passed along as supplementary focus
// context.
type ExtractionHandler struct {
	llm     *service.LLMService
	storage storage.ObjectStorage
}

// NewExtractionHandler creates the extraction stage handler.
func NewExtractionHandler(llm *service.LLMService, objectStorage storage.ObjectStorage) *ExtractionHandler {
	return &ExtractionHandler{llm: llm, storage: objectStorage}
}

// Run implements Handler.
func (h *ExtractionHandler) Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error) {
	material, err := h.sourceMaterial(ctx, job)
	if err != nil {
		return nil, err
	}

	var user strings.Builder
	if job.DocumentKey != "" {
		user.WriteString(prompts.ExtractionDocumentPrompt)
	} else {
		user.WriteString(prompts.ExtractionConceptPrompt)
	}
	user.WriteString("\n\n")
	user.WriteString(material)
	if job.DocumentKey != "" && job.Concept != "" {
		user.WriteString("\n\n")
		user.WriteString(prompts.ExtractionFocusPrompt)
		user.WriteString(" ")
		user.WriteString(job.Concept)
	}

	summary, err := h.llm.Complete(ctx, prompts.ExtractionSystemPrompt, user.String())
	if err != nil {
		return nil, fmt.Errorf("content extraction failed: %w", err)
	}

	return &Output{Text: summary}, nil
}

// sourceMaterial resolves the raw material for extraction: the uploaded
// document's text when present, the concept text otherwise.
func (h *ExtractionHandler) sourceMaterial(ctx context.Context, job *domain.Job) (string, error) {
	if job.DocumentKey == "" {
		if strings.TrimSpace(job.Concept) == "" {
			return "", fmt.Errorf("job has neither document nor concept")
		}
		return job.Concept, nil
	}

	reader, err := h.storage.Download(ctx, job.DocumentKey)
	if err != nil {
		return "", fmt.Errorf("failed to download document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	mimeType := documentMIMEType(job.DocumentName)

	// Plain text documents go straight into the prompt; PDFs and images
	// are transcribed through the vision path.
	if strings.HasPrefix(mimeType, "text/") && utf8.Valid(data) {
		return string(data), nil
	}

	text, err := h.llm.DescribeDocument(ctx, data, mimeType, prompts.DocumentVisionPrompt)
	if err != nil {
		return "", fmt.Errorf("document transcription failed: %w", err)
	}
	return text, nil
}

func documentMIMEType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}
