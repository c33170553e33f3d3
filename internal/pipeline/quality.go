package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/granitehq/granite/internal/domain"
)

// minVideoSize is the smallest plausible final video. Anything below is
// a failed render, not a short lesson.
const minVideoSize = 1024

// QualityHandler performs the final checks on the composed video before
// it is published: the file must be non-trivial in size and carry an
// ISO base media file header. The video passes through unchanged.
type QualityHandler struct{}

// NewQualityHandler creates the quality stage handler.
func NewQualityHandler() *QualityHandler {
	return &QualityHandler{}
}

// Run implements Handler.
func (h *QualityHandler) Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error) {
	if in == nil || len(in.Video) == 0 {
		return nil, fmt.Errorf("quality check received no video")
	}
	if len(in.Video) < minVideoSize {
		return nil, fmt.Errorf("video too small to be valid: %d bytes", len(in.Video))
	}
	if !looksLikeMP4(in.Video) {
		return nil, fmt.Errorf("video is not a valid mp4 container")
	}
	return in, nil
}

// looksLikeMP4 checks for the ftyp box an ISO base media file starts with.
func looksLikeMP4(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp"))
}
