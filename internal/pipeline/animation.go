package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/service"
)

// AnimationHandler renders the lesson plan into a silent animation video
// via the rendering sidecar. The plan text is carried forward so the
// narration stage can still read the scripts.
type AnimationHandler struct {
	renderer *service.RenderService
}

// NewAnimationHandler creates the animation stage handler.
func NewAnimationHandler(renderer *service.RenderService) *AnimationHandler {
	return &AnimationHandler{renderer: renderer}
}

// Run implements Handler.
func (h *AnimationHandler) Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error) {
	if in == nil || strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("animation received empty lesson plan")
	}

	video, err := h.renderer.RenderAnimation(ctx, in.Text)
	if err != nil {
		return nil, fmt.Errorf("animation rendering failed: %w", err)
	}

	return &Output{
		Text:        in.Text,
		Video:       video,
		ContentType: "video/mp4",
	}, nil
}
