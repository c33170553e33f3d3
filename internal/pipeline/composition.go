package pipeline

import (
	"context"
	"fmt"

	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/service"
)

// CompositionHandler muxes the narration audio onto the animation video,
// producing the final playable artifact.
type CompositionHandler struct {
	renderer *service.RenderService
}

// NewCompositionHandler creates the composition stage handler.
func NewCompositionHandler(renderer *service.RenderService) *CompositionHandler {
	return &CompositionHandler{renderer: renderer}
}

// Run implements Handler.
func (h *CompositionHandler) Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error) {
	if in == nil || len(in.Video) == 0 {
		return nil, fmt.Errorf("composition received no animation video")
	}
	if len(in.Audio) == 0 {
		return nil, fmt.Errorf("composition received no narration audio")
	}

	composed, err := h.renderer.Compose(ctx, in.Video, in.Audio)
	if err != nil {
		return nil, fmt.Errorf("video composition failed: %w", err)
	}

	return &Output{
		Video:       composed,
		ContentType: "video/mp4",
	}, nil
}
