package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/prompts"
	"github.com/granitehq/granite/internal/service"
)

// PlanningHandler turns the extracted content summary into a
// scene-by-scene lesson plan with narrator scripts and visual
// descriptions.
type PlanningHandler struct {
	llm *service.LLMService
}

// NewPlanningHandler creates the planning stage handler.
func NewPlanningHandler(llm *service.LLMService) *PlanningHandler {
	return &PlanningHandler{llm: llm}
}

// Run implements Handler.
func (h *PlanningHandler) Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error) {
	if in == nil || strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("planning received empty content summary")
	}

	plan, err := h.llm.Complete(ctx, prompts.PlanningSystemPrompt,
		prompts.PlanningUserPrompt+"\n\n"+in.Text)
	if err != nil {
		return nil, fmt.Errorf("lesson planning failed: %w", err)
	}
	if strings.TrimSpace(plan) == "" {
		return nil, fmt.Errorf("planner produced an empty lesson plan")
	}

	return &Output{Text: plan}, nil
}
