// Package pipeline sequences the fixed six-stage video generation
// pipeline and owns the worker pool that drives jobs through it.
package pipeline

import (
	"context"
	"fmt"

	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/service"
	"github.com/granitehq/granite/internal/storage"
)

// Output is the value handed from one stage to the next. Each stage sees
// only the immediately preceding stage's output; binary payloads ride in
// the named slots so the linear chain can carry video and audio together.
type Output struct {
	// Text carries textual payloads: extracted content, lesson plan.
	Text string

	// Video carries the animation or composed mp4 bytes.
	Video []byte

	// Audio carries the synthesized narration bytes.
	Audio []byte

	// ContentType describes the primary binary payload.
	ContentType string

	// Meta carries small key/value annotations between stages.
	Meta map[string]string
}

// Handler implements the logic for one pipeline stage. The orchestrator
// is agnostic to what a stage actually does.
type Handler interface {
	// Run executes the stage against the previous stage's output. The
	// first stage receives an Output built from the job's input fields.
	Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error)
}

// HandlerFunc adapts a function to the Handler interface. Tests use it
// for deterministic fakes.
type HandlerFunc func(ctx context.Context, in *Output, job *domain.Job) (*Output, error)

// Run calls f.
func (f HandlerFunc) Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error) {
	return f(ctx, in, job)
}

// Definition is the fixed ordered list of stages with their handlers.
// It is created once at process start and read-only thereafter.
type Definition struct {
	handlers map[domain.Stage]Handler
}

// NewDefinition binds handlers to the fixed stage order. Every stage in
// domain.Stages must have a handler.
func NewDefinition(handlers map[domain.Stage]Handler) (*Definition, error) {
	for _, st := range domain.Stages {
		if handlers[st] == nil {
			return nil, fmt.Errorf("no handler bound for stage %s", st)
		}
	}
	bound := make(map[domain.Stage]Handler, len(domain.Stages))
	for _, st := range domain.Stages {
		bound[st] = handlers[st]
	}
	return &Definition{handlers: bound}, nil
}

// DefaultHandlers builds the production stage handlers backed by the
// external generation services.
func DefaultHandlers(
	llm *service.LLMService,
	speech *service.SpeechService,
	renderer *service.RenderService,
	objectStorage storage.ObjectStorage,
) map[domain.Stage]Handler {
	return map[domain.Stage]Handler{
		domain.StageExtraction:  NewExtractionHandler(llm, objectStorage),
		domain.StagePlanning:    NewPlanningHandler(llm),
		domain.StageAnimation:   NewAnimationHandler(renderer),
		domain.StageNarration:   NewNarrationHandler(speech),
		domain.StageComposition: NewCompositionHandler(renderer),
		domain.StageQuality:     NewQualityHandler(),
	}
}

// Stages returns the pipeline order.
func (d *Definition) Stages() []domain.Stage {
	return domain.Stages
}

// Handler returns the handler bound to a stage.
func (d *Definition) Handler(st domain.Stage) Handler {
	return d.handlers[st]
}

// messageFor is the human-readable activity string shown to polling
// clients while a stage runs.
func messageFor(st domain.Stage) string {
	switch st {
	case domain.StageExtraction:
		return "Extracting educational content"
	case domain.StagePlanning:
		return "Planning the lesson"
	case domain.StageAnimation:
		return "Rendering the animation"
	case domain.StageNarration:
		return "Synthesizing the narration"
	case domain.StageComposition:
		return "Composing the final video"
	case domain.StageQuality:
		return "Checking video quality"
	default:
		return string(st)
	}
}
