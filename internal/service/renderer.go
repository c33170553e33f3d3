package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RenderService talks to the rendering sidecar that executes animation
// code and muxes audio onto video. Rendering is the expensive, GPU-bound
// part of the pipeline and runs out of process.
type RenderService struct {
	client  *resty.Client
	baseURL string
}

// RenderConfig holds configuration for the render service.
type RenderConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewRenderService creates a client for the rendering sidecar.
func NewRenderService(cfg *RenderConfig) *RenderService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}

	client := resty.New()
	client.SetTimeout(timeout)

	return &RenderService{
		client:  client,
		baseURL: cfg.BaseURL,
	}
}

type renderRequest struct {
	Plan string `json:"plan"`
}

// RenderAnimation submits a lesson plan and returns the silent animation
// video (mp4).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - plan: scene-by-scene lesson plan text.
// Returns:
//   - []byte: rendered mp4 bytes.
//   - error: non-nil if rendering fails.
func (s *RenderService) RenderAnimation(ctx context.Context, plan string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&renderRequest{Plan: plan}).
		Post(s.baseURL + "/render")
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("render service returned status %d: %s", resp.StatusCode(), resp.String())
	}

	video := resp.Body()
	if len(video) == 0 {
		return nil, fmt.Errorf("render service returned empty video")
	}
	return video, nil
}

// Compose muxes the narration audio onto the animation video and returns
// the final mp4.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - video: silent animation mp4 bytes.
//   - audio: narration audio bytes.
// Returns:
//   - []byte: composed mp4 bytes.
//   - error: non-nil if composition fails.
func (s *RenderService) Compose(ctx context.Context, video, audio []byte) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("video", "animation.mp4", bytes.NewReader(video)).
		SetFileReader("audio", "narration.mp3", bytes.NewReader(audio)).
		Post(s.baseURL + "/compose")
	if err != nil {
		return nil, fmt.Errorf("compose request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("render service returned status %d: %s", resp.StatusCode(), resp.String())
	}

	composed := resp.Body()
	if len(composed) == 0 {
		return nil, fmt.Errorf("render service returned empty video")
	}
	return composed, nil
}
