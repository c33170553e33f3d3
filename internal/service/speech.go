package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// SpeechService synthesizes narration audio through an OpenAI-compatible
// text-to-speech endpoint.
type SpeechService struct {
	client   *resty.Client
	model    string
	voice    string
	endpoint string
}

// SpeechConfig holds configuration for the speech service.
type SpeechConfig struct {
	Model   string
	Voice   string
	APIKey  string
	BaseURL string
}

// NewSpeechService creates a new speech synthesis service.
func NewSpeechService(cfg *SpeechConfig) *SpeechService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(5 * time.Minute)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	voice := cfg.Voice
	if voice == "" {
		voice = "alloy"
	}

	return &SpeechService{
		client:   client,
		model:    cfg.Model,
		voice:    voice,
		endpoint: baseURL + "/audio/speech",
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Synthesize converts the narrator script into audio bytes (mp3).
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - script: narration text to speak.
// Returns:
//   - []byte: encoded audio.
//   - error: non-nil if the API request fails or returns empty audio.
func (s *SpeechService) Synthesize(ctx context.Context, script string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&speechRequest{
			Model:          s.model,
			Voice:          s.voice,
			Input:          script,
			ResponseFormat: "mp3",
		}).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("speech API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	audio := resp.Body()
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech API returned empty audio")
	}
	return audio, nil
}
