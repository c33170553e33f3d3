package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// LLMService handles text generation against an OpenAI-compatible
// chat-completions endpoint. Extraction and planning both run through it.
type LLMService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// LLMConfig holds configuration for the LLM service.
type LLMConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewLLMService creates a new LLM service.
// Parameters:
//   - cfg: LLM configuration including model, API key, and base URL.
// Returns:
//   - *LLMService: initialized LLM client wrapper.
func NewLLMService(cfg *LLMConfig) *LLMService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	// Set timeout to prevent hanging requests
	client.SetTimeout(120 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &LLMService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// GetModel returns the model name being used.
func (s *LLMService) GetModel() string {
	return s.model
}

// OpenAI-compatible Chat Completion API request/response structures
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for text, []interface{} for user with images
}

type chatTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatImageContent struct {
	Type     string       `json:"type"`
	ImageURL chatImageURL `json:"image_url"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends a system+user prompt pair and returns the model's reply.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - system: system prompt defining the task.
//   - user: user prompt carrying the input material.
// Returns:
//   - string: generated text.
//   - error: non-nil if the API request fails.
func (s *LLMService) Complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	return s.send(ctx, &req)
}

// DescribeDocument transcribes a document page (image or PDF rendered as an
// image) via the vision path of the chat endpoint.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - data: raw document bytes.
//   - mimeType: MIME type of the document (image/png, application/pdf, ...).
//   - prompt: instruction for the vision model.
// Returns:
//   - string: transcribed text content.
//   - error: non-nil if the API request fails.
func (s *LLMService) DescribeDocument(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []interface{}{
					chatTextContent{Type: "text", Text: prompt},
					chatImageContent{Type: "image_url", ImageURL: chatImageURL{URL: dataURL}},
				},
			},
		},
	}
	return s.send(ctx, &req)
}

func (s *LLMService) send(ctx context.Context, req *chatRequest) (string, error) {
	var result chatResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if resp.IsError() {
		if result.Error != nil {
			return "", fmt.Errorf("llm API error: %s", result.Error.Message)
		}
		return "", fmt.Errorf("llm API returned status %d", resp.StatusCode())
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
