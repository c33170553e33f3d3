package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatCompletionsServer(t *testing.T, handle func(body map[string]interface{}) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		status, reply := handle(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
}

func TestLLMComplete(t *testing.T) {
	srv := chatCompletionsServer(t, func(body map[string]interface{}) (int, string) {
		if body["model"] != "test-model" {
			t.Errorf("model = %v", body["model"])
		}
		messages := body["messages"].([]interface{})
		if len(messages) != 2 {
			t.Fatalf("got %d messages, want system+user", len(messages))
		}
		system := messages[0].(map[string]interface{})
		if system["role"] != "system" || system["content"] != "you summarize" {
			t.Errorf("system message = %v", system)
		}
		return http.StatusOK, `{"choices":[{"message":{"content":"a summary"}}]}`
	})
	defer srv.Close()

	s := NewLLMService(&LLMConfig{Model: "test-model", APIKey: "test-key", BaseURL: srv.URL})
	got, err := s.Complete(context.Background(), "you summarize", "some material")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "a summary" {
		t.Errorf("Complete returned %q", got)
	}
}

func TestLLMCompleteAPIError(t *testing.T) {
	srv := chatCompletionsServer(t, func(body map[string]interface{}) (int, string) {
		return http.StatusTooManyRequests, `{"error":{"message":"rate limited","type":"rate_limit"}}`
	})
	defer srv.Close()

	s := NewLLMService(&LLMConfig{Model: "m", APIKey: "test-key", BaseURL: srv.URL})
	_, err := s.Complete(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Complete returned %v, want the API error message", err)
	}
}

func TestLLMCompleteNoChoices(t *testing.T) {
	srv := chatCompletionsServer(t, func(body map[string]interface{}) (int, string) {
		return http.StatusOK, `{"choices":[]}`
	})
	defer srv.Close()

	s := NewLLMService(&LLMConfig{Model: "m", APIKey: "test-key", BaseURL: srv.URL})
	_, err := s.Complete(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("Complete returned %v, want a no-choices error", err)
	}
}

func TestLLMDescribeDocument(t *testing.T) {
	srv := chatCompletionsServer(t, func(body map[string]interface{}) (int, string) {
		messages := body["messages"].([]interface{})
		if len(messages) != 1 {
			t.Fatalf("got %d messages, want 1", len(messages))
		}
		user := messages[0].(map[string]interface{})
		parts := user["content"].([]interface{})
		if len(parts) != 2 {
			t.Fatalf("got %d content parts, want text+image", len(parts))
		}
		img := parts[1].(map[string]interface{})
		url := img["image_url"].(map[string]interface{})["url"].(string)
		if !strings.HasPrefix(url, "data:image/png;base64,") {
			t.Errorf("image url = %q, want a data url", url)
		}
		return http.StatusOK, `{"choices":[{"message":{"content":"transcribed text"}}]}`
	})
	defer srv.Close()

	s := NewLLMService(&LLMConfig{Model: "m", APIKey: "test-key", BaseURL: srv.URL})
	got, err := s.DescribeDocument(context.Background(), []byte{0x89, 0x50}, "image/png", "transcribe this")
	if err != nil {
		t.Fatalf("DescribeDocument failed: %v", err)
	}
	if got != "transcribed text" {
		t.Errorf("DescribeDocument returned %q", got)
	}
}
