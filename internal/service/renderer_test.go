package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRenderAnimation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["plan"] != "scene 1: draw a circle" {
			t.Errorf("plan = %q", req["plan"])
		}
		w.Write([]byte("silent-mp4"))
	}))
	defer srv.Close()

	s := NewRenderService(&RenderConfig{BaseURL: srv.URL})
	video, err := s.RenderAnimation(context.Background(), "scene 1: draw a circle")
	if err != nil {
		t.Fatalf("RenderAnimation failed: %v", err)
	}
	if string(video) != "silent-mp4" {
		t.Errorf("RenderAnimation returned %q", video)
	}
}

func TestRenderAnimationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scene compilation failed", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewRenderService(&RenderConfig{BaseURL: srv.URL})
	_, err := s.RenderAnimation(context.Background(), "bad plan")
	if err == nil || !strings.Contains(err.Error(), "scene compilation failed") {
		t.Errorf("RenderAnimation returned %v, want the sidecar error", err)
	}
}

func TestCompose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compose" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		for field, want := range map[string]string{"video": "vvv", "audio": "aaa"} {
			f, _, err := r.FormFile(field)
			if err != nil {
				t.Fatalf("missing %s part: %v", field, err)
			}
			data, _ := io.ReadAll(f)
			f.Close()
			if string(data) != want {
				t.Errorf("%s part = %q, want %q", field, data, want)
			}
		}
		w.Write([]byte("final-mp4"))
	}))
	defer srv.Close()

	s := NewRenderService(&RenderConfig{BaseURL: srv.URL})
	composed, err := s.Compose(context.Background(), []byte("vvv"), []byte("aaa"))
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if string(composed) != "final-mp4" {
		t.Errorf("Compose returned %q", composed)
	}
}

func TestComposeEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewRenderService(&RenderConfig{BaseURL: srv.URL})
	_, err := s.Compose(context.Background(), []byte("v"), []byte("a"))
	if err == nil || !strings.Contains(err.Error(), "empty video") {
		t.Errorf("Compose returned %v, want an empty-video error", err)
	}
}
