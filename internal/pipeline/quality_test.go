package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/granitehq/granite/internal/domain"
)

func TestQualityHandler(t *testing.T) {
	h := NewQualityHandler()
	job := &domain.Job{ID: "job-1"}

	tests := []struct {
		name    string
		in      *Output
		wantErr string
	}{
		{
			name: "valid video passes",
			in:   &Output{Video: fakeMP4()},
		},
		{
			name:    "nil input",
			in:      nil,
			wantErr: "no video",
		},
		{
			name:    "empty video",
			in:      &Output{Video: nil},
			wantErr: "no video",
		},
		{
			name:    "too small",
			in:      &Output{Video: append(make([]byte, 4), []byte("ftyp")...)},
			wantErr: "too small",
		},
		{
			name: "wrong container",
			in: &Output{Video: func() []byte {
				b := make([]byte, 2048)
				copy(b[4:8], []byte("riff"))
				return b
			}()},
			wantErr: "not a valid mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Run(context.Background(), tt.in, job)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Run failed: %v", err)
				}
				if out != tt.in {
					t.Error("quality stage modified the video output")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Run returned %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLooksLikeMP4(t *testing.T) {
	if !looksLikeMP4(fakeMP4()) {
		t.Error("ftyp payload rejected")
	}
	if looksLikeMP4([]byte("ftyp")) {
		t.Error("truncated payload accepted")
	}
	if looksLikeMP4(make([]byte, 64)) {
		t.Error("zeroed payload accepted")
	}
}
