package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/granitehq/granite/internal/domain"
	"github.com/granitehq/granite/internal/service"
)

// NarrationHandler extracts the combined narrator script from the lesson
// plan and synthesizes it to audio. The animation video from the previous
// stage rides through untouched.
type NarrationHandler struct {
	speech *service.SpeechService
}

// NewNarrationHandler creates the narration stage handler.
func NewNarrationHandler(speech *service.SpeechService) *NarrationHandler {
	return &NarrationHandler{speech: speech}
}

// Run implements Handler.
func (h *NarrationHandler) Run(ctx context.Context, in *Output, job *domain.Job) (*Output, error) {
	if in == nil || strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("narration received empty lesson plan")
	}
	if len(in.Video) == 0 {
		return nil, fmt.Errorf("narration received no animation video")
	}

	script := ExtractScript(in.Text)
	if script == "" {
		return nil, fmt.Errorf("lesson plan contains no narrator script")
	}

	audio, err := h.speech.Synthesize(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("narration synthesis failed: %w", err)
	}

	return &Output{
		Text:        in.Text,
		Video:       in.Video,
		Audio:       audio,
		ContentType: in.ContentType,
	}, nil
}

// ExtractScript combines all "Narrator Script" sections of a lesson plan
// into one continuous narration. When the plan carries no recognizable
// script markers, the whole plan text is used as a fallback.
func ExtractScript(plan string) string {
	var parts []string
	inScript := false

	scanner := bufio.NewScanner(strings.NewReader(plan))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)

		if idx := strings.Index(lower, "narrator script"); idx != -1 {
			inScript = true
			// Inline form: "Narrator Script: <text>"
			if colon := strings.Index(line[idx:], ":"); colon != -1 {
				rest := strings.TrimSpace(line[idx+colon+1:])
				rest = strings.Trim(rest, "*_\" ")
				if rest != "" {
					parts = append(parts, rest)
					inScript = false
				}
			}
			continue
		}

		if !inScript {
			continue
		}
		// A new labelled section or scene header ends the script block.
		if line == "" || isSectionHeader(line) {
			inScript = false
			continue
		}
		parts = append(parts, strings.Trim(line, "*_\" "))
	}

	script := strings.TrimSpace(strings.Join(parts, " "))
	if script == "" {
		return strings.TrimSpace(plan)
	}
	return script
}

// isSectionHeader reports whether a plan line starts a new labelled
// section (scene number, "Visual Description", "Duration", ...).
func isSectionHeader(line string) bool {
	trimmed := strings.TrimLeft(line, "#*-• \t")
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, label := range []string{"scene", "visual description", "duration", "title"} {
		if strings.HasPrefix(lower, label) {
			return true
		}
	}
	r := rune(trimmed[0])
	return unicode.IsDigit(r) && strings.ContainsAny(trimmed, ".)")
}
