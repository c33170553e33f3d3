package pipeline

import "testing"

func TestExtractScript(t *testing.T) {
	tests := []struct {
		name string
		plan string
		want string
	}{
		{
			name: "inline form",
			plan: "Scene 1: Introduction\nNarrator Script: Welcome to the lesson.\n",
			want: "Welcome to the lesson.",
		},
		{
			name: "block form ends at next section",
			plan: "Scene 1\nNarrator Script:\nFirst sentence.\nSecond sentence.\nVisual Description: a circle\n",
			want: "First sentence. Second sentence.",
		},
		{
			name: "multiple scenes joined in order",
			plan: "Scene 1\nNarrator Script: Part one.\nScene 2\nNarrator Script: Part two.\n",
			want: "Part one. Part two.",
		},
		{
			name: "markdown decoration stripped",
			plan: "**Narrator Script:** \"The derivative measures change.\"\n",
			want: "The derivative measures change.",
		},
		{
			name: "blank line ends block",
			plan: "Narrator Script:\nOnly this line.\n\nNot narration anymore.\n",
			want: "Only this line.",
		},
		{
			name: "numbered scene header ends block",
			plan: "Narrator Script:\nScript text.\n1. Next step\nLeftover.\n",
			want: "Script text.",
		},
		{
			name: "no markers falls back to whole plan",
			plan: "  A plan with no script sections at all.  ",
			want: "A plan with no script sections at all.",
		},
		{
			name: "case insensitive label",
			plan: "narrator script: lowercase works too.\n",
			want: "lowercase works too.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractScript(tt.plan); got != tt.want {
				t.Errorf("ExtractScript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsSectionHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Scene 2: The Proof", true},
		{"## Scene 3", true},
		{"Visual Description: a rotating square", true},
		{"Duration: 30 seconds", true},
		{"Title: Pythagoras", true},
		{"1. First build the triangle", true},
		{"2) Then label the sides", true},
		{"The hypotenuse is the longest side.", false},
		{"42 is not a header without punctuation", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isSectionHeader(tt.line); got != tt.want {
			t.Errorf("isSectionHeader(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
