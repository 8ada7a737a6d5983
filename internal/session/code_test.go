package session_test

import (
	"testing"

	"github.com/codebuddy-labs/codebuddy/internal/session"
)

const runnableMessage = "Here you go:\n```python\nprint('hi')\n// run\n```"

func TestHasRunnableCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"fenced block with marker", runnableMessage, true},
		{"marker with spaced slashes", "```python\nx = 1\n//  run\n```", true},
		{"fenced block without marker", "```python\nprint('hi')\n```", false},
		{"marker without fence", "can you // run this for me?", false},
		{"plain text", "what is a variable?", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := session.HasRunnableCode(tt.text); got != tt.want {
				t.Errorf("HasRunnableCode(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractCode(t *testing.T) {
	got := session.ExtractCode(runnableMessage)
	if got != "print('hi')" {
		t.Errorf("ExtractCode() = %q, want fence, language tag and run marker stripped", got)
	}
}

func TestExtractCode_NoLanguageTag(t *testing.T) {
	got := session.ExtractCode("```\nx = 5\n// run\n```")
	if got != "x = 5" {
		t.Errorf("ExtractCode() = %q, want %q", got, "x = 5")
	}
}

func TestExtractCode_FirstBlockOnly(t *testing.T) {
	text := "```python\nfirst()\n// run\n```\nand also\n```python\nsecond()\n```"
	got := session.ExtractCode(text)
	if got != "first()" {
		t.Errorf("ExtractCode() = %q, want only the first block", got)
	}
}

func TestExtractCode_NoBlock(t *testing.T) {
	if got := session.ExtractCode("no code here"); got != "" {
		t.Errorf("ExtractCode() = %q, want empty", got)
	}
}
