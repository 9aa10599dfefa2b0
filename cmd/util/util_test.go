package util

import (
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Expected lines of at most %d characters, got %d: %q", Wrap, len(line), line)
		}
	}

	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("Expected %q, got %q", "short text", got)
	}
	if got := WrapString(""); got != "" {
		t.Errorf("Expected empty string, got %q", got)
	}
}
