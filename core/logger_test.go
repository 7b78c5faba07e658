package core

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// TestDefaultLogger_Format tests the inline field rendering
// Main test items:
// 1. The level tag and message appear on one line
// 2. Fields are rendered inside braces, comma separated
// 3. A message without fields has no brace block
func TestDefaultLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	l := NewDefaultLogger()
	l.Info("system started", F("workers", 4), F("id", "abc"))
	l.Error("bare message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[INFO] system started {workers: 4, id: abc}") {
		t.Errorf("Unexpected info line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] bare message") || strings.Contains(lines[1], "{") {
		t.Errorf("Unexpected error line: %q", lines[1])
	}
}
