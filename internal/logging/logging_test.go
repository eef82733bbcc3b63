package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Msg("hidden")
	log.Warn().Str("locus", "adk").Msg("skipping locus")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want only the warning, got %q", buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev["level"] != "warn" || ev["locus"] != "adk" || ev["message"] != "skipping locus" {
		t.Fatalf("event = %v", ev)
	}
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "", FormatConsole)
	if err != nil {
		t.Fatal(err)
	}
	log.Info().Int("loci", 7).Msg("scheme cache ready")
	if !strings.Contains(buf.String(), "scheme cache ready") || !strings.Contains(buf.String(), "loci=7") {
		t.Fatalf("console output = %q", buf.String())
	}
}

func TestInvalidSettings(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", FormatJSON); err == nil {
		t.Fatal("want level error")
	}
	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatal("want format error")
	}
}
