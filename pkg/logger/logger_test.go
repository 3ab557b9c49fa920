package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONOutputCarriesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Opts{Env: "production", Level: "info", Writer: &buf})

	log.WithComponent("FeedCoordinator").Info("Feed loaded", "count", 3)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not a single JSON line: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Feed loaded" {
		t.Fatalf("message = %v", entry["message"])
	}
	if entry["component"] != "FeedCoordinator" {
		t.Fatalf("component = %v", entry["component"])
	}
	if entry["count"] != float64(3) {
		t.Fatalf("count = %v", entry["count"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(Opts{Env: "production", Level: "warn", Writer: &buf})

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug/info leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn missing: %q", out)
	}
}
