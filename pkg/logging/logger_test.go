package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	if err := logger.Info(CategoryJobs, "job_created", "job queued", map[string]any{"job_id": "abc"}); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if err := logger.Error(CategoryLLM, "generation_failed", "provider unreachable", nil); err != nil {
		t.Fatalf("Error: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "service.jsonl"))
	if len(events) != 2 {
		t.Fatalf("service log: got %d events, want 2", len(events))
	}
	if events[0].EventType != "job_created" || events[0].Category != CategoryJobs {
		t.Fatalf("unexpected first event: %+v", events[0])
	}

	errorEvents := readEvents(t, filepath.Join(dir, "errors.jsonl"))
	if len(errorEvents) != 1 {
		t.Fatalf("error log: got %d events, want 1", len(errorEvents))
	}
	if errorEvents[0].Level != LevelError {
		t.Fatalf("error log event has level %s", errorEvents[0].Level)
	}
}

func TestLoggerMinLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	// Default min level is info; debug must be filtered.
	if err := logger.Debug(CategoryAPI, "noise", "should not appear", nil); err != nil {
		t.Fatalf("Debug: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "service.jsonl"))
	if len(events) != 0 {
		t.Fatalf("expected debug event to be filtered, got %d events", len(events))
	}

	logger.SetMinLevel(LevelDebug)
	if err := logger.Debug(CategoryAPI, "detail", "now visible", nil); err != nil {
		t.Fatalf("Debug: %v", err)
	}
	events = readEvents(t, filepath.Join(dir, "service.jsonl"))
	if len(events) != 1 {
		t.Fatalf("expected 1 event after lowering min level, got %d", len(events))
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	if err := logger.Info(CategoryJobs, "x", "y", nil); err != nil {
		t.Fatalf("nop logger should not error: %v", err)
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		events = append(events, e)
	}
	return events
}
