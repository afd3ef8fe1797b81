package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("info", false, &buf)

	log.Info().Str("stack", "databases").Msg("rendered")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["message"] != "rendered" || record["stack"] != "databases" {
		t.Errorf("record = %v", record)
	}
}

func TestNewLogger_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("info", true, &buf)

	log.Info().Msg("rendered")

	out := buf.String()
	if strings.Contains(out, `"message"`) {
		t.Errorf("console output looks like JSON: %s", out)
	}
	if !strings.Contains(out, "rendered") {
		t.Errorf("console output missing message: %s", out)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("warn", false, &buf)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record emitted at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("loud", false, &buf)

	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
}

// Under go test stderr is a pipe, not a terminal, so pretty must be
// ignored and the output stays machine-readable JSON.
func TestNew_PipedStderrStaysJSON(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe() error = %v", err)
	}
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	log := New("info", true)
	log.Info().Msg("rendered")
	w.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("piped stderr output is not JSON: %v\n%s", err, buf.String())
	}
	if record["message"] != "rendered" {
		t.Errorf("record = %v", record)
	}
}
