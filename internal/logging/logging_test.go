package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/calvinalkan/sitecontent/internal/logging"
)

func Test_New_Writes_JSON_At_Level_When_Not_Development(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log, err := logging.New(&buf, "info", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Debug("hidden")
	log.Info("shown", zap.String("kind", "product"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}

	if entry["msg"] != "shown" || entry["kind"] != "product" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func Test_New_Writes_Console_Output_When_Development(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log, err := logging.New(&buf, "debug", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Debug("rebuild started")

	if !strings.Contains(buf.String(), "DEBUG") || !strings.Contains(buf.String(), "rebuild started") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func Test_New_Returns_Error_When_Level_Is_Unknown(t *testing.T) {
	t.Parallel()

	_, err := logging.New(&bytes.Buffer{}, "chatty", false)
	if err == nil {
		t.Fatal("want error for unknown level")
	}
}
