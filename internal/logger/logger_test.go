package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out, level, formatter := Logger.Out, Logger.GetLevel(), Logger.Formatter
	Logger.SetOutput(&buf)
	t.Cleanup(func() {
		Logger.SetOutput(out)
		Logger.SetLevel(level)
		Logger.SetFormatter(formatter)
	})
	return &buf
}

func TestConfigure_JSON(t *testing.T) {
	buf := capture(t)
	if err := Configure("debug", "json"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	WithFields(logrus.Fields{"frame": "a.pgm", "x": 12}).Debug("target locked")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "target locked" || entry["frame"] != "a.pgm" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestConfigure_LevelFilters(t *testing.T) {
	buf := capture(t)
	if err := Configure("warn", "text"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	WithField("frame", "a.pgm").Info("hidden")
	WithField("frame", "b.pgm").Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn entry should be written")
	}
}

func TestConfigure_Invalid(t *testing.T) {
	capture(t)
	if err := Configure("loud", "text"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if err := Configure("info", "xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}
