package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelDebug, FormatText, &buf); err != nil {
		t.Fatal(err)
	}

	New("plan").Debug("expanding", "acq", 3)

	out := buf.String()
	for _, want := range []string{"component=plan", "expanding", "acq=3", "level=DEBUG"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelInfo, "JSON", &buf); err != nil {
		t.Fatal(err)
	}
	New("mcp").Info("serving")

	out := buf.String()
	if !strings.Contains(out, `"component":"mcp"`) || !strings.Contains(out, `"msg":"serving"`) {
		t.Errorf("unexpected JSON output: %s", out)
	}
}

func TestInit_UnknownFormat(t *testing.T) {
	if err := Init(slog.LevelInfo, "xml", &bytes.Buffer{}); err == nil {
		t.Error("want error for xml format")
	}
}

func TestInit_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(slog.LevelWarn, FormatText, &buf); err != nil {
		t.Fatal(err)
	}
	log := New("gate")
	log.Info("quiet")
	log.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info record passed a warn-level handler")
	}
	if !strings.Contains(out, "loud") {
		t.Error("warn record was dropped")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"WARNING": slog.LevelWarn,
		" debug ": slog.LevelDebug,
		"info+2":  slog.LevelInfo + 2,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	for _, bad := range []string{"trace", "loud", "warn+x"} {
		if _, err := ParseLevel(bad); err == nil {
			t.Errorf("want error for %q", bad)
		}
	}
}
