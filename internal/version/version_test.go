package version

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestCollectDefaults(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "  "
	if got := Collect().Version; got != "dev" {
		t.Errorf("Collect().Version = %q, want %q", got, "dev")
	}
	Version = " 1.2.3 "
	if got := Collect().Version; got != "1.2.3" {
		t.Errorf("Collect().Version = %q, want %q", got, "1.2.3")
	}
}

func TestRenderPretty(t *testing.T) {
	var buf bytes.Buffer
	info := Info{Version: "1.2.3", GitCommit: "abc123"}
	if err := Render(&buf, "hgbasm", info, Options{ShowHash: true, ShowDate: true}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "hgbasm 1.2.3\ncommit: abc123\nbuilt:  unknown\n"
	if buf.String() != want {
		t.Errorf("Render = %q, want %q", buf.String(), want)
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	info := Info{Version: "1.2.3", GitMessage: "fix header"}
	if err := Render(&buf, "hgbfix", info, Options{Format: "JSON", ShowMessage: true}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var got payload
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	want := payload{Tool: "hgbfix", Version: "1.2.3", GitMessage: "fix header"}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
}

func TestRenderRejectsFormat(t *testing.T) {
	if err := Render(&bytes.Buffer{}, "hgblink", Info{}, Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestColored(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	got := Colored("1.2.3-dev")
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-dev") {
		t.Errorf("Colored = %q", got)
	}
	if got := Colored("nightly"); got != "nightly" {
		t.Errorf("Colored(nightly) = %q", got)
	}
}
