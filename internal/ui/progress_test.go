package ui

import (
	"errors"
	"strings"
	"testing"

	"hgb/internal/buildpipeline"
)

func TestProgressModelAppliesEvents(t *testing.T) {
	m := NewProgressModel("hgbasm", []string{"main.asm"}, nil).(*progressModel)
	if got := m.rows[0].label(); got != "queued" {
		t.Fatalf("label = %q, want queued", got)
	}

	m.apply(buildpipeline.Event{File: "main.asm", Stage: buildpipeline.StageExecute, Status: buildpipeline.StatusWorking})
	if got := m.rows[0].label(); got != "working" {
		t.Fatalf("label = %q, want working", got)
	}
	m.apply(buildpipeline.Event{File: "main.asm", Stage: buildpipeline.StageExecute, Status: buildpipeline.StatusDone})
	if got := m.rows[0].label(); got != "working" {
		t.Fatalf("label after execute done = %q, want working", got)
	}
	m.apply(buildpipeline.Event{File: "main.asm", Stage: buildpipeline.StageFinalize, Status: buildpipeline.StatusDone})
	if got := m.rows[0].label(); got != "done" {
		t.Fatalf("label = %q, want done", got)
	}
	m.apply(buildpipeline.Event{Stage: buildpipeline.StageFinalize, Status: buildpipeline.StatusError, Err: errors.New("x")})
	if got := m.overall.label(); got != "error" {
		t.Fatalf("overall label = %q, want error", got)
	}
	m.apply(buildpipeline.Event{File: "unknown.asm", Stage: buildpipeline.StageExecute, Status: buildpipeline.StatusWorking})

	view := m.View()
	for _, want := range []string{"main.asm", "hgbasm (error)", "reading", "writing"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRowFraction(t *testing.T) {
	n := float64(len(buildpipeline.Stages))
	tests := []struct {
		r    row
		want float64
	}{
		{row{stage: -1, status: buildpipeline.StatusQueued}, 0},
		{row{stage: 0, status: buildpipeline.StatusWorking}, 0.5 / n},
		{row{stage: 1, status: buildpipeline.StatusDone}, 2 / n},
		{row{stage: len(buildpipeline.Stages) - 1, status: buildpipeline.StatusDone}, 1},
		{row{stage: 0, status: buildpipeline.StatusError}, 1},
	}
	for _, tt := range tests {
		if got := tt.r.fraction(); got != tt.want {
			t.Errorf("fraction(%+v) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 5); got != "ab..." {
		t.Fatalf("truncate = %q, want ab...", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Fatalf("truncate = %q, want abc", got)
	}
}
