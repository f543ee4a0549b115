package buildpipeline

import (
	"errors"
	"reflect"
	"testing"
)

func TestTrackerEmitsStageEvents(t *testing.T) {
	var got []Event
	tr := NewTracker(FuncSink(func(ev Event) { got = append(got, ev) }), []string{"main.asm"})

	if err := tr.Run(StageConfigure, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	boom := errors.New("boom")
	if err := tr.Run(StageExecute, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}

	want := []struct {
		file   string
		stage  Stage
		status Status
	}{
		{"main.asm", StageConfigure, StatusQueued},
		{"", StageConfigure, StatusWorking},
		{"main.asm", StageConfigure, StatusWorking},
		{"", StageConfigure, StatusDone},
		{"main.asm", StageConfigure, StatusDone},
		{"", StageExecute, StatusWorking},
		{"main.asm", StageExecute, StatusWorking},
		{"", StageExecute, StatusError},
		{"main.asm", StageExecute, StatusError},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].File != w.file || got[i].Stage != w.stage || got[i].Status != w.status {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], w)
		}
	}
	if !tr.Timings.Has(StageConfigure) || !tr.Timings.Has(StageExecute) || tr.Timings.Has(StageFinalize) {
		t.Fatalf("unexpected timings recorded")
	}
}

func TestTrackerWithoutSink(t *testing.T) {
	tr := NewTracker(nil, []string{"a"})
	if err := tr.Run(StageFinalize, func() error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	tr.Fail(StageFinalize, nil)
	if !tr.Timings.Has(StageFinalize) {
		t.Fatalf("timing not recorded")
	}
}

func TestDisplayFiles(t *testing.T) {
	got := DisplayFiles([]string{"/work/src/main.asm", "lib.o", "/work/src/main.asm", "/other/x.o", ""}, "/work")
	want := []string{"src/main.asm", "lib.o", "/other/x.o"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DisplayFiles = %v, want %v", got, want)
	}
}
