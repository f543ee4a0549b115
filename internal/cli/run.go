package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hgb/internal/buildpipeline"
	"hgb/internal/diag"
	"hgb/internal/driver"
	"hgb/internal/report"
	"hgb/internal/ui"
)

// Invocation describes one driver run.
type Invocation struct {
	Tool    string
	Files   []string
	Verbose bool
	NoWarn  bool
	Run     func(env driver.Env) (*driver.Outcome, error)
}

type runOutcome struct {
	out *driver.Outcome
	err error
}

// Run executes inv with reporting, the optional progress view and timings,
// and converts the outcome into an error carrying the exit code.
func Run(ctx context.Context, rt Runtime, g Globals, inv Invocation) error {
	useUI := g.UseUI(rt)
	stdout, stderr := rt.Stdout, rt.Stderr
	var bufOut, bufErr bytes.Buffer
	if useUI {
		stdout, stderr = &bufOut, &bufErr
	}
	env := driver.Env{
		FS:       rt.FS,
		Root:     rt.Root,
		Reporter: NewReporter(g, g.UseColor(rt), stdout, stderr, inv.Verbose, inv.NoWarn),
	}

	var res runOutcome
	if useUI {
		var uiErr error
		res, uiErr = runWithUI(ctx, rt, inv, env)
		_, _ = io.Copy(rt.Stdout, &bufOut)
		_, _ = io.Copy(rt.Stderr, &bufErr)
		if uiErr != nil && res.err == nil {
			fmt.Fprintf(rt.Stderr, "progress view failed: %v\n", uiErr)
		}
	} else {
		if inv.Verbose {
			env.Progress = traceStages(env.Reporter)
		}
		res.out, res.err = inv.Run(env)
	}

	if g.Timings && res.out != nil {
		printStageTimings(rt.Stdout, res.out.Timings)
	}
	if res.err != nil {
		return &ExitError{Code: 1, Err: res.err, Reported: true}
	}
	if res.out.Failed() {
		return &ExitError{Code: 1}
	}
	return nil
}

func runWithUI(ctx context.Context, rt Runtime, inv Invocation, env driver.Env) (runOutcome, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		env.Progress = buildpipeline.ChannelSink{Ch: events}
		out, err := inv.Run(env)
		outcomeCh <- runOutcome{out: out, err: err}
		close(events)
	}()

	files := buildpipeline.DisplayFiles(inv.Files, rt.Root)
	model := ui.NewProgressModel(inv.Tool, files, events)
	program := tea.NewProgram(model, tea.WithOutput(rt.Stdout), tea.WithContext(ctx), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Drain so the driver never blocks on a full channel.
		go func() {
			for range events {
			}
		}()
	}
	return <-outcomeCh, uiErr
}

// traceStages logs the invocation-wide stage transitions at trace level.
func traceStages(rep *report.Reporter) buildpipeline.ProgressSink {
	return buildpipeline.FuncSink(func(ev buildpipeline.Event) {
		if ev.File != "" {
			return
		}
		switch ev.Status {
		case buildpipeline.StatusWorking:
			rep.Logf(diag.SevTrace, "stage %s: started", ev.Stage)
		case buildpipeline.StatusDone:
			rep.Logf(diag.SevTrace, "stage %s: done in %.1f ms", ev.Stage, toMillis(ev.Elapsed))
		case buildpipeline.StatusError:
			rep.Logf(diag.SevTrace, "stage %s: failed", ev.Stage)
		}
	})
}

func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	for _, stage := range buildpipeline.Stages {
		if timings.Has(stage) {
			fmt.Fprintf(out, "%s %.1f ms\n", stage, toMillis(timings.Duration(stage)))
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
