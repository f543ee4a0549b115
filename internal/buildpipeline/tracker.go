package buildpipeline

import (
	"path/filepath"
	"strings"
	"time"
)

// Tracker drives a sink through the stages of one invocation and records
// how long each stage took. A nil sink only records timings.
type Tracker struct {
	sink    ProgressSink
	files   []string
	Timings Timings
}

// NewTracker queues files on sink and returns a tracker for them.
func NewTracker(sink ProgressSink, files []string) *Tracker {
	t := &Tracker{sink: sink, files: files}
	emitQueued(sink, files)
	return t
}

// Run executes fn as stage, emitting working before and done or error after.
func (t *Tracker) Run(stage Stage, fn func() error) error {
	emitStage(t.sink, t.files, stage, StatusWorking, nil, 0)
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	t.Timings.Set(stage, elapsed)
	status := StatusDone
	if err != nil {
		status = StatusError
	}
	emitStage(t.sink, t.files, stage, status, err, elapsed)
	return err
}

// Fail marks stage as failed without running it, e.g. when diagnostics
// rather than an error decided the outcome.
func (t *Tracker) Fail(stage Stage, err error) {
	emitStage(t.sink, t.files, stage, StatusError, err, 0)
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageConfigure, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, files []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}

// DisplayFiles makes files relative to baseDir where they live under it,
// uses forward slashes and drops duplicates, keeping the given order.
func DisplayFiles(files []string, baseDir string) []string {
	if len(files) == 0 {
		return files
	}
	normalized := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	base := strings.TrimSpace(baseDir)

	for _, file := range files {
		if file == "" {
			continue
		}
		path := filepath.Clean(file)
		if base != "" && filepath.IsAbs(path) {
			if rel, err := filepath.Rel(base, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
		path = filepath.ToSlash(path)
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		normalized = append(normalized, path)
	}
	return normalized
}
