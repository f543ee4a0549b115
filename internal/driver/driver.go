// Package driver runs one hgbasm, hgblink or hgbfix invocation.
//
// Every driver walks the same three stages. Configure validates options and
// reads the inputs, Execute hands them to an engine exactly once, and
// Finalize writes artifacts and prints the diagnostics. Nothing is written
// before Execute returns, and a driver never exits the process: it returns
// an Outcome and an error and leaves the exit code to the caller.
package driver

import (
	"fmt"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/afero"

	"hgb/internal/buildpipeline"
	"hgb/internal/report"
	"hgb/internal/resolve"
	"hgb/internal/source"
)

// Env carries what an invocation needs from its surroundings.
type Env struct {
	FS afero.Fs
	// Root is the absolute working directory; relative paths are taken from it.
	Root     string
	Reporter *report.Reporter
	// Progress receives stage events; may be nil.
	Progress buildpipeline.ProgressSink
}

func (e Env) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(e.Root, p)
}

func (e Env) rel(p string) string {
	rel, err := source.RelativePath(e.abs(p), e.Root)
	if err != nil {
		return source.NormalizePath(p)
	}
	return rel
}

// Outcome summarizes a finished invocation.
type Outcome struct {
	Summary report.Summary
	Timings buildpipeline.Timings
	// Written lists the artifacts written, relative to the working root.
	Written []string
	// Resolver is set for assembly.
	Resolver *resolve.Stats
}

// Failed reports whether the invocation should end with a non-zero exit code.
func (o *Outcome) Failed() bool {
	return o == nil || o.Summary.Failed()
}

// EngineFault is a failure of the engine itself rather than of its input:
// a returned error or a recovered panic.
type EngineFault struct {
	Stage string
	Err   error
	Stack []byte
}

func (f *EngineFault) Error() string {
	return fmt.Sprintf("%s engine failed: %v", f.Stage, f.Err)
}

func (f *EngineFault) Unwrap() error { return f.Err }

// Detail renders the error followed by the stack, when one was captured.
func (f *EngineFault) Detail() string {
	if len(f.Stack) == 0 {
		return f.Err.Error()
	}
	return fmt.Sprintf("%v\n%s", f.Err, f.Stack)
}

// invoke calls an engine and turns both failure modes into an EngineFault.
func invoke[T any](stage string, fn func() (*T, error)) (res *T, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &EngineFault{Stage: stage, Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()
	res, err = fn()
	if err != nil {
		return nil, &EngineFault{Stage: stage, Err: err}
	}
	if res == nil {
		return nil, &EngineFault{Stage: stage, Err: fmt.Errorf("engine returned no result")}
	}
	return res, nil
}

// writeFile replaces path atomically through a temporary file in the same
// directory.
func writeFile(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := afero.TempFile(fs, dir, ".hgb-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (o *Outcome) write(env Env, path string, data []byte) error {
	if err := writeFile(env.FS, env.abs(path), data); err != nil {
		return err
	}
	o.Written = append(o.Written, env.rel(path))
	return nil
}
