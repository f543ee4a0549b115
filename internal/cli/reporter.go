package cli

import (
	"io"
	"path/filepath"

	"hgb/internal/diag"
	"hgb/internal/project"
	"hgb/internal/report"
)

// NewReporter builds the reporter for one invocation. Quiet raises the
// threshold to warnings; verbose lowers it to trace.
func NewReporter(g Globals, useColor bool, stdout, stderr io.Writer, verbose, noWarn bool) *report.Reporter {
	threshold := diag.SevInfo
	switch {
	case verbose:
		threshold = diag.SevTrace
	case g.Quiet:
		threshold = diag.SevWarning
	}
	return report.New(report.StreamSink(stdout, stderr), threshold,
		report.WithNoWarnings(noWarn),
		report.WithColor(useColor),
	)
}

// LoadManifest returns the project file named by --config, or the one found
// above the working directory. A missing file is not an error unless it was
// named explicitly.
func LoadManifest(rt Runtime, g Globals) (*project.Manifest, error) {
	if g.Config != "" {
		path := g.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(rt.Root, path)
		}
		return project.LoadFile(rt.FS, path)
	}
	m, _, err := project.Load(rt.FS, rt.Root)
	return m, err
}
