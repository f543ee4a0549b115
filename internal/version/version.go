// Package version holds the build metadata shared by hgbasm, hgblink and hgbfix.
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Version information for the hgb tools.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the toolchain.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Info is a trimmed snapshot of the build metadata.
type Info struct {
	Version    string
	GitCommit  string
	GitMessage string
	BuildDate  string
}

// Options selects what Render prints.
type Options struct {
	Format      string
	ShowHash    bool
	ShowMessage bool
	ShowDate    bool
	Color       bool
}

type payload struct {
	Tool       string `json:"tool"`
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit,omitempty"`
	GitMessage string `json:"git_message,omitempty"`
	BuildDate  string `json:"build_date,omitempty"`
}

// Collect reads the build variables, substituting "dev" for an empty version.
func Collect() Info {
	v := strings.TrimSpace(Version)
	if v == "" {
		v = "dev"
	}
	return Info{
		Version:    v,
		GitCommit:  strings.TrimSpace(GitCommit),
		GitMessage: strings.TrimSpace(GitMessage),
		BuildDate:  strings.TrimSpace(BuildDate),
	}
}

// Colored renders a major.minor.patch[-suffix] version with each number
// in its own color. Other shapes are returned unchanged.
func Colored(v string) string {
	core, suffix, _ := strings.Cut(v, "-")
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return v
	}
	out := versionMajorColor.Sprint(parts[0]) + "." + versionMinorColor.Sprint(parts[1]) + "." + versionPatchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Render writes the version of tool in the requested format (pretty or json).
func Render(out io.Writer, tool string, info Info, opts Options) error {
	switch strings.ToLower(opts.Format) {
	case "", "pretty":
		renderPretty(out, tool, info, opts)
		return nil
	case "json":
		return renderJSON(out, tool, info, opts)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", opts.Format)
	}
}

func renderPretty(out io.Writer, tool string, info Info, opts Options) {
	v := info.Version
	if opts.Color {
		v = Colored(v)
	}
	fmt.Fprintf(out, "%s %s\n", tool, v)
	if opts.ShowHash {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(info.GitCommit))
	}
	if opts.ShowMessage {
		fmt.Fprintf(out, "message: %s\n", valueOrUnknown(info.GitMessage))
	}
	if opts.ShowDate {
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(info.BuildDate))
	}
}

func renderJSON(out io.Writer, tool string, info Info, opts Options) error {
	p := payload{
		Tool:    tool,
		Version: info.Version,
	}
	if opts.ShowHash {
		p.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.ShowMessage {
		p.GitMessage = valueOrUnknown(info.GitMessage)
	}
	if opts.ShowDate {
		p.BuildDate = valueOrUnknown(info.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
