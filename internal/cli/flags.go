package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Mode is the value of the --color and --ui flags.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeOn   Mode = "on"
	ModeOff  Mode = "off"
)

func readMode(flag, value string) (Mode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return ModeAuto, nil
	case "on":
		return ModeOn, nil
	case "off":
		return ModeOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

func (m Mode) enabled(terminal bool) bool {
	switch m {
	case ModeOn:
		return true
	case ModeOff:
		return false
	default:
		return terminal
	}
}

// Globals are the persistent flags every tool accepts.
type Globals struct {
	Color   Mode
	Quiet   bool
	Timings bool
	UI      Mode
	Config  string
}

// AddGlobalFlags registers the persistent flags on a root command.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	cmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	cmd.PersistentFlags().Bool("timings", false, "show timing information")
	cmd.PersistentFlags().String("ui", "off", "show a progress view (auto|on|off)")
	cmd.PersistentFlags().String("config", "", "project file (default: hgb.toml found upward from the working directory)")
}

// ReadGlobals reads the persistent flags and applies the color mode.
func ReadGlobals(cmd *cobra.Command, rt Runtime) (Globals, error) {
	var g Globals
	colorFlag, err := cmd.Flags().GetString("color")
	if err != nil {
		return g, fmt.Errorf("failed to get color flag: %w", err)
	}
	if g.Color, err = readMode("color", colorFlag); err != nil {
		return g, err
	}
	if g.Quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return g, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if g.Timings, err = cmd.Flags().GetBool("timings"); err != nil {
		return g, fmt.Errorf("failed to get timings flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return g, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if g.UI, err = readMode("ui", uiFlag); err != nil {
		return g, err
	}
	if g.Config, err = cmd.Flags().GetString("config"); err != nil {
		return g, fmt.Errorf("failed to get config flag: %w", err)
	}
	color.NoColor = !g.Color.enabled(isTerminal(rt.Stdout) && isTerminal(rt.Stderr))
	return g, nil
}

// UseColor reports whether diagnostics should be colored.
func (g Globals) UseColor(rt Runtime) bool {
	return g.Color.enabled(isTerminal(rt.Stderr))
}

// UseUI reports whether the progress view should run. Quiet disables the
// automatic choice.
func (g Globals) UseUI(rt Runtime) bool {
	if g.UI == ModeAuto && g.Quiet {
		return false
	}
	return g.UI.enabled(isTerminal(rt.Stdout))
}
