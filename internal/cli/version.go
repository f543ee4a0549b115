package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hgb/internal/version"
)

// NewVersionCmd returns the version subcommand for tool.
func NewVersionCmd(tool string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Show %s build metadata", tool),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			full, err := cmd.Flags().GetBool("full")
			if err != nil {
				return fmt.Errorf("failed to get full flag: %w", err)
			}
			opts := version.Options{Format: format, Color: !color.NoColor}
			if opts.ShowHash, err = cmd.Flags().GetBool("hash"); err != nil {
				return fmt.Errorf("failed to get hash flag: %w", err)
			}
			if opts.ShowMessage, err = cmd.Flags().GetBool("message"); err != nil {
				return fmt.Errorf("failed to get message flag: %w", err)
			}
			if opts.ShowDate, err = cmd.Flags().GetBool("date"); err != nil {
				return fmt.Errorf("failed to get date flag: %w", err)
			}
			opts.ShowHash = opts.ShowHash || full
			opts.ShowMessage = opts.ShowMessage || full
			opts.ShowDate = opts.ShowDate || full
			return version.Render(cmd.OutOrStdout(), tool, version.Collect(), opts)
		},
	}
	cmd.Flags().Bool("hash", false, "include git commit hash")
	cmd.Flags().Bool("message", false, "include git commit message")
	cmd.Flags().Bool("date", false, "include build timestamp")
	cmd.Flags().Bool("full", false, "show every recorded bit of build metadata")
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

// SetVersion enables the --version flag on a root command.
func SetVersion(cmd *cobra.Command) {
	cmd.Version = version.Collect().Version
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
}
