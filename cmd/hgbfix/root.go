package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hgb/internal/cli"
	"hgb/internal/config"
	"hgb/internal/driver"
	"hgb/internal/engine/fix"
)

func newRootCmd(rt cli.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "hgbfix [flags] <romfile>",
		Short:             "Fix the cartridge header of a Game Boy ROM image in place",
		Args:              cobra.MaximumNArgs(1),
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, rt, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolP("cgb-only", "C", false, "set the CGB-only flag, 0x143 = 0xC0 (takes precedence over -c)")
	flags.BoolP("cgb-compatible", "c", false, "set the CGB-compatible flag, 0x143 = 0x80")
	flags.StringP("fix", "f", "", "fix (l, h, g) or trash (L, H, G) the logo, header checksum and global checksum")
	flags.StringP("id", "i", "", "set the 4-character game ID at 0x13F; overwrites the overlapping title")
	flags.BoolP("non-japanese", "j", false, "set the non-Japanese region flag, 0x14A = 1")
	flags.StringP("new-licensee", "k", "", "set the new licensee string at 0x144 (at most 2 characters)")
	flags.StringP("old-licensee", "l", "", "set the old licensee code at 0x14B (0-0xFF)")
	flags.StringP("mbc", "m", "", "set the MBC type at 0x147 (0-0xFF)")
	flags.StringP("rom-version", "n", "", "set the ROM version at 0x14C (0-0xFF)")
	flags.StringP("pad", "p", "", "pad the image to the next valid size with this value and update 0x148")
	flags.StringP("ram", "r", "", "set the RAM size at 0x149 (0-0xFF)")
	flags.BoolP("sgb", "s", false, "set the SGB flag, 0x146 = 3")
	flags.StringP("title", "t", "", "set the title at 0x134 (at most 16 characters)")
	flags.BoolP("fix-all", "v", false, "equivalent to -f lhg")

	cli.AddGlobalFlags(cmd)
	cli.SetVersion(cmd)
	cmd.AddCommand(cli.NewVersionCmd("hgbfix"))
	return cmd
}

func runFix(cmd *cobra.Command, rt cli.Runtime, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(rt.Stderr, "No ROM file specified, exiting")
		return &cli.ExitError{Code: 1}
	}
	g, err := cli.ReadGlobals(cmd, rt)
	if err != nil {
		return err
	}
	in, err := readFixInput(cmd, args[0])
	if err != nil {
		return err
	}
	manifest, err := cli.LoadManifest(rt, g)
	if err != nil {
		return err
	}
	manifest.ApplyFix(&in, cmd.Flags().Changed)

	ctx := cmd.Context()
	return cli.Run(ctx, rt, g, cli.Invocation{
		Tool:  "hgbfix",
		Files: []string{in.ROM},
		Run: func(env driver.Env) (*driver.Outcome, error) {
			return driver.Fix(ctx, env, in, fix.New())
		},
	})
}

func readFixInput(cmd *cobra.Command, romPath string) (config.FixInput, error) {
	in := config.FixInput{ROM: romPath}
	var err error
	flags := cmd.Flags()
	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"cgb-only", &in.CGBOnly},
		{"cgb-compatible", &in.CGBCompatible},
		{"non-japanese", &in.NonJapanese},
		{"sgb", &in.SGB},
		{"fix-all", &in.FixAll},
	} {
		if *b.dst, err = flags.GetBool(b.name); err != nil {
			return in, fmt.Errorf("failed to get %s flag: %w", b.name, err)
		}
	}
	for _, s := range []struct {
		name string
		dst  *string
	}{
		{"fix", &in.Fix},
		{"old-licensee", &in.OldLicensee},
		{"mbc", &in.MBC},
		{"rom-version", &in.ROMVersion},
		{"pad", &in.Pad},
		{"ram", &in.RAM},
	} {
		if *s.dst, err = flags.GetString(s.name); err != nil {
			return in, fmt.Errorf("failed to get %s flag: %w", s.name, err)
		}
	}
	// Text fields distinguish "not given" from an empty string.
	for _, p := range []struct {
		name string
		dst  **string
	}{
		{"id", &in.GameID},
		{"new-licensee", &in.NewLicensee},
		{"title", &in.Title},
	} {
		if !flags.Changed(p.name) {
			continue
		}
		v, err := flags.GetString(p.name)
		if err != nil {
			return in, fmt.Errorf("failed to get %s flag: %w", p.name, err)
		}
		*p.dst = &v
	}
	return in, nil
}
