package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hgb/internal/cli"
	"hgb/internal/config"
	"hgb/internal/driver"
	"hgb/internal/engine/link"
)

func newRootCmd(rt cli.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "hgblink [flags] <objectfiles...>",
		Short:             "Link Game Boy object files into a ROM image",
		Args:              cobra.ArbitraryArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, rt, args)
		},
	}

	flags := cmd.Flags()
	flags.StringP("map", "m", "", "write a map file to this file")
	flags.StringP("sym", "n", "", "write a symbol file to this file")
	flags.StringP("overlay", "O", "", "ROM image to overlay sections over; every section must be fixed")
	flags.StringP("out", "o", "", "write the ROM image to this file")
	flags.StringP("pad", "p", "", "pad value for unused ROM space (default 0x00)")
	flags.BoolP("no-wram-bank", "w", false, "expand WRAM0 to 8KiB and prohibit WRAMX sections")
	flags.BoolP("dmg", "d", false, "prohibit sections that do not exist on a DMG (implies -w)")
	flags.BoolP("no-rom-bank", "t", false, "expand ROM0 to 32KiB and prohibit ROMX sections")
	flags.StringP("linkerscript", "l", "", "linker script that places sections; it takes priority over the source")

	cli.AddGlobalFlags(cmd)
	cli.SetVersion(cmd)
	cmd.AddCommand(cli.NewVersionCmd("hgblink"))
	return cmd
}

func runLink(cmd *cobra.Command, rt cli.Runtime, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(rt.Stderr, "No object files specified, exiting")
		return &cli.ExitError{Code: 1}
	}
	g, err := cli.ReadGlobals(cmd, rt)
	if err != nil {
		return err
	}
	in, err := readLinkInput(cmd, args)
	if err != nil {
		return err
	}
	manifest, err := cli.LoadManifest(rt, g)
	if err != nil {
		return err
	}
	manifest.ApplyLink(&in, cmd.Flags().Changed)

	ctx := cmd.Context()
	return cli.Run(ctx, rt, g, cli.Invocation{
		Tool:  "hgblink",
		Files: in.Objects,
		Run: func(env driver.Env) (*driver.Outcome, error) {
			return driver.Link(ctx, env, in, link.New())
		},
	})
}

func readLinkInput(cmd *cobra.Command, objects []string) (config.LinkInput, error) {
	in := config.LinkInput{Objects: objects}
	var err error
	flags := cmd.Flags()
	if in.Map, err = flags.GetString("map"); err != nil {
		return in, fmt.Errorf("failed to get map flag: %w", err)
	}
	if in.Sym, err = flags.GetString("sym"); err != nil {
		return in, fmt.Errorf("failed to get sym flag: %w", err)
	}
	if in.Overlay, err = flags.GetString("overlay"); err != nil {
		return in, fmt.Errorf("failed to get overlay flag: %w", err)
	}
	if in.Out, err = flags.GetString("out"); err != nil {
		return in, fmt.Errorf("failed to get out flag: %w", err)
	}
	if in.Pad, err = flags.GetString("pad"); err != nil {
		return in, fmt.Errorf("failed to get pad flag: %w", err)
	}
	if in.NoWramBank, err = flags.GetBool("no-wram-bank"); err != nil {
		return in, fmt.Errorf("failed to get no-wram-bank flag: %w", err)
	}
	if in.DMG, err = flags.GetBool("dmg"); err != nil {
		return in, fmt.Errorf("failed to get dmg flag: %w", err)
	}
	if in.NoRomBank, err = flags.GetBool("no-rom-bank"); err != nil {
		return in, fmt.Errorf("failed to get no-rom-bank flag: %w", err)
	}
	if in.LinkerScript, err = flags.GetString("linkerscript"); err != nil {
		return in, fmt.Errorf("failed to get linkerscript flag: %w", err)
	}
	return in, nil
}
