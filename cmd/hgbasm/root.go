package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hgb/internal/cli"
	"hgb/internal/config"
	"hgb/internal/driver"
	"hgb/internal/engine/asm"
)

func newRootCmd(rt cli.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "hgbasm [flags] <sourcefile>",
		Short:             "Assemble Game Boy source code into an object file",
		Args:              cobra.MaximumNArgs(1),
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(cmd, rt, args)
		},
	}

	flags := cmd.Flags()
	flags.StringP("binary", "b", "", "change the two characters used for binary constants (not yet supported)")
	flags.StringP("debug", "D", "", "add a string symbol, equivalent to name EQUS \"value\" (value defaults to 1)")
	flags.BoolP("export", "E", false, "export all labels, including unreferenced and local labels")
	flags.StringP("gbgfx", "g", "", "change the four characters used for gbgfx constants (not yet supported)")
	flags.BoolP("no-halt-nop", "h", false, "do not insert a nop after every halt")
	flags.StringArrayP("include", "i", nil, "add an include path (repeatable)")
	flags.BoolP("no-ld-ldh", "L", false, "do not turn LD [$FF00+n8],A into LDH [$FF00+n8],A")
	flags.StringP("depfile", "M", "", "write make(1) dependencies to this file")
	flags.StringP("out", "o", "", "write the object file to this file")
	flags.StringP("pad", "p", "", "pad value for DS (default 0x00)")
	flags.BoolP("verbose", "v", false, "be verbose")
	flags.BoolP("nowarn", "w", false, "disable warning output")

	cli.AddGlobalFlags(cmd)
	cli.SetVersion(cmd)
	cmd.AddCommand(cli.NewVersionCmd("hgbasm"))
	return cmd
}

func runAssemble(cmd *cobra.Command, rt cli.Runtime, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(rt.Stderr, "No source file specified, exiting")
		return &cli.ExitError{Code: 1}
	}
	g, err := cli.ReadGlobals(cmd, rt)
	if err != nil {
		return err
	}
	in, err := readAsmInput(cmd, args[0])
	if err != nil {
		return err
	}
	manifest, err := cli.LoadManifest(rt, g)
	if err != nil {
		return err
	}
	manifest.ApplyAsm(&in, cmd.Flags().Changed)

	ctx := cmd.Context()
	return cli.Run(ctx, rt, g, cli.Invocation{
		Tool:    "hgbasm",
		Files:   []string{in.Source},
		Verbose: in.Verbose,
		NoWarn:  in.NoWarn,
		Run: func(env driver.Env) (*driver.Outcome, error) {
			return driver.Assemble(ctx, env, in, asm.New())
		},
	})
}

func readAsmInput(cmd *cobra.Command, sourcePath string) (config.AsmInput, error) {
	in := config.AsmInput{Source: sourcePath}
	var err error
	flags := cmd.Flags()
	if in.Binary, err = flags.GetString("binary"); err != nil {
		return in, fmt.Errorf("failed to get binary flag: %w", err)
	}
	if in.Debug, err = flags.GetString("debug"); err != nil {
		return in, fmt.Errorf("failed to get debug flag: %w", err)
	}
	if in.ExportAll, err = flags.GetBool("export"); err != nil {
		return in, fmt.Errorf("failed to get export flag: %w", err)
	}
	if in.Gbgfx, err = flags.GetString("gbgfx"); err != nil {
		return in, fmt.Errorf("failed to get gbgfx flag: %w", err)
	}
	if in.NoHaltNop, err = flags.GetBool("no-halt-nop"); err != nil {
		return in, fmt.Errorf("failed to get no-halt-nop flag: %w", err)
	}
	if in.IncludeDirs, err = flags.GetStringArray("include"); err != nil {
		return in, fmt.Errorf("failed to get include flag: %w", err)
	}
	if in.NoLdLdh, err = flags.GetBool("no-ld-ldh"); err != nil {
		return in, fmt.Errorf("failed to get no-ld-ldh flag: %w", err)
	}
	if in.DepFile, err = flags.GetString("depfile"); err != nil {
		return in, fmt.Errorf("failed to get depfile flag: %w", err)
	}
	if in.Out, err = flags.GetString("out"); err != nil {
		return in, fmt.Errorf("failed to get out flag: %w", err)
	}
	if in.Pad, err = flags.GetString("pad"); err != nil {
		return in, fmt.Errorf("failed to get pad flag: %w", err)
	}
	if in.Verbose, err = flags.GetBool("verbose"); err != nil {
		return in, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if in.NoWarn, err = flags.GetBool("nowarn"); err != nil {
		return in, fmt.Errorf("failed to get nowarn flag: %w", err)
	}
	return in, nil
}
