package driver

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"hgb/internal/buildpipeline"
	"hgb/internal/config"
	"hgb/internal/diag"
	"hgb/internal/engine"
)

// Fix runs hgbfix. The ROM is rewritten in place whenever the engine
// returned an image; unlike assembly and linking there is no error gate.
func Fix(ctx context.Context, env Env, in config.FixInput, fixer engine.Fixer) (*Outcome, error) {
	rep := env.Reporter
	out := &Outcome{}
	track := buildpipeline.NewTracker(env.Progress, buildpipeline.DisplayFiles([]string{in.ROM}, env.Root))
	defer func() { out.Timings = track.Timings }()

	var (
		cfg config.Fix
		rom []byte
	)
	err := track.Run(buildpipeline.StageConfigure, func() error {
		var err error
		if cfg, err = config.BuildFix(in); err != nil {
			return err
		}
		if rom, err = afero.ReadFile(env.FS, env.abs(cfg.ROM)); err != nil {
			return fmt.Errorf("failed to read ROM file: %w", err)
		}
		return nil
	})
	if err != nil {
		reportSetupError(env, "fixing", err)
		return out, err
	}
	name := env.rel(cfg.ROM)
	rep.Logf(diag.SevInfo, "Fixing %s", name)

	var res *engine.FixResult
	err = track.Run(buildpipeline.StageExecute, func() error {
		var err error
		res, err = invoke("fixing", func() (*engine.FixResult, error) {
			return fixer.Fix(ctx, cfg.Engine, rom)
		})
		return err
	})
	if err != nil {
		reportSetupError(env, "fixing", err)
		return out, err
	}

	err = track.Run(buildpipeline.StageFinalize, func() error {
		if res.ROM == nil {
			return nil
		}
		return out.write(env, cfg.ROM, res.ROM)
	})
	if err != nil {
		rep.Fatal("fixing", err.Error())
		return out, err
	}

	out.Summary = rep.Report("Fixing of "+name, res.Diagnostics)
	if out.Summary.Failed() {
		track.Fail(buildpipeline.StageFinalize, nil)
	}
	return out, nil
}
