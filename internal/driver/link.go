package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"hgb/internal/buildpipeline"
	"hgb/internal/config"
	"hgb/internal/diag"
	"hgb/internal/engine"
	"hgb/internal/engine/object"
	"hgb/internal/source"
)

// Link runs hgblink. The ROM, map and symbol files are written only when the
// link produced no errors.
func Link(ctx context.Context, env Env, in config.LinkInput, linker engine.Linker) (*Outcome, error) {
	rep := env.Reporter
	out := &Outcome{}
	track := buildpipeline.NewTracker(env.Progress, buildpipeline.DisplayFiles(in.Objects, env.Root))
	defer func() { out.Timings = track.Timings }()

	var (
		cfg     config.Link
		objects []*object.File
	)
	err := track.Run(buildpipeline.StageConfigure, func() error {
		var err error
		if cfg, err = config.BuildLink(in); err != nil {
			return err
		}
		for _, path := range cfg.Objects {
			data, err := afero.ReadFile(env.FS, env.abs(path))
			if err != nil {
				return fmt.Errorf("failed to read object file: %w", err)
			}
			obj, err := object.Decode(env.rel(path), data)
			if err != nil {
				return err
			}
			objects = append(objects, obj)
		}
		if cfg.LinkerScript != "" {
			raw, err := afero.ReadFile(env.FS, env.abs(cfg.LinkerScript))
			if err != nil {
				return fmt.Errorf("failed to read linker script: %w", err)
			}
			text, _, err := source.DecodeText(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.LinkerScript, err)
			}
			cfg.Engine.LinkerScript = string(text)
			cfg.Engine.LinkerScriptPath = env.rel(cfg.LinkerScript)
		}
		if cfg.Overlay != "" {
			if cfg.Engine.Overlay, err = afero.ReadFile(env.FS, env.abs(cfg.Overlay)); err != nil {
				return fmt.Errorf("failed to read overlay: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		reportSetupError(env, "linking", err)
		return out, err
	}
	names := make([]string, len(objects))
	for i, obj := range objects {
		names[i] = obj.Path
	}
	rep.Logf(diag.SevInfo, "Linking %s", strings.Join(names, ", "))

	var res *engine.LinkResult
	err = track.Run(buildpipeline.StageExecute, func() error {
		var err error
		res, err = invoke("linking", func() (*engine.LinkResult, error) {
			return linker.Link(ctx, cfg.Engine, objects)
		})
		return err
	})
	if err != nil {
		reportSetupError(env, "linking", err)
		return out, err
	}

	err = track.Run(buildpipeline.StageFinalize, func() error {
		if diag.HasErrors(res.Diagnostics) {
			return nil
		}
		if cfg.Out != "" && res.ROM != nil {
			if err := out.write(env, cfg.Out, res.ROM); err != nil {
				return err
			}
		}
		if cfg.Map != "" && res.MapFile != "" {
			if err := out.write(env, cfg.Map, []byte(res.MapFile)); err != nil {
				return err
			}
		}
		if cfg.Sym != "" && res.SymbolFile != "" {
			if err := out.write(env, cfg.Sym, []byte(res.SymbolFile)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		rep.Fatal("linking", err.Error())
		return out, err
	}

	out.Summary = rep.Report("Linking", res.Diagnostics)
	if out.Summary.Failed() {
		track.Fail(buildpipeline.StageFinalize, nil)
	}
	return out, nil
}
