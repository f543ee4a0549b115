package driver

import (
	"context"
	"fmt"
	"path/filepath"

	"hgb/internal/buildpipeline"
	"hgb/internal/config"
	"hgb/internal/depfile"
	"hgb/internal/diag"
	"hgb/internal/engine"
	"hgb/internal/engine/object"
	"hgb/internal/resolve"
	"hgb/internal/source"
)

// Assemble runs hgbasm. Every failure is reported through env.Reporter
// before it is returned.
//
// The dependency file is written whenever one was requested, even when the
// assembly has errors, so make(1) can rebuild once a missing include
// appears. The object file is written only for an error-free assembly.
func Assemble(ctx context.Context, env Env, in config.AsmInput, asm engine.Assembler) (*Outcome, error) {
	rep := env.Reporter
	out := &Outcome{}
	track := buildpipeline.NewTracker(env.Progress, buildpipeline.DisplayFiles([]string{in.Source}, env.Root))
	defer func() { out.Timings = track.Timings }()

	var (
		cfg      config.Asm
		resolver *resolve.Resolver
		root     *source.Unit
	)
	err := track.Run(buildpipeline.StageConfigure, func() error {
		var err error
		if cfg, err = config.BuildAsm(in); err != nil {
			return err
		}
		resolver, err = resolve.New(env.FS, resolve.Options{
			Root:        env.Root,
			EntryDir:    filepath.Dir(env.abs(cfg.Source)),
			IncludeDirs: cfg.IncludeDirs,
			Reporter:    rep,
		})
		if err != nil {
			return err
		}
		if root, err = resolver.Load(env.rel(cfg.Source)); err != nil {
			return fmt.Errorf("failed to read source file: %w", err)
		}
		return nil
	})
	if err != nil {
		reportSetupError(env, "assembly", err)
		return out, err
	}
	rep.Logf(diag.SevInfo, "Assembling %s", root.Path)

	var res *engine.AsmResult
	err = track.Run(buildpipeline.StageExecute, func() error {
		var err error
		res, err = invoke("assembly", func() (*engine.AsmResult, error) {
			return asm.Assemble(ctx, cfg.Engine, root, resolver)
		})
		return err
	})
	if err != nil {
		reportSetupError(env, "assembly", err)
		return out, err
	}

	diags := make([]diag.Diagnostic, 0, len(cfg.Notices)+len(res.Diagnostics))
	diags = append(diags, cfg.Notices...)
	diags = append(diags, res.Diagnostics...)

	err = track.Run(buildpipeline.StageFinalize, func() error {
		if cfg.DepFile != "" {
			text := depfile.Emit(res.Dependencies, root.Path, env.rel(cfg.Out))
			if err := out.write(env, cfg.DepFile, []byte(text)); err != nil {
				return err
			}
		}
		if cfg.Out != "" && !diag.HasErrors(diags) && res.Object != nil {
			data, err := object.Encode(res.Object)
			if err != nil {
				return fmt.Errorf("failed to encode object file: %w", err)
			}
			if err := out.write(env, cfg.Out, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		rep.Fatal("assembly", err.Error())
		return out, err
	}

	stats := resolver.Stats()
	out.Resolver = &stats
	rep.Logf(diag.SevTrace, "resolver: %d requests, %d cache hits, %d misses, %d files read",
		stats.Requests, stats.Hits, stats.Misses, stats.Reads)
	out.Summary = rep.Report("Assembly of "+root.Path, diags)
	if out.Summary.Failed() {
		track.Fail(buildpipeline.StageFinalize, nil)
	}
	return out, nil
}
