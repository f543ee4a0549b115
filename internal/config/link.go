package config

import "hgb/internal/engine"

// LinkInput is the raw hgblink command line.
type LinkInput struct {
	Objects      []string
	Map          string
	Sym          string
	Overlay      string
	Out          string
	Pad          string
	NoWramBank   bool
	DMG          bool
	NoRomBank    bool
	LinkerScript string
}

// Link is the validated hgblink configuration. The script and overlay are
// paths here; the driver reads them during Configure.
type Link struct {
	Objects      []string
	Map          string
	Sym          string
	Overlay      string
	Out          string
	LinkerScript string
	Engine       engine.LinkOptions
}

// BuildLink validates in and freezes it into a Link.
func BuildLink(in LinkInput) (Link, error) {
	if len(in.Objects) == 0 {
		return Link{}, errorf("objectfiles", "no object files specified")
	}
	cfg := Link{
		Objects:      cloneStrings(in.Objects),
		Map:          in.Map,
		Sym:          in.Sym,
		Overlay:      in.Overlay,
		Out:          in.Out,
		LinkerScript: in.LinkerScript,
		Engine: engine.LinkOptions{
			DisableRomBanks:  in.NoRomBank,
			DisableWramBanks: in.NoWramBank || in.DMG,
			DisableVramBanks: in.DMG,
			LinkerScriptPath: in.LinkerScript,
			GenerateMap:      in.Map != "",
			GenerateSym:      in.Sym != "",
		},
	}
	if in.Pad != "" {
		pad, err := ParseByte("--pad", in.Pad)
		if err != nil {
			return Link{}, err
		}
		cfg.Engine.Padding = pad
	}
	return cfg, nil
}
