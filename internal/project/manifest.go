// Package project reads the optional hgb.toml file that supplies default
// options to hgbasm, hgblink and hgbfix.
//
//	[asm]
//	include = ["inc", "lib"]
//	pad = 0xFF
//
//	[link]
//	dmg = true
//	linkerscript = "game.link"
//
//	[fix]
//	fix = "lhg"
//	title = "MYGAME"
//	mbc = "$1B"
//
// Paths are relative to the directory holding the file. Options given on
// the command line always win over the file.
package project

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// Manifest is a decoded hgb.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the tables of hgb.toml.
type Config struct {
	Asm  AsmConfig  `toml:"asm"`
	Link LinkConfig `toml:"link"`
	Fix  FixConfig  `toml:"fix"`
}

// AsmConfig holds hgbasm defaults.
type AsmConfig struct {
	Include    []string `toml:"include"`
	Pad        Number   `toml:"pad"`
	ExportAll  *bool    `toml:"export_all"`
	HaltNop    *bool    `toml:"halt_nop"`
	OptimizeLd *bool    `toml:"optimize_ld"`
	NoWarn     *bool    `toml:"nowarn"`
}

// LinkConfig holds hgblink defaults.
type LinkConfig struct {
	Pad          Number `toml:"pad"`
	DMG          *bool  `toml:"dmg"`
	NoWramBank   *bool  `toml:"no_wram_bank"`
	NoRomBank    *bool  `toml:"no_rom_bank"`
	LinkerScript string `toml:"linkerscript"`
}

// FixConfig holds hgbfix defaults.
type FixConfig struct {
	Fix         string  `toml:"fix"`
	Pad         Number  `toml:"pad"`
	CGB         string  `toml:"cgb"`
	SGB         *bool   `toml:"sgb"`
	NonJapanese *bool   `toml:"non_japanese"`
	Title       *string `toml:"title"`
	GameID      *string `toml:"id"`
	NewLicensee *string `toml:"new_licensee"`
	OldLicensee Number  `toml:"old_licensee"`
	MBC         Number  `toml:"mbc"`
	RAM         Number  `toml:"ram"`
	ROMVersion  Number  `toml:"rom_version"`
}

// Number accepts either a TOML integer or a string in any command-line
// number syntax ("$FF", "%1010"). Text is empty when the key is absent.
type Number struct {
	Text string
}

// UnmarshalTOML implements toml.Unmarshaler.
func (n *Number) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case int64:
		n.Text = fmt.Sprintf("%d", v)
	case string:
		n.Text = strings.TrimSpace(v)
	default:
		return fmt.Errorf("expected an integer or a string, got %T", v)
	}
	return nil
}

// Load finds and decodes hgb.toml starting at startDir. ok is false when
// no file exists.
func Load(fs afero.Fs, startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(fs, startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadFile(fs, path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadFile decodes the manifest at path. Unknown keys are an error.
func LoadFile(fs afero.Fs, path string) (*Manifest, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var cfg Config
	meta, err := toml.Decode(string(raw), &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	switch strings.ToLower(cfg.Fix.CGB) {
	case "", "only", "compatible":
	default:
		return nil, fmt.Errorf("%s: [fix].cgb must be \"only\" or \"compatible\", got %q", path, cfg.Fix.CGB)
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// Abs resolves a manifest-relative path.
func (m *Manifest) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, filepath.FromSlash(p))
}
