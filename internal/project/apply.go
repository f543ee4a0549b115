package project

import (
	"strings"

	"hgb/internal/config"
)

// Changed reports whether a flag was given explicitly on the command line.
type Changed func(flag string) bool

// ApplyAsm fills in every hgbasm option the command line left unset.
func (m *Manifest) ApplyAsm(in *config.AsmInput, changed Changed) {
	if m == nil {
		return
	}
	c := m.Config.Asm
	if !changed("include") && len(c.Include) > 0 {
		in.IncludeDirs = make([]string, 0, len(c.Include))
		for _, dir := range c.Include {
			in.IncludeDirs = append(in.IncludeDirs, m.Abs(dir))
		}
	}
	setString(&in.Pad, c.Pad.Text, "pad", changed)
	setBool(&in.ExportAll, c.ExportAll, "export", changed)
	setBool(&in.NoWarn, c.NoWarn, "nowarn", changed)
	if c.HaltNop != nil && !changed("no-halt-nop") {
		in.NoHaltNop = !*c.HaltNop
	}
	if c.OptimizeLd != nil && !changed("no-ld-ldh") {
		in.NoLdLdh = !*c.OptimizeLd
	}
}

// ApplyLink fills in every hgblink option the command line left unset.
func (m *Manifest) ApplyLink(in *config.LinkInput, changed Changed) {
	if m == nil {
		return
	}
	c := m.Config.Link
	setString(&in.Pad, c.Pad.Text, "pad", changed)
	setBool(&in.DMG, c.DMG, "dmg", changed)
	setBool(&in.NoWramBank, c.NoWramBank, "no-wram-bank", changed)
	setBool(&in.NoRomBank, c.NoRomBank, "no-rom-bank", changed)
	setString(&in.LinkerScript, m.Abs(c.LinkerScript), "linkerscript", changed)
}

// ApplyFix fills in every hgbfix option the command line left unset.
func (m *Manifest) ApplyFix(in *config.FixInput, changed Changed) {
	if m == nil {
		return
	}
	c := m.Config.Fix
	setString(&in.Fix, c.Fix, "fix", changed)
	setString(&in.Pad, c.Pad.Text, "pad", changed)
	setString(&in.OldLicensee, c.OldLicensee.Text, "old-licensee", changed)
	setString(&in.MBC, c.MBC.Text, "mbc", changed)
	setString(&in.RAM, c.RAM.Text, "ram", changed)
	setString(&in.ROMVersion, c.ROMVersion.Text, "rom-version", changed)
	setBool(&in.SGB, c.SGB, "sgb", changed)
	setBool(&in.NonJapanese, c.NonJapanese, "non-japanese", changed)
	setStringPtr(&in.Title, c.Title, "title", changed)
	setStringPtr(&in.GameID, c.GameID, "id", changed)
	setStringPtr(&in.NewLicensee, c.NewLicensee, "new-licensee", changed)
	if !changed("cgb-only") && !changed("cgb-compatible") {
		switch strings.ToLower(c.CGB) {
		case "only":
			in.CGBOnly = true
		case "compatible":
			in.CGBCompatible = true
		}
	}
}

func setString(dst *string, v, flag string, changed Changed) {
	if v != "" && !changed(flag) {
		*dst = v
	}
}

func setBool(dst *bool, v *bool, flag string, changed Changed) {
	if v != nil && !changed(flag) {
		*dst = *v
	}
}

func setStringPtr(dst **string, v *string, flag string, changed Changed) {
	if v != nil && !changed(flag) {
		s := *v
		*dst = &s
	}
}
