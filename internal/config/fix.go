package config

import (
	"strings"

	"hgb/internal/engine"
)

// FixInput is the raw hgbfix command line.
type FixInput struct {
	ROM           string
	CGBOnly       bool
	CGBCompatible bool
	Fix           string
	FixAll        bool
	GameID        *string
	NonJapanese   bool
	NewLicensee   *string
	OldLicensee   string
	MBC           string
	ROMVersion    string
	Pad           string
	RAM           string
	SGB           bool
	Title         *string
}

// Fix is the validated hgbfix configuration.
type Fix struct {
	ROM    string
	Engine engine.FixOptions
}

// BuildFix validates in and freezes it into a Fix.
func BuildFix(in FixInput) (Fix, error) {
	if strings.TrimSpace(in.ROM) == "" {
		return Fix{}, errorf("romfile", "no ROM file specified")
	}
	opts := engine.FixOptions{
		SGB:         in.SGB,
		NonJapanese: in.NonJapanese,
		GameID:      cloneString(in.GameID),
		NewLicensee: cloneString(in.NewLicensee),
		Title:       cloneString(in.Title),
	}
	switch {
	case in.CGBOnly:
		opts.CGB = engine.CGBOnly
	case in.CGBCompatible:
		opts.CGB = engine.CGBCompatible
	}

	spec := in.Fix
	if in.FixAll {
		spec += "lhg"
	}
	var err error
	if opts.Logo, opts.HeaderChecksum, opts.GlobalChecksum, err = ParseFixSpec(spec); err != nil {
		return Fix{}, err
	}

	for _, f := range []struct {
		field string
		raw   string
		dst   **byte
	}{
		{"--old-licensee", in.OldLicensee, &opts.OldLicensee},
		{"--mbc", in.MBC, &opts.MBC},
		{"--ram", in.RAM, &opts.RAMSize},
		{"--rom-version", in.ROMVersion, &opts.Version},
		{"--pad", in.Pad, &opts.Padding},
	} {
		if *f.dst, err = optionalByte(f.field, f.raw); err != nil {
			return Fix{}, err
		}
	}
	return Fix{ROM: in.ROM, Engine: opts}, nil
}

// ParseFixSpec decodes a fix spec: l, h and g fix the logo, the header
// checksum and the global checksum; the uppercase letters trash them. When
// both cases of a letter appear, fixing wins.
func ParseFixSpec(spec string) (logo, header, global engine.Action, err error) {
	for _, r := range spec {
		var dst *engine.Action
		switch r {
		case 'l', 'L':
			dst = &logo
		case 'h', 'H':
			dst = &header
		case 'g', 'G':
			dst = &global
		default:
			return 0, 0, 0, errorf("--fix", "invalid character %q in fix spec %q", r, spec)
		}
		if r >= 'a' {
			*dst = engine.Fix
		} else if *dst != engine.Fix {
			*dst = engine.Trash
		}
	}
	return logo, header, global, nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
