package source

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var boms = [][]byte{
	{0xEF, 0xBB, 0xBF},
	{0xFE, 0xFF},
	{0xFF, 0xFE},
}

// DecodeText turns raw file bytes into assembler text: UTF-8 without a BOM
// and with LF line endings. UTF-16 files announced by a BOM are transcoded.
func DecodeText(raw []byte) ([]byte, UnitFlags, error) {
	var flags UnitFlags
	for _, bom := range boms {
		if bytes.HasPrefix(raw, bom) {
			flags |= UnitHadBOM
			break
		}
	}

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return nil, 0, fmt.Errorf("decode text: %w", err)
	}

	out, hadCRLF := normalizeCRLF(out)
	if hadCRLF {
		flags |= UnitNormalizedCRLF
	}
	return out, flags, nil
}
