// Package terc normalizes Polish TERC administrative codes. Codes are always
// handled as strings: the leading zero of "02" (dolnośląskie) is significant.
package terc

import (
	"strings"
)

// Widths of the code levels used by the indicator tables.
const (
	VoivodeshipWidth = 2
	CountyWidth      = 4
)

// Clean trims whitespace and drops a spurious ".0" suffix left behind when a
// spreadsheet stored the code as a number.
func Clean(code string) string {
	code = strings.TrimSpace(code)
	if strings.HasSuffix(code, ".0") && isDigits(code[:len(code)-2]) {
		code = code[:len(code)-2]
	}
	return code
}

// Pad left-pads code with zeros to width. Codes already at or beyond width are
// returned unchanged. Empty codes stay empty.
func Pad(code string, width int) string {
	code = Clean(code)
	if code == "" {
		return ""
	}
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}

// Voivodeship returns the two-character province prefix of a county code.
func Voivodeship(countyCode string) string {
	c := Pad(countyCode, CountyWidth)
	if len(c) < VoivodeshipWidth {
		return ""
	}
	return c[:VoivodeshipWidth]
}

// VoivodeshipKey returns the join key of a code that is already at
// voivodeship level.
func VoivodeshipKey(code string) string {
	c := Pad(code, VoivodeshipWidth)
	if len(c) < VoivodeshipWidth {
		return ""
	}
	return c[:VoivodeshipWidth]
}

// SamePrefix reports whether two codes share the voivodeship prefix.
func SamePrefix(a, b string) bool {
	pa, pb := prefix(a), prefix(b)
	return pa != "" && pa == pb
}

func prefix(code string) string {
	code = Clean(code)
	if len(code) < VoivodeshipWidth {
		return ""
	}
	return code[:VoivodeshipWidth]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
