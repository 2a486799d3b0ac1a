// Package encoding converts UTF-8 receipt text into the single-byte
// form thermal printers expect, and provides the fixed-width layout
// helpers the formatters build lines with.
package encoding

import "strings"

// cp850 maps the non-ASCII characters that appear on Spanish receipts
// to their CP850 code points. The printer is switched to code page 850
// before any text is sent.
var cp850 = map[rune]byte{
	'á': 0xA0, 'é': 0x82, 'í': 0xA1, 'ó': 0xA2, 'ú': 0xA3,
	'Á': 0xB5, 'É': 0x90, 'Í': 0xD6, 'Ó': 0xE0, 'Ú': 0xE9,
	'ñ': 0xA4, 'Ñ': 0xA5,
	'ü': 0x81, 'Ü': 0x9A,
	'¿': 0xA8, '¡': 0xAD,
	'°': 0xF8, 'º': 0xA7, 'ª': 0xA6,
	'¢': 0xBD, '£': 0x9C,
	'«': 0xAE, '»': 0xAF,
	'±': 0xF1, '÷': 0xF6, '·': 0xFA,
	'ß': 0xE1,
}

// transliterations handles characters with no CP850 code point. Each
// entry produces at least one byte so visual alignment survives.
var transliterations = map[rune]string{
	'₡': "C",
	'€': "E",
	'–': "-", '—': "-",
	'‘': "'", '’': "'",
	'“': "\"", '”': "\"",
	'…': "...",
	' ': " ",
}

// Encode converts s to printer bytes. ASCII passes through unchanged,
// characters in the code page table become their single-byte code
// point, transliterable characters are replaced by ASCII equivalents
// and anything else becomes '?'. The output never contains multi-byte
// sequences the printer would render as garbage.
func Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r < 0x80:
			out = append(out, byte(r))
		default:
			if b, ok := cp850[r]; ok {
				out = append(out, b)
			} else if t, ok := transliterations[r]; ok {
				out = append(out, t...)
			} else {
				out = append(out, '?')
			}
		}
	}
	return out
}

// Sanitize prepares free-form user text for printing: control
// characters are removed, runs of whitespace collapse to a single
// space and surrounding whitespace is trimmed. Printable text is
// otherwise left alone.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			space = true
		case r < 0x20 || r == 0x7F:
			// drop other control characters
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
