package dbf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// EncodingConverter decodes raw character data from the table's code page
// to UTF-8. CodePage reports the language driver byte the converter
// corresponds to, zero when there is none.
type EncodingConverter interface {
	Decode(in []byte) ([]byte, error)
	CodePage() byte
}

// DefaultConverter wraps a golang.org/x/text encoding.
type DefaultConverter struct {
	encoding encoding.Encoding
}

// NewDefaultConverter creates a new converter from a x/text encoding,
// for example charmap.Windows1250.
func NewDefaultConverter(enc encoding.Encoding) DefaultConverter {
	return DefaultConverter{encoding: enc}
}

// Decode decodes the byte slice to UTF-8. Data that already is valid UTF-8
// is passed through unchanged.
func (c DefaultConverter) Decode(in []byte) ([]byte, error) {
	if utf8.Valid(in) {
		return in, nil
	}
	r := transform.NewReader(bytes.NewReader(in), c.encoding.NewDecoder())
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError("dbf-encoding-decode-1", err)
	}
	return data, nil
}

// CodePage returns the canonical language driver byte matching the
// wrapped encoding.
func (c DefaultConverter) CodePage() byte {
	switch c.encoding {
	case charmap.CodePage437:
		return 0x01
	case charmap.CodePage850:
		return 0x02
	case charmap.Windows1252:
		return 0x03
	case charmap.Macintosh:
		return 0x04
	case charmap.CodePage852:
		return 0x64
	case charmap.CodePage866:
		return 0x65
	case charmap.CodePage865:
		return 0x66
	case charmap.Windows874:
		return 0x7C
	case charmap.MacintoshCyrillic:
		return 0x96
	case charmap.Windows1250:
		return 0xC8
	case charmap.Windows1251:
		return 0xC9
	case charmap.Windows1254:
		return 0xCA
	case charmap.Windows1253:
		return 0xCB
	case charmap.Windows1257:
		return 0xCC
	}
	return 0
}

// UTF8Converter assumes the table is UTF-8 already and passes data through.
type UTF8Converter struct{}

func (c UTF8Converter) Decode(in []byte) ([]byte, error) {
	return in, nil
}

func (c UTF8Converter) CodePage() byte {
	return 0
}

// Language driver bytes as written by dBase, FoxPro and clones, mapped to
// the corresponding single byte encoding.
// https://learn.microsoft.com/en-us/previous-versions/visualstudio/foxpro/8t45x02s(v=vs.80)
var codePages = map[byte]encoding.Encoding{
	0x01: charmap.CodePage437,
	0x02: charmap.CodePage850,
	0x03: charmap.Windows1252,
	0x04: charmap.Macintosh,
	0x57: charmap.Windows1252,
	0x58: charmap.Windows1252,
	0x59: charmap.Windows1252,
	0x64: charmap.CodePage852,
	0x65: charmap.CodePage866,
	0x66: charmap.CodePage865,
	0x67: charmap.CodePage865, // icelandic 861 has no x/text charmap, 865 is the closest DOS page
	0x6A: charmap.CodePage437, // greek 737 has no x/text charmap, 437 is the closest DOS page
	0x6B: charmap.Windows1254,
	0x78: charmap.Windows1252, // CJK pages are multi byte, unsupported
	0x7C: charmap.Windows874,
	0x86: charmap.CodePage866,
	0x87: charmap.CodePage852,
	0x88: charmap.CodePage865,
	0x96: charmap.MacintoshCyrillic,
	0xC8: charmap.Windows1250,
	0xC9: charmap.Windows1251,
	0xCA: charmap.Windows1254,
	0xCB: charmap.Windows1253,
	0xCC: charmap.Windows1257,
}

// ConverterFromCodePage interprets the language driver byte of the file
// header. Unknown bytes fall back to UTF-8 pass through.
func ConverterFromCodePage(codePage byte) EncodingConverter {
	if enc, ok := codePages[codePage]; ok {
		return NewDefaultConverter(enc)
	}
	debugf("No encoding for code page mark 0x%02x, falling back to UTF-8", codePage)
	return UTF8Converter{}
}

// Encoding names accepted from .cpg sidecar files.
var encodingNames = map[string]encoding.Encoding{
	"UTF-8":        nil,
	"UTF8":         nil,
	"CP437":        charmap.CodePage437,
	"CP850":        charmap.CodePage850,
	"CP852":        charmap.CodePage852,
	"CP865":        charmap.CodePage865,
	"CP866":        charmap.CodePage866,
	"CP874":        charmap.Windows874,
	"WINDOWS-874":  charmap.Windows874,
	"CP1250":       charmap.Windows1250,
	"WINDOWS-1250": charmap.Windows1250,
	"CP1251":       charmap.Windows1251,
	"WINDOWS-1251": charmap.Windows1251,
	"CP1252":       charmap.Windows1252,
	"WINDOWS-1252": charmap.Windows1252,
	"CP1253":       charmap.Windows1253,
	"WINDOWS-1253": charmap.Windows1253,
	"CP1254":       charmap.Windows1254,
	"WINDOWS-1254": charmap.Windows1254,
	"CP1257":       charmap.Windows1257,
	"WINDOWS-1257": charmap.Windows1257,
	"ISO-8859-1":   charmap.ISO8859_1,
	"LATIN1":       charmap.ISO8859_1,
	"ISO-8859-2":   charmap.ISO8859_2,
}

// ConverterFromName resolves a plain text encoding name as found in .cpg
// sidecar files.
func ConverterFromName(name string) (EncodingConverter, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	enc, ok := encodingNames[key]
	if !ok {
		return nil, newError("dbf-encoding-name-1", fmt.Errorf("%w: %q", ErrInvalidEncoding, name))
	}
	if enc == nil {
		return UTF8Converter{}, nil
	}
	return NewDefaultConverter(enc), nil
}

// applyFallback post processes decoded text according to the configured
// character decode fallback strategy. The x/text decoders substitute
// invalid sequences with the replacement rune, which matches the replace
// strategy as is.
func applyFallback(decoded []byte, fallback DecodeFallback) ([]byte, error) {
	switch fallback {
	case FallbackReplace:
		return decoded, nil
	case FallbackSkip:
		if !bytes.ContainsRune(decoded, utf8.RuneError) {
			return decoded, nil
		}
		out := make([]byte, 0, len(decoded))
		for _, r := range string(decoded) {
			if r == utf8.RuneError {
				continue
			}
			out = utf8.AppendRune(out, r)
		}
		return out, nil
	case FallbackFail:
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			return nil, newError("dbf-encoding-fallback-1", fmt.Errorf("%w: undecodable byte sequence", ErrInvalidEncoding))
		}
		return decoded, nil
	}
	return decoded, nil
}
