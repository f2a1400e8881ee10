package smpp

import (
	"fmt"
	"unicode/utf16"
)

// CodecErrorPolicy controls what TextCodec.Encode does when a
// character cannot be represented in the chosen encoding (spec.md §6
// codec_error_policy).
type CodecErrorPolicy string

const (
	// PolicyStrict fails the encode with ErrUnencodableText.
	PolicyStrict CodecErrorPolicy = "strict"
	// PolicyIgnore drops unencodable characters.
	PolicyIgnore CodecErrorPolicy = "ignore"
	// PolicyReplace substitutes unencodable characters with '?'.
	PolicyReplace CodecErrorPolicy = "replace"
)

// TextCodec turns a message's text into its on-the-wire byte form and
// reports the data_coding value that goes with it (spec.md §3, §4.1).
type TextCodec interface {
	Name() string
	DataCoding() uint8
	Encode(text string, policy CodecErrorPolicy) ([]byte, error)
	Decode(data []byte) (string, error)
}

// LookupTextCodec resolves one of the encoding names spec.md §3
// recognizes: "gsm0338" (default), "ucs2", "latin1", "ascii", "utf-8".
func LookupTextCodec(name string) (TextCodec, error) {
	switch name {
	case "", "gsm0338":
		return gsm0338Codec{}, nil
	case "ucs2":
		return ucs2Codec{}, nil
	case "latin1":
		return latin1Codec{}, nil
	case "ascii":
		return asciiCodec{}, nil
	case "utf-8":
		return utf8Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// gsm7BitAlphabet is the GSM 03.38 default alphabet's basic page.
var gsm7BitAlphabet = map[rune]byte{
	'@': 0x00, '£': 0x01, '$': 0x02, '¥': 0x03, 'è': 0x04, 'é': 0x05, 'ù': 0x06, 'ì': 0x07,
	'ò': 0x08, 'Ç': 0x09, '\n': 0x0A, 'Ø': 0x0B, 'ø': 0x0C, '\r': 0x0D, 'Å': 0x0E, 'å': 0x0F,
	'Δ': 0x10, '_': 0x11, 'Φ': 0x12, 'Γ': 0x13, 'Λ': 0x14, 'Ω': 0x15, 'Π': 0x16, 'Ψ': 0x17,
	'Σ': 0x18, 'Θ': 0x19, 'Ξ': 0x1A, 'Æ': 0x1C, 'æ': 0x1D, 'ß': 0x1E, 'É': 0x1F,
	' ': 0x20, '!': 0x21, '"': 0x22, '#': 0x23, '¤': 0x24, '%': 0x25, '&': 0x26, '\'': 0x27,
	'(': 0x28, ')': 0x29, '*': 0x2A, '+': 0x2B, ',': 0x2C, '-': 0x2D, '.': 0x2E, '/': 0x2F,
	'0': 0x30, '1': 0x31, '2': 0x32, '3': 0x33, '4': 0x34, '5': 0x35, '6': 0x36, '7': 0x37,
	'8': 0x38, '9': 0x39, ':': 0x3A, ';': 0x3B, '<': 0x3C, '=': 0x3D, '>': 0x3E, '?': 0x3F,
	'¡': 0x40, 'A': 0x41, 'B': 0x42, 'C': 0x43, 'D': 0x44, 'E': 0x45, 'F': 0x46, 'G': 0x47,
	'H': 0x48, 'I': 0x49, 'J': 0x4A, 'K': 0x4B, 'L': 0x4C, 'M': 0x4D, 'N': 0x4E, 'O': 0x4F,
	'P': 0x50, 'Q': 0x51, 'R': 0x52, 'S': 0x53, 'T': 0x54, 'U': 0x55, 'V': 0x56, 'W': 0x57,
	'X': 0x58, 'Y': 0x59, 'Z': 0x5A, 'Ä': 0x5B, 'Ö': 0x5C, 'Ñ': 0x5D, 'Ü': 0x5E, '§': 0x5F,
	'¿': 0x60, 'a': 0x61, 'b': 0x62, 'c': 0x63, 'd': 0x64, 'e': 0x65, 'f': 0x66, 'g': 0x67,
	'h': 0x68, 'i': 0x69, 'j': 0x6A, 'k': 0x6B, 'l': 0x6C, 'm': 0x6D, 'n': 0x6E, 'o': 0x6F,
	'p': 0x70, 'q': 0x71, 'r': 0x72, 's': 0x73, 't': 0x74, 'u': 0x75, 'v': 0x76, 'w': 0x77,
	'x': 0x78, 'y': 0x79, 'z': 0x7A, 'ä': 0x7B, 'ö': 0x7C, 'ñ': 0x7D, 'ü': 0x7E, 'à': 0x7F,
}

var gsm7BitExtended = map[rune]byte{
	'\f': 0x0A, '^': 0x14, '{': 0x28, '}': 0x29, '\\': 0x2F,
	'[': 0x3C, '~': 0x3D, ']': 0x3E, '|': 0x40, '€': 0x65,
}

var gsm7BitReverse = invertByteMap(gsm7BitAlphabet)
var gsm7BitExtendedReverse = invertByteMap(gsm7BitExtended)

func invertByteMap(m map[rune]byte) map[byte]rune {
	out := make(map[byte]rune, len(m))
	for r, b := range m {
		out[b] = r
	}
	return out
}

type gsm0338Codec struct{}

func (gsm0338Codec) Name() string      { return "gsm0338" }
func (gsm0338Codec) DataCoding() uint8 { return DataCodingDefault }

func (gsm0338Codec) Encode(text string, policy CodecErrorPolicy) ([]byte, error) {
	var out []byte
	for _, r := range text {
		if b, ok := gsm7BitAlphabet[r]; ok {
			out = append(out, b)
			continue
		}
		if b, ok := gsm7BitExtended[r]; ok {
			out = append(out, 0x1B, b)
			continue
		}
		switch policy {
		case PolicyIgnore:
			continue
		case PolicyReplace:
			out = append(out, gsm7BitAlphabet['?'])
		default:
			return nil, fmt.Errorf("%w: %q not representable in gsm0338", ErrUnencodableText, r)
		}
	}
	return out, nil
}

func (gsm0338Codec) Decode(data []byte) (string, error) {
	var out []rune
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == 0x1B && i+1 < len(data) {
			if r, ok := gsm7BitExtendedReverse[data[i+1]]; ok {
				out = append(out, r)
				i++
				continue
			}
		}
		if r, ok := gsm7BitReverse[b]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, ' ')
	}
	return string(out), nil
}

type ucs2Codec struct{}

func (ucs2Codec) Name() string      { return "ucs2" }
func (ucs2Codec) DataCoding() uint8 { return DataCodingUCS2 }

func (ucs2Codec) Encode(text string, policy CodecErrorPolicy) ([]byte, error) {
	units := utf16.Encode([]rune(text))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[i*2] = byte(u >> 8)
		out[i*2+1] = byte(u)
	}
	return out, nil
}

func (ucs2Codec) Decode(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", fmt.Errorf("%w: ucs2 payload has odd length", ErrMalformedPDU)
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[i*2])<<8 | uint16(data[i*2+1])
	}
	return string(utf16.Decode(units)), nil
}

type latin1Codec struct{}

func (latin1Codec) Name() string      { return "latin1" }
func (latin1Codec) DataCoding() uint8 { return DataCodingLatin1 }

func (latin1Codec) Encode(text string, policy CodecErrorPolicy) ([]byte, error) {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xFF {
			switch policy {
			case PolicyIgnore:
				continue
			case PolicyReplace:
				out = append(out, '?')
				continue
			default:
				return nil, fmt.Errorf("%w: %q not representable in latin1", ErrUnencodableText, r)
			}
		}
		out = append(out, byte(r))
	}
	return out, nil
}

func (latin1Codec) Decode(data []byte) (string, error) {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

type asciiCodec struct{}

func (asciiCodec) Name() string      { return "ascii" }
func (asciiCodec) DataCoding() uint8 { return DataCodingIA5 }

func (asciiCodec) Encode(text string, policy CodecErrorPolicy) ([]byte, error) {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0x7F {
			switch policy {
			case PolicyIgnore:
				continue
			case PolicyReplace:
				out = append(out, '?')
				continue
			default:
				return nil, fmt.Errorf("%w: %q not representable in ascii", ErrUnencodableText, r)
			}
		}
		out = append(out, byte(r))
	}
	return out, nil
}

func (asciiCodec) Decode(data []byte) (string, error) { return string(data), nil }

type utf8Codec struct{}

func (utf8Codec) Name() string      { return "utf-8" }
func (utf8Codec) DataCoding() uint8 { return DataCodingLatin1 }

func (utf8Codec) Encode(text string, policy CodecErrorPolicy) ([]byte, error) {
	return []byte(text), nil
}

func (utf8Codec) Decode(data []byte) (string, error) { return string(data), nil }
