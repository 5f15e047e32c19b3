package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// UnsupportedValueError is returned by Marshal for values outside the
// canonical set (after Canonicalize) and for non-finite floats.
type UnsupportedValueError struct {
	Value any
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("canonical: unsupported value %#v (%T)", e.Value, e.Value)
}

// Marshal encodes the canonical form of v as compact JSON with "," and ":"
// separators, sorted keys, and ASCII-only output. Floats always carry a
// decimal point or exponent so they decode back to float64. Strings holding
// invalid UTF-8 have each bad byte written as U+FFFD, so they don't round-trip
// byte for byte.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, Canonicalize(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StableSerialize returns the Marshal output as a string. Values Marshal
// rejects fall back to their Go-syntax representation; it never fails.
func StableSerialize(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%#v", v)
		}
	}()
	b, err := Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

// Unmarshal decodes JSON into canonical values: objects become Map, integral
// numbers become int64, other numbers float64.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("canonical: decode: trailing data after value")
	}
	return Canonicalize(v), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		return encodeFloat(buf, x)
	case string:
		encodeString(buf, x)
	case []any:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Map:
		buf.WriteByte('{')
		for i, p := range x.pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, p.Key)
			buf.WriteByte(':')
			if err := encode(buf, p.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return &UnsupportedValueError{Value: v}
	}
	return nil
}

func encodeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return &UnsupportedValueError{Value: f}
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	buf.WriteString(s)
	return nil
}

const hex = "0123456789abcdef"

func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		b := s[i]
		if b < utf8.RuneSelf {
			switch {
			case b == '"' || b == '\\':
				buf.WriteByte('\\')
				buf.WriteByte(b)
			case b == '\n':
				buf.WriteString(`\n`)
			case b == '\r':
				buf.WriteString(`\r`)
			case b == '\t':
				buf.WriteString(`\t`)
			case b == '\b':
				buf.WriteString(`\b`)
			case b == '\f':
				buf.WriteString(`\f`)
			case b < 0x20:
				writeUnicodeEscape(buf, rune(b))
			default:
				buf.WriteByte(b)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r > 0xFFFF {
			r1, r2 := utf16.EncodeRune(r)
			writeUnicodeEscape(buf, r1)
			writeUnicodeEscape(buf, r2)
		} else {
			// Invalid UTF-8 decodes to U+FFFD and is written as such.
			writeUnicodeEscape(buf, r)
		}
		i += size
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hex[r>>12&0xF])
	buf.WriteByte(hex[r>>8&0xF])
	buf.WriteByte(hex[r>>4&0xF])
	buf.WriteByte(hex[r&0xF])
}
