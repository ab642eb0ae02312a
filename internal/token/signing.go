package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// wireOrder is the key order of an encoded token. Signing input always uses
// sorted keys; the outer token keeps the payload's field order.
var wireOrder = []string{
	"schema_signature",
	"canonical_dict_version",
	"resolved_spec_hash",
	"resolution_status",
	"expires_at",
	"signature",
}

// signingJSON encodes fields with sorted keys in the signer's historical
// layout: ", " and ": " separators, non-ASCII escaped as \uXXXX and floats
// in shortest round-trip form with a trailing ".0" when integral. Tokens
// minted by earlier signers verify only if these bytes match exactly.
func signingJSON(fields map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// wireJSON encodes fields in wireOrder with the same layout as signingJSON.
func wireJSON(fields map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, key := range wireOrder {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if !first {
			buf.WriteString(", ")
		}
		first = false
		writeString(&buf, key)
		buf.WriteString(": ")
		if err := writeValue(&buf, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v any) error {
	switch v := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case string:
		writeString(buf, v)
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case float64:
		return writeFloat(buf, v)
	case json.Number:
		return writeNumber(buf, v)
	case []any:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(", ")
			}
			writeString(buf, k)
			buf.WriteString(": ")
			if err := writeValue(buf, v[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported token value %T", v)
	}
	return nil
}

// writeNumber keeps integers as integers and re-renders anything with a
// fraction or exponent as a float, mirroring a decode/encode round trip.
func writeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("token number %s: %w", s, err)
		}
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("token number %s: %w", s, err)
	}
	return writeFloat(buf, f)
}

// writeFloat renders f as its shortest round-trip digits. Decimal exponents
// from -4 to 15 print in positional form with at least one fractional
// digit; everything else uses e-notation with a two-digit minimum exponent.
func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("token number %v is not finite", f)
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		return fmt.Errorf("token number %v: %w", f, err)
	}
	if exp < -4 || exp > 15 {
		buf.WriteString(sci)
		return nil
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	buf.WriteString(fixed)
	if !strings.ContainsRune(fixed, '.') {
		buf.WriteString(".0")
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeString quotes s using only printable ASCII.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				buf.WriteRune(r)
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				writeEscape(buf, hi)
				writeEscape(buf, lo)
			default:
				writeEscape(buf, r)
			}
		}
	}
	buf.WriteByte('"')
}

func writeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[r>>12&0xf])
	buf.WriteByte(hexDigits[r>>8&0xf])
	buf.WriteByte(hexDigits[r>>4&0xf])
	buf.WriteByte(hexDigits[r&0xf])
}
