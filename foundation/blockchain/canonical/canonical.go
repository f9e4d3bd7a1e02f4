// Package canonical provides the deterministic text encoding used to hash
// blocks and to move them across the wire and onto disk. The output is byte
// for byte what Python's json.dumps(value, sort_keys=True) produces, so chains
// written by either implementation can be verified by the other.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ErrUnsupportedFloat is returned when a NaN or infinite value is encoded.
// The canonical form has no representation for them.
var ErrUnsupportedFloat = errors.New("canonical: NaN and Inf are not supported")

// Valuer is implemented by types that provide their own canonical value,
// usually a map[string]any keyed by the wire field names.
type Valuer interface {
	CanonicalValue() any
}

// Marshal returns the canonical encoding of the value. Object keys are
// sorted at every level of nesting.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Hash returns the lowercase hex encoded SHA-256 digest of the canonical
// encoding of the value.
func Hash(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// =============================================================================

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")

	case Valuer:
		return encode(buf, val.CanonicalValue())

	case bool:
		if val {
			buf.WriteString("true")
			return nil
		}
		buf.WriteString("false")

	case string:
		writeString(buf, val)

	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))

	case float64:
		s, err := FormatFloat(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)

	case map[string]any:
		return encodeObject(buf, val)

	case []any:
		return encodeArray(buf, len(val), func(i int) any { return val[i] })

	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Errorf("canonical: unsupported type %T", v)
		}
		return encodeArray(buf, rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}

	return nil
}

func encodeObject(buf *bytes.Buffer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	// Byte order of UTF-8 strings is code point order, which is what
	// Python uses for sort_keys.
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeString(buf, k)
		buf.WriteString(": ")
		if err := encode(buf, m[k]); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')

	return nil
}

func encodeArray(buf *bytes.Buffer, n int, at func(i int) any) error {
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := encode(buf, at(i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')

	return nil
}

// writeString writes an ASCII-only quoted string. Everything outside the
// printable ASCII range is written as a \uXXXX escape, using a surrogate
// pair above the basic multilingual plane.
func writeString(buf *bytes.Buffer, s string) {
	const hexDigits = "0123456789abcdef"

	writeUnit := func(u rune) {
		buf.WriteString(`\u`)
		buf.WriteByte(hexDigits[(u>>12)&0xf])
		buf.WriteByte(hexDigits[(u>>8)&0xf])
		buf.WriteByte(hexDigits[(u>>4)&0xf])
		buf.WriteByte(hexDigits[u&0xf])
	}

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
				buf.WriteByte(byte(r))
			case r > 0xffff:
				r -= 0x10000
				writeUnit(0xd800 | ((r >> 10) & 0x3ff))
				writeUnit(0xdc00 | (r & 0x3ff))
			default:
				writeUnit(r)
			}
		}
	}
	buf.WriteByte('"')
}

// FormatFloat renders the value using the shortest representation that
// round trips, the way Python's float repr does it: integral values keep a
// trailing ".0" and exponent notation is used when the decimal point would
// fall outside (-4, 16].
func FormatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", ErrUnsupportedFloat
	}

	// Shortest round trip digits in the form d.ddde±XX.
	s := strconv.FormatFloat(f, 'e', -1, 64)

	var neg bool
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	mantissa, expStr, _ := strings.Cut(s, "e")
	exp, err := strconv.Atoi(expStr)
	if err != nil {
		return "", fmt.Errorf("canonical: parsing exponent %q: %w", s, err)
	}

	digits := strings.Replace(mantissa, ".", "", 1)
	decpt := exp + 1

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}

	switch {
	case decpt > -4 && decpt <= 16:
		switch {
		case decpt <= 0:
			sb.WriteString("0.")
			sb.WriteString(strings.Repeat("0", -decpt))
			sb.WriteString(digits)
		case decpt >= len(digits):
			sb.WriteString(digits)
			sb.WriteString(strings.Repeat("0", decpt-len(digits)))
			sb.WriteString(".0")
		default:
			sb.WriteString(digits[:decpt])
			sb.WriteByte('.')
			sb.WriteString(digits[decpt:])
		}

	default:
		sb.WriteString(digits[:1])
		if len(digits) > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}

		e := decpt - 1
		sb.WriteByte('e')
		if e < 0 {
			sb.WriteByte('-')
			e = -e
		} else {
			sb.WriteByte('+')
		}
		if e < 10 {
			sb.WriteByte('0')
		}
		sb.WriteString(strconv.Itoa(e))
	}

	return sb.String(), nil
}
