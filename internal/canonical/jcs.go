// Package canonical serializes JSON documents per RFC 8785 (JCS) so equal
// documents always hash to the same digest.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf16"
)

// DigestPrefix marks the hash algorithm of a digest
const DigestPrefix = "sha256:"

// Marshal encodes v as canonical JSON. Values that are not plain JSON trees
// (structs, typed maps) are round-tripped through encoding/json first.
func Marshal(v interface{}) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeValue(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns "sha256:<hex>" of the canonical encoding of v.
func Digest(v interface{}) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return DigestPrefix + hex.EncodeToString(sum[:]), nil
}

func toTree(v interface{}) (interface{}, error) {
	switch v.(type) {
	case nil, bool, string, float64, json.Number, map[string]interface{}, []interface{}:
		return v, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return tree, nil
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch val := v.(type) {
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		s, err := formatNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return err
		}
		s, err := formatNumber(f)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case string:
		writeString(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		return writeObject(buf, val)
	default:
		// nested non-tree values come from callers building trees by hand
		tree, err := toTree(val)
		if err != nil {
			return err
		}
		return writeValue(buf, tree)
	}
	return nil
}

func writeObject(buf *bytes.Buffer, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	// keys sort by UTF-16 code units, not bytes
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, key)
		buf.WriteByte(':')
		if err := writeValue(buf, m[key]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func compareUTF16(a, b string) int {
	aUnits := utf16.Encode([]rune(a))
	bUnits := utf16.Encode([]rune(b))

	for i := 0; i < len(aUnits) && i < len(bUnits); i++ {
		if aUnits[i] != bUnits[i] {
			if aUnits[i] < bUnits[i] {
				return -1
			}
			return 1
		}
	}
	return len(aUnits) - len(bUnits)
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func formatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%v is not a valid JSON number", f)
	}
	// -0 is written as 0
	if f == 0 {
		return "0", nil
	}
	if f == math.Trunc(f) && math.Abs(f) <= 1<<53-1 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
