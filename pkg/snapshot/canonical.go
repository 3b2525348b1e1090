/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const hexDigits = "0123456789abcdef"

// Canonical renders v as single-line JSON with keys sorted at every level,
// ", " between items and ": " after keys. Numbers decoded as json.Number
// keep their original text.
func Canonical(v interface{}) (string, error) {
	var b strings.Builder

	if err := writeCanonical(&b, v); err != nil {
		return "", err
	}

	return b.String(), nil
}

//nolint:gocyclo // one case per JSON kind
func writeCanonical(b *strings.Builder, v interface{}) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case string:
		writeQuoted(b, t)
	case json.Number:
		b.WriteString(t.String())
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
	case float64:
		return writeFloat(b, t)
	case float32:
		return writeFloat(b, float64(t))
	case map[string]interface{}:
		return writeMapping(b, t)
	case []interface{}:
		return writeList(b, t)
	default:
		normalized, err := normalize(v)
		if err != nil {
			return err
		}

		return writeCanonical(b, normalized)
	}

	return nil
}

func writeMapping(b *strings.Builder, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	b.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}

		writeQuoted(b, k)
		b.WriteString(": ")

		if err := writeCanonical(b, m[k]); err != nil {
			return err
		}
	}

	b.WriteByte('}')

	return nil
}

func writeList(b *strings.Builder, l []interface{}) error {
	b.WriteByte('[')

	for i, item := range l {
		if i > 0 {
			b.WriteString(", ")
		}

		if err := writeCanonical(b, item); err != nil {
			return err
		}
	}

	b.WriteByte(']')

	return nil
}

func writeFloat(b *strings.Builder, f float64) error {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fmt.Errorf("%w: %v", errNonFinite, f)
	}

	b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))

	return nil
}

// normalize converts arbitrary Go values (structs, typed maps and slices)
// to the generic JSON forms through a marshal round trip.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot serialize %s: %w", reflect.TypeOf(v), err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("cannot serialize %s: %w", reflect.TypeOf(v), err)
	}

	return out, nil
}

// writeQuoted writes s as an ASCII-only JSON string, escaping control and
// non-ASCII characters as \uXXXX so output matches legacy reports.
func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r < 0x7f:
				b.WriteRune(r)
			case r > 0xffff:
				r1, r2 := surrogates(r)
				writeUnicodeEscape(b, r1)
				writeUnicodeEscape(b, r2)
			default:
				writeUnicodeEscape(b, r)
			}
		}
	}

	b.WriteByte('"')
}

func surrogates(r rune) (rune, rune) {
	r -= 0x10000

	return 0xd800 + (r>>10)&0x3ff, 0xdc00 + r&0x3ff
}

func writeUnicodeEscape(b *strings.Builder, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[(r>>12)&0xf])
	b.WriteByte(hexDigits[(r>>8)&0xf])
	b.WriteByte(hexDigits[(r>>4)&0xf])
	b.WriteByte(hexDigits[r&0xf])
}
