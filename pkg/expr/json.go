// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// marshalJSON renders a value as canonical JSON text, preserving object key
// insertion order. NaN and the infinities, which JSON cannot carry, render
// as null.
func marshalJSON(v Value) string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}

func writeJSON(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case Null:
		b.WriteString("null")
	case Boolean:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			b.WriteString("null")
			return
		}
		b.WriteString(formatNumber(f))
	case String:
		writeJSONString(b, string(val))
	case Array:
		b.WriteByte('[')
		for i, el := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, el)
		}
		b.WriteByte(']')
	case *Object:
		b.WriteByte('{')
		for i, pair := 0, val.m.Oldest(); pair != nil; i, pair = i+1, pair.Next() {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, pair.Key)
			b.WriteByte(':')
			writeJSON(b, pair.Value)
		}
		b.WriteByte('}')
	}
}

func writeJSONString(b *strings.Builder, s string) {
	enc, err := json.Marshal(s)
	if err != nil {
		// Marshaling a string never fails; invalid UTF-8 is replaced.
		b.WriteString(`""`)
		return
	}
	b.Write(enc)
}

// unmarshalJSON parses JSON text into a Value, preserving object key order
// by walking the decoder's token stream instead of decoding into Go maps.
func unmarshalJSON(s string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, &JSONError{Cause: err}
	}
	// Reject trailing garbage after the first value.
	if tok, err := dec.Token(); err == nil {
		return nil, &JSONError{Cause: fmt.Errorf("unexpected %v after JSON value", tok)}
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFrom(dec, tok)
}

func decodeFrom(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Boolean(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			arr := Array{}
			for dec.More() {
				el, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, el)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
