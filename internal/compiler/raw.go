package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// RawDocument is an IDL document decoded into an untyped tree.
//
// Loaders may produce numbers as json.Number, float64, int, int64 or
// uint64 depending on the source format; the accessors below accept all of
// them. Maps with non-string keys (as some YAML decoders produce) are
// accepted wherever a map is expected.
type RawDocument map[string]any

// ParseJSON decodes a JSON document, preserving integer precision.
func ParseJSON(data []byte) (RawDocument, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse IDL JSON: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse IDL JSON: document is not an object")
	}
	return RawDocument(doc), nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case RawDocument:
		return map[string]any(m), true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func getString(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

func getMap(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return asMap(v)
}

func getList(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	return asList(v)
}

func getBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func getDocs(m map[string]any) []string {
	list, _ := getList(m, "docs")
	var docs []string
	for _, d := range list {
		if s, ok := d.(string); ok {
			docs = append(docs, s)
		}
	}
	return docs
}

// literal renders a scalar as the text an IDL would carry for it.
func literal(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
