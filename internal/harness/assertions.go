package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/roach88/anchorgo/internal/ir"
)

// AssertionError is returned when a check does not match its expectation.
type AssertionError struct {
	Check    string // e.g. "accounts[0] Counter"
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Check failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// assertError checks the outcome of an operation against expect_error.
// It returns nil when the outcome is what the check asked for.
func assertError(check, expectKind string, err error) error {
	switch {
	case expectKind == "" && err == nil:
		return nil
	case expectKind == "":
		return &AssertionError{Check: check, Expected: "success", Actual: err.Error()}
	case err == nil:
		return &AssertionError{Check: check, Expected: "error " + expectKind, Actual: "success"}
	}
	if got := string(ir.KindOf(err)); got != expectKind {
		if got == "" {
			got = "untyped error"
		}
		return &AssertionError{
			Check:    check,
			Expected: "error " + expectKind,
			Actual:   fmt.Sprintf("%s: %v", got, err),
		}
	}
	return nil
}

// assertSubset checks that every entry of expected appears in actual.
// actual is ordered JSON as produced by codec.MarshalJSON.
func assertSubset(check string, expected map[string]any, actual []byte) error {
	if expected == nil {
		return nil
	}
	want, err := normalize(expected)
	if err != nil {
		return fmt.Errorf("%s: expect: %w", check, err)
	}
	var got any
	dec := json.NewDecoder(bytes.NewReader(actual))
	dec.UseNumber()
	if err := dec.Decode(&got); err != nil {
		return fmt.Errorf("%s: decoded value: %w", check, err)
	}
	if path, ok := matchSubset(want, got, ""); !ok {
		return &AssertionError{
			Check:    check,
			Expected: fmt.Sprintf("%s = %s", pathOrRoot(path), describe(lookup(want, path))),
			Actual:   fmt.Sprintf("%s = %s", pathOrRoot(path), describe(lookup(got, path))),
		}
	}
	return nil
}

// normalize round-trips v through JSON so YAML and decoded values share
// one representation: maps, lists, json.Number, string, bool and nil.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchSubset reports whether want is a subset of got. On a mismatch it
// returns the dotted path of the first differing entry, visiting map keys
// in sorted order.
func matchSubset(want, got any, path string) (string, bool) {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return path, false
		}
		keys := make([]string, 0, len(w))
		for k := range w {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			gv, ok := g[k]
			if !ok {
				return join(path, k), false
			}
			if p, ok := matchSubset(w[k], gv, join(path, k)); !ok {
				return p, false
			}
		}
		return "", true
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return path, false
		}
		for i := range w {
			if p, ok := matchSubset(w[i], g[i], join(path, fmt.Sprintf("[%d]", i))); !ok {
				return p, false
			}
		}
		return "", true
	case json.Number:
		g, ok := got.(json.Number)
		if !ok || !numbersEqual(w, g) {
			return path, false
		}
		return "", true
	}
	if want != got {
		return path, false
	}
	return "", true
}

func numbersEqual(a, b json.Number) bool {
	x, ok := new(big.Rat).SetString(string(a))
	if !ok {
		return false
	}
	y, ok := new(big.Rat).SetString(string(b))
	if !ok {
		return false
	}
	return x.Cmp(y) == 0
}

// lookup follows a path produced by matchSubset. It returns nil when the
// path does not exist in v.
func lookup(v any, path string) any {
	if path == "" {
		return v
	}
	for _, part := range strings.Split(path, ".") {
		switch c := v.(type) {
		case map[string]any:
			var ok bool
			if v, ok = c[part]; !ok {
				return missing{}
			}
		case []any:
			var i int
			if _, err := fmt.Sscanf(part, "[%d]", &i); err != nil || i >= len(c) {
				return missing{}
			}
			v = c[i]
		default:
			return missing{}
		}
	}
	return v
}

// missing marks an absent entry in failure messages.
type missing struct{}

func describe(v any) string {
	if _, ok := v.(missing); ok {
		return "<missing>"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func join(path, part string) string {
	if path == "" {
		return part
	}
	return path + "." + part
}

func pathOrRoot(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
