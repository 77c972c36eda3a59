package model

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/sarchlab/nsim/simerr"
)

// Params is a configuration map of model parameters keyed by their names, for
// example {"I_e": 1000.0} or {"spike_times": []float64{4.8, 11.6}}.
type Params map[string]any

// Clone returns a shallow copy of the map.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}

	return c
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// paramReader consumes a Params map key by key and remembers the first error.
// Keys that are never consumed are reported as unknown by done.
type paramReader struct {
	model string
	p     Params
	used  map[string]bool
	err   error
}

func newParamReader(model string, p Params) *paramReader {
	return &paramReader{
		model: model,
		p:     p,
		used:  make(map[string]bool),
	}
}

func (r *paramReader) fail(key string, format string, args ...any) {
	if r.err != nil {
		return
	}

	r.err = simerr.Configf("%s: parameter %s: %s",
		r.model, key, fmt.Sprintf(format, args...))
}

func (r *paramReader) lookup(key string) (any, bool) {
	v, ok := r.p[key]
	if ok {
		r.used[key] = true
	}

	return v, ok
}

func (r *paramReader) float(key string, dst *float64) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}

	f, ok := toFloat(v)
	if !ok {
		r.fail(key, "expected a number, got %T", v)
		return
	}

	if math.IsNaN(f) {
		r.fail(key, "must not be NaN")
		return
	}

	*dst = f
}

func (r *paramReader) boolean(key string, dst *bool) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}

	b, ok := v.(bool)
	if !ok {
		r.fail(key, "expected a boolean, got %T", v)
		return
	}

	*dst = b
}

func (r *paramReader) floats(key string, dst *[]float64) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}

	fs, ok := toFloats(v)
	if !ok {
		r.fail(key, "expected a list of numbers, got %T", v)
		return
	}

	*dst = fs
}

func (r *paramReader) strings(key string, dst *[]string) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}

	switch s := v.(type) {
	case []string:
		*dst = append([]string(nil), s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, isStr := e.(string)
			if !isStr {
				r.fail(key, "expected a list of strings, got element %T", e)
				return
			}
			out = append(out, str)
		}
		*dst = out
	default:
		r.fail(key, "expected a list of strings, got %T", v)
	}
}

// readOnly consumes a key that Status reports but SetStatus cannot change.
// Passing back the current value is accepted.
func (r *paramReader) readOnly(key string, current any) {
	v, ok := r.lookup(key)
	if !ok || sameValue(v, current) {
		return
	}

	r.fail(key, "is read-only")
}

func sameValue(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}

	return reflect.DeepEqual(a, b)
}

func (r *paramReader) done() error {
	if r.err != nil {
		return r.err
	}

	for _, k := range r.p.Keys() {
		if !r.used[k] {
			return simerr.UnknownParamf("%s does not have parameter %s",
				r.model, k)
		}
	}

	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toFloats(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return append([]float64(nil), s...), true
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
