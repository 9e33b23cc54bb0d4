package docstore

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Data is the field map of a document. Supported value types are string,
// int64, float64, bool, nil, time.Time and []string. Set normalizes other
// integer and float widths and []any of strings.
type Data map[string]any

type sentinel int

// ServerTimestamp is replaced by the backend's commit time when written.
const ServerTimestamp sentinel = 1

// String returns a string field.
func (d Data) String(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

// StringPtr returns a string field or nil when the field is missing or not
// a string.
func (d Data) StringPtr(key string) *string {
	if v, ok := d.String(key); ok {
		return &v
	}
	return nil
}

// Int returns an integral number field.
func (d Data) Int(key string) (int64, bool) {
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v), true
		}
	}
	return 0, false
}

// Float returns a finite number field.
func (d Data) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Bool returns a boolean field.
func (d Data) Bool(key string) (bool, bool) {
	v, ok := d[key].(bool)
	return v, ok
}

// Time returns a timestamp field.
func (d Data) Time(key string) (time.Time, bool) {
	v, ok := d[key].(time.Time)
	return v, ok
}

// TimePtr returns a timestamp field or nil.
func (d Data) TimePtr(key string) *time.Time {
	if v, ok := d.Time(key); ok {
		return &v
	}
	return nil
}

// Strings returns a list field, skipping non-string elements.
func (d Data) Strings(key string) ([]string, bool) {
	switch v := d[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return nil, false
}

// Clone returns a shallow copy with copied lists.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		if l, ok := v.([]string); ok {
			v = append([]string(nil), l...)
		}
		out[k] = v
	}
	return out
}

// Normalize converts the values of d to the supported types.
func Normalize(d Data) (Data, error) {
	out := make(Data, len(d))
	for k, v := range d {
		if k == "" || strings.Contains(k, ".") {
			return nil, fmt.Errorf("docstore: invalid field name %q", k)
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("docstore: field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64, sentinel:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case time.Time:
		return v.UTC(), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.UTC(), nil
	case *string:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported list element %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// Apply writes data onto existing following Set semantics and resolves
// ServerTimestamp to now. existing is not modified.
func Apply(existing, data Data, merge bool, now time.Time) Data {
	var out Data
	if merge && existing != nil {
		out = existing.Clone()
	} else {
		out = make(Data, len(data))
	}
	for k, v := range data {
		if v == ServerTimestamp {
			v = now
		}
		out[k] = v
	}
	return out
}

// HasServerTimestamp reports whether data contains the ServerTimestamp sentinel.
func HasServerTimestamp(data Data) bool {
	for _, v := range data {
		if v == ServerTimestamp {
			return true
		}
	}
	return false
}

// typeOrder follows Firestore's cross-type ordering.
func typeOrder(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64, int:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	case []string:
		return 5
	}
	return 6
}

func asFloat(v any) float64 {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// Compare orders two field values.
func Compare(a, b any) int {
	ta, tb := typeOrder(a), typeOrder(b)
	if ta != tb {
		return cmpInt(ta, tb)
	}
	switch av := a.(type) {
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case int64, float64, int:
		fa, fb := asFloat(a), asFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case time.Time:
		return av.Compare(b.(time.Time))
	case string:
		return strings.Compare(av, b.(string))
	case []string:
		bv := b.([]string)
		for i := 0; i < len(av) && i < len(bv); i++ {
			if c := strings.Compare(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(av), len(bv))
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
