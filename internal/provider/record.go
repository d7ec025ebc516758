package provider

import (
	"encoding/json"
	"errors"
	"strconv"

	"calgen/internal/models"
)

// RawRecord is one upstream record as decoded from JSON. It is only used at
// the adapter boundary; every accessor tolerates missing keys and unexpected
// types.
type RawRecord map[string]any

// Lookup walks nested objects along path.
func (r RawRecord) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range path {
		obj, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// String returns the value at path as a string. Numbers are formatted, so
// numeric identifiers are accepted.
func (r RawRecord) String(path ...string) (string, bool) {
	v, ok := r.Lookup(path...)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// Bool returns the value at path as a bool. "true"/"1" strings count as true.
func (r RawRecord) Bool(path ...string) (bool, bool) {
	v, ok := r.Lookup(path...)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	case float64:
		return t != 0, true
	default:
		return false, false
	}
}

// Date parses the value at path as a civil date.
func (r RawRecord) Date(path ...string) (models.Date, error) {
	s, ok := r.String(path...)
	if !ok || s == "" {
		return models.Date{}, errors.New("missing")
	}
	return models.ParseDate(s)
}

// FirstString returns the first non-empty string among several candidate paths.
func (r RawRecord) FirstString(paths ...[]string) (string, bool) {
	for _, p := range paths {
		if s, ok := r.String(p...); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case RawRecord:
		return t, true
	default:
		return nil, false
	}
}

// Records converts a decoded JSON list into raw records.
func Records(list []any) []RawRecord {
	out := make([]RawRecord, 0, len(list))
	for _, item := range list {
		obj, ok := asObject(item)
		if !ok {
			// Kept as an empty record so normalization counts it as a skip.
			obj = map[string]any{}
		}
		out = append(out, RawRecord(obj))
	}
	return out
}
