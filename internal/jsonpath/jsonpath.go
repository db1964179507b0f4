// Package jsonpath navigates dot-delimited paths through JSON documents
// decoded into the generic encoding/json value tree (map[string]any,
// []any, string, float64, bool, nil).
//
// A lookup that cannot be resolved is "absent", reported through the
// second return value. Absent is distinct from an empty string or any
// other successfully extracted value; callers decide how to coerce it.
package jsonpath

import (
	"sort"
	"strings"
)

// Extract walks path through doc and returns the value found.
//
// An empty path returns doc unchanged, which supports APIs whose
// response root is itself the results array. A non-empty path is split
// on "." and each segment descends through an object key. Extraction
// stops at the first missing key, non-object container, or null value
// and reports absent. Segments never index into arrays by position.
func Extract(doc any, path string) (any, bool) {
	if path == "" {
		return doc, true
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := obj[segment]
		if !ok || next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

// String extracts path and coerces the value to a string.
// Absent values and non-string values coerce to "".
func String(doc any, path string) string {
	v, ok := Extract(doc, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Array extracts path and reports whether it resolved to a JSON array.
func Array(doc any, path string) ([]any, bool) {
	v, ok := Extract(doc, path)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	return arr, ok
}

// Keys returns the sorted object keys of v, or nil if v is not an
// object. Used by the provider introspector to describe result shapes.
func Keys(v any) []string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
