package search

import "github.com/mrhappynice/bplus-searchrs/internal/jsonpath"

// DescribeFirstItem lists the top-level keys of the first item in the
// results array of raw, located via the spec's results path. It is an
// authoring aid: when a new provider's paths are guesswork, the key
// list shows the operator what is actually there.
//
// Returns an empty list when the results path is absent, resolves to
// something other than a non-empty array, or the first element is not
// an object. Read-only; never mutates anything.
func DescribeFirstItem(spec ProviderSpec, raw any) []string {
	items, ok := jsonpath.Array(raw, spec.ResultsPath)
	if !ok || len(items) == 0 {
		return []string{}
	}
	keys := jsonpath.Keys(items[0])
	if keys == nil {
		return []string{}
	}
	return keys
}
