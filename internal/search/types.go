// Package search aggregates a query across an arbitrary set of
// JSON-returning providers. Each provider is described declaratively
// by a ProviderSpec; adding one is a configuration change, not code.
package search

import (
	"fmt"
	"strings"
)

// QueryMarker is the substitution marker a URL template must contain
// exactly once. It is replaced with the URL-encoded query term.
const QueryMarker = "{query}"

// ProviderSpec describes one search provider: where to send the query
// and how to extract a uniform result shape from the response.
type ProviderSpec struct {
	// Name labels the provider; it becomes the citation source on
	// every result it contributes. Must be unique among enabled specs.
	Name string `yaml:"name" json:"name"`

	// URLTemplate is the GET endpoint with QueryMarker where the
	// URL-encoded query term goes.
	URLTemplate string `yaml:"url_template" json:"url_template"`

	// Headers are applied verbatim to the request (may be empty).
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// ResultsPath locates the array of result items within the
	// response. Empty means the response root is itself the array.
	ResultsPath string `yaml:"results_path" json:"results_path"`

	// TitlePath, URLPath and ContentPath are evaluated relative to
	// one result item.
	TitlePath   string `yaml:"title_path" json:"title_path"`
	URLPath     string `yaml:"url_path" json:"url_path"`
	ContentPath string `yaml:"content_path" json:"content_path"`

	// Enabled toggles the provider; disabled specs are never called.
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Validate checks the invariants a spec must hold before it can be
// dispatched. Violations surface as InvalidConfig failures.
func (s ProviderSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	switch strings.Count(s.URLTemplate, QueryMarker) {
	case 0:
		return fmt.Errorf("url_template must contain the %s marker", QueryMarker)
	case 1:
		// ok
	default:
		return fmt.Errorf("url_template must contain the %s marker exactly once", QueryMarker)
	}
	return nil
}

// ResultItem is one normalized search result.
// Title, URL and Content may individually be empty when the
// corresponding path was absent, but an item is only emitted when at
// least the URL or the title resolved.
type ResultItem struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ResultSet is the per-query output of the aggregation engine.
// Results keeps provider declaration order, then intra-provider
// response order. A provider appears in Failures or contributes to
// Results, never both.
type ResultSet struct {
	Query    string            `json:"query"`
	Results  []ResultItem      `json:"results"`
	Failures map[string]string `json:"failures"`
}

// Truncate caps Results at max items, preserving order.
func (rs *ResultSet) Truncate(max int) {
	if max > 0 && len(rs.Results) > max {
		rs.Results = rs.Results[:max]
	}
}
