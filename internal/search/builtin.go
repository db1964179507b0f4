package search

import (
	"encoding/base64"
	"strings"
)

// Built-in native search: the JSON sources the assistant ships with,
// expressed as ordinary declarative specs. They carry no code of their
// own; the generic client and extractor do all the work.

// NativeSpecs returns the built-in providers in declaration order.
// Built-ins precede user providers, so on duplicate URLs a built-in
// wins the dedup.
func NativeSpecs() []ProviderSpec {
	return []ProviderSpec{
		{
			Name:        "reddit",
			URLTemplate: "https://www.reddit.com/search.json?q=" + QueryMarker + "&sort=relevance&t=all&limit=10",
			ResultsPath: "data.children",
			TitlePath:   "data.title",
			URLPath:     "data.url",
			ContentPath: "data.selftext",
			Enabled:     true,
		},
		{
			Name:        "stackexchange",
			URLTemplate: "https://api.stackexchange.com/2.3/search/advanced?order=desc&sort=relevance&accepted=True&answers=1&q=" + QueryMarker + "&site=stackoverflow&filter=default",
			ResultsPath: "items",
			TitlePath:   "title",
			URLPath:     "link",
			Enabled:     true,
		},
		{
			Name:        "hackernews",
			URLTemplate: "https://hn.algolia.com/api/v1/search?query=" + QueryMarker,
			ResultsPath: "hits",
			TitlePath:   "title",
			URLPath:     "url",
			ContentPath: "story_text",
			Enabled:     true,
		},
	}
}

// SearXNGSpec builds the spec for a self-hosted SearXNG instance.
// Returns ok=false when no base URL is configured. Credentials, when
// present, travel as a basic-auth header like any other spec header.
func SearXNGSpec(baseURL, username, password string) (ProviderSpec, bool) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return ProviderSpec{}, false
	}

	spec := ProviderSpec{
		Name:        "searxng",
		URLTemplate: baseURL + "/search?q=" + QueryMarker + "&format=json",
		ResultsPath: "results",
		TitlePath:   "title",
		URLPath:     "url",
		ContentPath: "content",
		Enabled:     true,
	}
	if username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		spec.Headers = map[string]string{"Authorization": "Basic " + auth}
	}
	return spec, true
}
