package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/mrhappynice/bplus-searchrs/internal/jsonpath"
	"github.com/mrhappynice/bplus-searchrs/internal/logger"
)

// suggestLimit caps the merged autocomplete list.
const suggestLimit = 10

// suggestSource is one autocomplete endpoint. These responses are
// positional arrays rather than keyed objects, so each source carries
// its own parser instead of a declarative spec.
type suggestSource struct {
	name  string
	url   func(query string) string
	parse func(doc any) []string
}

// secondElementStrings handles the opensearch-style shape
// ["query", ["suggestion", ...], ...] shared by DuckDuckGo, Brave and
// Wikipedia.
func secondElementStrings(doc any) []string {
	arr, ok := doc.([]any)
	if !ok || len(arr) < 2 {
		return nil
	}
	inner, ok := arr[1].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range inner {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func suggestSources() []suggestSource {
	return []suggestSource{
		{
			name:  "duckduckgo",
			url:   func(q string) string { return "https://duckduckgo.com/ac/?type=list&q=" + url.QueryEscape(q) },
			parse: secondElementStrings,
		},
		{
			name:  "brave",
			url:   func(q string) string { return "https://search.brave.com/api/suggest?q=" + url.QueryEscape(q) },
			parse: secondElementStrings,
		},
		{
			name: "qwant",
			url: func(q string) string {
				return "https://api.qwant.com/v3/suggest?q=" + url.QueryEscape(q) + "&locale=en_US&version=2"
			},
			parse: func(doc any) []string {
				items, ok := jsonpath.Array(doc, "data.items")
				if !ok {
					return nil
				}
				var out []string
				for _, item := range items {
					if s := jsonpath.String(item, "value"); s != "" {
						out = append(out, s)
					}
				}
				return out
			},
		},
		{
			name: "wikipedia",
			url: func(q string) string {
				return "https://en.wikipedia.org/w/api.php?action=opensearch&format=json&formatversion=2&namespace=0&limit=10&search=" + url.QueryEscape(q)
			},
			parse: secondElementStrings,
		},
	}
}

// Suggester aggregates autocomplete suggestions across several public
// endpoints. Suggestions seen by more sources rank higher.
type Suggester struct {
	httpClient *http.Client
	userAgent  string
	sources    []suggestSource
}

// NewSuggester creates a suggester sharing the given HTTP client.
func NewSuggester(httpClient *http.Client, userAgent string) *Suggester {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "bplus/1.0"
	}
	return &Suggester{
		httpClient: httpClient,
		userAgent:  userAgent,
		sources:    suggestSources(),
	}
}

// Suggest fans query out to all sources, merges by frequency and
// returns at most ten suggestions. Source failures are silent: an
// autocomplete box has no use for error detail.
func (s *Suggester) Suggest(ctx context.Context, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	collected := make([][]string, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(slot *[]string, src suggestSource) {
			defer wg.Done()
			*slot = s.fetchOne(ctx, src, query)
		}(&collected[i], src)
	}
	wg.Wait()

	type ranked struct {
		text  string
		count int
		first int
	}
	byText := make(map[string]*ranked)
	var order []*ranked
	pos := 0
	for _, list := range collected {
		for _, text := range list {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			if r, ok := byText[text]; ok {
				r.count++
				continue
			}
			r := &ranked{text: text, count: 1, first: pos}
			byText[text] = r
			order = append(order, r)
			pos++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	out := make([]string, 0, suggestLimit)
	for _, r := range order {
		if len(out) >= suggestLimit {
			break
		}
		out = append(out, r.text)
	}
	return out
}

func (s *Suggester) fetchOne(ctx context.Context, src suggestSource, query string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.url(query), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Debug("suggest source %s failed: %v", src.name, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debug("suggest source %s returned status %d", src.name, resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	return src.parse(doc)
}
