package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func jsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestAggregator(timeout time.Duration) *Aggregator {
	return NewAggregator(NewClient(&http.Client{}, "bplus-test/1.0"), timeout)
}

func TestSearchEmptyConfiguration(t *testing.T) {
	agg := newTestAggregator(time.Second)

	rs := agg.Search(context.Background(), "anything", nil)
	if len(rs.Results) != 0 {
		t.Errorf("Expected no results, got %d", len(rs.Results))
	}
	if len(rs.Failures) != 0 {
		t.Errorf("Expected no failures, got %v", rs.Failures)
	}

	// Disabled providers count as an empty set too.
	rs = agg.Search(context.Background(), "anything", []ProviderSpec{
		{Name: "off", URLTemplate: "https://example.com/" + QueryMarker, Enabled: false},
	})
	if len(rs.Results) != 0 || len(rs.Failures) != 0 {
		t.Errorf("Disabled provider should contribute nothing, got %+v", rs)
	}
}

func TestSearchMergeOrderAndDedup(t *testing.T) {
	first := jsonServer(t, `{"results":[
		{"title":"Shared from A","url":"https://example.com/shared/","content":"a"},
		{"title":"A only","url":"https://example.com/a","content":"a"}
	]}`)
	second := jsonServer(t, `{"results":[
		{"title":"Shared from B","url":"HTTPS://EXAMPLE.COM/shared","content":"b"},
		{"title":"B only","url":"https://example.com/b","content":"b"}
	]}`)

	specs := []ProviderSpec{
		{Name: "alpha", URLTemplate: first.URL + "/?q=" + QueryMarker, ResultsPath: "results", TitlePath: "title", URLPath: "url", ContentPath: "content", Enabled: true},
		{Name: "beta", URLTemplate: second.URL + "/?q=" + QueryMarker, ResultsPath: "results", TitlePath: "title", URLPath: "url", ContentPath: "content", Enabled: true},
	}

	agg := newTestAggregator(5 * time.Second)
	rs := agg.Search(context.Background(), "q", specs)

	if len(rs.Failures) != 0 {
		t.Fatalf("Expected no failures, got %v", rs.Failures)
	}
	if len(rs.Results) != 3 {
		t.Fatalf("Expected 3 results after dedup, got %d: %+v", len(rs.Results), rs.Results)
	}

	// Declaration order wins: the shared URL is attributed to alpha,
	// and alpha's items precede beta's.
	if rs.Results[0].Title != "Shared from A" || rs.Results[0].Source != "alpha" {
		t.Errorf("Dedup should keep the earliest-declared provider, got %+v", rs.Results[0])
	}
	if rs.Results[1].Title != "A only" {
		t.Errorf("Intra-provider order should be preserved, got %+v", rs.Results[1])
	}
	if rs.Results[2].Title != "B only" || rs.Results[2].Source != "beta" {
		t.Errorf("Second provider's unique item should follow, got %+v", rs.Results[2])
	}
}

func TestSearchOrderIndependentOfCompletion(t *testing.T) {
	// The first-declared provider answers last; its items must still
	// come first in the merged output.
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.Write([]byte(`{"results":[{"title":"slow","url":"https://example.com/slow"}]}`))
	}))
	defer slow.Close()
	fast := jsonServer(t, `{"results":[{"title":"fast","url":"https://example.com/fast"}]}`)

	specs := []ProviderSpec{
		{Name: "slow", URLTemplate: slow.URL + "/?q=" + QueryMarker, ResultsPath: "results", TitlePath: "title", URLPath: "url", Enabled: true},
		{Name: "fast", URLTemplate: fast.URL + "/?q=" + QueryMarker, ResultsPath: "results", TitlePath: "title", URLPath: "url", Enabled: true},
	}

	agg := newTestAggregator(5 * time.Second)
	rs := agg.Search(context.Background(), "q", specs)

	if len(rs.Results) != 2 {
		t.Fatalf("Expected 2 results, got %+v", rs)
	}
	if rs.Results[0].Source != "slow" || rs.Results[1].Source != "fast" {
		t.Errorf("Merge order must follow declaration order, got %s then %s",
			rs.Results[0].Source, rs.Results[1].Source)
	}
}

func TestSearchProviderIsolation(t *testing.T) {
	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer hang.Close()
	healthy := jsonServer(t, `{"results":[{"title":"ok","url":"https://example.com/ok"}]}`)

	specs := []ProviderSpec{
		{Name: "hanging", URLTemplate: hang.URL + "/?q=" + QueryMarker, ResultsPath: "results", TitlePath: "title", URLPath: "url", Enabled: true},
		{Name: "healthy", URLTemplate: healthy.URL + "/?q=" + QueryMarker, ResultsPath: "results", TitlePath: "title", URLPath: "url", Enabled: true},
	}

	agg := newTestAggregator(200 * time.Millisecond)
	start := time.Now()
	rs := agg.Search(context.Background(), "q", specs)
	elapsed := time.Since(start)

	// Concurrent fan-out: wall clock is about one timeout, not two.
	if elapsed > time.Second {
		t.Errorf("Search took %v; providers should run concurrently", elapsed)
	}
	if len(rs.Results) != 1 || rs.Results[0].Source != "healthy" {
		t.Fatalf("Healthy provider's results should survive, got %+v", rs.Results)
	}
	if reason, ok := rs.Failures["hanging"]; !ok || reason != "request timed out" {
		t.Errorf("Hanging provider should be recorded as timed out, got %v", rs.Failures)
	}
	if _, ok := rs.Failures["healthy"]; ok {
		t.Error("A provider must not appear in both results and failures")
	}
}

func TestSearchInvalidConfigReportedPerProvider(t *testing.T) {
	healthy := jsonServer(t, `{"results":[{"title":"ok","url":"https://example.com/ok"}]}`)

	specs := []ProviderSpec{
		{Name: "broken", URLTemplate: "https://example.com/no-marker", Enabled: true},
		{Name: "healthy", URLTemplate: healthy.URL + "/?q=" + QueryMarker, ResultsPath: "results", TitlePath: "title", URLPath: "url", Enabled: true},
	}

	agg := newTestAggregator(time.Second)
	rs := agg.Search(context.Background(), "q", specs)

	if len(rs.Results) != 1 {
		t.Fatalf("Healthy provider should still run, got %+v", rs)
	}
	if _, ok := rs.Failures["broken"]; !ok {
		t.Errorf("Malformed spec should produce a per-provider failure, got %v", rs.Failures)
	}
}

func TestSearchAllProvidersFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	spec := ProviderSpec{Name: "down", URLTemplate: down.URL + "/?q=" + QueryMarker, ResultsPath: "results", Enabled: true}
	down.Close()

	agg := newTestAggregator(time.Second)
	rs := agg.Search(context.Background(), "q", []ProviderSpec{spec})

	// Absence of results is a normal outcome, not an error state.
	if len(rs.Results) != 0 {
		t.Errorf("Expected no results, got %+v", rs.Results)
	}
	if len(rs.Failures) != 1 {
		t.Errorf("Expected full failure detail, got %v", rs.Failures)
	}
}

func TestSearchCallerCancellation(t *testing.T) {
	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer hang.Close()

	spec := ProviderSpec{Name: "hang", URLTemplate: hang.URL + "/?q=" + QueryMarker, ResultsPath: "results", Enabled: true}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	agg := newTestAggregator(30 * time.Second)
	start := time.Now()
	rs := agg.Search(ctx, "q", []ProviderSpec{spec})

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Cancellation should abandon pending calls promptly, took %v", elapsed)
	}
	if _, ok := rs.Failures["hang"]; !ok {
		t.Errorf("Abandoned provider should be recorded as a failure, got %v", rs.Failures)
	}
}

func TestDescribeProviderAfterSearch(t *testing.T) {
	// Paths misconfigured on purpose: the provider succeeds but yields
	// nothing, and the captured raw response stays describable.
	server := jsonServer(t, `{"results":[{"headline":"X","link":"https://example.com/x"}]}`)

	spec := ProviderSpec{
		Name:        "misconfigured",
		URLTemplate: server.URL + "/?q=" + QueryMarker,
		ResultsPath: "results",
		TitlePath:   "title",
		URLPath:     "url",
		Enabled:     true,
	}

	agg := newTestAggregator(time.Second)
	rs := agg.Search(context.Background(), "q", []ProviderSpec{spec})
	if len(rs.Results) != 0 {
		t.Fatalf("Misconfigured paths should yield no items, got %+v", rs.Results)
	}

	keys := agg.DescribeProvider("misconfigured")
	if len(keys) != 2 || keys[0] != "headline" || keys[1] != "link" {
		t.Errorf("Expected first-item keys [headline link], got %v", keys)
	}

	if keys := agg.DescribeProvider("never-seen"); keys != nil {
		t.Errorf("Unknown provider should describe as nil, got %v", keys)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"case insensitive host", "https://Example.com/Path", "https://example.com/path", true},
		{"trailing slash", "https://example.com/path/", "https://example.com/path", true},
		{"different path", "https://example.com/a", "https://example.com/b", false},
		{"query preserved", "https://example.com/?q=A", "https://example.com/?q=a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeURL(tt.a) == normalizeURL(tt.b)
			if got != tt.same {
				t.Errorf("normalizeURL(%q) == normalizeURL(%q): got %v, want %v", tt.a, tt.b, got, tt.same)
			}
		})
	}
}
