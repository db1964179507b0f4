package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrhappynice/bplus-searchrs/internal/jsonpath"
)

// maxResponseBytes bounds how much of a provider body is read.
// Misconfigured endpoints sometimes point at multi-megabyte dumps.
const maxResponseBytes = 4 << 20

// Client executes single provider calls. The underlying http.Client
// is shared read-only across concurrent provider calls; per-call
// deadlines come from the context, not the client.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a provider client. A nil httpClient falls back to
// a default with no timeout of its own.
func NewClient(httpClient *http.Client, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "bplus/1.0"
	}
	return &Client{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Fetch calls one provider for query and normalizes its response.
//
// The returned raw document is the decoded JSON body, kept so the
// introspector can describe the provider's shape afterwards; it is nil
// unless the body decoded successfully. Every failure is a
// *ProviderError; Fetch never panics on provider misbehavior.
func (c *Client) Fetch(ctx context.Context, spec ProviderSpec, query string, timeout time.Duration) ([]ResultItem, any, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, &ProviderError{Provider: spec.Name, Kind: KindInvalidConfig, Err: err}
	}

	endpoint := strings.Replace(spec.URLTemplate, QueryMarker, url.QueryEscape(query), 1)
	if _, err := url.Parse(endpoint); err != nil {
		return nil, nil, &ProviderError{Provider: spec.Name, Kind: KindInvalidConfig, Err: fmt.Errorf("invalid url: %w", err)}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, &ProviderError{Provider: spec.Name, Kind: KindInvalidConfig, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	for name, value := range spec.Headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &ProviderError{Provider: spec.Name, Kind: classifyTransport(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &ProviderError{Provider: spec.Name, Kind: KindHTTPStatus, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, &ProviderError{Provider: spec.Name, Kind: classifyTransport(ctx, err), Err: err}
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, &ProviderError{Provider: spec.Name, Kind: KindInvalidJSON, Err: err}
	}

	items, ok := jsonpath.Array(doc, spec.ResultsPath)
	if !ok {
		return nil, doc, &ProviderError{Provider: spec.Name, Kind: KindInvalidShape}
	}

	return extractItems(spec, items), doc, nil
}

// extractItems applies the per-item paths to each element of the
// results array. An absent path coerces to an empty string; a
// malformed element never aborts extraction of its siblings. Items
// where neither the url nor the title resolved are dropped so they
// cannot surface as blank citations.
func extractItems(spec ProviderSpec, items []any) []ResultItem {
	results := make([]ResultItem, 0, len(items))
	for _, item := range items {
		r := ResultItem{
			Source:  spec.Name,
			Title:   strings.TrimSpace(jsonpath.String(item, spec.TitlePath)),
			URL:     strings.TrimSpace(jsonpath.String(item, spec.URLPath)),
			Content: strings.TrimSpace(jsonpath.String(item, spec.ContentPath)),
		}
		if r.URL == "" && r.Title == "" {
			continue
		}
		results = append(results, r)
	}
	return results
}

// classifyTransport separates an elapsed per-provider deadline from
// other transport failures. A caller-level cancellation counts as a
// network failure, not a timeout.
func classifyTransport(ctx context.Context, err error) ErrorKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
