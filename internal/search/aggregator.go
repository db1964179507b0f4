package search

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mrhappynice/bplus-searchrs/internal/logger"
)

// Aggregator fans a query out to every enabled provider concurrently
// and merges the outcomes into a single deterministic ResultSet.
type Aggregator struct {
	client  *Client
	timeout time.Duration

	mu       sync.Mutex
	lastRaw  map[string]any // latest raw response per provider, for introspection
	lastSpec map[string]ProviderSpec
}

// NewAggregator creates an aggregator. perProviderTimeout bounds each
// individual provider call; the overall query costs roughly one
// timeout, not the sum over providers.
func NewAggregator(client *Client, perProviderTimeout time.Duration) *Aggregator {
	if perProviderTimeout <= 0 {
		perProviderTimeout = 15 * time.Second
	}
	return &Aggregator{
		client:   client,
		timeout:  perProviderTimeout,
		lastRaw:  make(map[string]any),
		lastSpec: make(map[string]ProviderSpec),
	}
}

// outcome is the per-provider slot filled by exactly one goroutine.
// Each slot is owned by its goroutine until the join, so the merge
// needs no locking.
type outcome struct {
	spec  ProviderSpec
	items []ResultItem
	raw   any
	err   error
}

// Search dispatches query to every enabled spec and waits for all of
// them to settle. Providers are fully independent: one provider's
// latency or failure never delays or blocks another's. Merge order is
// declaration order then intra-provider response order, regardless of
// completion order. An empty enabled set returns an empty valid
// ResultSet. Cancelling ctx abandons all in-flight calls.
func (a *Aggregator) Search(ctx context.Context, query string, specs []ProviderSpec) ResultSet {
	rs := ResultSet{
		Query:    query,
		Failures: make(map[string]string),
	}

	var active []ProviderSpec
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}
		// Malformed specs are reported per-provider, never dispatched
		// and never fatal for the query.
		if err := spec.Validate(); err != nil {
			name := spec.Name
			if strings.TrimSpace(name) == "" {
				name = "(unnamed provider)"
			}
			perr := &ProviderError{Provider: name, Kind: KindInvalidConfig, Err: err}
			rs.Failures[name] = perr.Reason()
			continue
		}
		active = append(active, spec)
	}
	if len(active) == 0 {
		return rs
	}

	outcomes := make([]outcome, len(active))
	var wg sync.WaitGroup
	for i, spec := range active {
		wg.Add(1)
		go func(slot *outcome, spec ProviderSpec) {
			defer wg.Done()
			slot.spec = spec
			slot.items, slot.raw, slot.err = a.client.Fetch(ctx, spec, query, a.timeout)
		}(&outcomes[i], spec)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range outcomes {
		o := &outcomes[i]
		if o.raw != nil {
			a.capture(o.spec, o.raw)
		}
		if o.err != nil {
			rs.Failures[o.spec.Name] = failureReason(o.err)
			logger.Warn("provider %s failed: %s", o.spec.Name, rs.Failures[o.spec.Name])
			continue
		}
		if len(o.items) == 0 {
			// Successful but empty responses usually mean the item
			// paths are misconfigured; describe the shape to help the
			// operator fix the spec.
			logger.Debug("provider %s returned no usable items; first result item keys: %v",
				o.spec.Name, DescribeFirstItem(o.spec, o.raw))
		}
		for _, item := range o.items {
			key := normalizeURL(item.URL)
			if key != "" && seen[key] {
				continue
			}
			if key != "" {
				seen[key] = true
			}
			rs.Results = append(rs.Results, item)
		}
	}

	return rs
}

// DescribeProvider lists the first-item keys of the named provider's
// most recently captured raw response. Returns nil if the provider
// has not produced a decodable response yet.
func (a *Aggregator) DescribeProvider(name string) []string {
	a.mu.Lock()
	raw, ok := a.lastRaw[name]
	spec := a.lastSpec[name]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return DescribeFirstItem(spec, raw)
}

func (a *Aggregator) capture(spec ProviderSpec, raw any) {
	a.mu.Lock()
	a.lastRaw[spec.Name] = raw
	a.lastSpec[spec.Name] = spec
	a.mu.Unlock()
}

// failureReason renders any provider call error into the
// human-readable form stored in ResultSet.Failures.
func failureReason(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Reason()
	}
	return err.Error()
}

// normalizeURL produces the dedup key for a result URL: lowercased,
// trailing-slash-insensitive. The query string is preserved
// case-sensitively since many APIs key on it.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(strings.ToLower(u.Path), "/")
	u.Fragment = ""
	return u.String()
}
