package search

import "fmt"

// ErrorKind classifies a provider failure. Every kind is scoped to a
// single provider; none of them is fatal for the overall query.
type ErrorKind int

const (
	// KindTimeout means the per-provider deadline elapsed.
	KindTimeout ErrorKind = iota
	// KindNetwork covers dial, DNS and transport failures, and a
	// caller-cancelled request.
	KindNetwork
	// KindHTTPStatus means the provider answered with a non-2xx status.
	KindHTTPStatus
	// KindInvalidJSON means the body was not parseable JSON.
	KindInvalidJSON
	// KindInvalidShape means the results path did not resolve to an array.
	KindInvalidShape
	// KindInvalidConfig means the spec itself is malformed and was
	// never dispatched.
	KindInvalidConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	case KindInvalidJSON:
		return "invalid_json"
	case KindInvalidShape:
		return "invalid_shape"
	case KindInvalidConfig:
		return "invalid_config"
	default:
		return "unknown"
	}
}

// ProviderError is the failure outcome of one provider call.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int // HTTP status code, set for KindHTTPStatus
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Reason())
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Reason returns the human-readable description recorded in
// ResultSet.Failures.
func (e *ProviderError) Reason() string {
	switch e.Kind {
	case KindTimeout:
		return "request timed out"
	case KindNetwork:
		if e.Err != nil {
			return fmt.Sprintf("network error: %v", e.Err)
		}
		return "network error"
	case KindHTTPStatus:
		return fmt.Sprintf("unexpected HTTP status %d", e.Status)
	case KindInvalidJSON:
		return "response body is not valid JSON"
	case KindInvalidShape:
		return "results path did not resolve to an array"
	case KindInvalidConfig:
		if e.Err != nil {
			return fmt.Sprintf("invalid provider config: %v", e.Err)
		}
		return "invalid provider config"
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unknown error"
	}
}
