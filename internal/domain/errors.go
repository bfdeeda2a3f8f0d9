package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidPrompt   = errors.New("invalid prompt")
	ErrProviderFailure = errors.New("provider failure")
	ErrAssetsMissing   = errors.New("original or mask image missing")

	// ErrNoUpstreamAvailable is returned before any network call when no
	// configured upstream is eligible.
	ErrNoUpstreamAvailable = errors.New("no available upstream configured")
)

// UpstreamNetworkError reports a transport failure or timeout while talking
// to an upstream, either on the edit call or on the follow-up image fetch.
type UpstreamNetworkError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamNetworkError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("upstream %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("upstream %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamNetworkError) Unwrap() error { return e.Err }

func (e *UpstreamNetworkError) Is(target error) bool { return target == ErrProviderFailure }

// UpstreamPayloadError reports a 2xx response that carried no usable image.
type UpstreamPayloadError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *UpstreamPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s returned %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("upstream %s returned %s", e.Provider, e.Reason)
}

func (e *UpstreamPayloadError) Unwrap() error { return e.Err }

func (e *UpstreamPayloadError) Is(target error) bool { return target == ErrProviderFailure }

// UpstreamRejectedError reports a non-2xx status on the edit call.
type UpstreamRejectedError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamRejectedError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s rejected request: http %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s rejected request: http %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *UpstreamRejectedError) Is(target error) bool { return target == ErrProviderFailure }
