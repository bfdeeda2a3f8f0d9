package domain

import (
	"strings"
	"time"
)

// UpstreamDescriptor identifies one OpenAI-compatible image edit provider.
type UpstreamDescriptor struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
	Model   string `json:"model"`
}

// Eligible reports whether the upstream may be used as a candidate.
func (u UpstreamDescriptor) Eligible() bool {
	return u.Enabled &&
		strings.TrimSpace(u.BaseURL) != "" &&
		strings.TrimSpace(u.APIKey) != "" &&
		strings.TrimSpace(u.Model) != ""
}

// UpstreamPair is the fixed primary/secondary slot layout.
type UpstreamPair struct {
	Primary   UpstreamDescriptor `json:"primary"`
	Secondary UpstreamDescriptor `json:"secondary"`
}

// Candidates returns the eligible upstreams, primary first.
func (p UpstreamPair) Candidates() []UpstreamDescriptor {
	out := make([]UpstreamDescriptor, 0, 2)
	for _, u := range [2]UpstreamDescriptor{p.Primary, p.Secondary} {
		if u.Eligible() {
			out = append(out, u)
		}
	}
	return out
}

// GenerationConfig is the read-only view of settings consumed by a single
// generation call.
type GenerationConfig struct {
	PromptTemplate   string
	RequestTimeoutMs int
	Upstreams        UpstreamPair
}

// RequestTimeout converts RequestTimeoutMs into a duration.
func (c GenerationConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}
