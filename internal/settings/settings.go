// Package settings holds the admin-editable site configuration persisted in
// the data directory.
package settings

import (
	"strconv"
	"strings"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

const (
	DefaultSiteTitle      = "猜猜西瓜里是什么"
	DefaultSiteSubtitle   = "猜错了当我老婆"
	DefaultPromptTemplate = "将这个西瓜里填满{}"
	DefaultTimeoutMs      = 120000

	DefaultPrimaryName      = "new-api"
	DefaultPrimaryBaseURL   = "http://127.0.0.1:3000"
	DefaultPrimaryModel     = "gpt-image-1"
	DefaultSecondaryName    = "grok2api"
	DefaultSecondaryBaseURL = "http://127.0.0.1:8000"
	DefaultSecondaryModel   = "grok-imagine-1.0-edit"

	SlotPrimary   = "primary"
	SlotSecondary = "secondary"
)

// Settings mirrors data/config.json.
type Settings struct {
	SiteTitle        string              `json:"siteTitle"`
	SiteSubtitle     string              `json:"siteSubtitle"`
	PromptTemplate   string              `json:"promptTemplate"`
	RequestTimeoutMs int                 `json:"requestTimeoutMs"`
	Upstreams        domain.UpstreamPair `json:"upstreams"`
}

// PublicView is the subset exposed to anonymous visitors.
type PublicView struct {
	SiteTitle      string `json:"siteTitle"`
	SiteSubtitle   string `json:"siteSubtitle"`
	PromptTemplate string `json:"promptTemplate"`
	HasLatest      bool   `json:"hasLatest"`
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Defaults builds the initial settings. Upstream endpoints, keys, models and
// the request timeout may come from the environment.
func Defaults(lookup LookupFunc) Settings {
	env := func(key, fallback string) string {
		if lookup == nil {
			return fallback
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}
	timeout := DefaultTimeoutMs
	if v, err := strconv.Atoi(env("REQUEST_TIMEOUT_MS", "")); err == nil && v > 0 {
		timeout = v
	}
	return Settings{
		SiteTitle:        DefaultSiteTitle,
		SiteSubtitle:     DefaultSiteSubtitle,
		PromptTemplate:   DefaultPromptTemplate,
		RequestTimeoutMs: timeout,
		Upstreams: domain.UpstreamPair{
			Primary: domain.UpstreamDescriptor{
				Name:    DefaultPrimaryName,
				Enabled: true,
				BaseURL: env("UPSTREAM_PRIMARY_BASE_URL", DefaultPrimaryBaseURL),
				APIKey:  env("UPSTREAM_PRIMARY_API_KEY", ""),
				Model:   env("UPSTREAM_PRIMARY_MODEL", DefaultPrimaryModel),
			},
			Secondary: domain.UpstreamDescriptor{
				Name:    DefaultSecondaryName,
				Enabled: false,
				BaseURL: env("UPSTREAM_SECONDARY_BASE_URL", DefaultSecondaryBaseURL),
				APIKey:  env("UPSTREAM_SECONDARY_API_KEY", ""),
				Model:   env("UPSTREAM_SECONDARY_MODEL", DefaultSecondaryModel),
			},
		},
	}
}

// GenerationConfig is the read-only view handed to the orchestrator.
func (s Settings) GenerationConfig() domain.GenerationConfig {
	return domain.GenerationConfig{
		PromptTemplate:   s.PromptTemplate,
		RequestTimeoutMs: s.RequestTimeoutMs,
		Upstreams:        s.Upstreams,
	}
}

func (s Settings) Public(hasLatest bool) PublicView {
	return PublicView{
		SiteTitle:      s.SiteTitle,
		SiteSubtitle:   s.SiteSubtitle,
		PromptTemplate: s.PromptTemplate,
		HasLatest:      hasLatest,
	}
}

// Slot returns a pointer to the named upstream slot, or nil.
func (s *Settings) Slot(name string) *domain.UpstreamDescriptor {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SlotPrimary:
		return &s.Upstreams.Primary
	case SlotSecondary:
		return &s.Upstreams.Secondary
	default:
		return nil
	}
}
