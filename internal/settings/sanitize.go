package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

const (
	MaxTitleRunes    = 80
	MaxSubtitleRunes = 200
	MaxTemplateRunes = 500
	MinTimeoutMs     = 10000
	MaxTimeoutMs     = 300000
)

// Sanitize trims and bounds next. Required text fields that end up empty keep
// their value from prev.
func Sanitize(next, prev Settings) Settings {
	out := next
	out.SiteTitle = truncateRunes(strings.TrimSpace(next.SiteTitle), MaxTitleRunes)
	if out.SiteTitle == "" {
		out.SiteTitle = prev.SiteTitle
	}
	out.SiteSubtitle = truncateRunes(strings.TrimSpace(next.SiteSubtitle), MaxSubtitleRunes)
	out.PromptTemplate = truncateRunes(strings.TrimSpace(next.PromptTemplate), MaxTemplateRunes)
	if out.PromptTemplate == "" {
		out.PromptTemplate = prev.PromptTemplate
	}

	timeout := next.RequestTimeoutMs
	if timeout == 0 {
		timeout = DefaultTimeoutMs
	}
	out.RequestTimeoutMs = min(max(timeout, MinTimeoutMs), MaxTimeoutMs)

	out.Upstreams.Primary = sanitizeUpstream(next.Upstreams.Primary, SlotPrimary)
	out.Upstreams.Secondary = sanitizeUpstream(next.Upstreams.Secondary, SlotSecondary)
	return out
}

func sanitizeUpstream(u domain.UpstreamDescriptor, slot string) domain.UpstreamDescriptor {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		u.Name = slot
	}
	u.BaseURL = strings.TrimSpace(u.BaseURL)
	u.APIKey = strings.TrimSpace(u.APIKey)
	u.Model = strings.TrimSpace(u.Model)
	return u
}

// Apply merges a partial JSON document over prev and sanitizes the result.
// Nested objects merge field by field; absent fields keep their value.
func Apply(prev Settings, patch []byte) (Settings, error) {
	next := prev
	if len(bytes.TrimSpace(patch)) > 0 {
		if err := json.Unmarshal(patch, &next); err != nil {
			return prev, fmt.Errorf("settings: decode patch: %w", err)
		}
	}
	return Sanitize(next, prev), nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
