package models

import (
	"strings"
	"time"
)

type Link struct {
	Code           string     `json:"code"`
	TargetURL      string     `json:"target_url"`
	OwnerID        string     `json:"owner_id"`
	PasswordHash   string     `json:"-"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	TotalClicks    int        `json:"total_clicks"`
	UniqueVisitors int        `json:"unique_visitors"`
	LastClickedAt  *time.Time `json:"last_clicked_at,omitempty"`
	QRCode         []byte     `json:"-"`
}

func (l *Link) HasPassword() bool {
	return l.PasswordHash != ""
}

// Expired reports whether the link has an expiry at or before now.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

// Clone returns a deep copy so callers can't mutate backend state.
func (l *Link) Clone() *Link {
	c := *l
	if l.Tags != nil {
		c.Tags = append([]string(nil), l.Tags...)
	}
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		c.ExpiresAt = &t
	}
	if l.LastClickedAt != nil {
		t := *l.LastClickedAt
		c.LastClickedAt = &t
	}
	if l.QRCode != nil {
		c.QRCode = append([]byte(nil), l.QRCode...)
	}
	return &c
}

// NormalizeTags trims, lowercases, dedupes and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sortStrings(out)
	return out
}

// JoinTags and SplitTags convert to and from the comma-separated column form.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func SplitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}
