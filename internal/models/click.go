package models

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"
)

// Visitor is the raw request metadata handed in by the presentation layer.
type Visitor struct {
	IP        string
	UserAgent string
	Referrer  string
	At        time.Time
}

type GeoInfo struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	Region      string `json:"region"`
}

type DeviceInfo struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	Device         string `json:"device"`
}

type ClickEvent struct {
	ID             string    `json:"id"`
	LinkCode       string    `json:"link_code"`
	Timestamp      time.Time `json:"timestamp"`
	VisitorKey     string    `json:"-"`
	Country        string    `json:"country"`
	CountryCode    string    `json:"country_code"`
	City           string    `json:"city"`
	Region         string    `json:"region"`
	Device         string    `json:"device"`
	Browser        string    `json:"browser"`
	OS             string    `json:"os"`
	Referrer       string    `json:"referrer"`
	ReferrerDomain string    `json:"referrer_domain"`
}

// Day returns the UTC calendar day the click belongs to.
func (c *ClickEvent) Day() string {
	return c.Timestamp.UTC().Format(DayLayout)
}

const DayLayout = "2006-01-02"

// VisitorKey derives the deduplication key for unique-visitor counting.
// The raw IP never leaves this function.
func VisitorKey(ip string, d DeviceInfo) string {
	sum := sha256.Sum256([]byte(ip + "|" + d.Browser + "|" + d.OS + "|" + d.Device))
	return hex.EncodeToString(sum[:16])
}

func ReferrerDomain(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Host
}
