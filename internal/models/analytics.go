package models

import (
	"sort"
	"time"
)

// Dimensions tallied per link alongside the click log.
const (
	DimCountry  = "country"
	DimDevice   = "device"
	DimBrowser  = "browser"
	DimOS       = "os"
	DimReferrer = "referrer"
	DimDay      = "day"
)

// Tallies holds running per-dimension counts for one link.
type Tallies map[string]map[string]int

func NewTallies() Tallies {
	return Tallies{}
}

func (t Tallies) Add(dim, key string, delta int) {
	if key == "" {
		return
	}
	m, ok := t[dim]
	if !ok {
		m = make(map[string]int)
		t[dim] = m
	}
	m[key] += delta
	if m[key] <= 0 {
		delete(m, key)
	}
}

func (t Tallies) Get(dim, key string) int {
	return t[dim][key]
}

// ApplyClick adjusts every dimension for one click event.
func (t Tallies) ApplyClick(c *ClickEvent, delta int) {
	for dim, key := range ClickDimensions(c) {
		t.Add(dim, key, delta)
	}
}

func (t Tallies) Clone() Tallies {
	out := make(Tallies, len(t))
	for dim, m := range t {
		cp := make(map[string]int, len(m))
		for k, v := range m {
			cp[k] = v
		}
		out[dim] = cp
	}
	return out
}

// ClickDimensions maps a click onto the keys it contributes to.
func ClickDimensions(c *ClickEvent) map[string]string {
	return map[string]string{
		DimCountry:  c.Country,
		DimDevice:   c.Device,
		DimBrowser:  c.Browser,
		DimOS:       c.OS,
		DimReferrer: c.ReferrerDomain,
		DimDay:      c.Day(),
	}
}

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Ranked returns the dimension's counts ordered by count desc, then key.
// limit <= 0 returns everything.
func (t Tallies) Ranked(dim string, limit int) []Count {
	m := t[dim]
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Series returns exactly n daily buckets ending at now's UTC day,
// oldest first, zero-filled.
func (t Tallies) Series(now time.Time, n int) []DailyCount {
	if n <= 0 {
		return []DailyCount{}
	}
	days := t[DimDay]
	today := now.UTC().Truncate(24 * time.Hour)
	out := make([]DailyCount, n)
	for i := 0; i < n; i++ {
		d := today.AddDate(0, 0, i-(n-1)).Format(DayLayout)
		out[i] = DailyCount{Date: d, Count: days[d]}
	}
	return out
}

func sortStrings(s []string) {
	sort.Strings(s)
}
