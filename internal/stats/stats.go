package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/scmmishra/linkpulse/internal/models"
)

const (
	SeriesDays        = 7
	TopLinksLimit     = 5
	TopReferrersLimit = 10
	RecentClicksLimit = 20
)

type LinkSource interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Link, error)
	Fresh(ctx context.Context, code string) (*models.Link, error)
}

type ClickSource interface {
	Breakdown(ctx context.Context, code string) (models.Tallies, error)
	RecentClicks(ctx context.Context, code string, n int) ([]models.ClickEvent, error)
}

// LinkSummary is the owner-facing view of a link. Active is false once the
// link is deactivated or past its expiry.
type LinkSummary struct {
	Code           string     `json:"code"`
	ShortURL       string     `json:"short_url"`
	TargetURL      string     `json:"target_url"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Active         bool       `json:"active"`
	Expired        bool       `json:"expired"`
	Protected      bool       `json:"protected"`
	TotalClicks    int        `json:"total_clicks"`
	UniqueVisitors int        `json:"unique_visitors"`
	LastClickedAt  *time.Time `json:"last_clicked_at,omitempty"`
}

type DashboardSummary struct {
	TotalLinks           int                 `json:"total_links"`
	ActiveLinks          int                 `json:"active_links"`
	TotalClicks          int                 `json:"total_clicks"`
	UniqueClicks         int                 `json:"unique_clicks"`
	AverageClicksPerLink float64             `json:"average_clicks_per_link"`
	Last7Days            []models.DailyCount `json:"last_7_days"`
	TopLinks             []LinkSummary       `json:"top_links"`
}

type StatsSummary struct {
	Link             LinkSummary         `json:"link"`
	TotalClicks      int                 `json:"total_clicks"`
	UniqueVisitors   int                 `json:"unique_visitors"`
	Countries        []models.Count      `json:"countries"`
	Devices          []models.Count      `json:"devices"`
	Browsers         []models.Count      `json:"browsers"`
	OperatingSystems []models.Count      `json:"operating_systems"`
	Last7Days        []models.DailyCount `json:"last_7_days"`
	TopReferrers     []models.Count      `json:"top_referrers"`
	RecentClicks     []models.ClickEvent `json:"recent_clicks"`
}

type Aggregator struct {
	links   LinkSource
	clicks  ClickSource
	baseURL string
	now     func() time.Time
}

func NewAggregator(links LinkSource, clicks ClickSource, baseURL string) *Aggregator {
	return &Aggregator{
		links:   links,
		clicks:  clicks,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

func (a *Aggregator) ShortURL(code string) string {
	return a.baseURL + "/" + code
}

func (a *Aggregator) Summarize(l *models.Link) LinkSummary {
	expired := l.Expired(a.now())
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return LinkSummary{
		Code:           l.Code,
		ShortURL:       a.ShortURL(l.Code),
		TargetURL:      l.TargetURL,
		Tags:           tags,
		CreatedAt:      l.CreatedAt,
		ExpiresAt:      l.ExpiresAt,
		Active:         l.IsActive && !expired,
		Expired:        expired,
		Protected:      l.HasPassword(),
		TotalClicks:    l.TotalClicks,
		UniqueVisitors: l.UniqueVisitors,
		LastClickedAt:  l.LastClickedAt,
	}
}

// Dashboard aggregates every link the owner has.
func (a *Aggregator) Dashboard(ctx context.Context, ownerID string) (*DashboardSummary, error) {
	links, err := a.links.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	d := &DashboardSummary{TotalLinks: len(links)}
	days := models.NewTallies()
	for _, l := range links {
		s := a.Summarize(l)
		if s.Active {
			d.ActiveLinks++
		}
		d.TotalClicks += l.TotalClicks
		d.UniqueClicks += l.UniqueVisitors

		t, err := a.clicks.Breakdown(ctx, l.Code)
		if err != nil {
			// Deleted between list and read.
			continue
		}
		for day, n := range t[models.DimDay] {
			days.Add(models.DimDay, day, n)
		}
	}
	if d.TotalLinks > 0 {
		d.AverageClicksPerLink = round2(float64(d.TotalClicks) / float64(d.TotalLinks))
	}
	d.Last7Days = days.Series(a.now(), SeriesDays)
	d.TopLinks = a.topLinks(links, TopLinksLimit)
	return d, nil
}

// topLinks ranks by total clicks, newest first on ties.
func (a *Aggregator) topLinks(links []*models.Link, limit int) []LinkSummary {
	ranked := append([]*models.Link(nil), links...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalClicks != ranked[j].TotalClicks {
			return ranked[i].TotalClicks > ranked[j].TotalClicks
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
		}
		return ranked[i].Code < ranked[j].Code
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]LinkSummary, 0, len(ranked))
	for _, l := range ranked {
		out = append(out, a.Summarize(l))
	}
	return out
}

// LinkStats returns the full breakdown for one link.
func (a *Aggregator) LinkStats(ctx context.Context, code string) (*StatsSummary, error) {
	l, err := a.links.Fresh(ctx, code)
	if err != nil {
		return nil, err
	}
	t, err := a.clicks.Breakdown(ctx, l.Code)
	if err != nil {
		return nil, err
	}
	recent, err := a.clicks.RecentClicks(ctx, l.Code, RecentClicksLimit)
	if err != nil {
		return nil, err
	}

	return &StatsSummary{
		Link:             a.Summarize(l),
		TotalClicks:      l.TotalClicks,
		UniqueVisitors:   l.UniqueVisitors,
		Countries:        t.Ranked(models.DimCountry, 0),
		Devices:          t.Ranked(models.DimDevice, 0),
		Browsers:         t.Ranked(models.DimBrowser, 0),
		OperatingSystems: t.Ranked(models.DimOS, 0),
		Last7Days:        t.Series(a.now(), SeriesDays),
		TopReferrers:     t.Ranked(models.DimReferrer, TopReferrersLimit),
		RecentClicks:     recent,
	}, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
