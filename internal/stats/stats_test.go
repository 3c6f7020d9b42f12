package stats_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scmmishra/linkpulse/internal/ledger"
	"github.com/scmmishra/linkpulse/internal/links"
	"github.com/scmmishra/linkpulse/internal/models"
	"github.com/scmmishra/linkpulse/internal/slug"
	"github.com/scmmishra/linkpulse/internal/stats"
	"github.com/scmmishra/linkpulse/internal/store"
)

const ua = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"

type fixedGeo struct{}

func (fixedGeo) Resolve(context.Context, string) models.GeoInfo {
	return models.GeoInfo{Country: "Canada", CountryCode: "CA", City: "Toronto", Region: "Ontario"}
}

type env struct {
	reg *links.Registry
	led *ledger.Ledger
	agg *stats.Aggregator
	now time.Time
}

func setup(t *testing.T) *env {
	t.Helper()
	s := store.NewMemoryStore()
	gen, err := slug.New(0, 0)
	require.NoError(t, err)
	reg := links.NewRegistry(s, gen, links.Options{PasswordCost: bcrypt.MinCost})
	led := ledger.New(s, fixedGeo{}, reg.Locks(), 0)
	agg := stats.NewAggregator(reg, led, "https://lp.example/")

	now := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	reg.SetClock(clock)
	led.SetClock(clock)
	agg.SetClock(clock)
	return &env{reg: reg, led: led, agg: agg, now: now}
}

func (e *env) create(t *testing.T, alias string, created time.Time, expiresIn time.Duration) *models.Link {
	t.Helper()
	e.reg.SetClock(func() time.Time { return created })
	defer e.reg.SetClock(func() time.Time { return e.now })
	l, err := e.reg.Create(context.Background(), links.NewLink{
		TargetURL: "example.com/" + alias, OwnerID: "alice", CustomAlias: alias, ExpiresIn: expiresIn,
	})
	require.NoError(t, err)
	return l
}

func (e *env) clicks(t *testing.T, code string, n int, at time.Time, ref string) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.led.Record(context.Background(), code, models.Visitor{
			IP: fmt.Sprintf("198.51.100.%d", i), UserAgent: ua, Referrer: ref, At: at,
		})
		require.NoError(t, err)
	}
}

func TestDashboard_Empty(t *testing.T) {
	e := setup(t)
	d, err := e.agg.Dashboard(context.Background(), "nobody")
	require.NoError(t, err)

	assert.Zero(t, d.TotalLinks)
	assert.Zero(t, d.AverageClicksPerLink)
	assert.Len(t, d.Last7Days, 7)
	assert.Empty(t, d.TopLinks)
}

func TestDashboard_Totals(t *testing.T) {
	e := setup(t)
	a := e.create(t, "alpha", e.now.Add(-3*time.Hour), 0)
	b := e.create(t, "bravo", e.now.Add(-2*time.Hour), 0)
	e.create(t, "charlie", e.now.Add(-time.Hour), time.Minute) // already expired at e.now

	e.clicks(t, a.Code, 3, e.now, "")
	e.clicks(t, b.Code, 2, e.now.AddDate(0, 0, -2), "")

	d, err := e.agg.Dashboard(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 3, d.TotalLinks)
	assert.Equal(t, 2, d.ActiveLinks)
	assert.Equal(t, 5, d.TotalClicks)
	assert.Equal(t, 5, d.UniqueClicks)
	assert.InDelta(t, 1.67, d.AverageClicksPerLink, 0.001)

	require.Len(t, d.Last7Days, 7)
	assert.Equal(t, "2026-07-15", d.Last7Days[6].Date)
	assert.Equal(t, 3, d.Last7Days[6].Count)
	assert.Equal(t, 2, d.Last7Days[4].Count)

	require.Len(t, d.TopLinks, 3)
	assert.Equal(t, "alpha", d.TopLinks[0].Code)
	assert.Equal(t, "https://lp.example/alpha", d.TopLinks[0].ShortURL)
	assert.Equal(t, "bravo", d.TopLinks[1].Code)
	assert.Equal(t, "charlie", d.TopLinks[2].Code)
	assert.True(t, d.TopLinks[2].Expired)
	assert.False(t, d.TopLinks[2].Active)
}

func TestDashboard_TopLinksTiesNewestFirstAndLimit(t *testing.T) {
	e := setup(t)
	for i := 0; i < 7; i++ {
		e.create(t, fmt.Sprintf("link-%d", i), e.now.Add(time.Duration(i)*time.Minute), 0)
	}

	d, err := e.agg.Dashboard(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, d.TopLinks, stats.TopLinksLimit)
	assert.Equal(t, "link-6", d.TopLinks[0].Code)
	assert.Equal(t, "link-2", d.TopLinks[4].Code)
}

func TestLinkStats(t *testing.T) {
	e := setup(t)
	l := e.create(t, "stats", e.now.Add(-time.Hour), 0)
	e.clicks(t, l.Code, 4, e.now, "https://news.ycombinator.com/")
	e.clicks(t, l.Code, 1, e.now.AddDate(0, 0, -1), "")

	s, err := e.agg.LinkStats(context.Background(), "stats")
	require.NoError(t, err)

	assert.Equal(t, 5, s.TotalClicks)
	assert.Equal(t, 4, s.UniqueVisitors)
	assert.Equal(t, "https://example.com/stats", s.Link.TargetURL)
	assert.Equal(t, []models.Count{{Key: "Canada", Count: 5}}, s.Countries)
	assert.Equal(t, []models.Count{{Key: "Desktop", Count: 5}}, s.Devices)
	assert.Equal(t, []models.Count{{Key: "Firefox", Count: 5}}, s.Browsers)
	assert.Equal(t, []models.Count{{Key: "news.ycombinator.com", Count: 4}}, s.TopReferrers)
	require.Len(t, s.Last7Days, 7)
	assert.Equal(t, 4, s.Last7Days[6].Count)
	assert.Equal(t, 1, s.Last7Days[5].Count)
	assert.Len(t, s.RecentClicks, 5)
	assert.NotEmpty(t, s.OperatingSystems)
}

func TestLinkStats_NotFound(t *testing.T) {
	e := setup(t)
	_, err := e.agg.LinkStats(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
