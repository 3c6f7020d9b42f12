package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/scmmishra/linkpulse/internal/cache"
	"github.com/scmmishra/linkpulse/internal/config"
	"github.com/scmmishra/linkpulse/internal/ledger"
	"github.com/scmmishra/linkpulse/internal/links"
	"github.com/scmmishra/linkpulse/internal/logging"
	"github.com/scmmishra/linkpulse/internal/models"
	"github.com/scmmishra/linkpulse/internal/shortener"
	"github.com/scmmishra/linkpulse/internal/slug"
	"github.com/scmmishra/linkpulse/internal/stats"
	"github.com/scmmishra/linkpulse/internal/store"
)

const owner = "demo"

type seedLink struct {
	alias string
	dest  string
	tags  []string
	// weight controls relative click volume (higher = more clicks)
	weight float64
}

var seedLinks = []seedLink{
	{"docs", "https://go.dev/doc/", []string{"docs"}, 5.0},
	{"tour", "https://go.dev/tour/", []string{"docs", "learn"}, 4.0},
	{"langref", "https://go.dev/ref/spec", []string{"docs", "reference"}, 3.5},
	{"effective", "https://go.dev/doc/effective_go", []string{"docs", "learn"}, 4.2},
	{"blog", "https://go.dev/blog/", []string{"news"}, 2.8},
	{"modules", "https://go.dev/ref/mod", []string{"docs", "reference"}, 2.5},
	{"play", "https://go.dev/play/", []string{"tools"}, 3.2},
	{"pkgs", "https://pkg.go.dev/", []string{"tools"}, 4.5},
	{"chi", "https://github.com/go-chi/chi", []string{"libs"}, 2.0},
	{"zap", "https://github.com/uber-go/zap", []string{"libs"}, 1.8},
	{"watermill", "https://watermill.io/", []string{"libs", "messaging"}, 1.5},
	{"sqlite", "https://sqlite.org/docs.html", []string{"docs", "storage"}, 2.3},
}

var referrers = []struct {
	url    string
	weight float64
}{
	{"https://www.google.com/", 30},
	{"", 20}, // direct traffic
	{"https://github.com/", 15},
	{"https://twitter.com/", 8},
	{"https://www.reddit.com/r/golang/", 7},
	{"https://dev.to/", 5},
	{"https://news.ycombinator.com/", 5},
	{"https://www.linkedin.com/", 4},
	{"https://stackoverflow.com/", 3},
}

var countries = []struct {
	geo    models.GeoInfo
	weight float64
}{
	{models.GeoInfo{Country: "United States", CountryCode: "US", City: "San Francisco", Region: "California"}, 25},
	{models.GeoInfo{Country: "India", CountryCode: "IN", City: "Bengaluru", Region: "Karnataka"}, 20},
	{models.GeoInfo{Country: "Germany", CountryCode: "DE", City: "Berlin", Region: "Berlin"}, 8},
	{models.GeoInfo{Country: "United Kingdom", CountryCode: "GB", City: "London", Region: "England"}, 7},
	{models.GeoInfo{Country: "Brazil", CountryCode: "BR", City: "São Paulo", Region: "São Paulo"}, 6},
	{models.GeoInfo{Country: "France", CountryCode: "FR", City: "Paris", Region: "Île-de-France"}, 5},
	{models.GeoInfo{Country: "Japan", CountryCode: "JP", City: "Tokyo", Region: "Tokyo"}, 3},
	{models.GeoInfo{Country: "Netherlands", CountryCode: "NL", City: "Amsterdam", Region: "North Holland"}, 2},
}

var userAgents = []struct {
	ua     string
	weight float64
}{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", 35},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15", 20},
	{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", 15},
	{"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Mobile Safari/537.36", 15},
	{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", 10},
	{"Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1", 4},
	{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", 1},
}

func pick[T any](rng *rand.Rand, items []T, weight func(T) float64) T {
	var total float64
	for _, it := range items {
		total += weight(it)
	}
	v := rng.Float64() * total
	for _, it := range items {
		v -= weight(it)
		if v <= 0 {
			return it
		}
	}
	return items[0]
}

// seededGeo hands back a stable country per IP so repeat visitors stay put.
type seededGeo struct {
	rng  *rand.Rand
	byIP map[string]models.GeoInfo
}

func (g *seededGeo) Resolve(_ context.Context, ip string) models.GeoInfo {
	if info, ok := g.byIP[ip]; ok {
		return info
	}
	info := pick(g.rng, countries, func(c struct {
		geo    models.GeoInfo
		weight float64
	}) float64 {
		return c.weight
	}).geo
	g.byIP[ip] = info
	return info
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New("warn", cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	var open func() (store.Backend, error)
	if cfg.Durable() {
		open = func() (store.Backend, error) { return store.OpenSQLite(cfg.DBPath) }
	}
	ctx := context.Background()
	storage := store.NewCoordinator(ctx, open, nil, logger)
	defer storage.Close()
	if storage.Degraded() {
		log.Fatalf("open %s: %s", cfg.DBPath, storage.Reason())
	}

	gen, err := slug.New(cfg.CodeLength, cfg.MinAliasLength)
	if err != nil {
		log.Fatalf("code generator: %v", err)
	}
	linkCache, err := cache.New(cfg.CacheSize)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}

	rng := rand.New(rand.NewSource(42)) // deterministic seed
	registry := links.NewRegistry(storage, gen, links.Options{Cache: linkCache, Logger: logger})
	clickLedger := ledger.New(storage, &seededGeo{rng: rng, byIP: map[string]models.GeoInfo{}}, registry.Locks(), cfg.Retention)
	aggregator := stats.NewAggregator(registry, clickLedger, cfg.BaseURL)
	svc := shortener.New(registry, clickLedger, aggregator, nil, shortener.Options{Logger: logger})

	now := time.Now().UTC()
	start := now.AddDate(0, -3, 0)

	fmt.Println("Seeding links...")

	created := make([]time.Time, len(seedLinks))
	for i, sl := range seedLinks {
		createdAt := start.Add(time.Duration(i*2) * 24 * time.Hour)
		svc.SetClock(func() time.Time { return createdAt })

		res, err := svc.CreateLink(ctx, shortener.CreateRequest{
			TargetURL:   sl.dest,
			OwnerID:     owner,
			CustomAlias: sl.alias,
			Tags:        sl.tags,
		})
		if err != nil {
			log.Fatalf("create link %q: %v", sl.alias, err)
		}
		created[i] = createdAt
		fmt.Printf("  [%2d] %s -> %s\n", i+1, res.ShortURL, sl.dest)
	}
	svc.SetClock(func() time.Time { return now })

	fmt.Println("\nGenerating clicks...")

	// A fixed visitor pool gives unique_visitors something to dedupe.
	ips := make([]string, 400)
	for i := range ips {
		ips[i] = fmt.Sprintf("%d.%d.%d.%d", rng.Intn(223)+1, rng.Intn(256), rng.Intn(256), rng.Intn(254)+1)
	}

	totalClicks := 0
	for i, sl := range seedLinks {
		baseClicksPerDay := sl.weight * 4
		clicks := 0

		for day := created[i]; day.Before(now); day = day.Add(24 * time.Hour) {
			dayVariance := 0.6 + rng.Float64()*0.8
			weekdayFactor := 1.0
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				weekdayFactor = 0.4
			}
			n := int(baseClicksPerDay * dayVariance * weekdayFactor)

			for j := 0; j < n; j++ {
				hour := int(rng.NormFloat64()*4 + 14) // center around 2pm UTC
				hour = max(0, min(23, hour))
				at := time.Date(day.Year(), day.Month(), day.Day(), hour, rng.Intn(60), rng.Intn(60), 0, time.UTC)
				if at.After(now) {
					continue
				}

				ref := pick(rng, referrers, func(r struct {
					url    string
					weight float64
				}) float64 {
					return r.weight
				}).url
				ua := pick(rng, userAgents, func(u struct {
					ua     string
					weight float64
				}) float64 {
					return u.weight
				}).ua

				_, err := clickLedger.Record(ctx, strings.ToLower(sl.alias), models.Visitor{
					IP:        ips[rng.Intn(len(ips))],
					UserAgent: ua,
					Referrer:  ref,
					At:        at,
				})
				if err != nil {
					log.Fatalf("record click for %s: %v", sl.alias, err)
				}
				clicks++
			}
		}
		totalClicks += clicks
		fmt.Printf("  %-10s  %d clicks\n", sl.alias, clicks)
	}

	dash, err := svc.GetDashboard(ctx, owner)
	if err != nil {
		log.Fatalf("dashboard: %v", err)
	}
	fmt.Printf("\nDone! Created %d links with %d total clicks (%d unique visitors).\n",
		dash.TotalLinks, totalClicks, dash.UniqueClicks)
	fmt.Printf("Storage: %s (%s)\n", storage.Mode(), cfg.DBPath)
}
