package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scmmishra/linkpulse/internal/analytics"
	"github.com/scmmishra/linkpulse/internal/keylock"
	"github.com/scmmishra/linkpulse/internal/models"
)

const DefaultRetention = 10000

// Store is the part of store.Backend the ledger writes and reads.
type Store interface {
	AppendClick(ctx context.Context, ev *models.ClickEvent, retention int) (*models.Link, error)
	Tallies(ctx context.Context, code string) (models.Tallies, error)
	RecentClicks(ctx context.Context, code string, limit int) ([]models.ClickEvent, error)
}

type GeoResolver interface {
	Resolve(ctx context.Context, ip string) models.GeoInfo
}

// Ledger records clicks and answers per-link breakdown queries.
type Ledger struct {
	store     Store
	geo       GeoResolver
	locks     *keylock.Locker
	retention int
	now       func() time.Time
}

// New returns a ledger. locks must be the same Locker used for link
// creation and deletion so a click never lands on a half-deleted link.
func New(store Store, geo GeoResolver, locks *keylock.Locker, retention int) *Ledger {
	if locks == nil {
		locks = keylock.New()
	}
	return &Ledger{
		store:     store,
		geo:       geo,
		locks:     locks,
		retention: retention,
		now:       time.Now,
	}
}

// Record enriches the visit and appends it to the link's history.
// Enrichment runs before the per-code lock is taken.
func (l *Ledger) Record(ctx context.Context, code string, v models.Visitor) (*models.ClickEvent, error) {
	ev := l.enrich(ctx, code, v)

	unlock := l.locks.Lock(code)
	defer unlock()

	if _, err := l.store.AppendClick(ctx, ev, l.retention); err != nil {
		return nil, fmt.Errorf("record click %q: %w", code, err)
	}
	return ev, nil
}

func (l *Ledger) enrich(ctx context.Context, code string, v models.Visitor) *models.ClickEvent {
	at := v.At
	if at.IsZero() {
		at = l.now()
	}
	device := analytics.Classify(v.UserAgent)
	var g models.GeoInfo
	if l.geo != nil {
		g = l.geo.Resolve(ctx, v.IP)
	}
	return &models.ClickEvent{
		ID:             uuid.NewString(),
		LinkCode:       code,
		Timestamp:      at.UTC(),
		VisitorKey:     models.VisitorKey(v.IP, device),
		Country:        g.Country,
		CountryCode:    g.CountryCode,
		City:           g.City,
		Region:         g.Region,
		Device:         device.Device,
		Browser:        device.Browser,
		OS:             device.OS,
		Referrer:       v.Referrer,
		ReferrerDomain: models.ReferrerDomain(v.Referrer),
	}
}

func (l *Ledger) ranked(ctx context.Context, code, dim string, limit int) ([]models.Count, error) {
	t, err := l.store.Tallies(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load tallies %q: %w", code, err)
	}
	return t.Ranked(dim, limit), nil
}

func (l *Ledger) CountsByCountry(ctx context.Context, code string) ([]models.Count, error) {
	return l.ranked(ctx, code, models.DimCountry, 0)
}

func (l *Ledger) CountsByDevice(ctx context.Context, code string) ([]models.Count, error) {
	return l.ranked(ctx, code, models.DimDevice, 0)
}

func (l *Ledger) CountsByBrowser(ctx context.Context, code string) ([]models.Count, error) {
	return l.ranked(ctx, code, models.DimBrowser, 0)
}

func (l *Ledger) CountsByOS(ctx context.Context, code string) ([]models.Count, error) {
	return l.ranked(ctx, code, models.DimOS, 0)
}

// TopReferrers ranks referrer domains; direct visits are not counted.
func (l *Ledger) TopReferrers(ctx context.Context, code string, limit int) ([]models.Count, error) {
	return l.ranked(ctx, code, models.DimReferrer, limit)
}

// DailyCounts returns exactly days UTC buckets ending today, oldest first.
func (l *Ledger) DailyCounts(ctx context.Context, code string, days int) ([]models.DailyCount, error) {
	t, err := l.store.Tallies(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load tallies %q: %w", code, err)
	}
	return t.Series(l.now(), days), nil
}

// Breakdown loads every dimension with a single read.
func (l *Ledger) Breakdown(ctx context.Context, code string) (models.Tallies, error) {
	t, err := l.store.Tallies(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load tallies %q: %w", code, err)
	}
	return t, nil
}

func (l *Ledger) RecentClicks(ctx context.Context, code string, n int) ([]models.ClickEvent, error) {
	clicks, err := l.store.RecentClicks(ctx, code, n)
	if err != nil {
		return nil, fmt.Errorf("recent clicks %q: %w", code, err)
	}
	return clicks, nil
}

// SetClock overrides the time source; used by tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}
