package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/scmmishra/linkpulse/internal/models"
)

type linkState struct {
	mu       sync.Mutex
	link     *models.Link
	events   []models.ClickEvent // oldest first
	visitors map[string]struct{}
	tallies  models.Tallies
}

// MemoryStore is the process-local Backend. Its maps are guarded by mu;
// each link's click state has its own lock so different codes append in
// parallel.
type MemoryStore struct {
	mu     sync.RWMutex
	links  map[string]*linkState
	issued map[string]struct{}
	owners map[string]map[string]struct{} // owner -> codes
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:  make(map[string]*linkState),
		issued: make(map[string]struct{}),
		owners: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Reset drops every link, click and issued code.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links = make(map[string]*linkState)
	m.issued = make(map[string]struct{})
	m.owners = make(map[string]map[string]struct{})
}

func (m *MemoryStore) InsertLink(_ context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.issued[link.Code]; ok {
		return fmt.Errorf("insert %q: %w", link.Code, models.ErrDuplicateCode)
	}
	m.issued[link.Code] = struct{}{}
	m.links[link.Code] = &linkState{
		link:     link.Clone(),
		visitors: make(map[string]struct{}),
		tallies:  models.NewTallies(),
	}
	codes, ok := m.owners[link.OwnerID]
	if !ok {
		codes = make(map[string]struct{})
		m.owners[link.OwnerID] = codes
	}
	codes[link.Code] = struct{}{}
	return nil
}

func (m *MemoryStore) GetLink(_ context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.links[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.link.Clone(), nil
}

func (m *MemoryStore) ListLinksByOwner(_ context.Context, ownerID string) ([]*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	codes := m.owners[ownerID]
	out := make([]*models.Link, 0, len(codes))
	for code := range codes {
		st := m.links[code]
		st.mu.Lock()
		out = append(out, st.link.Clone())
		st.mu.Unlock()
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) DeleteLink(_ context.Context, code, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.links[code]
	if !ok || st.link.OwnerID != ownerID {
		return models.ErrNotFound
	}
	delete(m.links, code)
	if codes := m.owners[ownerID]; codes != nil {
		delete(codes, code)
		if len(codes) == 0 {
			delete(m.owners, ownerID)
		}
	}
	return nil
}

func (m *MemoryStore) DeactivateLink(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.links[code]
	if !ok {
		return false, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.link.IsActive {
		return false, nil
	}
	st.link.IsActive = false
	return true, nil
}

func (m *MemoryStore) SetQRCode(_ context.Context, code string, png []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.links[code]
	if !ok {
		return models.ErrNotFound
	}
	st.mu.Lock()
	st.link.QRCode = append([]byte(nil), png...)
	st.mu.Unlock()
	return nil
}

func (m *MemoryStore) CodeIssued(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.issued[code]
	return ok, nil
}

func (m *MemoryStore) IssuedCodes(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.issued))
	for code := range m.issued {
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) AppendClick(_ context.Context, ev *models.ClickEvent, retention int) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.links[ev.LinkCode]
	if !ok {
		return nil, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	st.events = append(st.events, *ev)
	st.tallies.ApplyClick(ev, 1)
	st.visitors[ev.VisitorKey] = struct{}{}

	if retention > 0 && len(st.events) > retention {
		n := len(st.events) - retention
		for i := 0; i < n; i++ {
			st.tallies.ApplyClick(&st.events[i], -1)
		}
		kept := copy(st.events, st.events[n:])
		clear(st.events[kept:])
		st.events = st.events[:kept]
	}

	ts := ev.Timestamp
	st.link.TotalClicks++
	st.link.UniqueVisitors = len(st.visitors)
	st.link.LastClickedAt = &ts
	return st.link.Clone(), nil
}

func (m *MemoryStore) Tallies(_ context.Context, code string) (models.Tallies, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.links[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tallies.Clone(), nil
}

func (m *MemoryStore) RecentClicks(_ context.Context, code string, limit int) ([]models.ClickEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.links[code]
	if !ok {
		return nil, models.ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	n := len(st.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.ClickEvent, 0, n)
	for i := len(st.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, st.events[i])
	}
	return out, nil
}
