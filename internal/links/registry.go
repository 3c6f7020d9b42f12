package links

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/scmmishra/linkpulse/internal/cache"
	"github.com/scmmishra/linkpulse/internal/filter"
	"github.com/scmmishra/linkpulse/internal/keylock"
	"github.com/scmmishra/linkpulse/internal/models"
)

// MaxAttempts bounds random-code generation per create.
const MaxAttempts = 5

// Store is the link-facing part of store.Backend.
type Store interface {
	InsertLink(ctx context.Context, link *models.Link) error
	GetLink(ctx context.Context, code string) (*models.Link, error)
	ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error)
	DeleteLink(ctx context.Context, code, ownerID string) error
	DeactivateLink(ctx context.Context, code string) (bool, error)
	SetQRCode(ctx context.Context, code string, png []byte) error
	CodeIssued(ctx context.Context, code string) (bool, error)
	IssuedCodes(ctx context.Context) ([]string, error)
}

type CodeGenerator interface {
	Random() string
	Normalize(alias string) (string, error)
}

type NewLink struct {
	TargetURL   string
	OwnerID     string
	CustomAlias string
	ExpiresIn   time.Duration
	Password    string
	Tags        []string
}

type Options struct {
	Cache        *cache.LinkCache
	Issued       *filter.IssuedCodes
	Locks        *keylock.Locker
	PasswordCost int
	Logger       *zap.Logger
}

// Registry owns link creation, lookup and deletion on top of a Store.
type Registry struct {
	store  Store
	gen    CodeGenerator
	cache  *cache.LinkCache
	issued *filter.IssuedCodes
	locks  *keylock.Locker
	cost   int
	now    func() time.Time
	logger *zap.Logger
}

func NewRegistry(store Store, gen CodeGenerator, opts Options) *Registry {
	r := &Registry{
		store:  store,
		gen:    gen,
		cache:  opts.Cache,
		issued: opts.Issued,
		locks:  opts.Locks,
		cost:   opts.PasswordCost,
		now:    time.Now,
		logger: opts.Logger,
	}
	if r.locks == nil {
		r.locks = keylock.New()
	}
	if r.cost == 0 {
		r.cost = bcrypt.DefaultCost
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Locks returns the per-code locker shared with the click ledger.
func (r *Registry) Locks() *keylock.Locker {
	return r.locks
}

// SetClock overrides the time source; used by tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Seed loads every issued code into the collision filter.
func (r *Registry) Seed(ctx context.Context) error {
	if r.issued == nil {
		return nil
	}
	codes, err := r.store.IssuedCodes(ctx)
	if err != nil {
		return fmt.Errorf("load issued codes: %w", err)
	}
	r.issued.AddBatch(codes)
	r.logger.Info("issued-code filter seeded", zap.Int("codes", len(codes)))
	return nil
}

func (r *Registry) Create(ctx context.Context, n NewLink) (*models.Link, error) {
	if strings.TrimSpace(n.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", models.ErrInvalidInput)
	}
	if n.ExpiresIn < 0 {
		return nil, fmt.Errorf("%w: expiry must not be negative", models.ErrInvalidInput)
	}
	target, err := NormalizeURL(n.TargetURL)
	if err != nil {
		return nil, err
	}

	var alias string
	if strings.TrimSpace(n.CustomAlias) != "" {
		if alias, err = r.gen.Normalize(n.CustomAlias); err != nil {
			return nil, err
		}
	}

	now := r.now().UTC()
	link := &models.Link{
		TargetURL: target,
		OwnerID:   n.OwnerID,
		Tags:      models.NormalizeTags(n.Tags),
		CreatedAt: now,
		IsActive:  true,
	}
	if n.ExpiresIn > 0 {
		exp := now.Add(n.ExpiresIn)
		link.ExpiresAt = &exp
	}
	if n.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(n.Password), r.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		link.PasswordHash = string(hash)
	}

	if alias != "" {
		link.Code = alias
		if err := r.insert(ctx, link, true); err != nil {
			return nil, err
		}
		return link, nil
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		link.Code = r.gen.Random()
		err := r.insert(ctx, link, r.issued == nil || r.issued.Test(link.Code))
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, models.ErrDuplicateCode) {
			return nil, err
		}
		r.logger.Debug("random code collision", zap.String("code", link.Code), zap.Int("attempt", attempt))
	}
	return nil, models.ErrCodeSpaceExhausted
}

// insert stores link under its code's lock. check runs the explicit
// existence lookup first; the backend's own uniqueness guard still applies.
func (r *Registry) insert(ctx context.Context, link *models.Link, check bool) error {
	unlock := r.locks.Lock(link.Code)
	defer unlock()

	if check {
		taken, err := r.store.CodeIssued(ctx, link.Code)
		if err != nil {
			return fmt.Errorf("check code: %w", err)
		}
		if taken {
			return fmt.Errorf("code %q: %w", link.Code, models.ErrDuplicateCode)
		}
	}
	if err := r.store.InsertLink(ctx, link); err != nil {
		return err
	}
	if r.issued != nil {
		r.issued.Add(link.Code)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Get returns the link for code, serving from cache when possible.
func (r *Registry) Get(ctx context.Context, code string) (*models.Link, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, models.ErrNotFound
	}
	if r.cache == nil {
		return r.store.GetLink(ctx, code)
	}
	if l, ok := r.cache.Get(code); ok {
		return l, nil
	}

	// Fill under the code's lock so a concurrent Delete or deactivation
	// cannot be overwritten by the row read before it.
	unlock := r.locks.Lock(code)
	defer unlock()
	if l, ok := r.cache.Get(code); ok {
		return l, nil
	}
	l, err := r.store.GetLink(ctx, code)
	if err != nil {
		return nil, err
	}
	r.cache.Set(code, l)
	return l, nil
}

// Fresh bypasses the cache; use it when counters must be current.
func (r *Registry) Fresh(ctx context.Context, code string) (*models.Link, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, models.ErrNotFound
	}
	return r.store.GetLink(ctx, code)
}

func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]*models.Link, error) {
	links, err := r.store.ListLinksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// Delete removes an owner's link. Unknown and foreign codes are both
// reported as models.ErrNotFound.
func (r *Registry) Delete(ctx context.Context, code, ownerID string) error {
	code = normalizeCode(code)
	unlock := r.locks.Lock(code)
	defer unlock()

	if err := r.store.DeleteLink(ctx, code, ownerID); err != nil {
		return err
	}
	if r.cache != nil {
		r.cache.Invalidate(code)
	}
	return nil
}

// DeactivateIfExpired flips an expired, still-active link to inactive and
// reports whether it did. link is updated in place.
func (r *Registry) DeactivateIfExpired(ctx context.Context, link *models.Link) (bool, error) {
	if !link.IsActive || !link.Expired(r.now()) {
		return false, nil
	}
	unlock := r.locks.Lock(link.Code)
	flipped, err := r.store.DeactivateLink(ctx, link.Code)
	if err == nil && r.cache != nil {
		r.cache.Invalidate(link.Code)
	}
	unlock()
	if err != nil {
		return false, fmt.Errorf("deactivate %q: %w", link.Code, err)
	}
	link.IsActive = false
	if flipped {
		r.logger.Info("link expired", zap.String("code", link.Code))
	}
	return flipped, nil
}

func (r *Registry) SetQRCode(ctx context.Context, code string, png []byte) error {
	unlock := r.locks.Lock(code)
	defer unlock()
	if err := r.store.SetQRCode(ctx, code, png); err != nil {
		return fmt.Errorf("store qr code %q: %w", code, err)
	}
	if r.cache != nil {
		r.cache.Invalidate(code)
	}
	return nil
}

// VerifyPassword checks a visitor-supplied password against the link.
func VerifyPassword(link *models.Link, password string) error {
	if !link.HasPassword() {
		return nil
	}
	if password == "" {
		return models.ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password)); err != nil {
		return models.ErrWrongPassword
	}
	return nil
}
