package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/analytics"
	"github.com/scmmishra/linkpulse/internal/ledger"
	"github.com/scmmishra/linkpulse/internal/links"
	"github.com/scmmishra/linkpulse/internal/messaging"
	"github.com/scmmishra/linkpulse/internal/models"
	"github.com/scmmishra/linkpulse/internal/qr"
	"github.com/scmmishra/linkpulse/internal/stats"
)

// Enqueuer accepts clicks for asynchronous recording.
type Enqueuer interface {
	Push(click analytics.RawClick)
}

type CreateRequest struct {
	TargetURL        string   `json:"target_url"`
	OwnerID          string   `json:"-"`
	CustomAlias      string   `json:"custom_alias,omitempty"`
	ExpiresInSeconds int64    `json:"expires_in_seconds,omitempty"`
	Password         string   `json:"password,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

type CreateResult struct {
	Code      string     `json:"code"`
	ShortURL  string     `json:"short_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type Resolution struct {
	TargetURL string `json:"target_url"`
}

type Options struct {
	// Publish announces new links; nil skips the event and QR codes are
	// rendered on first request instead.
	Publish messaging.Publish[messaging.LinkCreated]
	Logger  *zap.Logger
}

// Service is the operation set exposed to transports.
type Service struct {
	links   *links.Registry
	ledger  *ledger.Ledger
	stats   *stats.Aggregator
	clicks  Enqueuer
	publish messaging.Publish[messaging.LinkCreated]
	now     func() time.Time
	logger  *zap.Logger
}

func New(reg *links.Registry, led *ledger.Ledger, agg *stats.Aggregator, clicks Enqueuer, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		links:   reg,
		ledger:  led,
		stats:   agg,
		clicks:  clicks,
		publish: opts.Publish,
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock overrides the time source for the service and its components.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.links.SetClock(now)
	s.ledger.SetClock(now)
	s.stats.SetClock(now)
}

func (s *Service) CreateLink(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.ExpiresInSeconds < 0 {
		return nil, fmt.Errorf("%w: expires_in_seconds must not be negative", models.ErrInvalidInput)
	}
	l, err := s.links.Create(ctx, links.NewLink{
		TargetURL:   req.TargetURL,
		OwnerID:     req.OwnerID,
		CustomAlias: req.CustomAlias,
		ExpiresIn:   time.Duration(req.ExpiresInSeconds) * time.Second,
		Password:    req.Password,
		Tags:        req.Tags,
	})
	if err != nil {
		return nil, err
	}

	res := &CreateResult{
		Code:      l.Code,
		ShortURL:  s.stats.ShortURL(l.Code),
		ExpiresAt: l.ExpiresAt,
	}
	s.logger.Info("link created",
		zap.String("code", l.Code),
		zap.String("owner", l.OwnerID),
		zap.Bool("alias", req.CustomAlias != ""),
	)

	if s.publish != nil {
		ev := &messaging.LinkCreated{Code: l.Code, ShortURL: res.ShortURL, OwnerID: l.OwnerID}
		if err := s.publish(ev); err != nil {
			s.logger.Warn("publish link created", zap.String("code", l.Code), zap.Error(err))
		}
	}
	return res, nil
}

// ResolveForVisit checks a link can be visited and queues the click.
// An expired link is deactivated by the first visit that notices it.
func (s *Service) ResolveForVisit(ctx context.Context, code, password string, v models.Visitor) (*Resolution, error) {
	l, err := s.links.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !l.IsActive {
		if l.Expired(now) {
			return nil, models.ErrExpired
		}
		return nil, models.ErrInactive
	}
	if l.Expired(now) {
		if _, err := s.links.DeactivateIfExpired(ctx, l); err != nil {
			s.logger.Error("deactivate expired link", zap.String("code", l.Code), zap.Error(err))
		}
		return nil, models.ErrExpired
	}

	if err := links.VerifyPassword(l, password); err != nil {
		return nil, err
	}

	if v.At.IsZero() {
		v.At = now
	}
	s.clicks.Push(analytics.RawClick{Code: l.Code, Visitor: v})
	return &Resolution{TargetURL: l.TargetURL}, nil
}

func (s *Service) ListOwnerLinks(ctx context.Context, ownerID string) ([]stats.LinkSummary, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", models.ErrInvalidInput)
	}
	ls, err := s.links.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]stats.LinkSummary, 0, len(ls))
	for _, l := range ls {
		out = append(out, s.stats.Summarize(l))
	}
	return out, nil
}

// GetLinkStats is public: anyone holding the code may read its stats.
func (s *Service) GetLinkStats(ctx context.Context, code string) (*stats.StatsSummary, error) {
	return s.stats.LinkStats(ctx, code)
}

func (s *Service) GetDashboard(ctx context.Context, ownerID string) (*stats.DashboardSummary, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", models.ErrInvalidInput)
	}
	return s.stats.Dashboard(ctx, ownerID)
}

func (s *Service) DeleteLink(ctx context.Context, code, ownerID string) error {
	if err := s.links.Delete(ctx, code, ownerID); err != nil {
		return err
	}
	s.logger.Info("link deleted", zap.String("code", code), zap.String("owner", ownerID))
	return nil
}

// QRCode returns a PNG for the link's short URL. The default style is
// served from the stored payload when present and stored after rendering.
func (s *Service) QRCode(ctx context.Context, code string, style qr.Style) ([]byte, error) {
	l, err := s.links.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if style.IsDefault() && len(l.QRCode) > 0 {
		return l.QRCode, nil
	}

	png, err := qr.Render(s.stats.ShortURL(l.Code), style)
	if err != nil {
		return nil, err
	}
	if style.IsDefault() {
		if err := s.links.SetQRCode(ctx, l.Code, png); err != nil {
			s.logger.Warn("store qr code", zap.String("code", l.Code), zap.Error(err))
		}
	}
	return png, nil
}

// HandleLinkCreated renders and stores the QR payload for a new link.
// Only storage failures are returned, so the bus retries just those.
func (s *Service) HandleLinkCreated(ctx context.Context, ev *messaging.LinkCreated) error {
	png, err := qr.Render(ev.ShortURL, qr.Style{})
	if err != nil {
		s.logger.Error("render qr code", zap.String("code", ev.Code), zap.Error(err))
		return nil
	}
	err = s.links.SetQRCode(ctx, ev.Code, png)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}
