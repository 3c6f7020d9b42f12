package store

import (
	"context"

	"github.com/scmmishra/linkpulse/internal/models"
)

// Backend is implemented by every storage engine. Implementations return
// copies; mutating a returned link never changes stored state.
//
// Uniqueness is enforced by InsertLink itself: a code that was ever
// inserted, including deleted ones, yields models.ErrDuplicateCode.
type Backend interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	InsertLink(ctx context.Context, link *models.Link) error
	GetLink(ctx context.Context, code string) (*models.Link, error)
	// ListLinksByOwner returns links newest first.
	ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error)
	// DeleteLink removes the link and its click history. A code owned by
	// someone else reports models.ErrNotFound.
	DeleteLink(ctx context.Context, code, ownerID string) error
	// DeactivateLink reports whether the link flipped from active.
	DeactivateLink(ctx context.Context, code string) (bool, error)
	SetQRCode(ctx context.Context, code string, png []byte) error
	CodeIssued(ctx context.Context, code string) (bool, error)
	IssuedCodes(ctx context.Context) ([]string, error)

	// AppendClick stores the event, bumps counters and tallies, evicts
	// beyond retention (0 keeps everything) and returns the updated link.
	AppendClick(ctx context.Context, ev *models.ClickEvent, retention int) (*models.Link, error)
	Tallies(ctx context.Context, code string) (models.Tallies, error)
	// RecentClicks returns up to limit retained events, newest first.
	RecentClicks(ctx context.Context, code string, limit int) ([]models.ClickEvent, error)
}

