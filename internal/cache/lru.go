package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scmmishra/linkpulse/internal/models"
)

// LinkCache holds resolved links for the redirect path. Stored links are
// clones; callers must Invalidate on delete or deactivation.
type LinkCache struct {
	c *lru.Cache[string, *models.Link]
}

func New(size int) (*LinkCache, error) {
	c, err := lru.New[string, *models.Link](size)
	if err != nil {
		return nil, err
	}
	return &LinkCache{c: c}, nil
}

func (lc *LinkCache) Get(code string) (*models.Link, bool) {
	l, ok := lc.c.Get(code)
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

func (lc *LinkCache) Set(code string, link *models.Link) {
	lc.c.Add(code, link.Clone())
}

func (lc *LinkCache) Invalidate(code string) {
	lc.c.Remove(code)
}
