package store

import (
	"sort"

	"github.com/scmmishra/linkpulse/internal/models"
)

// sortNewestFirst orders by creation time descending, then code.
func sortNewestFirst(links []*models.Link) {
	sort.SliceStable(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].Code < links[j].Code
	})
}
