package slug

import (
	"fmt"
	"strings"

	"github.com/jaevor/go-nanoid"

	"github.com/scmmishra/linkpulse/internal/models"
)

// Alphabet is lowercase-only: aliases are lowercased too, so both kinds of
// code share one case-insensitive namespace.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	DefaultLength         = 7
	DefaultMinAliasLength = 3
	MaxAliasLength        = 64
)

var reserved = map[string]bool{
	"api":     true,
	"healthz": true,
}

type Generator struct {
	random    func() string
	minLength int
}

func New(length, minAliasLength int) (*Generator, error) {
	if length <= 0 {
		length = DefaultLength
	}
	if minAliasLength <= 0 {
		minAliasLength = DefaultMinAliasLength
	}
	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("nanoid: %w", err)
	}
	return &Generator{random: gen, minLength: minAliasLength}, nil
}

// Random returns a fresh code. It does not consult any store.
func (g *Generator) Random() string {
	return g.random()
}

// Normalize trims and lowercases alias and drops characters outside
// [a-z0-9-_].
func (g *Generator) Normalize(alias string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(alias)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	switch {
	case len(s) < g.minLength:
		return "", fmt.Errorf("%w: must be at least %d characters", models.ErrInvalidAlias, g.minLength)
	case len(s) > MaxAliasLength:
		return "", fmt.Errorf("%w: must be at most %d characters", models.ErrInvalidAlias, MaxAliasLength)
	case reserved[s]:
		return "", fmt.Errorf("%w: %q is reserved", models.ErrInvalidAlias, s)
	}
	return s, nil
}

// Generate returns the normalized alias when one is given, otherwise a
// random code.
func (g *Generator) Generate(alias string) (string, error) {
	if alias == "" {
		return g.Random(), nil
	}
	return g.Normalize(alias)
}
