package links

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/scmmishra/linkpulse/internal/models"
)

const MaxURLLength = 2048

var blockedSchemes = map[string]bool{
	"javascript": true,
	"data":       true,
	"file":       true,
	"vbscript":   true,
	"about":      true,
	"blob":       true,
}

var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// NormalizeURL returns raw with an http(s) scheme, adding https:// when no
// scheme was given.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", models.ErrInvalidURL)
	}
	if len(raw) > MaxURLLength {
		return "", fmt.Errorf("%w: longer than %d characters", models.ErrInvalidURL, MaxURLLength)
	}

	if !strings.Contains(raw, "://") {
		if i := strings.IndexByte(raw, ':'); i > 0 && blockedSchemes[strings.ToLower(raw[:i])] {
			return "", fmt.Errorf("%w: unsafe scheme", models.ErrInvalidURL)
		}
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if blockedSchemes[scheme] {
		return "", fmt.Errorf("%w: unsafe scheme", models.ErrInvalidURL)
	}
	if !allowedSchemes[scheme] {
		return "", fmt.Errorf("%w: scheme %q not allowed", models.ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" || strings.ContainsAny(u.Host, " \t") {
		return "", fmt.Errorf("%w: missing host", models.ErrInvalidURL)
	}
	u.Scheme = scheme
	return u.String(), nil
}
