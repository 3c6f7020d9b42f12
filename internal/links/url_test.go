package links

import (
	"errors"
	"testing"

	"github.com/scmmishra/linkpulse/internal/models"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com/path?q=1 ", "https://example.com/path?q=1"},
		{"http://example.com", "http://example.com"},
		{"HTTPS://Example.com/A", "https://Example.com/A"},
		{"localhost:8080/x", "https://localhost:8080/x"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if err != nil {
			t.Errorf("NormalizeURL(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeURL_Rejects(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"javascript:alert(1)",
		"JavaScript:alert(1)",
		"data:text/html;base64,PHNjcmlwdD4=",
		"ftp://example.com/file",
		"file:///etc/passwd",
		"https://",
		"http://exa mple.com",
	}
	for _, in := range tests {
		_, err := NormalizeURL(in)
		if !errors.Is(err, models.ErrInvalidURL) {
			t.Errorf("NormalizeURL(%q) err = %v, want ErrInvalidURL", in, err)
		}
	}
}

func TestNormalizeURL_TooLong(t *testing.T) {
	long := "https://example.com/"
	for len(long) <= MaxURLLength {
		long += "aaaaaaaaaa"
	}
	if _, err := NormalizeURL(long); !errors.Is(err, models.ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}
}
