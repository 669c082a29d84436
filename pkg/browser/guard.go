package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// DomainGuard restricts navigation to hosts matching glob patterns such as
// "*.wikipedia.org". Denied patterns take precedence. A guard with no
// allowed patterns allows every host not explicitly denied.
type DomainGuard struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewDomainGuard compiles the allow and deny patterns.
func NewDomainGuard(allowed, denied []string) (*DomainGuard, error) {
	g := &DomainGuard{}

	for _, pattern := range allowed {
		compiled, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed domain pattern '%s': %w", pattern, err)
		}
		g.allowed = append(g.allowed, compiled)
	}

	for _, pattern := range denied {
		compiled, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid denied domain pattern '%s': %w", pattern, err)
		}
		g.denied = append(g.denied, compiled)
	}

	return g, nil
}

// Check returns ErrDomainNotAllowed when rawURL's host is not permitted.
// Non-network schemes such as about: and data: are always allowed.
func (g *DomainGuard) Check(rawURL string) error {
	if g == nil {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url '%s': %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	for _, pattern := range g.denied {
		if pattern.Match(host) {
			return fmt.Errorf("%w: %s", ErrDomainNotAllowed, host)
		}
	}
	if len(g.allowed) == 0 {
		return nil
	}
	for _, pattern := range g.allowed {
		if pattern.Match(host) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrDomainNotAllowed, host)
}

// normalizeURL adds https:// to scheme-less targets like "example.com".
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") || strings.HasPrefix(raw, "about:") || strings.HasPrefix(raw, "data:") {
		return raw
	}
	return "https://" + raw
}
