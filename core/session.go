package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultSessionLifetime is how long a grant stays valid after creation.
// Tunable policy, not an invariant.
const DefaultSessionLifetime = 24 * time.Hour

// NormalizeOrigin reduces a raw origin or URL to its canonical scheme+host
// form, e.g. "https://app.example". All session records are keyed by this.
func NormalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	return scheme + "://" + host, nil
}

// SessionGrant is one origin's connection grant. At most one grant exists
// per origin; an expired grant is logically absent.
type SessionGrant struct {
	ID          string          `json:"id"`
	Origin      string          `json:"origin"`
	Address     string          `json:"address"`
	ChainID     string          `json:"chainId"`
	Permissions map[string]bool `json:"permissions"`
	AutoConnect bool            `json:"autoConnect"`
	CreatedAt   int64           `json:"createdAt"` // ms epoch
	ExpiresAt   int64           `json:"expiresAt"` // ms epoch
}

// Expired reports whether the grant is past its expiry at the given time.
func (g SessionGrant) Expired(now time.Time) bool {
	return now.UnixMilli() >= g.ExpiresAt
}

// HasPermission reports whether the grant carries the capability tag.
func (g SessionGrant) HasPermission(scope string) bool {
	return g.Permissions[scope]
}
