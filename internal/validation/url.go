package validation

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

const defaultMaxURLLength = 2048

var (
	ErrEmptyURL       = errors.New("URL cannot be empty")
	ErrURLTooLong     = errors.New("URL too long")
	ErrInvalidScheme  = errors.New("URL must use http or https protocol")
	ErrMissingHost    = errors.New("URL must have a valid hostname")
	ErrForbiddenHost  = errors.New("host is not permitted")
	ErrInvalidURLChar = errors.New("URL contains invalid characters")
)

// SiteURLValidator checks the configured base and listing URLs.
type SiteURLValidator struct {
	// AllowPrivate permits localhost, loopback and private addresses, which
	// only make sense for a local mirror of the site.
	AllowPrivate bool
	MaxLength    int
}

func NewSiteURLValidator() *SiteURLValidator {
	return &SiteURLValidator{MaxLength: defaultMaxURLLength}
}

func NewPermissiveSiteURLValidator() *SiteURLValidator {
	return &SiteURLValidator{AllowPrivate: true, MaxLength: defaultMaxURLLength}
}

// Validate returns input parsed when it is an absolute http(s) URL with a
// permitted host. A missing scheme is an error, not something to guess.
func (v *SiteURLValidator) Validate(input string) (*url.URL, error) {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return nil, ErrEmptyURL
	case len(input) > v.MaxLength:
		return nil, fmt.Errorf("%w (max %d characters)", ErrURLTooLong, v.MaxLength)
	case strings.ContainsAny(input, "<>\"'`"):
		return nil, ErrInvalidURLChar
	}

	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidScheme
	}
	if u.Hostname() == "" {
		return nil, ErrMissingHost
	}
	if !v.AllowPrivate && isPrivateHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrForbiddenHost, u.Hostname())
	}
	return u, nil
}

func isPrivateHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
