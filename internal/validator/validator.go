package validator

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/darkodi/shortlinks/internal/errors"
)

const (
	defaultMaxURLLength = 2048
	maxPathCodeLength   = 64
	minCustomCodeLength = 3
	maxCustomCodeLength = 32
)

var codePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// URLValidator rejects request input that is obviously unusable before it
// reaches the service. Scheme and host rules belong to the registry.
type URLValidator struct {
	maxLength       int
	blockedHosts    map[string]struct{}
	blockPrivateIPs bool
}

// NewURLValidator creates a validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		maxLength:    defaultMaxURLLength,
		blockedHosts: make(map[string]struct{}),
	}
}

// WithMaxLength sets maximum URL length
func (v *URLValidator) WithMaxLength(length int) *URLValidator {
	v.maxLength = length
	return v
}

// WithBlockedDomains refuses links to the given domains and their subdomains
func (v *URLValidator) WithBlockedDomains(domains ...string) *URLValidator {
	for _, d := range domains {
		v.blockedHosts[strings.ToLower(strings.TrimSuffix(d, "."))] = struct{}{}
	}
	return v
}

// WithBlockPrivateIPs refuses links to loopback and private addresses
func (v *URLValidator) WithBlockPrivateIPs() *URLValidator {
	v.blockPrivateIPs = true
	return v
}

// ValidateURL checks the originalUrl field of a create request
func (v *URLValidator) ValidateURL(rawURL string) *errors.AppError {
	if strings.TrimSpace(rawURL) == "" {
		return errors.MissingField("originalUrl")
	}
	if len(rawURL) > v.maxLength {
		return errors.InvalidURL("URL exceeds maximum length")
	}

	if len(v.blockedHosts) == 0 && !v.blockPrivateIPs {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil // reported by the registry
	}
	host := strings.ToLower(u.Hostname())

	if v.blocked(host) {
		return errors.InvalidURL("This domain is not allowed")
	}
	if v.blockPrivateIPs && isPrivateHost(host) {
		return errors.InvalidURL("URLs pointing to private addresses are not allowed")
	}
	return nil
}

// ValidateShortCode checks a short code taken from a request path
func (v *URLValidator) ValidateShortCode(code string) *errors.AppError {
	if code == "" {
		return errors.MissingField("shortcode")
	}
	if len(code) > maxPathCodeLength || !codePattern.MatchString(code) {
		return errors.BadRequest("Short code can only contain letters, numbers, hyphens, and underscores")
	}
	return nil
}

// ValidateCustomCode checks a caller-chosen short code. Empty means none was given.
func (v *URLValidator) ValidateCustomCode(code string) *errors.AppError {
	if code == "" {
		return nil
	}
	if len(code) < minCustomCodeLength || len(code) > maxCustomCodeLength {
		return errors.BadRequest("Custom code must be between 3 and 32 characters")
	}
	return v.ValidateShortCode(code)
}

func (v *URLValidator) blocked(host string) bool {
	for h := host; h != ""; {
		if _, ok := v.blockedHosts[h]; ok {
			return true
		}
		dot := strings.IndexByte(h, '.')
		if dot < 0 {
			break
		}
		h = h[dot+1:]
	}
	return false
}

func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}
