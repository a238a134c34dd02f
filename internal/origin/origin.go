// Package origin normalizes browser Origin headers and decides which of them
// may open a signaling WebSocket.
package origin

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var ErrInvalidOrigin = errors.New("origin: invalid origin")

// Normalize validates a browser Origin header and returns it as
// scheme://host[:port], lower-cased and with default ports removed. The
// opaque origin "null" is returned as-is.
func Normalize(header string) (string, bool) {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return "", false
	}
	if trimmed == "null" {
		return "null", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return "", false
	}
	// url.Parse accepts unbracketed IPv6 literals in some positions.
	if strings.Contains(hostname, ":") && !strings.HasPrefix(u.Host, "[") {
		return "", false
	}

	port := u.Port()
	if strings.HasSuffix(u.Host, ":") {
		return "", false
	}
	if port != "" {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		port = strconv.FormatUint(n, 10)
		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			port = ""
		}
	}

	host := hostname
	if port != "" {
		host = net.JoinHostPort(hostname, port)
	} else if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	return scheme + "://" + host, true
}

// Policy is an origin allowlist. A nil or empty Policy admits every origin.
type Policy struct {
	any     bool
	allowed map[string]struct{}
}

// NewPolicy builds a Policy from allowlist entries. Each entry is "*" or an
// origin accepted by Normalize.
func NewPolicy(entries []string) (*Policy, error) {
	p := &Policy{allowed: make(map[string]struct{}, len(entries))}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if entry == "*" {
			p.any = true
			continue
		}
		norm, ok := Normalize(entry)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOrigin, raw)
		}
		p.allowed[norm] = struct{}{}
	}
	return p, nil
}

// Restricted reports whether the policy rejects any origin at all.
func (p *Policy) Restricted() bool {
	return p != nil && !p.any && len(p.allowed) > 0
}

// Allow reports whether r may proceed. Requests without an Origin header come
// from non-browser clients and are always admitted.
func (p *Policy) Allow(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" || !p.Restricted() {
		return true
	}
	norm, ok := Normalize(header)
	if !ok {
		return false
	}
	_, ok = p.allowed[norm]
	return ok
}
