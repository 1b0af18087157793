package portal

import (
	"net/http"
	"strings"
	"time"
)

// Cookie is one named HTTP cookie captured from a Set-Cookie response.
// Expires is epoch seconds; nil means a session cookie without explicit expiry.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  *int64  `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite *string `json:"sameSite"`
}

// ValidAt reports whether the cookie is still usable at the given time.
// Cookies without an explicit expiry are kept.
func (c Cookie) ValidAt(now time.Time) bool {
	if c.Expires == nil {
		return true
	}
	return *c.Expires > now.Unix()
}

// Jar is an ordered set of cookies representing one portal session.
type Jar []Cookie

// HeaderValue serializes the jar into a Cookie request header value.
// The slice order is preserved, so repeated calls yield the same string.
func (j Jar) HeaderValue() string {
	pairs := make([]string, 0, len(j))
	for _, c := range j {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

// FilterValid drops expired cookies. An empty result means the whole jar must
// be treated as absent, never as a valid empty session.
func (j Jar) FilterValid(now time.Time) Jar {
	valid := make(Jar, 0, len(j))
	for _, c := range j {
		if c.ValidAt(now) {
			valid = append(valid, c)
		}
	}
	return valid
}

// merge appends cookies from other that are not already present by name,
// keeping the first occurrence.
func (j Jar) merge(other Jar) Jar {
	seen := make(map[string]struct{}, len(j))
	for _, c := range j {
		seen[c.Name] = struct{}{}
	}
	out := j
	for _, c := range other {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

// fromHTTPCookies converts net/http cookies into jar entries, defaulting the
// domain and path the way the upstream browser session would.
func fromHTTPCookies(cookies []*http.Cookie, defaultDomain string) Jar {
	jar := make(Jar, 0, len(cookies))
	for _, hc := range cookies {
		if hc.Name == "" {
			continue
		}
		c := Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Domain:   hc.Domain,
			Path:     hc.Path,
			HTTPOnly: hc.HttpOnly,
			Secure:   hc.Secure,
		}
		if c.Domain == "" {
			c.Domain = defaultDomain
		}
		if c.Path == "" {
			c.Path = "/"
		}
		if !hc.Expires.IsZero() {
			exp := hc.Expires.Unix()
			c.Expires = &exp
		}
		jar = append(jar, c)
	}
	return jar
}
