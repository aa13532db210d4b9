package httpclient

import (
	"strconv"
	"strings"
	"time"
)

// Cookie is one stored cookie, RFC 6265 attribute subset.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time // zero means session cookie
	Secure   bool
	HTTPOnly bool
}

func (c Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && now.After(c.Expires)
}

// CookieJar maps (domain, path, name) -> cookie, per spec's data model.
// It is loop-local: no locking, since only the owning EventLoop
// goroutine ever touches an HttpClient's jar (spec section 5, "Shared
// resources").
type CookieJar struct {
	// keyed by domain, then by "path\x00name"
	byDomain map[string]map[string]Cookie
}

// NewCookieJar returns an empty jar.
func NewCookieJar() *CookieJar {
	return &CookieJar{byDomain: make(map[string]map[string]Cookie)}
}

func jarKey(path, name string) string {
	return path + "\x00" + name
}

// Store records a cookie, parsed from a Set-Cookie header value.
func (j *CookieJar) Store(host string, header string) {
	c, ok := parseSetCookie(header)
	if !ok {
		return
	}
	if c.Domain == "" {
		c.Domain = host
	}
	if c.Path == "" {
		c.Path = "/"
	}
	domain := strings.ToLower(c.Domain)
	m, exists := j.byDomain[domain]
	if !exists {
		m = make(map[string]Cookie)
		j.byDomain[domain] = m
	}
	m[jarKey(c.Path, c.Name)] = c
}

// CookiesFor returns every non-expired cookie applicable to host+path,
// suitable for rendering into a Cookie: request header. The order follows
// map iteration and can differ between calls.
func (j *CookieJar) CookiesFor(host, path string, now time.Time) []Cookie {
	var out []Cookie
	host = strings.ToLower(host)
	for domain, m := range j.byDomain {
		if !domainMatches(host, domain) {
			continue
		}
		for _, c := range m {
			if c.expired(now) {
				continue
			}
			if !pathMatches(path, c.Path) {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

func domainMatches(host, cookieDomain string) bool {
	if host == cookieDomain {
		return true
	}
	return strings.HasSuffix(host, "."+cookieDomain)
}

func pathMatches(requestPath, cookiePath string) bool {
	if requestPath == cookiePath {
		return true
	}
	if strings.HasPrefix(requestPath, cookiePath) {
		if strings.HasSuffix(cookiePath, "/") {
			return true
		}
		return len(requestPath) > len(cookiePath) && requestPath[len(cookiePath)] == '/'
	}
	return false
}

// parseSetCookie parses one Set-Cookie header value, tolerant of
// attributes appearing in any order, per spec 6.
func parseSetCookie(header string) (Cookie, bool) {
	parts := strings.Split(header, ";")
	if len(parts) == 0 {
		return Cookie{}, false
	}
	nameValue := strings.SplitN(strings.TrimSpace(parts[0]), "=", 2)
	if len(nameValue) != 2 {
		return Cookie{}, false
	}
	c := Cookie{Name: strings.TrimSpace(nameValue[0]), Value: strings.TrimSpace(nameValue[1])}

	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		kv := strings.SplitN(attr, "=", 2)
		key := strings.ToLower(kv[0])
		var value string
		if len(kv) == 2 {
			value = kv[1]
		}
		switch key {
		case "domain":
			c.Domain = strings.TrimPrefix(value, ".")
		case "path":
			c.Path = value
		case "secure":
			c.Secure = true
		case "httponly":
			c.HTTPOnly = true
		case "expires":
			if t, err := time.Parse(time.RFC1123, value); err == nil {
				c.Expires = t
			}
		case "max-age":
			// seconds-from-now; non-numeric values are ignored.
			if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				c.Expires = time.Now().Add(time.Duration(secs) * time.Second)
			}
		}
	}
	return c, true
}
