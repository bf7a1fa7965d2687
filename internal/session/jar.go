package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/tablebook-go/internal/storage"
	"github.com/eshaffer321/tablebook-go/internal/types"
)

// CookieJar is an http.CookieJar that mirrors every cookie it accepts into
// session storage under types.CookiesKey, so the refresh cookie set at login
// is still there when a later process loads the session.
type CookieJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	saved   map[string]savedCookie
	backend storage.Store
	logger  types.Logger
}

// savedCookie is a cookie together with the URL that set it
type savedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

// key identifies the cookie the way the jar does: host, domain, path and name
func (c savedCookie) key() string {
	host := c.URL
	path := c.Path
	if u, err := url.Parse(c.URL); err == nil {
		host = u.Hostname()
		if path == "" || path[0] != '/' {
			path = defaultPath(u.Path)
		}
	}
	return host + "|" + c.Domain + "|" + path + "|" + c.Name
}

// defaultPath is the cookie path implied by the request path (RFC 6265 5.1.4)
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func (c savedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

func (c savedCookie) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

// NewCookieJar creates an empty jar persisting into backend
func NewCookieJar(backend storage.Store, logger types.Logger) *CookieJar {
	return &CookieJar{
		jar:     newMemoryJar(),
		saved:   make(map[string]savedCookie),
		backend: backend,
		logger:  logger,
	}
}

func newMemoryJar() *cookiejar.Jar {
	// cookiejar.New only fails on a bad PublicSuffixList
	jar, _ := cookiejar.New(nil)
	return jar
}

// SetCookies implements http.CookieJar
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	origin := url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	now := time.Now()
	for _, c := range cookies {
		sc := savedCookie{
			URL:      origin.String(),
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		switch {
		case c.MaxAge < 0:
			delete(j.saved, sc.key())
			continue
		case c.MaxAge > 0:
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if sc.expired(now) {
			delete(j.saved, sc.key())
			continue
		}
		j.saved[sc.key()] = sc
	}

	j.persist(context.Background())
}

// Cookies implements http.CookieJar
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Load replaces the jar's contents with the cookies in storage, dropping expired ones
func (j *CookieJar) Load(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar = newMemoryJar()
	j.saved = make(map[string]savedCookie)

	raw, ok, err := j.backend.Get(ctx, types.CookiesKey)
	if err != nil {
		j.warn("Failed to read session cookies", err)
		return
	}
	if !ok || raw == "" {
		return
	}

	var cookies []savedCookie
	if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
		j.warn("Failed to decode session cookies", err)
		return
	}

	now := time.Now()
	for _, sc := range cookies {
		u, err := url.Parse(sc.URL)
		if err != nil || sc.expired(now) {
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{sc.cookie()})
		j.saved[sc.key()] = sc
	}
}

// Reset forgets every cookie in memory and in storage
func (j *CookieJar) Reset(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar = newMemoryJar()
	j.saved = make(map[string]savedCookie)
	j.persist(ctx)
}

// persist must be called with mu held
func (j *CookieJar) persist(ctx context.Context) {
	if len(j.saved) == 0 {
		if err := j.backend.Remove(ctx, types.CookiesKey); err != nil {
			j.warn("Failed to remove session cookies", err)
		}
		return
	}

	cookies := make([]savedCookie, 0, len(j.saved))
	for _, sc := range j.saved {
		cookies = append(cookies, sc)
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		j.warn("Failed to encode session cookies", err)
		return
	}
	if err := j.backend.Set(ctx, types.CookiesKey, string(data)); err != nil {
		j.warn("Failed to persist session cookies", err)
	}
}

func (j *CookieJar) warn(msg string, err error) {
	if j.logger != nil {
		j.logger.Warn(msg, "error", err)
	}
}
