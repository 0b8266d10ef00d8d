package js

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// DocumentCookies exposes a cookie jar through the document.cookie string
// interface for one document URL.
type DocumentCookies struct {
	jar http.CookieJar
	url *url.URL
	mu  sync.Mutex
}

// NewDocumentCookies creates the cookie view of rawURL over jar.
func NewDocumentCookies(jar http.CookieJar, rawURL string) (*DocumentCookies, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &DocumentCookies{jar: jar, url: u}, nil
}

// SetURL moves the view to another document URL.
func (c *DocumentCookies) SetURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = u
	return nil
}

// Cookie returns "name=value" pairs joined by "; ".
func (c *DocumentCookies) Cookie() string {
	c.mu.Lock()
	u := c.url
	c.mu.Unlock()

	var parts []string
	for _, ck := range c.jar.Cookies(u) {
		if ck.HttpOnly {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// SetCookie stores a single Set-Cookie style string. Malformed input is
// ignored, as browsers do.
func (c *DocumentCookies) SetCookie(raw string) {
	ck, err := http.ParseSetCookie(raw)
	if err != nil {
		return
	}
	// Scripts cannot create HttpOnly cookies.
	ck.HttpOnly = false
	if ck.Path == "" {
		ck.Path = "/"
	}

	c.mu.Lock()
	u := c.url
	c.mu.Unlock()
	c.jar.SetCookies(u, []*http.Cookie{ck})
}
