package zsx

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/roryl/zsx/dom"
)

// CookieJar is the document.cookie view of the page. *js.DocumentCookies
// satisfies it.
type CookieJar interface {
	Cookie() string
	SetCookie(raw string)
}

// SetCookieValue writes prefix+name=value to w. An empty value deletes the
// cookie.
func SetCookieValue(w CookieJar, name, value, prefix string) {
	if value == "" {
		w.SetCookie(prefix + name + "=; Max-Age=0")
		return
	}
	w.SetCookie(prefix + name + "=" + value)
}

// GetCookieValue reads the cookie prefix+name from r.
func GetCookieValue(r CookieJar, name, prefix string) (string, bool) {
	return ParseCookieValue(r.Cookie(), prefix+name)
}

// ParseCookieValue finds name in a Cookie header such as
// "a=1; b=2".
func ParseCookieValue(header, name string) (string, bool) {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return "", false
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

type cookieSetting struct {
	name  string
	value string
}

// parseCookieSet reads a zx-cookie-set object, keeping its key order. null
// values read as "".
func parseCookieSet(raw string) ([]cookieSetting, error) {
	iter := jsoniter.ParseString(json, raw)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, fmt.Errorf("%s must be a JSON object", AttrCookieSet)
	}
	var out []cookieSetting
	iter.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
		switch it.WhatIsNext() {
		case jsoniter.NilValue:
			it.Skip()
			out = append(out, cookieSetting{name: name})
		case jsoniter.StringValue:
			out = append(out, cookieSetting{name: name, value: it.ReadString()})
		default:
			out = append(out, cookieSetting{name: name, value: it.ReadAny().ToString()})
		}
		return it.Error == nil
	})
	if iter.Error != nil {
		return nil, iter.Error
	}
	return out, nil
}

// ApplyCookieSet writes the cookies named by el's zx-cookie-set attribute.
func (e *Engine) ApplyCookieSet(el *dom.Element) error {
	raw, ok := el.Attr(AttrCookieSet)
	if !ok {
		return nil
	}
	settings, err := parseCookieSet(raw)
	if err != nil {
		return configError("cookie-set", "", err)
	}
	for _, s := range settings {
		SetCookieValue(e.cookies, s.name, s.value, e.cookiePrefix)
	}
	e.logger.Debug("cookies set", zap.Int("count", len(settings)))
	return nil
}

func (e *Engine) decorateCookieSet(el *dom.Element) {
	el.AddEventListener("click", dom.Listener{Key: keyCookieClick, Handle: func(*dom.Event) {
		if err := e.ApplyCookieSet(el); err != nil {
			e.logger.Warn("ignoring zx-cookie-set", zap.Error(err))
		}
	}})
}
