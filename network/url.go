package network

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL resolves a reference URL against a base URL.
// If ref is already absolute, it is returned as-is.
// If ref is relative, it is resolved against base.
func ResolveURL(base, ref string) (string, error) {
	if ref == "" {
		return base, nil
	}

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") {
		return ref, nil
	}

	if strings.HasPrefix(ref, "#") {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid base URL: %w", err)
		}
		baseURL.Fragment = ref[1:]
		return baseURL.String(), nil
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference URL: %w", err)
	}

	if refURL.IsAbs() {
		return refURL.String(), nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	return baseURL.ResolveReference(refURL).String(), nil
}

// NormalizeURL normalizes a URL for comparison and caching.
func NormalizeURL(urlStr string) (string, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = u.Host[:len(u.Host)-3]
	} else if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = u.Host[:len(u.Host)-4]
	}
	u.Fragment = ""

	return u.String(), nil
}

// IsAbsoluteURL returns true if the URL is absolute (has a scheme).
func IsAbsoluteURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return u.IsAbs()
}

// IsDataURL returns true if the URL is a data URL.
func IsDataURL(urlStr string) bool {
	return strings.HasPrefix(strings.ToLower(urlStr), "data:")
}

// DataURL represents a parsed data URL.
type DataURL struct {
	MediaType string
	Charset   string
	Base64    bool
	Data      []byte
}

// ParseDataURL parses a data URL and returns its components.
// Format: data:[<mediatype>][;base64],<data>
func ParseDataURL(urlStr string) (*DataURL, error) {
	if !IsDataURL(urlStr) {
		return nil, fmt.Errorf("not a data URL")
	}

	content := urlStr[5:]
	commaIdx := strings.Index(content, ",")
	if commaIdx == -1 {
		return nil, fmt.Errorf("invalid data URL: missing comma")
	}

	metadata := content[:commaIdx]
	data := content[commaIdx+1:]

	result := &DataURL{
		MediaType: "text/plain",
		Charset:   "US-ASCII",
	}

	if metadata != "" {
		for i, part := range strings.Split(metadata, ";") {
			switch {
			case i == 0 && !strings.Contains(part, "=") && part != "base64":
				if part != "" {
					result.MediaType = part
				}
			case part == "base64":
				result.Base64 = true
			case strings.HasPrefix(strings.ToLower(part), "charset="):
				result.Charset = part[8:]
			}
		}
	}

	if result.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 data: %w", err)
		}
		result.Data = decoded
	} else {
		decoded, err := url.PathUnescape(data)
		if err != nil {
			return nil, fmt.Errorf("failed to URL-decode data: %w", err)
		}
		result.Data = []byte(decoded)
	}

	return result, nil
}

// GetOrigin returns the origin of a URL (scheme + host + port).
func GetOrigin(urlStr string) (string, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	if !u.IsAbs() {
		return "", fmt.Errorf("URL is not absolute")
	}

	return u.Scheme + "://" + u.Host, nil
}

// IsSameOrigin checks if two URLs have the same origin.
func IsSameOrigin(url1, url2 string) bool {
	norm1, err1 := NormalizeURL(url1)
	norm2, err2 := NormalizeURL(url2)
	if err1 != nil || err2 != nil {
		return false
	}

	origin1, err1 := GetOrigin(norm1)
	origin2, err2 := GetOrigin(norm2)
	if err1 != nil || err2 != nil {
		return false
	}

	return strings.EqualFold(origin1, origin2)
}

// BasePath returns scheme://host/path of u, dropping query and fragment.
func BasePath(u *url.URL) string {
	b := *u
	b.RawQuery = ""
	b.ForceQuery = false
	b.Fragment = ""
	b.RawFragment = ""
	b.User = nil
	return b.String()
}

// SameBasePath reports whether two URLs share scheme, host and path.
func SameBasePath(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return BasePath(ua) == BasePath(ub)
}

// SamePath reports whether two URLs have the same path, ignoring query and
// fragment.
func SamePath(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.EscapedPath() == ub.EscapedPath()
}

// QueryParam is a single name/value pair of a query string.
type QueryParam struct {
	Name  string
	Value string
}

// Query is an ordered query string. Unlike url.Values it preserves the
// position of every parameter, so rewriting one value leaves the rest of the
// URL untouched.
type Query []QueryParam

// ParseQuery parses a raw query string (with or without the leading "?").
// Undecodable pairs are kept verbatim.
func ParseQuery(raw string) Query {
	raw = strings.TrimPrefix(raw, "?")
	var q Query
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		if n, err := url.QueryUnescape(name); err == nil {
			name = n
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		q = append(q, QueryParam{Name: name, Value: value})
	}
	return q
}

// Get returns the first value for name.
func (q Query) Get(name string) (string, bool) {
	for _, p := range q {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether name is present.
func (q Query) Has(name string) bool {
	_, ok := q.Get(name)
	return ok
}

// Set replaces the first value of name in place and drops any later
// duplicates, or appends name when absent.
func (q Query) Set(name, value string) Query {
	out := q[:0:0]
	found := false
	for _, p := range q {
		if p.Name != name {
			out = append(out, p)
			continue
		}
		if !found {
			out = append(out, QueryParam{Name: name, Value: value})
			found = true
		}
	}
	if !found {
		out = append(out, QueryParam{Name: name, Value: value})
	}
	return out
}

// Delete removes every value of name.
func (q Query) Delete(name string) Query {
	out := q[:0:0]
	for _, p := range q {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return out
}

// Encode serializes the query in form-urlencoded form, without a leading "?".
func (q Query) Encode() string {
	var sb strings.Builder
	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return sb.String()
}

// Values converts the query to url.Values, losing order.
func (q Query) Values() url.Values {
	v := make(url.Values, len(q))
	for _, p := range q {
		v.Add(p.Name, p.Value)
	}
	return v
}

// WithQuery returns u with its query replaced by q. An empty query removes
// the "?" entirely.
func WithQuery(u *url.URL, q Query) *url.URL {
	out := *u
	out.RawQuery = q.Encode()
	out.ForceQuery = false
	return &out
}

// GuessContentType attempts to guess the content type from a URL path.
func GuessContentType(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "application/octet-stream"
	}
	path := u.Path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	dot := strings.LastIndex(path, ".")
	if dot == -1 || dot == len(path)-1 {
		return "application/octet-stream"
	}
	switch strings.ToLower(path[dot+1:]) {
	case "html", "htm":
		return "text/html"
	case "js", "mjs":
		return "text/javascript"
	case "json":
		return "application/json"
	case "css":
		return "text/css"
	default:
		return "application/octet-stream"
	}
}
