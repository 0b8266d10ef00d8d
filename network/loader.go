package network

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ResourceType represents the type of a resource.
type ResourceType int

const (
	ResourceTypeUnknown ResourceType = iota
	ResourceTypeDocument
	ResourceTypeScript
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeDocument:
		return "document"
	case ResourceTypeScript:
		return "script"
	default:
		return "unknown"
	}
}

// Resource represents a loaded resource.
type Resource struct {
	URL         string
	Type        ResourceType
	Content     []byte
	ContentType string
	Charset     string
	StatusCode  int
	Error       error
	Cached      bool
}

// IsSuccess returns true if the resource was loaded successfully.
func (r *Resource) IsSuccess() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 400
}

// AsString returns the resource content as a string.
func (r *Resource) AsString() string {
	return string(r.Content)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLocalPath sets a directory that file:// URLs are resolved against.
func WithLocalPath(path string) LoaderOption {
	return func(l *Loader) {
		l.localPath = path
	}
}

// WithCache enables caching with the specified cache.
func WithCache(cache *Cache) LoaderOption {
	return func(l *Loader) {
		l.cache = cache
	}
}

// WithLoaderLogger sets the logger used for load failures.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader loads documents and external scripts from HTTP, data: URLs or the
// local filesystem.
type Loader struct {
	client    *Client
	cache     *Cache
	localPath string
	baseURL   string
	logger    *zap.Logger

	mu sync.RWMutex
}

// NewLoader creates a new resource loader.
func NewLoader(client *Client, opts ...LoaderOption) *Loader {
	l := &Loader{
		client: client,
		cache:  NewCache(256),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// SetBaseURL sets the base URL for resolving relative URLs.
func (l *Loader) SetBaseURL(baseURL string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseURL = baseURL
}

// BaseURL returns the current base URL.
func (l *Loader) BaseURL() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.baseURL
}

// Load loads a resource from the given URL.
func (l *Loader) Load(ctx context.Context, urlStr string, resourceType ResourceType) *Resource {
	if IsDataURL(urlStr) {
		return l.loadDataURL(urlStr, resourceType)
	}

	l.mu.RLock()
	baseURL := l.baseURL
	l.mu.RUnlock()

	if baseURL != "" && !IsAbsoluteURL(urlStr) {
		resolved, err := ResolveURL(baseURL, urlStr)
		if err != nil {
			return &Resource{
				URL:   urlStr,
				Type:  resourceType,
				Error: fmt.Errorf("failed to resolve URL: %w", err),
			}
		}
		urlStr = resolved
	}

	if strings.HasPrefix(urlStr, "file://") {
		return l.loadFromLocal(urlStr, resourceType)
	}

	if entry, ok := l.cache.Get(urlStr); ok {
		resp := entry.Response
		mediaType, charset := ParseContentType(resp.ContentType)
		return &Resource{
			URL:         urlStr,
			Type:        resourceType,
			Content:     resp.Body,
			ContentType: mediaType,
			Charset:     charset,
			StatusCode:  resp.StatusCode,
			Cached:      true,
		}
	}

	return l.loadFromHTTP(ctx, urlStr, resourceType)
}

func (l *Loader) loadDataURL(urlStr string, resourceType ResourceType) *Resource {
	dataURL, err := ParseDataURL(urlStr)
	if err != nil {
		return &Resource{
			URL:   urlStr,
			Type:  resourceType,
			Error: err,
		}
	}

	return &Resource{
		URL:         urlStr,
		Type:        resourceType,
		Content:     dataURL.Data,
		ContentType: dataURL.MediaType,
		Charset:     dataURL.Charset,
		StatusCode:  200,
	}
}

func (l *Loader) loadFromLocal(urlStr string, resourceType ResourceType) *Resource {
	u, err := url.Parse(urlStr)
	if err != nil {
		return &Resource{URL: urlStr, Type: resourceType, Error: err}
	}

	path := filepath.FromSlash(u.Path)
	if l.localPath != "" {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(l.localPath, path)
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		l.logger.Debug("local load failed", zap.String("path", path), zap.Error(err))
		return &Resource{
			URL:   urlStr,
			Type:  resourceType,
			Error: err,
		}
	}

	return &Resource{
		URL:         urlStr,
		Type:        resourceType,
		Content:     content,
		ContentType: GuessContentType(urlStr),
		StatusCode:  200,
	}
}

func (l *Loader) loadFromHTTP(ctx context.Context, urlStr string, resourceType ResourceType) *Resource {
	if l.client == nil {
		return &Resource{URL: urlStr, Type: resourceType, Error: fmt.Errorf("no HTTP client configured")}
	}

	resp, err := l.client.Get(ctx, urlStr)
	if err != nil {
		l.logger.Debug("load failed",
			zap.Stringer("type", resourceType),
			zap.String("url", urlStr),
			zap.Error(err))
		return &Resource{
			URL:   urlStr,
			Type:  resourceType,
			Error: err,
		}
	}

	mediaType, charset := ParseContentType(resp.ContentType)
	resource := &Resource{
		URL:         urlStr,
		Type:        resourceType,
		Content:     resp.Body,
		ContentType: mediaType,
		Charset:     charset,
		StatusCode:  resp.StatusCode,
	}

	if resourceType == ResourceTypeScript && resp.StatusCode >= 200 && resp.StatusCode < 400 {
		l.cache.Set(urlStr, resp)
	}

	return resource
}

// LoadDocument loads an HTML document. Documents are never cached.
func (l *Loader) LoadDocument(ctx context.Context, urlStr string) *Resource {
	return l.Load(ctx, urlStr, ResourceTypeDocument)
}

// LoadScript loads a JavaScript file.
func (l *Loader) LoadScript(ctx context.Context, urlStr string) *Resource {
	return l.Load(ctx, urlStr, ResourceTypeScript)
}

// ClearCache clears the loader's cache.
func (l *Loader) ClearCache() {
	l.cache.Clear()
}
