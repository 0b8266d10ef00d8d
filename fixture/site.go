package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Site is an http.Handler serving the pages of a manifest.
type Site struct {
	manifest *Manifest
	router   *chi.Mux
	logger   *zap.Logger
}

// SiteOption configures a Site.
type SiteOption func(*Site)

// WithSiteLogger sets the logger used for request logs.
func WithSiteLogger(logger *zap.Logger) SiteOption {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// pageData is what page bodies are executed with.
type pageData struct {
	Title string
	Path  string
	Form  map[string]string
	Query map[string]string
}

// NewSite compiles every page body of m and mounts it on a chi router.
func NewSite(m *Manifest, opts ...SiteOption) (*Site, error) {
	s := &Site{manifest: m, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("fixture")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	for _, p := range m.Pages {
		h, err := s.pageHandler(p)
		if err != nil {
			return nil, err
		}
		r.Method(p.Method, p.Path, h)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "<html><body><h1>Not found</h1><p>%s</p></body></html>", template.HTMLEscapeString(r.URL.Path))
	})
	s.router = r
	return s, nil
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Manifest returns the manifest the site serves.
func (s *Site) Manifest() *Manifest {
	return s.manifest
}

func (s *Site) pageHandler(p Page) (http.Handler, error) {
	if p.Redirect != "" {
		status := p.Status
		if status < 300 || status > 399 {
			status = http.StatusFound
		}
		return http.RedirectHandler(p.Redirect, status), nil
	}

	tmpl, err := template.New(p.Method + " " + p.Path).Option("missingkey=zero").Parse(p.Body)
	if err != nil {
		return nil, fmt.Errorf("page %s %s: %w", p.Method, p.Path, err)
	}
	status := p.Status
	if status == 0 {
		status = http.StatusOK
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := pageData{
			Title: s.manifest.Title,
			Path:  r.URL.Path,
			Form:  firstValues(r.PostForm),
			Query: firstValues(r.URL.Query()),
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			s.logger.Error("page render failed", zap.String("path", p.Path), zap.Error(err))
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		for k, v := range p.Headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(buf.Bytes())
	}), nil
}

func firstValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func (s *Site) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.RequestURI()),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// ready, when not nil, receives the bound address once listening.
func (s *Site) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("serving", zap.String("addr", ln.Addr().String()), zap.Int("pages", len(s.manifest.Pages)))
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errc
	s.logger.Info("stopped")
	return nil
}
