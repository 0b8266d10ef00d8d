// Package zsx turns links and forms carrying a zx-swap directive into partial
// page updates. A navigation fetches the target page and replaces only the
// elements named by the directive, keeping zx-keep elements, guarding the
// viewport against jumps, re-running scripts and recording history so that
// back and forward restore earlier fragments.
package zsx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roryl/zsx/config"
	"github.com/roryl/zsx/css"
	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/js"
	"github.com/roryl/zsx/network"
	"github.com/roryl/zsx/storage"
)

// ScriptRunner executes a script element. *js.ScriptExecutor satisfies it.
type ScriptRunner interface {
	RunScript(ctx context.Context, script *dom.Element) error
}

// DialogGate asks the user to confirm a zx-dialog-confirm message before a
// navigation starts.
type DialogGate interface {
	Confirm(ctx context.Context, el *dom.Element, message string) bool
}

// LoadingIndicator is told when a navigation's request starts and ends.
type LoadingIndicator interface {
	Start(trig Trigger)
	Stop(trig Trigger)
}

type acceptAll struct{}

func (acceptAll) Confirm(context.Context, *dom.Element, string) bool { return true }

type noLoader struct{}

func (noLoader) Start(Trigger) {}
func (noLoader) Stop(Trigger)  {}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithFetcher(f Fetcher) Option           { return func(e *Engine) { e.fetcher = f } }
func WithHistory(h History) Option           { return func(e *Engine) { e.history = h } }
func WithStorage(s Storage) Option           { return func(e *Engine) { e.storage = s } }
func WithCookies(c CookieJar) Option         { return func(e *Engine) { e.cookies = c } }
func WithScriptRunner(r ScriptRunner) Option { return func(e *Engine) { e.scripts = r } }
func WithViewport(v Viewport) Option         { return func(e *Engine) { e.viewport = v } }
func WithDialogGate(g DialogGate) Option     { return func(e *Engine) { e.dialog = g } }
func WithLoader(l LoadingIndicator) Option   { return func(e *Engine) { e.loader = l } }
func WithCompiler(c *css.Compiler) Option    { return func(e *Engine) { e.compiler = c } }

// WithCookiePrefix sets the prefix of cookies written by zx-cookie-set.
func WithCookiePrefix(prefix string) Option {
	return func(e *Engine) { e.cookiePrefix = prefix }
}

// WithNavigationTimeout bounds each navigation, request and swap included.
func WithNavigationTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithErrorHandler receives the errors of navigations started by clicks,
// submits and popstate, which have no caller to return them to.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// WithStateObserver is called on every navigation state change.
func WithStateObserver(fn func(Transition)) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithConfig applies the engine and viewport sections of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cookiePrefix = cfg.Engine.CookiePrefix
		e.timeout = cfg.Engine.NavigationTimeout
		if cfg.Engine.SelectorCacheSize > 0 {
			e.compiler = css.NewCompiler(cfg.Engine.SelectorCacheSize)
		}
		e.viewport = NewWindow(float64(cfg.Viewport.InnerWidth), float64(cfg.Viewport.InnerHeight))
	}
}

// Engine drives partial page updates for one document.
type Engine struct {
	doc      *dom.Document
	compiler *css.Compiler
	logger   *zap.Logger

	fetcher  Fetcher
	history  History
	storage  Storage
	cookies  CookieJar
	scripts  ScriptRunner
	viewport Viewport
	dialog   DialogGate
	loader   LoadingIndicator
	onError  func(error)
	observer func(Transition)

	cookiePrefix string
	timeout      time.Duration

	// mu serialises DOM mutation.
	mu sync.Mutex

	navMu    sync.Mutex
	inflight map[string]*navigation

	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	initOnce sync.Once
}

// New creates an engine for doc. Collaborators not given as options get
// working defaults: a network client, a session history, in-memory storage,
// a cookie jar shared with the client, a script executor and a 1024x768
// window.
func New(doc *dom.Document, opts ...Option) (*Engine, error) {
	e := &Engine{
		doc:      doc,
		logger:   zap.NewNop(),
		dialog:   acceptAll{},
		loader:   noLoader{},
		inflight: make(map[string]*navigation),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("zsx")
	if e.compiler == nil {
		e.compiler = css.NewCompiler(css.DefaultCacheSize)
	}
	if e.viewport == nil {
		e.viewport = NewWindow(1024, 768)
	}
	if err := e.defaults(); err != nil {
		return nil, err
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e, nil
}

func (e *Engine) defaults() error {
	if e.cookies == nil || e.fetcher == nil {
		j, err := network.NewCookieJar()
		if err != nil {
			return fmt.Errorf("cookie jar: %w", err)
		}
		if e.fetcher == nil {
			client, err := network.NewClient(network.WithCookieJar(j), network.WithLogger(e.logger))
			if err != nil {
				return fmt.Errorf("network client: %w", err)
			}
			e.fetcher = client
		}
		if e.cookies == nil {
			c, err := js.NewDocumentCookies(j, e.doc.URL())
			if err != nil {
				return fmt.Errorf("document cookies: %w", err)
			}
			e.cookies = c
		}
	}

	var hm *js.HistoryManager
	if e.history == nil {
		hm = js.NewHistoryManager(e.doc.URL())
		e.history = hm
	} else if h, ok := e.history.(*js.HistoryManager); ok {
		hm = h
	}

	var area *storage.Area
	if e.storage == nil {
		area = storage.NewArea(storage.NewMemory(), origin(e.doc.URL()))
		e.storage = area
	} else if a, ok := e.storage.(*storage.Area); ok {
		area = a
	}

	if e.scripts == nil {
		opts := []js.ExecutorOption{
			js.WithCompiler(e.compiler),
			js.WithCookieStore(e.cookies),
			js.WithExecutorLogger(e.logger.Named("script")),
		}
		if client, ok := e.fetcher.(*network.Client); ok {
			opts = append(opts, js.WithLoader(network.NewLoader(client, network.WithLoaderLogger(e.logger))))
		}
		if hm != nil {
			opts = append(opts, js.WithHistory(hm))
		}
		if area != nil {
			opts = append(opts, js.WithStorageArea(area))
		}
		e.scripts = js.NewScriptExecutor(e.doc, opts...)
	}
	return nil
}

func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// Document returns the page the engine drives.
func (e *Engine) Document() *dom.Document {
	return e.doc
}

// Scripts returns the script runner used for swapped scripts.
func (e *Engine) Scripts() ScriptRunner {
	return e.scripts
}

// Init decorates the whole document, restores persisted forms and starts
// listening for history traversals.
func (e *Engine) Init(ctx context.Context) error {
	if root := e.doc.DocumentElement(); root != nil {
		e.Attach(root)
	}
	if err := e.RestorePersistedForms(ctx); err != nil {
		return fmt.Errorf("restore persisted forms: %w", err)
	}
	e.initOnce.Do(func() {
		if ps, ok := e.history.(popStateSource); ok {
			ps.OnPopState(e.onPopState)
		}
	})
	return nil
}

// Attach decorates root and its descendants. Every behaviour is keyed, so
// attaching a subtree again adds nothing.
func (e *Engine) Attach(root *dom.Element) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attach(root)
}

func (e *Engine) attach(root *dom.Element) {
	elements := append([]*dom.Element{root}, root.Descendants()...)
	for _, el := range elements {
		if el.HasAttribute(AttrCookieSet) {
			e.decorateCookieSet(el)
		}
		if owner := persistOwner(el); owner != nil {
			e.DecoratePersistForm(owner)
		}
		switch el.LocalName() {
		case "a":
			if el.HasAttribute(AttrSwap) {
				e.decorateLink(el)
			}
		case "form":
			if el.HasAttribute(AttrSwap) {
				e.decorateForm(el)
			}
			if el.GetAttribute(AttrPersist) == "true" {
				e.DecoratePersistForm(el)
			}
		}
	}
}

// persistOwner returns the zx-persist form that el references through its
// form attribute, if any.
func persistOwner(el *dom.Element) *dom.Element {
	if el.LocalName() == "form" || !el.HasAttribute("form") {
		return nil
	}
	if owner := el.FormOwner(); owner != nil && owner.GetAttribute(AttrPersist) == "true" {
		return owner
	}
	return nil
}

func (e *Engine) decorateLink(a *dom.Element) {
	if a.GetAttribute(AttrLinkMode) == "app" {
		if href, ok := a.Attr("href"); ok {
			a.SetAttribute(AttrDataHref, href)
			a.RemoveAttribute("href")
		}
		_ = a.ClassList().Add(ClassAppLink)
	}

	a.AddEventListener("click", dom.Listener{Key: keyLinkClick, Handle: func(ev *dom.Event) {
		ev.PreventDefault()
		if !e.confirm(a, nil) {
			return
		}
		e.start(Normalize(Link{Anchor: a}))
	}})
}

func (e *Engine) decorateForm(form *dom.Element) {
	form.AddEventListener("submit", dom.Listener{Key: keyFormSubmit, Handle: func(ev *dom.Event) {
		ev.PreventDefault()
		if !e.confirm(form, ev.Submitter) {
			return
		}
		e.start(Normalize(Form{Form: form, Submitter: ev.Submitter}))
	}})
}

func (e *Engine) confirm(el, submitter *dom.Element) bool {
	msg := coalesce(el, submitter, AttrDialogConfirm, AttrDialogConfirm)
	if !msg.Present {
		return true
	}
	return e.dialog.Confirm(e.ctx, el, msg.Value)
}

// start runs a navigation in the background.
func (e *Engine) start(trig Trigger) {
	e.spawn(func(ctx context.Context) error {
		return e.Navigate(ctx, trig)
	})
}

func (e *Engine) spawn(fn func(ctx context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := fn(e.ctx)
		if err == nil || errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled) {
			return
		}
		e.report(err)
	}()
}

func (e *Engine) report(err error) {
	e.logger.Error("navigation failed", zap.Error(err))
	if e.onError != nil {
		e.onError(err)
	}
}

// Wait blocks until every background navigation has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels background navigations and waits for them to return.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}
