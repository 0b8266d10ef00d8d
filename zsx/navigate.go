package zsx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roryl/zsx/html"
	"github.com/roryl/zsx/network"
)

// State is the phase of a navigation.
type State int

const (
	StateIdle State = iota
	StateRequestInFlight
	StateSwapping
	StateHistoryCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestInFlight:
		return "request-in-flight"
	case StateSwapping:
		return "swapping"
	case StateHistoryCommitted:
		return "history-committed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transition is reported to the state observer each time a navigation
// changes state.
type Transition struct {
	Token     string
	Selectors string
	URL       string
	State     State
	Err       error
}

// HistoryState is pushed with every committed navigation and used to
// restore it on popstate.
type HistoryState struct {
	URI            string   `json:"uri"`
	SwapSelectors  string   `json:"swapSelectors"`
	ZeroSyncParams []string `json:"zeroSyncParams"`
}

// History is the session history navigations are recorded in.
// *js.HistoryManager satisfies it.
type History interface {
	PushState(state interface{}, title, url string) error
}

// popStateSource is implemented by histories that report traversals.
type popStateSource interface {
	OnPopState(handler func(state interface{}, url string))
}

// Fetcher performs the HTTP request of a navigation. *network.Client
// satisfies it.
type Fetcher interface {
	Do(ctx context.Context, req *network.Request) (*network.Response, error)
}

type navigation struct {
	token  string
	set    string
	url    string
	cancel context.CancelFunc
	stale  atomic.Bool
}

// Navigate fetches the trigger's URL and swaps the response into the page.
// On success the scroll directive is applied, a history entry is pushed and
// link params are synchronised.
func (e *Engine) Navigate(ctx context.Context, trig Trigger) error {
	if !trig.Swap.Present || strings.TrimSpace(trig.Swap.Value) == "" {
		return configError("navigate", "", ErrMissingSwapSelector)
	}
	return e.navigate(ctx, trig, nil)
}

// Restore replays a history entry: the stored URI is fetched again and its
// selector set swapped, without scrolling or pushing history.
func (e *Engine) Restore(ctx context.Context, state HistoryState) error {
	if state.URI == "" || strings.TrimSpace(state.SwapSelectors) == "" {
		return configError("restore", "", ErrMissingSwapSelector)
	}
	trig := Trigger{
		Kind:   KindLink,
		Method: "get",
		URL:    state.URI,
		Swap:   Attr{Value: state.SwapSelectors, Present: true},
	}
	return e.navigate(ctx, trig, &state)
}

func (e *Engine) navigate(ctx context.Context, trig Trigger, restore *HistoryState) error {
	req, err := buildRequest(trig)
	if err != nil {
		return configError("navigate", "", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	ctx, nav := e.begin(ctx, trig.Swap.Value, req.URL)
	defer e.end(nav)

	log := e.logger.With(zap.String("token", nav.token), zap.String("swap", nav.set))
	log.Debug("navigating", zap.String("method", req.Method), zap.String("url", req.URL), zap.Bool("restore", restore != nil))

	e.transition(nav, StateRequestInFlight, nil)
	e.loader.Start(trig)
	resp, err := e.fetcher.Do(ctx, req)
	e.loader.Stop(trig)
	if err != nil {
		if nav.stale.Load() {
			return e.fail(nav, ErrSuperseded)
		}
		return e.fail(nav, fmt.Errorf("fetch %s: %w", req.URL, err))
	}
	if !resp.OK() {
		return e.fail(nav, &Error{Kind: ResponseError, Op: "navigate", Status: resp.StatusCode, Err: ErrBadStatus})
	}

	finalURL := req.URL
	if resp.Redirected && resp.URL != nil {
		finalURL = resp.URL.String()
	}
	page, err := html.ParseResponse(bytes.NewReader(resp.Body), resp.ContentType, finalURL)
	if err != nil {
		return e.fail(nav, &Error{Kind: ResponseError, Op: "navigate", Err: err})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if nav.stale.Load() {
		return e.fail(nav, ErrSuperseded)
	}

	e.transition(nav, StateSwapping, nil)
	if err := e.swapAll(ctx, page, nav.set, trig); err != nil {
		return e.fail(nav, err)
	}

	prior := e.doc.URL()
	var params []string
	if restore == nil {
		plan, err := e.PlanScroll(trig, prior, finalURL)
		if err != nil {
			return e.fail(nav, err)
		}
		ApplyScroll(e.viewport, plan)

		params = ParseSyncParams(trig.SyncParams.Value)
		state := HistoryState{URI: finalURL, SwapSelectors: nav.set, ZeroSyncParams: params}
		if err := e.history.PushState(state, "", finalURL); err != nil {
			log.Warn("history push failed", zap.String("url", finalURL), zap.Error(err))
		}
	} else {
		params = restore.ZeroSyncParams
	}

	e.doc.SetURL(finalURL)
	if c, ok := e.cookies.(interface{ SetURL(string) error }); ok {
		if err := c.SetURL(finalURL); err != nil {
			log.Warn("cookie url not updated", zap.Error(err))
		}
	}
	e.transition(nav, StateHistoryCommitted, nil)

	if n := SyncLinkParams(e.doc, finalURL, params); n > 0 {
		log.Debug("link params synchronised", zap.Int("links", n), zap.Strings("params", params))
	}
	e.transition(nav, StateIdle, nil)
	log.Info("navigation committed", zap.String("url", finalURL))
	return nil
}

// buildRequest encodes the trigger as a request. Forms send their data set
// as the body of a POST or as the query of a GET.
func buildRequest(trig Trigger) (*network.Request, error) {
	req := &network.Request{Method: http.MethodGet, URL: trig.URL}
	if trig.Method == "post" {
		req.Method = http.MethodPost
	}
	if trig.Kind != KindForm || trig.Element == nil {
		return req, nil
	}

	var q network.Query
	for _, entry := range trig.Element.FormData(trig.Submitter) {
		q = append(q, network.QueryParam{Name: entry.Name, Value: entry.Value})
	}
	if req.Method == http.MethodPost {
		req.Headers = map[string]string{"Content-Type": network.FormContentType}
		req.Body = strings.NewReader(q.Encode())
		return req, nil
	}

	u, err := url.Parse(trig.URL)
	if err != nil {
		return nil, fmt.Errorf("form action %q: %w", trig.URL, err)
	}
	req.URL = network.WithQuery(u, q).String()
	return req, nil
}

// begin registers a navigation for set, cancelling the one it supersedes.
func (e *Engine) begin(ctx context.Context, set, rawURL string) (context.Context, *navigation) {
	ctx, cancel := context.WithCancel(ctx)
	nav := &navigation{token: uuid.NewString(), set: set, url: rawURL, cancel: cancel}

	e.navMu.Lock()
	if prev := e.inflight[set]; prev != nil {
		prev.stale.Store(true)
		prev.cancel()
		e.logger.Debug("navigation superseded", zap.String("token", prev.token), zap.String("by", nav.token))
	}
	e.inflight[set] = nav
	e.navMu.Unlock()
	return ctx, nav
}

func (e *Engine) end(nav *navigation) {
	nav.cancel()
	e.navMu.Lock()
	if e.inflight[nav.set] == nav {
		delete(e.inflight, nav.set)
	}
	e.navMu.Unlock()
}

func (e *Engine) transition(nav *navigation, s State, err error) {
	if e.observer == nil {
		return
	}
	e.observer(Transition{Token: nav.token, Selectors: nav.set, URL: nav.url, State: s, Err: err})
}

func (e *Engine) fail(nav *navigation, err error) error {
	if errors.Is(err, ErrSuperseded) {
		err = fmt.Errorf("navigation %s: %w", nav.token, err)
	}
	e.transition(nav, StateFailed, err)
	return err
}

// decodeHistoryState recovers a HistoryState from a history entry. Histories
// that clone state hand back plain maps, which are decoded through JSON.
func decodeHistoryState(v interface{}) (HistoryState, bool) {
	var hs HistoryState
	switch s := v.(type) {
	case nil:
		return hs, false
	case HistoryState:
		hs = s
	case *HistoryState:
		if s == nil {
			return hs, false
		}
		hs = *s
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return hs, false
		}
		if err := json.Unmarshal(raw, &hs); err != nil {
			return hs, false
		}
	}
	return hs, hs.URI != "" && hs.SwapSelectors != ""
}

func (e *Engine) onPopState(state interface{}, rawURL string) {
	hs, ok := decodeHistoryState(state)
	if !ok {
		e.logger.Debug("popstate without swap state", zap.String("url", rawURL))
		return
	}
	e.spawn(func(ctx context.Context) error {
		return e.Restore(ctx, hs)
	})
}
