package fixture

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/roryl/zsx/css"
	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/html"
	"github.com/roryl/zsx/js"
	"github.com/roryl/zsx/network"
	"github.com/roryl/zsx/zsx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Status is the outcome of a scenario or step.
type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusTimeout
	StatusError
	StatusSkip
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusError:
		return "ERROR"
	case StatusSkip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index   int    `json:"index"`
	Action  string `json:"action"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario string        `json:"scenario"`
	Status   Status        `json:"status"`
	Steps    []StepResult  `json:"steps"`
	Errors   []string      `json:"navigation_errors,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Runner runs scenarios against a site reachable at BaseURL.
type Runner struct {
	BaseURL string
	Timeout time.Duration
	Results []Result

	logger     *zap.Logger
	clientOpts []network.ClientOption
	engineOpts []zsx.Option
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithRunnerLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClientOptions adds options to the HTTP client of every scenario.
func WithClientOptions(opts ...network.ClientOption) RunnerOption {
	return func(r *Runner) { r.clientOpts = append(r.clientOpts, opts...) }
}

// WithEngineOptions adds options to the engine of every scenario.
func WithEngineOptions(opts ...zsx.Option) RunnerOption {
	return func(r *Runner) { r.engineOpts = append(r.engineOpts, opts...) }
}

// NewRunner creates a runner for the site at baseURL.
func NewRunner(baseURL string, opts ...RunnerOption) *Runner {
	r := &Runner{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("scenario")
	return r
}

// session is one browsing context: a page, its engine and its history.
type session struct {
	engine   *zsx.Engine
	doc      *dom.Document
	history  *js.HistoryManager
	cookies  *js.DocumentCookies
	compiler *css.Compiler

	mu     sync.Mutex
	errors []string
}

func (s *session) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err.Error())
}

// Run executes sc and appends its result to r.Results.
func (r *Runner) Run(ctx context.Context, sc Scenario) Result {
	res := r.run(ctx, sc)
	r.Results = append(r.Results, res)
	return res
}

// RunAll runs every scenario of m in order.
func (r *Runner) RunAll(ctx context.Context, m *Manifest) []Result {
	out := make([]Result, 0, len(m.Scenarios))
	for _, sc := range m.Scenarios {
		out = append(out, r.Run(ctx, sc))
	}
	return out
}

func (r *Runner) run(ctx context.Context, sc Scenario) Result {
	start := time.Now()
	res := Result{Scenario: sc.Name, Status: StatusPass}
	log := r.logger.With(zap.String("scenario", sc.Name))

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	sess, err := r.open(ctx, sc.Start)
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
		res.Duration = time.Since(start)
		log.Warn("scenario could not start", zap.Error(err))
		return res
	}
	defer sess.engine.Close()

	for i, st := range sc.Steps {
		sr := StepResult{Index: i + 1, Action: st.describe(), Status: StatusPass}
		if res.Status != StatusPass {
			sr.Status = StatusSkip
			res.Steps = append(res.Steps, sr)
			continue
		}
		if err := r.step(ctx, sess, st); err != nil {
			sr.Status = StatusFail
			if ctx.Err() != nil {
				sr.Status = StatusTimeout
			}
			sr.Message = err.Error()
			res.Status = sr.Status
		}
		res.Steps = append(res.Steps, sr)
	}

	sess.mu.Lock()
	res.Errors = append(res.Errors, sess.errors...)
	sess.mu.Unlock()
	res.Duration = time.Since(start)
	log.Debug("scenario finished", zap.Stringer("status", res.Status), zap.Duration("elapsed", res.Duration))
	return res
}

// open loads path as a full page and starts an engine on it.
func (r *Runner) open(ctx context.Context, path string) (*session, error) {
	jar, err := network.NewCookieJar()
	if err != nil {
		return nil, err
	}
	opts := append([]network.ClientOption{network.WithCookieJar(jar), network.WithLogger(r.logger)}, r.clientOpts...)
	client, err := network.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	pageURL := r.BaseURL + path
	resp, err := client.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", pageURL, err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("load %s: status %d", pageURL, resp.StatusCode)
	}
	doc, err := html.ParseResponse(bytes.NewReader(resp.Body), resp.ContentType, resp.URL.String())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	cookies, err := js.NewDocumentCookies(jar, doc.URL())
	if err != nil {
		return nil, err
	}
	sess := &session{
		doc:      doc,
		history:  js.NewHistoryManager(doc.URL()),
		cookies:  cookies,
		compiler: css.NewCompiler(css.DefaultCacheSize),
	}
	engineOpts := append([]zsx.Option{
		zsx.WithLogger(r.logger),
		zsx.WithFetcher(client),
		zsx.WithHistory(sess.history),
		zsx.WithCookies(cookies),
		zsx.WithCompiler(sess.compiler),
		zsx.WithErrorHandler(sess.recordError),
	}, r.engineOpts...)
	sess.engine, err = zsx.New(doc, engineOpts...)
	if err != nil {
		return nil, err
	}
	if err := sess.engine.Init(ctx); err != nil {
		sess.engine.Close()
		return nil, err
	}
	return sess, nil
}

func (r *Runner) step(ctx context.Context, s *session, st Step) error {
	switch {
	case st.Click != "":
		el, err := s.find(st.Click)
		if err != nil {
			return err
		}
		el.Click()
		return wait(ctx, s.engine)
	case st.Submit != "":
		for _, f := range st.Set {
			field, err := s.find(f.Selector)
			if err != nil {
				return err
			}
			field.SetValue(f.Value)
		}
		form, err := s.find(st.Submit)
		if err != nil {
			return err
		}
		var submitter *dom.Element
		if st.Submitter != "" {
			if submitter, err = s.find(st.Submitter); err != nil {
				return err
			}
		}
		form.RequestSubmit(submitter)
		return wait(ctx, s.engine)
	case st.Back:
		if !s.history.Back() {
			return fmt.Errorf("no history entry to go back to")
		}
		return wait(ctx, s.engine)
	case st.Expect != nil:
		return r.check(s, *st.Expect)
	}
	return fmt.Errorf("empty step")
}

func (s *session) find(selector string) (*dom.Element, error) {
	el, err := s.compiler.Query(s.doc.AsNode(), selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	if el == nil {
		return nil, fmt.Errorf("no element matches %q", selector)
	}
	return el, nil
}

// wait blocks until the engine is idle or ctx ends.
func wait(ctx context.Context, e *zsx.Engine) error {
	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) check(s *session, ex Expectation) error {
	if ex.URL != "" {
		if want := r.BaseURL + ex.URL; s.doc.URL() != want {
			return fmt.Errorf("url is %q, want %q", s.doc.URL(), want)
		}
	}
	if ex.History != 0 && s.history.Len() != ex.History {
		return fmt.Errorf("history has %d entries, want %d", s.history.Len(), ex.History)
	}
	if ex.Cookie != "" {
		got, ok := zsx.GetCookieValue(s.cookies, ex.Cookie, "")
		if !ok {
			return fmt.Errorf("cookie %q is not set", ex.Cookie)
		}
		if got != ex.Value {
			return fmt.Errorf("cookie %q is %q, want %q", ex.Cookie, got, ex.Value)
		}
	}
	if ex.Selector == "" {
		return nil
	}

	el, err := s.compiler.Query(s.doc.AsNode(), ex.Selector)
	if err != nil {
		return fmt.Errorf("selector %q: %w", ex.Selector, err)
	}
	if ex.Absent {
		if el != nil {
			return fmt.Errorf("%q is present", ex.Selector)
		}
		return nil
	}
	if el == nil {
		return fmt.Errorf("no element matches %q", ex.Selector)
	}
	text := strings.Join(strings.Fields(el.TextContent()), " ")
	if ex.Text != "" && text != ex.Text {
		return fmt.Errorf("%q text is %q, want %q", ex.Selector, text, ex.Text)
	}
	if ex.Contains != "" && !strings.Contains(text, ex.Contains) {
		return fmt.Errorf("%q text %q does not contain %q", ex.Selector, text, ex.Contains)
	}
	if ex.Value != "" && ex.Cookie == "" && el.Value() != ex.Value {
		return fmt.Errorf("%q value is %q, want %q", ex.Selector, el.Value(), ex.Value)
	}
	return nil
}

func (st Step) describe() string {
	switch {
	case st.Click != "":
		return "click " + st.Click
	case st.Submit != "":
		if st.Submitter != "" {
			return "submit " + st.Submit + " via " + st.Submitter
		}
		return "submit " + st.Submit
	case st.Back:
		return "back"
	case st.Expect != nil:
		return "expect " + st.Expect.describe()
	}
	return "noop"
}

func (ex Expectation) describe() string {
	var parts []string
	if ex.Selector != "" {
		parts = append(parts, ex.Selector)
	}
	if ex.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", ex.Text))
	}
	if ex.Contains != "" {
		parts = append(parts, fmt.Sprintf("contains=%q", ex.Contains))
	}
	if ex.Absent {
		parts = append(parts, "absent")
	}
	if ex.URL != "" {
		parts = append(parts, "url="+ex.URL)
	}
	if ex.History != 0 {
		parts = append(parts, fmt.Sprintf("history=%d", ex.History))
	}
	if ex.Cookie != "" {
		parts = append(parts, "cookie "+ex.Cookie)
	}
	if ex.Value != "" {
		parts = append(parts, fmt.Sprintf("value=%q", ex.Value))
	}
	return strings.Join(parts, " ")
}

// Summary counts the results by outcome.
func (r *Runner) Summary() (passed, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusPass:
			passed++
		case StatusSkip:
			skipped++
		default:
			failed++
		}
	}
	return passed, failed, skipped
}

// ExportJSON renders the results with a summary.
func (r *Runner) ExportJSON() ([]byte, error) {
	passed, failed, skipped := r.Summary()
	return json.MarshalIndent(struct {
		BaseURL string   `json:"base_url"`
		Results []Result `json:"results"`
		Passed  int      `json:"passed"`
		Failed  int      `json:"failed"`
		Skipped int      `json:"skipped"`
	}{r.BaseURL, r.Results, passed, failed, skipped}, "", "  ")
}
