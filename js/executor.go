package js

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/roryl/zsx/css"
	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/network"
	"github.com/roryl/zsx/storage"
)

// ExecutorOption configures a ScriptExecutor.
type ExecutorOption func(*ScriptExecutor)

// WithLoader fetches external scripts (script src) through loader.
func WithLoader(loader *network.Loader) ExecutorOption {
	return func(se *ScriptExecutor) { se.loader = loader }
}

// WithCookieStore backs document.cookie.
func WithCookieStore(c CookieStore) ExecutorOption {
	return func(se *ScriptExecutor) { se.cookies = c }
}

// WithStorageArea backs window.localStorage.
func WithStorageArea(area *storage.Area) ExecutorOption {
	return func(se *ScriptExecutor) { se.area = area }
}

// WithHistory exposes window.history over hm.
func WithHistory(hm *HistoryManager) ExecutorOption {
	return func(se *ScriptExecutor) { se.history = hm }
}

// WithCompiler shares a selector compiler with the bindings.
func WithCompiler(c *css.Compiler) ExecutorOption {
	return func(se *ScriptExecutor) { se.compiler = c }
}

// WithExecutorLogger sets the logger for script and console output.
func WithExecutorLogger(logger *zap.Logger) ExecutorOption {
	return func(se *ScriptExecutor) {
		if logger != nil {
			se.logger = logger
		}
	}
}

// ScriptExecutor runs script elements against one document.
type ScriptExecutor struct {
	runtime  *Runtime
	binder   *DOMBinder
	doc      *dom.Document
	loader   *network.Loader
	cookies  CookieStore
	area     *storage.Area
	history  *HistoryManager
	compiler *css.Compiler
	logger   *zap.Logger
}

// NewScriptExecutor creates a runtime with document, location, history,
// storage and cookie bindings for doc.
func NewScriptExecutor(doc *dom.Document, opts ...ExecutorOption) *ScriptExecutor {
	se := &ScriptExecutor{
		doc:    doc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(se)
	}

	se.runtime = NewRuntime(WithRuntimeLogger(se.logger))
	se.binder = NewDOMBinder(se.runtime, doc, se.compiler)
	if se.cookies != nil {
		se.binder.SetCookieStore(se.cookies)
	}
	se.binder.Bind()

	if se.history != nil {
		se.history.Bind(se.runtime, doc.SetURL)
	}
	if se.area != nil {
		BindStorage(se.runtime, se.area)
	}
	return se
}

// Runtime returns the underlying runtime.
func (se *ScriptExecutor) Runtime() *Runtime {
	return se.runtime
}

// DOMBinder returns the document binder.
func (se *ScriptExecutor) DOMBinder() *DOMBinder {
	return se.binder
}

// RunScript executes one script element. Inline scripts run their text;
// scripts with a src are fetched through the loader first.
func (se *ScriptExecutor) RunScript(ctx context.Context, script *dom.Element) error {
	code, name, err := se.source(ctx, script)
	if err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return nil
	}

	se.binder.SetCurrentScript(script)
	defer se.binder.SetCurrentScript(nil)

	se.logger.Debug("running script", zap.String("script", name))
	return se.runtime.ExecuteScript(ctx, code, name)
}

func (se *ScriptExecutor) source(ctx context.Context, script *dom.Element) (code, name string, err error) {
	src, ok := script.Attr("src")
	if !ok || src == "" {
		name = "inline-script"
		if id := script.Id(); id != "" {
			name = "inline-script#" + id
		}
		return script.TextContent(), name, nil
	}

	if se.loader == nil {
		return "", src, fmt.Errorf("load %s: no script loader configured", src)
	}
	if base := se.doc.URL(); base != "" {
		se.loader.SetBaseURL(base)
	}
	res := se.loader.LoadScript(ctx, src)
	if !res.IsSuccess() {
		if res.Error != nil {
			return "", res.URL, fmt.Errorf("load %s: %w", res.URL, res.Error)
		}
		return "", res.URL, fmt.Errorf("load %s: status %d", res.URL, res.StatusCode)
	}
	return res.AsString(), res.URL, nil
}

// ExecuteScripts runs every JavaScript script element in the document in
// tree order and returns the errors, one per failing script.
func (se *ScriptExecutor) ExecuteScripts(ctx context.Context) []error {
	var errs []error
	for _, script := range se.doc.GetElementsByTagName("script") {
		if t, ok := script.Attr("type"); ok && t != "" && t != "text/javascript" {
			continue
		}
		if err := se.RunScript(ctx, script); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Eval runs code and returns its exported completion value.
func (se *ScriptExecutor) Eval(code string) (interface{}, error) {
	return se.runtime.Execute(code)
}

// EvalElement runs code and returns the element it evaluates to, or nil.
func (se *ScriptExecutor) EvalElement(code string) (*dom.Element, error) {
	var el *dom.Element
	err := se.runtime.ExecuteScript(context.Background(), code, "<eval>", func(v goja.Value) {
		el = se.binder.unwrap(v)
	})
	return el, err
}
