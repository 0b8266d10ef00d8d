// Package js runs page scripts with the goja JavaScript engine (pure Go
// ES5.1+). It exposes a small window/document surface over the dom tree,
// plus history, storage and cookie bindings.
package js

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrInterrupted is returned when a script is stopped because its context
// ended.
var ErrInterrupted = errors.New("script interrupted")

// Runtime wraps a goja JavaScript runtime with browser-specific functionality.
// A goja VM is not goroutine-safe; every entry point takes mu. active is set
// while mu is held so that Go callbacks reached from a running script (an
// event dispatched by element.click(), say) call back in without relocking.
type Runtime struct {
	vm        *goja.Runtime
	logger    *zap.Logger
	timers    *timerManager
	eventLoop *eventLoop
	mu        sync.Mutex
	active    atomic.Bool
	errors    []error
	onError   func(error)
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger routes console output to logger.
func WithRuntimeLogger(logger *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuntime creates a new JavaScript runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		vm:        goja.New(),
		logger:    zap.NewNop(),
		timers:    newTimerManager(),
		eventLoop: newEventLoop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.setupConsole()
	r.setupTimers()
	r.setupWindow()

	return r
}

// VM returns the underlying goja runtime. Callers must hold the runtime
// lock, e.g. by running inside Do.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Do runs fn with exclusive access to the VM.
func (r *Runtime) Do(fn func(vm *goja.Runtime)) {
	r.enter(func() { fn(r.vm) })
}

// enter runs fn holding the VM, or in place when the VM is already running
// on this call chain. The DOM is not goroutine-safe either, so callers
// serialize dispatch from other goroutines.
func (r *Runtime) enter(fn func()) {
	if r.active.Load() {
		fn()
		return
	}
	r.lock()
	defer r.unlock()
	fn()
	r.drainMicrotasks()
}

func (r *Runtime) lock() {
	r.mu.Lock()
	r.active.Store(true)
}

func (r *Runtime) unlock() {
	r.active.Store(false)
	r.mu.Unlock()
}

// SetOnError sets a callback for JavaScript errors.
func (r *Runtime) SetOnError(handler func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = handler
}

// Execute runs JavaScript code and returns the exported result.
func (r *Runtime) Execute(code string) (interface{}, error) {
	var out interface{}
	err := r.ExecuteScript(context.Background(), code, "<eval>", func(v goja.Value) {
		if v != nil {
			out = v.Export()
		}
	})
	return out, err
}

// ExecuteScript compiles and runs code in sloppy mode, as classic scripts
// are. src names the script in stack traces. The run is interrupted when ctx
// ends. The optional result callback receives the completion value while the
// lock is still held.
func (r *Runtime) ExecuteScript(ctx context.Context, code, src string, result ...func(goja.Value)) (err error) {
	r.lock()
	defer r.unlock()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("script panic in %s: %v", src, p)
		}
		if err != nil {
			r.recordError(err)
		}
	}()

	program, err := goja.Compile(src, code, false)
	if err != nil {
		return fmt.Errorf("compile %s: %w", src, err)
	}

	stop := context.AfterFunc(ctx, func() {
		r.vm.Interrupt(ErrInterrupted)
	})
	defer func() {
		stop()
		r.vm.ClearInterrupt()
	}()

	v, err := r.vm.RunProgram(program)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return fmt.Errorf("%s: %w", src, ErrInterrupted)
		}
		return fmt.Errorf("%s: %w", src, err)
	}
	for _, fn := range result {
		fn(v)
	}
	r.drainMicrotasks()
	return nil
}

// recordError must be called with mu held.
func (r *Runtime) recordError(err error) {
	r.errors = append(r.errors, err)
	r.logger.Warn("script error", zap.Error(err))
	if r.onError != nil {
		r.onError(err)
	}
}

// Errors returns all errors that occurred during execution.
func (r *Runtime) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error{}, r.errors...)
}

// ClearErrors clears the error list.
func (r *Runtime) ClearErrors() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = r.errors[:0]
}

// RunEventLoop drains microtasks and fires due timers once. It reports
// whether work is still pending.
func (r *Runtime) RunEventLoop() bool {
	r.lock()
	defer r.unlock()
	r.drainMicrotasks()
	r.timers.process(r)
	r.drainMicrotasks()
	return r.timers.hasPending() || r.eventLoop.hasPending()
}

// Drain runs the event loop until no timers remain or ctx ends.
func (r *Runtime) Drain(ctx context.Context) error {
	for r.RunEventLoop() {
		wait := r.timers.nextDueTime()
		if wait <= 0 {
			wait = time.Millisecond
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// HasPendingWork returns true if there are timers or callbacks waiting.
func (r *Runtime) HasPendingWork() bool {
	return r.timers.hasPending() || r.eventLoop.hasPending()
}

// call invokes fn and records any exception. Must be called with mu held.
func (r *Runtime) call(fn goja.Callable, this goja.Value, args ...goja.Value) {
	defer func() {
		if p := recover(); p != nil {
			r.recordError(fmt.Errorf("callback panic: %v", p))
		}
	}()
	if _, err := fn(this, args...); err != nil {
		r.recordError(err)
	}
}

// setupConsole creates the console object, writing through the logger.
func (r *Runtime) setupConsole() {
	console := r.vm.NewObject()
	log := r.logger.Named("console")

	levels := map[string]func(string, ...zap.Field){
		"log":   log.Info,
		"info":  log.Info,
		"warn":  log.Warn,
		"error": log.Error,
		"debug": log.Debug,
		"trace": log.Debug,
	}
	for name, emit := range levels {
		emit := emit
		console.Set(name, func(call goja.FunctionCall) goja.Value {
			emit(formatArgs(call.Arguments))
			return goja.Undefined()
		})
	}

	console.Set("assert", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 || !call.Arguments[0].ToBoolean() {
			msg := "Assertion failed"
			if len(call.Arguments) > 1 {
				msg += ": " + formatArgs(call.Arguments[1:])
			}
			log.Error(msg)
		}
		return goja.Undefined()
	})

	counts := make(map[string]int)
	console.Set("count", func(call goja.FunctionCall) goja.Value {
		label := "default"
		if len(call.Arguments) > 0 {
			label = call.Arguments[0].String()
		}
		counts[label]++
		log.Info(fmt.Sprintf("%s: %d", label, counts[label]))
		return goja.Undefined()
	})

	r.vm.Set("console", console)
}

// setupTimers creates setTimeout, setInterval, clearTimeout, clearInterval
// and queueMicrotask.
func (r *Runtime) setupTimers() {
	schedule := func(call goja.FunctionCall, repeat bool) goja.Value {
		callback, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			return goja.Undefined()
		}
		delay := call.Argument(1).ToInteger()
		if delay < 0 {
			delay = 0
		}
		if repeat && delay < 4 {
			delay = 4
		}
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = call.Arguments[2:]
		}
		interval := time.Duration(0)
		if repeat {
			interval = time.Duration(delay) * time.Millisecond
		}
		return r.vm.ToValue(r.timers.schedule(callback, time.Duration(delay)*time.Millisecond, interval, args))
	}

	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return schedule(call, false)
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return schedule(call, true)
	})

	clear := func(call goja.FunctionCall) goja.Value {
		r.timers.clearTimer(int(call.Argument(0).ToInteger()))
		return goja.Undefined()
	}
	r.vm.Set("clearTimeout", clear)
	r.vm.Set("clearInterval", clear)

	r.vm.Set("queueMicrotask", func(call goja.FunctionCall) goja.Value {
		if callback, ok := goja.AssertFunction(call.Argument(0)); ok {
			r.eventLoop.queueMicrotask(callback, nil)
		}
		return goja.Undefined()
	})
}

// setupWindow makes window, self and globalThis the global object so that
// properties set on window are visible as globals.
func (r *Runtime) setupWindow() {
	window := r.vm.GlobalObject()
	r.vm.Set("window", window)
	r.vm.Set("self", window)
	r.vm.Set("globalThis", window)
}

// formatArgs formats function call arguments for console output.
func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatValue(arg)
	}
	return strings.Join(parts, " ")
}

func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	return v.String()
}
