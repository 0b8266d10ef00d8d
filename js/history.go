package js

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/dop251/goja"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrCrossOrigin is returned when a history entry URL leaves the document
// origin.
var ErrCrossOrigin = errors.New("history URL origin does not match document origin")

// HistoryEntry represents a single entry in the session history.
type HistoryEntry struct {
	URL   string
	Title string
	State interface{}
}

// PopStateHandler is called after the current entry changes through Back,
// Forward or Go.
type PopStateHandler func(state interface{}, url string)

// HistoryManager keeps the session history of one document. Entry states
// are cloned on write, so later mutation by the caller is not visible.
type HistoryManager struct {
	entries  []HistoryEntry
	index    int
	handlers []PopStateHandler
	mu       sync.RWMutex
}

// NewHistoryManager creates a history whose single entry is initialURL.
func NewHistoryManager(initialURL string) *HistoryManager {
	if initialURL == "" {
		initialURL = "about:blank"
	}
	return &HistoryManager{
		entries: []HistoryEntry{{URL: initialURL}},
	}
}

// Len returns the number of entries.
func (m *HistoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Index returns the position of the current entry.
func (m *HistoryManager) Index() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// Entries returns a copy of the session history.
func (m *HistoryManager) Entries() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]HistoryEntry(nil), m.entries...)
}

// URL returns the URL of the current entry.
func (m *HistoryManager) URL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[m.index].URL
}

// State returns the state of the current entry.
func (m *HistoryManager) State() interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[m.index].State
}

// PushState adds an entry after the current one, dropping any forward
// entries. An empty rawURL keeps the current URL.
func (m *HistoryManager) PushState(state interface{}, title, rawURL string) error {
	cloned, err := cloneState(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resolved, err := m.resolve(rawURL)
	if err != nil {
		return err
	}
	m.entries = append(m.entries[:m.index+1], HistoryEntry{URL: resolved, Title: title, State: cloned})
	m.index = len(m.entries) - 1
	return nil
}

// ReplaceState overwrites the current entry.
func (m *HistoryManager) ReplaceState(state interface{}, title, rawURL string) error {
	cloned, err := cloneState(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resolved, err := m.resolve(rawURL)
	if err != nil {
		return err
	}
	m.entries[m.index] = HistoryEntry{URL: resolved, Title: title, State: cloned}
	return nil
}

// OnPopState registers a handler for traversals.
func (m *HistoryManager) OnPopState(handler func(state interface{}, url string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Back moves to the previous entry.
func (m *HistoryManager) Back() bool {
	return m.Go(-1)
}

// Forward moves to the next entry.
func (m *HistoryManager) Forward() bool {
	return m.Go(1)
}

// Go moves delta entries and notifies popstate handlers. It reports false
// when the target is out of range or delta is zero.
func (m *HistoryManager) Go(delta int) bool {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = target
	entry := m.entries[target]
	handlers := append([]PopStateHandler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(entry.State, entry.URL)
	}
	return true
}

// resolve must be called with mu held.
func (m *HistoryManager) resolve(rawURL string) (string, error) {
	current := m.entries[m.index].URL
	if rawURL == "" {
		return current, nil
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(current)
	if err != nil || !base.IsAbs() || base.Scheme == "about" {
		return ref.String(), nil
	}
	resolved := base.ResolveReference(ref)
	if !strings.EqualFold(resolved.Scheme, base.Scheme) || !strings.EqualFold(resolved.Host, base.Host) {
		return "", ErrCrossOrigin
	}
	return resolved.String(), nil
}

// cloneState detaches state from the caller through a JSON round trip.
func cloneState(state interface{}) (interface{}, error) {
	if state == nil {
		return nil, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Bind installs window.history backed by m. onNavigate, if set, is called
// with the new URL after a push or replace so location can follow.
func (m *HistoryManager) Bind(r *Runtime, onNavigate func(string)) {
	r.Do(func(vm *goja.Runtime) {
		history := vm.NewObject()

		history.DefineAccessorProperty("length", vm.ToValue(func(goja.FunctionCall) goja.Value {
			return vm.ToValue(m.Len())
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

		history.DefineAccessorProperty("state", vm.ToValue(func(goja.FunctionCall) goja.Value {
			state := m.State()
			if state == nil {
				return goja.Null()
			}
			return vm.ToValue(state)
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

		write := func(name string, fn func(interface{}, string, string) error) func(goja.FunctionCall) goja.Value {
			return func(call goja.FunctionCall) goja.Value {
				var state interface{}
				if arg := call.Argument(0); !goja.IsNull(arg) && !goja.IsUndefined(arg) {
					state = arg.Export()
				}
				rawURL := ""
				if arg := call.Argument(2); !goja.IsNull(arg) && !goja.IsUndefined(arg) {
					rawURL = arg.String()
				}
				if err := fn(state, call.Argument(1).String(), rawURL); err != nil {
					panic(vm.NewTypeError("Failed to execute '%s': %v", name, err))
				}
				if onNavigate != nil {
					onNavigate(m.URL())
				}
				return goja.Undefined()
			}
		}
		history.Set("pushState", write("pushState", m.PushState))
		history.Set("replaceState", write("replaceState", m.ReplaceState))

		// Traversals run popstate handlers, which may need the VM, so they
		// are deferred until the current script returns.
		traverse := func(delta func(goja.FunctionCall) int) func(goja.FunctionCall) goja.Value {
			return func(call goja.FunctionCall) goja.Value {
				d := delta(call)
				r.eventLoop.queueMicrotask(func(goja.Value, ...goja.Value) (goja.Value, error) {
					go m.Go(d)
					return goja.Undefined(), nil
				}, nil)
				return goja.Undefined()
			}
		}
		history.Set("back", traverse(func(goja.FunctionCall) int { return -1 }))
		history.Set("forward", traverse(func(goja.FunctionCall) int { return 1 }))
		history.Set("go", traverse(func(call goja.FunctionCall) int { return int(call.Argument(0).ToInteger()) }))

		vm.Set("history", history)
	})
}
