package js

import (
	"sync"

	"github.com/dop251/goja"
)

// task represents a queued callback in the event loop.
type task struct {
	callback goja.Callable
	args     []goja.Value
}

// eventLoop holds the microtask queue.
type eventLoop struct {
	microtasks []task
	mu         sync.Mutex
}

func newEventLoop() *eventLoop {
	return &eventLoop{}
}

// queueMicrotask adds a microtask to the queue.
func (el *eventLoop) queueMicrotask(callback goja.Callable, args []goja.Value) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.microtasks = append(el.microtasks, task{callback: callback, args: args})
}

// next pops the oldest microtask.
func (el *eventLoop) next() (task, bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if len(el.microtasks) == 0 {
		return task{}, false
	}
	t := el.microtasks[0]
	el.microtasks = el.microtasks[1:]
	return t, true
}

// hasPending returns true if there are any pending tasks.
func (el *eventLoop) hasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.microtasks) > 0
}

// drainMicrotasks runs microtasks, including ones queued while draining.
// Must be called with mu held.
func (r *Runtime) drainMicrotasks() {
	for {
		t, ok := r.eventLoop.next()
		if !ok {
			return
		}
		r.call(t.callback, goja.Undefined(), t.args...)
	}
}
