package dom

import (
	"sync"
)

// EventPhase represents the phase of event dispatch.
type EventPhase int

const (
	EventPhaseNone      EventPhase = 0
	EventPhaseCapturing EventPhase = 1
	EventPhaseAtTarget  EventPhase = 2
	EventPhaseBubbling  EventPhase = 3
)

// EventInit carries the optional fields of a new Event.
type EventInit struct {
	Bubbles    bool
	Cancelable bool
	// Detail is the payload of a custom event.
	Detail any
	// Submitter is the button that submitted a form, for submit events.
	Submitter *Element
}

// Event represents a DOM event.
type Event struct {
	Type          string
	Target        *Node
	CurrentTarget *Node
	Phase         EventPhase
	Bubbles       bool
	Cancelable    bool
	Detail        any
	Submitter     *Element

	defaultPrevented bool
	stopPropagation  bool
	stopImmediate    bool
}

// NewEvent creates an event of the given type.
func NewEvent(eventType string, init EventInit) *Event {
	return &Event{
		Type:       eventType,
		Bubbles:    init.Bubbles,
		Cancelable: init.Cancelable,
		Detail:     init.Detail,
		Submitter:  init.Submitter,
	}
}

// PreventDefault cancels the event's default action if it is cancelable.
func (ev *Event) PreventDefault() {
	if ev.Cancelable {
		ev.defaultPrevented = true
	}
}

// DefaultPrevented reports whether PreventDefault was called.
func (ev *Event) DefaultPrevented() bool {
	return ev.defaultPrevented
}

// StopPropagation stops the event after the current target.
func (ev *Event) StopPropagation() {
	ev.stopPropagation = true
}

// StopImmediatePropagation stops the event before the next listener.
func (ev *Event) StopImmediatePropagation() {
	ev.stopPropagation = true
	ev.stopImmediate = true
}

// Listener is an event callback. A non-empty Key identifies the listener:
// registering the same key twice for the same type and phase is a no-op,
// which makes repeated decoration of an element safe.
type Listener struct {
	Key     string
	Handle  func(*Event)
	Capture bool
	Once    bool
}

type registeredListener struct {
	id int
	Listener
}

// eventTarget manages event listeners for a node.
type eventTarget struct {
	mu        sync.Mutex
	listeners map[string][]registeredListener
	nextID    int
}

func (n *Node) target() *eventTarget {
	if n.events == nil {
		n.events = &eventTarget{listeners: make(map[string][]registeredListener)}
	}
	return n.events
}

// AddEventListener registers a listener and reports whether it was added.
// It returns false when a listener with the same key is already registered.
func (n *Node) AddEventListener(eventType string, l Listener) bool {
	if l.Handle == nil {
		return false
	}
	et := n.target()
	et.mu.Lock()
	defer et.mu.Unlock()

	if l.Key != "" {
		for _, existing := range et.listeners[eventType] {
			if existing.Key == l.Key && existing.Capture == l.Capture {
				return false
			}
		}
	}

	et.nextID++
	et.listeners[eventType] = append(et.listeners[eventType], registeredListener{id: et.nextID, Listener: l})
	return true
}

// RemoveEventListener unregisters the keyed listener.
func (n *Node) RemoveEventListener(eventType, key string, capture bool) {
	if n.events == nil {
		return
	}
	et := n.events
	et.mu.Lock()
	defer et.mu.Unlock()

	listeners := et.listeners[eventType]
	for i, l := range listeners {
		if l.Key == key && l.Capture == capture {
			et.listeners[eventType] = append(listeners[:i], listeners[i+1:]...)
			return
		}
	}
}

// HasEventListener reports whether a keyed listener is registered for eventType.
func (n *Node) HasEventListener(eventType, key string) bool {
	if n.events == nil {
		return false
	}
	n.events.mu.Lock()
	defer n.events.mu.Unlock()
	for _, l := range n.events.listeners[eventType] {
		if l.Key == key {
			return true
		}
	}
	return false
}

// ListenerCount returns the number of listeners registered for eventType.
func (n *Node) ListenerCount(eventType string) int {
	if n.events == nil {
		return 0
	}
	n.events.mu.Lock()
	defer n.events.mu.Unlock()
	return len(n.events.listeners[eventType])
}

// DispatchEvent dispatches ev at n through the capture, target and bubble
// phases. It returns false if a listener canceled the event.
func (n *Node) DispatchEvent(ev *Event) bool {
	ev.Target = n

	var path []*Node
	for p := n.parentNode; p != nil; p = p.parentNode {
		path = append(path, p)
	}

	for i := len(path) - 1; i >= 0 && !ev.stopPropagation; i-- {
		path[i].invoke(ev, EventPhaseCapturing)
	}
	if !ev.stopPropagation {
		n.invoke(ev, EventPhaseAtTarget)
	}
	if ev.Bubbles {
		for i := 0; i < len(path) && !ev.stopPropagation; i++ {
			path[i].invoke(ev, EventPhaseBubbling)
		}
	}

	ev.Phase = EventPhaseNone
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

func (n *Node) invoke(ev *Event, phase EventPhase) {
	if n.events == nil {
		return
	}
	et := n.events
	et.mu.Lock()
	listeners := append([]registeredListener(nil), et.listeners[ev.Type]...)
	et.mu.Unlock()

	ev.Phase = phase
	ev.CurrentTarget = n
	for _, l := range listeners {
		if phase == EventPhaseCapturing && !l.Capture {
			continue
		}
		if phase == EventPhaseBubbling && l.Capture {
			continue
		}
		if l.Once {
			n.removeListenerByID(ev.Type, l.id)
		}
		l.Handle(ev)
		if ev.stopImmediate {
			return
		}
	}
}

func (n *Node) removeListenerByID(eventType string, id int) {
	et := n.events
	et.mu.Lock()
	defer et.mu.Unlock()
	listeners := et.listeners[eventType]
	for i, l := range listeners {
		if l.id == id {
			et.listeners[eventType] = append(listeners[:i], listeners[i+1:]...)
			return
		}
	}
}

// AddEventListener registers a listener on the element.
func (e *Element) AddEventListener(eventType string, l Listener) bool {
	return e.AsNode().AddEventListener(eventType, l)
}

// DispatchEvent dispatches an event at the element.
func (e *Element) DispatchEvent(ev *Event) bool {
	return e.AsNode().DispatchEvent(ev)
}

// AddEventListener registers a listener on the document.
func (d *Document) AddEventListener(eventType string, l Listener) bool {
	return d.AsNode().AddEventListener(eventType, l)
}

// DispatchEvent dispatches an event at the document.
func (d *Document) DispatchEvent(ev *Event) bool {
	return d.AsNode().DispatchEvent(ev)
}
