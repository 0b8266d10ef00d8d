package js

import (
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/dop251/goja"

	"github.com/roryl/zsx/css"
	"github.com/roryl/zsx/dom"
)

// eventProperty holds the Go event behind a JavaScript event object. It is
// defined non-enumerable so scripts do not see it in for..in loops.
const eventProperty = "__goEvent"

// DetailMapper is implemented by event details that carry DOM references.
// DOM elements among the values become bound JavaScript elements.
type DetailMapper interface {
	DetailMap() map[string]interface{}
}

// CookieStore is the document.cookie backing.
type CookieStore interface {
	Cookie() string
	SetCookie(string)
}

// DOMBinder exposes a dom.Document to scripts. Wrapper objects are cached
// per node so that the same element always yields the same object.
type DOMBinder struct {
	runtime  *Runtime
	doc      *dom.Document
	compiler *css.Compiler
	cookies  CookieStore

	nodes     map[*dom.Node]*goja.Object
	elements  map[*goja.Object]*dom.Element
	listeners map[*goja.Object]string
	nextKey   int
	current   *dom.Element
	mu        sync.Mutex
}

// NewDOMBinder creates a binder for doc. compiler may be nil.
func NewDOMBinder(runtime *Runtime, doc *dom.Document, compiler *css.Compiler) *DOMBinder {
	if compiler == nil {
		compiler = css.NewCompiler(css.DefaultCacheSize)
	}
	return &DOMBinder{
		runtime:   runtime,
		doc:       doc,
		compiler:  compiler,
		nodes:     make(map[*dom.Node]*goja.Object),
		elements:  make(map[*goja.Object]*dom.Element),
		listeners: make(map[*goja.Object]string),
	}
}

// SetCookieStore sets the backing of document.cookie.
func (b *DOMBinder) SetCookieStore(c CookieStore) {
	b.cookies = c
}

// SetCurrentScript sets document.currentScript. Pass nil to clear it.
func (b *DOMBinder) SetCurrentScript(el *dom.Element) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = el
}

// Bind installs document, location and the event constructors.
func (b *DOMBinder) Bind() {
	b.runtime.Do(func(vm *goja.Runtime) {
		vm.Set("document", b.bindDocument(vm))
		vm.Set("location", b.bindLocation(vm))
		vm.Set("Event", b.eventConstructor(vm))
		vm.Set("CustomEvent", b.eventConstructor(vm))
	})
}

// BindElement returns the wrapper for el. Callers must hold the VM.
func (b *DOMBinder) BindElement(el *dom.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	return b.wrap(b.runtime.vm, el)
}

func (b *DOMBinder) wrap(vm *goja.Runtime, el *dom.Element) *goja.Object {
	b.mu.Lock()
	obj, ok := b.nodes[el.AsNode()]
	b.mu.Unlock()
	if ok {
		return obj
	}

	obj = vm.NewObject()
	b.bindElement(vm, obj, el)

	b.mu.Lock()
	b.nodes[el.AsNode()] = obj
	b.elements[obj] = el
	b.mu.Unlock()
	return obj
}

func (b *DOMBinder) wrapOrNull(vm *goja.Runtime, el *dom.Element) goja.Value {
	if el == nil {
		return goja.Null()
	}
	return b.wrap(vm, el)
}

func (b *DOMBinder) wrapAll(vm *goja.Runtime, els []*dom.Element) goja.Value {
	out := make([]interface{}, len(els))
	for i, el := range els {
		out[i] = b.wrap(vm, el)
	}
	return vm.NewArray(out...)
}

// unwrap returns the element behind a wrapper object.
func (b *DOMBinder) unwrap(v goja.Value) *dom.Element {
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.elements[obj]
}

// throw raises err as a JavaScript exception, keeping DOMException names.
func throw(vm *goja.Runtime, err error) {
	obj := vm.NewGoError(err)
	var de *dom.DOMError
	if errors.As(err, &de) {
		obj.Set("name", de.Name)
		obj.Set("message", de.Message)
	}
	panic(obj)
}

func accessor(vm *goja.Runtime, obj *goja.Object, name string, get func() interface{}, set func(goja.Value)) {
	getter := vm.ToValue(func(goja.FunctionCall) goja.Value {
		v := get()
		if gv, ok := v.(goja.Value); ok {
			return gv
		}
		return vm.ToValue(v)
	})
	var setter goja.Value
	if set != nil {
		setter = vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (b *DOMBinder) bindElement(vm *goja.Runtime, obj *goja.Object, el *dom.Element) {
	accessor(vm, obj, "tagName", func() interface{} { return el.TagName() }, nil)
	accessor(vm, obj, "id", func() interface{} { return el.Id() }, func(v goja.Value) { el.SetId(v.String()) })
	accessor(vm, obj, "className", func() interface{} { return el.ClassName() }, func(v goja.Value) {
		el.SetAttribute("class", v.String())
	})
	accessor(vm, obj, "textContent", func() interface{} { return el.TextContent() }, func(v goja.Value) {
		el.SetTextContent(v.String())
	})
	accessor(vm, obj, "innerHTML", func() interface{} { return el.InnerHTML() }, func(v goja.Value) {
		if err := el.SetInnerHTML(v.String()); err != nil {
			throw(vm, err)
		}
	})
	accessor(vm, obj, "outerHTML", func() interface{} { return el.OuterHTML() }, nil)
	accessor(vm, obj, "value", func() interface{} { return el.Value() }, func(v goja.Value) { el.SetValue(v.String()) })
	accessor(vm, obj, "checked", func() interface{} { return el.Checked() }, func(v goja.Value) { el.SetChecked(v.ToBoolean()) })
	accessor(vm, obj, "name", func() interface{} { return el.Name() }, nil)
	accessor(vm, obj, "type", func() interface{} { return el.Type() }, nil)
	accessor(vm, obj, "scrollTop", func() interface{} { return el.ScrollTop() }, func(v goja.Value) {
		el.SetScrollTop(v.ToFloat())
	})
	accessor(vm, obj, "scrollHeight", func() interface{} { return el.ScrollHeight() }, nil)
	accessor(vm, obj, "parentElement", func() interface{} { return b.wrapOrNull(vm, el.ParentElement()) }, nil)
	accessor(vm, obj, "children", func() interface{} { return b.wrapAll(vm, el.Children()) }, nil)
	accessor(vm, obj, "isConnected", func() interface{} { return el.AsNode().IsConnected() }, nil)
	accessor(vm, obj, "classList", func() interface{} { return b.classList(vm, el) }, nil)
	accessor(vm, obj, "style", func() interface{} { return b.style(vm, el) }, nil)

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := el.Attr(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		el.SetAttribute(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		el.RemoveAttribute(call.Argument(0).String())
		return goja.Undefined()
	})
	obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(el.HasAttribute(call.Argument(0).String()))
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		found, err := b.compiler.Query(el.AsNode(), call.Argument(0).String())
		if err != nil {
			throw(vm, err)
		}
		return b.wrapOrNull(vm, found)
	})
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		found, err := b.compiler.QueryAll(el.AsNode(), call.Argument(0).String())
		if err != nil {
			throw(vm, err)
		}
		return b.wrapAll(vm, found)
	})
	obj.Set("matches", func(call goja.FunctionCall) goja.Value {
		ok, err := b.compiler.Matches(el, call.Argument(0).String())
		if err != nil {
			throw(vm, err)
		}
		return vm.ToValue(ok)
	})
	obj.Set("closest", func(call goja.FunctionCall) goja.Value {
		selector := call.Argument(0).String()
		for cur := el; cur != nil; cur = cur.ParentElement() {
			ok, err := b.compiler.Matches(cur, selector)
			if err != nil {
				throw(vm, err)
			}
			if ok {
				return b.wrap(vm, cur)
			}
		}
		return goja.Null()
	})
	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := b.unwrap(call.Argument(0))
		if child == nil {
			panic(vm.NewTypeError("appendChild: argument is not an element"))
		}
		if _, err := el.AsNode().AppendChildWithError(child.AsNode()); err != nil {
			throw(vm, err)
		}
		return call.Argument(0)
	})
	obj.Set("remove", func(goja.FunctionCall) goja.Value {
		el.Remove()
		return goja.Undefined()
	})
	obj.Set("click", func(goja.FunctionCall) goja.Value {
		el.Click()
		return goja.Undefined()
	})
	obj.Set("requestSubmit", func(call goja.FunctionCall) goja.Value {
		el.RequestSubmit(b.unwrap(call.Argument(0)))
		return goja.Undefined()
	})
	obj.Set("getBoundingClientRect", func(goja.FunctionCall) goja.Value {
		r := el.GetBoundingClientRect()
		return vm.ToValue(map[string]interface{}{
			"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height,
			"top": r.Top(), "bottom": r.Bottom(), "left": r.X, "right": r.X + r.Width,
		})
	})

	b.bindEventTarget(vm, obj, el.AsNode())
}

func (b *DOMBinder) classList(vm *goja.Runtime, el *dom.Element) *goja.Object {
	list := el.ClassList()
	obj := vm.NewObject()
	accessor(vm, obj, "length", func() interface{} { return list.Length() }, nil)
	accessor(vm, obj, "value", func() interface{} { return list.Value() }, nil)
	tokens := func(call goja.FunctionCall) []string {
		out := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			out[i] = a.String()
		}
		return out
	}
	obj.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(list.Contains(call.Argument(0).String()))
	})
	obj.Set("add", func(call goja.FunctionCall) goja.Value {
		if err := list.Add(tokens(call)...); err != nil {
			throw(vm, err)
		}
		return goja.Undefined()
	})
	obj.Set("remove", func(call goja.FunctionCall) goja.Value {
		if err := list.Remove(tokens(call)...); err != nil {
			throw(vm, err)
		}
		return goja.Undefined()
	})
	obj.Set("toggle", func(call goja.FunctionCall) goja.Value {
		token := call.Argument(0).String()
		var err error
		on := !list.Contains(token)
		if on {
			err = list.Add(token)
		} else {
			err = list.Remove(token)
		}
		if err != nil {
			throw(vm, err)
		}
		return vm.ToValue(on)
	})
	return obj
}

func (b *DOMBinder) style(vm *goja.Runtime, el *dom.Element) *goja.Object {
	obj := vm.NewObject()
	accessor(vm, obj, "cssText", func() interface{} { return el.Style().CSSText() }, func(v goja.Value) {
		el.SetAttribute("style", v.String())
	})
	obj.Set("getPropertyValue", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(el.Style().GetPropertyValue(call.Argument(0).String()))
	})
	obj.Set("setProperty", func(call goja.FunctionCall) goja.Value {
		el.Style().SetProperty(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("removeProperty", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(el.Style().RemoveProperty(call.Argument(0).String()))
	})
	for _, prop := range []string{"minHeight", "display", "height", "width"} {
		prop := prop
		cssName := camelToKebab(prop)
		accessor(vm, obj, prop, func() interface{} { return el.Style().GetPropertyValue(cssName) }, func(v goja.Value) {
			el.Style().SetProperty(cssName, v.String())
		})
	}
	return obj
}

func camelToKebab(s string) string {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			out = append(out, '-', c+('a'-'A'))
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

func (b *DOMBinder) bindDocument(vm *goja.Runtime) *goja.Object {
	doc := b.doc
	obj := vm.NewObject()

	accessor(vm, obj, "URL", func() interface{} { return doc.URL() }, nil)
	accessor(vm, obj, "title", func() interface{} { return doc.Title() }, nil)
	accessor(vm, obj, "documentElement", func() interface{} { return b.wrapOrNull(vm, doc.DocumentElement()) }, nil)
	accessor(vm, obj, "head", func() interface{} { return b.wrapOrNull(vm, doc.Head()) }, nil)
	accessor(vm, obj, "body", func() interface{} { return b.wrapOrNull(vm, doc.Body()) }, nil)
	accessor(vm, obj, "currentScript", func() interface{} {
		b.mu.Lock()
		cur := b.current
		b.mu.Unlock()
		return b.wrapOrNull(vm, cur)
	}, nil)
	accessor(vm, obj, "cookie", func() interface{} {
		if b.cookies == nil {
			return ""
		}
		return b.cookies.Cookie()
	}, func(v goja.Value) {
		if b.cookies != nil {
			b.cookies.SetCookie(v.String())
		}
	})

	obj.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return b.wrapOrNull(vm, doc.GetElementById(call.Argument(0).String()))
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		found, err := b.compiler.Query(doc.AsNode(), call.Argument(0).String())
		if err != nil {
			throw(vm, err)
		}
		return b.wrapOrNull(vm, found)
	})
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		found, err := b.compiler.QueryAll(doc.AsNode(), call.Argument(0).String())
		if err != nil {
			throw(vm, err)
		}
		return b.wrapAll(vm, found)
	})
	obj.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return b.wrap(vm, doc.CreateElement(call.Argument(0).String()))
	})

	b.bindEventTarget(vm, obj, doc.AsNode())
	return obj
}

// bindLocation exposes the document URL read-only; it follows SetURL.
func (b *DOMBinder) bindLocation(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	parsed := func() *url.URL {
		u, err := url.Parse(b.doc.URL())
		if err != nil {
			return &url.URL{}
		}
		return u
	}
	accessor(vm, obj, "href", func() interface{} { return b.doc.URL() }, nil)
	accessor(vm, obj, "protocol", func() interface{} { return parsed().Scheme + ":" }, nil)
	accessor(vm, obj, "host", func() interface{} { return parsed().Host }, nil)
	accessor(vm, obj, "hostname", func() interface{} { return parsed().Hostname() }, nil)
	accessor(vm, obj, "port", func() interface{} { return parsed().Port() }, nil)
	accessor(vm, obj, "origin", func() interface{} {
		u := parsed()
		return u.Scheme + "://" + u.Host
	}, nil)
	accessor(vm, obj, "pathname", func() interface{} {
		if p := parsed().EscapedPath(); p != "" {
			return p
		}
		return "/"
	}, nil)
	accessor(vm, obj, "search", func() interface{} {
		if q := parsed().RawQuery; q != "" {
			return "?" + q
		}
		return ""
	}, nil)
	accessor(vm, obj, "hash", func() interface{} {
		if f := parsed().EscapedFragment(); f != "" {
			return "#" + f
		}
		return ""
	}, nil)
	obj.Set("toString", func(goja.FunctionCall) goja.Value { return vm.ToValue(b.doc.URL()) })
	return obj
}

// bindEventTarget adds addEventListener, removeEventListener and
// dispatchEvent to obj, routed to node's listener list.
func (b *DOMBinder) bindEventTarget(vm *goja.Runtime, obj *goja.Object, node *dom.Node) {
	obj.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		fnObj, ok := call.Argument(1).(*goja.Object)
		if !ok {
			return goja.Undefined()
		}
		fn, ok := goja.AssertFunction(fnObj)
		if !ok {
			return goja.Undefined()
		}
		capture, once := listenerOptions(call.Argument(2))
		node.AddEventListener(call.Argument(0).String(), dom.Listener{
			Key:     b.listenerKey(fnObj),
			Capture: capture,
			Once:    once,
			Handle: func(ev *dom.Event) {
				b.runtime.enter(func() {
					b.runtime.call(fn, obj, b.wrapEvent(vm, ev))
				})
			},
		})
		return goja.Undefined()
	})
	obj.Set("removeEventListener", func(call goja.FunctionCall) goja.Value {
		fnObj, ok := call.Argument(1).(*goja.Object)
		if !ok {
			return goja.Undefined()
		}
		b.mu.Lock()
		key, ok := b.listeners[fnObj]
		b.mu.Unlock()
		if ok {
			capture, _ := listenerOptions(call.Argument(2))
			node.RemoveEventListener(call.Argument(0).String(), key, capture)
		}
		return goja.Undefined()
	})
	obj.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		ev := eventOf(call.Argument(0))
		if ev == nil {
			panic(vm.NewTypeError("dispatchEvent: argument is not an Event"))
		}
		return vm.ToValue(node.DispatchEvent(ev))
	})
}

// listenerKey gives each listener function a stable key, so adding the same
// function twice registers it once.
func (b *DOMBinder) listenerKey(fn *goja.Object) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if key, ok := b.listeners[fn]; ok {
		return key
	}
	b.nextKey++
	key := "js:" + strconv.Itoa(b.nextKey)
	b.listeners[fn] = key
	return key
}

func listenerOptions(v goja.Value) (capture, once bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return false, false
	}
	if obj, ok := v.(*goja.Object); ok {
		if c := obj.Get("capture"); c != nil {
			capture = c.ToBoolean()
		}
		if o := obj.Get("once"); o != nil {
			once = o.ToBoolean()
		}
		return capture, once
	}
	return v.ToBoolean(), false
}

func eventOf(v goja.Value) *dom.Event {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	hidden := obj.Get(eventProperty)
	if hidden == nil {
		return nil
	}
	ev, _ := hidden.Export().(*dom.Event)
	return ev
}

// eventConstructor implements new Event(type, init) and
// new CustomEvent(type, init).
func (b *DOMBinder) eventConstructor(vm *goja.Runtime) func(goja.ConstructorCall) *goja.Object {
	return func(call goja.ConstructorCall) *goja.Object {
		var init dom.EventInit
		if opts, ok := call.Argument(1).(*goja.Object); ok {
			if v := opts.Get("bubbles"); v != nil {
				init.Bubbles = v.ToBoolean()
			}
			if v := opts.Get("cancelable"); v != nil {
				init.Cancelable = v.ToBoolean()
			}
			if v := opts.Get("detail"); v != nil && !goja.IsUndefined(v) {
				init.Detail = v
			}
		}
		return b.wrapEvent(vm, dom.NewEvent(call.Argument(0).String(), init))
	}
}

// wrapEvent builds a live view of ev; every accessor reads the Go event.
func (b *DOMBinder) wrapEvent(vm *goja.Runtime, ev *dom.Event) *goja.Object {
	obj := vm.NewObject()
	obj.DefineDataProperty(eventProperty, vm.ToValue(ev), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

	nodeValue := func(n *dom.Node) goja.Value {
		switch {
		case n == nil:
			return goja.Null()
		case n.NodeType() == dom.ElementNode:
			return b.wrap(vm, (*dom.Element)(n))
		default:
			return vm.Get("document")
		}
	}

	accessor(vm, obj, "type", func() interface{} { return ev.Type }, nil)
	accessor(vm, obj, "bubbles", func() interface{} { return ev.Bubbles }, nil)
	accessor(vm, obj, "cancelable", func() interface{} { return ev.Cancelable }, nil)
	accessor(vm, obj, "defaultPrevented", func() interface{} { return ev.DefaultPrevented() }, nil)
	accessor(vm, obj, "eventPhase", func() interface{} { return int(ev.Phase) }, nil)
	accessor(vm, obj, "target", func() interface{} { return nodeValue(ev.Target) }, nil)
	accessor(vm, obj, "currentTarget", func() interface{} { return nodeValue(ev.CurrentTarget) }, nil)
	accessor(vm, obj, "submitter", func() interface{} { return b.wrapOrNull(vm, ev.Submitter) }, nil)
	accessor(vm, obj, "detail", func() interface{} { return b.detailValue(vm, ev.Detail) }, nil)

	obj.Set("preventDefault", func(goja.FunctionCall) goja.Value {
		ev.PreventDefault()
		return goja.Undefined()
	})
	obj.Set("stopPropagation", func(goja.FunctionCall) goja.Value {
		ev.StopPropagation()
		return goja.Undefined()
	})
	obj.Set("stopImmediatePropagation", func(goja.FunctionCall) goja.Value {
		ev.StopImmediatePropagation()
		return goja.Undefined()
	})
	return obj
}

func (b *DOMBinder) detailValue(vm *goja.Runtime, detail interface{}) goja.Value {
	switch d := detail.(type) {
	case nil:
		return goja.Null()
	case goja.Value:
		return d
	case *dom.Element:
		return b.wrapOrNull(vm, d)
	case DetailMapper:
		out := vm.NewObject()
		for k, v := range d.DetailMap() {
			if el, ok := v.(*dom.Element); ok {
				out.Set(k, b.wrapOrNull(vm, el))
				continue
			}
			out.Set(k, v)
		}
		return out
	default:
		return vm.ToValue(detail)
	}
}
