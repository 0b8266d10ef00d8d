package zsx

import (
	"strings"

	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/network"
)

// Source is the element that started a navigation: a Link or a Form.
type Source interface {
	// Element returns the link or form element.
	Element() *dom.Element
	source()
}

// Link is a navigation started from an anchor.
type Link struct {
	Anchor *dom.Element
}

func (l Link) Element() *dom.Element { return l.Anchor }
func (Link) source()                 {}

// Form is a navigation started by submitting a form. Submitter is the button
// used, or nil.
type Form struct {
	Form      *dom.Element
	Submitter *dom.Element
}

func (f Form) Element() *dom.Element { return f.Form }
func (Form) source()                 {}

// TriggerKind tells links from forms.
type TriggerKind int

const (
	KindLink TriggerKind = iota
	KindForm
)

func (k TriggerKind) String() string {
	if k == KindForm {
		return "form"
	}
	return "link"
}

// Attr is an optional attribute value.
type Attr struct {
	Value   string
	Present bool
}

// JumpGuard is the zx-jump-guard setting of a trigger.
type JumpGuard int

const (
	JumpGuardUnset JumpGuard = iota
	JumpGuardOn
	JumpGuardOff
)

// LinkMode is the zx-link-mode setting of a trigger.
type LinkMode int

const (
	LinkModeDefault LinkMode = iota
	LinkModeApp
)

// Trigger describes a navigation independently of the element that started it.
type Trigger struct {
	Kind       TriggerKind
	Method     string
	URL        string
	Swap       Attr
	JumpGuard  JumpGuard
	LinkMode   LinkMode
	ScrollTo   Attr
	SyncParams Attr

	Element   *dom.Element
	Submitter *dom.Element
}

// SourceFor wraps el as a navigation source. Anchors become links and forms
// become forms; submitter is only kept for forms.
func SourceFor(el, submitter *dom.Element) (Source, error) {
	if el == nil {
		return nil, &Error{Kind: ElementTypeError, Op: "trigger", Err: ErrNotTrigger}
	}
	switch el.LocalName() {
	case "a":
		return Link{Anchor: el}, nil
	case "form":
		return Form{Form: el, Submitter: submitter}, nil
	}
	return nil, &Error{Kind: ElementTypeError, Op: "trigger", Err: ErrNotTrigger}
}

// Normalize builds the trigger descriptor for src.
func Normalize(src Source) Trigger {
	switch s := src.(type) {
	case Link:
		return normalizeLink(s)
	case Form:
		return normalizeForm(s)
	}
	return Trigger{}
}

func normalizeLink(l Link) Trigger {
	a := l.Anchor
	ref, ok := a.Attr(AttrDataHref)
	if !ok {
		ref = a.GetAttribute("href")
	}
	t := Trigger{
		Kind:    KindLink,
		Method:  "get",
		URL:     resolveRef(a.OwnerDocument(), ref),
		Element: a,
	}
	t.readAttrs(a, nil)
	return t
}

func normalizeForm(f Form) Trigger {
	form, btn := f.Form, f.Submitter

	method := coalesce(form, btn, "method", "formmethod")
	action := coalesce(form, btn, "action", "formaction")

	t := Trigger{
		Kind:      KindForm,
		Method:    normalizeMethod(method.Value),
		URL:       resolveRef(form.OwnerDocument(), action.Value),
		Element:   form,
		Submitter: btn,
	}
	t.readAttrs(form, btn)
	return t
}

func (t *Trigger) readAttrs(owner, submitter *dom.Element) {
	t.Swap = coalesce(owner, submitter, AttrSwap, AttrSwap)
	t.ScrollTo = coalesce(owner, submitter, AttrScrollTo, AttrScrollTo)
	t.SyncParams = coalesce(owner, submitter, AttrSyncParams, AttrSyncParams)

	switch jg := coalesce(owner, submitter, AttrJumpGuard, AttrJumpGuard); {
	case !jg.Present:
		t.JumpGuard = JumpGuardUnset
	case jg.Value == "true":
		t.JumpGuard = JumpGuardOn
	default:
		t.JumpGuard = JumpGuardOff
	}

	if coalesce(owner, submitter, AttrLinkMode, AttrLinkMode).Value == "app" {
		t.LinkMode = LinkModeApp
	}
}

// coalesce reads submitterName from the submitter when it carries it and
// ownerName from the owner otherwise.
func coalesce(owner, submitter *dom.Element, ownerName, submitterName string) Attr {
	if submitter != nil {
		if v, ok := submitter.Attr(submitterName); ok {
			return Attr{Value: v, Present: true}
		}
	}
	if owner != nil {
		if v, ok := owner.Attr(ownerName); ok {
			return Attr{Value: v, Present: true}
		}
	}
	return Attr{}
}

func normalizeMethod(m string) string {
	switch m = strings.ToLower(strings.TrimSpace(m)); m {
	case "get", "post":
		return m
	}
	return "get"
}

// resolveRef resolves ref against the document address. An empty ref is the
// document itself.
func resolveRef(doc *dom.Document, ref string) string {
	ref = strings.TrimSpace(ref)
	if doc == nil {
		return ref
	}
	base := doc.URL()
	if base == "" || base == "about:blank" {
		return ref
	}
	abs, err := network.ResolveURL(base, ref)
	if err != nil {
		return ref
	}
	return abs
}
