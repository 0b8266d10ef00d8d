package dom

import (
	"strings"
)

// controlState is the part of a form control's state that is not reflected
// in markup: the dirty value and dirty checkedness.
type controlState struct {
	value   *string
	checked *bool
}

func (s *controlState) clone() *controlState {
	if s == nil {
		return nil
	}
	c := &controlState{}
	if s.value != nil {
		v := *s.value
		c.value = &v
	}
	if s.checked != nil {
		b := *s.checked
		c.checked = &b
	}
	return c
}

func (e *Element) control() *controlState {
	if e.elementData.form == nil {
		e.elementData.form = &controlState{}
	}
	return e.elementData.form
}

// FormEntry is one name/value pair of a form's data set.
type FormEntry struct {
	Name  string
	Value string
}

// Name returns the name attribute.
func (e *Element) Name() string {
	return e.GetAttribute("name")
}

// Type returns the lower-cased control type, applying the HTML defaults
// for inputs and buttons.
func (e *Element) Type() string {
	t := strings.ToLower(strings.TrimSpace(e.GetAttribute("type")))
	switch e.LocalName() {
	case "input":
		if t == "" {
			return "text"
		}
	case "button":
		if t != "reset" && t != "button" {
			return "submit"
		}
	}
	return t
}

// IsFormControl reports whether the element is a listed, submittable control.
func (e *Element) IsFormControl() bool {
	switch e.LocalName() {
	case "input", "select", "textarea", "button":
		return true
	}
	return false
}

// IsSubmitButton reports whether activating the element submits its form.
func (e *Element) IsSubmitButton() bool {
	switch e.LocalName() {
	case "button":
		return e.Type() == "submit"
	case "input":
		t := e.Type()
		return t == "submit" || t == "image"
	}
	return false
}

func (e *Element) isCheckable() bool {
	if e.LocalName() != "input" {
		return false
	}
	t := e.Type()
	return t == "checkbox" || t == "radio"
}

// Value returns the current value of a form control.
func (e *Element) Value() string {
	switch e.LocalName() {
	case "input":
		if st := e.elementData.form; st != nil && st.value != nil {
			return *st.value
		}
		if v, ok := e.Attr("value"); ok {
			return v
		}
		if e.isCheckable() {
			return "on"
		}
		return ""
	case "textarea":
		if st := e.elementData.form; st != nil && st.value != nil {
			return *st.value
		}
		return e.TextContent()
	case "select":
		for _, opt := range e.GetElementsByTagName("option") {
			if opt.Selected() {
				return opt.Value()
			}
		}
		if opts := e.GetElementsByTagName("option"); len(opts) > 0 {
			return opts[0].Value()
		}
		return ""
	case "option":
		if v, ok := e.Attr("value"); ok {
			return v
		}
		return strings.Join(strings.Fields(e.TextContent()), " ")
	}
	return e.GetAttribute("value")
}

// SetValue sets the current value of a form control. For selects it selects
// the first option with that value.
func (e *Element) SetValue(value string) {
	switch e.LocalName() {
	case "input", "textarea":
		e.control().value = &value
	case "select":
		matched := false
		for _, opt := range e.GetElementsByTagName("option") {
			sel := !matched && opt.Value() == value
			if sel {
				matched = true
			}
			opt.control().checked = &sel
		}
	default:
		e.SetAttribute("value", value)
	}
}

// Selected reports whether an option is selected.
func (e *Element) Selected() bool {
	if st := e.elementData.form; st != nil && st.checked != nil {
		return *st.checked
	}
	return e.HasAttribute("selected")
}

// Checked reports the checkedness of a checkbox or radio button.
func (e *Element) Checked() bool {
	if st := e.elementData.form; st != nil && st.checked != nil {
		return *st.checked
	}
	return e.HasAttribute("checked")
}

// SetChecked sets the checkedness of a checkbox or radio button. Checking a
// radio button unchecks the others in its group.
func (e *Element) SetChecked(checked bool) {
	e.control().checked = &checked
	if !checked || e.Type() != "radio" || e.Name() == "" {
		return
	}
	owner := e.FormOwner()
	scope := e.AsNode().GetRootNode()
	walkElements(scope, func(other *Element) bool {
		if other != e && other.LocalName() == "input" && other.Type() == "radio" &&
			other.Name() == e.Name() && other.FormOwner() == owner {
			f := false
			other.control().checked = &f
		}
		return true
	})
}

// Disabled reports whether the control carries the disabled attribute.
func (e *Element) Disabled() bool {
	return e.HasAttribute("disabled")
}

// FormOwner returns the form a control belongs to: the form named by its
// form attribute, otherwise its nearest form ancestor.
func (e *Element) FormOwner() *Element {
	if id, ok := e.Attr("form"); ok {
		root := e.AsNode().GetRootNode()
		if f := getElementByID(root, id); f != nil && f.LocalName() == "form" {
			return f
		}
		return nil
	}
	if p := e.ParentElement(); p != nil {
		return p.Closest("form")
	}
	return nil
}

// FormControls returns every control associated with the form, in tree order,
// including controls outside the form that reference it by id.
func (e *Element) FormControls() []*Element {
	var out []*Element
	walkElements(e.AsNode().GetRootNode(), func(el *Element) bool {
		if el.IsFormControl() && el.FormOwner() == e {
			out = append(out, el)
		}
		return true
	})
	return out
}

// FormData builds the form's data set. submitter, when non-nil, contributes
// its own name and value.
func (e *Element) FormData(submitter *Element) []FormEntry {
	var entries []FormEntry
	for _, c := range e.FormControls() {
		name := c.Name()
		if name == "" || c.Disabled() {
			continue
		}
		switch {
		case c.LocalName() == "button" || (c.LocalName() == "input" && (c.IsSubmitButton() || c.Type() == "button" || c.Type() == "reset")):
			if c != submitter {
				continue
			}
			entries = append(entries, FormEntry{Name: name, Value: c.Value()})
		case c.isCheckable():
			if c.Checked() {
				entries = append(entries, FormEntry{Name: name, Value: c.Value()})
			}
		case c.LocalName() == "select":
			for _, opt := range c.GetElementsByTagName("option") {
				if opt.Selected() {
					entries = append(entries, FormEntry{Name: name, Value: opt.Value()})
				}
			}
		case c.LocalName() == "input" && c.Type() == "file":
		default:
			entries = append(entries, FormEntry{Name: name, Value: c.Value()})
		}
	}
	return entries
}

// RequestSubmit fires a cancelable submit event at the form. It returns false
// if a listener canceled it.
func (e *Element) RequestSubmit(submitter *Element) bool {
	return e.DispatchEvent(NewEvent("submit", EventInit{
		Bubbles:    true,
		Cancelable: true,
		Submitter:  submitter,
	}))
}

// Click fires a click event and runs the element's activation behavior when
// the event is not canceled: submit buttons submit their form owner and
// checkboxes toggle.
func (e *Element) Click() bool {
	var before *controlState
	if e.isCheckable() {
		before = e.elementData.form.clone()
		if e.Type() == "checkbox" {
			e.SetChecked(!e.Checked())
		} else {
			e.SetChecked(true)
		}
	}
	ok := e.DispatchEvent(NewEvent("click", EventInit{Bubbles: true, Cancelable: true}))
	if !ok {
		if e.isCheckable() {
			e.elementData.form = before
		}
		return false
	}
	if e.IsSubmitButton() && !e.Disabled() {
		if form := e.FormOwner(); form != nil {
			form.RequestSubmit(e)
		}
	}
	return true
}
