package zsx

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/roryl/zsx/dom"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Storage is the key/value area persisted forms are written to.
// *storage.Area satisfies it.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// PersistKey returns the storage key of the form with the given id.
func PersistKey(formID string) string {
	return PersistKeyPrefix + formID
}

// persistedFields returns the named fields of form whose values are saved,
// including fields outside the form that reference it by id.
func persistedFields(form *dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, c := range form.FormControls() {
		if c.Name() == "" {
			continue
		}
		switch c.LocalName() {
		case "select", "textarea":
		case "input":
			switch c.Type() {
			case "submit", "image", "button", "reset", "file":
				continue
			}
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}

func isCheckable(el *dom.Element) bool {
	if el.LocalName() != "input" {
		return false
	}
	t := el.Type()
	return t == "checkbox" || t == "radio"
}

func (e *Engine) persistKey(form *dom.Element) (string, bool) {
	id := form.Id()
	if id == "" {
		e.logger.Warn("cannot persist a form without an id")
		return "", false
	}
	return PersistKey(id), true
}

func (e *Engine) loadPersisted(ctx context.Context, key string) (map[string]string, error) {
	raw, ok, err := e.storage.GetItem(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	values := make(map[string]string)
	if !ok || raw == "" {
		return values, nil
	}
	if err := json.UnmarshalFromString(raw, &values); err != nil {
		e.logger.Warn("discarding unreadable persisted form", zap.String("key", key), zap.Error(err))
		return make(map[string]string), nil
	}
	return values, nil
}

func (e *Engine) storePersisted(ctx context.Context, key string, values map[string]string) error {
	raw, err := json.MarshalToString(values)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := e.storage.SetItem(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// PersistForm saves the values of every tracked field of form.
func (e *Engine) PersistForm(ctx context.Context, form *dom.Element) error {
	key, ok := e.persistKey(form)
	if !ok {
		return nil
	}
	values := make(map[string]string)
	for _, f := range persistedFields(form) {
		if isCheckable(f) && !f.Checked() {
			continue
		}
		values[f.Name()] = f.Value()
	}
	return e.storePersisted(ctx, key, values)
}

// PersistField saves the value of one field of form, keeping the others.
func (e *Engine) PersistField(ctx context.Context, form, field *dom.Element) error {
	key, ok := e.persistKey(form)
	if !ok || field.Name() == "" {
		return nil
	}
	values, err := e.loadPersisted(ctx, key)
	if err != nil {
		return err
	}
	if isCheckable(field) && !field.Checked() {
		if field.Type() == "checkbox" || values[field.Name()] == field.Value() {
			delete(values, field.Name())
		}
	} else {
		values[field.Name()] = field.Value()
	}
	return e.storePersisted(ctx, key, values)
}

// RestoreForm writes the saved values back into form and fires a bubbling
// change event at every field it touched.
func (e *Engine) RestoreForm(ctx context.Context, form *dom.Element) error {
	key, ok := e.persistKey(form)
	if !ok {
		return nil
	}
	values, err := e.loadPersisted(ctx, key)
	if err != nil || len(values) == 0 {
		return err
	}

	for _, f := range persistedFields(form) {
		v, ok := values[f.Name()]
		if !ok {
			continue
		}
		if isCheckable(f) {
			if f.Value() != v {
				continue
			}
			f.SetChecked(true)
		} else {
			f.SetValue(v)
		}
		f.DispatchEvent(dom.NewEvent("change", dom.EventInit{Bubbles: true}))
	}
	return nil
}

// ClearForm forgets the saved values of form.
func (e *Engine) ClearForm(ctx context.Context, form *dom.Element) error {
	key, ok := e.persistKey(form)
	if !ok {
		return nil
	}
	if err := e.storage.RemoveItem(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// DecoratePersistForm saves field changes of form as they happen and clears
// them when the form is submitted. Decorating twice has no effect.
func (e *Engine) DecoratePersistForm(form *dom.Element) {
	if form.Id() == "" {
		e.logger.Warn("zx-persist form has no id")
		return
	}

	onChange := func(ev *dom.Event) {
		if ev.Target == nil || ev.Target.NodeType() != dom.ElementNode {
			return
		}
		field := (*dom.Element)(ev.Target)
		if field.FormOwner() != form {
			return
		}
		if err := e.PersistField(e.ctx, form, field); err != nil {
			e.logger.Warn("persist field", zap.String("form", form.Id()), zap.Error(err))
		}
	}

	form.AddEventListener("change", dom.Listener{Key: keyPersistInput, Handle: onChange})
	for _, f := range persistedFields(form) {
		if form.AsNode().Contains(f.AsNode()) {
			continue
		}
		// Fields outside the form do not bubble into it.
		f.AddEventListener("change", dom.Listener{Key: keyPersistInput + ":" + form.Id(), Handle: onChange})
	}

	form.AddEventListener("submit", dom.Listener{Key: keyPersistSave, Handle: func(*dom.Event) {
		if err := e.ClearForm(e.ctx, form); err != nil {
			e.logger.Warn("clear persisted form", zap.String("form", form.Id()), zap.Error(err))
		}
	}})
}

// RestorePersistedForms restores every zx-persist form in the document.
func (e *Engine) RestorePersistedForms(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, form := range e.persistForms(e.doc.AsNode()) {
		if err := e.RestoreForm(ctx, form); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) persistForms(root *dom.Node) []*dom.Element {
	forms, err := e.compiler.QueryAll(root, `form[`+AttrPersist+`="true"]`)
	if err != nil {
		return nil
	}
	return forms
}
