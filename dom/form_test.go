package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formPage = `<body>
<form id="f" method="post" action="/save">
  <input name="title" value="draft">
  <input type="checkbox" name="agree" value="yes">
  <input type="radio" name="size" value="s" checked>
  <input type="radio" name="size" value="l">
  <select name="color"><option>red</option><option value="b" selected>blue</option></select>
  <textarea name="body">hello</textarea>
  <input name="off" disabled value="x">
  <button id="save" name="action" value="save">Save</button>
  <button id="plain" type="button" name="noop">No</button>
</form>
<input id="outside" name="note" form="f" value="out">
<input id="stray" name="stray" value="no">
</body>`

func TestForm_Controls(t *testing.T) {
	doc := mustParse(t, formPage)
	form := doc.GetElementById("f")

	var names []string
	for _, c := range form.FormControls() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"title", "agree", "size", "size", "color", "body", "off", "action", "noop", "note"}, names)
	assert.Same(t, form, doc.GetElementById("outside").FormOwner())
	assert.Nil(t, doc.GetElementById("stray").FormOwner())
}

func TestForm_FormData(t *testing.T) {
	doc := mustParse(t, formPage)
	form := doc.GetElementById("f")
	save := doc.GetElementById("save")

	want := []FormEntry{
		{Name: "title", Value: "draft"},
		{Name: "size", Value: "s"},
		{Name: "color", Value: "b"},
		{Name: "body", Value: "hello"},
		{Name: "action", Value: "save"},
		{Name: "note", Value: "out"},
	}
	assert.Equal(t, want, form.FormData(save))
	assert.NotContains(t, form.FormData(nil), FormEntry{Name: "action", Value: "save"})
}

func TestForm_ValueAndChecked(t *testing.T) {
	doc := mustParse(t, formPage)
	controls := doc.GetElementById("f").FormControls()

	title := controls[0]
	title.SetValue("final")
	assert.Equal(t, "final", title.Value())
	assert.Equal(t, "draft", title.GetAttribute("value"), "the value attribute is the default value")

	agree := controls[1]
	assert.False(t, agree.Checked())
	agree.Click()
	assert.True(t, agree.Checked())

	large := controls[3]
	large.SetChecked(true)
	assert.False(t, controls[2].Checked(), "checking a radio unchecks its group")

	color := controls[4]
	color.SetValue("red")
	assert.Equal(t, "red", color.Value())

	body := controls[5]
	body.SetValue("changed")
	assert.Equal(t, "changed", body.Value())
}

func TestForm_ClickSubmitsOwner(t *testing.T) {
	doc := mustParse(t, formPage)
	form := doc.GetElementById("f")

	var submitter *Element
	submits := 0
	form.AddEventListener("submit", Listener{Handle: func(ev *Event) {
		submits++
		submitter = ev.Submitter
		ev.PreventDefault()
	}})

	doc.GetElementById("plain").Click()
	assert.Equal(t, 0, submits, "type=button does not submit")

	doc.GetElementById("save").Click()
	require.Equal(t, 1, submits)
	assert.Same(t, doc.GetElementById("save"), submitter)
}

func TestForm_CanceledClickRevertsCheckbox(t *testing.T) {
	doc := mustParse(t, formPage)
	agree := doc.GetElementById("f").FormControls()[1]
	agree.AddEventListener("click", Listener{Handle: func(ev *Event) { ev.PreventDefault() }})

	assert.False(t, agree.Click())
	assert.False(t, agree.Checked())
}
