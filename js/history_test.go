package js

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageState struct {
	URI       string   `json:"uri"`
	Selectors []string `json:"selectors"`
}

func TestHistoryPushAndTraverse(t *testing.T) {
	hm := NewHistoryManager("http://example.com/start")

	require.NoError(t, hm.PushState(pageState{URI: "/a", Selectors: []string{"#main"}}, "", "/a"))
	require.NoError(t, hm.PushState(map[string]interface{}{"n": 2}, "", "b?x=1"))

	assert.Equal(t, 3, hm.Len())
	assert.Equal(t, "http://example.com/b?x=1", hm.URL())

	type pop struct {
		state interface{}
		url   string
	}
	var pops []pop
	hm.OnPopState(func(state interface{}, url string) {
		pops = append(pops, pop{state, url})
	})

	require.True(t, hm.Back())
	assert.Equal(t, "http://example.com/a", hm.URL())
	require.Len(t, pops, 1)
	assert.Equal(t, map[string]interface{}{
		"uri":       "/a",
		"selectors": []interface{}{"#main"},
	}, pops[0].state, "states come back as plain JSON values")

	assert.True(t, hm.Go(-1))
	assert.Nil(t, hm.State())
	assert.False(t, hm.Back(), "no entry before the first")
	assert.False(t, hm.Go(0))
	assert.Len(t, pops, 2)

	// Pushing from the middle drops forward entries.
	require.True(t, hm.Forward())
	require.NoError(t, hm.PushState(nil, "", "/c"))
	urls := []string{}
	for _, e := range hm.Entries() {
		urls = append(urls, e.URL)
	}
	assert.Equal(t, []string{"http://example.com/start", "http://example.com/a", "http://example.com/c"}, urls)
}

func TestHistoryStateIsCloned(t *testing.T) {
	hm := NewHistoryManager("http://example.com/")
	state := map[string]interface{}{"selectors": []string{"#a"}}
	require.NoError(t, hm.PushState(state, "", ""))

	state["selectors"] = []string{"#changed"}
	assert.Equal(t, []interface{}{"#a"}, hm.State().(map[string]interface{})["selectors"])
	assert.Equal(t, "http://example.com/", hm.URL(), "an empty URL keeps the current one")
}

func TestHistoryReplaceAndCrossOrigin(t *testing.T) {
	hm := NewHistoryManager("http://example.com/one")
	require.NoError(t, hm.ReplaceState("s", "", "/two"))
	assert.Equal(t, 1, hm.Len())
	assert.Equal(t, "http://example.com/two", hm.URL())
	assert.Equal(t, "s", hm.State())

	assert.ErrorIs(t, hm.PushState(nil, "", "http://evil.test/"), ErrCrossOrigin)
	assert.Equal(t, 1, hm.Len())

	_, err := NewHistoryManager("").resolve("/x")
	assert.NoError(t, err, "about:blank accepts any URL")
}

func TestHistoryBinding(t *testing.T) {
	hm := NewHistoryManager("http://example.com/")
	r := NewRuntime()
	var navigated []string
	hm.Bind(r, func(u string) { navigated = append(navigated, u) })

	_, err := r.Execute(`history.pushState({page: 1}, "", "/p1")`)
	require.NoError(t, err)

	result, err := r.Execute("history.length + ':' + history.state.page")
	require.NoError(t, err)
	assert.Equal(t, "2:1", result)
	assert.Equal(t, []string{"http://example.com/p1"}, navigated)

	_, err = r.Execute(`history.pushState(null, "", "https://other.test/")`)
	assert.Error(t, err)

	popped := make(chan string, 1)
	hm.OnPopState(func(_ interface{}, u string) { popped <- u })
	_, err = r.Execute("history.back()")
	require.NoError(t, err)

	select {
	case u := <-popped:
		assert.Equal(t, "http://example.com/", u)
	case <-time.After(time.Second):
		t.Fatal("popstate handler was not called")
	}
}
