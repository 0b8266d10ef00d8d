package zsx

import (
	"net/url"
	"strings"

	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/network"
)

// ParseSyncParams parses a zx-sync-params value into an ordered set of
// parameter names.
func ParseSyncParams(attr string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(attr, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// SyncLinkParams copies the params of sourceURI onto every link in doc that
// points at the same path, deleting them from links where the source lacks
// them. A link listing a param in its own zx-sync-params keeps its value.
// It returns the number of links rewritten.
func SyncLinkParams(doc *dom.Document, sourceURI string, params []string) int {
	if len(params) == 0 {
		return 0
	}
	src, err := url.Parse(sourceURI)
	if err != nil {
		return 0
	}
	srcQuery := network.ParseQuery(src.RawQuery)
	srcBase := network.BasePath(src)

	rewritten := 0
	for _, a := range doc.GetElementsByTagName("a") {
		attr := "href"
		if a.GetAttribute(AttrLinkMode) == "app" {
			attr = AttrDataHref
		}
		ref, ok := a.Attr(attr)
		if !ok {
			continue
		}
		u, err := url.Parse(resolveRef(doc, ref))
		if err != nil || network.BasePath(u) != srcBase {
			continue
		}

		optOut := splitExact(a.GetAttribute(AttrSyncParams))
		q := network.ParseQuery(u.RawQuery)
		before := q.Encode()
		for _, p := range params {
			if optOut[p] {
				continue
			}
			if v, ok := srcQuery.Get(p); ok {
				q = q.Set(p, v)
			} else {
				q = q.Delete(p)
			}
		}
		if q.Encode() == before {
			continue
		}
		a.SetAttribute(attr, network.WithQuery(u, q).String())
		rewritten++
	}
	return rewritten
}

func splitExact(attr string) map[string]bool {
	if attr == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, p := range strings.Split(attr, ",") {
		out[strings.TrimSpace(p)] = true
	}
	return out
}
