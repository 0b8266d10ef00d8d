// Package fixture serves a small site described by a YAML manifest and runs
// scripted browsing scenarios against it. It backs `zsx serve` and
// `zsx check` and gives the engine tests a real server to talk to.
package fixture

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var defaultManifest []byte

// Manifest describes the pages of a site and the scenarios run against it.
type Manifest struct {
	Title     string     `yaml:"title"`
	Pages     []Page     `yaml:"pages"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Page is one route of the site. Body is an html/template executed with the
// request's form and query values; Redirect, when set, wins over Body.
type Page struct {
	Path        string            `yaml:"path"`
	Method      string            `yaml:"method"`
	Status      int               `yaml:"status"`
	ContentType string            `yaml:"content_type"`
	Redirect    string            `yaml:"redirect"`
	Headers     map[string]string `yaml:"headers"`
	Body        string            `yaml:"body"`
}

// Scenario is a scripted visit: load Start, then run Steps in order.
type Scenario struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	Steps []Step `yaml:"steps"`
}

// Step is a single action or expectation. Exactly one of Click, Submit, Back
// and Expect is set.
type Step struct {
	Click     string       `yaml:"click,omitempty"`
	Submit    string       `yaml:"submit,omitempty"`
	Submitter string       `yaml:"submitter,omitempty"`
	Set       []FieldValue `yaml:"set,omitempty"`
	Back      bool         `yaml:"back,omitempty"`
	Expect    *Expectation `yaml:"expect,omitempty"`
}

// FieldValue assigns Value to the form control found by Selector before a
// submit.
type FieldValue struct {
	Selector string `yaml:"selector"`
	Value    string `yaml:"value"`
}

// Expectation checks the page after the preceding steps.
type Expectation struct {
	Selector string `yaml:"selector,omitempty"`
	Text     string `yaml:"text,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Absent   bool   `yaml:"absent,omitempty"`
	URL      string `yaml:"url,omitempty"`
	History  int    `yaml:"history,omitempty"`
	Cookie   string `yaml:"cookie,omitempty"`
	Value    string `yaml:"value,omitempty"`
}

// Default returns the built-in demo manifest.
func Default() (*Manifest, error) {
	return ParseManifest(defaultManifest)
}

// LoadManifest reads and validates the manifest at path. An empty path
// loads the built-in demo.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a manifest, rejecting unknown keys.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate normalises methods and checks that routes are unique and steps
// well formed.
func (m *Manifest) Validate() error {
	if len(m.Pages) == 0 {
		return errors.New("manifest has no pages")
	}
	seen := make(map[string]bool, len(m.Pages))
	for i := range m.Pages {
		p := &m.Pages[i]
		if !strings.HasPrefix(p.Path, "/") {
			return fmt.Errorf("page %d: path %q must start with /", i, p.Path)
		}
		p.Method = strings.ToUpper(strings.TrimSpace(p.Method))
		if p.Method == "" {
			p.Method = http.MethodGet
		}
		if p.Method != http.MethodGet && p.Method != http.MethodPost {
			return fmt.Errorf("page %s: unsupported method %q", p.Path, p.Method)
		}
		if p.Status != 0 && (p.Status < 100 || p.Status > 599) {
			return fmt.Errorf("page %s: invalid status %d", p.Path, p.Status)
		}
		key := p.Method + " " + p.Path
		if seen[key] {
			return fmt.Errorf("duplicate page %s", key)
		}
		seen[key] = true
	}

	for _, s := range m.Scenarios {
		if s.Name == "" {
			return errors.New("scenario without a name")
		}
		if !strings.HasPrefix(s.Start, "/") {
			return fmt.Errorf("scenario %q: start %q must start with /", s.Name, s.Start)
		}
		for j, st := range s.Steps {
			if n := st.actions(); n != 1 {
				return fmt.Errorf("scenario %q step %d: want exactly one of click, submit, back, expect; got %d", s.Name, j+1, n)
			}
		}
	}
	return nil
}

func (s Step) actions() int {
	n := 0
	if s.Click != "" {
		n++
	}
	if s.Submit != "" {
		n++
	}
	if s.Back {
		n++
	}
	if s.Expect != nil {
		n++
	}
	return n
}

// Scenario returns the scenario called name.
func (m *Manifest) Scenario(name string) (Scenario, bool) {
	for _, s := range m.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}
