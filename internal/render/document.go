// Package render holds the server-side render surface: an HTML document
// whose bilingual nodes the preference controller shows and hides.
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"hanru_board/internal/preference"
)

// Document is a goquery document guarded for concurrent writers. Appending
// markup notifies observers, which is how late content gets the mode applied.
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document

	obsMu     sync.Mutex
	observers map[int]func()
	next      int
}

var (
	_ preference.Surface    = (*Document)(nil)
	_ preference.Observable = (*Document)(nil)
)

func Parse(markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("render.Parse: %w", err)
	}
	return &Document{doc: doc, observers: make(map[int]func())}, nil
}

// Nodes returns every element tagged with a language variant class.
func (d *Document) Nodes() []preference.Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := d.doc.Find("." + preference.KoreanTag + ", ." + preference.RussianTag)
	nodes := make([]preference.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &element{doc: d, sel: s})
	})
	return nodes
}

// SetAttribute marks both <html> and <body>.
func (d *Document) SetAttribute(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Find("html, body").SetAttr(name, value)
}

// Append parses fragment into every element matching selector.
func (d *Document) Append(selector, fragment string) error {
	d.mu.Lock()
	target := d.doc.Find(selector)
	if target.Length() == 0 {
		d.mu.Unlock()
		return fmt.Errorf("render.Append: no element matches %q", selector)
	}
	target.AppendHtml(fragment)
	d.mu.Unlock()

	d.notify()
	return nil
}

func (d *Document) Observe(fn func()) func() {
	d.obsMu.Lock()
	id := d.next
	d.next++
	d.observers[id] = fn
	d.obsMu.Unlock()

	return func() {
		d.obsMu.Lock()
		delete(d.observers, id)
		d.obsMu.Unlock()
	}
}

func (d *Document) notify() {
	d.obsMu.Lock()
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

type element struct {
	doc *Document
	sel *goquery.Selection
}

func (e *element) HasClass(class string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.sel.HasClass(class)
}

// SetVisibility uses the hidden attribute plus display:none so the node
// takes no space whatever the page stylesheet says.
func (e *element) SetVisibility(v preference.Visibility) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	style, _ := e.sel.Attr("style")
	collapsed := v == preference.Collapsed
	style = withDisplayNone(style, collapsed)

	if collapsed {
		e.sel.SetAttr("hidden", "")
	} else {
		e.sel.RemoveAttr("hidden")
	}
	if style == "" {
		e.sel.RemoveAttr("style")
	} else {
		e.sel.SetAttr("style", style)
	}
}

// withDisplayNone drops any display declaration from style and, when
// collapsed, appends display:none.
func withDisplayNone(style string, collapsed bool) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, _, _ := strings.Cut(decl, ":")
		if strings.EqualFold(strings.TrimSpace(prop), "display") {
			continue
		}
		kept = append(kept, decl)
	}
	if collapsed {
		kept = append(kept, "display:none")
	}
	return strings.Join(kept, ";")
}
