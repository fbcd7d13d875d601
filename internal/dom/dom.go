// Package dom exposes a read-only view of a parsed HTML document.
//
// The audit rules only ever need four things from a page: every element with
// a given tag, attribute lookup that can tell "absent" from "empty", trimmed
// text content, and a first-match lookup by attribute value. Tree and Element
// capture exactly that so the rules never touch the parser directly.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Element is a single node of the document tree.
type Element interface {
	// Tag returns the lower-cased element name (e.g. "img").
	Tag() string
	// Attr returns the attribute value and whether the attribute is present.
	Attr(name string) (string, bool)
	// Text returns the element's text content with surrounding whitespace removed.
	Text() string
}

// Tree is the document handle consumed by the audit rules.
type Tree interface {
	// FindAll returns every element matching any of tags, in document order.
	FindAll(tags ...string) []Element
	// FindFirst returns the first element named tag whose attr equals value.
	FindFirst(tag, attr, value string) (Element, bool)
	// Root returns the document's html element.
	Root() (Element, bool)
}

// Page is a Tree backed by a goquery document.
type Page struct {
	doc *goquery.Document
}

// Parse decodes r using the charset announced by contentType (or sniffed from
// the markup) and parses it as HTML.
func Parse(r io.Reader, contentType string) (*Page, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}

	// Scripting off: noscript content is parsed as elements, not raw text
	root, err := html.ParseWithOptions(utf8Reader, html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return &Page{doc: goquery.NewDocumentFromNode(root)}, nil
}

// ParseString parses UTF-8 markup held in memory.
func ParseString(markup string) (*Page, error) {
	return Parse(strings.NewReader(markup), "text/html; charset=utf-8")
}

func (p *Page) FindAll(tags ...string) []Element {
	if len(tags) == 0 {
		return nil
	}
	sel := p.doc.Find(strings.Join(tags, ", "))
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, element{sel: s})
	})
	return elements
}

func (p *Page) FindFirst(tag, attr, value string) (Element, bool) {
	match := p.doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(attr)
		return ok && v == value
	}).First()
	if match.Length() == 0 {
		return nil, false
	}
	return element{sel: match}, true
}

func (p *Page) Root() (Element, bool) {
	root := p.doc.Find("html").First()
	if root.Length() == 0 {
		return nil, false
	}
	return element{sel: root}, true
}

// element wraps a single-node selection.
type element struct {
	sel *goquery.Selection
}

func (e element) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e element) Text() string {
	return strings.TrimSpace(e.sel.Text())
}
