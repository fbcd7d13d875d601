package dom

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, markup string) *Page {
	t.Helper()
	page, err := ParseString(markup)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return page
}

func TestFindAllDocumentOrder(t *testing.T) {
	page := mustParse(t, `<html><body>
		<h2>second level</h2>
		<input id="a">
		<h1>top</h1>
		<textarea id="b"></textarea>
		<select id="c"></select>
	</body></html>`)

	headings := page.FindAll("h1", "h2", "h3")
	if len(headings) != 2 {
		t.Fatalf("expected 2 headings, got %d", len(headings))
	}
	if headings[0].Tag() != "h2" || headings[1].Tag() != "h1" {
		t.Errorf("headings not in document order: %s, %s", headings[0].Tag(), headings[1].Tag())
	}

	controls := page.FindAll("input", "textarea", "select")
	var ids []string
	for _, c := range controls {
		id, _ := c.Attr("id")
		ids = append(ids, id)
	}
	if got := strings.Join(ids, ","); got != "a,b,c" {
		t.Errorf("controls order = %q, want a,b,c", got)
	}

	if got := page.FindAll(); got != nil {
		t.Errorf("FindAll() with no tags = %v, want nil", got)
	}
}

func TestAttrDistinguishesAbsentFromEmpty(t *testing.T) {
	page := mustParse(t, `<img src="a.png" alt=""><img src="b.png">`)
	imgs := page.FindAll("img")
	if len(imgs) != 2 {
		t.Fatalf("expected 2 images, got %d", len(imgs))
	}

	if alt, ok := imgs[0].Attr("alt"); !ok || alt != "" {
		t.Errorf("first image alt = %q, %v; want empty and present", alt, ok)
	}
	if _, ok := imgs[1].Attr("alt"); ok {
		t.Error("second image should have no alt attribute")
	}
}

func TestTextIsTrimmed(t *testing.T) {
	page := mustParse(t, "<a href=\"/x\">\n\t  Read <b>more</b>  \n</a>")
	links := page.FindAll("a")
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if got := links[0].Text(); got != "Read more" {
		t.Errorf("Text() = %q, want %q", got, "Read more")
	}
}

func TestFindFirst(t *testing.T) {
	page := mustParse(t, `<label for="email">Email</label>
		<label for="email">Email again</label>
		<label for="name">Name</label>`)

	label, ok := page.FindFirst("label", "for", "email")
	if !ok {
		t.Fatal("expected a label for email")
	}
	if label.Text() != "Email" {
		t.Errorf("FindFirst returned %q, want the first match", label.Text())
	}

	if _, ok := page.FindFirst("label", "for", "missing"); ok {
		t.Error("unexpected label for missing id")
	}
	// Attribute values containing selector syntax must be compared literally.
	if _, ok := page.FindFirst("label", "for", `email"], label[for="name`); ok {
		t.Error("attribute value should not be interpreted as a selector")
	}
}

func TestRoot(t *testing.T) {
	page := mustParse(t, `<!doctype html><html lang="en"><body></body></html>`)
	root, ok := page.Root()
	if !ok {
		t.Fatal("expected html root")
	}
	if lang, _ := root.Attr("lang"); lang != "en" {
		t.Errorf("lang = %q, want en", lang)
	}

	// The HTML parser always synthesizes an html element.
	fragment := mustParse(t, `<p>no explicit html tag</p>`)
	root, ok = fragment.Root()
	if !ok {
		t.Fatal("expected synthesized html root")
	}
	if _, has := root.Attr("lang"); has {
		t.Error("synthesized root should not carry lang")
	}
}

func TestParseDecodesDeclaredCharset(t *testing.T) {
	// "café" encoded as ISO-8859-1.
	body := "<html><body><h1>caf\xe9</h1></body></html>"
	page, err := Parse(strings.NewReader(body), "text/html; charset=iso-8859-1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h := page.FindAll("h1")
	if len(h) != 1 || h[0].Text() != "café" {
		t.Errorf("decoded heading = %v", h)
	}
}

func TestNoscriptContentIsParsed(t *testing.T) {
	page := mustParse(t, `<html><head><noscript><link rel="stylesheet" href="x.css"></noscript></head>
<body><noscript><img src="https://tracker.example/px"></noscript>
<noscript><a href="/js">click here</a></noscript></body></html>`)

	imgs := page.FindAll("img")
	if len(imgs) != 1 {
		t.Fatalf("expected 1 img inside noscript, got %d", len(imgs))
	}
	if src, _ := imgs[0].Attr("src"); src != "https://tracker.example/px" {
		t.Errorf("img src = %q", src)
	}
	links := page.FindAll("a")
	if len(links) != 1 || links[0].Text() != "click here" {
		t.Errorf("links = %d, want one with text %q", len(links), "click here")
	}
}
