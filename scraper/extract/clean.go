package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var spaceRe = regexp.MustCompile(`\s+`)

// noise is removed before any text is produced.
const noise = "head, script, style, noscript, svg, iframe, template"

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"section": true, "table": true, "tr": true, "ul": true,
}

// Page is a fetched document reduced to what the probe and the extractor need.
type Page struct {
	// Text is the whole document as collapsed plain text.
	Text string
	// Content is the selected region rendered as lightweight markdown.
	Content string
	// Blocks is the number of elements that matched the selector.
	Blocks int
}

// Clean parses rawHTML, strips noise and renders the elements matching selector
// (the whole body when selector is empty). Relative links and image sources are
// resolved against pageURL.
func Clean(rawHTML, pageURL, selector string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(noise).Remove()

	base, _ := url.Parse(pageURL)

	page := Page{Text: collapse(doc.Find("body").Text())}
	if page.Text == "" {
		page.Text = collapse(doc.Text())
	}

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	if selector != "" {
		sel = doc.Find(selector)
	}
	page.Blocks = sel.Length()

	blocks := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		var b strings.Builder
		for _, n := range s.Nodes {
			render(&b, n, base)
		}
		if md := tidy(b.String()); md != "" {
			blocks = append(blocks, md)
		}
	})
	page.Content = strings.Join(blocks, "\n\n---\n\n")

	return page, nil
}

// ContainsMarker reports whether text contains marker, ignoring case and
// differences in whitespace.
func ContainsMarker(text, marker string) bool {
	marker = collapse(marker)
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(collapse(text)), strings.ToLower(marker))
}

func render(b *strings.Builder, n *html.Node, base *url.URL) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(b, c, base)
		}
		return
	}

	switch n.Data {
	case "img":
		if src := resolve(base, attr(n, "src")); src != "" {
			fmt.Fprintf(b, " ![%s](%s) ", collapse(attr(n, "alt")), src)
		}
		return
	case "a":
		var inner strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(&inner, c, base)
		}
		text := collapse(inner.String())
		if href := resolve(base, attr(n, "href")); href != "" && !strings.HasPrefix(href, "javascript:") {
			fmt.Fprintf(b, " [%s](%s) ", text, href)
		} else {
			b.WriteString(" " + text + " ")
		}
		return
	}

	block := blockTags[n.Data]
	if block {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		render(b, c, base)
	}
	if block {
		b.WriteString("\n")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// tidy collapses runs of spaces inside lines and drops empty lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
