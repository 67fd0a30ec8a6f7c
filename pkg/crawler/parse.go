package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Page is the parsed content of one fetched HTML page.
type Page struct {
	URL   string
	Title string
	H1    string
	Text  string
	// Links are the raw href values in document order.
	Links []string
}

// DisplayTitle is <title>, else the first <h1>, else the page URL.
func (p *Page) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	if p.H1 != "" {
		return p.H1
	}
	return p.URL
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "pre": true,
	"blockquote": true, "header": true, "footer": true, "table": true, "ul": true, "ol": true,
}

// Parse reads an HTML document. It never fails on malformed markup, only on
// read errors.
func Parse(r io.Reader, pageURL string) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	page := &Page{URL: pageURL}
	var text strings.Builder

	var traverse func(*html.Node, bool)
	traverse = func(n *html.Node, skip bool) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "title":
				if page.Title == "" {
					page.Title = collapse(nodeText(n))
				}
			case "h1":
				if page.H1 == "" {
					page.H1 = collapse(nodeText(n))
				}
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						page.Links = append(page.Links, strings.TrimSpace(attr.Val))
					}
				}
			}
			if skippedElements[n.Data] {
				skip = true
			}
			if blockElements[n.Data] {
				text.WriteString("\n")
			}
		case html.TextNode:
			if !skip {
				text.WriteString(n.Data)
				text.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c, skip)
		}
	}
	traverse(doc, false)

	page.Text = cleanText(text.String())
	return page, nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanText collapses whitespace per line and drops empty lines.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = collapse(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// FilterOptions narrows the links followed from a seed page.
type FilterOptions struct {
	MaxLinks       int
	SameDomainOnly bool
	LinkPattern    string
}

// FilterLinks resolves hrefs against base and keeps the first MaxLinks
// distinct http(s) links that pass the filters, in document order. Fragment
// only, javascript:, mailto: and tel: links are dropped, and the seed itself
// is never returned.
func FilterLinks(base *url.URL, hrefs []string, opts FilterOptions) []string {
	seen := map[string]struct{}{canonical(base): {}}
	var out []string
	for _, href := range hrefs {
		if opts.MaxLinks > 0 && len(out) >= opts.MaxLinks {
			break
		}
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if opts.SameDomainOnly && !strings.EqualFold(abs.Hostname(), base.Hostname()) {
			continue
		}
		if opts.LinkPattern != "" && !strings.Contains(abs.Path, opts.LinkPattern) {
			continue
		}
		key := canonical(abs)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// canonical drops the fragment so page#a and page#b are one page.
func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}
