package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestFilterLinks(t *testing.T) {
	base := mustURL(t, "https://example.com/docs/index.html")
	hrefs := []string{
		"#top",
		"javascript:void(0)",
		"mailto:a@example.com",
		"tel:+123",
		"JavaScript:alert(1)",
		"guide.html",
		"/docs/api.html#section",
		"/docs/api.html#other",
		"https://other.org/docs/x",
		"ftp://example.com/file",
		"https://example.com/docs/index.html",
		"/blog/post",
		"",
	}

	links := FilterLinks(base, hrefs, FilterOptions{MaxLinks: 10})
	assert.Equal(t, []string{
		"https://example.com/docs/guide.html",
		"https://example.com/docs/api.html",
		"https://other.org/docs/x",
		"https://example.com/blog/post",
	}, links)

	links = FilterLinks(base, hrefs, FilterOptions{MaxLinks: 10, SameDomainOnly: true, LinkPattern: "/docs/"})
	assert.Equal(t, []string{
		"https://example.com/docs/guide.html",
		"https://example.com/docs/api.html",
	}, links)

	links = FilterLinks(base, hrefs, FilterOptions{MaxLinks: 1})
	assert.Equal(t, []string{"https://example.com/docs/guide.html"}, links)
}

func TestFilterLinksProperties(t *testing.T) {
	base := mustURL(t, "http://site.test/a/")
	var hrefs []string
	for i := range 50 {
		hrefs = append(hrefs, fmt.Sprintf("p%d", i%20), fmt.Sprintf("#f%d", i), "mailto:x@y.z")
	}

	for _, max := range []int{1, 5, 20, 100} {
		links := FilterLinks(base, hrefs, FilterOptions{MaxLinks: max, SameDomainOnly: true})
		assert.LessOrEqual(t, len(links), max)

		seen := map[string]bool{}
		for _, l := range links {
			assert.False(t, seen[l], "duplicate link %s", l)
			seen[l] = true
			u := mustURL(t, l)
			assert.Equal(t, "site.test", u.Host)
			assert.Empty(t, u.Fragment)
			assert.Contains(t, []string{"http", "https"}, u.Scheme)
		}
	}
}

func TestParse(t *testing.T) {
	page, err := Parse(strings.NewReader(`<html><head><title> Hello
	World </title><style>.x{}</style></head>
	<body><h1>Heading</h1><script>var a=1;</script><p>First  paragraph.</p><p>Second <a href="/x">link</a></p></body></html>`), "https://e.com/")
	require.NoError(t, err)

	assert.Equal(t, "Hello World", page.Title)
	assert.Equal(t, "Heading", page.H1)
	assert.Equal(t, []string{"/x"}, page.Links)
	assert.Equal(t, "Heading\nFirst paragraph.\nSecond link", page.Text)
	assert.NotContains(t, page.Text, "var a")
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "T", (&Page{Title: "T", H1: "H", URL: "u"}).DisplayTitle())
	assert.Equal(t, "H", (&Page{H1: "H", URL: "u"}).DisplayTitle())
	assert.Equal(t, "u", (&Page{URL: "u"}).DisplayTitle())
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: " https://e.com/a#frag "}
	u, err := o.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "https://e.com/a", u.String())
	assert.Equal(t, DefaultMaxLinks, o.MaxLinks)

	for _, bad := range []Options{
		{URL: "ftp://e.com"},
		{URL: "/relative"},
		{URL: "https://e.com", MaxLinks: 101},
		{URL: "https://e.com", MaxLinks: -1},
	} {
		_, err := bad.Normalize()
		assert.ErrorIs(t, err, ErrInvalidOptions, bad.URL)
	}
}

func newSite(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Home</title></head><body><p>Welcome</p>
			<a href="/one">one</a><a href="/two">two</a><a href="/three">three</a><a href="/broken">broken</a></body></html>`)
	})
	for _, name := range []string{"one", "two", "three"} {
		name := name
		mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><h1>Page %s</h1><p>content %s</p></body></html>`, name, name)
		})
	}
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/file.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawl(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Config{RatePerSec: 1000, Burst: 10})

	res, err := Crawl(context.Background(), f, Options{URL: srv.URL + "/", CrawlLinks: true, MaxLinks: 2}, nil)
	require.NoError(t, err)
	require.Len(t, res.Pages, 3)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, "Home", res.Seed.DisplayTitle())
	assert.Equal(t, "Page one", res.Pages[1].DisplayTitle())
	assert.Equal(t, srv.URL+"/two", res.Pages[2].URL)

	res, err = Crawl(context.Background(), f, Options{URL: srv.URL + "/", CrawlLinks: true, MaxLinks: 10}, func(u string) bool {
		return strings.HasSuffix(u, "/one")
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Attempted)
	assert.Len(t, res.Pages, 3)
	assert.Equal(t, []string{srv.URL + "/one"}, res.Skipped)

	res, err = Crawl(context.Background(), f, Options{URL: srv.URL + "/", Title: "Custom"}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 1)
	assert.Equal(t, "Custom", res.Seed.DisplayTitle())
}

func TestCrawlSeedFailure(t *testing.T) {
	srv := newSite(t)
	f := NewFetcher(Config{RatePerSec: 1000, Burst: 10})

	_, err := Crawl(context.Background(), f, Options{URL: srv.URL + "/broken"}, nil)
	assert.ErrorIs(t, err, ErrFetch)

	_, err = Crawl(context.Background(), f, Options{URL: srv.URL + "/file.json"}, nil)
	assert.ErrorIs(t, err, ErrFetch)

	_, err = Crawl(context.Background(), f, Options{URL: "not a url"}, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestMerge(t *testing.T) {
	out := Merge([]*Page{
		{URL: "https://a", Title: "A", Text: "alpha"},
		{URL: "https://b", Text: "beta"},
	})
	assert.Equal(t, "# A\nhttps://a\n\nalpha\n\n# https://b\nhttps://b\n\nbeta", out)
}
