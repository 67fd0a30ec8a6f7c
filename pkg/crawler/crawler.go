package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Page, error)
}

// Result is the outcome of a crawl before anything is stored.
type Result struct {
	Seed *Page
	// Pages holds the seed first, then every linked page that fetched successfully.
	Pages []*Page
	// Attempted counts the seed plus every link that was tried.
	Attempted int
	// Skipped lists links the skip callback rejected.
	Skipped []string
}

// Crawl fetches the seed and, when asked, the filtered links of the seed.
// A seed failure aborts the crawl. Link failures are logged and skipped.
// skip is consulted before each link fetch so already known pages are not downloaded.
func Crawl(ctx context.Context, f PageFetcher, opts Options, skip func(pageURL string) bool) (*Result, error) {
	seedURL, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	seed, err := f.Fetch(ctx, seedURL.String())
	if err != nil {
		return nil, err
	}
	if opts.Title != "" {
		seed.Title = strings.TrimSpace(opts.Title)
	}
	// canonical seed url, not the one after redirects
	seed.URL = seedURL.String()

	res := &Result{Seed: seed, Pages: []*Page{seed}, Attempted: 1}
	if !opts.CrawlLinks {
		return res, nil
	}

	base, err := url.Parse(seed.URL)
	if err != nil {
		return res, nil
	}
	for _, link := range FilterLinks(base, seed.Links, opts.filter()) {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++
		if skip != nil && skip(link) {
			res.Skipped = append(res.Skipped, link)
			continue
		}
		page, err := f.Fetch(ctx, link)
		if err != nil {
			slog.Warn("failed to fetch linked page", slog.String("url", link), slog.String("seed", seed.URL),
				slog.String("error", err.Error()), slog.String("component", "crawler"))
			continue
		}
		page.URL = link
		res.Pages = append(res.Pages, page)
	}
	return res, nil
}

// Merge concatenates the pages into one body, each page under its title.
func Merge(pages []*Page) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("# ")
		b.WriteString(p.DisplayTitle())
		b.WriteString("\n")
		b.WriteString(p.URL)
		b.WriteString("\n\n")
		b.WriteString(p.Text)
	}
	return b.String()
}

// Content renders one page as document content.
func Content(p *Page) string {
	return Merge([]*Page{p})
}
