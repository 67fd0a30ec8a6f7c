package v1_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/app/core"
	v1 "github.com/quka-ai/ragstore/app/logic/v1"
	"github.com/quka-ai/ragstore/pkg/crawler"
	"github.com/quka-ai/ragstore/pkg/types"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]*crawler.Page
	calls map[string]int
}

func newFakeFetcher(pages ...*crawler.Page) *fakeFetcher {
	f := &fakeFetcher{pages: map[string]*crawler.Page{}, calls: map[string]int{}}
	for _, p := range pages {
		f.pages[p.URL] = p
	}
	return f
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) (*crawler.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[pageURL]++
	p, ok := f.pages[pageURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s returned status 404", crawler.ErrFetch, pageURL)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeFetcher) Calls(pageURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pageURL]
}

func siteFetcher() *fakeFetcher {
	return newFakeFetcher(
		&crawler.Page{
			URL:   "https://example.com/",
			Title: "Home",
			Text:  "Welcome to Example. Alice maintains the Docs.",
			Links: []string{"#top", "/guide", "mailto:team@example.com", "/api", "/blog", "https://other.org/x"},
		},
		&crawler.Page{URL: "https://example.com/guide", Title: "Guide", Text: "The Guide covers Setup and Tuning."},
		&crawler.Page{URL: "https://example.com/api", Title: "API", Text: "Bob owns the Search API."},
		&crawler.Page{URL: "https://example.com/blog", Title: "Blog", Text: "Carol writes the Blog."},
	)
}

func TestCrawlMaxLinks(t *testing.T) {
	fetcher := siteFetcher()
	c, p := NewCore(t, memStores(t), core.WithFetcher(fetcher))
	ctx := wsCtx(wsA)

	res, err := v1.NewCrawlLogic(ctx, c).Crawl(crawler.Options{URL: "https://example.com/", CrawlLinks: true, MaxLinks: 2})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_SUCCESS, res.Status)
	assert.Regexp(t, `^crawl_\d{8}_\d{6}_[0-9a-f]{8}$`, res.TrackID)
	assert.Equal(t, "fetched 3 of 3 pages (seed+links), 3 queued", res.Message)
	assert.Zero(t, fetcher.Calls("https://example.com/blog"))
	p.Wait()

	track, err := v1.NewDocumentLogic(ctx, c).TrackStatus(res.TrackID)
	require.NoError(t, err)
	require.Equal(t, 3, track.TotalCount)
	assert.Equal(t, 3, track.StatusSummary[types.DOC_STATUS_PROCESSED])

	var paths []string
	for _, d := range track.Documents {
		paths = append(paths, d.FilePath)
		assert.Equal(t, res.TrackID, d.TrackID)
	}
	assert.ElementsMatch(t, []string{"https://example.com/", "https://example.com/guide", "https://example.com/api"}, paths)

	// known pages are neither fetched nor queued again
	again, err := v1.NewCrawlLogic(ctx, c).Crawl(crawler.Options{URL: "https://example.com/", CrawlLinks: true, MaxLinks: 2})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_DUPLICATED, again.Status)
	assert.Equal(t, "fetched 1 of 3 pages (seed+links), 0 queued", again.Message)
	assert.Equal(t, 1, fetcher.Calls("https://example.com/guide"))
	assert.Equal(t, 1, fetcher.Calls("https://example.com/api"))
}

func TestCrawlKnownSeedIsNotFetched(t *testing.T) {
	fetcher := siteFetcher()
	c, p := NewCore(t, memStores(t), core.WithFetcher(fetcher))
	logic := v1.NewCrawlLogic(wsCtx(wsA), c)

	res, err := logic.Crawl(crawler.Options{URL: "https://example.com/guide"})
	require.NoError(t, err)
	assert.Equal(t, "fetched 1 of 1 pages (seed+links), 1 queued", res.Message)
	p.Wait()

	again, err := logic.Crawl(crawler.Options{URL: "https://example.com/guide"})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_DUPLICATED, again.Status)
	assert.Equal(t, res.TrackID, again.TrackID)
	assert.Equal(t, 1, fetcher.Calls("https://example.com/guide"))
}

func TestCrawlMergePages(t *testing.T) {
	fetcher := siteFetcher()
	c, p := NewCore(t, memStores(t), core.WithFetcher(fetcher))
	ctx := wsCtx(wsA)

	res, err := v1.NewCrawlLogic(ctx, c).Crawl(crawler.Options{
		URL: "https://example.com/", CrawlLinks: true, MaxLinks: 3, MergePages: true, SameDomainOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "fetched 4 of 4 pages (seed+links), 1 queued", res.Message)
	p.Wait()

	track, err := v1.NewDocumentLogic(ctx, c).TrackStatus(res.TrackID)
	require.NoError(t, err)
	require.Equal(t, 1, track.TotalCount)
	assert.Equal(t, "https://example.com/", track.Documents[0].FilePath)
	assert.Equal(t, types.DOC_STATUS_PROCESSED, track.Documents[0].Status)
}

func TestCrawlSeedFailure(t *testing.T) {
	stores := memStores(t)
	c, _ := NewCore(t, stores, core.WithFetcher(siteFetcher()))
	logic := v1.NewCrawlLogic(wsCtx(wsA), c)

	_, err := logic.Crawl(crawler.Options{URL: "https://example.com/missing", CrawlLinks: true})
	requireCode(t, err, http.StatusBadRequest)

	_, err = logic.Crawl(crawler.Options{URL: "ftp://example.com/"})
	requireCode(t, err, http.StatusBadRequest)
	_, err = logic.Crawl(crawler.Options{URL: "https://example.com/", MaxLinks: 101})
	requireCode(t, err, http.StatusBadRequest)

	docs, err := stores.DocStatus.Find(context.Background(), wsA, types.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCrawlLinkFailureIsSoft(t *testing.T) {
	fetcher := newFakeFetcher(&crawler.Page{
		URL:   "https://example.com/",
		Title: "Home",
		Text:  "Welcome to Example.",
		Links: []string{"/gone", "/guide"},
	}, &crawler.Page{URL: "https://example.com/guide", Title: "Guide", Text: "The Guide."})
	c, p := NewCore(t, memStores(t), core.WithFetcher(fetcher))

	res, err := v1.NewCrawlLogic(wsCtx(wsA), c).Crawl(crawler.Options{URL: "https://example.com/", CrawlLinks: true})
	require.NoError(t, err)
	assert.Equal(t, "fetched 2 of 3 pages (seed+links), 2 queued", res.Message)
	p.Wait()
}
