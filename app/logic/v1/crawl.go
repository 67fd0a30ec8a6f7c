package v1

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/pkg/crawler"
	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/i18n"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

type CrawlLogic struct {
	ctx  context.Context
	core *core.Core
	ws   types.Workspace
}

func NewCrawlLogic(ctx context.Context, core *core.Core) *CrawlLogic {
	return &CrawlLogic{
		ctx:  ctx,
		core: core,
		ws:   SetupWorkspace(ctx, core),
	}
}

// Crawl fetches a page and optionally its links, then hands the pages to the
// document lifecycle under one track id. Pages whose URL is already the
// file_path of a live document are not downloaded again.
func (l *CrawlLogic) Crawl(opts crawler.Options) (types.InsertResponse, error) {
	seedURL, err := opts.Normalize()
	if err != nil {
		return types.InsertResponse{}, errors.New("CrawlLogic.Crawl.Options.Normalize", err.Error(), err).Code(http.StatusBadRequest)
	}

	docs := NewDocumentLogic(l.ctx, l.core)
	known := func(pageURL string) bool {
		doc, err := docs.findActive(types.DocumentFilter{FilePath: pageURL})
		if err != nil {
			slog.Warn("failed to check crawled url", slog.String("url", pageURL), slog.String("workspace", l.ws.String()),
				slog.String("error", err.Error()), slog.String("component", "crawl"))
			return false
		}
		return doc != nil
	}

	trackID := utils.GenTrackID(TRACK_PREFIX_CRAWL)
	if !opts.CrawlLinks && !opts.MergePages {
		if doc, _ := docs.findActive(types.DocumentFilter{FilePath: seedURL.String()}); doc != nil {
			l.core.Metrics().CrawlPageInc("skipped")
			return types.InsertResponse{
				Status:  types.INSERT_STATUS_DUPLICATED,
				Message: fmt.Sprintf("File source '%s' already exists in document storage (Status: %s).", doc.FilePath, doc.Status),
				TrackID: doc.TrackID,
			}, nil
		}
	}

	var skip func(string) bool
	if !opts.MergePages {
		skip = known
	}
	res, err := crawler.Crawl(l.ctx, l.core.Fetcher(), opts, skip)
	if err != nil {
		l.core.Metrics().CrawlPageInc("failed")
		if stderrors.Is(err, crawler.ErrFetch) {
			return types.InsertResponse{}, errors.New("CrawlLogic.Crawl.Seed", i18n.ERROR_FETCH_FAILED, err).Code(http.StatusBadRequest)
		}
		return types.InsertResponse{}, errors.New("CrawlLogic.Crawl", i18n.ERROR_INTERNAL, err)
	}
	for range res.Pages {
		l.core.Metrics().CrawlPageInc("fetched")
	}
	for range res.Attempted - len(res.Pages) - len(res.Skipped) {
		l.core.Metrics().CrawlPageInc("failed")
	}
	for range res.Skipped {
		l.core.Metrics().CrawlPageInc("skipped")
	}

	var newDocs []types.NewDocument
	if opts.MergePages {
		newDocs = append(newDocs, l.newDocument(res.Seed.URL, res.Seed.DisplayTitle(), crawler.Merge(res.Pages), opts.CategoryID))
	} else {
		for _, page := range res.Pages {
			newDocs = append(newDocs, l.newDocument(page.URL, page.DisplayTitle(), crawler.Content(page), opts.CategoryID))
		}
	}

	results, err := docs.Enqueue(trackID, newDocs, !opts.MergePages)
	if err != nil {
		return types.InsertResponse{}, errors.Trace("CrawlLogic.Crawl.Enqueue", err)
	}

	queued := lo.CountBy(results, func(r types.EnqueueResult) bool { return r.Status == types.INSERT_STATUS_SUCCESS })
	slog.Info("crawl finished", slog.String("workspace", l.ws.String()), slog.String("track_id", trackID),
		slog.String("url", res.Seed.URL), slog.Int("pages", len(res.Pages)), slog.Int("queued", queued),
		slog.String("component", "crawl"))

	return types.InsertResponse{
		Status:  lo.Ternary(queued > 0, types.INSERT_STATUS_SUCCESS, types.INSERT_STATUS_DUPLICATED),
		Message: fmt.Sprintf("fetched %d of %d pages (seed+links), %d queued", len(res.Pages), res.Attempted, queued),
		TrackID: trackID,
	}, nil
}

func (l *CrawlLogic) newDocument(pageURL, title, content, categoryID string) types.NewDocument {
	return types.NewDocument{
		Content:    content,
		FilePath:   pageURL,
		CategoryID: categoryID,
		Metadata: types.Metadata{
			{Key: "source", Value: "crawl"},
			{Key: "url", Value: pageURL},
			{Key: "title", Value: title},
		},
	}
}
