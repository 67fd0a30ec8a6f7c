package v1_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/app/core"
	v1 "github.com/quka-ai/ragstore/app/logic/v1"
	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/ai"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

func TestInsertProcessedThenDuplicated(t *testing.T) {
	stores := memStores(t)
	c, p := NewCore(t, stores)
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	text := "Alice met Bob in Paris. Bob works at Acme Corp."
	res, err := logic.InsertText(v1.InsertTextRequest{Text: text})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_SUCCESS, res.Status)
	assert.Regexp(t, `^insert_\d{8}_\d{6}_[0-9a-f]{8}$`, res.TrackID)
	p.Wait()

	track, err := logic.TrackStatus(res.TrackID)
	require.NoError(t, err)
	require.Equal(t, 1, track.TotalCount)
	doc := track.Documents[0]
	assert.Equal(t, types.DOC_STATUS_PROCESSED, doc.Status)
	assert.Equal(t, utils.DocID(text), doc.ID)
	assert.Equal(t, 1, track.StatusSummary[types.DOC_STATUS_PROCESSED])
	assert.NotEmpty(t, doc.ChunksList)

	again, err := logic.InsertText(v1.InsertTextRequest{Text: text})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_DUPLICATED, again.Status)
	assert.Contains(t, again.Message, doc.ID)
	assert.Contains(t, again.Message, "Status: processed")
	assert.Equal(t, res.TrackID, again.TrackID)

	counts, err := logic.StatusCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts[types.DOC_STATUS_PROCESSED])
	assert.Len(t, counts, len(types.AllDocStatuses))
}

func TestInsertDuplicatedFileSource(t *testing.T) {
	c, p := NewCore(t, memStores(t))
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	_, err := logic.InsertText(v1.InsertTextRequest{Text: "Version One of the Guide.", FileSource: "guide.md"})
	require.NoError(t, err)
	res, err := logic.InsertText(v1.InsertTextRequest{Text: "Version Two of the Guide.", FileSource: "guide.md"})
	require.NoError(t, err)
	p.Wait()

	assert.Equal(t, types.INSERT_STATUS_DUPLICATED, res.Status)
	assert.Contains(t, res.Message, "File source 'guide.md'")
}

func TestEnqueueValidatesBeforeWriting(t *testing.T) {
	stores := memStores(t)
	c, _ := NewCore(t, stores)
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	_, err := logic.Enqueue("insert_x", []types.NewDocument{{Content: "Valid Content here."}, {Content: "   "}}, false)
	requireCode(t, err, http.StatusBadRequest)

	docs, err := stores.DocStatus.Find(context.Background(), wsA, types.DocumentFilter{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWorkspaceIsolation(t *testing.T) {
	stores := memStores(t)
	c, p := NewCore(t, stores)
	a := v1.NewDocumentLogic(wsCtx(wsA), c)
	b := v1.NewDocumentLogic(wsCtx(wsB), c)

	text := "Alice met Bob in Paris."
	resA, err := a.InsertText(v1.InsertTextRequest{Text: text})
	require.NoError(t, err)
	resB, err := b.InsertText(v1.InsertTextRequest{Text: text})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_SUCCESS, resA.Status)
	assert.Equal(t, types.INSERT_STATUS_SUCCESS, resB.Status, "same content in another workspace is not a duplicate")
	p.Wait()

	_, err = a.Delete(utils.DocID(text))
	require.NoError(t, err)

	_, err = a.Get(utils.DocID(text))
	requireCode(t, err, http.StatusNotFound)
	doc, err := b.Get(utils.DocID(text))
	require.NoError(t, err)
	assert.Equal(t, types.DOC_STATUS_PROCESSED, doc.Status)

	entities, err := v1.NewEntityLogic(wsCtx(wsB), c).List(v1.ListEntitiesRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, entities.Total)
	entities, err = v1.NewEntityLogic(wsCtx(wsA), c).List(v1.ListEntitiesRequest{})
	require.NoError(t, err)
	assert.Zero(t, entities.Total)
}

func TestChunkOwnershipClosure(t *testing.T) {
	stores := memStores(t)
	c, p := NewCore(t, stores)
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	for _, text := range []string{
		"Alice met Bob in Paris. Bob works at Acme Corp.",
		"Alice visited Rome with Carol.",
	} {
		_, err := logic.InsertText(v1.InsertTextRequest{Text: text})
		require.NoError(t, err)
	}
	p.Wait()

	ctx := context.Background()
	nodes, err := stores.Graph.AllNodes(ctx, wsA)
	require.NoError(t, err)
	edges, err := stores.Graph.AllEdges(ctx, wsA)
	require.NoError(t, err)
	require.NotEmpty(t, nodes)
	require.NotEmpty(t, edges)

	check := func(chunkIDs []string) {
		require.NotEmpty(t, chunkIDs)
		for _, id := range chunkIDs {
			chunk, err := store.GetJSON[types.Chunk](ctx, stores.TextChunks, wsA, id)
			require.NoError(t, err)
			doc, err := stores.DocStatus.Get(ctx, wsA, chunk.FullDocID)
			require.NoError(t, err)
			assert.Contains(t, []string(doc.ChunksList), id)
		}
	}
	for _, n := range nodes {
		check(n.ChunkIDs)
	}
	for _, e := range edges {
		check(e.ChunkIDs)
	}
}

func TestDeleteCascadesToGraph(t *testing.T) {
	stores := memStores(t)
	c, p := NewCore(t, stores)
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	first := "Alice met Bob in Paris."
	second := "Alice visited Rome."
	for _, text := range []string{first, second} {
		_, err := logic.InsertText(v1.InsertTextRequest{Text: text})
		require.NoError(t, err)
	}
	p.Wait()

	doc, err := logic.Get(utils.DocID(first))
	require.NoError(t, err)
	chunkIDs := doc.ChunksList

	res, err := logic.Delete(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, res.DocID)

	ctx := context.Background()
	_, err = stores.Graph.GetNode(ctx, wsA, "Bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = stores.Entities.Get(ctx, wsA, utils.EntityID("Bob"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = stores.Graph.GetEdge(ctx, wsA, "Alice", "Bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = stores.Relations.Get(ctx, wsA, utils.RelationID("Alice", "Bob"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	alice, err := stores.Graph.GetNode(ctx, wsA, "Alice")
	require.NoError(t, err)
	other, err := logic.Get(utils.DocID(second))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string(other.ChunksList), []string(alice.ChunkIDs))
	rec, err := stores.Entities.Get(ctx, wsA, utils.EntityID("Alice"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string(other.ChunksList), []string(rec.ChunkIDs))

	for _, id := range chunkIDs {
		_, err = stores.TextChunks.Get(ctx, wsA, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = stores.Chunks.Get(ctx, wsA, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	_, err = stores.FullDocs.Get(ctx, wsA, doc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = logic.Delete(doc.ID)
	requireCode(t, err, http.StatusNotFound)
}

func TestDeleteDropsRelationVectorsOfRemovedNodes(t *testing.T) {
	stores := memStores(t)
	c, p := NewCore(t, stores)
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	first := "Alice met Bob in Paris."
	second := "Alice visited Rome."
	for _, text := range []string{first, second} {
		_, err := logic.InsertText(v1.InsertTextRequest{Text: text})
		require.NoError(t, err)
	}
	p.Wait()

	ctx := context.Background()
	other, err := logic.Get(utils.DocID(second))
	require.NoError(t, err)

	// the edge outlives the first document while Bob does not
	edge, err := stores.Graph.GetEdge(ctx, wsA, "Alice", "Bob")
	require.NoError(t, err)
	edge.ChunkIDs = append(edge.ChunkIDs, other.ChunksList...)
	require.NoError(t, stores.Graph.UpsertEdge(ctx, wsA, edge))

	_, err = logic.Delete(utils.DocID(first))
	require.NoError(t, err)

	_, err = stores.Graph.GetNode(ctx, wsA, "Bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = stores.Graph.GetEdge(ctx, wsA, "Alice", "Bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = stores.Relations.Get(ctx, wsA, utils.RelationID("Alice", "Bob"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	for rec, err := range stores.Relations.ScanAll(ctx, wsA) {
		require.NoError(t, err)
		_, err = stores.Graph.GetEdge(ctx, wsA, rec.Source, rec.Target)
		assert.NoError(t, err, rec.ID)
	}
}

func TestDeleteWhileBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	extractor := ai.ExtractFunc(func(ctx context.Context, chunk string) (types.ExtractResult, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return ai.HeuristicExtractor{}.Extract(ctx, chunk)
	})
	c, p := NewCore(t, memStores(t), core.WithExtractor(extractor))
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	res, err := logic.InsertText(v1.InsertTextRequest{Text: "Alice met Bob."})
	require.NoError(t, err)
	<-started

	_, err = logic.Delete(utils.DocID("Alice met Bob."))
	requireCode(t, err, http.StatusConflict)
	assert.True(t, logic.PipelineStatus().Busy)
	assert.Equal(t, res.TrackID, logic.PipelineStatus().TrackID)

	close(release)
	p.Wait()
	assert.False(t, logic.PipelineStatus().Busy)
}

func TestReprocessFailedKeepsTrackID(t *testing.T) {
	var calls atomic.Int32
	extractor := ai.ExtractFunc(func(ctx context.Context, chunk string) (types.ExtractResult, error) {
		if calls.Add(1) == 1 {
			return types.ExtractResult{}, ai.ErrExtraction
		}
		return ai.HeuristicExtractor{}.Extract(ctx, chunk)
	})
	c, p := NewCore(t, memStores(t), core.WithExtractor(extractor))
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	res, err := logic.InsertText(v1.InsertTextRequest{Text: "Alice met Bob."})
	require.NoError(t, err)
	p.Wait()

	doc, err := logic.Get(utils.DocID("Alice met Bob."))
	require.NoError(t, err)
	require.Equal(t, types.DOC_STATUS_FAILED, doc.Status)
	assert.NotEmpty(t, doc.ErrorMsg)

	// a failed document does not block a new submission of the same content
	again, err := logic.InsertText(v1.InsertTextRequest{Text: "Other Content entirely."})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_SUCCESS, again.Status)
	p.Wait()

	rep, err := logic.ReprocessFailed()
	require.NoError(t, err)
	assert.Equal(t, "reprocessing_started", rep.Status)
	assert.Equal(t, 1, rep.Count)
	p.Wait()

	doc, err = logic.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.DOC_STATUS_PROCESSED, doc.Status)
	assert.Empty(t, doc.ErrorMsg)
	assert.Equal(t, res.TrackID, doc.TrackID)
}

func TestResubmitFailedContentReusesDocument(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	extractor := ai.ExtractFunc(func(ctx context.Context, chunk string) (types.ExtractResult, error) {
		if fail.Load() {
			return types.ExtractResult{}, ai.ErrExtraction
		}
		return ai.HeuristicExtractor{}.Extract(ctx, chunk)
	})
	c, p := NewCore(t, memStores(t), core.WithExtractor(extractor))
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	first, err := logic.InsertText(v1.InsertTextRequest{Text: "Alice met Bob."})
	require.NoError(t, err)
	p.Wait()

	failed, err := logic.Get(utils.DocID("Alice met Bob."))
	require.NoError(t, err)
	require.Equal(t, types.DOC_STATUS_FAILED, failed.Status)
	require.NotEmpty(t, failed.ErrorMsg)

	// resubmitting the same content reprocesses the failed document in place
	fail.Store(false)
	res, err := logic.InsertText(v1.InsertTextRequest{Text: "Alice met Bob."})
	require.NoError(t, err)
	assert.Equal(t, types.INSERT_STATUS_SUCCESS, res.Status)
	assert.NotEqual(t, first.TrackID, res.TrackID)
	p.Wait()

	doc, err := logic.Get(utils.DocID("Alice met Bob."))
	require.NoError(t, err)
	assert.Equal(t, types.DOC_STATUS_PROCESSED, doc.Status)
	assert.Empty(t, doc.ErrorMsg)
	assert.Equal(t, res.TrackID, doc.TrackID)
	assert.Equal(t, failed.CreatedAt, doc.CreatedAt)

	page, err := logic.List(v1.ListDocumentsRequest{PageRequest: query.PageRequest{Page: 1, PageSize: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestListDocuments(t *testing.T) {
	c, p := NewCore(t, memStores(t))
	logic := v1.NewDocumentLogic(wsCtx(wsA), c)

	for _, text := range []string{"First Doc.", "Second Doc.", "Third Doc."} {
		_, err := logic.InsertText(v1.InsertTextRequest{Text: text})
		require.NoError(t, err)
	}
	p.Wait()

	page, err := logic.List(v1.ListDocumentsRequest{
		Status:      "processed",
		PageRequest: query.PageRequest{Page: 2, PageSize: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)

	page, err = logic.List(v1.ListDocumentsRequest{PageRequest: query.PageRequest{Page: 9}})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Empty(t, page.Items)

	_, err = logic.List(v1.ListDocumentsRequest{Status: "archived"})
	requireCode(t, err, http.StatusBadRequest)
	_, err = logic.List(v1.ListDocumentsRequest{PageRequest: query.PageRequest{PageSize: 501}})
	requireCode(t, err, http.StatusBadRequest)
}

func TestCancelPipelineNotBusy(t *testing.T) {
	c, _ := NewCore(t, memStores(t))
	res := v1.NewDocumentLogic(wsCtx(wsA), c).CancelPipeline()
	assert.Equal(t, types.CANCEL_STATUS_NOT_BUSY, res.Status)
}
