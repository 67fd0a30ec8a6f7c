package v1

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/app/logic/v1/process"
	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/i18n"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

const (
	TRACK_PREFIX_INSERT = "insert"
	TRACK_PREFIX_CRAWL  = "crawl"

	SUMMARY_MAX_RUNES = 250
)

type DocumentLogic struct {
	ctx  context.Context
	core *core.Core
	ws   types.Workspace
}

func NewDocumentLogic(ctx context.Context, core *core.Core) *DocumentLogic {
	return &DocumentLogic{
		ctx:  ctx,
		core: core,
		ws:   SetupWorkspace(ctx, core),
	}
}

// Enqueue stores new documents as pending under one track id and hands them to
// the pipeline. Content already held by a non-failed document is reported as
// duplicated. Resubmitting the content of a failed document is an explicit
// reprocess request for that document: it goes back to pending under the new
// track id, the same way ReprocessFailed resets it.
// With dedupFilePath a non-failed document with the same file_path is a duplicate too.
func (l *DocumentLogic) Enqueue(trackID string, docs []types.NewDocument, dedupFilePath bool) ([]types.EnqueueResult, error) {
	for i := range docs {
		if strings.TrimSpace(docs[i].Content) == "" {
			return nil, errors.Validation("DocumentLogic.Enqueue.EmptyContent", "document content must not be empty")
		}
	}

	stores := l.core.Stores()
	results := make([]types.EnqueueResult, 0, len(docs))
	var queued []string

	for _, nd := range docs {
		docID := utils.DocID(nd.Content)
		res := types.EnqueueResult{DocID: docID, TrackID: trackID, Status: types.INSERT_STATUS_SUCCESS}

		existing, err := l.findActive(types.DocumentFilter{ContentHash: utils.MD5(nd.Content)})
		if err != nil {
			return nil, errors.FromStore("DocumentLogic.Enqueue.DocStatusStore.Find", err)
		}
		if existing == nil && dedupFilePath && nd.FilePath != "" {
			if existing, err = l.findActive(types.DocumentFilter{FilePath: nd.FilePath}); err != nil {
				return nil, errors.FromStore("DocumentLogic.Enqueue.DocStatusStore.Find", err)
			}
		}
		if existing != nil {
			res.Status = types.INSERT_STATUS_DUPLICATED
			res.ExistingID = existing.ID
			res.TrackID = existing.TrackID
			res.ExistingStatus = existing.Status
			results = append(results, res)
			continue
		}

		doc, err := stores.DocStatus.Get(l.ctx, l.ws, docID)
		switch {
		case err == nil:
			// only a failed document can get here
			if err = reprocess(doc); err != nil {
				return nil, errors.New("DocumentLogic.Enqueue.Reprocess", i18n.ERROR_INTERNAL, err)
			}
			doc.TrackID = trackID
			doc.FilePath = lo.Ternary(nd.FilePath != "", nd.FilePath, doc.FilePath)
		case stderrors.Is(err, store.ErrNotFound):
			doc = newDocument(docID, trackID, nd)
		default:
			return nil, errors.FromStore("DocumentLogic.Enqueue.DocStatusStore.Get", err)
		}

		if err = store.PutJSON(l.ctx, stores.FullDocs, l.ws, docID, types.FullDoc{
			ID:       docID,
			Content:  nd.Content,
			FilePath: doc.FilePath,
		}); err != nil {
			return nil, errors.FromStore("DocumentLogic.Enqueue.FullDocs.Put", err)
		}
		if err = stores.DocStatus.Upsert(l.ctx, l.ws, doc); err != nil {
			return nil, errors.FromStore("DocumentLogic.Enqueue.DocStatusStore.Upsert", err)
		}

		queued = append(queued, docID)
		results = append(results, res)
	}

	if len(queued) > 0 {
		l.core.Pipeline().Enqueue(l.ws, trackID, queued...)
	}
	return results, nil
}

func newDocument(docID, trackID string, nd types.NewDocument) *types.Document {
	now := time.Now().Unix()
	meta := nd.Metadata
	if meta == nil {
		meta = types.Metadata{}
	}
	return &types.Document{
		ID:             docID,
		ContentHash:    utils.MD5(nd.Content),
		ContentSummary: utils.Summary(nd.Content, SUMMARY_MAX_RUNES),
		ContentLength:  len(nd.Content),
		FilePath:       lo.Ternary(nd.FilePath != "", nd.FilePath, "unknown_source"),
		Status:         types.DOC_STATUS_PENDING,
		TrackID:        trackID,
		CategoryID:     nd.CategoryID,
		ChunksList:     []string{},
		Metadata:       meta,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// findActive returns the first non-failed document matching filter.
func (l *DocumentLogic) findActive(filter types.DocumentFilter) (*types.Document, error) {
	filter.Statuses = []types.DocStatus{
		types.DOC_STATUS_PENDING,
		types.DOC_STATUS_PROCESSING,
		types.DOC_STATUS_PREPROCESSED,
		types.DOC_STATUS_PROCESSED,
	}
	docs, err := l.core.Stores().DocStatus.Find(l.ctx, l.ws, filter)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

type InsertTextRequest struct {
	Text       string         `json:"text" binding:"required"`
	FileSource string         `json:"file_source"`
	CategoryID string         `json:"category_id"`
	Metadata   types.Metadata `json:"metadata"`
}

func (l *DocumentLogic) InsertText(req InsertTextRequest) (types.InsertResponse, error) {
	trackID := utils.GenTrackID(TRACK_PREFIX_INSERT)
	results, err := l.Enqueue(trackID, []types.NewDocument{{
		Content:    req.Text,
		FilePath:   req.FileSource,
		CategoryID: req.CategoryID,
		Metadata:   req.Metadata,
	}}, req.FileSource != "")
	if err != nil {
		return types.InsertResponse{}, errors.Trace("DocumentLogic.InsertText", err)
	}

	res := results[0]
	if res.Status == types.INSERT_STATUS_DUPLICATED {
		msg := fmt.Sprintf("Identical content already exists in document storage (doc_id: %s, Status: %s).", res.ExistingID, res.ExistingStatus)
		if res.ExistingID != res.DocID {
			msg = fmt.Sprintf("File source '%s' already exists in document storage (Status: %s).", req.FileSource, res.ExistingStatus)
		}
		return types.InsertResponse{
			Status:  types.INSERT_STATUS_DUPLICATED,
			Message: msg,
			TrackID: res.TrackID,
		}, nil
	}
	return types.InsertResponse{
		Status:  types.INSERT_STATUS_SUCCESS,
		Message: "Text successfully received. Processing will continue in background.",
		TrackID: trackID,
	}, nil
}

func (l *DocumentLogic) Get(id string) (*types.Document, error) {
	doc, err := l.core.Stores().DocStatus.Get(l.ctx, l.ws, id)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.New("DocumentLogic.Get.DocStatusStore.Get.nil", i18n.ERROR_DOCUMENT_NOT_FOUND, err).Code(http.StatusNotFound)
	}
	if err != nil {
		return nil, errors.FromStore("DocumentLogic.Get.DocStatusStore.Get", err)
	}
	return doc, nil
}

type ListDocumentsRequest struct {
	Status        string `form:"status"`
	TrackID       string `form:"track_id"`
	CategoryID    string `form:"category_id"`
	SortField     string `form:"sort_field"`
	SortDirection string `form:"sort_direction"`
	query.PageRequest
}

func (l *DocumentLogic) List(req ListDocumentsRequest) (query.Page[*types.Document], error) {
	filter := types.DocumentFilter{TrackID: req.TrackID, CategoryID: req.CategoryID}
	if req.Status != "" {
		status, ok := types.ParseDocStatus(req.Status)
		if !ok {
			return query.Page[*types.Document]{}, errors.Validation("DocumentLogic.List.ParseDocStatus", "unknown document status: "+req.Status)
		}
		filter.Statuses = []types.DocStatus{status}
	}
	sort := query.Sort{
		Field: types.NormalizeDocumentSortField(req.SortField),
		Desc:  !strings.EqualFold(req.SortDirection, "asc"),
	}

	page, err := l.core.Stores().DocStatus.Query(l.ctx, l.ws, filter, sort, req.PageRequest)
	if err != nil {
		return page, errors.FromStore("DocumentLogic.List.DocStatusStore.Query", err)
	}
	return page, nil
}

// StatusCounts reports every status, zero counts included.
func (l *DocumentLogic) StatusCounts() (map[types.DocStatus]int, error) {
	counts, err := l.core.Stores().DocStatus.StatusCounts(l.ctx, l.ws)
	if err != nil {
		return nil, errors.FromStore("DocumentLogic.StatusCounts.DocStatusStore.StatusCounts", err)
	}
	out := make(map[types.DocStatus]int, len(types.AllDocStatuses))
	for _, s := range types.AllDocStatuses {
		out[s] = counts[s]
	}
	return out, nil
}

func (l *DocumentLogic) TrackStatus(trackID string) (types.TrackStatus, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return types.TrackStatus{}, errors.Validation("DocumentLogic.TrackStatus.EmptyTrackID", "track_id must not be empty")
	}
	docs, err := l.core.Stores().DocStatus.Find(l.ctx, l.ws, types.DocumentFilter{TrackID: trackID})
	if err != nil {
		return types.TrackStatus{}, errors.FromStore("DocumentLogic.TrackStatus.DocStatusStore.Find", err)
	}

	summary := make(map[types.DocStatus]int)
	for _, d := range docs {
		summary[d.Status]++
	}
	return types.TrackStatus{
		TrackID:       trackID,
		Documents:     lo.Ternary(docs == nil, []*types.Document{}, docs),
		TotalCount:    len(docs),
		StatusSummary: summary,
	}, nil
}

func (l *DocumentLogic) PipelineStatus() types.PipelineStatus {
	return l.core.Pipeline().Status(l.ws)
}

func (l *DocumentLogic) CancelPipeline() types.CancelResponse {
	return l.core.Pipeline().Cancel(l.ws)
}

// ReprocessFailed resets every failed document to pending and queues it with
// the pending documents that are not queued yet. Documents keep their track id.
func (l *DocumentLogic) ReprocessFailed() (types.ReprocessResponse, error) {
	stores := l.core.Stores()
	docs, err := stores.DocStatus.GetByStatus(l.ctx, l.ws, types.DOC_STATUS_FAILED, types.DOC_STATUS_PENDING)
	if err != nil {
		return types.ReprocessResponse{}, errors.FromStore("DocumentLogic.ReprocessFailed.DocStatusStore.GetByStatus", err)
	}

	queued := lo.SliceToMap(l.core.Pipeline().Status(l.ws).QueuedDocIDs, func(id string) (string, struct{}) {
		return id, struct{}{}
	})

	var reset []*types.Document
	var todo []*types.Document
	for _, doc := range docs {
		if doc.Status == types.DOC_STATUS_FAILED {
			if err = reprocess(doc); err != nil {
				return types.ReprocessResponse{}, errors.New("DocumentLogic.ReprocessFailed.Reprocess", i18n.ERROR_INTERNAL, err)
			}
			reset = append(reset, doc)
		} else if _, ok := queued[doc.ID]; ok {
			continue
		}
		todo = append(todo, doc)
	}
	if len(reset) > 0 {
		if err = stores.DocStatus.Upsert(l.ctx, l.ws, reset...); err != nil {
			return types.ReprocessResponse{}, errors.FromStore("DocumentLogic.ReprocessFailed.DocStatusStore.Upsert", err)
		}
	}

	for _, doc := range todo {
		l.core.Pipeline().Enqueue(l.ws, doc.TrackID, doc.ID)
	}
	return types.ReprocessResponse{
		Status:  "reprocessing_started",
		Message: fmt.Sprintf("Reprocessing of %d failed and %d pending documents has been initiated in background. Documents retain their original track_id.", len(reset), len(todo)-len(reset)),
		Count:   len(todo),
	}, nil
}

// reprocess resets a failed document to pending. It is the only way out of
// the failed state.
func reprocess(doc *types.Document) error {
	if doc.Status != types.DOC_STATUS_FAILED {
		return fmt.Errorf("document %s is %s, only failed documents can be reprocessed", doc.ID, doc.Status)
	}
	if err := process.Transition(doc, types.DOC_STATUS_PENDING); err != nil {
		return err
	}
	doc.ErrorMsg = ""
	return nil
}

// Delete removes a document with its chunks and prunes the graph records
// extracted from them. Records left without any source chunk are removed.
func (l *DocumentLogic) Delete(id string) (types.DeleteDocumentResponse, error) {
	if l.core.Pipeline().Busy(l.ws) {
		return types.DeleteDocumentResponse{}, errors.New("DocumentLogic.Delete.Busy", i18n.ERROR_PIPELINE_BUSY, nil).Code(http.StatusConflict)
	}

	doc, err := l.Get(id)
	if err != nil {
		return types.DeleteDocumentResponse{}, errors.Trace("DocumentLogic.Delete", err)
	}

	chunkIDs, err := NewResolverLogic(l.ctx, l.core).documentChunkIDs(doc)
	if err != nil && !stderrors.Is(err, store.ErrUnsupportedOperation) {
		return types.DeleteDocumentResponse{}, errors.FromStore("DocumentLogic.Delete.ChunkIDs", err)
	}

	if err = l.deleteKnowledge(chunkIDs); err != nil {
		return types.DeleteDocumentResponse{}, errors.FromStore("DocumentLogic.Delete.Knowledge", err)
	}

	stores := l.core.Stores()
	if len(chunkIDs) > 0 {
		if err = stores.Chunks.Delete(l.ctx, l.ws, chunkIDs...); err != nil {
			return types.DeleteDocumentResponse{}, errors.FromStore("DocumentLogic.Delete.Chunks.Delete", err)
		}
		if err = stores.TextChunks.Delete(l.ctx, l.ws, chunkIDs...); err != nil {
			return types.DeleteDocumentResponse{}, errors.FromStore("DocumentLogic.Delete.TextChunks.Delete", err)
		}
	}
	if err = stores.FullDocs.Delete(l.ctx, l.ws, doc.ID); err != nil {
		return types.DeleteDocumentResponse{}, errors.FromStore("DocumentLogic.Delete.FullDocs.Delete", err)
	}
	if err = stores.DocStatus.Delete(l.ctx, l.ws, doc.ID); err != nil {
		return types.DeleteDocumentResponse{}, errors.FromStore("DocumentLogic.Delete.DocStatusStore.Delete", err)
	}

	return types.DeleteDocumentResponse{
		Status:  "deletion_completed",
		Message: fmt.Sprintf("Document %s deleted with %d chunks.", doc.ID, len(chunkIDs)),
		DocID:   doc.ID,
	}, nil
}

func (l *DocumentLogic) deleteKnowledge(chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	stores := l.core.Stores()
	removed := lo.SliceToMap(chunkIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	now := time.Now().Unix()

	edges, err := stores.Graph.AllEdges(l.ctx, l.ws)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		if !types.Intersects(edge.ChunkIDs, removed) {
			continue
		}
		rest, _ := types.PruneIDs(edge.ChunkIDs, removed)
		if len(rest) == 0 {
			if err = stores.Graph.DeleteEdge(l.ctx, l.ws, edge.Source, edge.Target); err != nil {
				return err
			}
			if err = stores.Relations.Delete(l.ctx, l.ws, utils.RelationID(edge.Source, edge.Target)); err != nil {
				return err
			}
			continue
		}
		edge.ChunkIDs = rest
		edge.UpdatedAt = now
		if err = stores.Graph.UpsertEdge(l.ctx, l.ws, edge); err != nil {
			return err
		}
		if err = l.pruneVector(stores.Relations, process.RelationRecord(edge)); err != nil {
			return err
		}
	}

	nodes, err := stores.Graph.AllNodes(l.ctx, l.ws)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if !types.Intersects(node.ChunkIDs, removed) {
			continue
		}
		rest, _ := types.PruneIDs(node.ChunkIDs, removed)
		if len(rest) == 0 {
			// DeleteNode drops the surviving edges too, so their vectors go with them.
			touching, err := stores.Graph.NodeEdges(l.ctx, l.ws, node.Name)
			if err != nil {
				return err
			}
			if len(touching) > 0 {
				ids := lo.Map(touching, func(e *types.Relation, _ int) string { return utils.RelationID(e.Source, e.Target) })
				if err = stores.Relations.Delete(l.ctx, l.ws, ids...); err != nil {
					return err
				}
			}
			if err = stores.Graph.DeleteNode(l.ctx, l.ws, node.Name); err != nil {
				return err
			}
			if err = stores.Entities.Delete(l.ctx, l.ws, utils.EntityID(node.Name)); err != nil {
				return err
			}
			continue
		}
		node.ChunkIDs = rest
		node.UpdatedAt = now
		if err = stores.Graph.UpsertNode(l.ctx, l.ws, node); err != nil {
			return err
		}
		if err = l.pruneVector(stores.Entities, process.EntityRecord(node)); err != nil {
			return err
		}
	}
	return nil
}

// pruneVector rewrites the vector record of a pruned graph record, keeping the
// stored embedding.
func (l *DocumentLogic) pruneVector(vs store.VectorStore, rec *types.VectorRecord) error {
	old, err := vs.Get(l.ctx, l.ws, rec.ID)
	switch {
	case err == nil:
		rec.Vector = old.Vector
		rec.CreatedAt = old.CreatedAt
	case !stderrors.Is(err, store.ErrNotFound):
		return err
	}
	return vs.Upsert(l.ctx, l.ws, rec)
}
