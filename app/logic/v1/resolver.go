package v1

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/types"
)

// ResolverLogic answers "what came out of this document": its chunks and the
// entities and relations whose chunk_ids intersect them.
type ResolverLogic struct {
	ctx  context.Context
	core *core.Core
	ws   types.Workspace
}

func NewResolverLogic(ctx context.Context, core *core.Core) *ResolverLogic {
	return &ResolverLogic{
		ctx:  ctx,
		core: core,
		ws:   SetupWorkspace(ctx, core),
	}
}

// documentChunkIDs prefers the chunks_list recorded on the document and falls
// back to scanning text_chunks.
func (l *ResolverLogic) documentChunkIDs(doc *types.Document) ([]string, error) {
	if len(doc.ChunksList) > 0 {
		return doc.ChunksList, nil
	}
	chunks, err := l.scanChunks(func(c *types.Chunk) bool { return c.FullDocID == doc.ID })
	if err != nil {
		return nil, err
	}
	return lo.Map(chunks, func(c *types.Chunk, _ int) string { return c.ID }), nil
}

func (l *ResolverLogic) scanChunks(match func(c *types.Chunk) bool) ([]*types.Chunk, error) {
	kv := l.core.Stores().TextChunks
	if !kv.Capabilities().ScanAll {
		return nil, store.ErrUnsupportedOperation
	}
	var out []*types.Chunk
	for c, err := range store.ScanJSON[types.Chunk](l.ctx, kv, l.ws) {
		if err != nil {
			return nil, err
		}
		if match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (l *ResolverLogic) loadChunks(ids []string) ([]*types.Chunk, error) {
	out := make([]*types.Chunk, 0, len(ids))
	for _, id := range ids {
		c, err := store.GetJSON[types.Chunk](l.ctx, l.core.Stores().TextChunks, l.ws, id)
		if stderrors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DocumentChunks returns the chunks of a document ordered by order_index.
func (l *ResolverLogic) DocumentChunks(docID string) ([]*types.Chunk, error) {
	doc, err := NewDocumentLogic(l.ctx, l.core).Get(docID)
	if err != nil {
		return nil, errors.Trace("ResolverLogic.DocumentChunks", err)
	}
	chunks, err := l.chunksOf(doc)
	if err != nil {
		return nil, errors.FromStore("ResolverLogic.DocumentChunks.chunksOf", err)
	}
	return chunks, nil
}

func (l *ResolverLogic) chunksOf(doc *types.Document) ([]*types.Chunk, error) {
	var (
		chunks []*types.Chunk
		err    error
	)
	if len(doc.ChunksList) > 0 {
		chunks, err = l.loadChunks(doc.ChunksList)
	} else {
		chunks, err = l.scanChunks(func(c *types.Chunk) bool { return c.FullDocID == doc.ID })
	}
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(chunks, func(a, b *types.Chunk) int {
		return a.OrderIndex - b.OrderIndex
	})
	return lo.Ternary(chunks == nil, []*types.Chunk{}, chunks), nil
}

// DocumentGraph resolves the entities and relations extracted from one document.
func (l *ResolverLogic) DocumentGraph(docID string, withChunks bool) (*types.DocumentGraph, error) {
	doc, err := NewDocumentLogic(l.ctx, l.core).Get(docID)
	if err != nil {
		return nil, errors.Trace("ResolverLogic.DocumentGraph", err)
	}

	out := &types.DocumentGraph{DocID: doc.ID}
	chunks, err := l.chunksOf(doc)
	if err != nil {
		return nil, errors.FromStore("ResolverLogic.DocumentGraph.chunksOf", err)
	}
	if withChunks {
		out.Chunks = chunks
	}
	chunkIDs := lo.Map(chunks, func(c *types.Chunk, _ int) string { return c.ID })
	if len(chunkIDs) == 0 {
		chunkIDs = doc.ChunksList
	}

	if out.Entities, out.Relations, err = l.resolve(doc.ID, chunkIDs); err != nil {
		return nil, errors.FromStore("ResolverLogic.DocumentGraph.resolve", err)
	}
	return out, nil
}

// ByFilePath matches documents by file_path first. When none exists the chunks
// carrying that file_path are used directly.
func (l *ResolverLogic) ByFilePath(filePath string) (*types.DocumentGraph, error) {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return nil, errors.Validation("ResolverLogic.ByFilePath.EmptyPath", "file_path must not be empty")
	}

	docs, err := l.core.Stores().DocStatus.Find(l.ctx, l.ws, types.DocumentFilter{FilePath: filePath})
	if err != nil {
		return nil, errors.FromStore("ResolverLogic.ByFilePath.DocStatusStore.Find", err)
	}

	out := &types.DocumentGraph{}
	var chunkIDs []string
	if len(docs) > 0 {
		out.DocID = docs[0].ID
		for _, doc := range docs {
			ids, err := l.documentChunkIDs(doc)
			if err != nil {
				return nil, errors.FromStore("ResolverLogic.ByFilePath.documentChunkIDs", err)
			}
			chunkIDs = append(chunkIDs, ids...)
		}
	} else {
		chunks, err := l.scanChunks(func(c *types.Chunk) bool { return c.FilePath == filePath })
		if err != nil {
			return nil, errors.FromStore("ResolverLogic.ByFilePath.scanChunks", err)
		}
		chunkIDs = lo.Map(chunks, func(c *types.Chunk, _ int) string { return c.ID })
	}

	if out.Entities, out.Relations, err = l.resolve("", lo.Uniq(chunkIDs)); err != nil {
		return nil, errors.FromStore("ResolverLogic.ByFilePath.resolve", err)
	}
	return out, nil
}

// resolve collects entity and relation records intersecting chunkIDs, folds
// them by entity name and undirected pair, then reads the full records from
// the graph. Records the graph no longer has are dropped. An empty docID means
// the chunk set was not derived from one document and is matched as is.
func (l *ResolverLogic) resolve(docID string, chunkIDs []string) ([]*types.Entity, []*types.Relation, error) {
	stores := l.core.Stores()
	entities := []*types.Entity{}
	relations := []*types.Relation{}
	if len(chunkIDs) == 0 {
		return entities, relations, nil
	}

	list := func(vs store.VectorStore) ([]*types.VectorRecord, error) {
		if docID == "" {
			return store.ListByChunkIDs(l.ctx, vs, l.ws, chunkIDs)
		}
		return store.ListByDocument(l.ctx, vs, l.ws, docID, chunkIDs)
	}
	entRecords, err := list(stores.Entities)
	if err != nil {
		return nil, nil, err
	}
	relRecords, err := list(stores.Relations)
	if err != nil {
		return nil, nil, err
	}

	for _, rec := range lo.UniqBy(entRecords, (*types.VectorRecord).DedupKey) {
		node, err := stores.Graph.GetNode(l.ctx, l.ws, rec.EntityName)
		if stderrors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if node.Degree, err = stores.Graph.NodeDegree(l.ctx, l.ws, node.Name); err != nil {
			return nil, nil, err
		}
		entities = append(entities, node)
	}
	for _, rec := range lo.UniqBy(relRecords, (*types.VectorRecord).DedupKey) {
		edge, err := stores.Graph.GetEdge(l.ctx, l.ws, rec.Source, rec.Target)
		if stderrors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		relations = append(relations, edge)
	}

	slices.SortFunc(entities, func(a, b *types.Entity) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(relations, func(a, b *types.Relation) int { return strings.Compare(a.Key(), b.Key()) })
	return entities, relations, nil
}
