package process

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/ai"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

// KnowledgeWriter merges extracted entities and relations into the graph and
// the entity and relationship vector namespaces of a workspace.
type KnowledgeWriter struct {
	stores   *store.Stores
	embedder ai.Embedder
	retry    func(ctx context.Context, fn func() error) error
}

func NewKnowledgeWriter(stores *store.Stores, embedder ai.Embedder) *KnowledgeWriter {
	if embedder == nil {
		embedder = ai.NoopEmbedder{}
	}
	return &KnowledgeWriter{
		stores:   stores,
		embedder: embedder,
		retry: func(ctx context.Context, fn func() error) error {
			return fn()
		},
	}
}

// WithRetry wraps every single storage call. Read-merge-write steps are
// retried call by call, never as a whole.
func (w *KnowledgeWriter) WithRetry(retry func(ctx context.Context, fn func() error) error) *KnowledgeWriter {
	w.retry = retry
	return w
}

func (w *KnowledgeWriter) getNode(ctx context.Context, ws types.Workspace, name string) (*types.Entity, error) {
	var node *types.Entity
	err := w.retry(ctx, func() error {
		var err error
		node, err = w.stores.Graph.GetNode(ctx, ws, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	return node, err
}

func (w *KnowledgeWriter) getEdge(ctx context.Context, ws types.Workspace, src, tgt string) (*types.Relation, error) {
	var edge *types.Relation
	err := w.retry(ctx, func() error {
		var err error
		edge, err = w.stores.Graph.GetEdge(ctx, ws, src, tgt)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	return edge, err
}

// CheckConsistency verifies that every chunk id of the result names a chunk of
// ws owned by a document of ws. Nothing is written when it fails.
func (w *KnowledgeWriter) CheckConsistency(ctx context.Context, ws types.Workspace, res types.ExtractResult) error {
	checked := map[string]error{}
	docs := map[string]error{}

	check := func(chunkID string) error {
		if err, ok := checked[chunkID]; ok {
			return err
		}
		chunk, err := store.GetJSON[types.Chunk](ctx, w.stores.TextChunks, ws, chunkID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			err = fmt.Errorf("%w: chunk %s does not exist in workspace %s", store.ErrConsistency, chunkID, ws)
		case err == nil:
			docErr, ok := docs[chunk.FullDocID]
			if !ok {
				_, docErr = w.stores.DocStatus.Get(ctx, ws, chunk.FullDocID)
				if errors.Is(docErr, store.ErrNotFound) {
					docErr = fmt.Errorf("%w: chunk %s belongs to missing document %s", store.ErrConsistency, chunkID, chunk.FullDocID)
				}
				docs[chunk.FullDocID] = docErr
			}
			err = docErr
		}
		checked[chunkID] = err
		return err
	}

	for _, e := range res.Entities {
		if len(e.ChunkIDs) == 0 {
			return fmt.Errorf("%w: entity %s has no source chunk", store.ErrConsistency, e.Name)
		}
		for _, id := range e.ChunkIDs {
			if err := check(id); err != nil {
				return err
			}
		}
	}
	for _, r := range res.Relations {
		for _, id := range r.ChunkIDs {
			if err := check(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *KnowledgeWriter) Write(ctx context.Context, ws types.Workspace, res types.ExtractResult) error {
	if len(res.Entities) == 0 && len(res.Relations) == 0 {
		return nil
	}
	if err := w.retry(ctx, func() error { return w.CheckConsistency(ctx, ws, res) }); err != nil {
		return err
	}

	entities := make([]*types.Entity, 0, len(res.Entities))
	for _, e := range res.Entities {
		merged, err := w.mergeEntity(ctx, ws, e)
		if err != nil {
			return err
		}
		entities = append(entities, merged)
	}

	relations := make([]*types.Relation, 0, len(res.Relations))
	for _, r := range res.Relations {
		merged, err := w.mergeRelation(ctx, ws, r)
		if err != nil {
			return err
		}
		relations = append(relations, merged)
	}

	if err := w.upsertEntityVectors(ctx, ws, entities); err != nil {
		return err
	}
	return w.upsertRelationVectors(ctx, ws, relations)
}

func (w *KnowledgeWriter) mergeEntity(ctx context.Context, ws types.Workspace, in *types.Entity) (*types.Entity, error) {
	node, err := w.getNode(ctx, ws, in.Name)
	switch {
	case err != nil:
		return nil, err
	case node == nil:
		node = in.Clone()
		node.ID = utils.EntityID(in.Name)
		if node.Type == "" {
			node.Type = "UNKNOWN"
		}
	default:
		node.Merge(in)
	}
	if err = w.retry(ctx, func() error { return w.stores.Graph.UpsertNode(ctx, ws, node) }); err != nil {
		return nil, err
	}
	return node, nil
}

func (w *KnowledgeWriter) mergeRelation(ctx context.Context, ws types.Workspace, in *types.Relation) (*types.Relation, error) {
	edge, err := w.getEdge(ctx, ws, in.Source, in.Target)
	switch {
	case err != nil:
		return nil, err
	case edge == nil:
		edge = in.Clone()
		edge.ID = utils.RelationID(in.Source, in.Target)
	default:
		edge.Merge(in)
	}
	if err = w.retry(ctx, func() error { return w.stores.Graph.UpsertEdge(ctx, ws, edge) }); err != nil {
		return nil, err
	}
	return edge, nil
}

func EntityContent(e *types.Entity) string {
	return e.Name + "\n" + e.Description
}

func RelationContent(r *types.Relation) string {
	return strings.Join([]string{r.Keywords, r.Source, r.Target, r.Description}, "\t")
}

func EntityRecord(e *types.Entity) *types.VectorRecord {
	return &types.VectorRecord{
		ID:         utils.EntityID(e.Name),
		Content:    EntityContent(e),
		EntityName: e.Name,
		ChunkIDs:   e.ChunkIDs,
		FilePath:   e.FilePath,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func RelationRecord(r *types.Relation) *types.VectorRecord {
	return &types.VectorRecord{
		ID:        utils.RelationID(r.Source, r.Target),
		Content:   RelationContent(r),
		Source:    r.Source,
		Target:    r.Target,
		ChunkIDs:  r.ChunkIDs,
		FilePath:  r.FilePath,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (w *KnowledgeWriter) upsertEntityVectors(ctx context.Context, ws types.Workspace, entities []*types.Entity) error {
	records := make([]*types.VectorRecord, 0, len(entities))
	for _, e := range entities {
		records = append(records, EntityRecord(e))
	}
	return w.upsertVectors(ctx, ws, w.stores.Entities, records)
}

func (w *KnowledgeWriter) upsertRelationVectors(ctx context.Context, ws types.Workspace, relations []*types.Relation) error {
	records := make([]*types.VectorRecord, 0, len(relations))
	for _, r := range relations {
		records = append(records, RelationRecord(r))
	}
	return w.upsertVectors(ctx, ws, w.stores.Relations, records)
}

func (w *KnowledgeWriter) upsertVectors(ctx context.Context, ws types.Workspace, vs store.VectorStore, records []*types.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, 0, len(records))
	for _, r := range records {
		texts = append(texts, r.Content)
	}
	vectors, err := w.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s: %w", vs.Namespace(), err)
	}
	for i := range records {
		if i < len(vectors) {
			records[i].Vector = vectors[i]
		}
	}
	return w.retry(ctx, func() error { return vs.Upsert(ctx, ws, records...) })
}
