package v1

import (
	"context"
	stderrors "errors"
	"net/http"
	"slices"
	"strings"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/i18n"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
)

type ChunkLogic struct {
	ctx  context.Context
	core *core.Core
	ws   types.Workspace
}

func NewChunkLogic(ctx context.Context, core *core.Core) *ChunkLogic {
	return &ChunkLogic{
		ctx:  ctx,
		core: core,
		ws:   SetupWorkspace(ctx, core),
	}
}

type ListChunksRequest struct {
	DocID string `form:"doc_id"`
	query.PageRequest
}

// List pages over every chunk of the workspace, optionally restricted to one
// document. It needs a text_chunks backend that can scan.
func (l *ChunkLogic) List(req ListChunksRequest) (query.Page[*types.Chunk], error) {
	kv := l.core.Stores().TextChunks
	if !kv.Capabilities().ScanAll {
		return query.Page[*types.Chunk]{}, errors.FromStore("ChunkLogic.List.ScanAll", store.ErrUnsupportedOperation)
	}

	page, err := query.Collect(store.ScanJSON[types.Chunk](l.ctx, kv, l.ws), query.Query[*types.Chunk]{
		Filter: func(c *types.Chunk) bool { return req.DocID == "" || c.FullDocID == req.DocID },
		Less:   types.ChunkLess,
		Page:   req.PageRequest,
	})
	if err != nil {
		return page, errors.FromStore("ChunkLogic.List.Collect", err)
	}
	return page, nil
}

// Detail returns a chunk with the entities and relations extracted from it.
func (l *ChunkLogic) Detail(id string) (*types.ChunkDetail, error) {
	stores := l.core.Stores()
	chunk, err := store.GetJSON[types.Chunk](l.ctx, stores.TextChunks, l.ws, id)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.New("ChunkLogic.Detail.TextChunks.Get.nil", i18n.ERROR_CHUNK_NOT_FOUND, err).Code(http.StatusNotFound)
	}
	if err != nil {
		return nil, errors.FromStore("ChunkLogic.Detail.TextChunks.Get", err)
	}

	detail := &types.ChunkDetail{Chunk: chunk, Entities: []*types.Entity{}, Relations: []*types.Relation{}}
	nodes, err := stores.Graph.AllNodes(l.ctx, l.ws)
	if err != nil {
		return nil, errors.FromStore("ChunkLogic.Detail.Graph.AllNodes", err)
	}
	for _, n := range nodes {
		if slices.Contains(n.ChunkIDs, id) {
			detail.Entities = append(detail.Entities, n)
		}
	}
	edges, err := stores.Graph.AllEdges(l.ctx, l.ws)
	if err != nil {
		return nil, errors.FromStore("ChunkLogic.Detail.Graph.AllEdges", err)
	}
	for _, e := range edges {
		if slices.Contains(e.ChunkIDs, id) {
			detail.Relations = append(detail.Relations, e)
		}
	}

	slices.SortFunc(detail.Entities, func(a, b *types.Entity) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(detail.Relations, func(a, b *types.Relation) int { return strings.Compare(a.Key(), b.Key()) })
	return detail, nil
}
