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

type EntityLogic struct {
	ctx  context.Context
	core *core.Core
	ws   types.Workspace
}

func NewEntityLogic(ctx context.Context, core *core.Core) *EntityLogic {
	return &EntityLogic{
		ctx:  ctx,
		core: core,
		ws:   SetupWorkspace(ctx, core),
	}
}

type ListEntitiesRequest struct {
	EntityType string `form:"entity_type"`
	Search     string `form:"search"`
	query.PageRequest
}

func (l *EntityLogic) List(req ListEntitiesRequest) (query.Page[*types.Entity], error) {
	graph := l.core.Stores().Graph
	nodes, err := graph.AllNodes(l.ctx, l.ws)
	if err != nil {
		return query.Page[*types.Entity]{}, errors.FromStore("EntityLogic.List.Graph.AllNodes", err)
	}

	filter := types.EntityFilter{EntityType: req.EntityType, Search: req.Search}
	page, err := query.Execute(nodes, query.Query[*types.Entity]{
		Filter: filter.Match,
		Less:   func(a, b *types.Entity) bool { return a.Name < b.Name },
		Page:   req.PageRequest,
	})
	if err != nil {
		return page, errors.FromStore("EntityLogic.List.Execute", err)
	}

	for _, e := range page.Items {
		if e.Degree, err = graph.NodeDegree(l.ctx, l.ws, e.Name); err != nil {
			return page, errors.FromStore("EntityLogic.List.Graph.NodeDegree", err)
		}
	}
	return page, nil
}

// Get returns the entity with its degree and every relation touching it.
func (l *EntityLogic) Get(name string) (*types.EntityDetail, error) {
	graph := l.core.Stores().Graph
	node, err := graph.GetNode(l.ctx, l.ws, name)
	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.New("EntityLogic.Get.Graph.GetNode.nil", i18n.ERROR_ENTITY_NOT_FOUND, err).Code(http.StatusNotFound)
	}
	if err != nil {
		return nil, errors.FromStore("EntityLogic.Get.Graph.GetNode", err)
	}

	edges, err := graph.NodeEdges(l.ctx, l.ws, name)
	if err != nil {
		return nil, errors.FromStore("EntityLogic.Get.Graph.NodeEdges", err)
	}
	node.Degree = len(edges)
	slices.SortFunc(edges, func(a, b *types.Relation) int { return strings.Compare(a.Other(name), b.Other(name)) })
	if edges == nil {
		edges = []*types.Relation{}
	}
	return &types.EntityDetail{Entity: node, Relations: edges}, nil
}

func (l *EntityLogic) Relations(name string) ([]*types.Relation, error) {
	detail, err := l.Get(name)
	if err != nil {
		return nil, errors.Trace("EntityLogic.Relations", err)
	}
	return detail.Relations, nil
}

// ByDocument lists the entities of a document, addressed by id or file_path.
func (l *EntityLogic) ByDocument(docID, filePath string) (*types.DocumentGraph, error) {
	resolver := NewResolverLogic(l.ctx, l.core)
	switch {
	case docID != "":
		return resolver.DocumentGraph(docID, false)
	case filePath != "":
		return resolver.ByFilePath(filePath)
	}
	return nil, errors.Validation("EntityLogic.ByDocument.MissingArgs", "doc_id or file_path is required")
}
