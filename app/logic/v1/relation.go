package v1

import (
	"context"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
)

type RelationLogic struct {
	ctx  context.Context
	core *core.Core
	ws   types.Workspace
}

func NewRelationLogic(ctx context.Context, core *core.Core) *RelationLogic {
	return &RelationLogic{
		ctx:  ctx,
		core: core,
		ws:   SetupWorkspace(ctx, core),
	}
}

type ListRelationsRequest struct {
	EntityName string `form:"entity_name"`
	Keyword    string `form:"keyword"`
	query.PageRequest
}

func (l *RelationLogic) List(req ListRelationsRequest) (query.Page[*types.Relation], error) {
	edges, err := l.core.Stores().Graph.AllEdges(l.ctx, l.ws)
	if err != nil {
		return query.Page[*types.Relation]{}, errors.FromStore("RelationLogic.List.Graph.AllEdges", err)
	}

	filter := types.RelationFilter{EntityName: req.EntityName, Keyword: req.Keyword}
	page, err := query.Execute(edges, query.Query[*types.Relation]{
		Filter: filter.Match,
		Less:   func(a, b *types.Relation) bool { return a.Key() < b.Key() },
		Page:   req.PageRequest,
	})
	if err != nil {
		return page, errors.FromStore("RelationLogic.List.Execute", err)
	}
	return page, nil
}
