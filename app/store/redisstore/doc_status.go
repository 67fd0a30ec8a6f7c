package redisstore

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
)

// DocStatusStore keeps one hash per workspace, field = document id.
type DocStatusStore struct {
	p *Provider
}

func (s *DocStatusStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *DocStatusStore) hash(ws types.Workspace) string {
	return s.p.hashKey(ws, types.NS_DOC_STATUS)
}

func (s *DocStatusStore) Upsert(ctx context.Context, ws types.Workspace, docs ...*types.Document) error {
	if len(docs) == 0 {
		return nil
	}
	values := make([]any, 0, len(docs)*2)
	for _, d := range docs {
		raw, err := json.Marshal(d)
		if err != nil {
			return err
		}
		values = append(values, d.ID, raw)
	}
	return wrapErr(s.p.client.HSet(ctx, s.hash(ws), values...).Err())
}

func (s *DocStatusStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.Document, error) {
	return hashGet[types.Document](ctx, s.p, s.hash(ws), id)
}

func (s *DocStatusStore) GetByStatus(ctx context.Context, ws types.Workspace, statuses ...types.DocStatus) ([]*types.Document, error) {
	return s.Find(ctx, ws, types.DocumentFilter{Statuses: statuses})
}

func (s *DocStatusStore) Find(ctx context.Context, ws types.Workspace, filter types.DocumentFilter) ([]*types.Document, error) {
	var out []*types.Document
	for d, err := range hashValues[types.Document](ctx, s.p, s.hash(ws)) {
		if err != nil {
			return nil, err
		}
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *DocStatusStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return wrapErr(s.p.client.HDel(ctx, s.hash(ws), ids...).Err())
}

func (s *DocStatusStore) StatusCounts(ctx context.Context, ws types.Workspace) (map[types.DocStatus]int, error) {
	counts := make(map[types.DocStatus]int)
	for d, err := range hashValues[types.Document](ctx, s.p, s.hash(ws)) {
		if err != nil {
			return nil, err
		}
		counts[d.Status]++
	}
	return counts, nil
}

func (s *DocStatusStore) Query(ctx context.Context, ws types.Workspace, filter types.DocumentFilter, order query.Sort, page query.PageRequest) (query.Page[*types.Document], error) {
	return query.Collect(hashValues[types.Document](ctx, s.p, s.hash(ws)), query.Query[*types.Document]{
		Filter: filter.Match,
		Less:   types.DocumentLess(order.Field, order.Desc),
		Page:   page,
	})
}

func sortByCreated(docs []*types.Document) {
	less := types.DocumentLess("created_at", false)
	sort.Slice(docs, func(i, j int) bool { return less(docs[i], docs[j]) })
}
