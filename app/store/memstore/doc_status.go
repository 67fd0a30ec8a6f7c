package memstore

import (
	"context"
	"sort"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
)

type DocStatusStore struct {
	data partitions[*types.Document]
}

func NewDocStatusStore() *DocStatusStore {
	return &DocStatusStore{data: newPartitions[*types.Document]()}
}

func (s *DocStatusStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *DocStatusStore) Upsert(ctx context.Context, ws types.Workspace, docs ...*types.Document) error {
	m := s.data.of(ws)
	for _, d := range docs {
		m.Set(d.ID, d.Clone())
	}
	return nil
}

func (s *DocStatusStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.Document, error) {
	d, ok := s.data.of(ws).Get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *DocStatusStore) GetByStatus(ctx context.Context, ws types.Workspace, statuses ...types.DocStatus) ([]*types.Document, error) {
	return s.Find(ctx, ws, types.DocumentFilter{Statuses: statuses})
}

func (s *DocStatusStore) Find(ctx context.Context, ws types.Workspace, filter types.DocumentFilter) ([]*types.Document, error) {
	var out []*types.Document
	for _, d := range s.data.of(ws).Items() {
		if filter.Match(d) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *DocStatusStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	m := s.data.of(ws)
	for _, id := range ids {
		m.Remove(id)
	}
	return nil
}

func (s *DocStatusStore) StatusCounts(ctx context.Context, ws types.Workspace) (map[types.DocStatus]int, error) {
	counts := make(map[types.DocStatus]int)
	for _, d := range s.data.of(ws).Items() {
		counts[d.Status]++
	}
	return counts, nil
}

func (s *DocStatusStore) Query(ctx context.Context, ws types.Workspace, filter types.DocumentFilter, sort query.Sort, page query.PageRequest) (query.Page[*types.Document], error) {
	docs, err := s.Find(ctx, ws, filter)
	if err != nil {
		return query.Page[*types.Document]{}, err
	}
	return query.Execute(docs, query.Query[*types.Document]{
		Less: types.DocumentLess(sort.Field, sort.Desc),
		Page: page,
	})
}
