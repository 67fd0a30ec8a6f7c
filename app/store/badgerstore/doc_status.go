package badgerstore

import (
	"context"
	"encoding/json"
	"iter"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
)

type DocStatusStore struct {
	b *Backend
}

func (s *DocStatusStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *DocStatusStore) Upsert(ctx context.Context, ws types.Workspace, docs ...*types.Document) error {
	return wrapErr(s.b.db.Update(func(txn *badger.Txn) error {
		for _, d := range docs {
			raw, err := json.Marshal(d)
			if err != nil {
				return err
			}
			if err = txn.Set([]byte(ws.Key(types.NS_DOC_STATUS, d.ID)), raw); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *DocStatusStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.Document, error) {
	raw, err := s.b.get(ws.Key(types.NS_DOC_STATUS, id))
	if err != nil {
		return nil, err
	}
	var d types.Document
	if err = json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DocStatusStore) all(ws types.Workspace) iter.Seq2[*types.Document, error] {
	return func(yield func(*types.Document, error) bool) {
		var decodeErr error
		err := s.b.scan(ws.Prefix(types.NS_DOC_STATUS), func(kv store.KV) bool {
			var d types.Document
			if decodeErr = json.Unmarshal(kv.Value, &d); decodeErr != nil {
				return false
			}
			return yield(&d, nil)
		})
		if err == nil {
			err = decodeErr
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

func (s *DocStatusStore) GetByStatus(ctx context.Context, ws types.Workspace, statuses ...types.DocStatus) ([]*types.Document, error) {
	return s.Find(ctx, ws, types.DocumentFilter{Statuses: statuses})
}

func (s *DocStatusStore) Find(ctx context.Context, ws types.Workspace, filter types.DocumentFilter) ([]*types.Document, error) {
	var out []*types.Document
	for d, err := range s.all(ws) {
		if err != nil {
			return nil, err
		}
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	less := types.DocumentLess("created_at", false)
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func (s *DocStatusStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, ws.Key(types.NS_DOC_STATUS, id))
	}
	return s.b.deleteKeys(keys)
}

func (s *DocStatusStore) StatusCounts(ctx context.Context, ws types.Workspace) (map[types.DocStatus]int, error) {
	counts := make(map[types.DocStatus]int)
	for d, err := range s.all(ws) {
		if err != nil {
			return nil, err
		}
		counts[d.Status]++
	}
	return counts, nil
}

func (s *DocStatusStore) Query(ctx context.Context, ws types.Workspace, filter types.DocumentFilter, order query.Sort, page query.PageRequest) (query.Page[*types.Document], error) {
	return query.Collect(s.all(ws), query.Query[*types.Document]{
		Filter: filter.Match,
		Less:   types.DocumentLess(order.Field, order.Desc),
		Page:   page,
	})
}
