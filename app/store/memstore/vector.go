package memstore

import (
	"context"
	"iter"
	"sort"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

type VectorStore struct {
	ns   types.Namespace
	scan bool
	data partitions[*types.VectorRecord]
}

func NewVectorStore(ns types.Namespace, scan bool) *VectorStore {
	return &VectorStore{
		ns:   ns,
		scan: scan,
		data: newPartitions[*types.VectorRecord](),
	}
}

// No native set containment: ListByDocument goes through the two-hop scan.
func (s *VectorStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: s.scan}
}

func (s *VectorStore) Namespace() types.Namespace {
	return s.ns
}

func (s *VectorStore) Upsert(ctx context.Context, ws types.Workspace, records ...*types.VectorRecord) error {
	m := s.data.of(ws)
	for _, r := range records {
		m.Set(r.ID, r.Clone())
	}
	return nil
}

func (s *VectorStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.VectorRecord, error) {
	r, ok := s.data.of(ws).Get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *VectorStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	m := s.data.of(ws)
	for _, id := range ids {
		m.Remove(id)
	}
	return nil
}

func (s *VectorStore) QueryBySimilarity(ctx context.Context, ws types.Workspace, vector []float32, k int) ([]types.QueryResult, error) {
	var res []types.QueryResult
	for _, r := range s.data.of(ws).Items() {
		if len(r.Vector) == 0 {
			continue
		}
		res = append(res, types.QueryResult{
			Record: r.Clone(),
			Score:  store.CosineSimilarity(vector, r.Vector),
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Record.ID < res[j].Record.ID })
	return store.TopK(res, k), nil
}

func (s *VectorStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[*types.VectorRecord, error] {
	if !s.scan {
		return store.UnsupportedScan[*types.VectorRecord]()
	}
	return func(yield func(*types.VectorRecord, error) bool) {
		m := s.data.of(ws)
		keys := m.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			r, ok := m.Get(k)
			if !ok {
				continue
			}
			if !yield(r.Clone(), nil) {
				return
			}
		}
	}
}

func (s *VectorStore) ListByDocument(ctx context.Context, ws types.Workspace, docID string) ([]*types.VectorRecord, error) {
	return nil, store.ErrUnsupportedOperation
}

func (s *VectorStore) ListByChunkIDs(ctx context.Context, ws types.Workspace, chunkIDs []string) ([]*types.VectorRecord, error) {
	return nil, store.ErrUnsupportedOperation
}
