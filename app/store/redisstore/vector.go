package redisstore

import (
	"context"
	"encoding/json"
	"iter"
	"sort"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

// VectorStore keeps one hash per workspace and namespace. Similarity search
// is a brute-force scan of the hash.
type VectorStore struct {
	p  *Provider
	ns types.Namespace
}

func (s *VectorStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *VectorStore) Namespace() types.Namespace {
	return s.ns
}

func (s *VectorStore) hash(ws types.Workspace) string {
	return s.p.hashKey(ws, s.ns)
}

func (s *VectorStore) Upsert(ctx context.Context, ws types.Workspace, records ...*types.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]any, 0, len(records)*2)
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return err
		}
		values = append(values, r.ID, raw)
	}
	return wrapErr(s.p.client.HSet(ctx, s.hash(ws), values...).Err())
}

func (s *VectorStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.VectorRecord, error) {
	return hashGet[types.VectorRecord](ctx, s.p, s.hash(ws), id)
}

func (s *VectorStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return wrapErr(s.p.client.HDel(ctx, s.hash(ws), ids...).Err())
}

func (s *VectorStore) QueryBySimilarity(ctx context.Context, ws types.Workspace, vector []float32, k int) ([]types.QueryResult, error) {
	var res []types.QueryResult
	for r, err := range s.ScanAll(ctx, ws) {
		if err != nil {
			return nil, err
		}
		if len(r.Vector) == 0 {
			continue
		}
		res = append(res, types.QueryResult{Record: r, Score: store.CosineSimilarity(vector, r.Vector)})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Record.ID < res[j].Record.ID })
	return store.TopK(res, k), nil
}

func (s *VectorStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[*types.VectorRecord, error] {
	return hashValues[types.VectorRecord](ctx, s.p, s.hash(ws))
}

func (s *VectorStore) ListByDocument(ctx context.Context, ws types.Workspace, docID string) ([]*types.VectorRecord, error) {
	return nil, store.ErrUnsupportedOperation
}

func (s *VectorStore) ListByChunkIDs(ctx context.Context, ws types.Workspace, chunkIDs []string) ([]*types.VectorRecord, error) {
	return nil, store.ErrUnsupportedOperation
}
