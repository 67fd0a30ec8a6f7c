package store

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/quka-ai/ragstore/pkg/types"
)

func GetJSON[T any](ctx context.Context, s KeyValueStore, ws types.Workspace, key string) (*T, error) {
	raw, err := s.Get(ctx, ws, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err = json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func PutJSON(ctx context.Context, s KeyValueStore, ws types.Workspace, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, ws, key, raw)
}

// ScanJSON decodes every value of a KV scan.
func ScanJSON[T any](ctx context.Context, s KeyValueStore, ws types.Workspace) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for kv, err := range s.ScanAll(ctx, ws) {
			if err != nil {
				yield(nil, err)
				return
			}
			var v T
			if err = json.Unmarshal(kv.Value, &v); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&v, nil) {
				return
			}
		}
	}
}

// UnsupportedScan is the sequence adapters without ScanAll return.
func UnsupportedScan[T any]() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, ErrUnsupportedOperation)
	}
}

// ListByDocument returns the records of vs whose chunk_ids intersect the
// chunk set of a document. It uses the native query when the adapter has one,
// otherwise the slow path: scan every record and keep those that intersect.
func ListByDocument(ctx context.Context, vs VectorStore, ws types.Workspace, docID string, chunkIDs []string) ([]*types.VectorRecord, error) {
	caps := vs.Capabilities()
	if caps.ListByDocument {
		res, err := vs.ListByDocument(ctx, ws, docID)
		if !errors.Is(err, ErrUnsupportedOperation) {
			return res, err
		}
	}
	return scanByChunkIDs(ctx, vs, ws, chunkIDs)
}

// ListByChunkIDs returns the records of vs whose chunk_ids intersect chunkIDs.
// It never resolves chunks through a document id, so it serves chunk sets
// gathered some other way, e.g. by file path.
func ListByChunkIDs(ctx context.Context, vs VectorStore, ws types.Workspace, chunkIDs []string) ([]*types.VectorRecord, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	if vs.Capabilities().ListByDocument {
		res, err := vs.ListByChunkIDs(ctx, ws, chunkIDs)
		if !errors.Is(err, ErrUnsupportedOperation) {
			return res, err
		}
	}
	return scanByChunkIDs(ctx, vs, ws, chunkIDs)
}

func scanByChunkIDs(ctx context.Context, vs VectorStore, ws types.Workspace, chunkIDs []string) ([]*types.VectorRecord, error) {
	if !vs.Capabilities().ScanAll {
		return nil, ErrUnsupportedOperation
	}
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	set := lo.SliceToMap(chunkIDs, func(id string) (string, struct{}) { return id, struct{}{} })
	var out []*types.VectorRecord
	for rec, err := range vs.ScanAll(ctx, ws) {
		if err != nil {
			return nil, err
		}
		if types.Intersects(rec.ChunkIDs, set) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CosineSimilarity is used by adapters without a native vector index.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// TopK keeps the k best scored results, highest first.
func TopK(results []types.QueryResult, k int) []types.QueryResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
