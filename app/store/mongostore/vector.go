package mongostore

import (
	"context"
	"iter"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

type vectorRecord struct {
	Key                string `bson:"_id"`
	Workspace          string `bson:"workspace"`
	Namespace          string `bson:"namespace"`
	types.VectorRecord `bson:",inline"`
}

type VectorStore struct {
	coll *mongo.Collection
	ns   types.Namespace
}

func (s *VectorStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true, ListByDocument: true}
}

func (s *VectorStore) Namespace() types.Namespace {
	return s.ns
}

func (s *VectorStore) scope(ws types.Workspace) bson.M {
	return bson.M{"workspace": ws.String(), "namespace": s.ns.String()}
}

func (s *VectorStore) Upsert(ctx context.Context, ws types.Workspace, records ...*types.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		rec := vectorRecord{Key: ws.Key(s.ns, r.ID), Workspace: ws.String(), Namespace: s.ns.String(), VectorRecord: *r}
		models = append(models, mongo.NewReplaceOneModel().SetFilter(bson.M{"_id": rec.Key}).SetReplacement(rec).SetUpsert(true))
	}
	_, err := s.coll.BulkWrite(ctx, models)
	return wrapErr(err)
}

func (s *VectorStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.VectorRecord, error) {
	var rec vectorRecord
	if err := s.coll.FindOne(ctx, bson.M{"_id": ws.Key(s.ns, id)}).Decode(&rec); err != nil {
		return nil, wrapErr(err)
	}
	return &rec.VectorRecord, nil
}

func (s *VectorStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, ws.Key(s.ns, id))
	}
	_, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return wrapErr(err)
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
	return s.iterate(ctx, s.scope(ws))
}

func (s *VectorStore) iterate(ctx context.Context, filter bson.M) iter.Seq2[*types.VectorRecord, error] {
	return func(yield func(*types.VectorRecord, error) bool) {
		cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			yield(nil, wrapErr(err))
			return
		}
		defer cur.Close(context.Background())
		for cur.Next(ctx) {
			var rec vectorRecord
			if err = cur.Decode(&rec); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&rec.VectorRecord, nil) {
				return
			}
		}
		if err = cur.Err(); err != nil {
			yield(nil, wrapErr(err))
		}
	}
}

// ListByDocument reads the chunk ids of the document from the chunks
// namespace, then matches chunk_ids with $in.
func (s *VectorStore) ListByDocument(ctx context.Context, ws types.Workspace, docID string) ([]*types.VectorRecord, error) {
	var filter bson.M
	if s.ns == types.NS_CHUNKS {
		filter = s.scope(ws)
		filter["full_doc_id"] = docID
	} else {
		chunkIDs, err := s.coll.Distinct(ctx, "id", bson.M{
			"workspace":   ws.String(),
			"namespace":   types.NS_CHUNKS.String(),
			"full_doc_id": docID,
		})
		if err != nil {
			return nil, wrapErr(err)
		}
		if len(chunkIDs) == 0 {
			return nil, nil
		}
		filter = s.scope(ws)
		filter["chunk_ids"] = bson.M{"$in": chunkIDs}
	}
	return s.list(ctx, filter)
}

// ListByChunkIDs matches chunk_ids against an explicit set with $in.
func (s *VectorStore) ListByChunkIDs(ctx context.Context, ws types.Workspace, chunkIDs []string) ([]*types.VectorRecord, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	filter := s.scope(ws)
	if s.ns == types.NS_CHUNKS {
		filter["id"] = bson.M{"$in": chunkIDs}
	} else {
		filter["chunk_ids"] = bson.M{"$in": chunkIDs}
	}
	return s.list(ctx, filter)
}

func (s *VectorStore) list(ctx context.Context, filter bson.M) ([]*types.VectorRecord, error) {
	var out []*types.VectorRecord
	for r, err := range s.iterate(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
