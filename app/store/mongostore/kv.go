package mongostore

import (
	"context"
	"iter"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

type kvRecord struct {
	Key       string `bson:"_id"`
	Workspace string `bson:"workspace"`
	Namespace string `bson:"namespace"`
	Value     []byte `bson:"value"`
}

type KVStore struct {
	coll *mongo.Collection
	ns   types.Namespace
}

func (s *KVStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *KVStore) Namespace() types.Namespace {
	return s.ns
}

func (s *KVStore) Get(ctx context.Context, ws types.Workspace, key string) ([]byte, error) {
	var rec kvRecord
	if err := s.coll.FindOne(ctx, bson.M{"_id": ws.Key(s.ns, key)}).Decode(&rec); err != nil {
		return nil, wrapErr(err)
	}
	return rec.Value, nil
}

func (s *KVStore) Put(ctx context.Context, ws types.Workspace, key string, value []byte) error {
	rec := kvRecord{Key: ws.Key(s.ns, key), Workspace: ws.String(), Namespace: s.ns.String(), Value: value}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.Key}, rec, upsertOpts())
	return wrapErr(err)
}

func (s *KVStore) Delete(ctx context.Context, ws types.Workspace, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, ws.Key(s.ns, k))
	}
	_, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return wrapErr(err)
}

func (s *KVStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[store.KV, error] {
	prefix := ws.Prefix(s.ns)
	return func(yield func(store.KV, error) bool) {
		cur, err := s.coll.Find(ctx, bson.M{"workspace": ws.String(), "namespace": s.ns.String()},
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			yield(store.KV{}, wrapErr(err))
			return
		}
		defer cur.Close(context.Background())
		for cur.Next(ctx) {
			var rec kvRecord
			if err = cur.Decode(&rec); err != nil {
				yield(store.KV{}, err)
				return
			}
			if !yield(store.KV{Key: strings.TrimPrefix(rec.Key, prefix), Value: rec.Value}, nil) {
				return
			}
		}
		if err = cur.Err(); err != nil {
			yield(store.KV{}, wrapErr(err))
		}
	}
}
