// Package mongostore keeps key-value content, document status and vectors in
// MongoDB. Every record carries its workspace and the _id is the full
// <workspace>:<namespace>:<id> key, so tenants never share a document.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

const BackendName = "mongo"

const (
	collectionKV        = "rag_kv"
	collectionDocStatus = "rag_doc_status"
	collectionVectors   = "rag_vectors"
)

type Provider struct {
	client *mongo.Client
	db     *mongo.Database
}

func Setup(ctx context.Context, uri, database string) (*Provider, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, wrapErr(err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, wrapErr(err)
	}
	p := &Provider{client: client, db: client.Database(database)}
	if err = p.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return p, nil
}

func (p *Provider) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collectionKV: {
			{Keys: bson.D{{Key: "workspace", Value: 1}, {Key: "namespace", Value: 1}, {Key: "_id", Value: 1}}},
		},
		collectionDocStatus: {
			{Keys: bson.D{{Key: "workspace", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "workspace", Value: 1}, {Key: "track_id", Value: 1}}},
			{Keys: bson.D{{Key: "workspace", Value: 1}, {Key: "content_hash", Value: 1}}},
		},
		collectionVectors: {
			{Keys: bson.D{{Key: "workspace", Value: 1}, {Key: "namespace", Value: 1}, {Key: "chunk_ids", Value: 1}}},
			{Keys: bson.D{{Key: "workspace", Value: 1}, {Key: "namespace", Value: 1}, {Key: "full_doc_id", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := p.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return wrapErr(err)
		}
	}
	return nil
}

func (p *Provider) Name() string {
	return BackendName
}

func (p *Provider) KV(ns types.Namespace) (store.KeyValueStore, error) {
	return &KVStore{coll: p.db.Collection(collectionKV), ns: ns}, nil
}

func (p *Provider) DocStatus() (store.DocStatusStore, error) {
	return &DocStatusStore{coll: p.db.Collection(collectionDocStatus)}, nil
}

func (p *Provider) Vector(ns types.Namespace) (store.VectorStore, error) {
	return &VectorStore{coll: p.db.Collection(collectionVectors), ns: ns}, nil
}

func (p *Provider) Graph() (store.GraphStore, error) {
	return nil, store.ErrUnsupportedOperation
}

func (p *Provider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.client.Disconnect(ctx)
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, context.DeadlineExceeded) {
		return store.Unavailable(err)
	}
	return err
}

func upsertOpts() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}
