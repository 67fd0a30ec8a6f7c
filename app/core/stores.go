package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/app/store/badgerstore"
	"github.com/quka-ai/ragstore/app/store/memstore"
	"github.com/quka-ai/ragstore/app/store/mongostore"
	"github.com/quka-ai/ragstore/app/store/redisstore"
	"github.com/quka-ai/ragstore/app/store/s3store"
	"github.com/quka-ai/ragstore/app/store/sqlstore"
	"github.com/quka-ai/ragstore/pkg/types"
)

// backends opens each configured backend family once, however many store
// kinds it serves.
type backends struct {
	cfg    CoreConfig
	opened map[string]store.Backend
	order  []store.Backend
}

func (b *backends) open(ctx context.Context, name string) (store.Backend, error) {
	if exist, ok := b.opened[name]; ok {
		return exist, nil
	}

	var (
		backend store.Backend
		err     error
	)
	switch name {
	case BACKEND_MEMORY:
		backend = memstore.NewProvider()
	case BACKEND_POSTGRES:
		backend, err = sqlstore.Setup(ctx, b.cfg.Postgres)
	case BACKEND_REDIS:
		backend, err = redisstore.Setup(ctx, redisstore.Options{
			Addrs:     b.cfg.Redis.Addrs(),
			Password:  b.cfg.Redis.Password,
			DB:        b.cfg.Redis.DB,
			PoolSize:  b.cfg.Redis.PoolSize,
			Cluster:   b.cfg.Redis.Cluster,
			KeyPrefix: b.cfg.Redis.KeyPrefix,
		})
	case BACKEND_BADGER:
		backend, err = badgerstore.Open(b.cfg.Badger.Dir, b.cfg.Badger.Dir == "")
	case BACKEND_MONGO:
		backend, err = mongostore.Setup(ctx, b.cfg.Mongo.URI, b.cfg.Mongo.Database)
	case BACKEND_S3:
		backend, err = s3store.Setup(ctx, s3store.Options{
			Endpoint:  b.cfg.S3.Endpoint,
			Region:    b.cfg.S3.Region,
			Bucket:    b.cfg.S3.Bucket,
			AccessKey: b.cfg.S3.AccessKey,
			SecretKey: b.cfg.S3.SecretKey,
			PathStyle: b.cfg.S3.UsePathStyle,
			Prefix:    b.cfg.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", name, err)
	}

	slog.Info("storage backend ready", slog.String("component", "store"), slog.String("backend", name))
	b.opened[name] = backend
	b.order = append(b.order, backend)
	return backend, nil
}

func (b *backends) closeAll() error {
	var errs []error
	for _, v := range b.order {
		if err := v.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// setupStores resolves every store kind against the configured backends.
// A backend that does not provide the kind it is configured for is a setup error.
func setupStores(ctx context.Context, cfg CoreConfig) (*store.Stores, *backends, error) {
	b := &backends{cfg: cfg, opened: map[string]store.Backend{}}
	stores := &store.Stores{}

	kv := func(name string, ns types.Namespace) (store.KeyValueStore, error) {
		backend, err := b.open(ctx, name)
		if err != nil {
			return nil, err
		}
		return kindErr[store.KeyValueStore](backend, ns.String())(backend.KV(ns))
	}
	vector := func(ns types.Namespace) (store.VectorStore, error) {
		backend, err := b.open(ctx, cfg.Storage.Vector)
		if err != nil {
			return nil, err
		}
		return kindErr[store.VectorStore](backend, ns.String())(backend.Vector(ns))
	}

	var err error
	if stores.FullDocs, err = kv(cfg.Storage.FullDocs, types.NS_FULL_DOCS); err != nil {
		return nil, b, err
	}
	if stores.TextChunks, err = kv(cfg.Storage.KV, types.NS_TEXT_CHUNKS); err != nil {
		return nil, b, err
	}
	if stores.Entities, err = vector(types.NS_ENTITIES); err != nil {
		return nil, b, err
	}
	if stores.Relations, err = vector(types.NS_RELATIONSHIPS); err != nil {
		return nil, b, err
	}
	if stores.Chunks, err = vector(types.NS_CHUNKS); err != nil {
		return nil, b, err
	}

	backend, err := b.open(ctx, cfg.Storage.DocStatus)
	if err != nil {
		return nil, b, err
	}
	if stores.DocStatus, err = kindErr[store.DocStatusStore](backend, types.NS_DOC_STATUS.String())(backend.DocStatus()); err != nil {
		return nil, b, err
	}

	if backend, err = b.open(ctx, cfg.Storage.Graph); err != nil {
		return nil, b, err
	}
	if stores.Graph, err = kindErr[store.GraphStore](backend, types.NS_GRAPH.String())(backend.Graph()); err != nil {
		return nil, b, err
	}
	return stores, b, nil
}

func kindErr[T any](backend store.Backend, kind string) func(T, error) (T, error) {
	return func(v T, err error) (T, error) {
		if err != nil {
			return v, fmt.Errorf("backend %s cannot serve %s: %w", backend.Name(), kind, err)
		}
		return v, nil
	}
}
