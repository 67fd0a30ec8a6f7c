package badgerstore

import (
	"context"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

type KVStore struct {
	b  *Backend
	ns types.Namespace
}

func (s *KVStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *KVStore) Namespace() types.Namespace {
	return s.ns
}

func (s *KVStore) Get(ctx context.Context, ws types.Workspace, key string) ([]byte, error) {
	return s.b.get(ws.Key(s.ns, key))
}

func (s *KVStore) Put(ctx context.Context, ws types.Workspace, key string, value []byte) error {
	return wrapErr(s.b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ws.Key(s.ns, key)), value)
	}))
}

func (s *KVStore) Delete(ctx context.Context, ws types.Workspace, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, ws.Key(s.ns, k))
	}
	return s.b.deleteKeys(full)
}

func (s *KVStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[store.KV, error] {
	prefix := ws.Prefix(s.ns)
	return func(yield func(store.KV, error) bool) {
		err := s.b.scan(prefix, func(kv store.KV) bool {
			return yield(store.KV{Key: strings.TrimPrefix(kv.Key, prefix), Value: kv.Value}, nil)
		})
		if err != nil {
			yield(store.KV{}, err)
		}
	}
}
