package memstore

import (
	"context"
	"iter"
	"sort"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

type KVStore struct {
	ns   types.Namespace
	scan bool
	data partitions[[]byte]
}

func NewKVStore(ns types.Namespace, scan bool) *KVStore {
	return &KVStore{
		ns:   ns,
		scan: scan,
		data: newPartitions[[]byte](),
	}
}

func (s *KVStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: s.scan}
}

func (s *KVStore) Namespace() types.Namespace {
	return s.ns
}

func (s *KVStore) Get(ctx context.Context, ws types.Workspace, key string) ([]byte, error) {
	v, ok := s.data.of(ws).Get(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *KVStore) Put(ctx context.Context, ws types.Workspace, key string, value []byte) error {
	s.data.of(ws).Set(key, append([]byte(nil), value...))
	return nil
}

func (s *KVStore) Delete(ctx context.Context, ws types.Workspace, keys ...string) error {
	m := s.data.of(ws)
	for _, k := range keys {
		m.Remove(k)
	}
	return nil
}

func (s *KVStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[store.KV, error] {
	if !s.scan {
		return store.UnsupportedScan[store.KV]()
	}
	return func(yield func(store.KV, error) bool) {
		m := s.data.of(ws)
		keys := m.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			if err := ctx.Err(); err != nil {
				yield(store.KV{}, err)
				return
			}
			v, ok := m.Get(k)
			if !ok {
				continue
			}
			if !yield(store.KV{Key: k, Value: append([]byte(nil), v...)}, nil) {
				return
			}
		}
	}
}
