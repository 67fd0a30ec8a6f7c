package redisstore

import (
	"context"
	"iter"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

const scanCount = 500

type KVStore struct {
	p  *Provider
	ns types.Namespace
}

func (s *KVStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: !s.p.cluster}
}

func (s *KVStore) Namespace() types.Namespace {
	return s.ns
}

func (s *KVStore) Get(ctx context.Context, ws types.Workspace, key string) ([]byte, error) {
	raw, err := s.p.client.Get(ctx, s.p.key(ws, s.ns, key)).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	return raw, nil
}

func (s *KVStore) Put(ctx context.Context, ws types.Workspace, key string, value []byte) error {
	return wrapErr(s.p.client.Set(ctx, s.p.key(ws, s.ns, key), value, 0).Err())
}

func (s *KVStore) Delete(ctx context.Context, ws types.Workspace, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if s.p.cluster {
		// multi-key DEL must stay within one slot
		for _, k := range keys {
			if err := s.p.client.Del(ctx, s.p.key(ws, s.ns, k)).Err(); err != nil {
				return wrapErr(err)
			}
		}
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.p.key(ws, s.ns, k))
	}
	return wrapErr(s.p.client.Del(ctx, full...).Err())
}

// ScanAll walks SCAN MATCH <prefix>* and fetches values per batch with MGET.
// SCAN may repeat keys, they are yielded once.
func (s *KVStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[store.KV, error] {
	if s.p.cluster {
		return store.UnsupportedScan[store.KV]()
	}
	prefix := s.p.key(ws, s.ns, "")
	return func(yield func(store.KV, error) bool) {
		seen := make(map[string]struct{})
		var cursor uint64
		for {
			keys, next, err := s.p.client.Scan(ctx, cursor, prefix+"*", scanCount).Result()
			if err != nil {
				yield(store.KV{}, wrapErr(err))
				return
			}
			fresh := keys[:0]
			for _, k := range keys {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					fresh = append(fresh, k)
				}
			}
			if len(fresh) > 0 {
				values, err := s.p.client.MGet(ctx, fresh...).Result()
				if err != nil {
					yield(store.KV{}, wrapErr(err))
					return
				}
				for i, v := range values {
					str, ok := v.(string)
					if !ok {
						continue
					}
					if !yield(store.KV{Key: fresh[i][len(prefix):], Value: []byte(str)}, nil) {
						return
					}
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}
