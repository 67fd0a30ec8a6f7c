package redisstore

import (
	"context"
	"encoding/json"
	"iter"
)

const hscanCount = 500

// hashValues iterates the decoded values of one hash with HSCAN.
func hashValues[T any](ctx context.Context, p *Provider, key string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		seen := make(map[string]struct{})
		var cursor uint64
		for {
			kvs, next, err := p.client.HScan(ctx, key, cursor, "*", hscanCount).Result()
			if err != nil {
				yield(nil, wrapErr(err))
				return
			}
			for i := 0; i+1 < len(kvs); i += 2 {
				if _, ok := seen[kvs[i]]; ok {
					continue
				}
				seen[kvs[i]] = struct{}{}
				var v T
				if err = json.Unmarshal([]byte(kvs[i+1]), &v); err != nil {
					yield(nil, err)
					return
				}
				if !yield(&v, nil) {
					return
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

func hashGet[T any](ctx context.Context, p *Provider, key, field string) (*T, error) {
	raw, err := p.client.HGet(ctx, key, field).Bytes()
	if err != nil {
		return nil, wrapErr(err)
	}
	var v T
	if err = json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
