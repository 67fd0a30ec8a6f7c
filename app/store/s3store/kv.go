package s3store

import (
	"context"
	"iter"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

// deleteBatch is the DeleteObjects request limit.
const deleteBatch = 1000

type KVStore struct {
	p  *Provider
	ns types.Namespace
}

func (s *KVStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *KVStore) Namespace() types.Namespace {
	return s.ns
}

func (s *KVStore) Get(ctx context.Context, ws types.Workspace, key string) ([]byte, error) {
	return s.p.getObject(ctx, s.p.objectKey(ws, s.ns, key))
}

func (s *KVStore) Put(ctx context.Context, ws types.Workspace, key string, value []byte) error {
	return s.p.upload(ctx, s.p.objectKey(ws, s.ns, key), value)
}

func (s *KVStore) Delete(ctx context.Context, ws types.Workspace, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.p.objectKey(ws, s.ns, k))
	}
	for start := 0; start < len(full); start += deleteBatch {
		end := min(start+deleteBatch, len(full))
		if err := s.p.deleteObjects(ctx, full[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// ScanAll lists the workspace prefix page by page and fetches each object.
func (s *KVStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[store.KV, error] {
	prefix := s.p.prefix(ws, s.ns)
	return func(yield func(store.KV, error) bool) {
		pager := s3.NewListObjectsV2Paginator(s.p.cli, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.p.opts.Bucket),
			Prefix: aws.String(prefix),
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				yield(store.KV{}, wrapErr(err))
				return
			}
			for _, obj := range page.Contents {
				key := aws.ToString(obj.Key)
				raw, err := s.p.getObject(ctx, key)
				if err != nil {
					yield(store.KV{}, err)
					return
				}
				if !yield(store.KV{Key: strings.TrimPrefix(key, prefix), Value: raw}, nil) {
					return
				}
			}
		}
	}
}
