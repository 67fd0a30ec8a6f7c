// Package memstore is the in-process backend family. It implements every store
// kind and is the default for single-node deployments and tests. Data does not
// survive a restart.
package memstore

import (
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

const BackendName = "memory"

type Option func(*Provider)

// WithoutScan makes the key-value and vector stores report no ScanAll
// capability, the way key-only backends behave.
func WithoutScan() Option {
	return func(p *Provider) {
		p.noScan = true
	}
}

type Provider struct {
	noScan  bool
	kv      cmap.ConcurrentMap[string, *KVStore]
	vectors cmap.ConcurrentMap[string, *VectorStore]
	docs    *DocStatusStore
	graph   *GraphStore
}

func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		kv:      cmap.New[*KVStore](),
		vectors: cmap.New[*VectorStore](),
	}
	for _, o := range opts {
		o(p)
	}
	p.docs = NewDocStatusStore()
	p.graph = NewGraphStore()
	return p
}

func (p *Provider) Name() string {
	return BackendName
}

func (p *Provider) KV(ns types.Namespace) (store.KeyValueStore, error) {
	return p.kv.Upsert(ns.String(), nil, func(exist bool, old, _ *KVStore) *KVStore {
		if exist {
			return old
		}
		return NewKVStore(ns, !p.noScan)
	}), nil
}

func (p *Provider) DocStatus() (store.DocStatusStore, error) {
	return p.docs, nil
}

func (p *Provider) Vector(ns types.Namespace) (store.VectorStore, error) {
	return p.vectors.Upsert(ns.String(), nil, func(exist bool, old, _ *VectorStore) *VectorStore {
		if exist {
			return old
		}
		return NewVectorStore(ns, !p.noScan)
	}), nil
}

func (p *Provider) Graph() (store.GraphStore, error) {
	return p.graph, nil
}

func (p *Provider) Close() error {
	return nil
}

// partitions is a lazily created map per workspace.
type partitions[V any] struct {
	spaces cmap.ConcurrentMap[string, cmap.ConcurrentMap[string, V]]
}

func newPartitions[V any]() partitions[V] {
	return partitions[V]{spaces: cmap.New[cmap.ConcurrentMap[string, V]]()}
}

func (p partitions[V]) of(ws types.Workspace) cmap.ConcurrentMap[string, V] {
	return p.spaces.Upsert(ws.String(), cmap.ConcurrentMap[string, V]{}, func(exist bool, old, _ cmap.ConcurrentMap[string, V]) cmap.ConcurrentMap[string, V] {
		if exist {
			return old
		}
		return cmap.New[V]()
	})
}
