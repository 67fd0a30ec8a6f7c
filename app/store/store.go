package store

import (
	"context"
	"iter"

	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/types"
)

// Capabilities declares the optional operations an adapter implements natively.
// Callers check it instead of probing the concrete type.
type Capabilities struct {
	// ScanAll: the adapter can enumerate every record of a workspace.
	ScanAll bool
	// ListByDocument: the adapter resolves document membership itself
	// (set containment on chunk_ids). Without it callers use the two-hop path.
	ListByDocument bool
	// ServerFilter: Query runs on the backend instead of in memory.
	ServerFilter bool
}

type Capable interface {
	Capabilities() Capabilities
}

type KV struct {
	Key   string
	Value []byte
}

// KeyValueStore holds raw content, one instance per namespace (full_docs, text_chunks).
type KeyValueStore interface {
	Capable
	Namespace() types.Namespace
	// Get returns ErrNotFound when the key is absent in the workspace.
	Get(ctx context.Context, ws types.Workspace, key string) ([]byte, error)
	Put(ctx context.Context, ws types.Workspace, key string, value []byte) error
	Delete(ctx context.Context, ws types.Workspace, keys ...string) error
	// ScanAll is lazy, finite and restartable: ranging over the returned
	// sequence again starts a fresh scan. Errors are yielded in place of a pair
	// and end the scan. Without the capability the only element is ErrUnsupportedOperation.
	ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[KV, error]
}

type DocStatusStore interface {
	Capable
	Upsert(ctx context.Context, ws types.Workspace, docs ...*types.Document) error
	Get(ctx context.Context, ws types.Workspace, id string) (*types.Document, error)
	// GetByStatus returns every matching document of the workspace.
	GetByStatus(ctx context.Context, ws types.Workspace, statuses ...types.DocStatus) ([]*types.Document, error)
	Find(ctx context.Context, ws types.Workspace, filter types.DocumentFilter) ([]*types.Document, error)
	Delete(ctx context.Context, ws types.Workspace, ids ...string) error
	StatusCounts(ctx context.Context, ws types.Workspace) (map[types.DocStatus]int, error)
	Query(ctx context.Context, ws types.Workspace, filter types.DocumentFilter, sort query.Sort, page query.PageRequest) (query.Page[*types.Document], error)
}

// VectorStore holds embedded records, one instance per namespace (entities, relationships, chunks).
type VectorStore interface {
	Capable
	Namespace() types.Namespace
	Upsert(ctx context.Context, ws types.Workspace, records ...*types.VectorRecord) error
	Get(ctx context.Context, ws types.Workspace, id string) (*types.VectorRecord, error)
	Delete(ctx context.Context, ws types.Workspace, ids ...string) error
	QueryBySimilarity(ctx context.Context, ws types.Workspace, vector []float32, k int) ([]types.QueryResult, error)
	ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[*types.VectorRecord, error]
	// ListByDocument is the native membership query. Adapters without the
	// capability return ErrUnsupportedOperation, use store.ListByDocument instead.
	ListByDocument(ctx context.Context, ws types.Workspace, docID string) ([]*types.VectorRecord, error)
	// ListByChunkIDs is the same membership query for an explicit chunk set
	// that does not come from one document. Same capability as ListByDocument.
	ListByChunkIDs(ctx context.Context, ws types.Workspace, chunkIDs []string) ([]*types.VectorRecord, error)
}

// GraphStore keeps entities as nodes and relations as undirected edges.
// Upserts replace the stored value, merging is the caller's job.
type GraphStore interface {
	Capable
	UpsertNode(ctx context.Context, ws types.Workspace, node *types.Entity) error
	UpsertEdge(ctx context.Context, ws types.Workspace, edge *types.Relation) error
	GetNode(ctx context.Context, ws types.Workspace, name string) (*types.Entity, error)
	// GetEdge matches (src, tgt) in either orientation.
	GetEdge(ctx context.Context, ws types.Workspace, src, tgt string) (*types.Relation, error)
	// NodeEdges returns every edge with name at either end.
	NodeEdges(ctx context.Context, ws types.Workspace, name string) ([]*types.Relation, error)
	NodeDegree(ctx context.Context, ws types.Workspace, name string) (int, error)
	AllNodes(ctx context.Context, ws types.Workspace) ([]*types.Entity, error)
	AllEdges(ctx context.Context, ws types.Workspace) ([]*types.Relation, error)
	// DeleteNode removes the node and the edges touching it.
	DeleteNode(ctx context.Context, ws types.Workspace, name string) error
	DeleteEdge(ctx context.Context, ws types.Workspace, src, tgt string) error
}

// Stores is the full set of adapters one workspace-aware deployment runs with.
type Stores struct {
	FullDocs   KeyValueStore
	TextChunks KeyValueStore
	DocStatus  DocStatusStore
	Entities   VectorStore
	Relations  VectorStore
	Chunks     VectorStore
	Graph      GraphStore
}

// Backend is implemented by every backend family. A family that does not
// provide a store kind returns ErrUnsupportedOperation for it.
type Backend interface {
	Name() string
	KV(ns types.Namespace) (KeyValueStore, error)
	DocStatus() (DocStatusStore, error)
	Vector(ns types.Namespace) (VectorStore, error)
	Graph() (GraphStore, error)
	Close() error
}
