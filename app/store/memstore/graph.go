package memstore

import (
	"context"
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

// graph is one workspace partition. Edges are keyed by the undirected pair
// key and adjacency maps an entity name to the keys of its edges.
type graph struct {
	mu    sync.RWMutex
	nodes map[string]*types.Entity
	edges map[string]*types.Relation
	adj   map[string]map[string]struct{}
}

func newGraph() *graph {
	return &graph{
		nodes: make(map[string]*types.Entity),
		edges: make(map[string]*types.Relation),
		adj:   make(map[string]map[string]struct{}),
	}
}

func (g *graph) link(name, key string) {
	set, ok := g.adj[name]
	if !ok {
		set = make(map[string]struct{})
		g.adj[name] = set
	}
	set[key] = struct{}{}
}

func (g *graph) unlink(name, key string) {
	if set, ok := g.adj[name]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(g.adj, name)
		}
	}
}

func (g *graph) removeEdge(key string) {
	e, ok := g.edges[key]
	if !ok {
		return
	}
	delete(g.edges, key)
	g.unlink(e.Source, key)
	g.unlink(e.Target, key)
}

type GraphStore struct {
	spaces cmap.ConcurrentMap[string, *graph]
}

func NewGraphStore() *GraphStore {
	return &GraphStore{spaces: cmap.New[*graph]()}
}

func (s *GraphStore) of(ws types.Workspace) *graph {
	return s.spaces.Upsert(ws.String(), nil, func(exist bool, old, _ *graph) *graph {
		if exist {
			return old
		}
		return newGraph()
	})
}

func (s *GraphStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true}
}

func (s *GraphStore) UpsertNode(ctx context.Context, ws types.Workspace, node *types.Entity) error {
	g := s.of(ws)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[node.Name] = node.Clone()
	return nil
}

func (s *GraphStore) UpsertEdge(ctx context.Context, ws types.Workspace, edge *types.Relation) error {
	g := s.of(ws)
	g.mu.Lock()
	defer g.mu.Unlock()
	key := edge.Key()
	g.edges[key] = edge.Clone()
	g.link(edge.Source, key)
	g.link(edge.Target, key)
	return nil
}

func (s *GraphStore) GetNode(ctx context.Context, ws types.Workspace, name string) (*types.Entity, error) {
	g := s.of(ws)
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := n.Clone()
	out.Degree = len(g.adj[name])
	return out, nil
}

func (s *GraphStore) GetEdge(ctx context.Context, ws types.Workspace, src, tgt string) (*types.Relation, error) {
	g := s.of(ws)
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edges[types.RelationKey(src, tgt)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e.Clone(), nil
}

func (s *GraphStore) NodeEdges(ctx context.Context, ws types.Workspace, name string) ([]*types.Relation, error) {
	g := s.of(ws)
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, 0, len(g.adj[name]))
	for k := range g.adj[name] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*types.Relation, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.edges[k].Clone())
	}
	return out, nil
}

func (s *GraphStore) NodeDegree(ctx context.Context, ws types.Workspace, name string) (int, error) {
	g := s.of(ws)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.adj[name]), nil
}

func (s *GraphStore) AllNodes(ctx context.Context, ws types.Workspace) ([]*types.Entity, error) {
	g := s.of(ws)
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*types.Entity, 0, len(g.nodes))
	for name, n := range g.nodes {
		c := n.Clone()
		c.Degree = len(g.adj[name])
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *GraphStore) AllEdges(ctx context.Context, ws types.Workspace) ([]*types.Relation, error) {
	g := s.of(ws)
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*types.Relation, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *GraphStore) DeleteNode(ctx context.Context, ws types.Workspace, name string) error {
	g := s.of(ws)
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.adj[name] {
		g.removeEdge(key)
	}
	delete(g.nodes, name)
	return nil
}

func (s *GraphStore) DeleteEdge(ctx context.Context, ws types.Workspace, src, tgt string) error {
	g := s.of(ws)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeEdge(types.RelationKey(src, tgt))
	return nil
}
