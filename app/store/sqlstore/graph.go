package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/register"
	"github.com/quka-ai/ragstore/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.Graph = NewGraphStore(provider)
	})
}

// GraphStore keeps nodes and edges in two tables. An edge row is keyed by
// the undirected pair key, so (a, b) and (b, a) land on the same row.
type GraphStore struct {
	nodes CommonFields
	edges CommonFields
	p     SqlProviderAchieve
}

func NewGraphStore(provider SqlProviderAchieve) *GraphStore {
	repo := &GraphStore{p: provider}
	repo.nodes.SetProvider(provider)
	repo.nodes.SetTable(types.TABLE_GRAPH_NODES)
	repo.nodes.SetAllColumns("id", "name", "entity_type", "description", "chunk_ids", "file_path", "created_at", "updated_at")
	repo.edges.SetProvider(provider)
	repo.edges.SetTable(types.TABLE_GRAPH_EDGES)
	repo.edges.SetAllColumns("id", "source_name", "target_name", "description", "keywords", "weight", "chunk_ids",
		"file_path", "created_at", "updated_at")
	return repo
}

func (s *GraphStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true, ServerFilter: true}
}

type entityRow struct {
	types.Entity
	Degree int `db:"degree"`
}

func (r *entityRow) entity() *types.Entity {
	e := r.Entity
	e.Degree = r.Degree
	return &e
}

func (s *GraphStore) degreeColumn() string {
	return "(SELECT COUNT(*) FROM " + s.edges.GetTable() + " e WHERE e.workspace = n.workspace AND (e.source_name = n.name OR e.target_name = n.name)) AS degree"
}

func (s *GraphStore) selectNodes(ws types.Workspace) sq.SelectBuilder {
	columns := make([]string, 0, len(s.nodes.GetAllColumns())+1)
	for _, c := range s.nodes.GetAllColumns() {
		columns = append(columns, "n."+c)
	}
	return sq.Select(append(columns, s.degreeColumn())...).
		From(s.nodes.GetTable() + " n").
		Where(sq.Eq{"n.workspace": ws.String()})
}

func (s *GraphStore) UpsertNode(ctx context.Context, ws types.Workspace, node *types.Entity) error {
	now := time.Now().Unix()
	createdAt, updatedAt := node.CreatedAt, node.UpdatedAt
	if createdAt == 0 {
		createdAt = now
	}
	if updatedAt == 0 {
		updatedAt = now
	}
	query := sq.Insert(s.nodes.GetTable()).
		Columns(append([]string{"workspace"}, s.nodes.GetAllColumns()...)...).
		Values(ws.String(), node.ID, node.Name, node.Type, node.Description, nonNil(node.ChunkIDs), node.FilePath, createdAt, updatedAt).
		Suffix("ON CONFLICT (workspace, name) DO UPDATE SET " + excludedSet("id", "entity_type", "description", "chunk_ids", "file_path", "updated_at"))

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.nodes.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

func (s *GraphStore) UpsertEdge(ctx context.Context, ws types.Workspace, edge *types.Relation) error {
	now := time.Now().Unix()
	createdAt, updatedAt := edge.CreatedAt, edge.UpdatedAt
	if createdAt == 0 {
		createdAt = now
	}
	if updatedAt == 0 {
		updatedAt = now
	}
	query := sq.Insert(s.edges.GetTable()).
		Columns(append([]string{"workspace", "pair_key"}, s.edges.GetAllColumns()...)...).
		Values(ws.String(), edge.Key(), edge.ID, edge.Source, edge.Target, edge.Description, edge.Keywords, edge.Weight,
			nonNil(edge.ChunkIDs), edge.FilePath, createdAt, updatedAt).
		Suffix("ON CONFLICT (workspace, pair_key) DO UPDATE SET " + excludedSet(s.edges.GetAllColumns()[1:]...))

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.edges.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

func (s *GraphStore) GetNode(ctx context.Context, ws types.Workspace, name string) (*types.Entity, error) {
	queryString, args, err := s.selectNodes(ws).Where(sq.Eq{"n.name": name}).ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var row entityRow
	if err = s.nodes.GetReplica(ctx).Get(&row, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	return row.entity(), nil
}

func (s *GraphStore) GetEdge(ctx context.Context, ws types.Workspace, src, tgt string) (*types.Relation, error) {
	query := sq.Select(s.edges.GetAllColumns()...).From(s.edges.GetTable()).
		Where(sq.Eq{"workspace": ws.String(), "pair_key": types.RelationKey(src, tgt)})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Relation
	if err = s.edges.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

func (s *GraphStore) touching(ws types.Workspace, name string) sq.Sqlizer {
	return sq.And{
		sq.Eq{"workspace": ws.String()},
		sq.Or{sq.Eq{"source_name": name}, sq.Eq{"target_name": name}},
	}
}

func (s *GraphStore) NodeEdges(ctx context.Context, ws types.Workspace, name string) ([]*types.Relation, error) {
	query := sq.Select(s.edges.GetAllColumns()...).From(s.edges.GetTable()).Where(s.touching(ws, name)).OrderBy("pair_key")
	return s.selectEdges(ctx, query)
}

func (s *GraphStore) NodeDegree(ctx context.Context, ws types.Workspace, name string) (int, error) {
	queryString, args, err := sq.Select("COUNT(*)").From(s.edges.GetTable()).Where(s.touching(ws, name)).ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var degree int
	if err = s.edges.GetReplica(ctx).Get(&degree, queryString, args...); err != nil {
		return 0, wrapErr(err)
	}
	return degree, nil
}

func (s *GraphStore) AllNodes(ctx context.Context, ws types.Workspace) ([]*types.Entity, error) {
	queryString, args, err := s.selectNodes(ws).OrderBy("n.name").ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var rows []entityRow
	if err = s.nodes.GetReplica(ctx).Select(&rows, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	res := make([]*types.Entity, 0, len(rows))
	for i := range rows {
		res = append(res, rows[i].entity())
	}
	return res, nil
}

func (s *GraphStore) AllEdges(ctx context.Context, ws types.Workspace) ([]*types.Relation, error) {
	query := sq.Select(s.edges.GetAllColumns()...).From(s.edges.GetTable()).
		Where(sq.Eq{"workspace": ws.String()}).
		OrderBy("pair_key")
	return s.selectEdges(ctx, query)
}

func (s *GraphStore) selectEdges(ctx context.Context, query sq.SelectBuilder) ([]*types.Relation, error) {
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	res := []*types.Relation{}
	if err = s.edges.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

// DeleteNode drops the node and its edges in one transaction.
func (s *GraphStore) DeleteNode(ctx context.Context, ws types.Workspace, name string) error {
	return wrapErr(s.p.Transaction(ctx, func(ctx context.Context) error {
		queryString, args, err := sq.Delete(s.edges.GetTable()).Where(s.touching(ws, name)).ToSql()
		if err != nil {
			return ErrorSqlBuild(err)
		}
		if _, err = s.edges.GetMaster(ctx).Exec(queryString, args...); err != nil {
			return err
		}

		queryString, args, err = sq.Delete(s.nodes.GetTable()).Where(sq.Eq{"workspace": ws.String(), "name": name}).ToSql()
		if err != nil {
			return ErrorSqlBuild(err)
		}
		_, err = s.nodes.GetMaster(ctx).Exec(queryString, args...)
		return err
	}))
}

func (s *GraphStore) DeleteEdge(ctx context.Context, ws types.Workspace, src, tgt string) error {
	query := sq.Delete(s.edges.GetTable()).Where(sq.Eq{"workspace": ws.String(), "pair_key": types.RelationKey(src, tgt)})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.edges.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

func nonNil(ids pq.StringArray) pq.StringArray {
	if ids == nil {
		return pq.StringArray{}
	}
	return ids
}
