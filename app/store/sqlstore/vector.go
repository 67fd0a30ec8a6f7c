package sqlstore

import (
	"context"
	"iter"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

// VectorStore keeps every vector namespace in one table, partitioned by
// (workspace, namespace).
type VectorStore struct {
	CommonFields
	ns types.Namespace
}

func NewVectorStore(provider SqlProviderAchieve, ns types.Namespace) *VectorStore {
	repo := &VectorStore{ns: ns}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_VECTORS)
	repo.SetAllColumns("id", "content", "entity_name", "source_name", "target_name", "full_doc_id", "chunk_ids",
		"file_path", "embedding", "created_at", "updated_at")
	return repo
}

func (s *VectorStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true, ListByDocument: true, ServerFilter: true}
}

func (s *VectorStore) Namespace() types.Namespace {
	return s.ns
}

func (s *VectorStore) scope(ws types.Workspace) sq.Eq {
	return sq.Eq{"workspace": ws.String(), "namespace": s.ns.String()}
}

type vectorRow struct {
	types.VectorRecord
	Embedding *pgvector.Vector `db:"embedding"`
}

func (r *vectorRow) record() *types.VectorRecord {
	rec := r.VectorRecord
	if r.Embedding != nil {
		rec.Vector = r.Embedding.Slice()
	}
	return &rec
}

func embeddingValue(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func (s *VectorStore) Upsert(ctx context.Context, ws types.Workspace, records ...*types.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().Unix()
	query := sq.Insert(s.GetTable()).Columns(append([]string{"workspace", "namespace"}, s.GetAllColumns()...)...)
	for _, r := range records {
		createdAt, updatedAt := r.CreatedAt, r.UpdatedAt
		if createdAt == 0 {
			createdAt = now
		}
		if updatedAt == 0 {
			updatedAt = now
		}
		query = query.Values(ws.String(), s.ns.String(), r.ID, r.Content, r.EntityName, r.Source, r.Target, r.FullDocID,
			nonNil(r.ChunkIDs), r.FilePath, embeddingValue(r.Vector), createdAt, updatedAt)
	}
	query = query.Suffix("ON CONFLICT (workspace, namespace, id) DO UPDATE SET " + excludedSet(s.GetAllColumns()[1:]...))

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

func (s *VectorStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.VectorRecord, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(s.scope(ws)).Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var row vectorRow
	if err = s.GetReplica(ctx).Get(&row, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	return row.record(), nil
}

func (s *VectorStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := sq.Delete(s.GetTable()).Where(s.scope(ws)).Where(sq.Eq{"id": ids})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

type scoredRow struct {
	vectorRow
	Cos float32 `db:"cos"`
}

func (s *VectorStore) QueryBySimilarity(ctx context.Context, ws types.Workspace, vector []float32, k int) ([]types.QueryResult, error) {
	// pgvector supported distance functions are:
	// <-> - L2 distance
	// <#> - (negative) inner product
	// <=> - cosine distance
	cosColumn, vectorArgs, _ := sq.Expr("1 - (embedding <=> ?) AS cos", pgvector.NewVector(vector)).ToSql()
	query := sq.Select(append(s.GetAllColumns(), cosColumn)...).From(s.GetTable()).
		Where(s.scope(ws)).
		Where("embedding IS NOT NULL").
		OrderBy("cos DESC", "id ASC")
	if k > 0 {
		query = query.Limit(uint64(k))
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}
	args = append(vectorArgs, args...)

	var rows []scoredRow
	if err = s.GetReplica(ctx).Select(&rows, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	res := make([]types.QueryResult, 0, len(rows))
	for i := range rows {
		res = append(res, types.QueryResult{Record: rows[i].record(), Score: rows[i].Cos})
	}
	return res, nil
}

func (s *VectorStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[*types.VectorRecord, error] {
	return func(yield func(*types.VectorRecord, error) bool) {
		var last string
		for {
			query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
				Where(s.scope(ws)).
				Where(sq.Gt{"id": last}).
				OrderBy("id").
				Limit(scanBatch)

			queryString, args, err := query.ToSql()
			if err != nil {
				yield(nil, ErrorSqlBuild(err))
				return
			}

			var rows []vectorRow
			if err = s.GetReplica(ctx).Select(&rows, queryString, args...); err != nil {
				yield(nil, wrapErr(err))
				return
			}
			for i := range rows {
				if !yield(rows[i].record(), nil) {
					return
				}
			}
			if len(rows) < scanBatch {
				return
			}
			last = rows[len(rows)-1].ID
		}
	}
}

// ListByDocument resolves membership in one statement: the chunk ids of the
// document come from the chunks namespace and are matched with array overlap.
func (s *VectorStore) ListByDocument(ctx context.Context, ws types.Workspace, docID string) ([]*types.VectorRecord, error) {
	return s.list(ctx, s.listByDocumentQuery(ws, docID))
}

// ListByChunkIDs matches chunk_ids against an explicit set with array overlap.
func (s *VectorStore) ListByChunkIDs(ctx context.Context, ws types.Workspace, chunkIDs []string) ([]*types.VectorRecord, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx, s.listByChunkIDsQuery(ws, chunkIDs))
}

func (s *VectorStore) list(ctx context.Context, query sq.SelectBuilder) ([]*types.VectorRecord, error) {
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var rows []vectorRow
	if err = s.GetReplica(ctx).Select(&rows, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	res := make([]*types.VectorRecord, 0, len(rows))
	for i := range rows {
		res = append(res, rows[i].record())
	}
	return res, nil
}

func (s *VectorStore) listByDocumentQuery(ws types.Workspace, docID string) sq.SelectBuilder {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(s.scope(ws)).OrderBy("id")
	if s.ns == types.NS_CHUNKS {
		return query.Where(sq.Eq{"full_doc_id": docID})
	}
	return query.Where(sq.Expr("chunk_ids && (SELECT COALESCE(array_agg(id), '{}'::text[]) FROM "+s.GetTable()+
		" WHERE workspace = ? AND namespace = ? AND full_doc_id = ?)", ws.String(), types.NS_CHUNKS.String(), docID))
}

func (s *VectorStore) listByChunkIDsQuery(ws types.Workspace, chunkIDs []string) sq.SelectBuilder {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(s.scope(ws)).OrderBy("id")
	if s.ns == types.NS_CHUNKS {
		return query.Where(sq.Eq{"id": chunkIDs})
	}
	return query.Where(sq.Expr("chunk_ids && ?", pq.StringArray(chunkIDs)))
}
