package sqlstore

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/register"
	"github.com/quka-ai/ragstore/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.DocStatus = NewDocStatusStore(provider)
	})
}

type DocStatusStore struct {
	CommonFields
}

func NewDocStatusStore(provider SqlProviderAchieve) *DocStatusStore {
	repo := &DocStatusStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_DOC_STATUS)
	repo.SetAllColumns("id", "content_hash", "content_summary", "content_length", "file_path", "status", "track_id",
		"category_id", "chunks_count", "chunks_list", "error_msg", "metadata", "created_at", "updated_at")
	return repo
}

func (s *DocStatusStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true, ServerFilter: true}
}

func (s *DocStatusStore) Upsert(ctx context.Context, ws types.Workspace, docs ...*types.Document) error {
	if len(docs) == 0 {
		return nil
	}
	query := sq.Insert(s.GetTable()).Columns(append([]string{"workspace"}, s.GetAllColumns()...)...)
	for _, d := range docs {
		metadata := d.Metadata
		if metadata == nil {
			metadata = types.Metadata{}
		}
		query = query.Values(ws.String(), d.ID, d.ContentHash, d.ContentSummary, d.ContentLength, d.FilePath, d.Status, d.TrackID,
			d.CategoryID, d.ChunksCount, d.ChunksList, d.ErrorMsg, metadata, d.CreatedAt, d.UpdatedAt)
	}
	query = query.Suffix("ON CONFLICT (workspace, id) DO UPDATE SET " + excludedSet(s.GetAllColumns()[1:]...))

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

func (s *DocStatusStore) Get(ctx context.Context, ws types.Workspace, id string) (*types.Document, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"workspace": ws.String(), "id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Document
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	return &res, nil
}

func (s *DocStatusStore) GetByStatus(ctx context.Context, ws types.Workspace, statuses ...types.DocStatus) ([]*types.Document, error) {
	return s.Find(ctx, ws, types.DocumentFilter{Statuses: statuses})
}

func (s *DocStatusStore) Find(ctx context.Context, ws types.Workspace, filter types.DocumentFilter) ([]*types.Document, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"workspace": ws.String()}).OrderBy("created_at", "id")
	filter.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res []*types.Document
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	return res, nil
}

func (s *DocStatusStore) Delete(ctx context.Context, ws types.Workspace, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"workspace": ws.String(), "id": ids})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

type statusCount struct {
	Status types.DocStatus `db:"status"`
	Count  int             `db:"count"`
}

func (s *DocStatusStore) StatusCounts(ctx context.Context, ws types.Workspace) (map[types.DocStatus]int, error) {
	query := sq.Select("status", "COUNT(*) AS count").From(s.GetTable()).Where(sq.Eq{"workspace": ws.String()}).GroupBy("status")

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var rows []statusCount
	if err = s.GetReplica(ctx).Select(&rows, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	counts := make(map[types.DocStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// Query pushes filter, order and window down to postgres.
func (s *DocStatusStore) Query(ctx context.Context, ws types.Workspace, filter types.DocumentFilter, sort query.Sort, page query.PageRequest) (query.Page[*types.Document], error) {
	page, err := page.Normalize()
	if err != nil {
		return query.Page[*types.Document]{}, err
	}

	countQuery, listQuery := s.buildQuery(ws, filter, sort, page)

	queryString, args, err := countQuery.ToSql()
	if err != nil {
		return query.Page[*types.Document]{}, ErrorSqlBuild(err)
	}
	var total int
	if err = s.GetReplica(ctx).Get(&total, queryString, args...); err != nil {
		return query.Page[*types.Document]{}, wrapErr(err)
	}

	res := query.Page[*types.Document]{
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Items:    []*types.Document{},
	}
	if page.Offset() >= total {
		return res, nil
	}

	queryString, args, err = listQuery.ToSql()
	if err != nil {
		return query.Page[*types.Document]{}, ErrorSqlBuild(err)
	}
	if err = s.GetReplica(ctx).Select(&res.Items, queryString, args...); err != nil {
		return query.Page[*types.Document]{}, wrapErr(err)
	}
	return res, nil
}

func (s *DocStatusStore) buildQuery(ws types.Workspace, filter types.DocumentFilter, sort query.Sort, page query.PageRequest) (sq.SelectBuilder, sq.SelectBuilder) {
	countQuery := sq.Select("COUNT(*)").From(s.GetTable()).Where(sq.Eq{"workspace": ws.String()})
	filter.Apply(&countQuery)

	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	listQuery := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"workspace": ws.String()}).
		OrderBy(fmt.Sprintf("%s %s", types.NormalizeDocumentSortField(sort.Field), direction), "id ASC").
		Limit(uint64(page.PageSize)).
		Offset(uint64(page.Offset()))
	filter.Apply(&listQuery)
	return countQuery, listQuery
}
