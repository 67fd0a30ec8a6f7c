package sqlstore

import (
	"context"
	"iter"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

type KVStore struct {
	CommonFields
	ns types.Namespace
}

func NewKVStore(provider SqlProviderAchieve, ns types.Namespace) *KVStore {
	repo := &KVStore{ns: ns}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_KV)
	repo.SetAllColumns("id", "value")
	return repo
}

func (s *KVStore) Capabilities() store.Capabilities {
	return store.Capabilities{ScanAll: true, ServerFilter: true}
}

func (s *KVStore) Namespace() types.Namespace {
	return s.ns
}

func (s *KVStore) scope(ws types.Workspace) sq.Eq {
	return sq.Eq{"workspace": ws.String(), "namespace": s.ns.String()}
}

func (s *KVStore) Get(ctx context.Context, ws types.Workspace, key string) ([]byte, error) {
	query := sq.Select("value").From(s.GetTable()).Where(s.scope(ws)).Where(sq.Eq{"id": key})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var value []byte
	if err = s.GetReplica(ctx).Get(&value, queryString, args...); err != nil {
		return nil, wrapErr(err)
	}
	return value, nil
}

func (s *KVStore) Put(ctx context.Context, ws types.Workspace, key string, value []byte) error {
	query := sq.Insert(s.GetTable()).
		Columns("workspace", "namespace", "id", "value", "updated_at").
		Values(ws.String(), s.ns.String(), key, value, time.Now().Unix()).
		Suffix("ON CONFLICT (workspace, namespace, id) DO UPDATE SET " + excludedSet("value", "updated_at"))

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

func (s *KVStore) Delete(ctx context.Context, ws types.Workspace, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query := sq.Delete(s.GetTable()).Where(s.scope(ws)).Where(sq.Eq{"id": keys})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return wrapErr(err)
}

type kvRow struct {
	ID    string `db:"id"`
	Value []byte `db:"value"`
}

// ScanAll pages through the workspace in id order, scanBatch rows at a time.
func (s *KVStore) ScanAll(ctx context.Context, ws types.Workspace) iter.Seq2[store.KV, error] {
	return func(yield func(store.KV, error) bool) {
		var last string
		for {
			query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
				Where(s.scope(ws)).
				Where(sq.Gt{"id": last}).
				OrderBy("id").
				Limit(scanBatch)

			queryString, args, err := query.ToSql()
			if err != nil {
				yield(store.KV{}, ErrorSqlBuild(err))
				return
			}

			var rows []kvRow
			if err = s.GetReplica(ctx).Select(&rows, queryString, args...); err != nil {
				yield(store.KV{}, wrapErr(err))
				return
			}
			for _, row := range rows {
				if !yield(store.KV{Key: row.ID, Value: row.Value}, nil) {
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
