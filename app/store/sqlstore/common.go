package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

// scanBatch bounds the rows one keyset page of a ScanAll pulls.
const scanBatch = 500

func ErrorSqlBuild(err error) error {
	return fmt.Errorf("failed to build sql query, %w", err)
}

// wrapErr maps driver errors onto the storage error kinds.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if isConnectionError(err) {
		return store.Unavailable(err)
	}
	return err
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// connection exception, insufficient resources, operator intervention
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
	}
	return false
}

type SqlProviderAchieve interface {
	GetMaster() *sqlx.DB
	GetReplica() *sqlx.DB
	GetDBName() (string, error)
	GetTxFromCtx(ctx context.Context) *sqlx.Tx
	Transaction(ctx context.Context, next func(ctx context.Context) error) error
}

type CommonFields struct {
	table      string
	provider   SqlProviderAchieve
	allColumns []string
}

func (c *CommonFields) GetTable() string {
	return c.table
}

func (c *CommonFields) SetAllColumns(str ...string) {
	c.allColumns = str
}

func (c *CommonFields) GetAllColumns() []string {
	return c.allColumns
}

func (c *CommonFields) SetTable(table types.TableName) {
	c.table = table.Name()
}

func (c *CommonFields) SetProvider(p SqlProviderAchieve) {
	c.provider = p
}

type Master interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Get(dest interface{}, query string, args ...interface{}) error
}

func (c *CommonFields) GetMaster(ctx context.Context) Master {
	if tx := c.provider.GetTxFromCtx(ctx); tx != nil {
		return &txWithContext{tx: tx, ctx: ctx}
	}
	return &dbWithContext{
		db:  c.provider.GetMaster(),
		ctx: ctx,
	}
}

type Replica interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

func (c *CommonFields) GetReplica(ctx context.Context) Replica {
	if tx := c.provider.GetTxFromCtx(ctx); tx != nil {
		return &txWithContext{tx: tx, ctx: ctx}
	}
	return &dbWithContext{
		db:  c.provider.GetReplica(),
		ctx: ctx,
	}
}

type dbWithContext struct {
	db  *sqlx.DB
	ctx context.Context
}

func (d *dbWithContext) Get(dest interface{}, query string, args ...interface{}) error {
	return d.db.GetContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) Select(dest interface{}, query string, args ...interface{}) error {
	return d.db.SelectContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) Exec(query string, args ...interface{}) (sql.Result, error) {
	return d.db.ExecContext(d.ctx, query, args...)
}

type txWithContext struct {
	tx  *sqlx.Tx
	ctx context.Context
}

func (t *txWithContext) Get(dest interface{}, query string, args ...interface{}) error {
	return t.tx.GetContext(t.ctx, dest, query, args...)
}

func (t *txWithContext) Select(dest interface{}, query string, args ...interface{}) error {
	return t.tx.SelectContext(t.ctx, dest, query, args...)
}

func (t *txWithContext) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

// excludedSet renders "col = EXCLUDED.col" for an upsert suffix.
func excludedSet(columns ...string) string {
	var s string
	for i, c := range columns {
		if i > 0 {
			s += ", "
		}
		s += c + " = EXCLUDED." + c
	}
	return s
}
