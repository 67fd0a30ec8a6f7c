package sqlstore

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
)

type SqlCommons interface {
	GetTable(...interface{}) string
}

type ConnectConfig interface {
	FormatDSN() string
	PoolSize() int
}

type SqlProvider struct {
	master   *sqlx.DB
	replicas []*sqlx.DB
	dbname   string
}

func (s *SqlProvider) GetTxFromCtx(ctx context.Context) *sqlx.Tx {
	if driver, ok := ctx.Value(TransactionKey{}).(*sqlx.Tx); ok {
		return driver
	}
	return nil
}

func (s *SqlProvider) GetMaster() *sqlx.DB {
	return s.master
}

func (s *SqlProvider) GetReplica() *sqlx.DB {
	return s.replicas[rand.Intn(len(s.replicas))]
}

type TransactionKey struct{}

func (s *SqlProvider) Transaction(ctx context.Context, next func(ctx context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.GetTxFromCtx(ctx) != nil {
		return next(ctx)
	}

	tx, err := s.GetMaster().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			slog.Error("Transaction rollbacked", slog.Any("recover", r))
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback()
			slog.Error("Transaction rollbacked", slog.String("error", err.Error()))
		}
	}()

	if err = next(context.WithValue(ctx, TransactionKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// initConnection opens a bounded pool, exhausting it blocks until the
// caller's context expires.
func (s *SqlProvider) initConnection(ctx context.Context, conf ConnectConfig) (*sqlx.DB, error) {
	engine, err := sqlx.Open("postgres", conf.FormatDSN())
	if err != nil {
		return nil, err
	}
	if size := conf.PoolSize(); size > 0 {
		engine.SetMaxOpenConns(size)
		engine.SetMaxIdleConns(size)
	}
	engine.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = engine.PingContext(ctx); err != nil {
		engine.Close()
		return nil, err
	}
	return engine, nil
}

func SetupProvider(ctx context.Context, m ConnectConfig, s ...ConnectConfig) (*SqlProvider, error) {
	provider := &SqlProvider{}

	engine, err := provider.initConnection(ctx, m)
	if err != nil {
		return nil, err
	}
	provider.master = engine

	for _, v := range s {
		slave, err := provider.initConnection(ctx, v)
		if err != nil {
			provider.Close()
			return nil, err
		}
		provider.replicas = append(provider.replicas, slave)
	}

	if len(provider.replicas) == 0 {
		provider.replicas = append(provider.replicas, engine)
	}
	return provider, nil
}

func (s *SqlProvider) GetDBName() (string, error) {
	if s.dbname == "" {
		var dbName string
		if err := s.GetMaster().QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
			return "", err
		}
		s.dbname = dbName
	}
	return s.dbname, nil
}

func (s *SqlProvider) Close() error {
	closed := map[*sqlx.DB]bool{}
	var firstErr error
	for _, db := range append([]*sqlx.DB{s.master}, s.replicas...) {
		if db == nil || closed[db] {
			continue
		}
		closed[db] = true
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
