package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/register"
	"github.com/quka-ai/ragstore/pkg/sqlstore"
	"github.com/quka-ai/ragstore/pkg/types"
)

const BackendName = "postgres"

//go:embed *.sql
var CreateTableFiles embed.FS

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

type Provider struct {
	*sqlstore.SqlProvider
	stores *Stores

	mu      sync.Mutex
	kv      map[types.Namespace]*KVStore
	vectors map[types.Namespace]*VectorStore
}

type Stores struct {
	DocStatus *DocStatusStore
	Graph     *GraphStore
}

type RegisterKey struct{}

func Setup(ctx context.Context, m sqlstore.ConnectConfig, s ...sqlstore.ConnectConfig) (*Provider, error) {
	base, err := sqlstore.SetupProvider(ctx, m, s...)
	if err != nil {
		return nil, store.Unavailable(err)
	}
	p := newProvider(base)
	if err = p.Install(); err != nil {
		base.Close()
		return nil, err
	}
	return p, nil
}

func newProvider(base *sqlstore.SqlProvider) *Provider {
	p := &Provider{
		SqlProvider: base,
		stores:      &Stores{},
		kv:          make(map[types.Namespace]*KVStore),
		vectors:     make(map[types.Namespace]*VectorStore),
	}
	register.Apply(RegisterKey{}, p)
	return p
}

func (p *Provider) Name() string {
	return BackendName
}

func (p *Provider) KV(ns types.Namespace) (store.KeyValueStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.kv[ns]
	if !ok {
		s = NewKVStore(p, ns)
		p.kv[ns] = s
	}
	return s, nil
}

func (p *Provider) DocStatus() (store.DocStatusStore, error) {
	return p.stores.DocStatus, nil
}

func (p *Provider) Vector(ns types.Namespace) (store.VectorStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.vectors[ns]
	if !ok {
		s = NewVectorStore(p, ns)
		p.vectors[ns] = s
	}
	return s, nil
}

func (p *Provider) Graph() (store.GraphStore, error) {
	return p.stores.Graph, nil
}

// Install 初始化所有数据表
func (p *Provider) Install() error {
	if err := p.enableExtensions(); err != nil {
		return err
	}

	if err := p.ensureMigrationTable(); err != nil {
		return err
	}

	files, err := CreateTableFiles.ReadDir(".")
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		if executed, err := p.isFileExecuted(file.Name()); err != nil {
			return err
		} else if executed {
			continue
		}

		raw, err := CreateTableFiles.ReadFile(file.Name())
		if err != nil {
			return err
		}
		if _, err = p.GetMaster().Exec(string(raw)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", file.Name(), err)
		}
		if err = p.markFileExecuted(file.Name()); err != nil {
			return err
		}
		slog.Info("sql migration applied", slog.String("file", file.Name()), slog.String("component", "sqlstore"))
	}
	return nil
}

func (p *Provider) enableExtensions() error {
	extensions := []string{
		"CREATE EXTENSION IF NOT EXISTS vector;",
	}

	for _, ext := range extensions {
		if _, err := p.GetMaster().Exec(ext); err != nil {
			return fmt.Errorf("failed to enable extension: %w\nSQL: %s", err, ext)
		}
	}
	return nil
}

func (p *Provider) ensureMigrationTable() error {
	_, err := p.GetMaster().Exec(`
CREATE TABLE IF NOT EXISTS ` + types.TABLE_PREFIX + `schema_migrations (
    filename VARCHAR(255) PRIMARY KEY,
    executed_at BIGINT NOT NULL
);`)
	return err
}

func (p *Provider) isFileExecuted(filename string) (bool, error) {
	var count int
	err := p.GetReplica().Get(&count,
		"SELECT COUNT(*) FROM "+types.TABLE_PREFIX+"schema_migrations WHERE filename = $1", filename)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (p *Provider) markFileExecuted(filename string) error {
	_, err := p.GetMaster().Exec(
		"INSERT INTO "+types.TABLE_PREFIX+"schema_migrations (filename, executed_at) VALUES ($1, $2) ON CONFLICT (filename) DO NOTHING",
		filename, time.Now().Unix())
	return err
}
