// Package redisstore keeps key-value content, document status and vectors in
// Redis. Content lives in one string key per record, status and vectors in one
// hash per workspace and namespace. In cluster mode keys of a workspace spread
// over several nodes, so the key-value stores cannot scan.
package redisstore

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/types"
)

const BackendName = "redis"

type Provider struct {
	client  redis.UniversalClient
	cluster bool
	prefix  string
}

type Options struct {
	Addrs     []string
	Password  string
	DB        int
	PoolSize  int
	Cluster   bool
	KeyPrefix string
}

func Setup(ctx context.Context, opts Options) (*Provider, error) {
	uopts := &redis.UniversalOptions{
		Addrs:    opts.Addrs,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	}
	var client redis.UniversalClient
	if opts.Cluster {
		client = redis.NewClusterClient(uopts.Cluster())
	} else {
		client = redis.NewClient(uopts.Simple())
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, wrapErr(err)
	}
	return NewProvider(client, opts.Cluster, opts.KeyPrefix), nil
}

func NewProvider(client redis.UniversalClient, cluster bool, prefix string) *Provider {
	return &Provider{client: client, cluster: cluster, prefix: prefix}
}

func (p *Provider) Name() string {
	return BackendName
}

func (p *Provider) KV(ns types.Namespace) (store.KeyValueStore, error) {
	return &KVStore{p: p, ns: ns}, nil
}

func (p *Provider) DocStatus() (store.DocStatusStore, error) {
	return &DocStatusStore{p: p}, nil
}

func (p *Provider) Vector(ns types.Namespace) (store.VectorStore, error) {
	return &VectorStore{p: p, ns: ns}, nil
}

func (p *Provider) Graph() (store.GraphStore, error) {
	return nil, store.ErrUnsupportedOperation
}

func (p *Provider) Close() error {
	return p.client.Close()
}

func (p *Provider) Client() redis.UniversalClient {
	return p.client
}

// key renders [prefix:]<workspace>:<namespace>:<id>.
func (p *Provider) key(ws types.Workspace, ns types.Namespace, id string) string {
	if p.prefix == "" {
		return ws.Key(ns, id)
	}
	return p.prefix + ":" + ws.Key(ns, id)
}

// hashKey names the hash holding a whole namespace of one workspace.
func (p *Provider) hashKey(ws types.Workspace, ns types.Namespace) string {
	return strings.TrimSuffix(p.key(ws, ns, ""), ":")
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return store.ErrNotFound
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded) ||
		strings.HasPrefix(err.Error(), "LOADING") || strings.HasPrefix(err.Error(), "CLUSTERDOWN") {
		return store.Unavailable(err)
	}
	return err
}
