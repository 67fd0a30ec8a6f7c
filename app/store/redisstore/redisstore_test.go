package redisstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/testutils"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

func setupProvider(t *testing.T) *Provider {
	addr := testutils.RequireEnv(t, "RAGSTORE_TEST_REDIS_ADDR")
	p, err := Setup(context.Background(), Options{Addrs: []string{addr}, KeyPrefix: "ragtest"})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestKeyLayout(t *testing.T) {
	p := NewProvider(nil, false, "")
	assert.Equal(t, "tenant_a:full_docs:doc-1", p.key("tenant_a", types.NS_FULL_DOCS, "doc-1"))
	assert.Equal(t, "tenant_a:doc_status", p.hashKey("tenant_a", types.NS_DOC_STATUS))

	p = NewProvider(nil, false, "rag")
	assert.Equal(t, "rag:tenant_a:full_docs:doc-1", p.key("tenant_a", types.NS_FULL_DOCS, "doc-1"))
	assert.Equal(t, "rag:tenant_a:entities", p.hashKey("tenant_a", types.NS_ENTITIES))
}

func TestClusterModeDisablesKeyScan(t *testing.T) {
	p := NewProvider(nil, true, "")
	kv, err := p.KV(types.NS_FULL_DOCS)
	require.NoError(t, err)
	assert.False(t, kv.Capabilities().ScanAll)

	for _, err := range kv.ScanAll(context.Background(), "tenant_a") {
		assert.ErrorIs(t, err, store.ErrUnsupportedOperation)
	}

	vs, err := p.Vector(types.NS_ENTITIES)
	require.NoError(t, err)
	assert.True(t, vs.Capabilities().ScanAll)
	assert.False(t, vs.Capabilities().ListByDocument)

	_, err = p.Graph()
	assert.ErrorIs(t, err, store.ErrUnsupportedOperation)
}

func TestWrapErr(t *testing.T) {
	assert.ErrorIs(t, wrapErr(redis.Nil), store.ErrNotFound)
	assert.ErrorIs(t, wrapErr(redis.ErrClosed), store.ErrBackendUnavailable)
	assert.ErrorIs(t, wrapErr(fmt.Errorf("dial: %w", context.DeadlineExceeded)), store.ErrBackendUnavailable)

	other := errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	assert.Equal(t, other, wrapErr(other))
}

func TestRedisStores(t *testing.T) {
	p := setupProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsA := types.Workspace("a_" + utils.RandomStr(8))
	wsB := types.Workspace("b_" + utils.RandomStr(8))

	kv, _ := p.KV(types.NS_TEXT_CHUNKS)
	require.NoError(t, kv.Put(ctx, wsA, "chunk-1", []byte("x")))
	require.NoError(t, kv.Put(ctx, wsA, "chunk-2", []byte("y")))
	t.Cleanup(func() { kv.Delete(context.Background(), wsA, "chunk-1", "chunk-2") })

	_, err := kv.Get(ctx, wsB, "chunk-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	for range 2 {
		keys := map[string]string{}
		for item, err := range kv.ScanAll(ctx, wsA) {
			require.NoError(t, err)
			keys[item.Key] = string(item.Value)
		}
		assert.Equal(t, map[string]string{"chunk-1": "x", "chunk-2": "y"}, keys)
	}

	docs, _ := p.DocStatus()
	t.Cleanup(func() { p.client.Del(context.Background(), p.hashKey(wsA, types.NS_DOC_STATUS)) })
	require.NoError(t, docs.Upsert(ctx, wsA,
		&types.Document{ID: "doc-1", Status: types.DOC_STATUS_PENDING, CreatedAt: 1, UpdatedAt: 1},
		&types.Document{ID: "doc-2", Status: types.DOC_STATUS_FAILED, CreatedAt: 2, UpdatedAt: 2},
	))

	counts, err := docs.StatusCounts(ctx, wsA)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[types.DOC_STATUS_PENDING])
	assert.Equal(t, 1, counts[types.DOC_STATUS_FAILED])

	page, err := docs.Query(ctx, wsA, types.DocumentFilter{}, query.Sort{Field: "created_at", Desc: true}, query.PageRequest{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "doc-2", page.Items[0].ID)
}
