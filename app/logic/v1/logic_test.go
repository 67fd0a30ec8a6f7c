package v1_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/app/core"
	v1 "github.com/quka-ai/ragstore/app/logic/v1"
	"github.com/quka-ai/ragstore/app/logic/v1/process"
	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/app/store/memstore"
	"github.com/quka-ai/ragstore/pkg/chunker"
	"github.com/quka-ai/ragstore/pkg/errors"
	"github.com/quka-ai/ragstore/pkg/types"
)

var (
	wsA = types.Workspace("tenant_a")
	wsB = types.Workspace("tenant_b")
)

func memStores(t *testing.T, opts ...memstore.Option) *store.Stores {
	t.Helper()
	p := memstore.NewProvider(opts...)
	must := func(s any, err error) any {
		require.NoError(t, err)
		return s
	}
	return &store.Stores{
		FullDocs:   must(p.KV(types.NS_FULL_DOCS)).(store.KeyValueStore),
		TextChunks: must(p.KV(types.NS_TEXT_CHUNKS)).(store.KeyValueStore),
		DocStatus:  must(p.DocStatus()).(store.DocStatusStore),
		Entities:   must(p.Vector(types.NS_ENTITIES)).(store.VectorStore),
		Relations:  must(p.Vector(types.NS_RELATIONSHIPS)).(store.VectorStore),
		Chunks:     must(p.Vector(types.NS_CHUNKS)).(store.VectorStore),
		Graph:      must(p.Graph()).(store.GraphStore),
	}
}

// NewCore builds a core on in-memory stores with a running pipeline.
func NewCore(t *testing.T, stores *store.Stores, opts ...core.Option) (*core.Core, *process.Pipeline) {
	t.Helper()
	cfg := core.CoreConfig{
		DefaultWorkspace: string(wsA),
		Pipeline:         core.PipelineConfig{RetryTimes: 2, RetryBackoffMillis: 1, FlushSpec: "@every 1h"},
	}
	opts = append([]core.Option{
		core.WithStores(stores),
		core.WithChunker(chunker.NewRuneChunker(200, 20)),
	}, opts...)
	c := core.MustSetupCore(cfg, opts...)
	p := process.NewProcess(c)
	t.Cleanup(p.Stop)
	return c, p.Pipeline()
}

func wsCtx(ws types.Workspace) context.Context {
	return v1.WithWorkspace(context.Background(), ws)
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var ce *errors.CustomizedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, code, ce.GetCode())
}

func TestSetupWorkspaceFallsBackToDefault(t *testing.T) {
	c, _ := NewCore(t, memStores(t))
	assert.Equal(t, wsA, v1.SetupWorkspace(context.Background(), c))
	assert.Equal(t, wsB, v1.SetupWorkspace(wsCtx(wsB), c))
}
