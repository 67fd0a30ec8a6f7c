package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/query"
	"github.com/quka-ai/ragstore/pkg/testutils"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

func TestDocumentFilter(t *testing.T) {
	f := documentFilter("tenant_a", types.DocumentFilter{
		Statuses: []types.DocStatus{types.DOC_STATUS_PENDING, types.DOC_STATUS_FAILED},
		TrackID:  "crawl_1",
	})
	assert.Equal(t, bson.M{
		"workspace": "tenant_a",
		"status":    bson.M{"$in": []string{"pending", "failed"}},
		"track_id":  "crawl_1",
	}, f)

	assert.Equal(t, bson.M{"workspace": "tenant_b"}, documentFilter("tenant_b", types.DocumentFilter{}))
}

func TestPageOptions(t *testing.T) {
	opts := pageOptions(query.Sort{Field: "created_at", Desc: true}, query.PageRequest{Page: 3, PageSize: 10})
	assert.Equal(t, int64(20), *opts.Skip)
	assert.Equal(t, int64(10), *opts.Limit)
	assert.Equal(t, bson.D{{Key: "created_at", Value: -1}, {Key: "id", Value: 1}}, opts.Sort)

	opts = pageOptions(query.Sort{Field: "unknown"}, query.PageRequest{Page: 1, PageSize: 5})
	assert.Equal(t, bson.D{{Key: "updated_at", Value: 1}, {Key: "id", Value: 1}}, opts.Sort)
}

func TestMongoStores(t *testing.T) {
	uri := testutils.RequireEnv(t, "RAGSTORE_TEST_MONGO_URI")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	p, err := Setup(ctx, uri, "ragstore_test")
	require.NoError(t, err)
	defer p.Close()

	wsA := types.Workspace("a_" + utils.RandomStr(8))
	wsB := types.Workspace("b_" + utils.RandomStr(8))

	chunks, _ := p.Vector(types.NS_CHUNKS)
	entities, _ := p.Vector(types.NS_ENTITIES)
	require.NoError(t, chunks.Upsert(ctx, wsA,
		&types.VectorRecord{ID: "chunk-1", FullDocID: "doc-1", ChunkIDs: pq.StringArray{"chunk-1"}},
	))
	require.NoError(t, entities.Upsert(ctx, wsA,
		&types.VectorRecord{ID: "ent-a", EntityName: "A", ChunkIDs: pq.StringArray{"chunk-1"}},
		&types.VectorRecord{ID: "ent-b", EntityName: "B", ChunkIDs: pq.StringArray{"chunk-9"}},
	))

	res, err := entities.ListByDocument(ctx, wsA, "doc-1")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "A", res[0].EntityName)

	res, err = entities.ListByDocument(ctx, wsB, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = entities.ListByChunkIDs(ctx, wsA, []string{"chunk-9"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "B", res[0].EntityName)

	docs, _ := p.DocStatus()
	require.NoError(t, docs.Upsert(ctx, wsA, &types.Document{ID: "doc-1", Status: types.DOC_STATUS_PENDING}))
	_, err = docs.Get(ctx, wsB, "doc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	counts, err := docs.StatusCounts(ctx, wsA)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[types.DOC_STATUS_PENDING])
}
