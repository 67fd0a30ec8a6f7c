package s3store

import (
	"context"
	"errors"
	"testing"
	"time"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/pkg/testutils"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

func newProvider(t *testing.T) *Provider {
	endpoint := testutils.RequireEnv(t, "RAGSTORE_TEST_S3_ENDPOINT")
	p, err := Setup(context.Background(), Options{
		Endpoint:  endpoint,
		Region:    testutils.GetEnvOrDefault("RAGSTORE_TEST_S3_REGION", "us-east-1"),
		Bucket:    testutils.GetEnvOrDefault("RAGSTORE_TEST_S3_BUCKET", "ragstore-test"),
		AccessKey: testutils.GetEnvOrDefault("RAGSTORE_TEST_S3_ACCESS_KEY", ""),
		SecretKey: testutils.GetEnvOrDefault("RAGSTORE_TEST_S3_SECRET_KEY", ""),
		PathStyle: testutils.GetEnvOrDefault("RAGSTORE_TEST_S3_PATH_STYLE", "true") == "true",
		Prefix:    "ragtest",
	})
	require.NoError(t, err)
	return p
}

func TestObjectKeys(t *testing.T) {
	p := &Provider{}
	assert.Equal(t, "tenant_a/full_docs/doc-1", p.objectKey("tenant_a", types.NS_FULL_DOCS, "doc-1"))

	p = &Provider{opts: Options{Prefix: "rag/"}}
	assert.Equal(t, "rag/tenant_a/full_docs/", p.prefix("tenant_a", types.NS_FULL_DOCS))
}

func TestWrapErr(t *testing.T) {
	assert.ErrorIs(t, wrapErr(&s3types.NoSuchKey{}), store.ErrNotFound)
	assert.ErrorIs(t, wrapErr(context.DeadlineExceeded), store.ErrBackendUnavailable)

	denied := errors.New("AccessDenied")
	assert.Equal(t, denied, wrapErr(denied))
}

func TestProviderKinds(t *testing.T) {
	p := &Provider{}
	_, err := p.DocStatus()
	assert.ErrorIs(t, err, store.ErrUnsupportedOperation)
	_, err = p.Vector(types.NS_CHUNKS)
	assert.ErrorIs(t, err, store.ErrUnsupportedOperation)
	_, err = p.Graph()
	assert.ErrorIs(t, err, store.ErrUnsupportedOperation)
}

func TestKVStore(t *testing.T) {
	p := newProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ws := types.Workspace("ws_" + utils.RandomStr(8))
	kv, _ := p.KV(types.NS_FULL_DOCS)

	require.NoError(t, kv.Put(ctx, ws, "doc-1", []byte(`{"content":"hello"}`)))
	defer kv.Delete(context.Background(), ws, "doc-1")

	raw, err := kv.Get(ctx, ws, "doc-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"hello"}`, string(raw))

	var keys []string
	for item, err := range kv.ScanAll(ctx, ws) {
		require.NoError(t, err)
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []string{"doc-1"}, keys)

	_, err = kv.Get(ctx, "other", "doc-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
