package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/app/logic/v1/process"
	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/app/store/memstore"
	"github.com/quka-ai/ragstore/cmd/service/handler"
	"github.com/quka-ai/ragstore/pkg/chunker"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

type testServer struct {
	engine   http.Handler
	pipeline *process.Pipeline
}

func newTestServer(t *testing.T, opts ...memstore.Option) *testServer {
	t.Helper()
	p := memstore.NewProvider(opts...)
	must := func(s any, err error) any {
		require.NoError(t, err)
		return s
	}
	stores := &store.Stores{
		FullDocs:   must(p.KV(types.NS_FULL_DOCS)).(store.KeyValueStore),
		TextChunks: must(p.KV(types.NS_TEXT_CHUNKS)).(store.KeyValueStore),
		DocStatus:  must(p.DocStatus()).(store.DocStatusStore),
		Entities:   must(p.Vector(types.NS_ENTITIES)).(store.VectorStore),
		Relations:  must(p.Vector(types.NS_RELATIONSHIPS)).(store.VectorStore),
		Chunks:     must(p.Vector(types.NS_CHUNKS)).(store.VectorStore),
		Graph:      must(p.Graph()).(store.GraphStore),
	}

	app := core.MustSetupCore(core.CoreConfig{
		Pipeline: core.PipelineConfig{RetryTimes: 1, RetryBackoffMillis: 1, FlushSpec: "@every 1h"},
	}, core.WithStores(stores), core.WithChunker(chunker.NewRuneChunker(200, 20)))
	proc := process.NewProcess(app)
	t.Cleanup(proc.Stop)

	SetupHttpRouter(&handler.HttpSrv{Core: app, Engine: app.HttpEngine()})
	return &testServer{engine: app.HttpEngine(), pipeline: proc.Pipeline()}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestInsertAndQueryOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ws := []string{types.WORKSPACE_HEADER, "tenant_a"}

	code, body := s.do(t, http.MethodPost, "/documents/text", `{"text":"Alice met Bob in Paris.","file_source":"notes.txt"}`, ws...)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	trackID := body["track_id"].(string)
	s.pipeline.Wait()

	code, body = s.do(t, http.MethodGet, "/documents/track_status/"+trackID, "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total_count"])

	code, body = s.do(t, http.MethodGet, "/documents?status=processed&page_size=10", "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 10, body["page_size"])
	assert.Len(t, body["items"], 1)

	code, body = s.do(t, http.MethodGet, "/documents/status_counts", "", ws...)
	require.Equal(t, http.StatusOK, code)
	counts := body["status_counts"].(map[string]any)
	assert.EqualValues(t, 1, counts["processed"])
	assert.EqualValues(t, 1, counts["all"])

	docID := utils.DocID("Alice met Bob in Paris.")
	code, body = s.do(t, http.MethodGet, "/documents/"+docID+"/chunks", "", ws...)
	require.Equal(t, http.StatusOK, code, body)

	code, body = s.do(t, http.MethodGet, "/documents/"+docID+"/entities", "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["entities"], 3)

	code, body = s.do(t, http.MethodGet, "/entities/by-document?file_path=notes.txt", "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["entities"], 3)

	code, body = s.do(t, http.MethodGet, "/entities?search=bo", "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	code, body = s.do(t, http.MethodGet, "/entities/Bob", "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["degree"])
	assert.Len(t, body["relations"], 2)

	code, body = s.do(t, http.MethodGet, "/relations?entity_name=Paris", "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total"])

	code, body = s.do(t, http.MethodGet, "/chunks?doc_id="+docID, "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])

	// the default workspace does not see tenant_a
	code, body = s.do(t, http.MethodGet, "/documents", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["total"])

	code, body = s.do(t, http.MethodDelete, "/documents/"+docID, "", ws...)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, docID, body["doc_id"])

	code, _ = s.do(t, http.MethodGet, "/entities/Bob", "", ws...)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/documents", "", types.WORKSPACE_HEADER, "bad workspace!")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid WORKSPACE-ID header", body["detail"])

	code, body = s.do(t, http.MethodGet, "/documents/doc-missing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Document not found", body["detail"])

	code, body = s.do(t, http.MethodGet, "/documents/doc-missing", "", "Accept-Language", "zh-CN")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "文档不存在", body["detail"])

	code, body = s.do(t, http.MethodPost, "/documents/text", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["detail"])

	code, _ = s.do(t, http.MethodPost, "/documents/crawl", `{"url":"ftp://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/documents?page_size=501", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/entities/by-document", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPipelineEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/documents/cancel_pipeline", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "not_busy", body["status"])

	code, body = s.do(t, http.MethodGet, "/documents/pipeline_status", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["busy"])

	code, body = s.do(t, http.MethodPost, "/documents/reprocess_failed", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reprocessing_started", body["status"])
	assert.EqualValues(t, 0, body["count"])
}

func TestUnsupportedScanIs501(t *testing.T) {
	s := newTestServer(t, memstore.WithoutScan())

	code, body := s.do(t, http.MethodGet, "/chunks", "")
	assert.Equal(t, http.StatusNotImplemented, code)
	assert.Equal(t, "Operation not implemented for the configured storage backend", body["detail"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, types.DEFAULT_WORKSPACE, body["workspace"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ragstore_core_api_response_time")
}
