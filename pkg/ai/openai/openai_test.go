package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/pkg/ai"
)

func TestParseExtraction(t *testing.T) {
	res, err := ParseExtraction("```json\n" + `{
		"entities": [{"name": "Go", "type": "technology", "description": "a language"}, {"name": "Google", "type": "organization"}],
		"relationships": [{"source": "Google", "target": "Go", "description": "created", "keywords": "created", "weight": 2}]
	}` + "\n```")
	require.NoError(t, err)
	require.Len(t, res.Entities, 2)
	require.Len(t, res.Relations, 1)
	assert.Equal(t, 2.0, res.Relations[0].Weight)

	_, err = ParseExtraction("not json")
	assert.ErrorIs(t, err, ai.ErrExtraction)
}

func TestDriver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/completions":
			json.NewEncoder(w).Encode(map[string]any{
				"id":    "1",
				"model": "test",
				"choices": []map[string]any{{
					"index":   0,
					"message": map[string]any{"role": "assistant", "content": `{"entities":[{"name":"A","type":"concept"}],"relationships":[]}`},
				}},
			})
		case "/embeddings":
			var req struct {
				Input []string `json:"input"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			var data []map[string]any
			for i := range req.Input {
				data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 1}})
			}
			json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := New("token", srv.URL, ai.ModelName{}, 0)

	res, err := d.Extract(context.Background(), "A is here")
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "A", res.Entities[0].Name)

	texts := make([]string, embeddingBatch+3)
	vectors, err := d.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	assert.Equal(t, []float32{2, 1}, vectors[embeddingBatch+2])
}
