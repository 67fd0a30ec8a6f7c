// Package ai holds the collaborators the pipeline calls for knowledge
// extraction and embeddings. Drivers live in sub packages.
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/quka-ai/ragstore/pkg/types"
)

var ErrExtraction = errors.New("knowledge extraction failed")

type ModelName struct {
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
}

// Extractor turns one chunk of text into entities and relations. Chunk ids
// and file paths are filled in by the caller.
type Extractor interface {
	Extract(ctx context.Context, chunk string) (types.ExtractResult, error)
}

// Embedder returns one vector per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ExtractFunc adapts a function to Extractor.
type ExtractFunc func(ctx context.Context, chunk string) (types.ExtractResult, error)

func (f ExtractFunc) Extract(ctx context.Context, chunk string) (types.ExtractResult, error) {
	return f(ctx, chunk)
}

// NoopEmbedder returns empty vectors, records are stored without embeddings.
type NoopEmbedder struct{}

func (NoopEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

// NormalizeResult trims names, drops nameless entities and self or dangling
// relations, and folds duplicates by name and by undirected pair.
func NormalizeResult(in types.ExtractResult) types.ExtractResult {
	var out types.ExtractResult
	entities := map[string]*types.Entity{}
	for _, e := range in.Entities {
		if e == nil {
			continue
		}
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		e.Type = strings.TrimSpace(e.Type)
		if exist, ok := entities[e.Name]; ok {
			exist.Merge(e)
			continue
		}
		entities[e.Name] = e
		out.Entities = append(out.Entities, e)
	}

	relations := map[string]*types.Relation{}
	for _, r := range in.Relations {
		if r == nil {
			continue
		}
		r.Source, r.Target = strings.TrimSpace(r.Source), strings.TrimSpace(r.Target)
		if r.Source == "" || r.Target == "" || r.Source == r.Target {
			continue
		}
		if r.Weight < 0 {
			r.Weight = 0
		}
		for _, name := range []string{r.Source, r.Target} {
			if _, ok := entities[name]; !ok {
				e := &types.Entity{Name: name, Type: "UNKNOWN", Description: r.Description,
					ChunkIDs: r.ChunkIDs, FilePath: r.FilePath, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
				entities[name] = e
				out.Entities = append(out.Entities, e)
			}
		}
		if exist, ok := relations[r.Key()]; ok {
			exist.Merge(r)
			continue
		}
		relations[r.Key()] = r
		out.Relations = append(out.Relations, r)
	}
	return out
}
