package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/ragstore/pkg/types"
)

func TestHeuristicExtractor(t *testing.T) {
	res, err := HeuristicExtractor{}.Extract(context.Background(),
		"The Alice works with Bob at Acme Corp. Bob lives in Paris.")
	require.NoError(t, err)

	var names []string
	for _, e := range res.Entities {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Acme Corp", "Paris"}, names)

	var keys []string
	for _, r := range res.Relations {
		keys = append(keys, r.Key())
	}
	assert.ElementsMatch(t, []string{
		types.RelationKey("Alice", "Bob"),
		types.RelationKey("Alice", "Acme Corp"),
		types.RelationKey("Bob", "Acme Corp"),
		types.RelationKey("Bob", "Paris"),
	}, keys)
}

func TestHeuristicExtractor_Empty(t *testing.T) {
	res, err := HeuristicExtractor{}.Extract(context.Background(), "nothing capitalized here.")
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Relations)
}

func TestNormalizeResult(t *testing.T) {
	res := NormalizeResult(types.ExtractResult{
		Entities: []*types.Entity{
			{Name: " A ", Type: "person", Description: "first"},
			{Name: "A", Description: "second"},
			{Name: ""},
		},
		Relations: []*types.Relation{
			{Source: "A", Target: "B", Weight: 1, Keywords: "x"},
			{Source: "B", Target: "A", Weight: 2, Keywords: "y"},
			{Source: "A", Target: "A", Weight: 1},
			{Source: "A", Target: "", Weight: 1},
			{Source: "A", Target: "C", Weight: -3},
		},
	})

	require.Len(t, res.Entities, 3)
	assert.Equal(t, "A", res.Entities[0].Name)
	assert.Equal(t, "first"+types.GRAPH_FIELD_SEP+"second", res.Entities[0].Description)
	assert.Equal(t, "B", res.Entities[1].Name)
	assert.Equal(t, "UNKNOWN", res.Entities[1].Type)

	require.Len(t, res.Relations, 2)
	assert.Equal(t, 3.0, res.Relations[0].Weight)
	assert.Equal(t, "x,y", res.Relations[0].Keywords)
	assert.Equal(t, 0.0, res.Relations[1].Weight)
}

func TestNoopEmbedder(t *testing.T) {
	v, err := NoopEmbedder{}.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, v, 2)
}
