package types

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestRelationKeyIsUndirected(t *testing.T) {
	a := &Relation{Source: "Alice", Target: "Bob"}
	b := &Relation{Source: "Bob", Target: "Alice"}
	assert.Equal(t, a.Key(), b.Key())

	src, tgt, ok := SplitRelationKey(a.Key())
	assert.True(t, ok)
	assert.Equal(t, "Alice", src)
	assert.Equal(t, "Bob", tgt)
}

func TestEntityMerge(t *testing.T) {
	e := &Entity{Name: "Go", Type: "LANGUAGE", Description: "a language", ChunkIDs: pq.StringArray{"c1"}}
	e.Merge(&Entity{Name: "Go", Type: "PERSON", Description: "a language<SEP>compiled", ChunkIDs: pq.StringArray{"c1", "c2"}})

	assert.Equal(t, "LANGUAGE", e.Type)
	assert.Equal(t, "a language<SEP>compiled", e.Description)
	assert.Equal(t, pq.StringArray{"c1", "c2"}, e.ChunkIDs)
}

func TestRelationMerge(t *testing.T) {
	r := &Relation{Source: "A", Target: "B", Keywords: "x, y", Weight: 1, ChunkIDs: pq.StringArray{"c1"}}
	r.Merge(&Relation{Source: "B", Target: "A", Keywords: "y,z", Weight: 2, ChunkIDs: pq.StringArray{"c2"}})

	assert.Equal(t, "x,y,z", r.Keywords)
	assert.Equal(t, 3.0, r.Weight)
	assert.Equal(t, pq.StringArray{"c1", "c2"}, r.ChunkIDs)
}

func TestPruneIDs(t *testing.T) {
	out, changed := PruneIDs([]string{"a", "b", "c"}, map[string]struct{}{"b": {}})
	assert.True(t, changed)
	assert.Equal(t, pq.StringArray{"a", "c"}, out)

	_, changed = PruneIDs([]string{"a"}, map[string]struct{}{"z": {}})
	assert.False(t, changed)
}

func TestEntityAndRelationFilters(t *testing.T) {
	e := &Entity{Name: "Ada Lovelace", Type: "Person"}
	assert.True(t, EntityFilter{EntityType: "person", Search: "love"}.Match(e))
	assert.False(t, EntityFilter{EntityType: "org"}.Match(e))

	r := &Relation{Source: "A", Target: "B", Keywords: "Math", Description: "worked with"}
	assert.True(t, RelationFilter{EntityName: "B", Keyword: "math"}.Match(r))
	assert.True(t, RelationFilter{Keyword: "WORKED"}.Match(r))
	assert.False(t, RelationFilter{EntityName: "C"}.Match(r))
}

func TestWorkspaceValidate(t *testing.T) {
	assert.NoError(t, Workspace("tenant_a-1").Validate())
	assert.Error(t, Workspace("").Validate())
	assert.Error(t, Workspace("a:b").Validate())
	assert.Equal(t, "ws:text_chunks:c1", Workspace("ws").Key(NS_TEXT_CHUNKS, "c1"))
}
