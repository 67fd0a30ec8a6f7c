package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenUniqID(t *testing.T) {
	SetupIDWorker(1)
	a, b := GenUniqIDStr(), GenUniqIDStr()
	assert.NotEqual(t, a, b)
}

func TestHashIDs(t *testing.T) {
	assert.Equal(t, "doc-5d41402abc4b2a76b9719d911017c592", DocID("hello"))
	assert.Equal(t, RelationID("A", "B"), RelationID("B", "A"))
	assert.NotEqual(t, ChunkID("doc-1", 0, "x"), ChunkID("doc-2", 0, "x"))
	assert.True(t, strings.HasPrefix(EntityID("Go"), "ent-"))
}

func TestGenTrackID(t *testing.T) {
	id := GenTrackID("crawl")
	parts := strings.Split(id, "_")
	assert.Len(t, parts, 4)
	assert.Equal(t, "crawl", parts[0])
	assert.Len(t, parts[3], 8)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "a b c", Summary("a\n b\t\tc", 10))
	assert.Equal(t, "你好...", Summary("你好世界", 2))
}
