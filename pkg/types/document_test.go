package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocStatusTransitions(t *testing.T) {
	assert.True(t, DOC_STATUS_PENDING.CanTransition(DOC_STATUS_PROCESSING))
	assert.True(t, DOC_STATUS_PROCESSING.CanTransition(DOC_STATUS_PREPROCESSED))
	assert.True(t, DOC_STATUS_PREPROCESSED.CanTransition(DOC_STATUS_PROCESSED))
	assert.True(t, DOC_STATUS_PROCESSING.CanTransition(DOC_STATUS_FAILED))
	assert.True(t, DOC_STATUS_FAILED.CanTransition(DOC_STATUS_PENDING))

	assert.False(t, DOC_STATUS_PENDING.CanTransition(DOC_STATUS_PROCESSED))
	assert.False(t, DOC_STATUS_FAILED.CanTransition(DOC_STATUS_PROCESSING))
	assert.False(t, DOC_STATUS_PROCESSED.CanTransition(DOC_STATUS_PENDING))
	assert.False(t, DOC_STATUS_PREPROCESSED.CanTransition(DOC_STATUS_PENDING))
}

func TestParseDocStatus(t *testing.T) {
	st, ok := ParseDocStatus(" Processed ")
	assert.True(t, ok)
	assert.Equal(t, DOC_STATUS_PROCESSED, st)

	_, ok = ParseDocStatus("done")
	assert.False(t, ok)
}

func TestMetadataKeepsOrder(t *testing.T) {
	var m Metadata
	m = m.Set("z", "1")
	m = m.Set("a", "2")
	m = m.Set("z", "3")

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"3","a":"2"}`, string(raw))

	var back Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"b":"x","a":1,"c":null}`), &back))
	assert.Equal(t, Metadata{{"b", "x"}, {"a", "1"}, {"c", ""}}, back)

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &back))
}

func TestDocumentFilterMatch(t *testing.T) {
	doc := &Document{ID: "doc-1", Status: DOC_STATUS_FAILED, TrackID: "t1", FilePath: "http://a"}

	assert.True(t, DocumentFilter{}.Match(doc))
	assert.True(t, DocumentFilter{Statuses: []DocStatus{DOC_STATUS_PENDING, DOC_STATUS_FAILED}}.Match(doc))
	assert.False(t, DocumentFilter{Statuses: []DocStatus{DOC_STATUS_PROCESSED}}.Match(doc))
	assert.False(t, DocumentFilter{TrackID: "t2"}.Match(doc))
	assert.True(t, DocumentFilter{FilePath: "http://a", TrackID: "t1"}.Match(doc))
}

func TestDocumentLessIsStable(t *testing.T) {
	a := &Document{ID: "a", UpdatedAt: 10}
	b := &Document{ID: "b", UpdatedAt: 10}
	c := &Document{ID: "c", UpdatedAt: 5}

	less := DocumentLess("updated_at", true)
	assert.True(t, less(a, c))
	assert.True(t, less(a, b))
	assert.False(t, less(b, a))

	less = DocumentLess("unknown", false)
	assert.True(t, less(c, a))
}
