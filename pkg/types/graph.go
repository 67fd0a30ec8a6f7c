package types

import (
	"strings"

	"github.com/lib/pq"
	"github.com/samber/lo"
)

type Entity struct {
	ID          string         `json:"id" db:"id" bson:"id"`
	Name        string         `json:"name" db:"name" bson:"name"`
	Type        string         `json:"type" db:"entity_type" bson:"entity_type"`
	Description string         `json:"description" db:"description" bson:"description"`
	ChunkIDs    pq.StringArray `json:"chunk_ids" db:"chunk_ids" bson:"chunk_ids"`
	FilePath    string         `json:"file_path" db:"file_path" bson:"file_path"`
	Degree      int            `json:"degree" db:"-" bson:"-"`
	CreatedAt   int64          `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt   int64          `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	n := *e
	n.ChunkIDs = append(pq.StringArray(nil), e.ChunkIDs...)
	return &n
}

// Merge folds an incoming extraction of the same name into e.
func (e *Entity) Merge(in *Entity) {
	if e.Type == "" || e.Type == "UNKNOWN" {
		e.Type = in.Type
	}
	e.Description = JoinField(e.Description, in.Description)
	e.FilePath = JoinField(e.FilePath, in.FilePath)
	e.ChunkIDs = UnionIDs(e.ChunkIDs, in.ChunkIDs)
	if in.UpdatedAt > e.UpdatedAt {
		e.UpdatedAt = in.UpdatedAt
	}
}

type Relation struct {
	ID          string         `json:"id" db:"id" bson:"id"`
	Source      string         `json:"source_entity_name" db:"source_name" bson:"source_name"`
	Target      string         `json:"target_entity_name" db:"target_name" bson:"target_name"`
	Description string         `json:"description" db:"description" bson:"description"`
	Keywords    string         `json:"keywords" db:"keywords" bson:"keywords"`
	Weight      float64        `json:"weight" db:"weight" bson:"weight"`
	ChunkIDs    pq.StringArray `json:"chunk_ids" db:"chunk_ids" bson:"chunk_ids"`
	FilePath    string         `json:"file_path" db:"file_path" bson:"file_path"`
	CreatedAt   int64          `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt   int64          `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

func (r *Relation) Clone() *Relation {
	if r == nil {
		return nil
	}
	n := *r
	n.ChunkIDs = append(pq.StringArray(nil), r.ChunkIDs...)
	return &n
}

// Key is the order-insensitive pair key, relations are undirected for lookups.
func (r *Relation) Key() string {
	return RelationKey(r.Source, r.Target)
}

func (r *Relation) Touches(name string) bool {
	return r.Source == name || r.Target == name
}

// Other returns the endpoint opposite to name.
func (r *Relation) Other(name string) string {
	if r.Source == name {
		return r.Target
	}
	return r.Source
}

func (r *Relation) Merge(in *Relation) {
	r.Description = JoinField(r.Description, in.Description)
	r.Keywords = joinKeywords(r.Keywords, in.Keywords)
	r.FilePath = JoinField(r.FilePath, in.FilePath)
	r.ChunkIDs = UnionIDs(r.ChunkIDs, in.ChunkIDs)
	if in.Weight > 0 {
		r.Weight += in.Weight
	}
	if in.UpdatedAt > r.UpdatedAt {
		r.UpdatedAt = in.UpdatedAt
	}
}

func RelationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + GRAPH_FIELD_SEP + b
}

// SplitRelationKey is the inverse of RelationKey.
func SplitRelationKey(key string) (string, string, bool) {
	parts := strings.SplitN(key, GRAPH_FIELD_SEP, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// JoinField appends the non-empty, not yet present parts of in to base.
func JoinField(base, in string) string {
	parts := lo.Filter(strings.Split(base, GRAPH_FIELD_SEP), func(s string, _ int) bool { return s != "" })
	for _, p := range strings.Split(in, GRAPH_FIELD_SEP) {
		if p != "" && !lo.Contains(parts, p) {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, GRAPH_FIELD_SEP)
}

func joinKeywords(base, in string) string {
	var out []string
	for _, raw := range []string{base, in} {
		for _, k := range strings.Split(raw, ",") {
			k = strings.TrimSpace(k)
			if k != "" && !lo.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	return strings.Join(out, ",")
}

func UnionIDs(a, b []string) pq.StringArray {
	return pq.StringArray(lo.Uniq(append(append([]string{}, a...), b...)))
}

// PruneIDs drops every id in removed and reports whether anything changed.
func PruneIDs(ids []string, removed map[string]struct{}) (pq.StringArray, bool) {
	out := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		if _, ok := removed[id]; !ok {
			out = append(out, id)
		}
	}
	return out, len(out) != len(ids)
}

func Intersects(ids []string, set map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// EntityFilter matches entity listings: type is compared case-insensitively,
// search is a case-insensitive substring of the name.
type EntityFilter struct {
	EntityType string
	Search     string
}

func (f EntityFilter) Match(e *Entity) bool {
	if f.EntityType != "" && !strings.EqualFold(e.Type, f.EntityType) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// RelationFilter matches relation listings: entity name on either end,
// keyword as a case-insensitive substring of keywords or description.
type RelationFilter struct {
	EntityName string
	Keyword    string
}

func (f RelationFilter) Match(r *Relation) bool {
	if f.EntityName != "" && !r.Touches(f.EntityName) {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(r.Keywords), kw) && !strings.Contains(strings.ToLower(r.Description), kw) {
			return false
		}
	}
	return true
}

// EntityDetail is an entity with every relation touching it.
type EntityDetail struct {
	*Entity
	Relations []*Relation `json:"relations"`
}

// DocumentGraph is the resolver output for one document.
type DocumentGraph struct {
	DocID     string      `json:"doc_id"`
	Chunks    []*Chunk    `json:"chunks,omitempty"`
	Entities  []*Entity   `json:"entities"`
	Relations []*Relation `json:"relations"`
}
