package types

import "github.com/lib/pq"

// VectorRecord is one embedded record of the entities, relationships or chunks namespace.
// Chunk records carry their own id in ChunkIDs so set intersection works on every namespace.
type VectorRecord struct {
	ID         string         `json:"id" db:"id" bson:"id"`
	Content    string         `json:"content" db:"content" bson:"content"`
	EntityName string         `json:"entity_name,omitempty" db:"entity_name" bson:"entity_name,omitempty"`
	Source     string         `json:"src_id,omitempty" db:"source_name" bson:"source_name,omitempty"`
	Target     string         `json:"tgt_id,omitempty" db:"target_name" bson:"target_name,omitempty"`
	FullDocID  string         `json:"full_doc_id,omitempty" db:"full_doc_id" bson:"full_doc_id,omitempty"`
	ChunkIDs   pq.StringArray `json:"chunk_ids" db:"chunk_ids" bson:"chunk_ids"`
	FilePath   string         `json:"file_path" db:"file_path" bson:"file_path"`
	Vector     []float32      `json:"vector,omitempty" db:"-" bson:"vector,omitempty"`
	CreatedAt  int64          `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt  int64          `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

func (r *VectorRecord) Clone() *VectorRecord {
	if r == nil {
		return nil
	}
	n := *r
	n.ChunkIDs = append(pq.StringArray(nil), r.ChunkIDs...)
	n.Vector = append([]float32(nil), r.Vector...)
	return &n
}

// DedupKey is the identity used when the resolver folds records across namespaces:
// entity name for entities, the undirected pair for relations, the id otherwise.
func (r *VectorRecord) DedupKey() string {
	switch {
	case r.EntityName != "":
		return r.EntityName
	case r.Source != "" || r.Target != "":
		return RelationKey(r.Source, r.Target)
	}
	return r.ID
}

type QueryResult struct {
	Record *VectorRecord `json:"record"`
	Score  float32       `json:"score"`
}
