package types

type Chunk struct {
	ID         string `json:"id" db:"id" bson:"id"`
	FullDocID  string `json:"full_doc_id" db:"full_doc_id" bson:"full_doc_id"`
	OrderIndex int    `json:"order_index" db:"order_index" bson:"order_index"`
	TokenCount int    `json:"token_count" db:"token_count" bson:"token_count"`
	Content    string `json:"content" db:"content" bson:"content"`
	FilePath   string `json:"file_path" db:"file_path" bson:"file_path"`
	CreatedAt  int64  `json:"created_at" db:"created_at" bson:"created_at"`
}

// ChunkLess orders by owning document then order_index.
func ChunkLess(a, b *Chunk) bool {
	if a.FullDocID != b.FullDocID {
		return a.FullDocID < b.FullDocID
	}
	return a.OrderIndex < b.OrderIndex
}

// ChunkDetail is a chunk with the graph records extracted from it.
type ChunkDetail struct {
	*Chunk
	Entities  []*Entity   `json:"entities"`
	Relations []*Relation `json:"relations"`
}
