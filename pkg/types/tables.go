package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "rag_"

const (
	TABLE_KV          = TableName("kv")
	TABLE_DOC_STATUS  = TableName("doc_status")
	TABLE_VECTORS     = TableName("vectors")
	TABLE_GRAPH_NODES = TableName("graph_nodes")
	TABLE_GRAPH_EDGES = TableName("graph_edges")
)

// Namespace names a logical store inside a backend. The same backend instance
// serves several namespaces, each one a separate table, collection or key prefix.
type Namespace string

const (
	NS_FULL_DOCS     Namespace = "full_docs"
	NS_TEXT_CHUNKS   Namespace = "text_chunks"
	NS_DOC_STATUS    Namespace = "doc_status"
	NS_ENTITIES      Namespace = "entities"
	NS_RELATIONSHIPS Namespace = "relationships"
	NS_CHUNKS        Namespace = "chunks"
	NS_GRAPH         Namespace = "chunk_entity_relation"
)

func (n Namespace) String() string {
	return string(n)
}
