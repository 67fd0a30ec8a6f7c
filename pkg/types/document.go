package types

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

type DocStatus string

const (
	DOC_STATUS_PENDING      DocStatus = "pending"
	DOC_STATUS_PROCESSING   DocStatus = "processing"
	DOC_STATUS_PREPROCESSED DocStatus = "preprocessed"
	DOC_STATUS_PROCESSED    DocStatus = "processed"
	DOC_STATUS_FAILED       DocStatus = "failed"
)

var AllDocStatuses = []DocStatus{
	DOC_STATUS_PENDING,
	DOC_STATUS_PROCESSING,
	DOC_STATUS_PREPROCESSED,
	DOC_STATUS_PROCESSED,
	DOC_STATUS_FAILED,
}

func (s DocStatus) String() string {
	return string(s)
}

func (s DocStatus) Valid() bool {
	for _, v := range AllDocStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// InFlight reports whether the document is inside a pipeline run.
// preprocessed is a sub-state of processing.
func (s DocStatus) InFlight() bool {
	return s == DOC_STATUS_PROCESSING || s == DOC_STATUS_PREPROCESSED
}

func ParseDocStatus(s string) (DocStatus, bool) {
	st := DocStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

var docTransitions = map[DocStatus][]DocStatus{
	DOC_STATUS_PENDING:      {DOC_STATUS_PENDING, DOC_STATUS_PROCESSING},
	DOC_STATUS_PROCESSING:   {DOC_STATUS_PREPROCESSED, DOC_STATUS_PROCESSED, DOC_STATUS_FAILED},
	DOC_STATUS_PREPROCESSED: {DOC_STATUS_PROCESSED, DOC_STATUS_FAILED},
	DOC_STATUS_FAILED:       {DOC_STATUS_PENDING},
}

// CanTransition is the lifecycle table. processed has no outgoing edge, a
// processed document only comes back through deletion and resubmission.
func (s DocStatus) CanTransition(to DocStatus) bool {
	for _, v := range docTransitions[s] {
		if v == to {
			return true
		}
	}
	return false
}

type Document struct {
	ID             string         `json:"id" db:"id" bson:"id"`
	ContentHash    string         `json:"content_hash" db:"content_hash" bson:"content_hash"`
	ContentSummary string         `json:"content_summary" db:"content_summary" bson:"content_summary"`
	ContentLength  int            `json:"content_length" db:"content_length" bson:"content_length"`
	FilePath       string         `json:"file_path" db:"file_path" bson:"file_path"`
	Status         DocStatus      `json:"status" db:"status" bson:"status"`
	TrackID        string         `json:"track_id" db:"track_id" bson:"track_id"`
	CategoryID     string         `json:"category_id" db:"category_id" bson:"category_id"`
	ChunksCount    int            `json:"chunks_count" db:"chunks_count" bson:"chunks_count"`
	ChunksList     pq.StringArray `json:"chunks_list" db:"chunks_list" bson:"chunks_list"`
	ErrorMsg       string         `json:"error_msg,omitempty" db:"error_msg" bson:"error_msg"`
	Metadata       Metadata       `json:"metadata" db:"metadata" bson:"metadata"`
	CreatedAt      int64          `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt      int64          `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	n := *d
	n.ChunksList = append(pq.StringArray(nil), d.ChunksList...)
	n.Metadata = d.Metadata.Clone()
	return &n
}

// DocumentFilter selects documents of one workspace. Zero fields match everything.
type DocumentFilter struct {
	Statuses    []DocStatus
	TrackID     string
	FilePath    string
	ContentHash string
	CategoryID  string
}

func (f DocumentFilter) Match(d *Document) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if d.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TrackID != "" && d.TrackID != f.TrackID {
		return false
	}
	if f.FilePath != "" && d.FilePath != f.FilePath {
		return false
	}
	if f.ContentHash != "" && d.ContentHash != f.ContentHash {
		return false
	}
	if f.CategoryID != "" && d.CategoryID != f.CategoryID {
		return false
	}
	return true
}

func (f DocumentFilter) Apply(query *sq.SelectBuilder) {
	if len(f.Statuses) > 0 {
		*query = query.Where(sq.Eq{"status": f.Statuses})
	}
	if f.TrackID != "" {
		*query = query.Where(sq.Eq{"track_id": f.TrackID})
	}
	if f.FilePath != "" {
		*query = query.Where(sq.Eq{"file_path": f.FilePath})
	}
	if f.ContentHash != "" {
		*query = query.Where(sq.Eq{"content_hash": f.ContentHash})
	}
	if f.CategoryID != "" {
		*query = query.Where(sq.Eq{"category_id": f.CategoryID})
	}
}

// Sortable document fields. Anything else falls back to updated_at.
var DocumentSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"id":         true,
	"file_path":  true,
	"status":     true,
}

func NormalizeDocumentSortField(field string) string {
	if DocumentSortFields[field] {
		return field
	}
	return "updated_at"
}

// DocumentLess orders documents by field, ties broken by id so paging is stable.
func DocumentLess(field string, desc bool) func(a, b *Document) bool {
	field = NormalizeDocumentSortField(field)
	return func(a, b *Document) bool {
		c := compareDocument(field, a, b)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
			return c < 0
		}
		if desc {
			return c > 0
		}
		return c < 0
	}
}

func compareDocument(field string, a, b *Document) int {
	switch field {
	case "created_at":
		return cmpInt64(a.CreatedAt, b.CreatedAt)
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "file_path":
		return strings.Compare(a.FilePath, b.FilePath)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return cmpInt64(a.UpdatedAt, b.UpdatedAt)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// FullDoc is the raw content record kept in the full_docs namespace.
type FullDoc struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	FilePath string `json:"file_path"`
}

type InsertStatus string

const (
	INSERT_STATUS_SUCCESS    InsertStatus = "success"
	INSERT_STATUS_DUPLICATED InsertStatus = "duplicated"
	INSERT_STATUS_ERROR      InsertStatus = "error"
)

type InsertResponse struct {
	Status  InsertStatus `json:"status"`
	Message string       `json:"message"`
	TrackID string       `json:"track_id,omitempty"`
}

// NewDocument is one unit of content handed to the lifecycle engine.
type NewDocument struct {
	Content    string
	FilePath   string
	CategoryID string
	Metadata   Metadata
}

// EnqueueResult is the per-document outcome of an enqueue call.
type EnqueueResult struct {
	DocID          string       `json:"doc_id"`
	Status         InsertStatus `json:"status"`
	TrackID        string       `json:"track_id"`
	ExistingID     string       `json:"existing_id,omitempty"`
	// status of the document a duplicate collided with
	ExistingStatus DocStatus    `json:"existing_status,omitempty"`
}
