package types

const MAX_HISTORY_MESSAGES = 1000

type PipelineStatus struct {
	Busy            bool     `json:"busy"`
	JobName         string   `json:"job_name"`
	JobStart        int64    `json:"job_start,omitempty"`
	TrackID         string   `json:"track_id"`
	QueuedDocIDs    []string `json:"queued_doc_ids"`
	Docs            int      `json:"docs"`
	ProcessedCount  int      `json:"processed_count"`
	FailedCount     int      `json:"failed_count"`
	CancelRequested bool     `json:"cancel_requested"`
	LatestMessage   string   `json:"latest_message"`
	HistoryMessages []string `json:"history_messages"`
}

type CancelStatus string

const (
	CANCEL_STATUS_NOT_BUSY  CancelStatus = "not_busy"
	CANCEL_STATUS_REQUESTED CancelStatus = "cancellation_requested"
)

type CancelResponse struct {
	Status  CancelStatus `json:"status"`
	Message string       `json:"message"`
}

type ReprocessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TrackID string `json:"track_id,omitempty"`
	Count   int    `json:"count"`
}

type TrackStatus struct {
	TrackID       string            `json:"track_id"`
	Documents     []*Document       `json:"documents"`
	TotalCount    int               `json:"total_count"`
	StatusSummary map[DocStatus]int `json:"status_summary"`
}

type DeleteDocumentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	DocID   string `json:"doc_id"`
}

// ExtractResult is what the extraction collaborator returns for one chunk.
type ExtractResult struct {
	Entities  []*Entity
	Relations []*Relation
}
