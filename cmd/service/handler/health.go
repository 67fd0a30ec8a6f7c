package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/ragstore/app/logic/v1"
	"github.com/quka-ai/ragstore/app/response"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Workspace     string            `json:"workspace"`
	Storage       map[string]string `json:"storage"`
	AIDriver      string            `json:"ai_driver"`
	PipelineBusy  bool              `json:"pipeline_busy"`
	QueuedDocs    int               `json:"queued_docs"`
	LatestMessage string            `json:"latest_message,omitempty"`
}

func (s *HttpSrv) Health(c *gin.Context) {
	ws := v1.SetupWorkspace(c, s.Core)
	storage := s.Core.Cfg().Storage
	status := s.Core.Pipeline().Status(ws)

	response.APISuccess(c, HealthResponse{
		Status:    "healthy",
		Workspace: ws.String(),
		Storage: map[string]string{
			"full_docs":  storage.FullDocs,
			"kv":         storage.KV,
			"doc_status": storage.DocStatus,
			"vector":     storage.Vector,
			"graph":      storage.Graph,
		},
		AIDriver:      s.Core.AIDriver(),
		PipelineBusy:  status.Busy,
		QueuedDocs:    len(status.QueuedDocIDs),
		LatestMessage: status.LatestMessage,
	})
}
