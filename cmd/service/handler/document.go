package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/ragstore/app/logic/v1"
	"github.com/quka-ai/ragstore/app/response"
	"github.com/quka-ai/ragstore/pkg/crawler"
	"github.com/quka-ai/ragstore/pkg/utils"
)

func (s *HttpSrv) CrawlDocument(c *gin.Context) {
	var (
		err error
		req crawler.Options
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewCrawlLogic(c, s.Core).Crawl(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, res)
}

func (s *HttpSrv) InsertText(c *gin.Context) {
	var (
		err error
		req v1.InsertTextRequest
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewDocumentLogic(c, s.Core).InsertText(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, res)
}

func (s *HttpSrv) ListDocuments(c *gin.Context) {
	var (
		err error
		req v1.ListDocumentsRequest
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	page, err := v1.NewDocumentLogic(c, s.Core).List(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, page)
}

type StatusCountsResponse struct {
	StatusCounts map[string]int `json:"status_counts"`
}

func (s *HttpSrv) DocumentStatusCounts(c *gin.Context) {
	counts, err := v1.NewDocumentLogic(c, s.Core).StatusCounts()
	if err != nil {
		response.APIError(c, err)
		return
	}

	res := StatusCountsResponse{StatusCounts: make(map[string]int, len(counts)+1)}
	var all int
	for status, n := range counts {
		res.StatusCounts[status.String()] = n
		all += n
	}
	res.StatusCounts["all"] = all
	response.APISuccess(c, res)
}

func (s *HttpSrv) TrackStatus(c *gin.Context) {
	res, err := v1.NewDocumentLogic(c, s.Core).TrackStatus(c.Param("track_id"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, res)
}

func (s *HttpSrv) PipelineStatus(c *gin.Context) {
	response.APISuccess(c, v1.NewDocumentLogic(c, s.Core).PipelineStatus())
}

func (s *HttpSrv) CancelPipeline(c *gin.Context) {
	response.APISuccess(c, v1.NewDocumentLogic(c, s.Core).CancelPipeline())
}

func (s *HttpSrv) ReprocessFailed(c *gin.Context) {
	res, err := v1.NewDocumentLogic(c, s.Core).ReprocessFailed()
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, res)
}

func (s *HttpSrv) GetDocument(c *gin.Context) {
	doc, err := v1.NewDocumentLogic(c, s.Core).Get(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, doc)
}

func (s *HttpSrv) DeleteDocument(c *gin.Context) {
	res, err := v1.NewDocumentLogic(c, s.Core).Delete(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, res)
}

func (s *HttpSrv) DocumentChunks(c *gin.Context) {
	chunks, err := v1.NewResolverLogic(c, s.Core).DocumentChunks(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, chunks)
}

func (s *HttpSrv) DocumentEntities(c *gin.Context) {
	graph, err := v1.NewResolverLogic(c, s.Core).DocumentGraph(c.Param("id"), false)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, graph)
}
