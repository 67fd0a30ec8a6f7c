package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/ragstore/app/logic/v1"
	"github.com/quka-ai/ragstore/app/response"
	"github.com/quka-ai/ragstore/pkg/utils"
)

func (s *HttpSrv) ListChunks(c *gin.Context) {
	var (
		err error
		req v1.ListChunksRequest
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	page, err := v1.NewChunkLogic(c, s.Core).List(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, page)
}

func (s *HttpSrv) GetChunk(c *gin.Context) {
	detail, err := v1.NewChunkLogic(c, s.Core).Detail(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, detail)
}

func (s *HttpSrv) ListEntities(c *gin.Context) {
	var (
		err error
		req v1.ListEntitiesRequest
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	page, err := v1.NewEntityLogic(c, s.Core).List(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, page)
}

type EntitiesByDocumentRequest struct {
	DocID    string `form:"doc_id"`
	FilePath string `form:"file_path"`
}

func (s *HttpSrv) EntitiesByDocument(c *gin.Context) {
	var (
		err error
		req EntitiesByDocumentRequest
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	graph, err := v1.NewEntityLogic(c, s.Core).ByDocument(req.DocID, req.FilePath)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, graph)
}

func (s *HttpSrv) GetEntity(c *gin.Context) {
	detail, err := v1.NewEntityLogic(c, s.Core).Get(c.Param("name"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, detail)
}

func (s *HttpSrv) EntityRelations(c *gin.Context) {
	relations, err := v1.NewEntityLogic(c, s.Core).Relations(c.Param("name"))
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, relations)
}

func (s *HttpSrv) ListRelations(c *gin.Context) {
	var (
		err error
		req v1.ListRelationsRequest
	)

	if err = utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	page, err := v1.NewRelationLogic(c, s.Core).List(req)
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, page)
}
